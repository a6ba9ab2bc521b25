package ocr

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/otiai10/gosseract/v2"
)

// GosseractRecognizer runs Tesseract in-process. A fresh client is created
// per page because gosseract clients are not safe for concurrent use.
type GosseractRecognizer struct {
	Languages      []string
	TessdataPrefix string
	PSM            int
}

func (r *GosseractRecognizer) Recognize(ctx context.Context, img *Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img == nil || len(img.PNG) == 0 {
		return "", errors.New("gosseract: empty image")
	}
	c := gosseract.NewClient()
	defer func() { _ = c.Close() }()

	if r.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(r.TessdataPrefix); err != nil {
			return "", fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if len(r.Languages) > 0 {
		if err := c.SetLanguage(r.Languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if r.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(r.PSM)); err != nil {
			return "", fmt.Errorf("set psm: %w", err)
		}
	}
	if img.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(img.DPI)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImageFromBytes(img.PNG); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
