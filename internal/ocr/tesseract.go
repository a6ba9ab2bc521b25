package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ExecRecognizer runs the tesseract command line tool on a page image.
type ExecRecognizer struct {
	Tesseract   string
	Lang        string
	TessdataDir string
	PSM         int
	OEM         int
	Runner      Runner
}

func (r *ExecRecognizer) Recognize(ctx context.Context, img *Image) (string, error) {
	if img == nil || len(img.PNG) == 0 {
		return "", errors.New("tesseract: empty image")
	}
	tmpDir, err := os.MkdirTemp("", "ke-ocr-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	in := filepath.Join(tmpDir, fmt.Sprintf("page-%d.png", img.Page))
	if err := os.WriteFile(in, img.PNG, 0o600); err != nil {
		return "", err
	}

	// tesseract <file> stdout -l <lang>
	args := []string{in, "stdout", "-l", r.Lang}
	if r.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(r.PSM))
	}
	if r.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(r.OEM))
	}
	if img.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(img.DPI))
	}
	if r.TessdataDir != "" {
		args = append(args, "--tessdata-dir", r.TessdataDir)
	}

	out, errb, err := r.Runner.Run(ctx, r.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
