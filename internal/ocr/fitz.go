package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// FitzOpener renders pages in-process with MuPDF.
type FitzOpener struct {
	DPI int
}

func (o *FitzOpener) Open(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	dpi := o.DPI
	if dpi <= 0 {
		dpi = 300
	}
	return &fitzDocument{doc: doc, dpi: dpi}, nil
}

type fitzDocument struct {
	doc *fitz.Document
	dpi int
}

func (d *fitzDocument) PageCount() int { return d.doc.NumPage() }

func (d *fitzDocument) Render(ctx context.Context, page int) (*Image, error) {
	if page < 1 || page > d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range 1..%d", page, d.doc.NumPage())
	}
	img, err := d.doc.ImageDPI(page-1, float64(d.dpi))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", page, err)
	}
	return &Image{
		Page:   page,
		PNG:    buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		DPI:    d.dpi,
	}, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
