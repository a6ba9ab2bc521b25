// Package ocr binds the two opaque collaborators of an extraction run: the
// page renderer, which rasterizes one page of a document, and the recognizer,
// which turns a rasterized page into text.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/keyword-estimator/internal/common"
)

// Image is one rasterized page, PNG encoded.
type Image struct {
	Page   int // 1-based
	PNG    []byte
	Width  int
	Height int
	DPI    int
}

// Document is an opened document handle. It is owned by a single run and
// is not safe for concurrent use.
type Document interface {
	PageCount() int
	// Render rasterizes a 1-based page. A nil image with a nil error means
	// the page produced no image and should be skipped.
	Render(ctx context.Context, page int) (*Image, error)
	Close() error
}

// Opener opens documents for rendering.
type Opener interface {
	Open(ctx context.Context, path string) (Document, error)
}

// Recognizer performs character recognition on a rendered page.
type Recognizer interface {
	Recognize(ctx context.Context, img *Image) (string, error)
}

type Config struct {
	Backend string // "fitz" | "exec"; if empty -> "fitz"

	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Pdfinfo   string // binary name or absolute path; if empty -> "pdfinfo"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI, default 300

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = "fitz"
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Pdfinfo == "" {
		c.Pdfinfo = "pdfinfo"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.TesseractLang == "" {
		c.TesseractLang = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	return c
}

// FromConfig maps the application OCR settings onto a backend Config.
func FromConfig(c common.OCRConfig) Config {
	return Config{
		Backend:       c.Backend,
		Pdftoppm:      c.Pdftoppm,
		Pdfinfo:       c.Pdfinfo,
		Tesseract:     c.Tesseract,
		TesseractLang: c.TesseractLang,
		TessdataDir:   c.TessdataDir,
		DPI:           c.DPI,
		PSM:           c.PSM,
		OEM:           c.OEM,
	}
}

// NewBackend builds the renderer/recognizer pair selected by cfg.Backend.
func NewBackend(cfg Config, logger *slog.Logger) (Opener, Recognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	langs := strings.Split(cfg.TesseractLang, "+")

	switch strings.ToLower(cfg.Backend) {
	case "fitz":
		logger.Debug("ocr backend selected", "backend", "fitz", "dpi", cfg.DPI, "lang", cfg.TesseractLang)
		return &FitzOpener{DPI: cfg.DPI},
			&GosseractRecognizer{Languages: langs, TessdataPrefix: cfg.TessdataDir, PSM: cfg.PSM},
			nil
	case "exec":
		runner := NewExecRunner(logger)
		logger.Debug("ocr backend selected", "backend", "exec", "dpi", cfg.DPI, "lang", cfg.TesseractLang)
		return &ExecOpener{Pdfinfo: cfg.Pdfinfo, Pdftoppm: cfg.Pdftoppm, DPI: cfg.DPI, Runner: runner, Logger: logger},
			&ExecRecognizer{Tesseract: cfg.Tesseract, Lang: cfg.TesseractLang, TessdataDir: cfg.TessdataDir, PSM: cfg.PSM, OEM: cfg.OEM, Runner: runner},
			nil
	default:
		return nil, nil, fmt.Errorf("unsupported ocr backend: %q", cfg.Backend)
	}
}
