package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

var rePages = regexp.MustCompile(`(?m)^Pages:\s+(\d+)\s*$`)

// ExecOpener renders pages with the poppler command line tools.
type ExecOpener struct {
	Pdfinfo  string
	Pdftoppm string
	DPI      int
	Runner   Runner
	Logger   *slog.Logger
}

func (o *ExecOpener) Open(ctx context.Context, path string) (Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	// pdfinfo <path>
	out, errb, err := o.Runner.Run(ctx, o.Pdfinfo, path)
	if err != nil {
		return nil, fmt.Errorf("pdfinfo: %w (%s)", err, truncate(string(errb), 512))
	}
	m := rePages.FindSubmatch(out)
	if m == nil {
		return nil, errors.New("pdfinfo: page count not reported")
	}
	pages, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return nil, fmt.Errorf("pdfinfo: %w", err)
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dpi := o.DPI
	if dpi <= 0 {
		dpi = 300
	}
	return &execDocument{path: path, pages: pages, dpi: dpi, opener: o, logger: logger}, nil
}

type execDocument struct {
	path   string
	pages  int
	dpi    int
	opener *ExecOpener
	logger *slog.Logger
}

func (d *execDocument) PageCount() int { return d.pages }

func (d *execDocument) Render(ctx context.Context, page int) (*Image, error) {
	tmpDir, err := os.MkdirTemp("", "ke-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			d.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	p := strconv.Itoa(page)
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <tmp/page>
	_, errb, err := d.opener.Runner.Run(ctx, d.opener.Pdftoppm,
		"-r", strconv.Itoa(d.dpi), "-png", "-f", p, "-l", p, "-singlefile", d.path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w (%s)", page, err, truncate(string(errb), 512))
	}

	data, err := os.ReadFile(prefix + ".png")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: decode png: %w", page, err)
	}
	return &Image{Page: page, PNG: data, Width: cfg.Width, Height: cfg.Height, DPI: d.dpi}, nil
}

func (d *execDocument) Close() error { return nil }
