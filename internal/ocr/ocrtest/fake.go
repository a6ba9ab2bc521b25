// Package ocrtest provides an in-memory renderer and recognizer for tests.
package ocrtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/joseph-ayodele/keyword-estimator/internal/ocr"
)

// Page scripts one page of a fake document.
type Page struct {
	Text         string
	Skip         bool // render yields no image
	RenderErr    error
	RecognizeErr error
}

// Fake serves scripted documents. It implements ocr.Opener and
// ocr.Recognizer; recognized text is carried inside the rendered image.
type Fake struct {
	Docs    map[string][]Page
	OpenErr error

	// Hooks run before the corresponding step, on the run's goroutine.
	OnRender    func(page int)
	OnRecognize func(page int)
	// Panic makes Recognize panic with this value.
	Panic any

	mu         sync.Mutex
	opened     int
	closed     int
	rendered   int
	recognized int
	failures   map[*ocr.Image]error
}

// Text builds a document whose pages recognize to the given strings.
func Text(pages ...string) []Page {
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = Page{Text: p}
	}
	return out
}

func (f *Fake) Open(_ context.Context, path string) (ocr.Document, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	pages, ok := f.Docs[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, errors.New("no such file"))
	}
	f.mu.Lock()
	f.opened++
	f.mu.Unlock()
	return &document{fake: f, pages: pages}, nil
}

func (f *Fake) Recognize(_ context.Context, img *ocr.Image) (string, error) {
	if f.OnRecognize != nil {
		f.OnRecognize(img.Page)
	}
	if f.Panic != nil {
		panic(f.Panic)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recognized++
	if err := f.failures[img]; err != nil {
		return "", err
	}
	return string(img.PNG), nil
}

// Counts reports how many documents were opened and closed and how many
// pages were rendered and recognized.
func (f *Fake) Counts() (opened, closed, rendered, recognized int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened, f.closed, f.rendered, f.recognized
}

type document struct {
	fake  *Fake
	pages []Page
}

func (d *document) PageCount() int { return len(d.pages) }

func (d *document) Render(_ context.Context, page int) (*ocr.Image, error) {
	if d.fake.OnRender != nil {
		d.fake.OnRender(page)
	}
	d.fake.mu.Lock()
	defer d.fake.mu.Unlock()
	d.fake.rendered++
	p := d.pages[page-1]
	if p.RenderErr != nil {
		return nil, p.RenderErr
	}
	if p.Skip {
		return nil, nil
	}
	img := &ocr.Image{Page: page, PNG: []byte(p.Text), DPI: 300}
	if p.RecognizeErr != nil {
		if d.fake.failures == nil {
			d.fake.failures = make(map[*ocr.Image]error)
		}
		d.fake.failures[img] = p.RecognizeErr
	}
	return img, nil
}

func (d *document) Close() error {
	d.fake.mu.Lock()
	d.fake.closed++
	d.fake.mu.Unlock()
	return nil
}
