// Package ocr turns page images into ordered text fragments.
package ocr

import (
	"context"
	"strings"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language    string // default "eng"
	TessdataDir string
	DPI         int // rasterization DPI for scanned PDFs, default 300
	PoolSize    int // concurrent recognitions for pooled engines, default 4

	PSM int // page segmentation mode; 0 leaves the engine default
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 4
	}
	return c
}

// Result is the text recognized in one image, one fragment per detected
// region in the engine's reading order.
type Result struct {
	Fragments []string
}

// Text joins the fragments with single spaces; no regions yields "".
func (r Result) Text() string {
	return strings.Join(r.Fragments, " ")
}

// Engine is an OCR backend. Init must be called once before Recognize and
// Close once after the last call. Recognize is safe for concurrent use.
type Engine interface {
	Name() string
	Init(ctx context.Context) error
	Recognize(ctx context.Context, imagePath string) (Result, error)
	Close() error
}
