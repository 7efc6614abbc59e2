// Package extract produces the best available text for a bill document.
package extract

import (
	"context"

	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
)

// TextExtractor is stage 1: document -> text.
type TextExtractor interface {
	Extract(ctx context.Context, doc entity.Document) (entity.ExtractedText, error)
}

// NativeReader reads a PDF's embedded text layer.
type NativeReader interface {
	ReadText(ctx context.Context, path string) (text string, pages int, err error)
}

// PageCounter reports the number of pages in a PDF.
type PageCounter interface {
	CountPages(path string) (int, error)
}
