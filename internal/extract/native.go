package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfTextReader reads text layers with dslipak/pdf. Any page that cannot be
// read fails the whole document.
type pdfTextReader struct {
	pageTimeout time.Duration
	logger      *slog.Logger
}

func (r pdfTextReader) ReadText(ctx context.Context, path string) (text string, pages int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return "", 0, err
	}

	// the parser panics on some malformed xref tables
	defer func() {
		if rec := recover(); rec != nil {
			text, pages, err = "", 0, fmt.Errorf("parse pdf: %v", rec)
		}
	}()
	rd, err := pdf.NewReader(f, fi.Size())
	if err != nil {
		return "", 0, fmt.Errorf("parse pdf: %w", err)
	}

	pages = rd.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		page := rd.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, perr := r.protectExtract(ctx, page)
		if perr != nil {
			r.logger.Warn("native page text failed", "page", i, "error", perr)
			return "", pages, fmt.Errorf("page %d text: %w", i, perr)
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, "\n"), pages, nil
}

func (r pdfTextReader) protectExtract(ctx context.Context, page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resChan <- result{err: fmt.Errorf("page text: %v", rec)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timeout := r.pageTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case res := <-resChan:
		return res.content, res.err
	case <-time.After(timeout):
		return "", fmt.Errorf("page text timed out after %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// pdfcpuPageCounter counts pages with pdfcpu in relaxed validation mode.
type pdfcpuPageCounter struct{}

func (pdfcpuPageCounter) CountPages(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.PageCount(f, cfg)
}
