package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

var (
	errNotInitialized = errors.New("ocr engine not initialized")
	errEngineClosed   = errors.New("ocr engine closed")
)

// TesseractEngine recognizes text with libtesseract through a fixed pool of
// gosseract clients; each client serves one image at a time.
type TesseractEngine struct {
	cfg    Config
	logger *slog.Logger

	once    sync.Once
	initErr error
	pool    chan *gosseract.Client

	mu     sync.Mutex
	closed bool
	done   chan struct{} // closed by Close; wakes callers waiting for a client
}

func NewTesseractEngine(cfg Config, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{cfg: cfg.withDefaults(), logger: logger, done: make(chan struct{})}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Init builds the client pool. Later calls return the first result.
func (e *TesseractEngine) Init(_ context.Context) error {
	e.once.Do(func() {
		pool := make(chan *gosseract.Client, e.cfg.PoolSize)
		for i := 0; i < e.cfg.PoolSize; i++ {
			c, err := e.newClient()
			if err != nil {
				close(pool)
				for c := range pool {
					_ = c.Close()
				}
				e.initErr = err
				return
			}
			pool <- c
		}
		e.pool = pool
		e.logger.Info("ocr engine ready", "engine", e.Name(), "version", gosseract.Version(),
			"lang", e.cfg.Language, "pool_size", e.cfg.PoolSize)
	})
	return e.initErr
}

func (e *TesseractEngine) newClient() (*gosseract.Client, error) {
	c := gosseract.NewClient()
	if e.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(e.cfg.TessdataDir); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(strings.Split(e.cfg.Language, "+")...); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if e.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("set psm: %w", err)
		}
	}
	return c, nil
}

// Recognize returns one fragment per text line, in tesseract's layout order.
func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (Result, error) {
	if e.pool == nil {
		return Result{}, errNotInitialized
	}
	var c *gosseract.Client
	select {
	case <-e.done:
		return Result{}, errEngineClosed
	default:
	}
	select {
	case <-e.done:
		return Result{}, errEngineClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case c = <-e.pool:
	}
	defer e.release(c)

	if err := c.SetImage(imagePath); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return Result{}, fmt.Errorf("recognize: %w", err)
	}
	fragments := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if text := strings.Join(strings.Fields(b.Word), " "); text != "" {
			fragments = append(fragments, text)
		}
	}
	return Result{Fragments: fragments}, nil
}

func (e *TesseractEngine) release(c *gosseract.Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		_ = c.Close()
		return
	}
	e.pool <- c
}

// Close releases every pooled client. Clients still in use are closed on release.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.done)
	if e.pool == nil {
		return nil
	}
	var errs []error
	for {
		select {
		case c := <-e.pool:
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		default:
			e.logger.Info("ocr engine closed", "engine", e.Name())
			return errors.Join(errs...)
		}
	}
}
