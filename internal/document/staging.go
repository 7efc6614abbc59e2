package document

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/carbon-tracker/constants"
)

// Stage copies an upload into dir under a unique name that keeps the original extension,
// so the extractor can classify and open it. The caller owns removal.
func Stage(dir, fileName string, r io.Reader) (path string, size int64, err error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(fileName))
	pattern := "bill-*"
	if ext != "" {
		pattern += "." + ext
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}
	size, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", 0, fmt.Errorf("write upload file: %w", err)
	}
	return f.Name(), size, nil
}

// Remove deletes a staged file; a file that is already gone is not an error.
func Remove(path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("failed to remove staged file", "path", path, "error", err)
	}
}
