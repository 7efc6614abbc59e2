package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Layers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carbon.toml")
	content := `
[server]
http_addr = ":7000"

[store]
backend = "sqlite"
dsn = "file::memory:"

[ocr]
dpi = 200
page_timeout = "45s"
psm = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("OCR_DPI", "150")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 150, cfg.OCR.DPI, "env overrides file")
	assert.Equal(t, 45*time.Second, cfg.OCR.PageTimeout.Duration)
	assert.Equal(t, 4, cfg.OCR.PSM)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 100, cfg.OCR.NativeThreshold)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }, false},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = "postgres" }, false},
		{"gemini without key", func(c *Config) { c.Narrative.Provider = "gemini" }, false},
		{"gemini with key", func(c *Config) { c.Narrative.Provider = "gemini"; c.Narrative.APIKey = "k" }, true},
		{"zero page workers", func(c *Config) { c.OCR.PageWorkers = 0 }, false},
		{"zero native threshold", func(c *Config) { c.OCR.NativeThreshold = 0 }, false},
		{"psm out of range", func(c *Config) { c.OCR.PSM = 14 }, false},
		{"single block psm", func(c *Config) { c.OCR.PSM = 6 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Equal(t, CodeConfig, CodeOf(err))
		})
	}
}

func TestValidateUpload(t *testing.T) {
	valid := UploadRequest{BillType: "electricity", FileName: "bill.pdf", ContentType: "application/pdf", FileSize: 10}
	require.NoError(t, ValidateUpload(valid))

	tests := []struct {
		name   string
		mutate func(*UploadRequest)
	}{
		{"missing bill type", func(r *UploadRequest) { r.BillType = "" }},
		{"missing file name", func(r *UploadRequest) { r.FileName = "" }},
		{"text file", func(r *UploadRequest) { r.ContentType = "text/plain" }},
		{"empty payload", func(r *UploadRequest) { r.FileSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := ValidateUpload(req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestKindErrorsMatchSentinelAndCause(t *testing.T) {
	cause := errors.New("xref table broken")
	err := DocumentParseError("open pdf", cause)

	assert.ErrorIs(t, err, ErrDocumentParse)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrOCR)
	assert.Equal(t, CodeDocumentParse, CodeOf(err))
	assert.Equal(t, "", CodeOf(cause))
}
