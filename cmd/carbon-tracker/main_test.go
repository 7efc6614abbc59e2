package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/carbon-tracker/internal/common"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	path := filepath.Join(t.TempDir(), "carbon.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store]\nbackend = \"sqlite\"\n"), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Backend)

	require.NoError(t, os.WriteFile(path, []byte("[store]\nbackend = \"mongo\"\n"), 0o600))
	_, err = loadConfig(path)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRun_StartupFailureReturnsError(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Server.UploadDir = t.TempDir()
	cfg.Store.Backend = "sqlite"
	cfg.OCR.Engine = "paddle"

	err := run(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
