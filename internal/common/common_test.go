package common

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("OCR_BACKEND", "exec")
	t.Setenv("OCR_DPI", "150")
	t.Setenv("KEYWORDS_STORE", "/tmp/kw.yaml")
	t.Setenv("BATCH_WORKERS", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, BackendExec, cfg.OCR.Backend)
	assert.Equal(t, 150, cfg.OCR.DPI)
	assert.Equal(t, "/tmp/kw.yaml", cfg.Keywords.Store)
	assert.Equal(t, 2, cfg.Batch.Workers, "unparsable ints keep the default")
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ocr:\n  dpi: 200\n  tesseract_lang: deu\nbatch:\n  workers: 4\n"), 0o644))
	t.Setenv("TESSERACT_LANG", "fra")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.OCR.DPI)
	assert.Equal(t, "fra", cfg.OCR.TesseractLang, "environment wins over the file")
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, BackendFitz, cfg.OCR.Backend)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCR.Backend = "magic"
	cfg.Batch.Workers = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "CONFIG_ERROR", CodeOf(err))
	assert.Contains(t, err.Error(), "ocr.backend")
	assert.Contains(t, err.Error(), "batch.workers")
	assert.NotContains(t, err.Error(), "keywords.store")

	cfg = DefaultConfig()
	cfg.Keywords.Store = strings.Repeat("k", maxLocationLen+1) + ".csv"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keywords.store")
	assert.Contains(t, err.Error(), "must be at most 4096 characters")

	assert.NoError(t, DefaultConfig().Validate())
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{WrapError(ErrInvalidInput, "bad"), codes.InvalidArgument},
		{NewAppError("X", "missing", ErrNotFound), codes.NotFound},
		{ErrConflict, codes.FailedPrecondition},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		st, ok := status.FromError(StatusFromError(tt.err))
		require.True(t, ok)
		assert.Equal(t, tt.want, st.Code(), tt.err.Error())
	}
	assert.NoError(t, StatusFromError(nil))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nope"))
}
