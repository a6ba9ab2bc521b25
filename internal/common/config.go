package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	OCR      OCRConfig      `yaml:"ocr"`
	Keywords KeywordsConfig `yaml:"keywords"`
	Export   ExportConfig   `yaml:"export"`
	Server   ServerConfig   `yaml:"server"`
	Batch    BatchConfig    `yaml:"batch"`
	Log      LogConfig      `yaml:"log"`
}

// OCRConfig selects and tunes the rendering and recognition backends
type OCRConfig struct {
	Backend       string `yaml:"backend"` // "fitz" (in-process) | "exec" (poppler + tesseract CLI)
	DPI           int    `yaml:"dpi"`
	TesseractLang string `yaml:"tesseract_lang"`
	TessdataDir   string `yaml:"tessdata_dir"`
	Pdftoppm      string `yaml:"pdftoppm"`
	Pdfinfo       string `yaml:"pdfinfo"`
	Tesseract     string `yaml:"tesseract"`
	PSM           int    `yaml:"psm"`
	OEM           int    `yaml:"oem"`
}

// KeywordsConfig points at the keyword store
type KeywordsConfig struct {
	Store string `yaml:"store"` // file path or postgres:// DSN
}

// ExportConfig holds spreadsheet export settings
type ExportConfig struct {
	Dir          string `yaml:"dir"`
	PreviewChars int    `yaml:"preview_chars"`
}

// ServerConfig holds daemon listen addresses
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
}

// BatchConfig holds directory processing settings
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Backends understood by OCRConfig.Backend.
const (
	BackendFitz = "fitz"
	BackendExec = "exec"
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Backend:       BackendFitz,
			DPI:           300,
			TesseractLang: "eng",
			Pdftoppm:      "pdftoppm",
			Pdfinfo:       "pdfinfo",
			Tesseract:     "tesseract",
		},
		Keywords: KeywordsConfig{Store: DefaultKeywordsStore()},
		Export:   ExportConfig{Dir: ".", PreviewChars: 5000},
		Server:   ServerConfig{GRPCAddr: ":8080", HTTPAddr: ":8081"},
		Batch:    BatchConfig{Workers: 2},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultKeywordsStore is ~/.word_estimator/keywords.csv, or a relative
// path when the home directory cannot be resolved.
func DefaultKeywordsStore() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".word_estimator", "keywords.csv")
	}
	return filepath.Join(home, ".word_estimator", "keywords.csv")
}

// LoadConfig loads configuration from .env and environment variables
func LoadConfig() *Config {
	// a missing .env is not an error
	_ = godotenv.Load()
	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg
}

// LoadConfigFile overlays a YAML file on the defaults, then applies the
// environment. An empty path behaves like LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return LoadConfig(), nil
	}
	_ = godotenv.Load()
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "parse "+path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OCR.Backend = getEnv("OCR_BACKEND", c.OCR.Backend)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Pdfinfo = getEnv("PDFINFO_BIN", c.OCR.Pdfinfo)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.PSM = getEnvAsInt("TESSERACT_PSM", c.OCR.PSM)
	c.OCR.OEM = getEnvAsInt("TESSERACT_OEM", c.OCR.OEM)

	c.Keywords.Store = getEnv("KEYWORDS_STORE", c.Keywords.Store)

	c.Export.Dir = getEnv("EXPORT_DIR", c.Export.Dir)
	c.Export.PreviewChars = getEnvAsInt("PREVIEW_CHARS", c.Export.PreviewChars)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)

	c.Batch.Workers = getEnvAsInt("BATCH_WORKERS", c.Batch.Workers)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// maxLocationLen bounds paths and DSNs taken from configuration.
const maxLocationLen = 4096

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("ocr.backend", c.OCR.Backend, Required, OneOf(BackendFitz, BackendExec)).
		Field("ocr.dpi", c.OCR.DPI, Positive).
		Field("keywords.store", c.Keywords.Store, Required, MaxLength(maxLocationLen)).
		Field("export.dir", c.Export.Dir, MaxLength(maxLocationLen)).
		Field("batch.workers", c.Batch.Workers, Positive).
		Field("log.format", c.Log.Format, OneOf("json", "text"))
	if err := v.Err(); err != nil {
		return NewAppError("CONFIG_ERROR", "invalid configuration", err)
	}
	return nil
}
