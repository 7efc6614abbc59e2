package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Store     StoreConfig     `toml:"store"`
	OCR       OCRConfig       `toml:"ocr"`
	Narrative NarrativeConfig `toml:"narrative"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig holds transport-related configuration
type ServerConfig struct {
	HTTPAddr       string   `toml:"http_addr" validate:"required"`
	GRPCAddr       string   `toml:"grpc_addr"`
	UploadDir      string   `toml:"upload_dir" validate:"required"`
	MaxUploadBytes int64    `toml:"max_upload_bytes" validate:"gt=0"`
	RateLimit      float64  `toml:"rate_limit" validate:"gte=0"` // requests/sec per IP on uploads; 0 disables
	RateBurst      int      `toml:"rate_burst" validate:"gte=0"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// StoreConfig selects and configures the analysis record backend
type StoreConfig struct {
	Backend          string   `toml:"backend" validate:"oneof=redis postgres sqlite"`
	DSN              string   `toml:"dsn" validate:"required_if=Backend postgres"`
	MaxConns         int32    `toml:"max_conns"`
	MinConns         int32    `toml:"min_conns"`
	MaxConnLifetime  Duration `toml:"max_conn_lifetime"`
	MaxConnIdleTime  Duration `toml:"max_conn_idle_time"`
	DialTimeout      Duration `toml:"dial_timeout"`
	StatementTimeout Duration `toml:"statement_timeout"`

	RedisAddr     string `toml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db" validate:"gte=0"`
	KeyPrefix     string `toml:"key_prefix"`
}

// OCRConfig holds text extraction configuration
type OCRConfig struct {
	Engine          string   `toml:"engine" validate:"oneof=tesseract cli"`
	Language        string   `toml:"language" validate:"required"`
	TessdataDir     string   `toml:"tessdata_dir"`
	Pdftoppm        string   `toml:"pdftoppm"`
	Tesseract       string   `toml:"tesseract"`
	DPI             int      `toml:"dpi" validate:"gte=72,lte=1200"`
	PageWorkers     int      `toml:"page_workers" validate:"gte=1"`
	PoolSize        int      `toml:"pool_size" validate:"gte=1"`
	NativeThreshold int      `toml:"native_threshold" validate:"gte=1"`
	PageTimeout     Duration `toml:"page_timeout"`
	PSM             int      `toml:"psm" validate:"gte=0,lte=13"` // tesseract page segmentation mode; 0 keeps the engine default
}

// NarrativeConfig holds language-model configuration
type NarrativeConfig struct {
	Provider    string   `toml:"provider" validate:"oneof=gemini openai none"`
	APIKey      string   `toml:"api_key"`
	Model       string   `toml:"model"`
	Temperature float32  `toml:"temperature" validate:"gte=0,lte=2"`
	Timeout     Duration `toml:"timeout"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json"`
}

// Duration lets TOML carry durations as strings ("30s", "5m").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the configuration used when nothing else is provided.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			GRPCAddr:       ":9090",
			UploadDir:      os.TempDir(),
			MaxUploadBytes: 32 << 20,
			RateLimit:      2,
			RateBurst:      5,
			RequestTimeout: Duration{5 * time.Minute},
		},
		Store: StoreConfig{
			Backend:         "redis",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: Duration{30 * time.Minute},
			MaxConnIdleTime: Duration{5 * time.Minute},
			DialTimeout:     Duration{3 * time.Second},
			RedisAddr:       "localhost:6379",
			KeyPrefix:       "carbon",
		},
		OCR: OCRConfig{
			Engine:          "tesseract",
			Language:        "eng",
			Pdftoppm:        "pdftoppm",
			Tesseract:       "tesseract",
			DPI:             300,
			PageWorkers:     4,
			PoolSize:        4,
			NativeThreshold: 100,
			PageTimeout:     Duration{time.Minute},
		},
		Narrative: NarrativeConfig{
			Provider: "none",
			Timeout:  Duration{30 * time.Second},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig builds the configuration from defaults, then the optional TOML file at path,
// then environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(c *Config) {
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.UploadDir = getEnv("UPLOAD_DIR", c.Server.UploadDir)
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.RateLimit = getEnvAsFloat64("RATE_LIMIT", c.Server.RateLimit)
	c.Server.RateBurst = getEnvAsInt("RATE_BURST", c.Server.RateBurst)
	c.Server.RequestTimeout.Duration = getEnvAsDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout.Duration)

	c.Store.Backend = getEnv("STORE_BACKEND", c.Store.Backend)
	c.Store.DSN = getEnv("DB_URL", c.Store.DSN)
	c.Store.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Store.MaxConns)
	c.Store.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Store.MinConns)
	c.Store.MaxConnLifetime.Duration = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Store.MaxConnLifetime.Duration)
	c.Store.MaxConnIdleTime.Duration = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Store.MaxConnIdleTime.Duration)
	c.Store.DialTimeout.Duration = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Store.DialTimeout.Duration)
	c.Store.StatementTimeout.Duration = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Store.StatementTimeout.Duration)
	c.Store.RedisAddr = getEnv("REDIS_ADDR", c.Store.RedisAddr)
	c.Store.RedisPassword = getEnv("REDIS_PASSWORD", c.Store.RedisPassword)
	c.Store.RedisDB = getEnvAsInt("REDIS_DB", c.Store.RedisDB)
	c.Store.KeyPrefix = getEnv("STORE_KEY_PREFIX", c.Store.KeyPrefix)

	c.OCR.Engine = getEnv("OCR_ENGINE", c.OCR.Engine)
	c.OCR.Language = getEnv("OCR_LANG", c.OCR.Language)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.PageWorkers = getEnvAsInt("OCR_PAGE_WORKERS", c.OCR.PageWorkers)
	c.OCR.PoolSize = getEnvAsInt("OCR_POOL_SIZE", c.OCR.PoolSize)
	c.OCR.NativeThreshold = getEnvAsInt("OCR_NATIVE_THRESHOLD", c.OCR.NativeThreshold)
	c.OCR.PageTimeout.Duration = getEnvAsDuration("OCR_PAGE_TIMEOUT", c.OCR.PageTimeout.Duration)
	c.OCR.PSM = getEnvAsInt("OCR_PSM", c.OCR.PSM)

	c.Narrative.Provider = getEnv("NARRATIVE_PROVIDER", c.Narrative.Provider)
	c.Narrative.Model = getEnv("NARRATIVE_MODEL", c.Narrative.Model)
	c.Narrative.Temperature = getEnvAsFloat32("NARRATIVE_TEMPERATURE", c.Narrative.Temperature)
	c.Narrative.Timeout.Duration = getEnvAsDuration("NARRATIVE_TIMEOUT", c.Narrative.Timeout.Duration)
	switch c.Narrative.Provider {
	case "gemini":
		c.Narrative.APIKey = getEnv("GEMINI_API_KEY", c.Narrative.APIKey)
	case "openai":
		c.Narrative.APIKey = getEnv("OPENAI_API_KEY", c.Narrative.APIKey)
	}

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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks struct constraints plus the rules that span sections.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return NewAppError(CodeConfig, "invalid configuration", fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}
	if c.Narrative.Provider != "none" && c.Narrative.APIKey == "" {
		return NewAppError(CodeConfig, "narrative provider "+c.Narrative.Provider+" requires an API key", ErrInvalidInput)
	}
	return nil
}
