package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/idcard-reader/constants"
)

// AppName names the XDG config/data directories.
const AppName = "idcard-reader"

// ErrConfigNotFound is returned when an explicitly requested config file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config holds all application configuration
type Config struct {
	OCR      OCRConfig      `yaml:"ocr"`
	Remote   RemoteConfig   `yaml:"remote"`
	Image    ImageConfig    `yaml:"image"`
	Batch    BatchConfig    `yaml:"batch"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// OCRConfig holds local-engine and request defaults
type OCRConfig struct {
	TesseractPath string `yaml:"tesseract_path"` // empty -> PATH, then well-known locations
	TessdataDir   string `yaml:"tessdata_dir"`
	PSM           int    `yaml:"psm"` // 6 = uniform block of text
	OEM           int    `yaml:"oem"` // 3 = default (LSTM when available)
	LocalBackend  string `yaml:"local_backend"`
	Language      string `yaml:"language"`
	Mode          string `yaml:"mode"`
}

// RemoteConfig holds OCR.space configuration. APIKey has no default.
type RemoteConfig struct {
	APIKey         string        `yaml:"api_key"`
	URL            string        `yaml:"url"`
	EngineVariant  int           `yaml:"engine_variant"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// ImageConfig holds conditioning parameters
type ImageConfig struct {
	MaxDimension    int     `yaml:"max_dimension"`
	ClipLimit       float64 `yaml:"clahe_clip_limit"`
	TileGrid        int     `yaml:"clahe_tile_grid"`
	DenoiseStrength float64 `yaml:"denoise_strength"`
	TemplateWindow  int     `yaml:"denoise_template_window"`
	SearchWindow    int     `yaml:"denoise_search_window"`
	BlockSize       int     `yaml:"threshold_block_size"`
	ThresholdC      float64 `yaml:"threshold_c"`
}

// BatchConfig holds batch concurrency settings
type BatchConfig struct {
	Workers int `yaml:"workers"` // 0 -> min(4*GOMAXPROCS, 32)
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // sqlite | postgres
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | text
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			PSM:          6,
			OEM:          3,
			LocalBackend: constants.LocalBackendCLI,
			Language:     string(constants.DefaultLanguage),
			Mode:         string(constants.EngineModeAuto),
		},
		Remote: RemoteConfig{
			URL:            "https://api.ocr.space/parse/image",
			EngineVariant:  2,
			Timeout:        30 * time.Second,
			MaxUploadBytes: 1 << 20,
		},
		Image: ImageConfig{
			MaxDimension:    2000,
			ClipLimit:       2.0,
			TileGrid:        8,
			DenoiseStrength: 10,
			TemplateWindow:  7,
			SearchWindow:    21,
			BlockSize:       11,
			ThresholdC:      2,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             filepath.Join(XDGDataDir(), "idcard.db"),
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig builds configuration from defaults, then the YAML file, then
// environment variables. path may be empty; IDCARD_CONFIG and the XDG config
// directory are consulted in that case and a missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("IDCARD_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = filepath.Join(XDGConfigDir(), "config.yaml")
	}
	if err := cfg.loadFile(path); err != nil {
		if !errors.Is(err, ErrConfigNotFound) || explicit {
			return nil, NewAppError("CONFIG_ERROR", "load "+path, errors.Join(ErrConfig, err))
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // config path is user-provided on purpose
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	c.OCR.TesseractPath = getEnv("TESSERACT_PATH", c.OCR.TesseractPath)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.PSM = getEnvAsInt("OCR_PSM", c.OCR.PSM)
	c.OCR.OEM = getEnvAsInt("OCR_OEM", c.OCR.OEM)
	c.OCR.LocalBackend = getEnv("OCR_LOCAL_BACKEND", c.OCR.LocalBackend)
	c.OCR.Language = getEnv("OCR_LANGUAGE", c.OCR.Language)
	c.OCR.Mode = getEnv("OCR_ENGINE_MODE", c.OCR.Mode)

	c.Remote.APIKey = getEnv("OCR_SPACE_API_KEY", c.Remote.APIKey)
	c.Remote.URL = getEnv("OCR_SPACE_URL", c.Remote.URL)
	c.Remote.EngineVariant = getEnvAsInt("OCR_SPACE_ENGINE", c.Remote.EngineVariant)
	c.Remote.Timeout = getEnvAsDuration("OCR_REMOTE_TIMEOUT", c.Remote.Timeout)
	c.Remote.MaxUploadBytes = getEnvAsInt64("OCR_MAX_UPLOAD_BYTES", c.Remote.MaxUploadBytes)

	c.Image.MaxDimension = getEnvAsInt("IMAGE_MAX_DIMENSION", c.Image.MaxDimension)
	c.Image.ClipLimit = getEnvAsFloat64("CLAHE_CLIP_LIMIT", c.Image.ClipLimit)
	c.Image.DenoiseStrength = getEnvAsFloat64("DENOISE_STRENGTH", c.Image.DenoiseStrength)

	c.Batch.Workers = getEnvAsInt("BATCH_WORKERS", c.Batch.Workers)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)

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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if _, err := constants.ParseLanguage(c.OCR.Language); err != nil {
		return configError(err.Error())
	}
	if _, err := constants.ParseEngineMode(c.OCR.Mode); err != nil {
		return configError(err.Error())
	}
	switch c.OCR.LocalBackend {
	case constants.LocalBackendCLI, constants.LocalBackendGosseract:
	default:
		return configError(fmt.Sprintf("OCR_LOCAL_BACKEND must be %q or %q", constants.LocalBackendCLI, constants.LocalBackendGosseract))
	}
	if c.Remote.Timeout <= 0 {
		return configError("OCR_REMOTE_TIMEOUT must be positive")
	}
	if c.Remote.MaxUploadBytes <= 0 {
		return configError("OCR_MAX_UPLOAD_BYTES must be positive")
	}
	if c.Image.MaxDimension <= 0 {
		return configError("IMAGE_MAX_DIMENSION must be positive")
	}
	if c.Image.BlockSize < 3 || c.Image.BlockSize%2 == 0 {
		return configError("threshold block size must be odd and >= 3")
	}
	if c.Batch.Workers < 0 {
		return configError("BATCH_WORKERS must be non-negative")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return configError("DB_DRIVER must be sqlite or postgres")
	}
	return nil
}

// ValidateFor checks the settings a given engine mode depends on. Remote-only
// mode requires a credential; auto mode runs without one and falls back to
// the local engine alone.
func (c *Config) ValidateFor(mode constants.EngineMode) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if mode == constants.EngineModeRemote && c.Remote.APIKey == "" {
		return configError("OCR_SPACE_API_KEY is required for remote mode")
	}
	return nil
}

// Mode returns the parsed default engine mode.
func (c *Config) Mode() constants.EngineMode {
	m, err := constants.ParseEngineMode(c.OCR.Mode)
	if err != nil {
		return constants.EngineModeAuto
	}
	return m
}

// Language returns the parsed default language.
func (c *Config) Language() constants.Language {
	l, err := constants.ParseLanguage(c.OCR.Language)
	if err != nil {
		return constants.DefaultLanguage
	}
	return l
}

func configError(msg string) error {
	return NewAppError("CONFIG_ERROR", msg, ErrConfig)
}

// XDGDataDir returns the data directory (default sqlite location).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the directory searched for config.yaml.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}
