package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// SettingsEnv names the variable pointing at an optional settings file
const SettingsEnv = "CONDUIT_SETTINGS"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Worker    WorkerConfig
}

// ServerConfig holds HTTP host configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"9501"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	DocumentRoot    string        `envconfig:"DOCUMENT_ROOT" default:"html"`
	StaticPrefix    string        `envconfig:"STATIC_PREFIX" default:"/dist"`
	EnableStatic    bool          `envconfig:"ENABLE_STATIC" default:"true"`
	Gzip            bool          `envconfig:"GZIP" default:"false"`
	MetricsPath     string        `envconfig:"METRICS_PATH" default:"/metrics"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	MaxHeaderBytes  int           `envconfig:"MAX_HEADER_BYTES" default:"1048576"`
}

// AppConfig holds framework behaviour switches.
type AppConfig struct {
	Name   string `envconfig:"APP_NAME" default:"conduit"`
	URL    string `envconfig:"APP_URL" default:"http://localhost:9501"`
	Debug  bool   `envconfig:"APP_DEBUG" default:"false"`
	Strict bool   `envconfig:"APP_STRICT" default:"false"`
	Views  string `envconfig:"APP_VIEWS" default:"resources/views"`
	Token  string `envconfig:"APP_TOKEN"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds the defaults of the throttle middleware.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// CORSConfig holds cross-origin configuration.
type CORSConfig struct {
	Enabled bool     `envconfig:"CORS_ENABLED" default:"false"`
	Origins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// WorkerConfig holds background job configuration.
type WorkerConfig struct {
	StoragePath string `envconfig:"WORKER_STORAGE_PATH" default:"storage/jobs"`
	Schedule    string `envconfig:"WORKER_SPOOL_SCHEDULE" default:"@every 10s"`
}

// Load reads dotenv files, then the environment, then the settings file
// named by CONDUIT_SETTINGS. Missing dotenv files are skipped; with no
// files given ".env" is tried.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path := os.Getenv(SettingsEnv); path != "" {
		if err := ApplySettingsFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration or returns the defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "9501",
			Host:            "0.0.0.0",
			DocumentRoot:    "html",
			StaticPrefix:    "/dist",
			EnableStatic:    true,
			MetricsPath:     "/metrics",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxHeaderBytes:  1 << 20,
		},
		App: AppConfig{
			Name:  "conduit",
			URL:   "http://localhost:9501",
			Views: "resources/views",
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		CORS: CORSConfig{
			Origins: []string{"*"},
		},
		Worker: WorkerConfig{
			StoragePath: "storage/jobs",
			Schedule:    "@every 10s",
		},
	}
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
