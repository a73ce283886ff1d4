package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// MockAPIKey is the placeholder key that keeps the Google integrations in
// offline demo mode.
const MockAPIKey = "mock_key"

// Config represents the top-level mysettle.yml configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Session SessionConfig `yaml:"session"`
	Google  GoogleConfig  `yaml:"google"`
	Reports ReportsConfig `yaml:"reports"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	SSEKeepAlive    time.Duration `yaml:"sse_keepalive" env:"SSE_KEEPALIVE"`
}

// RedisConfig selects the Redis server and the key namespace
type RedisConfig struct {
	URL       string `yaml:"url" env:"REDIS_URL"`
	Namespace string `yaml:"namespace" env:"MYSETTLE_NAMESPACE"`
}

// SessionConfig tunes the pairing flow
type SessionConfig struct {
	OTPTTL      time.Duration `yaml:"otp_ttl" env:"OTP_TTL"`         // How long a join code resolves to its session
	JoinWindow  time.Duration `yaml:"join_window" env:"JOIN_WINDOW"` // How long after creation driver B may join
	MeetBaseURL string        `yaml:"meet_base_url" env:"MEET_BASE_URL"`
}

// GoogleConfig holds the Maps and Gemini credentials.
// The key MockAPIKey (or an empty key) selects the offline mock.
type GoogleConfig struct {
	MapsAPIKey   string `yaml:"maps_api_key" env:"GOOGLE_MAPS_API_KEY"`
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	GeminiModel  string `yaml:"gemini_model" env:"GEMINI_MODEL"`
}

// ReportsConfig controls where generated PDF documents are written
type ReportsConfig struct {
	OutputDir string `yaml:"output_dir" env:"REPORT_OUTPUT_DIR"`
}

// LoggingConfig selects the zap logger flavour
type LoggingConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
			SSEKeepAlive:    15 * time.Second,
		},
		Redis: RedisConfig{
			URL:       "redis://localhost:6379/0",
			Namespace: "default",
		},
		Session: SessionConfig{
			OTPTTL:      24 * time.Hour,
			JoinWindow:  30 * time.Minute,
			MeetBaseURL: "https://meet.google.com",
		},
		Google: GoogleConfig{
			MapsAPIKey:   MockAPIKey,
			GeminiAPIKey: MockAPIKey,
			GeminiModel:  "gemini-2.5-flash",
		},
		Reports: ReportsConfig{
			OutputDir: "generated_reports",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MapsMock reports whether the Static Maps integration runs offline.
func (g GoogleConfig) MapsMock() bool {
	return g.MapsAPIKey == "" || g.MapsAPIKey == MockAPIKey
}

// GeminiMock reports whether image verification runs offline.
func (g GoogleConfig) GeminiMock() bool {
	return g.GeminiAPIKey == "" || g.GeminiAPIKey == MockAPIKey
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must be >= 0")
	}

	if c.Server.SSEKeepAlive <= 0 {
		return fmt.Errorf("server.sse_keepalive must be positive")
	}

	if c.Redis.Namespace == "" {
		return fmt.Errorf("redis.namespace is required")
	}

	u, err := url.Parse(c.Redis.URL)
	if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		return fmt.Errorf("redis.url must be a redis:// or rediss:// URL, got %q", c.Redis.URL)
	}

	if c.Session.OTPTTL < 0 {
		return fmt.Errorf("session.otp_ttl must be >= 0 (0 = never expires)")
	}

	if c.Session.JoinWindow < 0 {
		return fmt.Errorf("session.join_window must be >= 0 (0 = unlimited)")
	}

	if c.Session.OTPTTL > 0 && c.Session.JoinWindow > c.Session.OTPTTL {
		return fmt.Errorf("session.join_window (%s) cannot exceed session.otp_ttl (%s)", c.Session.JoinWindow, c.Session.OTPTTL)
	}

	if _, err := url.ParseRequestURI(c.Session.MeetBaseURL); err != nil {
		return fmt.Errorf("session.meet_base_url is not a valid URL: %w", err)
	}

	if c.Reports.OutputDir == "" {
		return fmt.Errorf("reports.output_dir is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}

	return nil
}

// Load builds the configuration from defaults, then mysettle.yml at path
// (skipped when the file does not exist), then environment overrides.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// load is Load with an explicit environment; nil means the process environment.
func load(path string, environ map[string]string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults and environment only
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse YAML: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(config, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}
