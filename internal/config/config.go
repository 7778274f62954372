// Package config loads formfill settings from defaults, an optional config
// file and FORMFILL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. FORMFILL_FILLER_SPEED
const EnvPrefix = "FORMFILL"

// Config is the root configuration
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Filler   FillerConfig   `mapstructure:"filler"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
}

// LoggerConfig configures the zap logger and its optional rotated file sink
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// BrowserConfig configures the headless browser
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	Width             int           `mapstructure:"width"`
	Height            int           `mapstructure:"height"`
	Bin               string        `mapstructure:"bin"`
	ProfileDir        string        `mapstructure:"profile_dir"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	IdleWindow        time.Duration `mapstructure:"idle_window"`
	SPAWait           time.Duration `mapstructure:"spa_wait"`
}

// AnalyzerConfig tunes discovery
type AnalyzerConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// FillerConfig tunes fill runs
type FillerConfig struct {
	// Speed is the base step pause in milliseconds
	Speed         int           `mapstructure:"speed"`
	SubmitHold    time.Duration `mapstructure:"submit_hold"`
	SettleTimeout time.Duration `mapstructure:"settle_timeout"`
}

// SpeedDuration returns Speed as a duration
func (f FillerConfig) SpeedDuration() time.Duration {
	return time.Duration(f.Speed) * time.Millisecond
}

// DatabaseConfig points at PostgreSQL
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// AIConfig selects the value generation provider
type AIConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formfill")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.width", 1280)
	v.SetDefault("browser.height", 720)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.profile_dir", "")
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.idle_timeout", "5s")
	v.SetDefault("browser.idle_window", "500ms")
	v.SetDefault("browser.spa_wait", "5s")

	// -- Analyzer --
	v.SetDefault("analyzer.settle_delay", "2s")

	// -- Filler --
	v.SetDefault("filler.speed", 500)
	v.SetDefault("filler.submit_hold", "3s")
	v.SetDefault("filler.settle_timeout", "10s")

	// -- Database --
	v.SetDefault("database.dsn", "")

	// -- Server --
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	// -- AI --
	v.SetDefault("ai.provider", "local")
	v.SetDefault("ai.model", "")
}

// NewDefaultConfig returns the configuration built from defaults alone
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration into v. An empty path searches for config.yaml
// in the working directory; a missing file there is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values
func (c *Config) Validate() error {
	if c.Filler.Speed < 0 {
		return fmt.Errorf("filler.speed must not be negative")
	}
	if c.Browser.Width <= 0 || c.Browser.Height <= 0 {
		return fmt.Errorf("browser.width and browser.height must be positive")
	}
	switch c.AI.Provider {
	case "local", "claude", "anthropic", "openai", "gpt":
	default:
		return fmt.Errorf("ai.provider %q is not supported", c.AI.Provider)
	}
	return nil
}
