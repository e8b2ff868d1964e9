package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all the settings for clipforge.
type Config struct {
	FFmpegPath     string `mapstructure:"ffmpeg_path"`
	FFprobePath    string `mapstructure:"ffprobe_path"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	TempDir        string `mapstructure:"temp_dir"`
	ListenAddr     string `mapstructure:"listen_addr"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`

	FetchRetryMax       int `mapstructure:"fetch_retry_max"`
	FetchRetryWaitMinMS int `mapstructure:"fetch_retry_wait_min_ms"`
	FetchRetryWaitMaxMS int `mapstructure:"fetch_retry_wait_max_ms"`
}

// Timeout is the per-run ffmpeg limit; zero means none.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig merges defaults, an optional YAML file, .env, CLIPFORGE_*
// environment variables and command-line flags, lowest to highest priority.
// flags may be nil.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set Defaults
	v.SetDefault("ffmpeg_path", "")
	v.SetDefault("ffprobe_path", "")
	v.SetDefault("timeout_seconds", 0)
	v.SetDefault("temp_dir", "")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("fetch_retry_max", 3)
	v.SetDefault("fetch_retry_wait_min_ms", 1000)
	v.SetDefault("fetch_retry_wait_max_ms", 5000)

	// 2. Read from File. A missing file is fine, a broken one is not.
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	// 3. .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v.SetEnvPrefix("CLIPFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// 4. Flags win. --timeout-seconds binds to timeout_seconds.
	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr == nil {
				bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("timeout_seconds must not be negative, got %d", cfg.TimeoutSeconds)
	}
	return &cfg, nil
}
