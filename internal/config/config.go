// Package config loads simpleq CLI settings from a YAML file, SIMPLEQ_*
// environment variables and command-line flags, and watches the file for
// live changes.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Swind/go-simpleq/core"
	"github.com/creasty/defaults"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full CLI configuration.
type Config struct {
	Name        string  `mapstructure:"name" default:"simpleq"`
	Concurrency int     `mapstructure:"concurrency" default:"4"`
	Paused      bool    `mapstructure:"paused"`
	Jobs        string  `mapstructure:"jobs"`
	Shell       string  `mapstructure:"shell" default:"/bin/sh"`
	FailFast    bool    `mapstructure:"fail_fast"`
	RatePerSec  float64 `mapstructure:"rate_per_sec"`
	Burst       int     `mapstructure:"burst" default:"1"`
	MetricsAddr string  `mapstructure:"metrics_addr"`
	AdminAddr   string  `mapstructure:"admin_addr"`

	Log       LogConfig  `mapstructure:"log"`
	Schedules []Schedule `mapstructure:"schedules"`
}

// LogConfig selects the logging backend.
type LogConfig struct {
	Level   string `mapstructure:"level" default:"info"`
	Backend string `mapstructure:"backend" default:"zap"`
	Format  string `mapstructure:"format" default:"console"`
}

// Schedule pushes the named job every time Spec fires.
type Schedule struct {
	Spec string `mapstructure:"spec"`
	Job  string `mapstructure:"job"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"name":         "name",
	"concurrency":  "concurrency",
	"paused":       "paused",
	"jobs":         "jobs",
	"shell":        "shell",
	"fail-fast":    "fail_fast",
	"rate":         "rate_per_sec",
	"burst":        "burst",
	"metrics-addr": "metrics_addr",
	"admin-addr":   "admin_addr",
	"log-level":    "log.level",
	"log-backend":  "log.backend",
	"log-format":   "log.format",
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("name", "", "queue name used in logs and metrics")
	fs.IntP("concurrency", "c", 0, "maximum number of jobs running at once")
	fs.Bool("paused", false, "start with dispatch paused")
	fs.StringP("jobs", "j", "", "YAML job file, or - to read one shell command per line from stdin")
	fs.String("shell", "", "shell used to run command lines")
	fs.Bool("fail-fast", false, "discard pending jobs after the first failure")
	fs.Float64("rate", 0, "maximum job starts per second (0 disables)")
	fs.Int("burst", 0, "rate limiter burst size")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	fs.String("admin-addr", "", "serve the admin API on this address")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("log-backend", "", "zap or zerolog")
	fs.String("log-format", "", "console or json")
}

// Load reads configuration. Precedence from low to high: struct defaults,
// the file at path (if any), SIMPLEQ_* environment variables, flags that
// were set explicitly on fs.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SIMPLEQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range flagKeys {
		// AutomaticEnv only applies to keys viper already knows about.
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if fs != nil {
		var bindErr error
		fs.Visit(func(f *pflag.Flag) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("config: bind flags: %w", bindErr)
		}
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("config: concurrency %d: %w", c.Concurrency, core.ErrInvalidConcurrency))
	}
	if c.RatePerSec < 0 {
		errs = append(errs, fmt.Errorf("config: rate_per_sec must not be negative, got %v", c.RatePerSec))
	}
	if c.RatePerSec > 0 && c.Burst < 1 {
		errs = append(errs, fmt.Errorf("config: burst must be at least 1 when rate_per_sec is set, got %d", c.Burst))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log level %q", c.Log.Level))
	}
	switch c.Log.Backend {
	case "zap", "zerolog":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log backend %q", c.Log.Backend))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log format %q", c.Log.Format))
	}
	for i, s := range c.Schedules {
		if s.Spec == "" || s.Job == "" {
			errs = append(errs, fmt.Errorf("config: schedules[%d] needs both spec and job", i))
		}
	}
	return errors.Join(errs...)
}
