package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/scienceol/recovery/internal/duration"
	"github.com/scienceol/recovery/internal/recovery"
)

type Config struct {
	URL         string             `yaml:"url"`
	LogLevel    string             `yaml:"log_level"`
	MetricsAddr string             `yaml:"metrics_addr"`
	Recovery    recovery.Overrides `yaml:"recovery"`
}

// Flags are the command line values. Empty strings and nil pointers mean
// "not given".
type Flags struct {
	ConfigPath     string
	URL            string
	LogLevel       string
	MetricsAddr    string
	MinDelay       string
	MaxDelay       string
	AttemptTimeout string
	Factor         *float64
	MaxRetries     *int
}

// Settings resolves the recovery settings this configuration describes.
func (c *Config) Settings() recovery.Config {
	return c.Recovery.Apply(recovery.DefaultConfig())
}

// Load resolves configuration from flags > env > config file.
func Load(f Flags) (*Config, error) {
	cfg := &Config{}

	// 1. Config file as base
	path := f.ConfigPath
	if path == "" {
		path = configFilePath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && (f.ConfigPath != "" || !os.IsNotExist(err)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		}
	}

	// 2. Environment variables override config file
	if v := os.Getenv("RECOVERY_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("RECOVERY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RECOVERY_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	env, err := overrides(
		os.Getenv("RECOVERY_MIN_DELAY"),
		os.Getenv("RECOVERY_MAX_DELAY"),
		os.Getenv("RECOVERY_ATTEMPT_TIMEOUT"),
		os.Getenv("RECOVERY_FACTOR"),
		os.Getenv("RECOVERY_MAX_RETRIES"),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	cfg.Recovery = cfg.Recovery.Merge(env)

	// 3. CLI flags override everything
	if f.URL != "" {
		cfg.URL = f.URL
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.MetricsAddr != "" {
		cfg.MetricsAddr = f.MetricsAddr
	}
	flags, err := overrides(f.MinDelay, f.MaxDelay, f.AttemptTimeout, "", "")
	if err != nil {
		return nil, fmt.Errorf("invalid flag: %w", err)
	}
	flags.Factor = f.Factor
	flags.MaxRetries = f.MaxRetries
	cfg.Recovery = cfg.Recovery.Merge(flags)

	if err := cfg.Settings().Validate(); err != nil {
		return nil, fmt.Errorf("invalid recovery settings: %w", err)
	}

	return cfg, nil
}

func overrides(minDelay, maxDelay, timeout, factor, retries string) (recovery.Overrides, error) {
	var o recovery.Overrides
	var err error

	if o.MinDelay, err = parseDuration("min delay", minDelay); err != nil {
		return o, err
	}
	if o.MaxDelay, err = parseDuration("max delay", maxDelay); err != nil {
		return o, err
	}
	if o.AttemptTimeout, err = parseDuration("attempt timeout", timeout); err != nil {
		return o, err
	}
	if factor != "" {
		v, err := strconv.ParseFloat(factor, 64)
		if err != nil {
			return o, fmt.Errorf("factor: %w", err)
		}
		o.Factor = &v
	}
	if retries != "" {
		v, err := strconv.Atoi(retries)
		if err != nil {
			return o, fmt.Errorf("max retries: %w", err)
		}
		o.MaxRetries = &v
	}
	return o, nil
}

func parseDuration(name, s string) (*duration.Duration, error) {
	if s == "" {
		return nil, nil
	}
	d, err := duration.ParseString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return duration.Ptr(d), nil
}

func configFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".recovery", "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}
