// Package config loads client settings with layered precedence: built-in
// defaults, then an optional YAML file, then EMBERCHAT_* environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// GatewayURL is the websocket endpoint of the managed backend.
	GatewayURL string `koanf:"gateway_url"`
	// Profile names the local config/cache directory.
	Profile string `koanf:"profile"`
	// CountryCode is prefixed to national phone numbers.
	CountryCode string `koanf:"country_code"`
	// Local runs against the in-memory backend instead of the gateway.
	Local bool `koanf:"local"`
	// LogLevel is a zerolog level name; empty disables logging.
	LogLevel string `koanf:"log_level"`
	// TypingIdle is how long after the last keystroke typing status drops.
	TypingIdle time.Duration `koanf:"typing_idle"`
	// WindowSize caps how many recent messages stay visible.
	WindowSize int `koanf:"window_size"`
}

func defaults() Config {
	return Config{
		GatewayURL:  "wss://localhost:8443/v1",
		Profile:     "default",
		CountryCode: "92",
		LogLevel:    "",
		TypingIdle:  2500 * time.Millisecond,
		WindowSize:  100,
	}
}

// Load builds the config. path may be empty to skip the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// EMBERCHAT_GATEWAY_URL -> gateway_url
	envProvider := env.Provider("EMBERCHAT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "EMBERCHAT_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !c.Local && c.GatewayURL == "" {
		return fmt.Errorf("gateway_url is required unless local mode is on")
	}
	if c.Profile == "" {
		return fmt.Errorf("profile must not be empty")
	}
	if c.TypingIdle <= 0 {
		return fmt.Errorf("typing_idle must be positive")
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive")
	}
	return nil
}
