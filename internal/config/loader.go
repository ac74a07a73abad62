package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering, low to high:
//  1. Defaults()
//  2. YAML file at path (skipped when path is empty or missing)
//  3. environment variables with prefix HUB_ (HUB_HTTP_ADDR -> http_addr)
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider("HUB_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "HUB_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := *Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.RearmMs < 0 {
		return nil, fmt.Errorf("rearm_ms must not be negative: %d", cfg.RearmMs)
	}
	if len(cfg.SensorPins) == 0 {
		return nil, fmt.Errorf("sensor_pins must not be empty")
	}
	return &cfg, nil
}
