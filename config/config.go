// Package config loads the adapter configuration from a YAML or JSON file
// with optional environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/evsync/api/admin"
	"github.com/kilianp07/evsync/core/metrics"
	"github.com/kilianp07/evsync/core/syncengine"
	"github.com/kilianp07/evsync/infra/journal"
	"github.com/kilianp07/evsync/infra/mqtt"
	"github.com/kilianp07/evsync/infra/ochp"
)

// EnvPrefix marks environment overrides. Nested keys are separated by a
// double underscore, e.g. EVSYNC_SYNC__STATUS_FLUSH_EVERY=5s.
const EnvPrefix = "EVSYNC_"

type Config struct {
	Sync    syncengine.Config `json:"sync"`
	Remote  ochp.Config       `json:"remote"`
	MQTT    mqtt.Config       `json:"mqtt"`
	Metrics metrics.Config    `json:"metrics"`
	Logging LoggingConfig     `json:"logging"`
	Sentry  SentryConfig      `json:"sentry"`
	API     admin.Config      `json:"api"`
	Journal journal.Config    `json:"journal"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			TagName:          "json",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// SetDefaults completes every section.
func (c *Config) SetDefaults() {
	c.Sync.SetDefaults()
	c.Remote.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
	c.Logging.SetDefaults()
	c.Sentry.SetDefaults()
	c.Journal.SetDefaults()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	return errors.Join(
		c.Sync.Validate(),
		c.Remote.Validate(),
		c.MQTT.Validate(),
		c.Logging.Validate(),
		c.Sentry.Validate(),
		c.API.Validate(),
		c.Journal.Validate(),
	)
}
