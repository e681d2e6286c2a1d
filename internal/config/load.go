package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads a Config from path (YAML or JSON, selected by extension),
// overlays FAB_-prefixed environment variables, and returns a validated
// Config. Used by cmd/cli's run/validate subcommands.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		ext = "yaml"
	}
	v.SetConfigType(ext)

	v.SetEnvPrefix("FAB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config: reading %q: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %q: %w", path, err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grant_strategy", "FIFO")
	v.SetDefault("curve_pre_brake_check_interval", int64(-1))
	v.SetDefault("request_distance_from_merging_str", -1.0)
	v.SetDefault("request_distance_from_merging_curve", -1.0)
}
