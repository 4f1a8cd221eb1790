// Package config handles CLI configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level static configuration. Maps to the `strix:` root
// key in YAML; env vars use the STRIX_ prefix (e.g. STRIX_LOG_LEVEL).
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Dissect DissectConfig `mapstructure:"dissect"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string        `mapstructure:"level"`  // debug | info | warn | error
	Format  string        `mapstructure:"format"` // json | text
	Outputs OutputsConfig `mapstructure:"outputs"`
}

// OutputsConfig lists log outputs beyond the always-on stdout.
type OutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures the rotated file output.
type FileOutputConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// DissectConfig contains packet dissection limits.
type DissectConfig struct {
	MaxPackets int `mapstructure:"max_packets"` // 0 = unlimited
	SnapLen    int `mapstructure:"snap_len"`    // truncate frames before dissection, 0 = off
}

type configRoot struct {
	Strix Config `mapstructure:"strix"`
}

// Load reads configuration from path, or defaults only when path is empty.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// key "strix.log.level" maps to env "STRIX_LOG_LEVEL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Strix

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("strix.log.level", "info")
	v.SetDefault("strix.log.format", "text")
	v.SetDefault("strix.log.outputs.file.enabled", false)
	v.SetDefault("strix.log.outputs.file.path", "/var/log/strix/strix.log")
	v.SetDefault("strix.log.outputs.file.max_size_mb", 100)
	v.SetDefault("strix.log.outputs.file.max_age_days", 30)
	v.SetDefault("strix.log.outputs.file.max_backups", 5)
	v.SetDefault("strix.log.outputs.file.compress", true)

	v.SetDefault("strix.metrics.enabled", false)
	v.SetDefault("strix.metrics.listen", ":9091")
	v.SetDefault("strix.metrics.path", "/metrics")

	v.SetDefault("strix.dissect.max_packets", 0)
	v.SetDefault("strix.dissect.snap_len", 0)
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %s (must be json or text)", c.Log.Format)
	}
	if c.Dissect.SnapLen < 0 {
		return fmt.Errorf("snap_len must be >= 0")
	}
	if c.Dissect.MaxPackets < 0 {
		return fmt.Errorf("max_packets must be >= 0")
	}
	return nil
}
