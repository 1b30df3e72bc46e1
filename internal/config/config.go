// Package config loads protoscope settings from an optional YAML file and
// PROTOSCOPE_* environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"protoscope/internal/log"
)

// Config is the root configuration.
type Config struct {
	Log     log.Config    `mapstructure:"log"`
	Capture CaptureConfig `mapstructure:"capture"`
	Serve   ServeConfig   `mapstructure:"serve"`
	Output  OutputConfig  `mapstructure:"output"`
}

// CaptureConfig drives live captures.
type CaptureConfig struct {
	Interface   string        `mapstructure:"interface"`
	BPFFilter   string        `mapstructure:"bpf_filter"`
	SnapLen     int           `mapstructure:"snap_len"`
	Promiscuous bool          `mapstructure:"promiscuous"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ServeConfig drives the websocket server.
type ServeConfig struct {
	Addr          string `mapstructure:"addr"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"`
}

// OutputConfig drives the text output of the decode and capture commands.
type OutputConfig struct {
	HexDump bool `mapstructure:"hex_dump"`
	Count   int  `mapstructure:"count"` // 0 means unlimited
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.filename", "protoscope.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_backups", 3)
	v.SetDefault("log.file.max_age", 7)
	v.SetDefault("log.file.compress", false)
	// Every key needs a default for AutomaticEnv to reach it on Unmarshal.
	v.SetDefault("capture.interface", "")
	v.SetDefault("capture.bpf_filter", "")
	v.SetDefault("capture.snap_len", 65535)
	v.SetDefault("capture.promiscuous", true)
	v.SetDefault("capture.timeout", 100*time.Millisecond)
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.max_upload_size", 100<<20)
	v.SetDefault("output.hex_dump", false)
	v.SetDefault("output.count", 0)
}

// Load reads path when it is non-empty, then applies environment
// overrides (PROTOSCOPE_CAPTURE_INTERFACE and so on) over defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PROTOSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		ext := filepath.Ext(path)
		v.SetConfigFile(path)
		v.SetConfigType(strings.TrimPrefix(ext, "."))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot.
func (c *Config) Validate() error {
	if c.Capture.SnapLen <= 0 || c.Capture.SnapLen > 262144 {
		return fmt.Errorf("capture.snap_len %d out of range (1..262144)", c.Capture.SnapLen)
	}
	if c.Output.Count < 0 {
		return fmt.Errorf("output.count must not be negative")
	}
	if c.Serve.MaxUploadSize <= 0 {
		return fmt.Errorf("serve.max_upload_size must be positive")
	}
	return nil
}
