// Package log configures the process-wide logrus logger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects level, output format and an optional rotating file.
type Config struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"` // text or json
	File   FileConfig `mapstructure:"file"`
}

// FileConfig enables a lumberjack-rotated log file next to stderr.
type FileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// Init applies cfg to logger. A nil logger means the logrus standard logger.
func Init(logger *logrus.Logger, cfg Config) error {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("log format %q: want text or json", cfg.Format)
	}

	var out io.Writer = os.Stderr
	if cfg.File.Enabled {
		if cfg.File.Filename == "" {
			return fmt.Errorf("log file enabled without filename")
		}
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		})
	}
	logger.SetOutput(out)
	return nil
}
