package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joe/dropsentry/internal/report"
	"github.com/joe/dropsentry/pkg/entry"
)

// Exported constants.
const (
	NativeCollector = "-"
)

// File is the YAML configuration file. Flags override every field.
type File struct {
	Collector   string        `yaml:"collector"`
	Interval    time.Duration `yaml:"interval"`
	QueueSize   int           `yaml:"queue_size"`
	PageSize    int           `yaml:"page_size"`
	MaxDepth    int           `yaml:"max_depth"`
	MaxRecords  int           `yaml:"max_records"`
	Exclude     []string      `yaml:"exclude"`
	MetricsAddr string        `yaml:"metrics_addr"`
	Database    string        `yaml:"database"`
	Listen      string        `yaml:"listen"`
	Log         LogFile       `yaml:"log"`
	S3          S3File        `yaml:"s3"`
}

// LogFile is the logging section of the configuration file.
type LogFile struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// S3File is the S3 section of the configuration file.
type S3File struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// DefaultFile returns the configuration used when no file exists.
func DefaultFile() *File {
	return &File{
		Collector: NativeCollector,
		Interval:  report.DefaultInterval,
		QueueSize: report.DefaultQueueSize,
		PageSize:  entry.DefaultPageSize,
		Exclude:   []string{},
		Database:  "dropsentry.db",
		Log: LogFile{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "dropsentry.yaml"
	}

	return filepath.Join(dir, "dropsentry", "config.yaml")
}

// LoadFile reads the YAML file at path on top of the defaults. A missing file
// yields the defaults.
func LoadFile(path string) (*File, error) {
	cfg := DefaultFile()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if cfg.Exclude == nil {
		cfg.Exclude = []string{}
	}

	return cfg, nil
}
