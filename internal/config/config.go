package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thyrook/boardsight/internal/logger"
	"github.com/thyrook/boardsight/internal/model"
	"github.com/thyrook/boardsight/internal/report"
	"github.com/thyrook/boardsight/internal/vision"
)

// Environment variables that override file settings
const (
	EnvModelPath = "BOARDSIGHT_MODEL"
	EnvHistoryDB = "BOARDSIGHT_HISTORY_DB"
	EnvLogLevel  = "BOARDSIGHT_LOG_LEVEL"
)

// Config represents the application configuration
type Config struct {
	Model   ModelConfig   `json:"model" yaml:"model"`
	Dataset DatasetConfig `json:"dataset" yaml:"dataset"`
	History HistoryConfig `json:"history" yaml:"history"`
	Vision  vision.Config `json:"vision" yaml:"vision"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ModelConfig contains classifier settings
type ModelConfig struct {
	Path      string `json:"path" yaml:"path"`
	BatchSize int    `json:"batch_size" yaml:"batch_size"`
}

// DatasetConfig controls directory runs
type DatasetConfig struct {
	Extension string `json:"extension" yaml:"extension"`
	FailFast  bool   `json:"fail_fast" yaml:"fail_fast"`
}

// HistoryConfig contains report history settings
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DBPath  string `json:"db_path" yaml:"db_path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
	Path  string `json:"path" yaml:"path"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Path:      "models/square_cnn.gob",
			BatchSize: model.DefaultBatchSize,
		},
		Dataset: DatasetConfig{
			Extension: report.DefaultExtension,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "data/history.db",
		},
		Vision: *vision.DefaultConfig(),
		Logging: LoggingConfig{
			Level: string(logger.LevelInfo),
		},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads and parses the configuration file. Files ending in .yaml or .yml
// are parsed as YAML, anything else as JSON. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to DefaultConfig otherwise
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvModelPath); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv(EnvHistoryDB); v != "" {
		c.History.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Save writes the configuration to a file, as YAML or JSON depending on the extension
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Model.Path == "" {
		return fmt.Errorf("model path is required")
	}
	if c.Model.BatchSize <= 0 {
		return fmt.Errorf("invalid batch size: %d", c.Model.BatchSize)
	}
	if !strings.HasPrefix(c.Dataset.Extension, ".") {
		return fmt.Errorf("invalid dataset extension %q: must start with '.'", c.Dataset.Extension)
	}
	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history db path is required when history is enabled")
	}
	switch logger.Level(strings.ToLower(c.Logging.Level)) {
	case logger.LevelDebug, logger.LevelInfo, logger.LevelWarn, logger.LevelError:
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if err := c.Vision.Validate(); err != nil {
		return fmt.Errorf("vision: %w", err)
	}
	return nil
}

// EnsureDirectories creates the parent directories of every configured output path
func (c *Config) EnsureDirectories() error {
	paths := []string{c.Logging.Path}
	if c.History.Enabled {
		paths = append(paths, c.History.DBPath)
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}
	return nil
}
