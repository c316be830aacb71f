// Package config manages rescene's on-disk configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig configures the activity logger.
type LogConfig struct {
	File       string `yaml:"file" mapstructure:"file"`
	Level      string `yaml:"level" mapstructure:"level"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// BatchConfig controls the batch command's fan-out.
type BatchConfig struct {
	MaxParallelOperations int `yaml:"max_parallel_operations" mapstructure:"max_parallel_operations"`
}

// Config is the top-level rescene configuration.
type Config struct {
	AppName string      `yaml:"app_name" mapstructure:"app_name"`
	Log     LogConfig   `yaml:"log" mapstructure:"log"`
	Batch   BatchConfig `yaml:"batch" mapstructure:"batch"`
}

// DeepCopy returns an independent copy of the configuration.
func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("app_name cannot be empty")
	}
	if c.Batch.MaxParallelOperations < 1 {
		return fmt.Errorf("batch.max_parallel_operations must be at least 1")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// DefaultConfig returns rescene's default configuration.
func DefaultConfig() *Config {
	return &Config{
		AppName: "rescene",
		Log: LogConfig{
			Level:      "info",
			MaxSize:    5,
			MaxAge:     14,
			MaxBackups: 5,
		},
		Batch: BatchConfig{
			MaxParallelOperations: 4,
		},
	}
}

// Manager owns the current configuration and protects it from concurrent access.
type Manager struct {
	mutex      sync.RWMutex
	current    *Config
	configFile string
}

// NewManager creates a Manager, loading configFile if it exists, falling back to defaults otherwise.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}

	cfg, err := LoadConfig(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	m.current = cfg
	return m, nil
}

// GetConfig returns a copy of the current configuration.
func (m *Manager) GetConfig() *Config {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current.DeepCopy()
}

// UpdateConfig validates and replaces the current configuration, then persists it to disk.
func (m *Manager) UpdateConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m.mutex.Lock()
	m.current = cfg.DeepCopy()
	configFile := m.configFile
	m.mutex.Unlock()

	if configFile == "" {
		return nil
	}
	return SaveToFile(cfg, configFile)
}

// LoadConfig reads and parses a YAML configuration file using viper, applying defaults for
// any field the file does not set.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	def := DefaultConfig()
	v.SetDefault("app_name", def.AppName)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.max_size", def.Log.MaxSize)
	v.SetDefault("log.max_age", def.Log.MaxAge)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("batch.max_parallel_operations", def.Batch.MaxParallelOperations)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", configFile, err)
	}

	return cfg, nil
}

// SaveToFile writes the configuration to path as YAML, creating parent directories as needed.
func SaveToFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}

	return nil
}

// GetConfigFilePath returns the path the manager loads from and saves to.
func (m *Manager) GetConfigFilePath() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.configFile
}
