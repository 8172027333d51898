package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// StorageConfig holds storage-root configurations.
type StorageConfig struct {
	// Roots are the configured storage directories. Each root owns a data/
	// tree for tablets and a snapshot/ tree for staged snapshots.
	Roots []string `yaml:"roots"`
	// MinFreeSpaceBytes rejects snapshot creation when the target root has
	// less free space than this. Zero disables the check.
	MinFreeSpaceBytes uint64 `yaml:"min_free_space_bytes"`
}

// TabletConfig holds tablet and rowset defaults.
type TabletConfig struct {
	Compression       string  `yaml:"compression"`
	BloomFilterFPRate float64 `yaml:"bloom_filter_fp_rate"`
}

// LoggingConfig holds logging configurations.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Output string `yaml:"output"` // "stdout", "stderr", "none", or a file path
}

// Config is the root configuration object.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Tablet  TabletConfig  `yaml:"tablet"`
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns a config with sane defaults for a single local root.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Roots: []string{"./olap_data"},
		},
		Tablet: TabletConfig{
			Compression:       "snappy",
			BloomFilterFPRate: 0.05,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
	}
}

// Load parses a YAML config from r on top of the defaults.
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if err == io.EOF {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a config file. A missing file yields defaults.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if len(c.Storage.Roots) == 0 {
		return fmt.Errorf("storage.roots must list at least one directory")
	}
	seen := make(map[string]struct{}, len(c.Storage.Roots))
	for _, root := range c.Storage.Roots {
		if root == "" {
			return fmt.Errorf("storage.roots must not contain empty paths")
		}
		if _, dup := seen[root]; dup {
			return fmt.Errorf("storage.roots contains duplicate path %q", root)
		}
		seen[root] = struct{}{}
	}
	if c.Tablet.BloomFilterFPRate <= 0 || c.Tablet.BloomFilterFPRate >= 1 {
		return fmt.Errorf("tablet.bloom_filter_fp_rate must be in (0, 1), got %v", c.Tablet.BloomFilterFPRate)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	return nil
}

// SlogLevel maps the configured level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
