package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kadirbelkuyu/dbsaver/internal/retention"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Address   string `yaml:"address"`
	AuthToken string `yaml:"auth_token"`
}

type StoreConfig struct {
	Driver   string `yaml:"driver"`
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type SnapshotsConfig struct {
	Root string `yaml:"root"`
}

type DumpConfig struct {
	Mongodump string        `yaml:"mongodump"`
	PgDump    string        `yaml:"pg_dump"`
	Timeout   time.Duration `yaml:"timeout"`
}

type ProbeConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type SchedulerConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Workers  int           `yaml:"workers"`
}

type RetentionConfig struct {
	BeyondYear string `yaml:"beyond_year"`
}

type DatabasesConfig struct {
	CascadeDelete *bool `yaml:"cascade_delete"`
}

type LogConfig struct {
	Verbose bool `yaml:"verbose"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	Dump      DumpConfig      `yaml:"dump"`
	Probe     ProbeConfig     `yaml:"probe"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Retention RetentionConfig `yaml:"retention"`
	Databases DatabasesConfig `yaml:"databases"`
	Log       LogConfig       `yaml:"log"`
}

// LoadConfig reads the YAML file at configPath and fills in defaults.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns a configuration populated only with defaults.
func Default() *Config {
	var config Config
	config.ApplyDefaults()
	return &config
}

// ApplyDefaults fills zero values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8000"
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = "mongo"
	}
	if c.Store.URI == "" {
		c.Store.URI = "mongodb://localhost:27017"
	}
	if c.Store.Database == "" {
		c.Store.Database = "dbsaver"
	}

	if c.Snapshots.Root == "" {
		c.Snapshots.Root = "db_saves"
	}

	if c.Dump.Mongodump == "" {
		c.Dump.Mongodump = "mongodump"
	}
	if c.Dump.PgDump == "" {
		c.Dump.PgDump = "pg_dump"
	}
	if c.Dump.Timeout <= 0 {
		c.Dump.Timeout = 2 * time.Hour
	}

	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = 10 * time.Second
	}

	if c.Scheduler.Enabled == nil {
		enabled := true
		c.Scheduler.Enabled = &enabled
	}
	if c.Scheduler.Interval <= 0 {
		c.Scheduler.Interval = 24 * time.Hour
	}
	if c.Scheduler.Workers <= 0 {
		c.Scheduler.Workers = 1
	}

	c.Retention.BeyondYear = strings.ToLower(strings.TrimSpace(c.Retention.BeyondYear))
	if c.Retention.BeyondYear == "" {
		c.Retention.BeyondYear = string(retention.BeyondYearMonthly)
	}

	if c.Databases.CascadeDelete == nil {
		cascade := true
		c.Databases.CascadeDelete = &cascade
	}
}

// Validate rejects unsupported enum values.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	if _, err := retention.ParseBeyondYear(c.Retention.BeyondYear); err != nil {
		return fmt.Errorf("invalid retention.beyond_year: %w", err)
	}

	return nil
}

// SchedulerEnabled reports whether the background scheduler should start.
func (c *Config) SchedulerEnabled() bool {
	return c.Scheduler.Enabled == nil || *c.Scheduler.Enabled
}

// CascadeDelete reports whether deleting a database removes its snapshots.
func (c *Config) CascadeDelete() bool {
	return c.Databases.CascadeDelete == nil || *c.Databases.CascadeDelete
}
