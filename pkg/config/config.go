// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < .env/env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/logflow/procmine/pkg/errors"
)

// Config holds all procmine configuration.
type Config struct {
	Version int `yaml:"version"`

	Mining    MiningConfig    `yaml:"mining"`
	Columns   ColumnsConfig   `yaml:"columns"`
	Store     StoreConfig     `yaml:"store"`
	Results   ResultsConfig   `yaml:"results"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// MiningConfig controls discovery.
type MiningConfig struct {
	Algorithm                     string  `yaml:"algorithm"` // alpha | heuristic | frequency
	DependencyThreshold           float64 `yaml:"dependency_threshold"`
	PositiveObservationsThreshold float64 `yaml:"positive_observations_threshold"`
	FrequencyThreshold            float64 `yaml:"frequency_threshold"`
	Workers                       int     `yaml:"workers"` // batch concurrency, 0 = auto
}

// ColumnsConfig maps log columns to event fields.
type ColumnsConfig struct {
	CaseID          string `yaml:"case_id"`
	Activity        string `yaml:"activity"`
	Timestamp       string `yaml:"timestamp"`
	Resource        string `yaml:"resource"`
	TimestampFormat string `yaml:"timestamp_format"` // Go time layout
	Delimiter       string `yaml:"delimiter"`
}

// StoreConfig for the relational log store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // duckdb | sqlite
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// ResultsConfig selects where reports are persisted.
type ResultsConfig struct {
	Backend string        `yaml:"backend"` // none | local | redis | s3
	Dir     string        `yaml:"dir"`
	Redis   RedisConfig   `yaml:"redis"`
	S3      S3Config      `yaml:"s3"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig for the Redis results backend.
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	Database int           `yaml:"database"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// S3Config for the S3 results backend.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	procmineDir := filepath.Join(homeDir, ".procmine")

	return &Config{
		Version: 1,
		Mining: MiningConfig{
			Algorithm:                     "alpha",
			DependencyThreshold:           0.9,
			PositiveObservationsThreshold: 1.0,
			FrequencyThreshold:            0,
		},
		Columns: ColumnsConfig{
			CaseID:          "case_id",
			Activity:        "activity",
			Timestamp:       "timestamp",
			Resource:        "resource",
			TimestampFormat: "2006-01-02 15:04:05",
			Delimiter:       ",",
		},
		Store: StoreConfig{
			Driver: "duckdb",
			Table:  "events",
		},
		Results: ResultsConfig{
			Backend: "none",
			Dir:     filepath.Join(procmineDir, "reports"),
			Redis: RedisConfig{
				Address: "localhost:6379",
				Prefix:  "procmine:reports:",
				TTL:     7 * 24 * time.Hour,
			},
			S3: S3Config{
				Prefix: "procmine/reports/",
			},
			Timeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "procmine",
			SampleRatio: 1.0,
		},
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Mining.PositiveObservationsThreshold < 0 {
		return errors.New(errors.CodeInvalidConfig, "positive observations threshold must be >= 0").
			WithContext("value", c.Mining.PositiveObservationsThreshold)
	}
	if c.Mining.FrequencyThreshold < 0 {
		return errors.New(errors.CodeInvalidConfig, "frequency threshold must be >= 0").
			WithContext("value", c.Mining.FrequencyThreshold)
	}
	if c.Mining.Workers < 0 {
		return errors.New(errors.CodeInvalidConfig, "workers must be >= 0").
			WithContext("value", c.Mining.Workers)
	}
	switch c.Store.Driver {
	case "duckdb", "sqlite":
	default:
		return errors.New(errors.CodeInvalidConfig, "unsupported store driver").
			WithContext("driver", c.Store.Driver)
	}
	switch c.Results.Backend {
	case "", "none", "local", "redis", "s3":
	default:
		return errors.New(errors.CodeInvalidConfig, "unsupported results backend").
			WithContext("backend", c.Results.Backend)
	}
	if c.Results.Backend == "s3" && c.Results.S3.Bucket == "" {
		return errors.New(errors.CodeInvalidConfig, "s3 results backend requires a bucket")
	}
	if len(c.Columns.Delimiter) != 1 {
		return errors.New(errors.CodeInvalidConfig, "delimiter must be a single character").
			WithContext("delimiter", c.Columns.Delimiter)
	}
	return nil
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order. An explicit
// path, when given, is loaded last and must exist.
func (m *Manager) Load(explicit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return errors.Wrap(err, errors.CodeInvalidConfig, "failed to load config").
					WithContext("path", path)
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	if explicit != "" {
		if err := m.loadFile(explicit); err != nil {
			return errors.Wrap(err, errors.CodeInvalidConfig, "failed to load config").
				WithContext("path", explicit)
		}
		m.paths = append(m.paths, explicit)
	}

	// .env in the working directory is optional; real env vars win over it.
	_ = godotenv.Load()
	m.loadEnv()

	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/procmine/config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".procmine", "config.yaml"))
	}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".procmine.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}

	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	// Mining
	if src.Mining.Algorithm != "" {
		m.config.Mining.Algorithm = src.Mining.Algorithm
	}
	if src.Mining.DependencyThreshold != 0 {
		m.config.Mining.DependencyThreshold = src.Mining.DependencyThreshold
	}
	if src.Mining.PositiveObservationsThreshold != 0 {
		m.config.Mining.PositiveObservationsThreshold = src.Mining.PositiveObservationsThreshold
	}
	if src.Mining.FrequencyThreshold != 0 {
		m.config.Mining.FrequencyThreshold = src.Mining.FrequencyThreshold
	}
	if src.Mining.Workers != 0 {
		m.config.Mining.Workers = src.Mining.Workers
	}

	// Columns
	if src.Columns.CaseID != "" {
		m.config.Columns.CaseID = src.Columns.CaseID
	}
	if src.Columns.Activity != "" {
		m.config.Columns.Activity = src.Columns.Activity
	}
	if src.Columns.Timestamp != "" {
		m.config.Columns.Timestamp = src.Columns.Timestamp
	}
	if src.Columns.Resource != "" {
		m.config.Columns.Resource = src.Columns.Resource
	}
	if src.Columns.TimestampFormat != "" {
		m.config.Columns.TimestampFormat = src.Columns.TimestampFormat
	}
	if src.Columns.Delimiter != "" {
		m.config.Columns.Delimiter = src.Columns.Delimiter
	}

	// Store
	if src.Store.Driver != "" {
		m.config.Store.Driver = src.Store.Driver
	}
	if src.Store.DSN != "" {
		m.config.Store.DSN = src.Store.DSN
	}
	if src.Store.Table != "" {
		m.config.Store.Table = src.Store.Table
	}

	// Results
	if src.Results.Backend != "" {
		m.config.Results.Backend = src.Results.Backend
	}
	if src.Results.Dir != "" {
		m.config.Results.Dir = src.Results.Dir
	}
	if src.Results.Timeout != 0 {
		m.config.Results.Timeout = src.Results.Timeout
	}
	if src.Results.Redis.Address != "" {
		m.config.Results.Redis.Address = src.Results.Redis.Address
	}
	if src.Results.Redis.Password != "" {
		m.config.Results.Redis.Password = src.Results.Redis.Password
	}
	if src.Results.Redis.Database != 0 {
		m.config.Results.Redis.Database = src.Results.Redis.Database
	}
	if src.Results.Redis.Prefix != "" {
		m.config.Results.Redis.Prefix = src.Results.Redis.Prefix
	}
	if src.Results.Redis.TTL != 0 {
		m.config.Results.Redis.TTL = src.Results.Redis.TTL
	}
	if src.Results.S3.Bucket != "" {
		m.config.Results.S3.Bucket = src.Results.S3.Bucket
	}
	if src.Results.S3.Prefix != "" {
		m.config.Results.S3.Prefix = src.Results.S3.Prefix
	}
	if src.Results.S3.Region != "" {
		m.config.Results.S3.Region = src.Results.S3.Region
	}
	if src.Results.S3.Endpoint != "" {
		m.config.Results.S3.Endpoint = src.Results.S3.Endpoint
	}
	if src.Results.S3.UsePathStyle {
		m.config.Results.S3.UsePathStyle = true
	}

	// Telemetry
	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
	if src.Telemetry.ServiceName != "" {
		m.config.Telemetry.ServiceName = src.Telemetry.ServiceName
	}
	if src.Telemetry.SampleRatio != 0 {
		m.config.Telemetry.SampleRatio = src.Telemetry.SampleRatio
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("PROCMINE_ALGORITHM"); v != "" {
		m.config.Mining.Algorithm = v
	}
	if v, ok := envFloat("PROCMINE_DEPENDENCY_THRESHOLD"); ok {
		m.config.Mining.DependencyThreshold = v
	}
	if v, ok := envFloat("PROCMINE_POSITIVE_THRESHOLD"); ok {
		m.config.Mining.PositiveObservationsThreshold = v
	}
	if v, ok := envFloat("PROCMINE_FREQUENCY_THRESHOLD"); ok {
		m.config.Mining.FrequencyThreshold = v
	}
	if v := os.Getenv("PROCMINE_STORE_DRIVER"); v != "" {
		m.config.Store.Driver = v
	}
	if v := os.Getenv("PROCMINE_STORE_DSN"); v != "" {
		m.config.Store.DSN = v
	}
	if v := os.Getenv("PROCMINE_RESULTS_BACKEND"); v != "" {
		m.config.Results.Backend = v
	}
	if v := os.Getenv("PROCMINE_REDIS_ADDR"); v != "" {
		m.config.Results.Redis.Address = v
	}
	if v := os.Getenv("PROCMINE_S3_BUCKET"); v != "" {
		m.config.Results.S3.Bucket = v
	}
	if v := os.Getenv("PROCMINE_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Endpoint = v
		m.config.Telemetry.Enabled = true
	}
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to path.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
