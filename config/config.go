// Package config implements the YAML config file parser
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/mathcosmos/recordstore/config/logger"
)

const (
	// DefaultChunkSize is the maximum number of payload characters stored
	// under a single chunk key.
	DefaultChunkSize = datasize.MB

	// DefaultMaxChunks caps the number of chunk keys. Together with
	// DefaultChunkSize this bounds the largest storable payload.
	DefaultMaxChunks = 10

	// DefaultSingleKeyLimit is the threshold below which chunking is
	// skipped. It is deliberately smaller than typical store ceilings to
	// leave headroom for the key name and store overhead.
	DefaultSingleKeyLimit = 900 * datasize.KB

	// DefaultStoreBudget is the assumed effective capacity of the store,
	// used as the cleanup target after a quota rejection.
	DefaultStoreBudget = 2 * datasize.MB

	// DefaultRetention is how long progress entries count as essential.
	DefaultRetention = 30 * 24 * time.Hour
)

// Config is the config root object
type Config struct {
	// PrimaryKey is the store key for the single-key layout. The manifest
	// and chunk keys are derived from it.
	PrimaryKey string `yaml:"primary_key"`

	Storage Storage       `yaml:"storage"`
	Limits  Limits        `yaml:"limits"`
	Cleanup Cleanup       `yaml:"cleanup"`
	Log     logger.Config `yaml:"log"`

	// Set to current version by main
	Version string `yaml:"-"`
}

// Storage selects and configures the store backend
type Storage struct {
	Type     string                 `yaml:"type"`
	RootPath string                 `yaml:"root_path,omitempty"` // for the 'fs' backend
	Options  map[string]interface{} `yaml:"options,omitempty"`   // for the 'blob' backend

	// Quota limits enforced by backends that support them. Zero means
	// unlimited.
	MaxValueSize datasize.ByteSize `yaml:"max_value_size"`
	MaxTotalSize datasize.ByteSize `yaml:"max_total_size"`
}

// Limits configures payload size handling
type Limits struct {
	ChunkSize      datasize.ByteSize `yaml:"chunk_size"`
	MaxChunks      int               `yaml:"max_chunks"`
	SingleKeyLimit datasize.ByteSize `yaml:"single_key_limit"`
	StoreBudget    datasize.ByteSize `yaml:"store_budget"`
}

// Cleanup configures the eviction policy
type Cleanup struct {
	Retention time.Duration `yaml:"retention"`
}

// Check validates a Config instance
func (c Config) Check() error {
	if err := c.Log.Check(); err != nil {
		return err
	}
	if c.PrimaryKey == "" {
		return fmt.Errorf("primary_key: must not be empty")
	}
	if c.Limits.ChunkSize < 1 {
		return fmt.Errorf("limits.chunk_size: must be positive")
	}
	if c.Limits.MaxChunks < 1 {
		return fmt.Errorf("limits.max_chunks: must be at least 1")
	}
	if c.Limits.SingleKeyLimit > c.Limits.ChunkSize {
		return fmt.Errorf("limits.single_key_limit: must not exceed limits.chunk_size")
	}
	if c.Limits.StoreBudget < c.Limits.SingleKeyLimit {
		return fmt.Errorf("limits.store_budget: must be at least limits.single_key_limit")
	}
	if c.Cleanup.Retention < time.Minute {
		return fmt.Errorf("cleanup.retention: too short interval")
	}
	return nil
}

// String returns the config as a YAML string.
func (c Config) String() string {
	y, err := yaml.Marshal(c)
	if err != nil {
		logrus.Panicf("YAML marshal of config failed: %v", err) // Should never happen
	}
	return string(y)
}

// LoadYAML loads config from YAML. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAML(yamlContents []byte, expandEnv bool) error {
	if expandEnv {
		yamlContents = []byte(os.ExpandEnv(string(yamlContents)))
	}
	return yaml.UnmarshalStrict(yamlContents, c)
}

// LoadYAMLFile loads config from a YAML file. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAMLFile(fpath string, expandEnv bool) error {
	contents, err := os.ReadFile(fpath)
	if err != nil {
		return errors.Wrap(err, "open yaml file")
	}
	return c.LoadYAML(contents, expandEnv)
}

// Default returns a Config with default settings
func Default() Config {
	return Config{
		PrimaryKey: "app_record",
		Storage: Storage{
			Type: "memory",
		},
		Limits: Limits{
			ChunkSize:      DefaultChunkSize,
			MaxChunks:      DefaultMaxChunks,
			SingleKeyLimit: DefaultSingleKeyLimit,
			StoreBudget:    DefaultStoreBudget,
		},
		Cleanup: Cleanup{
			Retention: DefaultRetention,
		},
		Log: logger.DefaultConfig,
	}
}
