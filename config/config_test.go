package config

import (
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Check())
}

func TestLoadYAML(t *testing.T) {
	c := Default()
	err := c.LoadYAML([]byte(`
primary_key: cosmos_record
storage:
  type: fs
  root_path: /tmp/records
limits:
  max_chunks: 5
`), false)
	require.NoError(t, err)
	assert.Equal(t, "cosmos_record", c.PrimaryKey)
	assert.Equal(t, "fs", c.Storage.Type)
	assert.Equal(t, 5, c.Limits.MaxChunks)
	// Untouched values keep their defaults
	assert.Equal(t, datasize.MB, c.Limits.ChunkSize)
	assert.NoError(t, c.Check())
}

func TestCheckRejectsBadValues(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty primary key", func(c *Config) { c.PrimaryKey = "" }},
		{"zero chunk size", func(c *Config) { c.Limits.ChunkSize = 0 }},
		{"zero max chunks", func(c *Config) { c.Limits.MaxChunks = 0 }},
		{"single key limit above chunk size", func(c *Config) {
			c.Limits.SingleKeyLimit = c.Limits.ChunkSize + 1
		}},
		{"short retention", func(c *Config) { c.Cleanup.Retention = 0 }},
	} {
		c := Default()
		tc.mutate(&c)
		assert.Error(t, c.Check(), tc.name)
	}
}

func TestLoadYAMLStrict(t *testing.T) {
	c := Default()
	err := c.LoadYAML([]byte("no_such_key: true\n"), false)
	assert.Error(t, err)
}
