package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	table := Current()

	in := map[string]any{
		"accounts": map[string]any{
			"a1": map[string]any{
				"accountId":   "a1",
				"displayName": "Ada",
			},
		},
		"progress": []any{
			map[string]any{
				"progressId":     "p1",
				"moduleId":       "fractions",
				"score":          0.8,
				"skillBreakdown": map[string]any{"add": 0.9},
			},
		},
		// Unknown keys must pass through unchanged
		"futureField": map[string]any{"nested": true},
	}

	short := table.Shorten(in)
	assert.Equal(t, in, table.Expand(short))

	m, ok := short.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, m, "ac")
	assert.Contains(t, m, "pr")
	assert.Contains(t, m, "futureField")
	assert.NotContains(t, m, "accounts")

	entry := m["pr"].([]any)[0].(map[string]any)
	assert.Contains(t, entry, "pid")
	assert.Contains(t, entry, "sk")
}

func TestScalarsUntouched(t *testing.T) {
	table := Current()
	assert.Equal(t, "accounts", table.Shorten("accounts")) // only map keys are rewritten
	assert.Equal(t, 42, table.Shorten(42))
	assert.Nil(t, table.Shorten(nil))
}

func TestUnknownVersion(t *testing.T) {
	_, err := ForVersion(99)
	assert.Error(t, err)
}

func TestSchemasLoadable(t *testing.T) {
	// Every historic schema must be loadable; build panics on duplicate
	// aliases within a level.
	for v := range schemas {
		table, err := ForVersion(v)
		require.NoError(t, err)
		assert.Equal(t, v, table.Version())
	}
}

func TestDynamicKeysNotRewritten(t *testing.T) {
	table := Current()

	// Dynamic keys that spell like aliases: an account ID "at", skill
	// names "sc" and "ml", an unknown root key "at". A full cycle must
	// return them untouched.
	in := map[string]any{
		"accounts": map[string]any{
			"at": map[string]any{"accountId": "at", "displayName": "Avery"},
		},
		"progress": []any{
			map[string]any{
				"progressId":     "p1",
				"skillBreakdown": map[string]any{"sc": 0.5, "ml": 0.25},
			},
		},
		"at": "future-field",
	}

	short := table.Shorten(in)
	assert.Equal(t, in, table.Expand(short))

	m, ok := short.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, m["ac"].(map[string]any), "at")
	entry := m["pr"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"sc": 0.5, "ml": 0.25}, entry["sk"])
	assert.Equal(t, "future-field", m["at"])
}
