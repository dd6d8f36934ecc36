package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitJoin(t *testing.T) {
	payload := strings.Repeat("x", 2500)
	m, chunks, err := Split(payload, 2, 1000, 10)
	require.NoError(t, err)

	assert.Equal(t, CurrentFormatVersion, m.FormatVersion)
	assert.Equal(t, 3, m.ChunkCount)
	assert.Equal(t, 2500, m.TotalLength)
	assert.Equal(t, 2, m.EncodingVersion)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1000, len(chunks[0].Data))
	assert.Equal(t, 1000, len(chunks[1].Data))
	assert.Equal(t, 500, len(chunks[2].Data))

	got, err := Join(m, chunks)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSplitExactMultiple(t *testing.T) {
	m, chunks, err := Split(strings.Repeat("y", 2000), 2, 1000, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ChunkCount)
	assert.Len(t, chunks, 2)
}

func TestSplitEmptyPayload(t *testing.T) {
	m, chunks, err := Split("", 2, 1000, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, m.ChunkCount)
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0].Data)

	got, err := Join(m, chunks)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestSplitTooLarge(t *testing.T) {
	_, _, err := Split(strings.Repeat("x", 10001), 2, 1000, 10)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestJoinOutOfOrder(t *testing.T) {
	payload := "abcdefghij"
	m, chunks, err := Split(payload, 2, 3, 10)
	require.NoError(t, err)

	// Shuffle the chunk order; Join must still produce index order
	chunks[0], chunks[len(chunks)-1] = chunks[len(chunks)-1], chunks[0]
	got, err := Join(m, chunks)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestJoinMissingChunk(t *testing.T) {
	m, chunks, err := Split("abcdefghij", 2, 3, 10)
	require.NoError(t, err)

	_, err = Join(m, append([]Chunk{}, chunks[:2]...))
	assert.ErrorIs(t, err, ErrMissingChunk)
}

func TestJoinLengthMismatch(t *testing.T) {
	m, chunks, err := Split("abcdefghij", 2, 3, 10)
	require.NoError(t, err)

	chunks[1].Data = "x" // corrupt one chunk
	_, err = Join(m, chunks)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestJoinDuplicateIndex(t *testing.T) {
	m, chunks, err := Split("abcdef", 2, 3, 10)
	require.NoError(t, err)
	chunks[1].Index = 0
	_, err = Join(m, chunks)
	assert.Error(t, err)
}

func TestManifestMarshalRoundTrip(t *testing.T) {
	m := Manifest{FormatVersion: 1, ChunkCount: 3, TotalLength: 2500, EncodingVersion: 2}
	data, err := m.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalManifest(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestManifestCheck(t *testing.T) {
	for _, tc := range []struct {
		name string
		m    Manifest
	}{
		{"zero chunks", Manifest{FormatVersion: 1, ChunkCount: 0}},
		{"future format", Manifest{FormatVersion: 99, ChunkCount: 1}},
		{"negative length", Manifest{FormatVersion: 1, ChunkCount: 1, TotalLength: -1}},
	} {
		assert.Error(t, tc.m.Check(), tc.name)
	}
}

func TestUnmarshalManifestGarbage(t *testing.T) {
	_, err := UnmarshalManifest([]byte("not json"))
	assert.Error(t, err)
}
