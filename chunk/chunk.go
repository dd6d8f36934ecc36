// Package chunk splits an encoded payload into an ordered sequence of
// size-bounded chunks with a manifest, and rejoins them into the exact
// original payload. Both directions are pure functions.
package chunk

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrPayloadTooLarge means the payload would need more than the allowed
	// number of chunks. This is a hard ceiling, never a reason to truncate.
	ErrPayloadTooLarge = fmt.Errorf("payload too large for chunk limit")

	// ErrMissingChunk means a chunk index referenced by the manifest is absent.
	ErrMissingChunk = fmt.Errorf("missing chunk")

	// ErrLengthMismatch means reassembly produced a different total length
	// than the manifest records.
	ErrLengthMismatch = fmt.Errorf("length mismatch after reassembly")
)

// Manifest describes a chunked payload. It is persisted under the metadata
// key and replaced wholesale on every chunked save.
type Manifest struct {
	FormatVersion   int `json:"formatVersion"`
	ChunkCount      int `json:"chunkCount"`
	TotalLength     int `json:"totalLength"`
	EncodingVersion int `json:"encodingVersion"`
}

// Marshal serializes the manifest for storage.
func (m Manifest) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalManifest parses a stored manifest and validates it.
func UnmarshalManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest parse: %v", err)
	}
	if err := m.Check(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Check validates the manifest invariants.
func (m Manifest) Check() error {
	if m.FormatVersion < CompatFormatVersion || m.FormatVersion > CurrentFormatVersion {
		return fmt.Errorf("manifest: unsupported format version %d", m.FormatVersion)
	}
	if m.ChunkCount < 1 {
		return fmt.Errorf("manifest: chunk count %d, must be at least 1", m.ChunkCount)
	}
	if m.TotalLength < 0 {
		return fmt.Errorf("manifest: negative total length %d", m.TotalLength)
	}
	return nil
}

// Chunk is one fragment of a payload, persisted under its own key.
type Chunk struct {
	Index int
	Data  string
}

// Split divides payload into consecutive slices of at most maxChunkSize
// characters. It fails with ErrPayloadTooLarge if more than maxChunks
// would be needed.
func Split(payload string, encodingVersion, maxChunkSize, maxChunks int) (Manifest, []Chunk, error) {
	if maxChunkSize < 1 {
		return Manifest{}, nil, fmt.Errorf("chunk size must be at least 1, got %d", maxChunkSize)
	}
	n := (len(payload) + maxChunkSize - 1) / maxChunkSize
	if n < 1 {
		n = 1 // an empty payload still occupies one chunk
	}
	if n > maxChunks {
		return Manifest{}, nil, fmt.Errorf("%w: %d chunks needed, %d allowed",
			ErrPayloadTooLarge, n, maxChunks)
	}

	chunks := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		start := i * maxChunkSize
		end := start + maxChunkSize
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, Chunk{Index: i, Data: payload[start:end]})
	}
	m := Manifest{
		FormatVersion:   CurrentFormatVersion,
		ChunkCount:      n,
		TotalLength:     len(payload),
		EncodingVersion: encodingVersion,
	}
	return m, chunks, nil
}

// Join reassembles the payload from chunks in index order, regardless of
// the order they are passed in. It fails with ErrMissingChunk if any index
// in 0..ChunkCount-1 is absent, and with ErrLengthMismatch if the result
// does not have the manifest's total length.
func Join(m Manifest, chunks []Chunk) (string, error) {
	if err := m.Check(); err != nil {
		return "", err
	}

	byIndex := make(map[int]string, len(chunks))
	for _, c := range chunks {
		if _, dup := byIndex[c.Index]; dup {
			return "", fmt.Errorf("duplicate chunk index %d", c.Index)
		}
		byIndex[c.Index] = c.Data
	}

	var b strings.Builder
	b.Grow(m.TotalLength)
	for i := 0; i < m.ChunkCount; i++ {
		data, exists := byIndex[i]
		if !exists {
			return "", fmt.Errorf("%w: index %d of %d", ErrMissingChunk, i, m.ChunkCount)
		}
		b.WriteString(data)
	}
	payload := b.String()
	if len(payload) != m.TotalLength {
		return "", fmt.Errorf("%w: got %d, manifest says %d",
			ErrLengthMismatch, len(payload), m.TotalLength)
	}
	return payload, nil
}

// SortChunks orders chunks by index, for display purposes.
func SortChunks(chunks []Chunk) {
	slices.SortFunc(chunks, func(a, b Chunk) int {
		return a.Index - b.Index
	})
}
