package persist

import (
	"go.uber.org/atomic"
)

// Stats tracks orchestrator activity. The fields are safe to read while
// saves are in progress.
type Stats struct {
	Saves           atomic.Uint64
	CleanupSaves    atomic.Uint64
	EmergencyResets atomic.Uint64
	Loads           atomic.Uint64
	LoadFallbacks   atomic.Uint64
	LastSaveBytes   atomic.Int64
	LastChunkCount  atomic.Int32
}
