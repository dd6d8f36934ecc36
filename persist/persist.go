// Package persist implements the stateful persistence orchestrator: the
// save protocol with quota recovery (cleanup, retry, emergency reset), the
// load protocol with its fallback ladder, and stale key sweeping.
//
// The store holds one of three layout variants, resolved by probing for
// the manifest key: a chunked layout (manifest plus chunk keys), a
// single-key layout under the primary key, or nothing. A save replaces
// the variant wholesale; chunks are written before the manifest that
// references them, so a completed save never leaves a manifest pointing
// at missing chunks.
//
// Known limitations: independent concurrent writers (other processes
// writing the same keys) are not guarded against; there is no locking or
// versioning token across writers. And because the chunk keys are fixed,
// a save that fails partway through its chunk writes can overwrite
// chunks the old manifest still references, leaving the previous chunked
// layout unreadable; Load recovers through its fallback ladder.
package persist

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mathcosmos/recordstore/cleanup"
	"github.com/mathcosmos/recordstore/config"
	"github.com/mathcosmos/recordstore/storage"
	"github.com/mathcosmos/recordstore/utils"
)

// Outcome reports how a save completed.
type Outcome int

const (
	// Success means the record was stored unchanged.
	Success Outcome = iota
	// SuccessAfterCleanup means the record was stored, but non-essential
	// data was dropped to make it fit.
	SuccessAfterCleanup
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SuccessAfterCleanup:
		return "success-after-cleanup"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// SaveResult describes a completed save.
type SaveResult struct {
	Outcome     Outcome
	EncodedSize datasize.ByteSize
	ChunkCount  int // 0 for the single-key layout
	Evicted     int // progress entries dropped by cleanup
	Emergency   bool
}

// Orchestrator coordinates codec, chunking, cleanup and the store. It holds
// no record state between calls; the store contents are the only state.
type Orchestrator struct {
	st     storage.Interface
	c      config.Config
	l      logrus.FieldLogger
	policy cleanup.Policy
	stats  Stats

	// mu serializes Save/Load/ClearAll from this process
	mu utils.MonitoredMutex

	// now is replaceable in tests
	now func() time.Time
}

func New(st storage.Interface, c config.Config) (*Orchestrator, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}
	logger := logrus.WithField("component", "persist")
	o := &Orchestrator{
		st:     st,
		c:      c,
		l:      logger,
		policy: cleanup.NewPolicy(c.Cleanup.Retention, logrus.StandardLogger()),
		now:    time.Now,
	}
	o.mu.Name = "persist"
	o.mu.Logger = logger
	return o, nil
}

// Stats returns the live statistics counters.
func (o *Orchestrator) Stats() *Stats {
	return &o.stats
}

// ClearAll removes every key belonging to the record: primary, manifest
// and all chunks.
func (o *Orchestrator) ClearAll(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clearKeys(ctx)
}

func (o *Orchestrator) clearKeys(ctx context.Context) error {
	ls, err := o.st.List(ctx, o.c.PrimaryKey)
	if err != nil {
		return errors.Wrap(err, "list record keys")
	}
	for _, name := range ls.Names() {
		if err := o.st.Delete(ctx, name); err != nil {
			return errors.Wrapf(err, "delete %q", name)
		}
	}
	return nil
}

func (o *Orchestrator) manifestKey() string {
	return o.c.PrimaryKey + "_manifest"
}

func (o *Orchestrator) chunkKeyPrefix() string {
	return o.c.PrimaryKey + "_chunk_"
}

func (o *Orchestrator) chunkKey(index int) string {
	return fmt.Sprintf("%s%d", o.chunkKeyPrefix(), index)
}

// chunkIndex parses the index from a chunk key name.
func (o *Orchestrator) chunkIndex(name string) (int, bool) {
	suffix := strings.TrimPrefix(name, o.chunkKeyPrefix())
	if suffix == name {
		return 0, false
	}
	index, err := strconv.Atoi(suffix)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
