package persist

import (
	"context"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mathcosmos/recordstore/chunk"
	"github.com/mathcosmos/recordstore/codec"
	"github.com/mathcosmos/recordstore/record"
	"github.com/mathcosmos/recordstore/storage"
)

// Save persists the record, recovering from capacity rejections by
// evicting non-essential data and, as a last resort, resetting the store
// to essential data only. Non-capacity store errors are not retried and
// surface to the caller.
func (o *Orchestrator) Save(ctx context.Context, rec *record.Record) (SaveResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	res, err := o.save(ctx, rec)
	if err != nil {
		metricSaveFailed.Inc()
		return SaveResult{}, err
	}
	metricSaves.WithLabelValues(res.Outcome.String()).Inc()
	metricLastSaveBytes.Set(float64(res.EncodedSize))
	metricLastSaveChunks.Set(float64(res.ChunkCount))

	o.stats.Saves.Inc()
	if res.Outcome == SuccessAfterCleanup {
		o.stats.CleanupSaves.Inc()
	}
	o.stats.LastSaveBytes.Store(int64(res.EncodedSize))
	o.stats.LastChunkCount.Store(int32(res.ChunkCount))
	return res, nil
}

func (o *Orchestrator) save(ctx context.Context, rec *record.Record) (SaveResult, error) {
	// First attempt with the record as given
	size, chunkCount, err := o.writeRecord(ctx, rec)
	if err == nil {
		o.l.WithFields(logrus.Fields{
			"size":   datasize.ByteSize(size),
			"chunks": chunkCount,
		}).Debug("Record saved")
		return SaveResult{
			Outcome:     Success,
			EncodedSize: datasize.ByteSize(size),
			ChunkCount:  chunkCount,
		}, nil
	}
	if !recoverable(err) {
		return SaveResult{}, errors.Wrap(err, "save record")
	}

	// The store rejected the write for capacity reasons, or the payload
	// would not fit the chunk ceiling. Evict and retry once.
	o.l.WithError(err).Info("Write rejected for capacity, running cleanup")
	metricCleanupRuns.Inc()
	reduced, rerr := o.policy.Reduce(rec, int(o.c.Limits.StoreBudget), o.now(), codec.Encode)
	if rerr != nil {
		return SaveResult{}, errors.Wrap(rerr, "cleanup")
	}

	if !reduced.Emergency {
		size, chunkCount, err = o.writeRecord(ctx, reduced.Record)
		if err == nil {
			// A transient rejection that needed no eviction is a plain
			// success; nothing was dropped.
			outcome := SuccessAfterCleanup
			if reduced.Evicted == 0 && reduced.Coarsened == 0 {
				outcome = Success
			}
			o.l.WithFields(logrus.Fields{
				"size":    datasize.ByteSize(size),
				"chunks":  chunkCount,
				"evicted": reduced.Evicted,
			}).Info("Record saved after cleanup")
			return SaveResult{
				Outcome:     outcome,
				EncodedSize: datasize.ByteSize(size),
				ChunkCount:  chunkCount,
				Evicted:     reduced.Evicted,
			}, nil
		}
		if !recoverable(err) {
			return SaveResult{}, errors.Wrap(err, "save after cleanup")
		}
		o.l.WithError(err).Warn("Retry after cleanup still rejected")
	}

	// Last resort: drop everything and store only the essential data
	return o.emergencyReset(ctx, rec)
}

// emergencyReset discards all record keys and writes only the essential
// set. This is the one save path that may lose non-essential data that
// cleanup would have preferred to keep, and it is always reported as a
// partial success.
func (o *Orchestrator) emergencyReset(ctx context.Context, rec *record.Record) (SaveResult, error) {
	em := o.policy.Emergency(rec, o.now())
	payload, err := codec.Encode(em)
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "encode essential record")
	}

	if err := o.clearKeys(ctx); err != nil {
		return SaveResult{}, errors.Wrap(err, "clear before emergency reset")
	}
	if err := o.st.Store(ctx, o.c.PrimaryKey, []byte(payload)); err != nil {
		// Nothing left to shrink; even a capacity error is fatal here
		return SaveResult{}, errors.Wrap(err, "emergency reset write")
	}

	metricEmergencyResets.Inc()
	o.stats.EmergencyResets.Inc()
	o.l.WithField("size", datasize.ByteSize(len(payload))).
		Warn("Emergency reset, only essential data was kept")
	return SaveResult{
		Outcome:     SuccessAfterCleanup,
		EncodedSize: datasize.ByteSize(len(payload)),
		Evicted:     len(rec.Progress) - len(em.Progress),
		Emergency:   true,
	}, nil
}

// writeRecord encodes and writes one record, choosing the single-key or
// chunked layout by encoded size, and sweeps keys of the layout it
// replaces.
func (o *Orchestrator) writeRecord(ctx context.Context, rec *record.Record) (size, chunkCount int, err error) {
	payload, err := codec.Encode(rec)
	if err != nil {
		return 0, 0, err
	}
	size = len(payload)

	if size <= int(o.c.Limits.SingleKeyLimit) {
		if err := o.st.Store(ctx, o.c.PrimaryKey, []byte(payload)); err != nil {
			return size, 0, err
		}
		o.sweepChunked(ctx, 0)
		return size, 0, nil
	}

	m, chunks, err := chunk.Split(payload, codec.CurrentEncodingVersion,
		int(o.c.Limits.ChunkSize), o.c.Limits.MaxChunks)
	if err != nil {
		return size, 0, err
	}
	for _, c := range chunks {
		if err := o.st.Store(ctx, o.chunkKey(c.Index), []byte(c.Data)); err != nil {
			// The old manifest stays in place, but chunk keys written so
			// far may be ones it references, so the previous layout can be
			// unreadable; Load degrades down its fallback ladder then
			return size, 0, err
		}
	}
	mdata, err := m.Marshal()
	if err != nil {
		return size, 0, err
	}
	if err := o.st.Store(ctx, o.manifestKey(), mdata); err != nil {
		return size, 0, err
	}

	// The manifest now points at the new chunks; the single-key layout and
	// any chunks beyond the new count are stale.
	if err := o.st.Delete(ctx, o.c.PrimaryKey); err != nil {
		o.l.WithError(err).Warn("Could not delete stale primary key")
	}
	o.sweepChunked(ctx, m.ChunkCount)
	return size, m.ChunkCount, nil
}

// sweepChunked removes chunk keys with index >= keep, and the manifest as
// well when keep is 0 (single-key layout). Sweeping is best-effort: a
// failure leaves stale keys that the next save retries, and never fails
// the save that just completed.
func (o *Orchestrator) sweepChunked(ctx context.Context, keep int) {
	if keep == 0 {
		if err := o.st.Delete(ctx, o.manifestKey()); err != nil {
			o.l.WithError(err).Warn("Could not delete stale manifest key")
		}
	}
	ls, err := o.st.List(ctx, o.chunkKeyPrefix())
	if err != nil {
		o.l.WithError(err).Warn("Could not list chunk keys for sweeping")
		return
	}
	for _, name := range ls.Names() {
		index, ok := o.chunkIndex(name)
		if !ok || index < keep {
			continue
		}
		if err := o.st.Delete(ctx, name); err != nil {
			o.l.WithError(err).WithField("key", name).
				Warn("Could not delete stale chunk key")
		}
	}
}

// recoverable reports whether a save error can be addressed by shrinking
// the record.
func recoverable(err error) bool {
	return storage.IsQuotaExceeded(err) || errors.Is(err, chunk.ErrPayloadTooLarge)
}
