package persist

import (
	"context"
	"fmt"

	"github.com/mathcosmos/recordstore/chunk"
	"github.com/mathcosmos/recordstore/codec"
	"github.com/mathcosmos/recordstore/record"
)

// Load reconstructs the record from the store. A missing or corrupted
// store is treated as "no prior data": the fallback ladder runs from the
// chunked layout to the legacy single key to an empty record, and Load
// never fails the caller over store contents. Integrity details are
// logged, not returned.
func (o *Orchestrator) Load(ctx context.Context) (*record.Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Probe for the manifest to resolve the layout variant
	mdata, err := o.st.Load(ctx, o.manifestKey())
	switch {
	case err == nil:
		rec, cerr := o.loadChunked(ctx, mdata)
		if cerr == nil {
			o.stats.Loads.Inc()
			return rec, nil
		}
		o.fallback("chunked", cerr)
	case isNotExist(err):
		// No chunked layout present
	default:
		o.fallback("manifest-read", err)
	}

	// Legacy or small-data single key
	pdata, err := o.st.Load(ctx, o.c.PrimaryKey)
	switch {
	case err == nil:
		rec, derr := codec.DecodeSniff(string(pdata))
		if derr == nil {
			o.stats.Loads.Inc()
			return rec, nil
		}
		o.fallback("single-key", derr)
	case isNotExist(err):
		o.l.Debug("No prior record in store")
	default:
		o.fallback("primary-read", err)
	}

	// Nothing usable: start fresh rather than failing the caller
	o.stats.Loads.Inc()
	return record.New(), nil
}

func (o *Orchestrator) loadChunked(ctx context.Context, mdata []byte) (*record.Record, error) {
	m, err := chunk.UnmarshalManifest(mdata)
	if err != nil {
		return nil, err
	}
	if m.ChunkCount > o.c.Limits.MaxChunks {
		return nil, fmt.Errorf("manifest chunk count %d exceeds limit %d",
			m.ChunkCount, o.c.Limits.MaxChunks)
	}
	chunks := make([]chunk.Chunk, 0, m.ChunkCount)
	for i := 0; i < m.ChunkCount; i++ {
		data, err := o.st.Load(ctx, o.chunkKey(i))
		if err != nil {
			if isNotExist(err) {
				return nil, fmt.Errorf("%w: index %d of %d",
					chunk.ErrMissingChunk, i, m.ChunkCount)
			}
			return nil, err
		}
		chunks = append(chunks, chunk.Chunk{Index: i, Data: string(data)})
	}
	payload, err := chunk.Join(m, chunks)
	if err != nil {
		return nil, err
	}
	return codec.Decode(payload, m.EncodingVersion)
}

func (o *Orchestrator) fallback(stage string, err error) {
	metricLoadFallbacks.WithLabelValues(stage).Inc()
	o.stats.LoadFallbacks.Inc()
	o.l.WithError(err).WithField("stage", stage).
		Warn("Record load failed, falling back")
}
