// Package memory provides an in-process store backend with configurable
// quotas, modeling the small fixed-capacity stores this system targets.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/c2h5oh/datasize"

	"github.com/mathcosmos/recordstore/config"
	"github.com/mathcosmos/recordstore/storage"
)

type Backend struct {
	maxValueSize datasize.ByteSize // 0 = unlimited
	maxTotalSize datasize.ByteSize // 0 = unlimited

	mu    sync.Mutex
	blobs map[string][]byte
}

func (b *Backend) List(ctx context.Context, prefix string) (storage.BlobList, error) {
	var blobs storage.BlobList

	b.mu.Lock()
	for name, data := range b.blobs {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		blobs = append(blobs, storage.Blob{
			Name: name,
			Size: int64(len(data)),
		})
	}
	b.mu.Unlock()

	sort.Sort(blobs)
	return blobs, nil
}

func (b *Backend) Load(ctx context.Context, name string) ([]byte, error) {
	b.mu.Lock()
	data, exists := b.blobs[name]
	b.mu.Unlock()

	if !exists {
		return nil, os.ErrNotExist
	}
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data) // safe, because data was a copy itself
	return dataCopy, nil
}

func (b *Backend) Store(ctx context.Context, name string, data []byte) error {
	size := datasize.ByteSize(len(data))

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxValueSize > 0 && size > b.maxValueSize {
		return fmt.Errorf("%w: value %s exceeds per-value limit %s",
			storage.ErrQuotaExceeded, size, b.maxValueSize)
	}
	if b.maxTotalSize > 0 {
		// The write replaces any existing value under the same key
		total := size
		for n, d := range b.blobs {
			if n == name {
				continue
			}
			total += datasize.ByteSize(len(d))
		}
		if total > b.maxTotalSize {
			return fmt.Errorf("%w: total %s exceeds store limit %s",
				storage.ErrQuotaExceeded, total, b.maxTotalSize)
		}
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	b.blobs[name] = dataCopy
	return nil
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	b.mu.Lock()
	delete(b.blobs, name)
	b.mu.Unlock()
	return nil
}

// TotalSize returns the sum of all stored value sizes.
func (b *Backend) TotalSize() datasize.ByteSize {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total datasize.ByteSize
	for _, d := range b.blobs {
		total += datasize.ByteSize(len(d))
	}
	return total
}

func New() *Backend {
	return &Backend{blobs: make(map[string][]byte)}
}

// NewWithQuota returns a backend that rejects writes beyond the given
// per-value and total limits with storage.ErrQuotaExceeded.
func NewWithQuota(maxValueSize, maxTotalSize datasize.ByteSize) *Backend {
	b := New()
	b.maxValueSize = maxValueSize
	b.maxTotalSize = maxTotalSize
	return b
}

func init() {
	storage.RegisterBackend("memory", func(st config.Storage) (storage.Interface, error) {
		return NewWithQuota(st.MaxValueSize, st.MaxTotalSize), nil
	})
}
