// Package blob exposes any PowerDNS simpleblob backend (s3, fs, memory)
// through the storage.Interface, for deployments that keep the record in
// a real blob store. Quota errors from these backends are reported by the
// remote service and cannot be classified reliably, so they surface as
// regular errors.
package blob

import (
	"context"
	"fmt"

	"github.com/PowerDNS/simpleblob"
	_ "github.com/PowerDNS/simpleblob/backends/fs"
	_ "github.com/PowerDNS/simpleblob/backends/memory"
	_ "github.com/PowerDNS/simpleblob/backends/s3"

	"github.com/mathcosmos/recordstore/config"
	"github.com/mathcosmos/recordstore/storage"
)

type Backend struct {
	sb simpleblob.Interface
}

// New wraps an existing simpleblob backend.
func New(sb simpleblob.Interface) *Backend {
	return &Backend{sb: sb}
}

func (b *Backend) List(ctx context.Context, prefix string) (storage.BlobList, error) {
	ls, err := b.sb.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	blobs := make(storage.BlobList, 0, len(ls))
	for _, entry := range ls {
		blobs = append(blobs, storage.Blob{
			Name: entry.Name,
			Size: entry.Size,
		})
	}
	return blobs, nil
}

func (b *Backend) Load(ctx context.Context, name string) ([]byte, error) {
	return b.sb.Load(ctx, name)
}

func (b *Backend) Store(ctx context.Context, name string, data []byte) error {
	return b.sb.Store(ctx, name, data)
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	return b.sb.Delete(ctx, name)
}

func init() {
	storage.RegisterBackend("blob", func(st config.Storage) (storage.Interface, error) {
		typeName, _ := st.Options["type"].(string)
		if typeName == "" {
			return nil, fmt.Errorf("storage.options.type must be set for the blob backend")
		}
		options := make(map[string]interface{}, len(st.Options))
		for k, v := range st.Options {
			if k == "type" {
				continue
			}
			options[k] = v
		}
		sb, err := simpleblob.GetBackend(context.Background(), typeName, options)
		if err != nil {
			return nil, err
		}
		return New(sb), nil
	})
}
