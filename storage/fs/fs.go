// Package fs provides a directory-backed store backend with atomic writes
// and optional quota enforcement.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/c2h5oh/datasize"

	"github.com/mathcosmos/recordstore/config"
	"github.com/mathcosmos/recordstore/storage"
)

type Backend struct {
	rootPath     string
	maxValueSize datasize.ByteSize // 0 = unlimited
	maxTotalSize datasize.ByteSize // 0 = unlimited
}

func (b *Backend) List(ctx context.Context, prefix string) (storage.BlobList, error) {
	var blobs storage.BlobList

	entries, err := os.ReadDir(b.rootPath)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasSuffix(name, ".tmp") {
			continue
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue // could have been removed in the meantime
			}
			return nil, err
		}
		blobs = append(blobs, storage.Blob{
			Name: name,
			Size: info.Size(),
		})
	}

	sort.Slice(blobs, func(i, j int) bool {
		return blobs[i].Name < blobs[j].Name
	})
	return blobs, nil
}

func (b *Backend) Load(ctx context.Context, name string) ([]byte, error) {
	if strings.Contains(name, "/") {
		return nil, os.ErrNotExist
	}
	fullPath := filepath.Join(b.rootPath, name)
	return os.ReadFile(fullPath)
}

func (b *Backend) Store(ctx context.Context, name string, data []byte) error {
	if strings.Contains(name, "/") {
		return os.ErrPermission
	}
	size := datasize.ByteSize(len(data))
	if b.maxValueSize > 0 && size > b.maxValueSize {
		return fmt.Errorf("%w: value %s exceeds per-value limit %s",
			storage.ErrQuotaExceeded, size, b.maxValueSize)
	}
	if b.maxTotalSize > 0 {
		ls, err := b.List(ctx, "")
		if err != nil {
			return err
		}
		total := size
		for _, blob := range ls {
			if blob.Name == name {
				continue // will be replaced
			}
			total += datasize.ByteSize(blob.Size)
		}
		if total > b.maxTotalSize {
			return fmt.Errorf("%w: total %s exceeds store limit %s",
				storage.ErrQuotaExceeded, total, b.maxTotalSize)
		}
	}
	fullPath := filepath.Join(b.rootPath, name)
	tmpPath := fullPath + ".tmp" // ignored by List()
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, fullPath)
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	if strings.Contains(name, "/") {
		return os.ErrPermission
	}
	err := os.Remove(filepath.Join(b.rootPath, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func New(rootPath string, maxValueSize, maxTotalSize datasize.ByteSize) (*Backend, error) {
	if rootPath == "" {
		return nil, fmt.Errorf("storage.root_path must be set for the fs backend")
	}
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, err
	}
	b := &Backend{
		rootPath:     rootPath,
		maxValueSize: maxValueSize,
		maxTotalSize: maxTotalSize,
	}
	return b, nil
}

func init() {
	storage.RegisterBackend("fs", func(st config.Storage) (storage.Interface, error) {
		return New(st.RootPath, st.MaxValueSize, st.MaxTotalSize)
	})
}
