// Package storage defines the key-value store capability that the
// persistence layer writes into, and a registry of pluggable backends.
// Stores are small and quota-limited: writes can be rejected with
// ErrQuotaExceeded and callers are expected to shrink their data.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/mathcosmos/recordstore/config"
)

// ErrQuotaExceeded is returned by Store when the backend rejects a write
// due to capacity, either for the single value or for the store total.
var ErrQuotaExceeded = fmt.Errorf("storage quota exceeded")

// IsQuotaExceeded reports whether err is a capacity rejection. Only these
// errors are recoverable through cleanup; anything else is surfaced.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

type Blob struct {
	Name string
	Size int64
}

type BlobList []Blob

func (bl BlobList) Len() int {
	return len(bl)
}

func (bl BlobList) Less(i, j int) bool {
	return bl[i].Name < bl[j].Name
}

func (bl BlobList) Swap(i, j int) {
	bl[i], bl[j] = bl[j], bl[i]
}

func (bl BlobList) Names() []string {
	var names []string
	for _, b := range bl {
		names = append(names, b.Name)
	}
	return names
}

func (bl BlobList) WithPrefix(prefix string) (blobs BlobList) {
	for _, b := range bl {
		if !strings.HasPrefix(b.Name, prefix) {
			continue
		}
		blobs = append(blobs, b)
	}
	return blobs
}

// Interface defines the interface storage plugins need to implement.
// Load returns os.ErrNotExist for absent keys. Store returns
// ErrQuotaExceeded when a write does not fit. Delete of an absent key
// is not an error.
type Interface interface {
	List(ctx context.Context, prefix string) (BlobList, error)
	Load(ctx context.Context, name string) ([]byte, error)
	Store(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}

type InitFunc func(st config.Storage) (Interface, error)

var backends = make(map[string]InitFunc)

func RegisterBackend(typeName string, initFunc InitFunc) {
	backends[typeName] = initFunc
}

func GetBackend(sc config.Storage) (Interface, error) {
	if sc.Type == "" {
		return nil, fmt.Errorf("no storage.type configured")
	}
	initFunc, exists := backends[sc.Type]
	if !exists {
		return nil, fmt.Errorf("storage.type %q not found or registered", sc.Type)
	}
	return initFunc(sc)
}
