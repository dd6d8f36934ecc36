package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"

	"github.com/mathcosmos/recordstore/storage"
	"github.com/mathcosmos/recordstore/storage/tester"
)

func TestBackend(t *testing.T) {
	tester.DoBackendTests(t, New())
}

func TestPerValueQuota(t *testing.T) {
	ctx := context.Background()
	b := NewWithQuota(10, 0)

	assert.NoError(t, b.Store(ctx, "small", []byte("1234567890")))
	err := b.Store(ctx, "big", []byte("12345678901"))
	assert.True(t, storage.IsQuotaExceeded(err))
}

func TestTotalQuota(t *testing.T) {
	ctx := context.Background()
	b := NewWithQuota(0, 20)

	assert.NoError(t, b.Store(ctx, "a", []byte(strings.Repeat("x", 15))))
	err := b.Store(ctx, "b", []byte(strings.Repeat("y", 10)))
	assert.True(t, storage.IsQuotaExceeded(err))

	// Overwriting an existing key only counts the new size
	assert.NoError(t, b.Store(ctx, "a", []byte(strings.Repeat("z", 20))))
	assert.Equal(t, 20*datasize.B, b.TotalSize())

	// Freeing space makes the write fit
	assert.NoError(t, b.Delete(ctx, "a"))
	assert.NoError(t, b.Store(ctx, "b", []byte(strings.Repeat("y", 10))))
}
