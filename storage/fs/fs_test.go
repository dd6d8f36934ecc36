package fs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathcosmos/recordstore/storage"
	"github.com/mathcosmos/recordstore/storage/tester"
)

func TestBackend(t *testing.T) {
	b, err := New(t.TempDir(), 0, 0)
	require.NoError(t, err)
	tester.DoBackendTests(t, b)
}

func TestQuota(t *testing.T) {
	ctx := context.Background()
	b, err := New(t.TempDir(), 5, 8)
	require.NoError(t, err)

	err = b.Store(ctx, "big", []byte("123456"))
	assert.True(t, storage.IsQuotaExceeded(err))

	assert.NoError(t, b.Store(ctx, "a", []byte("12345")))
	err = b.Store(ctx, "b", []byte("12345"))
	assert.True(t, storage.IsQuotaExceeded(err))
	assert.NoError(t, b.Store(ctx, "b", []byte("123")))
}

func TestNoRootPath(t *testing.T) {
	_, err := New("", 0, 0)
	assert.Error(t, err)
}
