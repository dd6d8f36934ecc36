// Package tester provides conformance tests and fault injection helpers
// for store backends.
package tester

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mathcosmos/recordstore/storage"
)

// DoBackendTests tests a backend for conformance
func DoBackendTests(t *testing.T, b storage.Interface) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Starts empty
	ls, err := b.List(ctx, "")
	assert.NoError(t, err)
	assert.Len(t, ls, 0)

	// Add items
	foo := []byte("foo") // will be modified later
	err = b.Store(ctx, "foo-1", foo)
	assert.NoError(t, err)
	err = b.Store(ctx, "bar-2", []byte("bar2"))
	assert.NoError(t, err)
	err = b.Store(ctx, "bar-1", []byte("bar"))
	assert.NoError(t, err)

	// Overwrite
	err = b.Store(ctx, "bar-1", []byte("bar1"))
	assert.NoError(t, err)

	// List all
	ls, err = b.List(ctx, "")
	assert.NoError(t, err)
	assert.Equal(t, ls.Names(), []string{"bar-1", "bar-2", "foo-1"}) // sorted

	// List with prefix
	ls, err = b.List(ctx, "foo-")
	assert.NoError(t, err)
	assert.Equal(t, ls.Names(), []string{"foo-1"})
	assert.Equal(t, ls[0].Size, int64(3))
	ls, err = b.List(ctx, "bar-")
	assert.NoError(t, err)
	assert.Equal(t, ls.Names(), []string{"bar-1", "bar-2"}) // sorted

	// Load
	data, err := b.Load(ctx, "foo-1")
	assert.NoError(t, err)
	assert.Equal(t, data, []byte("foo"))

	// Check overwritten data
	data, err = b.Load(ctx, "bar-1")
	assert.NoError(t, err)
	assert.Equal(t, data, []byte("bar1"))

	// Verify that Load makes a copy
	data[0] = '!'
	data, err = b.Load(ctx, "bar-1")
	assert.NoError(t, err)
	assert.Equal(t, data, []byte("bar1"))

	// Change foo buffer to verify that Store made a copy
	foo[0] = '!'
	data, err = b.Load(ctx, "foo-1")
	assert.NoError(t, err)
	assert.Equal(t, data, []byte("foo"))

	// Load non-existing
	_, err = b.Load(ctx, "does-not-exist")
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Delete
	err = b.Delete(ctx, "bar-2")
	assert.NoError(t, err)
	_, err = b.Load(ctx, "bar-2")
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Delete non-existing is not an error
	err = b.Delete(ctx, "does-not-exist")
	assert.NoError(t, err)

	ls, err = b.List(ctx, "")
	assert.NoError(t, err)
	assert.Equal(t, ls.Names(), []string{"bar-1", "foo-1"})
}

// Faulty wraps a backend and injects errors on Store calls according to a
// script, to exercise quota recovery paths.
type Faulty struct {
	storage.Interface

	mu         sync.Mutex
	storeErrs  []error // error per upcoming Store call, nil = pass through
	storeCalls int
}

// NewFaulty wraps a backend. Calls pass through until a script is set.
func NewFaulty(b storage.Interface) *Faulty {
	return &Faulty{Interface: b}
}

// FailStores schedules errors for the next Store calls, one per entry.
// A nil entry lets that call pass through. After the script runs out,
// all calls pass through again.
func (f *Faulty) FailStores(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeErrs = errs
	f.storeCalls = 0
}

// StoreCalls returns the number of Store calls seen since the last script.
func (f *Faulty) StoreCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storeCalls
}

func (f *Faulty) Store(ctx context.Context, name string, data []byte) error {
	f.mu.Lock()
	var err error
	if f.storeCalls < len(f.storeErrs) {
		err = f.storeErrs[f.storeCalls]
	}
	f.storeCalls++
	f.mu.Unlock()

	if err != nil {
		return err
	}
	return f.Interface.Store(ctx, name, data)
}
