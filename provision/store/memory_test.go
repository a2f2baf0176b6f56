package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austral/provision-engine/provision"
	"github.com/austral/provision-engine/provision/store"
)

// =============================================================================
// MEMORY STORE TESTS
// =============================================================================

func TestMemory_PutGetDelete(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	batch := provision.NewBatch()
	batch.Put("employees/e1", map[string]string{"name": "Ana"})
	require.NoError(t, mem.Apply(ctx, batch))

	raw, err := mem.Get(ctx, "employees/e1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ana"}`, string(raw))

	// Missing paths are nil, not an error
	raw, err = mem.Get(ctx, "employees/e2")
	require.NoError(t, err)
	assert.Nil(t, raw)

	del := provision.NewBatch()
	del.Delete("employees/e1")
	require.NoError(t, mem.Apply(ctx, del))

	raw, err = mem.Get(ctx, "employees/e1")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestMemory_ListPrefixBoundaries(t *testing.T) {
	// GIVEN: Paths where one account ID is a prefix of another
	// THEN: List must not leak across the path separator
	mem := store.NewMemory()
	ctx := context.Background()

	batch := provision.NewBatch()
	batch.Put("movements/acc1/m1", 1)
	batch.Put("movements/acc1/m2", 2)
	batch.Put("movements/acc10/m1", 3)
	require.NoError(t, mem.Apply(ctx, batch))

	docs, err := mem.List(ctx, "movements/acc1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Contains(t, docs, "movements/acc1/m1")
	assert.NotContains(t, docs, "movements/acc10/m1")
}

func TestMemory_ApplyIsAtomicOnMarshalFailure(t *testing.T) {
	// GIVEN: A batch with one unmarshalable value
	// WHEN: Apply fails
	// THEN: No write from the batch is visible
	mem := store.NewMemory()
	ctx := context.Background()

	bad := provision.NewBatch()
	bad.Put("employees/e1", "fine")
	bad.Put("employees/e2", make(chan int))
	assert.Error(t, mem.Apply(ctx, bad))

	raw, err := mem.Get(ctx, "employees/e1")
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Equal(t, 0, mem.Len())
}

func TestMemory_LastWriteWinsWithinBatch(t *testing.T) {
	// Staging a put over a delete on the same path keeps the put; the batch
	// is a map, so only the final value per path reaches the store.
	mem := store.NewMemory()
	ctx := context.Background()

	batch := provision.NewBatch()
	batch.Delete("movements/a/m1")
	batch.Put("movements/a/m1", "kept")
	require.NoError(t, mem.Apply(ctx, batch))

	raw, err := mem.Get(ctx, "movements/a/m1")
	require.NoError(t, err)
	assert.JSONEq(t, `"kept"`, string(raw))
}

func TestMemory_NewKeyUnique(t *testing.T) {
	mem := store.NewMemory()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		k := mem.NewKey()
		assert.NotEmpty(t, k)
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}
