package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromonitor/copernicus/pkg/quota"
	"github.com/agromonitor/copernicus/storage/memory"
)

func TestStore_LoadEmpty(t *testing.T) {
	store := memory.New()

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestStore_SaveLoadCopies(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	st := quota.NewState(time.Now())
	st.ProcessingUnitsUsed = 100
	require.NoError(t, store.Save(ctx, st))

	// Mutating the caller's copy after save must not leak into the store.
	st.ProcessingUnitsUsed = 500

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, got.ProcessingUnitsUsed)

	// Mutating a loaded copy must not leak either.
	got.ProcessingUnitsUsed = 900
	again, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, again.ProcessingUnitsUsed)
}

func TestStore_SaveStampsLastUpdated(t *testing.T) {
	stamp := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	store := memory.New(memory.WithNowFunc(func() time.Time { return stamp }))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, quota.NewState(stamp)))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, stamp, got.LastUpdated)
}

func TestStore_Clear(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, quota.NewState(time.Now())))
	store.Clear()

	st, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)
}
