package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func TestSetAndGetLastSync(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	// Изначально время не сохранено
	at, err := store.GetLastSync(ctx)
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	expected := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	require.NoError(t, store.SetLastSync(ctx, expected))

	got, err := store.GetLastSync(ctx)
	require.NoError(t, err)
	assert.True(t, expected.Equal(got))
}

func TestDeviceID_Stable(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	first, err := store.DeviceID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := store.DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMetadata_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	// Удаляем bucket meta напрямую
	rawUpdate(t, store, func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketMeta)
	})

	_, err := store.GetLastSync(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "meta bucket not found")

	err = store.SetLastSync(ctx, time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "meta bucket not found")

	_, err = store.DeviceID(ctx)
	assert.Error(t, err)
}
