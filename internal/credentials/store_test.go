package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStorage struct {
	*MemoryStorage
	reads    int
	writeErr error
}

func (c *countingStorage) Read(ctx context.Context) (*Credential, error) {
	c.reads++
	return c.MemoryStorage.Read(ctx)
}

func (c *countingStorage) Write(ctx context.Context, cred *Credential) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	return c.MemoryStorage.Write(ctx, cred)
}

func TestStoreLoadsOnce(t *testing.T) {
	ctx := context.Background()
	storage := &countingStorage{MemoryStorage: NewMemoryStorage(&Credential{AccessToken: "a", RefreshToken: "r"})}
	store := NewStore(storage, nil)

	assert.Equal(t, "a", store.AccessToken(ctx))
	assert.Equal(t, "r", store.RefreshToken(ctx))
	assert.Equal(t, 1, storage.reads)
}

func TestStoreEmptyStorage(t *testing.T) {
	store := NewStore(NewMemoryStorage(nil), nil)

	cred, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cred)
	assert.Empty(t, store.AccessToken(context.Background()))
}

func TestStoreSetReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage(&Credential{AccessToken: "old", RefreshToken: "old-r"})
	store := NewStore(storage, nil)

	require.NoError(t, store.Set(ctx, &Credential{AccessToken: "new"}))
	assert.Equal(t, "new", store.AccessToken(ctx))
	assert.Empty(t, store.RefreshToken(ctx))

	persisted, err := storage.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", persisted.AccessToken)
}

func TestStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStorage(&Credential{AccessToken: "a"}), nil)

	cred, err := store.Get(ctx)
	require.NoError(t, err)
	cred.AccessToken = "mutated"

	assert.Equal(t, "a", store.AccessToken(ctx))
}

func TestStoreSetKeepsMemoryOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	storage := &countingStorage{MemoryStorage: NewMemoryStorage(nil), writeErr: errors.New("disk full")}
	store := NewStore(storage, nil)

	err := store.Set(ctx, &Credential{AccessToken: "a"})
	require.Error(t, err)
	assert.Equal(t, "a", store.AccessToken(ctx))
}

func TestStoreClear(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage(&Credential{AccessToken: "a"})
	store := NewStore(storage, nil)

	require.NoError(t, store.Clear(ctx))
	assert.Empty(t, store.AccessToken(ctx))

	_, err := storage.Read(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
