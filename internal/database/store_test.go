package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := Open(path, DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	assert.NotNil(t, store.DB())
	assert.NoError(t, store.Ping(context.Background()))
	assert.Equal(t, 1, store.Stats().MaxOpenConnections)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("", DefaultConfig(), zap.NewNop())
	require.Error(t, err)
}

func TestOpen_InMemory(t *testing.T) {
	store, err := Open(":memory:", Config{}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	// Zero config fields fall back to the single connection defaults.
	assert.Equal(t, 1, store.Stats().MaxOpenConnections)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestStore_Close(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"), DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "closing twice is a no-op")

	assert.Error(t, store.Ping(context.Background()), "a closed store must not answer pings")
}

func TestStore_WritesThroughGorm(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"), DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	type row struct {
		ID   uint `gorm:"primaryKey"`
		Name string
	}
	require.NoError(t, store.DB().AutoMigrate(&row{}))
	require.NoError(t, store.DB().Create(&row{Name: "probe"}).Error)

	var got row
	require.NoError(t, store.DB().First(&got, "name = ?", "probe").Error)
	assert.Equal(t, "probe", got.Name)
}
