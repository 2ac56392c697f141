package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bt1zar/warden/scanner"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	config := Config{
		Addr:       mr.Addr(),
		Password:   "",
		DB:         0,
		DefaultTTL: 1 * time.Minute,
	}

	manager, err := NewManager(config, zap.NewNop())
	require.NoError(t, err)

	return mr, manager
}

func TestNewManager(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	assert.NotNil(t, manager)
	assert.NotNil(t, manager.redis)
	assert.NotNil(t, manager.logger)
}

func TestNewManager_ConnectFailed(t *testing.T) {
	manager, err := NewManager(Config{Addr: "localhost:1"}, zap.NewNop())
	assert.Nil(t, manager)
	assert.Error(t, err)
}

func TestManager_SetAndGet(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	err := manager.Set(ctx, "test-key", "test-value", 1*time.Minute)
	require.NoError(t, err)

	value, err := manager.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, "test-value", value)
}

func TestManager_GetMiss(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	_, err := manager.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, IsCacheMiss(err))
}

func TestManager_Delete(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "test-key", "test-value", 1*time.Minute))
	require.NoError(t, manager.Delete(ctx, "test-key"))

	_, err := manager.Get(ctx, "test-key")
	assert.True(t, IsCacheMiss(err))
}

func TestManager_ScanReportRoundTrip(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()
	source := `query = "SELECT * FROM users WHERE id = '" + user_input`
	report := scanner.NewScanner(zap.NewNop()).Scan(source)
	require.False(t, report.Valid)

	key := ScanKey(source)
	require.NoError(t, manager.SetJSON(ctx, key, report, 0))

	var cached scanner.Report
	require.NoError(t, manager.GetJSON(ctx, key, &cached))
	assert.Equal(t, report, cached)
}

func TestScanKey(t *testing.T) {
	source := "import os.path\nresult = 1"

	key := ScanKey(source)
	assert.Equal(t, key, ScanKey(source), "same source derives the same key")
	assert.NotEqual(t, key, ScanKey(source+"\n"))
	assert.True(t, strings.HasPrefix(key, "warden:scan:"))
	assert.NotContains(t, key, "import", "keys must not leak source text")
}

func TestManager_TTL(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "test-ttl", "value", 100*time.Millisecond))

	value, err := manager.Get(ctx, "test-ttl")
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	mr.FastForward(200 * time.Millisecond)

	_, err = manager.Get(ctx, "test-ttl")
	assert.True(t, IsCacheMiss(err))
}

func TestManager_ClosedOperations(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close(), "closing twice is a no-op")

	ctx := context.Background()

	_, err := manager.Get(ctx, "any")
	assert.Error(t, err)
	assert.False(t, IsCacheMiss(err))

	assert.Error(t, manager.Set(ctx, "any", "v", time.Minute))
	assert.Error(t, manager.Ping(ctx))
}
