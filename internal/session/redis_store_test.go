package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server when REDIS_ADDR is set.
func TestRedisStoreLifecycle(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client)

	s, err := New(time.Now(), time.Minute)
	require.NoError(t, err)
	s.UserID = 9
	s.CSRFToken = "tok"
	s.AddFlash(FlashInfo, "hi")
	require.NoError(t, store.Create(ctx, *s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(9), got.UserID)
	assert.Equal(t, "tok", got.CSRFToken)
	assert.Equal(t, s.Flashes, got.Flashes)

	ttl, err := client.TTL(ctx, store.key(s.ID)).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	require.NoError(t, store.Delete(ctx, s.ID))
	got, err = store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
