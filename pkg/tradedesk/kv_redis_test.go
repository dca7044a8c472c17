package tradedesk

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set TRADEDESK_TEST_REDIS_ADDR to run against a live server.
func TestRedisKV(t *testing.T) {
	addr := os.Getenv("TRADEDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TRADEDESK_TEST_REDIS_ADDR not set")
	}
	kv := NewRedisKV(&redis.Options{Addr: addr})
	defer kv.Close()
	ctx := context.Background()
	key := fmt.Sprintf("tradedesk.test.%d", time.Now().UnixNano())

	_, found, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.Set(ctx, key, []byte(`[]`)))
	value, found, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[]`, string(value))
	require.NoError(t, kv.client.Del(ctx, key).Err())
}
