package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/urlscan/internal/model"
)

func TestKey(t *testing.T) {
	t.Parallel()

	key := Key("https://example.com")
	assert.True(t, strings.HasPrefix(key, KeyPrefix))
	assert.Len(t, key, len(KeyPrefix)+64)
	assert.Equal(t, key, Key("  https://example.com\n"), "surrounding whitespace must not change the key")
	assert.NotEqual(t, key, Key("https://example.org"))
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var c Cache = Noop{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "https://example.com", model.NewScanReport("https://example.com")))
	report, ok, err := c.Get(ctx, "https://example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, report)
	assert.NoError(t, c.Close())
}

// unreachableRedis points at a port nothing listens on.
func unreachableRedis(t *testing.T) *Redis {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	r := NewRedisWithClient(client, time.Minute)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisUnavailable(t *testing.T) {
	t.Parallel()

	r := unreachableRedis(t)
	ctx := context.Background()

	assert.Error(t, r.Ping(ctx))

	report, ok, err := r.Get(ctx, "https://example.com")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, report)

	assert.Error(t, r.Set(ctx, "https://example.com", model.NewScanReport("https://example.com")))
}

func TestNewRedis(t *testing.T) {
	t.Parallel()

	r := NewRedis(RedisOptions{Addr: "localhost:6380", DB: 3, TTL: time.Hour})
	t.Cleanup(func() { _ = r.Close() })

	opts := r.client.Options()
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, time.Hour, r.ttl)
}
