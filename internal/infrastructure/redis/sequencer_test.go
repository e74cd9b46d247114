package redis

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *goredis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis no disponible: %v", err)
	}
	return client
}

func TestKey(t *testing.T) {
	day := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "seq:shop-1:transfer:20240301", Key("shop-1", "transfer", day))
}

func TestSequencer_Next(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	client.Del(ctx, Key("test-shop", "transfer", day), Key("test-shop", "transfer", day.AddDate(0, 0, 1)))

	seq := NewSequencer(client)
	n, err := seq.Next(ctx, "test-shop", "transfer", day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = seq.Next(ctx, "test-shop", "transfer", day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = seq.Next(ctx, "test-shop", "transfer", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "cada día reinicia el consecutivo")

	ttl, err := client.TTL(ctx, Key("test-shop", "transfer", day)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestSequencer_NextConcurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	day := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	client.Del(ctx, Key("test-shop", "order", day))

	seq := NewSequencer(client)
	const workers = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := seq.Next(ctx, "test-shop", "order", day)
			if err != nil {
				return
			}
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers, "no debe repetirse ningún consecutivo")
}
