package receipt

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisSequencer(t *testing.T) (*RedisSequencer, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSequencer(client), srv
}

func TestSequencers(t *testing.T) {
	redisSeq, _ := newRedisSequencer(t)

	sequencers := map[string]Sequencer{
		"memory": NewMemorySequencer(),
		"redis":  redisSeq,
	}

	for name, seq := range sequencers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for want := int64(1); want <= 3; want++ {
				got, err := seq.Next(ctx, 1, 2026)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			other, err := seq.Next(ctx, 2, 2026)
			require.NoError(t, err)
			assert.Equal(t, int64(1), other, "schools have independent sequences")

			nextYear, err := seq.Next(ctx, 1, 2027)
			require.NoError(t, err)
			assert.Equal(t, int64(1), nextYear, "years have independent sequences")
		})
	}
}

func TestSequencersConcurrent(t *testing.T) {
	redisSeq, _ := newRedisSequencer(t)

	sequencers := map[string]Sequencer{
		"memory": NewMemorySequencer(),
		"redis":  redisSeq,
	}

	for name, seq := range sequencers {
		t.Run(name, func(t *testing.T) {
			const n = 200
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				seen = make(map[int64]bool, n)
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					v, err := seq.Next(context.Background(), 5, 2026)
					assert.NoError(t, err)
					mu.Lock()
					defer mu.Unlock()
					assert.False(t, seen[v], "duplicate %d", v)
					seen[v] = true
				}()
			}
			wg.Wait()

			assert.Len(t, seen, n)
			for v := int64(1); v <= n; v++ {
				assert.True(t, seen[v], "missing %d", v)
			}
		})
	}
}

func TestRedisSequencerKey(t *testing.T) {
	seq, srv := newRedisSequencer(t)
	_, err := seq.Next(context.Background(), 12, 2026)
	require.NoError(t, err)

	v, err := srv.Get("receipt:seq:12:2026")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}
