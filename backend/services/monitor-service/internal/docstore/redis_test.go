package docstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:             srv.Addr(),
		Protocol:         2,
		DisableIndentity: true,
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, "solarx:test:"+uuid.NewString(), zap.NewNop()), srv
}

func nextValue(t *testing.T, values <-chan any) any {
	t.Helper()
	select {
	case v := <-values:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
		return nil
	}
}

func TestRedisStoreSetUpdateGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	require.NoError(t, s.Set(ctx, "status/relay1/ON", true))
	require.NoError(t, s.Update(ctx, "status/battery", map[string]any{"percentage": 64, "voltage": 12.5}))

	v, err := s.Get(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"relay1":  map[string]any{"ON": true},
		"battery": map[string]any{"percentage": 64.0, "voltage": 12.5},
	}, v)

	require.NoError(t, s.Set(ctx, "status/relay1/ON", nil))
	v, err = s.Get(ctx, "status/relay1")
	require.NoError(t, err)
	assert.Nil(t, v)

	var battery struct {
		Percentage float64 `json:"percentage"`
	}
	require.NoError(t, Decode(ctx, s, "status/battery", &battery))
	assert.Equal(t, 64.0, battery.Percentage)
	assert.ErrorIs(t, Decode(ctx, s, "status/missing", &battery), ErrNotFound)
}

func TestRedisStorePublishesChangedPath(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	sub := s.client.Subscribe(ctx, s.channel)
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "status/battery", map[string]any{"voltage": 12.1}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "status/battery", msg.Payload)
}

func TestRedisStoreOnValue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, _ := newTestRedisStore(t)

	values := make(chan any, 8)
	unsubscribe, err := s.OnValue(ctx, "status/Night/Mode", func(v any) { values <- v })
	require.NoError(t, err)

	assert.Nil(t, nextValue(t, values))

	// A sibling change must not reach this watcher; the next delivery is
	// the night mode write itself.
	require.NoError(t, s.Set(ctx, "status/battery/percentage", 70))
	require.NoError(t, s.Set(ctx, "status/Night/Mode", true))
	assert.Equal(t, true, nextValue(t, values))

	// Writes to an ancestor overlap the watched path.
	require.NoError(t, s.Set(ctx, "status/Night", map[string]any{"Mode": false}))
	assert.Equal(t, false, nextValue(t, values))

	unsubscribe()
	require.NoError(t, s.Set(ctx, "status/Night/Mode", true))
	select {
	case v := <-values:
		t.Fatalf("notification after unsubscribe: %v", v)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRedisStoreConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Update(ctx, "status/cells", map[string]any{fmt.Sprintf("c%d", i): i})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	v, err := s.Get(ctx, "status/cells")
	require.NoError(t, err)
	cells, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Len(t, cells, writers)
}

func TestRedisStoreCorruptDocument(t *testing.T) {
	ctx := context.Background()
	s, srv := newTestRedisStore(t)

	require.NoError(t, srv.Set(s.key, "{not json"))
	_, err := s.Get(ctx, "status")
	assert.Error(t, err)
	assert.Error(t, s.Set(ctx, "status/x", 1))
}
