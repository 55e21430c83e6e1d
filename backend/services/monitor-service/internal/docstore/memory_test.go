package docstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	v, err := s.Get(ctx, "status/battery")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.Set(ctx, "status/relay1/ON", true))
	require.NoError(t, s.Set(ctx, "/status/relay2/ON/", false))

	v, err = s.Get(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"relay1": map[string]any{"ON": true},
		"relay2": map[string]any{"ON": false},
	}, v)

	v, err = s.Get(ctx, "status/relay1/ON")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestMemoryStoreSetNormalizesStructs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type point struct {
		Time  string  `json:"time"`
		Value float64 `json:"value"`
	}
	require.NoError(t, s.Set(ctx, "status/energy/production", []point{{"6 AM", 0.2}}))

	var got []point
	require.NoError(t, Decode(ctx, s, "status/energy/production", &got))
	assert.Equal(t, []point{{"6 AM", 0.2}}, got)

	assert.ErrorIs(t, Decode(ctx, s, "status/energy/missing", &got), ErrNotFound)
}

func TestMemoryStoreUpdateMerges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Update(ctx, "status/battery", map[string]any{"percentage": 55.5, "lastUpdated": "t1"}))
	require.NoError(t, s.Update(ctx, "status/battery", map[string]any{"voltage": 12.7, "lastUpdated": "t2"}))

	v, err := s.Get(ctx, "status/battery")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"percentage": 55.5, "voltage": 12.7, "lastUpdated": "t2"}, v)
}

func TestMemoryStoreDeletePrunesEmptyParents(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "status/Night/Mode", true))
	require.NoError(t, s.Set(ctx, "status/Night/Mode", nil))

	v, err := s.Get(ctx, "status")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "status/battery/percentage", 40))

	v, err := s.Get(ctx, "status/battery")
	require.NoError(t, err)
	v.(map[string]any)["percentage"] = 99.0

	again, err := s.Get(ctx, "status/battery/percentage")
	require.NoError(t, err)
	assert.Equal(t, 40.0, again)
}

func TestMemoryStoreOnValue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemoryStore()

	var (
		mu   sync.Mutex
		seen []any
	)
	unsubscribe, err := s.OnValue(ctx, "status/battery", func(v any) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "status/battery", map[string]any{"percentage": 70}))
	require.NoError(t, s.Set(ctx, "status/relay1/ON", true))
	require.NoError(t, s.Set(ctx, "status", map[string]any{"battery": map[string]any{"percentage": 71}}))

	unsubscribe()
	require.NoError(t, s.Update(ctx, "status/battery", map[string]any{"percentage": 72}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.Nil(t, seen[0])
	assert.Equal(t, map[string]any{"percentage": 70.0}, seen[1])
	assert.Equal(t, map[string]any{"percentage": 71.0}, seen[2])
}

func TestOverlaps(t *testing.T) {
	assert.True(t, overlaps(splitPath("status"), splitPath("status/battery")))
	assert.True(t, overlaps(splitPath("status/battery/voltage"), splitPath("status/battery")))
	assert.True(t, overlaps(splitPath(""), splitPath("status")))
	assert.False(t, overlaps(splitPath("status/relay1"), splitPath("status/battery")))
}
