package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticketing/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seatMap struct {
	EventID string   `json:"eventId"`
	Seats   []string `json:"seats"`
}

func newService(t *testing.T) (*miniredis.Miniredis, cache.Service) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, cache.NewService(client)
}

func TestService_GetMiss(t *testing.T) {
	_, svc := newService(t)

	var dest seatMap
	err := svc.Get(context.Background(), "seat_map:missing", &dest)

	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestService_GetOrSetFetchesOnce(t *testing.T) {
	mr, svc := newService(t)
	ctx := context.Background()
	fetches := 0
	fetch := func() (interface{}, error) {
		fetches++
		return seatMap{EventID: "e1", Seats: []string{"A-1", "A-2"}}, nil
	}

	var first, second seatMap
	require.NoError(t, svc.GetOrSet(ctx, "seat_map:e1", time.Minute, fetch, &first))
	require.NoError(t, svc.GetOrSet(ctx, "seat_map:e1", time.Minute, fetch, &second))

	assert.Equal(t, 1, fetches)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"A-1", "A-2"}, second.Seats)
	assert.Equal(t, time.Minute, mr.TTL("seat_map:e1"))
}

func TestService_GetOrSetFetchError(t *testing.T) {
	mr, svc := newService(t)
	boom := errors.New("database unavailable")

	var dest seatMap
	err := svc.GetOrSet(context.Background(), "seat_map:e1", time.Minute, func() (interface{}, error) {
		return nil, boom
	}, &dest)

	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("seat_map:e1"))
}

func TestService_DeletePattern(t *testing.T) {
	mr, svc := newService(t)
	ctx := context.Background()
	for _, key := range []string{"seat_map:e1", "seat_map:e1:section:A", "seat_map:e2"} {
		require.NoError(t, svc.Set(ctx, key, seatMap{EventID: key}, time.Minute))
	}

	require.NoError(t, svc.DeletePattern(ctx, "seat_map:e1*"))

	assert.False(t, mr.Exists("seat_map:e1"))
	assert.False(t, mr.Exists("seat_map:e1:section:A"))
	assert.True(t, mr.Exists("seat_map:e2"))
}

func TestService_DeleteAndPing(t *testing.T) {
	mr, svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, "k", 1, time.Minute))

	require.NoError(t, svc.Delete(ctx))
	require.NoError(t, svc.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
	assert.NoError(t, svc.Ping(ctx))

	mr.Close()
	assert.Error(t, svc.Ping(ctx))
}
