package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-borrowing/library"
)

var _ library.KVStorage = (*RedisStorage)(nil)

func TestKey(t *testing.T) {
	assert.Equal(t, "library:history_a@limu.edu.ly", Key(library.HistoryKey("a@limu.edu.ly")))
}

func TestUnreachableServer(t *testing.T) {
	s := NewRedisStorage(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond}))
	defer s.Close()

	ctx := context.Background()
	_, _, err := s.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, s.Set(ctx, "k", "v"))

	// History surfaces the outage as a persistence error.
	h := library.NewKVHistory(s, nil)
	_, err = h.List(ctx, "a@limu.edu.ly")
	assert.ErrorIs(t, err, library.ErrPersistence)
}

// Runs against a real server when REDIS_ADDR is set.
func TestRedisHistory(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s := NewRedisStorage(NewClient(addr))
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	user := "redis-test-" + time.Now().Format("150405.000000") + "@limu.edu.ly"
	t.Cleanup(func() { s.rdb.Del(context.Background(), Key(library.HistoryKey(user))) })

	_, ok, err := s.Get(ctx, library.HistoryKey(user))
	require.NoError(t, err)
	assert.False(t, ok)

	h := library.NewKVHistory(s, nil)
	rec := library.HistoryRecord{Timestamp: time.Now().UTC(), BookIDs: []int64{101}, Titles: []string{"The 48 Laws of Power"}}
	require.NoError(t, h.Append(ctx, user, rec))
	recs, err := h.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []int64{101}, recs[0].BookIDs)
}
