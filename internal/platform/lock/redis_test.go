package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisLocker(client, time.Minute)
	l.retry = 5 * time.Millisecond
	return l, mr
}

func TestLockExcludesSecondHolder(t *testing.T) {
	l, mr := newTestLocker(t)

	unlock, err := l.Lock(context.Background(), "leave:accrual:s1:annual")
	require.NoError(t, err)
	assert.True(t, mr.Exists("leave:accrual:s1:annual"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "leave:accrual:s1:annual")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.False(t, mr.Exists("leave:accrual:s1:annual"))

	unlock2, err := l.Lock(context.Background(), "leave:accrual:s1:annual")
	require.NoError(t, err)
	unlock2()
}

func TestUnlockKeepsForeignLease(t *testing.T) {
	l, mr := newTestLocker(t)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// lease expired and another process took the key
	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set("k", "someone-else"))

	unlock()
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestLockWaitsForRelease(t *testing.T) {
	l, _ := newTestLocker(t)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(context.Background(), "k")
		if err == nil {
			u()
		}
		close(acquired)
	}()

	time.Sleep(20 * time.Millisecond)
	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second locker never acquired the key")
	}
}
