package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, sid string, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := NewRedis(rdb, OperatorKey, sid, ttl)
	require.NoError(t, err)
	return s, mr
}

func TestRedis_MissingKeyReportsNoToken(t *testing.T) {
	s, _ := newRedisStore(t, "sid-1", time.Hour)
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRedis_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, "sid-1", time.Hour)

	require.NoError(t, s.Save(ctx, "tok-1"))
	got, err := mr.Get("evolutech_token:sid-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)

	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	require.NoError(t, s.Delete(ctx))
	assert.False(t, mr.Exists("evolutech_token:sid-1"))
	require.NoError(t, s.Delete(ctx), "deleting an absent slot is not an error")
	assert.Error(t, s.Save(ctx, ""))
}

func TestRedis_EmptyValueReportsNoToken(t *testing.T) {
	s, mr := newRedisStore(t, "sid-1", 0)
	require.NoError(t, mr.Set("evolutech_token:sid-1", ""))
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRedis_LoadRestartsTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, "sid-1", time.Hour)
	key := "evolutech_token:sid-1"

	require.NoError(t, s.Save(ctx, "tok-1"))
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(40 * time.Minute)
	_, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(61 * time.Minute)
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRedis_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, "sid-1", 0)

	require.NoError(t, s.Save(ctx, "tok-1"))
	_, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), mr.TTL("evolutech_token:sid-1"))
}

func TestRedis_SessionsDoNotShareSlots(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	a, err := NewRedis(rdb, OperatorKey, "a", time.Hour)
	require.NoError(t, err)
	b, err := NewRedis(rdb, OperatorKey, "b", time.Hour)
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, "tok-a"))
	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRedis_ConnectionErrorIsNotNoToken(t *testing.T) {
	s, mr := newRedisStore(t, "sid-1", time.Hour)
	mr.Close()

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
}
