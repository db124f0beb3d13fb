package redisstore_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-portal-client/sessions"
	"github.com/jrsteele09/go-portal-client/sessions/redisstore"
)

const testKey = "portal:session"

func newStore(t *testing.T, options ...redisstore.Option) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := redisstore.New(client, testKey, options...)
	require.NoError(t, err)
	return store, mr
}

func full() sessions.Record {
	return sessions.Record{User: json.RawMessage(`{"id":1,"role":"STUDENT"}`), AccessToken: "tok123"}
}

func TestNew(t *testing.T) {
	_, err := redisstore.New(nil, testKey)
	require.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	_, err = redisstore.New(client, "")
	require.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty store loads a zero record", func(t *testing.T) {
		store, _ := newStore(t)
		record, err := store.Load(ctx)
		require.NoError(t, err)
		require.True(t, record.IsEmpty())
	})

	t.Run("Save and load round trip", func(t *testing.T) {
		store, mr := newStore(t)
		require.NoError(t, store.Save(ctx, full()))

		record, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, full(), record)
		require.Equal(t, "tok123", mr.HGet(testKey, sessions.KeyAccessToken))
		require.Zero(t, mr.TTL(testKey))
	})

	t.Run("Partial record replaces a full one", func(t *testing.T) {
		store, mr := newStore(t)
		require.NoError(t, store.Save(ctx, full()))
		require.NoError(t, store.Save(ctx, sessions.Record{User: json.RawMessage(`{"id":2,"role":"ADMIN"}`)}))

		record, err := store.Load(ctx)
		require.NoError(t, err)
		require.Empty(t, record.AccessToken)
		require.False(t, record.Complete())
		keys, err := mr.HKeys(testKey)
		require.NoError(t, err)
		require.Equal(t, []string{sessions.KeyUser}, keys)
	})

	t.Run("Saving an empty record removes the hash", func(t *testing.T) {
		store, mr := newStore(t)
		require.NoError(t, store.Save(ctx, full()))
		require.NoError(t, store.Save(ctx, sessions.Record{}))
		require.False(t, mr.Exists(testKey))
	})

	t.Run("Clear empties the hash and is idempotent", func(t *testing.T) {
		store, mr := newStore(t)
		require.NoError(t, store.Save(ctx, full()))
		require.NoError(t, store.Clear(ctx))
		require.False(t, mr.Exists(testKey))
		require.NoError(t, store.Clear(ctx))

		record, err := store.Load(ctx)
		require.NoError(t, err)
		require.True(t, record.IsEmpty())
	})

	t.Run("TTL expires the session", func(t *testing.T) {
		store, mr := newStore(t, redisstore.WithTTL(time.Hour))
		require.NoError(t, store.Save(ctx, full()))
		require.Equal(t, time.Hour, mr.TTL(testKey))

		mr.FastForward(time.Hour + time.Second)
		record, err := store.Load(ctx)
		require.NoError(t, err)
		require.True(t, record.IsEmpty())
	})

	t.Run("Unreachable server", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1})
		t.Cleanup(func() { client.Close() })
		store, err := redisstore.New(client, testKey)
		require.NoError(t, err)

		_, err = store.Load(ctx)
		require.Error(t, err)
		require.Error(t, store.Save(ctx, full()))
		require.Error(t, store.Clear(ctx))
	})
}
