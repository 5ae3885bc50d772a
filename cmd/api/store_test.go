package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-phone-verify/internal/config"
	"github.com/go-phone-verify/internal/infrastructure/memory"
	"github.com/go-phone-verify/internal/infrastructure/redisstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionStore_Memory(t *testing.T) {
	cfg := config.Load()
	store, closeFn, err := newSessionStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &memory.SessionStore{}, store)
}

func TestNewSessionStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Load()
	cfg.Store.Driver = "redis"
	cfg.Store.RedisURL = "redis://" + mr.Addr() + "/0"

	store, closeFn, err := newSessionStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &redisstore.SessionStore{}, store)
}

func TestNewSessionStore_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Load()
	cfg.Store.Driver = "redis"
	cfg.Store.RedisURL = "redis://" + addr + "/0"

	_, _, err := newSessionStore(context.Background(), cfg)
	assert.ErrorContains(t, err, "ping redis")
}

func TestNewSessionStore_Unknown(t *testing.T) {
	cfg := config.Load()
	cfg.Store.Driver = "etcd"
	_, _, err := newSessionStore(context.Background(), cfg)
	assert.Error(t, err)
}
