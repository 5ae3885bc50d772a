package main

import (
	"context"
	"fmt"

	"github.com/go-phone-verify/internal/application/verification"
	"github.com/go-phone-verify/internal/config"
	"github.com/go-phone-verify/internal/infrastructure/dynamo"
	"github.com/go-phone-verify/internal/infrastructure/memory"
	"github.com/go-phone-verify/internal/infrastructure/redisstore"
)

// newSessionStore builds the store selected by STORE_DRIVER and returns a
// func that releases its resources.
func newSessionStore(ctx context.Context, cfg *config.Config) (verification.SessionStore, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		s := memory.NewSessionStore(cfg.Store.JanitorTick)
		return s, func() { _ = s.Close() }, nil

	case "redis":
		client, err := redisstore.NewClient(cfg.Store.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return redisstore.NewSessionStore(client, cfg.Store.RedisPrefix), func() { _ = client.Close() }, nil

	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		// Creates the table and enables TTL if they don't exist yet.
		if err := dynamo.Bootstrap(ctx, client, cfg.Store.DynamoTable); err != nil {
			return nil, nil, fmt.Errorf("bootstrap dynamodb table: %w", err)
		}
		return dynamo.NewSessionRepo(client, cfg.Store.DynamoTable), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
