package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-openid-client/auth/authflowrepo"
	"github.com/jrsteele09/go-openid-client/internal/config"
	"github.com/jrsteele09/go-openid-client/server"
	"github.com/jrsteele09/go-openid-client/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type pendingFlow = authflowrepo.AuthFlowState[server.Info]

// openFlowStore builds the pending flow store selected by STORE_BACKEND.
func openFlowStore(ctx context.Context, c config.StoreConfig) (store.Store[pendingFlow], func() error, error) {
	switch c.GetStoreBackend() {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: c.GetRedisAddr()})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("[openFlowStore] redis %s: %w", c.GetRedisAddr(), err)
		}
		log.Info().Str("addr", c.GetRedisAddr()).Msg("using redis flow store")
		return store.NewRedisStore(client, store.WithRedisPrefix[pendingFlow](c.GetRedisPrefix())), client.Close, nil

	case config.StoreSQLite:
		path := c.GetSQLitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, nil, fmt.Errorf("[openFlowStore] %w", err)
		}
		s, err := store.OpenSQLiteStore[pendingFlow](path)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", path).Msg("using sqlite flow store")
		return s, s.Close, nil

	default:
		return store.NewMemoryStore[pendingFlow](), func() error { return nil }, nil
	}
}
