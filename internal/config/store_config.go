package config

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-openid-client/internal/errors"
)

// StoreBackend selects where pending flows are kept.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreRedis  StoreBackend = "redis"
	StoreSQLite StoreBackend = "sqlite"
)

type Store struct {
	Backend     StoreBackend `env:"STORE_BACKEND" envDefault:"memory"`
	RedisAddr   string       `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPrefix string       `env:"REDIS_PREFIX" envDefault:"openid_flow"`
	SQLitePath  string       `env:"SQLITE_PATH" envDefault:"./data/flows.db"`
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() StoreBackend {
	return s.Backend
}

func (s Store) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Store) GetRedisPrefix() string {
	return s.RedisPrefix
}

func (s Store) GetSQLitePath() string {
	return s.SQLitePath
}

func (s Store) validate() error {
	switch s.Backend {
	case StoreMemory, StoreRedis, StoreSQLite:
		return nil
	default:
		return fmt.Errorf("%w: unknown STORE_BACKEND %q (memory, redis or sqlite)", apperrors.ErrConfiguration, s.Backend)
	}
}
