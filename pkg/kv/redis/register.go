package redis

import (
	"fmt"

	"github.com/tensorline/tensorline-backend/pkg/kv"
)

func init() {
	kv.RegisterBackend(kv.BackendRedis, func(cfg kv.Config) (kv.Store, error) {
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis address is required when backend is 'redis'")
		}
		return New(cfg.RedisAddr)
	})
}

// NewStore creates a new Redis-backed store.
func NewStore(addr string) (kv.Store, error) {
	return New(addr)
}
