package app

import (
	"context"
	"errors"

	"library-web/internal/config"
	"library-web/internal/logger"
	"library-web/internal/redis"
	"library-web/internal/session"
	"library-web/library"
)

type Infra struct {
	Library  *library.LibraryManager
	Sessions session.Store
	Redis    *redis.Client
}

// setupInfra opens the database, upgrades any plaintext passwords left from
// older deployments, and picks the session backend.
func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	lib, err := library.NewLibraryManager(cfg.DatabaseDriver, cfg.DatabaseDSN,
		library.WithBcryptCost(cfg.BcryptCost))
	if err != nil {
		return nil, err
	}

	if err := lib.Ping(ctx); err != nil {
		lib.Close()
		return nil, err
	}

	migrated, err := lib.MigrateLegacyPasswords(ctx)
	if err != nil {
		lib.Close()
		return nil, err
	}

	logger.Info("database ready", map[string]any{
		"driver":             cfg.DatabaseDriver,
		"passwords_migrated": migrated,
	})

	infra := &Infra{Library: lib}

	if cfg.RedisAddr == "" {
		infra.Sessions = session.NewMemoryStore()
		logger.Warn("REDIS_ADDR not set, sessions kept in memory", nil)
		return infra, nil
	}

	redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		lib.Close()
		return nil, err
	}
	infra.Redis = redisClient
	infra.Sessions = session.NewRedisStore(redisClient.Client)

	logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})

	return infra, nil
}

func (i *Infra) Close() error {
	var errs []error
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	errs = append(errs, i.Library.Close())
	return errors.Join(errs...)
}
