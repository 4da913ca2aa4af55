package staging

import (
	"context"
	"fmt"

	"go-retail-catalog/internal/config"
	"go-retail-catalog/pkg/database"

	"go.uber.org/zap"
)

// Open builds the configured backend. The returned close func releases its
// connection or files and is never nil.
func Open(ctx context.Context, cfg config.StagingConfig, log *zap.Logger) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.StagingMemory, "":
		return NewMemory(), noop, nil

	case config.StagingRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return NewRedis(client), client.Close, nil

	case config.StagingBadger:
		b, err := OpenBadger(BadgerConfig{Path: cfg.BadgerPath, Logger: log})
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown staging backend %q", cfg.Backend)
}
