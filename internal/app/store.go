package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/hamed0406/apistatus/internal/config"
	"github.com/hamed0406/apistatus/internal/repo"
	"github.com/hamed0406/apistatus/internal/repo/memory"
	mongostore "github.com/hamed0406/apistatus/internal/repo/mongo"
	"github.com/hamed0406/apistatus/internal/repo/postgres"
)

// CloseFunc releases whatever backs a store.
type CloseFunc func(ctx context.Context) error

// OpenStore picks the backend from cfg: Mongo when MONGODB_URI is set,
// otherwise Postgres when DATABASE_URL is set, otherwise in-memory.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.StatusStore, CloseFunc, error) {
	h := repo.HistoryOptions{Policy: cfg.Policy(), Limit: cfg.HistoryLimit}

	switch {
	case cfg.MongoURI != "":
		s, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.Collection, h, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case cfg.DatabaseURL != "":
		s, err := postgres.New(ctx, cfg.DatabaseURL, cfg.Collection, h, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func(context.Context) error { s.Close(); return nil }, nil
	default:
		logger.Warn("memory_store_in_use", zap.String("hint", "set MONGODB_URI or DATABASE_URL to persist statuses"))
		return memory.New(h), func(context.Context) error { return nil }, nil
	}
}
