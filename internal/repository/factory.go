package repository

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/carbon-tracker/internal/common"
)

// NewStore opens the configured backend. SQL backends are migrated before use.
func NewStore(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "redis":
		return OpenRedis(ctx, cfg, logger)
	case "postgres", "sqlite":
		db, err := Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		s := NewSQLStore(db, logger)
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, common.InvalidInputErrorf("unknown store backend %q", cfg.Backend)
	}
}
