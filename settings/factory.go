package settings

import (
	"context"

	"github.com/kbukum/diarlive/logger"
)

// Open builds the store selected by cfg.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == BackendSQLite {
		return OpenSQLite(ctx, cfg, log)
	}
	return NewStatic(), nil
}
