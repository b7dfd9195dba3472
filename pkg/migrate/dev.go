package migrate

import (
	"context"
	"fmt"

	"github.com/valcrest-online/valcrest-backend/pkg/config"
	"github.com/valcrest-online/valcrest-backend/pkg/db"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on boot when AUTO_MIGRATE is set.
// Production deploys run the migrate binary explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbc *db.Client) error {
	if cfg == nil || dbc == nil {
		return fmt.Errorf("config and db client are required")
	}
	if !cfg.App.AutoMigrate || cfg.App.IsProd() {
		return nil
	}

	sqlDB, err := dbc.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap sql db: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "running startup migrations")
	}
	return Run(ctx, sqlDB, DefaultDir, "up")
}
