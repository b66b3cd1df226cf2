package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/smallbiznis/ridepay/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
		if cfg.DBType != "postgres" {
			log.Warn("skipping migrations for non-postgres database", zap.String("type", cfg.DBType))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB, log.Named("migration")); err != nil {
			return err
		}

		return seed.EnsurePrimaryPaymentKey(conn, genID, seed.PrimaryKey{
			Name:      cfg.PaymentKey.Name,
			Identity:  cfg.PaymentKey.Identity,
			SecretKey: cfg.PaymentKey.SecretKey,
		})
	}),
)
