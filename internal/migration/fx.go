package migration

import (
	auditdomain "github.com/herbtrace/herbtrace/internal/audit/domain"
	batchdomain "github.com/herbtrace/herbtrace/internal/batch/domain"
	"github.com/herbtrace/herbtrace/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL migrations target postgres; the other dialects are
		// for development and tests, where AutoMigrate suffices.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&batchdomain.Batch{},
				&batchdomain.Event{},
				&batchdomain.LedgerReceipt{},
				&auditdomain.AuditLog{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
