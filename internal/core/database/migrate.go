package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"lostfound-api/internal/core/logger"
	"lostfound-api/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	MigratorAuto  = "auto"
	MigratorGoose = "goose"
)

// Migrate postgres + goose 时执行内嵌 SQL 迁移，其余走 AutoMigrate
func Migrate(ctx context.Context, db *gorm.DB, driver, migrator string, l *zap.Logger) error {
	if migrator == MigratorGoose {
		if driver != "postgres" {
			return fmt.Errorf("goose migrations only ship for postgres, got %q", driver)
		}
		return gooseUp(ctx, db, l)
	}
	return db.WithContext(ctx).AutoMigrate(domain.Models()...)
}

func gooseUp(ctx context.Context, db *gorm.DB, l *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	if l != nil {
		if std, e := logger.ToStdLogger(l.Named("goose"), zapcore.InfoLevel); e == nil {
			goose.SetLogger(std)
		}
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, sqlDB, "migrations")
}
