package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"netblock/pkg/config"
	"netblock/pkg/logger"
)

// Migrator применяет встроенные SQL миграции через goose
type Migrator struct {
	pool       *pgxpool.Pool
	migrations fs.FS
	dir        string
}

// NewMigrator создаёт новый мигратор
func NewMigrator(pool *pgxpool.Pool, migrations fs.FS, dir string) *Migrator {
	return &Migrator{pool: pool, migrations: migrations, dir: dir}
}

// withGoose открывает database/sql поверх пула и настраивает goose
func (m *Migrator) withGoose(fn func(db *sql.DB) error) error {
	db := stdlib.OpenDBFromPool(m.pool)
	defer db.Close()

	goose.SetBaseFS(m.migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return fn(db)
}

// Up применяет все миграции
func (m *Migrator) Up(ctx context.Context) error {
	return m.withGoose(func(db *sql.DB) error {
		if err := goose.UpContext(ctx, db, m.dir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Log.Info("migrations applied")
		return nil
	})
}

// Down откатывает последнюю миграцию
func (m *Migrator) Down(ctx context.Context) error {
	return m.withGoose(func(db *sql.DB) error {
		if err := goose.DownContext(ctx, db, m.dir); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		logger.Log.Info("migration rolled back")
		return nil
	})
}

// Version возвращает текущую версию схемы
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.withGoose(func(db *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		version = v
		return err
	})
	return version, err
}

// RunMigrations запускает миграции если включено в конфигурации
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, cfg *config.DatabaseConfig, migrations fs.FS, dir string) error {
	if !cfg.AutoMigrate {
		logger.Log.Debug("auto-migration is disabled")
		return nil
	}
	return NewMigrator(pool, migrations, dir).Up(ctx)
}
