// Package migrations встраивает SQL миграции схемы истории запусков.
package migrations

import "embed"

// PostgresMigrations миграции для goose; каталог внутри FS - PostgresDir
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS

// PostgresDir каталог миграций внутри PostgresMigrations
const PostgresDir = "postgres"
