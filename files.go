package auth

import (
	"context"
	"embed"

	"github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

//go:embed data/sql/migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "data/sql/migrations"

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// Migrate brings the SQL schema up to date. Applied versions are tracked
// by goose so running it again is a no-op.
func Migrate(ctx context.Context, db *bun.DB) error {
	if db == nil {
		return errors.New("database is required", errors.CategoryInternal)
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(gooseDialect(db.Dialect().Name())); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to set migration dialect")
	}

	if err := goose.UpContext(ctx, db.DB, migrationsDir); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to apply migrations")
	}

	return nil
}

func gooseDialect(name dialect.Name) string {
	switch name {
	case dialect.SQLite:
		return "sqlite3"
	case dialect.PG:
		return "postgres"
	case dialect.MySQL:
		return "mysql"
	case dialect.MSSQL:
		return "mssql"
	default:
		return name.String()
	}
}
