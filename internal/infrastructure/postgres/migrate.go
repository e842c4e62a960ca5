package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/jhoicas/cokelateh-api/migrations"
)

// gooseUp se sustituye en pruebas.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate aplica las migraciones embebidas sobre el pool. goose trabaja con
// database/sql, así que se abre un *sql.DB que comparte las conexiones del pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// No se cierra: el ciclo de vida de las conexiones es del pool.
	return migrateDB(ctx, stdlib.OpenDBFromPool(pool))
}

func migrateDB(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUp(ctx, db, "."); err != nil {
		return fmt.Errorf("migraciones: %w", err)
	}
	return nil
}
