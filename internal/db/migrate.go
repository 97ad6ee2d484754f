package db

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies any pending goose migrations from dir to the
// community database. It opens its own short-lived connection through the
// pgx stdlib driver; the application pool is created afterwards.
func RunMigrations(databaseURL, dir string) error {
	conn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database for migration: %w", err)
	}
	defer conn.Close()

	if err := goose.Up(conn, dir); err != nil {
		return fmt.Errorf("apply migrations from %s: %w", dir, err)
	}

	return nil
}
