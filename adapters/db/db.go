// Package db stores metric records and reports with sqlx over PostgreSQL or
// SQLite. Queries are written with ? placeholders and rebound per driver.
package db

import (
	"context"
	"time"

	"adpulse/internal/errors"
	"adpulse/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported driver names
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// timeLayout keeps stored timestamps fixed-width so text ordering is
// chronological
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, errors.ConfigInvalid("unsupported database driver " + driver)
	}

	conn, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to "+driver, err)
	}

	if driver == DriverSQLite {
		// one writer keeps in-memory databases shared and avoids SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	return conn, nil
}

// OpenAndMigrate opens the database and applies the schema
func OpenAndMigrate(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	conn, err := Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := migration.NewRunner().Run(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
