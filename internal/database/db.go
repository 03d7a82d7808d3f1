package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect identifies the SQL backend behind a DB.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// DB wraps the sqlx connection together with the dialect it speaks.
type DB struct {
	Conn    *sqlx.DB
	Dialect Dialect
	dsn     string
}

// Target is a parsed DATABASE_URL.
type Target struct {
	Dialect Dialect
	DSN     string
}

// ParseURL maps a DATABASE_URL onto a driver. postgres:// and postgresql:// select
// PostgreSQL; anything else is a SQLite file path, optionally prefixed with sqlite://.
func ParseURL(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("database url is empty")
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Target{Dialect: DialectPostgres, DSN: raw}, nil
	case strings.HasPrefix(lower, "memory://"):
		return Target{}, fmt.Errorf("memory:// is not a SQL database")
	}

	path := strings.TrimPrefix(raw, "sqlite://")
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return Target{Dialect: DialectSQLite, DSN: path + sep + "_foreign_keys=on&_busy_timeout=5000"}, nil
}

// Open creates a new database connection and runs migrations
func Open(ctx context.Context, rawURL string) (*DB, error) {
	target, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := sqlx.Open(string(target.Dialect), target.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if target.Dialect == DialectSQLite {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY churn.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(20)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Conn: conn, Dialect: target.Dialect, dsn: target.DSN}
	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	if db == nil || db.Conn == nil {
		return nil
	}
	return db.Conn.Close()
}
