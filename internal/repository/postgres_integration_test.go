//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"contactlink/internal/database"
)

func TestPostgresStoreSuite(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("contacts"),
		tcpostgres.WithUsername("contactlink"),
		tcpostgres.WithPassword("contactlink"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := database.Open(openCtx, dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	suite.Run(t, &storeSuite{newStore: func(t *testing.T) (ContactRepository, func(int64)) {
		if _, err := db.Conn.Exec(`TRUNCATE contacts RESTART IDENTITY CASCADE`); err != nil {
			t.Fatalf("truncate contacts: %v", err)
		}
		return NewSQLStore(db.Conn), func(id int64) {
			if _, err := db.Conn.Exec(`UPDATE contacts SET deleted_at = $1 WHERE id = $2`, baseTime, id); err != nil {
				t.Fatalf("soft delete: %v", err)
			}
		}
	}})
}
