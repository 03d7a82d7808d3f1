package cli

import (
	"context"
	"fmt"
	"strings"

	"contactlink/internal/config"
	"contactlink/internal/database"
	"contactlink/internal/repository"
)

const memoryURL = "memory://"

// contactStore is a repository that can also report its health.
type contactStore interface {
	repository.ContactRepository
	Ping(ctx context.Context) error
}

func isMemory(url string) bool {
	return strings.HasPrefix(strings.TrimSpace(url), memoryURL)
}

// openStore returns the configured store and a function that releases it.
// SQL stores are migrated on open.
func openStore(ctx context.Context, cfg *config.Config) (contactStore, func() error, error) {
	if isMemory(cfg.DatabaseURL) {
		return repository.NewMemoryStore(), func() error { return nil }, nil
	}
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return repository.NewSQLStore(db.Conn), db.Close, nil
}
