// Package repository persists contacts for the identity resolver.
//
// Two stores share one contract: SQLStore (SQLite or PostgreSQL through sqlx) and
// MemoryStore. Reads skip soft-deleted rows and return contacts in fetch order,
// oldest created_at first with id as the tie-break.
package repository

import (
	"context"
	"errors"
	"time"

	"contactlink/internal/models"
)

// ErrNotFound is returned when a write targets a contact that does not exist.
var ErrNotFound = errors.New("contact not found")

// ContactRepository is the storage contract the resolver depends on.
type ContactRepository interface {
	// FindByEmailOrPhone returns contacts whose email equals email or whose phone
	// number equals phoneNumber. Empty arguments are not used as criteria.
	FindByEmailOrPhone(ctx context.Context, email, phoneNumber string) ([]models.Contact, error)
	Create(ctx context.Context, c models.NewContact) (*models.Contact, error)
	// UpdateToSecondary demotes contactID under linkedID and re-points the secondaries
	// that were linked to contactID. Applying it twice has no further effect.
	UpdateToSecondary(ctx context.Context, contactID, linkedID int64, now time.Time) error
	// FindCluster returns the primary and every contact linked to it.
	FindCluster(ctx context.Context, primaryID int64) ([]models.Contact, error)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
