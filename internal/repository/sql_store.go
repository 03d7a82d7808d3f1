package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"contactlink/internal/models"
)

const contactColumns = `id, phone_number, email, linked_id, link_precedence, created_at, updated_at, deleted_at`

// SQLStore implements ContactRepository on top of sqlx. Queries are written with ?
// placeholders and rebound for the driver in use.
type SQLStore struct {
	db *sqlx.DB
}

var _ ContactRepository = (*SQLStore)(nil)

// NewSQLStore creates a store using the provided database handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// FindByEmailOrPhone finds all contacts matching email OR phone number.
func (s *SQLStore) FindByEmailOrPhone(ctx context.Context, email, phoneNumber string) ([]models.Contact, error) {
	var (
		conds []string
		args  []any
	)
	if email != "" {
		conds = append(conds, "email = ?")
		args = append(args, email)
	}
	if phoneNumber != "" {
		conds = append(conds, "phone_number = ?")
		args = append(args, phoneNumber)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE deleted_at IS NULL AND (` + strings.Join(conds, " OR ") + `)
		ORDER BY created_at, id`

	var contacts []models.Contact
	if err := s.db.SelectContext(ctx, &contacts, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query contacts by email or phone: %w", err)
	}
	return contacts, nil
}

// Create inserts a contact and returns it with the assigned id.
func (s *SQLStore) Create(ctx context.Context, c models.NewContact) (*models.Contact, error) {
	query := s.db.Rebind(`INSERT INTO contacts (phone_number, email, linked_id, link_precedence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)

	phone, email := nullable(c.PhoneNumber), nullable(c.Email)
	var id int64
	err := s.db.QueryRowxContext(ctx, query, phone, email, c.LinkedID, c.LinkPrecedence, c.Now, c.Now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert %s contact: %w", c.LinkPrecedence, err)
	}

	return &models.Contact{
		ID:             id,
		PhoneNumber:    phone,
		Email:          email,
		LinkedID:       c.LinkedID,
		LinkPrecedence: c.LinkPrecedence,
		CreatedAt:      c.Now,
		UpdatedAt:      c.Now,
	}, nil
}

// UpdateToSecondary demotes one contact and moves its secondaries in a single
// transaction. Batches of demotions are not atomic as a whole.
func (s *SQLStore) UpdateToSecondary(ctx context.Context, contactID, linkedID int64, now time.Time) error {
	if contactID == linkedID {
		return fmt.Errorf("contact %d cannot be linked to itself", contactID)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin demotion tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE contacts
		SET link_precedence = ?, linked_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`),
		models.PrecedenceSecondary, linkedID, now, contactID)
	if err != nil {
		return fmt.Errorf("demote contact %d: %w", contactID, err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("demote contact %d: %w", contactID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE contacts
		SET linked_id = ?, updated_at = ?
		WHERE linked_id = ? AND deleted_at IS NULL`),
		linkedID, now, contactID); err != nil {
		return fmt.Errorf("relink secondaries of %d: %w", contactID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit demotion of %d: %w", contactID, err)
	}
	return nil
}

// FindCluster gets the primary contact and all secondary contacts.
func (s *SQLStore) FindCluster(ctx context.Context, primaryID int64) ([]models.Contact, error) {
	query := s.db.Rebind(`SELECT ` + contactColumns + ` FROM contacts
		WHERE deleted_at IS NULL AND (id = ? OR linked_id = ?)
		ORDER BY created_at, id`)

	var contacts []models.Contact
	if err := s.db.SelectContext(ctx, &contacts, query, primaryID, primaryID); err != nil {
		return nil, fmt.Errorf("query cluster %d: %w", primaryID, err)
	}
	return contacts, nil
}

// Ping checks the underlying connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
