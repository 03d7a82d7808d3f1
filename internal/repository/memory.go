package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"contactlink/internal/models"
)

// MemoryStore is an in-process ContactRepository. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	contacts []models.Contact
	nextID   int64
}

var _ ContactRepository = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. Ids start at 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) FindByEmailOrPhone(_ context.Context, email, phoneNumber string) ([]models.Contact, error) {
	if email == "" && phoneNumber == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Contact
	for _, c := range s.contacts {
		if c.DeletedAt != nil {
			continue
		}
		if (email != "" && c.EmailValue() == email) || (phoneNumber != "" && c.PhoneValue() == phoneNumber) {
			out = append(out, clone(c))
		}
	}
	sortFetchOrder(out)
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, nc models.NewContact) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nc.LinkedID != nil && s.indexOf(*nc.LinkedID) < 0 {
		return nil, fmt.Errorf("insert %s contact: linked contact %d: %w", nc.LinkPrecedence, *nc.LinkedID, ErrNotFound)
	}

	c := models.Contact{
		ID:             s.nextID,
		PhoneNumber:    nullable(nc.PhoneNumber),
		Email:          nullable(nc.Email),
		LinkPrecedence: nc.LinkPrecedence,
		CreatedAt:      nc.Now,
		UpdatedAt:      nc.Now,
	}
	if nc.LinkedID != nil {
		id := *nc.LinkedID
		c.LinkedID = &id
	}
	s.nextID++
	s.contacts = append(s.contacts, c)

	out := clone(c)
	return &out, nil
}

func (s *MemoryStore) UpdateToSecondary(_ context.Context, contactID, linkedID int64, now time.Time) error {
	if contactID == linkedID {
		return fmt.Errorf("contact %d cannot be linked to itself", contactID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(contactID)
	if idx < 0 {
		return fmt.Errorf("demote contact %d: %w", contactID, ErrNotFound)
	}

	target := &s.contacts[idx]
	target.LinkPrecedence = models.PrecedenceSecondary
	target.LinkedID = &linkedID
	target.UpdatedAt = now

	for i := range s.contacts {
		c := &s.contacts[i]
		if c.DeletedAt == nil && c.LinkedID != nil && *c.LinkedID == contactID {
			relinked := linkedID
			c.LinkedID = &relinked
			c.UpdatedAt = now
		}
	}
	return nil
}

func (s *MemoryStore) FindCluster(_ context.Context, primaryID int64) ([]models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Contact
	for _, c := range s.contacts {
		if c.DeletedAt != nil {
			continue
		}
		if c.ID == primaryID || (c.LinkedID != nil && *c.LinkedID == primaryID) {
			out = append(out, clone(c))
		}
	}
	sortFetchOrder(out)
	return out, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Seed inserts fully formed contacts, keeping their ids and timestamps. Tests use it
// to build clusters that the resolver itself would never produce.
func (s *MemoryStore) Seed(contacts ...models.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range contacts {
		s.contacts = append(s.contacts, clone(c))
		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
	}
}

// All returns every stored contact in id order.
func (s *MemoryStore) All() []models.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) indexOf(id int64) int {
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			return i
		}
	}
	return -1
}

func sortFetchOrder(contacts []models.Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		if !contacts[i].CreatedAt.Equal(contacts[j].CreatedAt) {
			return contacts[i].CreatedAt.Before(contacts[j].CreatedAt)
		}
		return contacts[i].ID < contacts[j].ID
	})
}

func clone(c models.Contact) models.Contact {
	out := c
	if c.Email != nil {
		v := *c.Email
		out.Email = &v
	}
	if c.PhoneNumber != nil {
		v := *c.PhoneNumber
		out.PhoneNumber = &v
	}
	if c.LinkedID != nil {
		v := *c.LinkedID
		out.LinkedID = &v
	}
	if c.DeletedAt != nil {
		v := *c.DeletedAt
		out.DeletedAt = &v
	}
	return out
}
