package service

import (
	"context"
	"errors"
	"fmt"

	"contactlink/internal/models"
)

// ErrPrimaryNotFound means the cluster query did not return the primary it was asked for.
var ErrPrimaryNotFound = errors.New("primary contact not found")

// Assemble builds the consolidated view of the cluster headed by primaryID.
func (s *ReconciliationService) Assemble(ctx context.Context, primaryID int64) (*models.IdentifyResponse, error) {
	cluster, err := s.repo.FindCluster(ctx, primaryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster: %w", err)
	}
	return buildResponse(primaryID, cluster)
}

// buildResponse orders the primary's values first, then each secondary's values in
// fetch order, skipping empties and duplicates.
func buildResponse(primaryID int64, cluster []models.Contact) (*models.IdentifyResponse, error) {
	var primary *models.Contact
	for i := range cluster {
		if cluster[i].ID == primaryID {
			primary = &cluster[i]
			break
		}
	}
	if primary == nil {
		return nil, fmt.Errorf("cluster %d: %w", primaryID, ErrPrimaryNotFound)
	}

	emails := newOrderedSet(len(cluster))
	phones := newOrderedSet(len(cluster))
	secondaryIDs := make([]int64, 0, len(cluster)-1)

	emails.add(primary.EmailValue())
	phones.add(primary.PhoneValue())
	for _, c := range cluster {
		if c.ID == primaryID {
			continue
		}
		emails.add(c.EmailValue())
		phones.add(c.PhoneValue())
		secondaryIDs = append(secondaryIDs, c.ID)
	}

	return &models.IdentifyResponse{
		Contact: models.ContactResponse{
			PrimaryContactID:    primaryID,
			Emails:              emails.values,
			PhoneNumbers:        phones.values,
			SecondaryContactIDs: secondaryIDs,
		},
	}, nil
}

type orderedSet struct {
	seen   map[string]struct{}
	values []string
}

func newOrderedSet(capacity int) *orderedSet {
	return &orderedSet{
		seen:   make(map[string]struct{}, capacity),
		values: make([]string, 0, capacity),
	}
}

func (o *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := o.seen[v]; ok {
		return
	}
	o.seen[v] = struct{}{}
	o.values = append(o.values, v)
}
