package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"contactlink/internal/logging"
	"contactlink/internal/metrics"
	"contactlink/internal/models"
	"contactlink/internal/repository"
)

// ErrNoIdentifier rejects requests that carry neither an email nor a phone number.
var ErrNoIdentifier = errors.New("either email or phoneNumber must be provided")

// ReconciliationService handles identity reconciliation logic
type ReconciliationService struct {
	repo    repository.ContactRepository
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option customizes a ReconciliationService.
type Option func(*ReconciliationService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *ReconciliationService) { s.now = now }
}

// NewReconciliationService creates a new reconciliation service. logger and m may be nil.
func NewReconciliationService(repo repository.ContactRepository, logger *zap.Logger, m *metrics.Metrics, opts ...Option) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReconciliationService{
		repo:    repo,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identify resolves the request to a cluster, applying any writes the classifier
// asks for, and returns the consolidated view. Either a full response or an error
// is returned.
//
// After a merge the matched set is not re-read: the decision is computed from the
// first query. If a demotion batch is interrupted, the next request that touches
// the cluster still sees more than one primary and finishes the merge.
func (s *ReconciliationService) Identify(ctx context.Context, req models.IdentifyRequest) (*models.IdentifyResponse, error) {
	email, phoneNumber := req.Values()
	if email == "" && phoneNumber == "" {
		return nil, ErrNoIdentifier
	}

	matches, err := s.findMatches(ctx, email, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to find linked contacts: %w", err)
	}

	decision := Classify(matches, email, phoneNumber)
	now := s.now().UTC().Truncate(time.Microsecond)
	primaryID := decision.PrimaryID

	switch decision.Outcome {
	case OutcomeNewPrimary:
		created, err := s.create(ctx, email, phoneNumber, nil, models.PrecedencePrimary, now)
		if err != nil {
			return nil, fmt.Errorf("failed to create primary contact: %w", err)
		}
		primaryID = created.ID

	case OutcomeMerge:
		if err := s.demote(ctx, primaryID, decision.Demote, now); err != nil {
			return nil, fmt.Errorf("failed to merge clusters: %w", err)
		}
		s.logger.Info("merged clusters",
			zap.Int64(logging.FieldPrimaryID, primaryID),
			zap.Int64s("demoted", decision.Demote),
		)

	case OutcomeAttach, OutcomeAttachViaSecondary:
		if primaryID == 0 {
			return nil, fmt.Errorf("matched secondaries carry no primary link: %w", ErrPrimaryNotFound)
		}
		if decision.CreateSecondary {
			linked := primaryID
			if _, err := s.create(ctx, email, phoneNumber, &linked, models.PrecedenceSecondary, now); err != nil {
				return nil, fmt.Errorf("failed to create secondary contact: %w", err)
			}
		}
	}

	s.metrics.RecordOutcome(string(decision.Outcome))
	s.logger.Debug("identify resolved",
		zap.String(logging.FieldOutcome, string(decision.Outcome)),
		zap.Int64(logging.FieldPrimaryID, primaryID),
		zap.Int("matches", len(matches)),
		zap.Bool("created_secondary", decision.CreateSecondary),
	)

	return s.Assemble(ctx, primaryID)
}

// findMatches is the match finder: every contact sharing the email or the phone number.
// When the matches span more than one cluster, the primaries of clusters reached only
// through a secondary are added so the classifier merges every bridged cluster.
func (s *ReconciliationService) findMatches(ctx context.Context, email, phoneNumber string) ([]models.Contact, error) {
	matches, err := s.repo.FindByEmailOrPhone(ctx, email, phoneNumber)
	if err != nil {
		return nil, err
	}

	clusters, missing := unmatchedPrimaries(matches)
	if clusters < 2 {
		return matches, nil
	}
	for _, id := range missing {
		cluster, err := s.repo.FindCluster(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load cluster %d: %w", id, err)
		}
		for _, c := range cluster {
			if c.ID == id && c.IsPrimary() {
				matches = append(matches, c)
				break
			}
		}
	}
	return matches, nil
}

func (s *ReconciliationService) create(ctx context.Context, email, phoneNumber string, linkedID *int64, precedence models.LinkPrecedence, now time.Time) (*models.Contact, error) {
	c, err := s.repo.Create(ctx, models.NewContact{
		Email:          email,
		PhoneNumber:    phoneNumber,
		LinkedID:       linkedID,
		LinkPrecedence: precedence,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCreated(string(precedence))
	return c, nil
}
