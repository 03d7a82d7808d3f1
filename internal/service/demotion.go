package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"contactlink/internal/logging"
)

// DemotionError reports a merge that stopped part way. Contacts in Applied are
// already secondaries of PrimaryID; Failed and everything after it were not touched.
// Re-running the same batch is safe.
type DemotionError struct {
	PrimaryID int64
	Applied   []int64
	Failed    int64
	Err       error
}

func (e *DemotionError) Error() string {
	return fmt.Sprintf("demote contact %d under %d (%d already applied): %v", e.Failed, e.PrimaryID, len(e.Applied), e.Err)
}

func (e *DemotionError) Unwrap() error { return e.Err }

// demote issues one UpdateToSecondary per losing primary, in order. The batch is
// not a transaction.
func (s *ReconciliationService) demote(ctx context.Context, primaryID int64, losers []int64, now time.Time) error {
	applied := make([]int64, 0, len(losers))
	for _, id := range losers {
		if err := s.repo.UpdateToSecondary(ctx, id, primaryID, now); err != nil {
			s.logger.Warn("merge interrupted",
				zap.Int64(logging.FieldPrimaryID, primaryID),
				zap.Int64s("applied", applied),
				zap.Int64("failed", id),
				zap.Error(err),
			)
			s.metrics.RecordDemoted(len(applied))
			return &DemotionError{PrimaryID: primaryID, Applied: applied, Failed: id, Err: err}
		}
		applied = append(applied, id)
	}
	s.metrics.RecordDemoted(len(applied))
	return nil
}
