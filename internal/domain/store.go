package domain

import (
	"context"
	"time"
)

// PlanStore records relay exchanges. Recording is best-effort: a store error
// never changes the reply the caller receives.
type PlanStore interface {
	Record(ctx context.Context, rec PlanRecord) error
	Recent(ctx context.Context, limit int) ([]PlanRecord, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	Close() error
}
