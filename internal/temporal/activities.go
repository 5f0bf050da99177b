package temporal

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
)

// Housekeeper is the part of the service the housekeeping activities drive.
type Housekeeper interface {
	ExpireApprovals(ctx context.Context, today time.Time) (int, error)
	PurgeOrphanedCollections(ctx context.Context, cutoff time.Time) (int, error)
}

type Activities struct {
	Service   Housekeeper
	OrphanAge time.Duration
}

type ExpireApprovalsInput struct {
	AsOf time.Time
}

type ExpireApprovalsOutput struct {
	Expired int
}

type PurgeOrphanedCollectionsInput struct {
	AsOf time.Time
}

type PurgeOrphanedCollectionsOutput struct {
	Purged int
	Cutoff time.Time
}

// ExpireApprovalsActivity is safe to retry: approvals already expired are
// not picked up again.
func (a *Activities) ExpireApprovalsActivity(ctx context.Context, input ExpireApprovalsInput) (ExpireApprovalsOutput, error) {
	n, err := a.Service.ExpireApprovals(ctx, input.AsOf)
	if err != nil {
		return ExpireApprovalsOutput{}, err
	}
	activity.GetLogger(ctx).Info("approvals expired", "as_of", input.AsOf.Format(time.DateOnly), "count", n)
	return ExpireApprovalsOutput{Expired: n}, nil
}

func (a *Activities) PurgeOrphanedCollectionsActivity(ctx context.Context, input PurgeOrphanedCollectionsInput) (PurgeOrphanedCollectionsOutput, error) {
	age := a.OrphanAge
	if age <= 0 {
		age = 24 * time.Hour
	}
	cutoff := input.AsOf.Add(-age)
	n, err := a.Service.PurgeOrphanedCollections(ctx, cutoff)
	if err != nil {
		return PurgeOrphanedCollectionsOutput{}, err
	}
	activity.GetLogger(ctx).Info("orphaned collections purged", "cutoff", cutoff.Format(time.RFC3339), "count", n)
	return PurgeOrphanedCollectionsOutput{Purged: n, Cutoff: cutoff}, nil
}
