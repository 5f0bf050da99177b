package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/workflow"
)

const HousekeepingWorkflowName = "HousekeepingWorkflow"

type HousekeepingInput struct {
	// AsOf defaults to the workflow clock.
	AsOf time.Time
}

type HousekeepingResult struct {
	AsOf    time.Time
	Expired int
	Purged  int
}

// HousekeepingWorkflow expires lapsed approvals, then removes temporary
// uploads that were never attached to a proposal. A failed purge does not
// undo the expiry.
func HousekeepingWorkflow(ctx workflow.Context, input HousekeepingInput) (HousekeepingResult, error) {
	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = workflow.Now(ctx).UTC()
	}
	result := HousekeepingResult{AsOf: asOf}

	var expired ExpireApprovalsOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyExpireApprovals),
		(*Activities).ExpireApprovalsActivity, ExpireApprovalsInput{AsOf: asOf}).Get(ctx, &expired); err != nil {
		return result, err
	}
	result.Expired = expired.Expired

	var purged PurgeOrphanedCollectionsOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyPurgeOrphanedCollections),
		(*Activities).PurgeOrphanedCollectionsActivity, PurgeOrphanedCollectionsInput{AsOf: asOf}).Get(ctx, &purged); err != nil {
		workflow.GetLogger(ctx).Warn("orphan purge failed", "error", err)
		return result, nil
	}
	result.Purged = purged.Purged
	return result, nil
}

// HousekeepingStartOptions describes the cron execution the worker keeps
// running. An empty schedule starts a single run.
func HousekeepingStartOptions(prefix, taskQueue, cron string) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:           fmt.Sprintf("%s-cron", prefix),
		TaskQueue:    taskQueue,
		CronSchedule: cron,
	}
}
