package temporal

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"
)

type activityTrace struct {
	mu sync.Mutex

	startedOrder   []string
	completedOrder []string

	expireIn *ExpireApprovalsInput
	purgeIn  *PurgeOrphanedCollectionsInput
}

func (t *activityTrace) recordStarted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedOrder = append(t.startedOrder, name)
}

func (t *activityTrace) recordCompleted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completedOrder = append(t.completedOrder, name)
}

var _ = Describe("HousekeepingWorkflow blackbox", func() {
	var (
		env     *testsuite.TestWorkflowEnvironment
		service *fakeHousekeeper
		trace   *activityTrace
		asOf    time.Time
	)

	BeforeEach(func() {
		var suite testsuite.WorkflowTestSuite
		env = suite.NewTestWorkflowEnvironment()
		service = &fakeHousekeeper{expireCount: 4, purgeCount: 1}
		trace = &activityTrace{}
		asOf = time.Date(2026, 3, 14, 0, 5, 0, 0, time.UTC)

		acts := &Activities{Service: service, OrphanAge: time.Hour}
		env.RegisterWorkflow(HousekeepingWorkflow)
		env.RegisterActivity(acts.ExpireApprovalsActivity)
		env.RegisterActivity(acts.PurgeOrphanedCollectionsActivity)

		env.SetOnActivityStartedListener(func(info *activity.Info, _ context.Context, args converter.EncodedValues) {
			trace.recordStarted(info.ActivityType.Name)

			switch info.ActivityType.Name {
			case "ExpireApprovalsActivity":
				var in ExpireApprovalsInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.expireIn = &in
				trace.mu.Unlock()
			case "PurgeOrphanedCollectionsActivity":
				var in PurgeOrphanedCollectionsInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.purgeIn = &in
				trace.mu.Unlock()
			}
		})
		env.SetOnActivityCompletedListener(func(info *activity.Info, _ converter.EncodedValue, err error) {
			if err == nil {
				trace.recordCompleted(info.ActivityType.Name)
			}
		})
	})

	It("runs expiry before the orphan purge with the same as-of time", func() {
		env.ExecuteWorkflow(HousekeepingWorkflow, HousekeepingInput{AsOf: asOf})

		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).NotTo(HaveOccurred())

		Expect(trace.startedOrder).To(Equal([]string{"ExpireApprovalsActivity", "PurgeOrphanedCollectionsActivity"}))
		Expect(trace.completedOrder).To(Equal(trace.startedOrder))
		Expect(trace.expireIn.AsOf).To(BeTemporally("==", asOf))
		Expect(trace.purgeIn.AsOf).To(BeTemporally("==", asOf))

		var result HousekeepingResult
		Expect(env.GetWorkflowResult(&result)).To(Succeed())
		Expect(result.Expired).To(Equal(4))
		Expect(result.Purged).To(Equal(1))
		Expect(service.cutoffs).To(ConsistOf(BeTemporally("==", asOf.Add(-time.Hour))))
	})

	It("does not purge when expiry fails", func() {
		service.expireErr = context.DeadlineExceeded

		env.ExecuteWorkflow(HousekeepingWorkflow, HousekeepingInput{AsOf: asOf})

		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).To(HaveOccurred())
		Expect(trace.startedOrder).NotTo(ContainElement("PurgeOrphanedCollectionsActivity"))
		Expect(service.expiredAt).NotTo(BeEmpty())
	})
})
