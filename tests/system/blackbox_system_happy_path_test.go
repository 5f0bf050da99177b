//go:build system

package system_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/client"

	"licensing-ledger/internal/domain"
	appTemporal "licensing-ledger/internal/temporal"
)

var _ = Describe("System blackbox happy path", Ordered, func() {
	var repoRoot string
	var cfg systemTestConfig

	BeforeAll(func() {
		if os.Getenv("RUN_BLACKBOX_SYSTEM_TEST") != "1" {
			Skip("set RUN_BLACKBOX_SYSTEM_TEST=1 to run real blackbox system test")
		}

		cfg = loadSystemTestConfig()

		var err error
		repoRoot, err = findRepoRoot()
		Expect(err).ToNot(HaveOccurred())

		By("verifying required docker compose services (including worker) are already running")
		Expect(requireComposeServicesRunning(repoRoot, cfg.RequiredComposeServices)).To(Succeed())

		By("failing fast if infrastructure is unreachable")
		Expect(waitForPostgres(cfg.PostgresDSN, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForTemporal(cfg.TemporalAddress, cfg.TemporalNamespace, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(cfg.MinioReadyURL, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(strings.TrimRight(cfg.APIBaseURL, "/")+cfg.APIHealthPath, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(strings.TrimRight(cfg.APIBaseURL, "/")+cfg.APIReadyPath, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForWorkerPoller(cfg.TemporalAddress, cfg.TemporalNamespace, cfg.TemporalTaskQueue, cfg.WorkerPollerTimeout)).To(Succeed())
		Expect(applyMigration(repoRoot, cfg.PostgresDSN)).To(Succeed())
		Expect(seedUsers(cfg.PostgresDSN, cfg.OfficerID, cfg.ApplicantID)).To(Succeed())
	})

	It("takes a proposal from draft to an issued approval over HTTP", func() {
		apiBaseURL := strings.TrimRight(cfg.APIBaseURL, "/")

		By("creating and lodging a proposal as the applicant")
		created, err := doJSON[domain.Proposal](http.MethodPost, apiBaseURL+"/v1/proposals", cfg.ApplicantID, map[string]any{
			"application_type": domain.ApplicationNewProposal,
			"title":            "System test apiary licence",
			"schema":           map[string]any{"type": "object"},
			"data":             map[string]any{"sites": 2},
			"submitter":        cfg.ApplicantID,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(created.LodgementNumber).To(HavePrefix("P"))
		Expect(created.Statuses()).To(Equal(domain.StatusPair{Customer: domain.CustomerDraft, Processing: domain.ProcessingDraft}))

		proposalURL := apiBaseURL + "/v1/proposals/" + strconv.FormatInt(created.ID, 10)
		lodged, err := doJSON[domain.Proposal](http.MethodPost, proposalURL+"/lodge", cfg.ApplicantID, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(lodged.CustomerStatus).To(Equal(domain.CustomerWithAssessor))
		Expect(lodged.LodgementDate).ToNot(BeNil())

		By("accepting every check as the officer")
		for axis, status := range map[domain.CheckAxis]string{
			domain.CheckAxisID:         string(domain.IDCheckAccepted),
			domain.CheckAxisCompliance: string(domain.ComplianceAccepted),
			domain.CheckAxisCharacter:  string(domain.CharacterAccepted),
			domain.CheckAxisReview:     string(domain.ReviewAccepted),
		} {
			_, err := doJSON[domain.Proposal](http.MethodPost, proposalURL+"/checks", cfg.OfficerID, map[string]any{
				"axis":   axis,
				"status": status,
			})
			Expect(err).ToNot(HaveOccurred())
		}

		_, err = doJSON[domain.Proposal](http.MethodPost, proposalURL+"/transition", cfg.OfficerID, map[string]any{
			"customer_status":   domain.CustomerWithAssessor,
			"processing_status": domain.ProcessingReadyToIssue,
		})
		Expect(err).ToNot(HaveOccurred())

		By("issuing the approval")
		start := time.Now().UTC()
		issued, err := doJSON[domain.Proposal](http.MethodPost, proposalURL+"/issue", cfg.OfficerID, map[string]any{
			"start_date":  start.Format(time.DateOnly),
			"expiry_date": start.AddDate(1, 0, -1).Format(time.DateOnly),
			"details":     "system test conditions",
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(issued.Statuses()).To(Equal(domain.StatusPair{Customer: domain.CustomerApproved, Processing: domain.ProcessingApproved}))
		Expect(issued.ApprovalID).ToNot(BeNil())

		approvalURL := fmt.Sprintf("%s/v1/approvals/%d", apiBaseURL, *issued.ApprovalID)
		approval, err := doGETJSON[domain.Approval](approvalURL)
		Expect(err).ToNot(HaveOccurred())
		Expect(approval.Status).To(Equal(domain.ApprovalCurrent))
		Expect(approval.LodgementNumber).To(HavePrefix("A"))
		Expect(approval.CurrentProposalID).To(HaveValue(Equal(created.ID)))

		By("verifying the audit trail in Postgres")
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		Expect(err).ToNot(HaveOccurred())
		defer db.Close()
		Expect(db.Ping()).To(Succeed())

		whats, err := fetchStringRows(db, `SELECT what FROM user_actions WHERE record = $1 AND record_id = $2 ORDER BY id`, string(domain.RecordProposal), created.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(whats).To(HaveLen(8))

		approvalWhats, err := fetchStringRows(db, `SELECT what FROM user_actions WHERE record = $1 AND record_id = $2 ORDER BY id`, string(domain.RecordApproval), approval.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(approvalWhats).ToNot(BeEmpty())
	})

	It("runs the housekeeping workflow through a real worker", func() {
		apiBaseURL := strings.TrimRight(cfg.APIBaseURL, "/")

		By("starting housekeeping over HTTP")
		started, err := doJSON[housekeepingResponse](http.MethodPost, apiBaseURL+"/v1/housekeeping", 0, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(started.WorkflowID).To(HavePrefix("housekeeping-manual-"))

		temporalClient, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalAddress,
			Namespace: cfg.TemporalNamespace,
		})
		Expect(err).ToNot(HaveOccurred())
		defer temporalClient.Close()

		By("waiting for the workflow result")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.WorkflowCompletionTimeout)
		defer cancel()
		var result appTemporal.HousekeepingResult
		Expect(temporalClient.GetWorkflow(ctx, started.WorkflowID, started.RunID).Get(ctx, &result)).To(Succeed())
		Expect(result.Expired).To(BeNumerically(">=", 0))
		Expect(result.Purged).To(BeNumerically(">=", 0))

		By("validating activity order and payloads from workflow history")
		trace, err := collectActivityTrace(context.Background(), temporalClient, started.WorkflowID)
		Expect(err).ToNot(HaveOccurred())
		Expect(trace.ScheduledOrder).To(Equal(cfg.ExpectedActivityOrder))
		Expect(trace.CompletedOrder).To(Equal(cfg.ExpectedActivityOrder))

		expireIn := trace.Inputs["ExpireApprovalsActivity"].(appTemporal.ExpireApprovalsInput)
		Expect(expireIn.AsOf).To(BeTemporally("~", result.AsOf, time.Second))

		expireOut := trace.Outputs["ExpireApprovalsActivity"].(appTemporal.ExpireApprovalsOutput)
		Expect(expireOut.Expired).To(Equal(result.Expired))

		purgeOut := trace.Outputs["PurgeOrphanedCollectionsActivity"].(appTemporal.PurgeOrphanedCollectionsOutput)
		Expect(purgeOut.Purged).To(Equal(result.Purged))
		Expect(purgeOut.Cutoff).To(BeTemporally("<", result.AsOf))
	})
})
