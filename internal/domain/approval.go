package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type SurrenderDetails struct {
	SurrenderDate time.Time `json:"surrender_date"`
	Details       string    `json:"details,omitempty"`
}

type SuspensionDetails struct {
	FromDate time.Time  `json:"from_date"`
	ToDate   *time.Time `json:"to_date,omitempty"`
	Details  string     `json:"details,omitempty"`
}

// IntentDetails carries the values written when a staged intent is applied.
// A zero Date means the day the intent is applied.
type IntentDetails struct {
	Date    time.Time  `json:"date"`
	ToDate  *time.Time `json:"to_date,omitempty"`
	Details string     `json:"details,omitempty"`
}

// ApiarySiteOnApproval links an apiary site to an approval with per-site
// licensing metadata.
type ApiarySiteOnApproval struct {
	ApprovalID   int64    `json:"approval_id"`
	ApiarySiteID int64    `json:"apiary_site_id"`
	SiteStatus   string   `json:"site_status"`
	SiteCategory string   `json:"site_category,omitempty"`
	Licensed     bool     `json:"licensed_site"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

type Approval struct {
	ID                int64          `json:"id"`
	LodgementNumber   string         `json:"lodgement_number"`
	Status            ApprovalStatus `json:"status"`
	ReplacedByID      *int64         `json:"replaced_by,omitempty"`
	CurrentProposalID *int64         `json:"current_proposal,omitempty"`
	ProxyApplicantID  *int64         `json:"proxy_applicant,omitempty"`

	IssueDate         time.Time  `json:"issue_date"`
	OriginalIssueDate *time.Time `json:"original_issue_date,omitempty"`
	StartDate         time.Time  `json:"start_date"`
	ExpiryDate        time.Time  `json:"expiry_date"`

	SurrenderDetails    *SurrenderDetails  `json:"surrender_details,omitempty"`
	SuspensionDetails   *SuspensionDetails `json:"suspension_details,omitempty"`
	CancellationDetails string             `json:"cancellation_details,omitempty"`
	CancellationDate    *time.Time         `json:"cancellation_date,omitempty"`

	SetToCancel    bool `json:"set_to_cancel"`
	SetToSuspend   bool `json:"set_to_suspend"`
	SetToSurrender bool `json:"set_to_surrender"`

	RenewalSent            bool                   `json:"renewal_sent"`
	Reissued               bool                   `json:"reissued"`
	ApiaryApproval         bool                   `json:"apiary_approval"`
	NoAnnualRentalFeeUntil *time.Time             `json:"no_annual_rental_fee_until,omitempty"`
	ExtractedFields        json.RawMessage        `json:"extracted_fields,omitempty"`
	ApiarySites            []ApiarySiteOnApproval `json:"apiary_sites,omitempty"`
	Migrated               bool                   `json:"migrated"`
}

// IssuanceTerms are the dates an approval is issued with.
type IssuanceTerms struct {
	StartDate  time.Time
	ExpiryDate time.Time
	Details    string
}

type proposedIssuance struct {
	StartDate  *string `json:"start_date"`
	ExpiryDate *string `json:"expiry_date"`
	Details    string  `json:"details"`
}

// ParseProposedIssuance reads the issuance terms an assessor proposed on a
// proposal.
func ParseProposedIssuance(raw json.RawMessage) (IssuanceTerms, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return IssuanceTerms{}, fmt.Errorf("%w: no proposed issuance approval", ErrPreconditionNotMet)
	}
	var v proposedIssuance
	if err := json.Unmarshal(raw, &v); err != nil {
		return IssuanceTerms{}, fmt.Errorf("%w: proposed issuance approval: %v", ErrPreconditionNotMet, err)
	}
	start, err := parseISODate(v.StartDate)
	if err != nil {
		return IssuanceTerms{}, fmt.Errorf("%w: start_date: %v", ErrPreconditionNotMet, err)
	}
	expiry, err := parseISODate(v.ExpiryDate)
	if err != nil {
		return IssuanceTerms{}, fmt.Errorf("%w: expiry_date: %v", ErrPreconditionNotMet, err)
	}
	return IssuanceTerms{StartDate: start, ExpiryDate: expiry, Details: v.Details}, nil
}

// NewApproval returns a current approval issued at issuedAt for the given
// proposal.
func NewApproval(proposalID int64, terms IssuanceTerms, issuedAt time.Time) (Approval, error) {
	start, expiry := DateOf(terms.StartDate), DateOf(terms.ExpiryDate)
	if expiry.Before(start) {
		return Approval{}, fmt.Errorf("%w: expiry date %s before start date %s", ErrPreconditionNotMet,
			expiry.Format(dateLayout), start.Format(dateLayout))
	}
	pid := proposalID
	return Approval{
		Status:            ApprovalCurrent,
		CurrentProposalID: &pid,
		IssueDate:         issuedAt,
		StartDate:         start,
		ExpiryDate:        expiry,
	}, nil
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (a *Approval) LodgementPrefix() string { return ApprovalLodgementPrefix }
func (a *Approval) Lodgement() string       { return a.LodgementNumber }

func (a *Approval) SetLodgementNumber(v string) error {
	return setOnce("lodgement_number", &a.LodgementNumber, v)
}

func (a *Approval) AuditRef() (RecordKind, int64) { return RecordApproval, a.ID }

// SetOriginalIssueDate records the first issue date. It can only be written once.
func (a *Approval) SetOriginalIssueDate(d time.Time) error {
	d = DateOf(d)
	if a.OriginalIssueDate == nil {
		a.OriginalIssueDate = &d
		return nil
	}
	if a.OriginalIssueDate.Equal(d) {
		return nil
	}
	return &ImmutableFieldError{
		Field:     "original_issue_date",
		Current:   a.OriginalIssueDate.Format(dateLayout),
		Attempted: d.Format(dateLayout),
	}
}

func (a *Approval) Staged(intent ApprovalIntent) bool {
	switch intent {
	case IntentCancel:
		return a.SetToCancel
	case IntentSuspend:
		return a.SetToSuspend
	case IntentSurrender:
		return a.SetToSurrender
	}
	return false
}

func (a *Approval) setStaged(intent ApprovalIntent, v bool) {
	switch intent {
	case IntentCancel:
		a.SetToCancel = v
	case IntentSuspend:
		a.SetToSuspend = v
	case IntentSurrender:
		a.SetToSurrender = v
	}
}

// Stage flags intent as pending. Staging an intent that is already staged is
// a no-op.
func (a *Approval) Stage(actor int64, intent ApprovalIntent, now time.Time) (UserAction, error) {
	if !intent.IsValid() {
		return UserAction{}, invalidTransition(RecordApproval, "intent", string(a.Status), string(intent), "unknown intent")
	}
	target := approvalIntentTargets[intent]
	if a.Status == target {
		return UserAction{}, invalidTransition(RecordApproval, "status", string(a.Status), string(target), "approval is already "+string(target))
	}
	if !intentAllowedFrom(intent, a.Status) {
		return UserAction{}, invalidTransition(RecordApproval, "status", string(a.Status), string(target), "")
	}
	a.setStaged(intent, true)
	return a.action(actor, now, fmt.Sprintf("Approval %s staged to %s", a.ref(), intent)), nil
}

// Apply commits a staged intent: the status moves, the matching details are
// written, the other detail blobs are cleared and the flag is reset.
func (a *Approval) Apply(actor int64, intent ApprovalIntent, details IntentDetails, now time.Time) (UserAction, error) {
	if !intent.IsValid() {
		return UserAction{}, invalidTransition(RecordApproval, "intent", string(a.Status), string(intent), "unknown intent")
	}
	target := approvalIntentTargets[intent]
	if a.Status == target {
		return UserAction{}, invalidTransition(RecordApproval, "status", string(a.Status), string(target), "approval is already "+string(target))
	}
	if !intentAllowedFrom(intent, a.Status) {
		return UserAction{}, invalidTransition(RecordApproval, "status", string(a.Status), string(target), "")
	}
	if !a.Staged(intent) {
		return UserAction{}, preconditionNotMet(RecordApproval, "status", string(a.Status), string(target), string(intent)+" is not staged")
	}

	date := details.Date
	if date.IsZero() {
		date = now
	}
	date = DateOf(date)
	if details.ToDate != nil && DateOf(*details.ToDate).Before(date) {
		return UserAction{}, preconditionNotMet(RecordApproval, "status", string(a.Status), string(target), "suspension ends before it starts")
	}

	from := a.Status
	a.clearDetails()
	switch intent {
	case IntentCancel:
		a.CancellationDate = &date
		a.CancellationDetails = details.Details
	case IntentSuspend:
		s := &SuspensionDetails{FromDate: date, Details: details.Details}
		if details.ToDate != nil {
			to := DateOf(*details.ToDate)
			s.ToDate = &to
		}
		a.SuspensionDetails = s
	case IntentSurrender:
		a.SurrenderDetails = &SurrenderDetails{SurrenderDate: date, Details: details.Details}
	}
	a.Status = target
	a.setStaged(intent, false)
	return a.action(actor, now, fmt.Sprintf("Approval %s status changed from %s to %s", a.ref(), from, target)), nil
}

// Reinstate lifts a suspension.
func (a *Approval) Reinstate(actor int64, now time.Time) (UserAction, error) {
	if a.Status != ApprovalSuspended {
		return UserAction{}, invalidTransition(RecordApproval, "status", string(a.Status), string(ApprovalCurrent), "only suspended approvals can be reinstated")
	}
	a.clearDetails()
	a.Status = ApprovalCurrent
	return a.action(actor, now, fmt.Sprintf("Approval %s reinstated", a.ref())), nil
}

// Expire moves a current approval whose expiry date has passed to expired.
// It reports false without error when there is nothing to do, including
// when the approval has already expired.
func (a *Approval) Expire(today time.Time) (UserAction, bool) {
	if a.Status != ApprovalCurrent || !a.ExpiryDate.Before(DateOf(today)) {
		return UserAction{}, false
	}
	a.Status = ApprovalExpired
	return a.action(SystemActor, today, fmt.Sprintf("Approval %s expired on %s", a.ref(), a.ExpiryDate.Format(dateLayout))), true
}

// ReplaceWith links the approval that supersedes this one. The status of
// this approval is left as it is.
func (a *Approval) ReplaceWith(id int64) error {
	if id == a.ID {
		return fmt.Errorf("%w: approval cannot replace itself", ErrPreconditionNotMet)
	}
	if a.ReplacedByID != nil && *a.ReplacedByID != id {
		return &ImmutableFieldError{
			Field:     "replaced_by",
			Current:   fmt.Sprintf("%d", *a.ReplacedByID),
			Attempted: fmt.Sprintf("%d", id),
		}
	}
	a.ReplacedByID = &id
	return nil
}

// Validate checks the status/detail invariants.
func (a *Approval) Validate() error {
	var problems []string
	if !a.Status.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", a.Status))
	}
	if a.IssueDate.IsZero() {
		problems = append(problems, "issue date is required")
	}
	if a.ExpiryDate.Before(a.StartDate) {
		problems = append(problems, "expiry date before start date")
	}
	populated := 0
	if a.CancellationDate != nil {
		populated++
	}
	if a.SuspensionDetails != nil {
		populated++
	}
	if a.SurrenderDetails != nil {
		populated++
	}
	switch a.Status {
	case ApprovalCancelled:
		if a.CancellationDate == nil {
			problems = append(problems, "cancelled approval without cancellation date")
		}
	case ApprovalSuspended:
		if a.SuspensionDetails == nil {
			problems = append(problems, "suspended approval without suspension details")
		}
	case ApprovalSurrendered:
		if a.SurrenderDetails == nil {
			problems = append(problems, "surrendered approval without surrender details")
		}
	default:
		if populated > 0 {
			problems = append(problems, fmt.Sprintf("%s approval carries status details", a.Status))
		}
	}
	if populated > 1 {
		problems = append(problems, "more than one status detail populated")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid approval: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (a *Approval) clearDetails() {
	a.CancellationDate = nil
	a.CancellationDetails = ""
	a.SuspensionDetails = nil
	a.SurrenderDetails = nil
}

func (a *Approval) ref() string {
	if a.LodgementNumber != "" {
		return a.LodgementNumber
	}
	return fmt.Sprintf("#%d", a.ID)
}

func (a *Approval) action(actor int64, now time.Time, what string) UserAction {
	return UserAction{Record: RecordApproval, RecordID: a.ID, Who: actor, When: now, What: what}
}
