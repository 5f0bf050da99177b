package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SystemActor is recorded as the actor of clock-driven transitions.
const SystemActor int64 = 0

type StatusPair struct {
	Customer   CustomerStatus   `json:"customer_status"`
	Processing ProcessingStatus `json:"processing_status"`
}

func (p StatusPair) String() string {
	return fmt.Sprintf("%s/%s", p.Customer, p.Processing)
}

var (
	LodgedStatuses   = StatusPair{Customer: CustomerWithAssessor, Processing: ProcessingWithAssessor}
	ApprovedStatuses = StatusPair{Customer: CustomerApproved, Processing: ProcessingApproved}
)

type Proposal struct {
	ID                int64      `json:"id"`
	LodgementNumber   string     `json:"lodgement_number"`
	LodgementSequence int        `json:"lodgement_sequence"`
	LodgementDate     *time.Time `json:"lodgement_date,omitempty"`
	Title             string     `json:"title,omitempty"`

	ApplicationKind ApplicationKind `json:"application_type"`
	ApplicantType   ApplicantType   `json:"applicant_type,omitempty"`

	CustomerStatus        CustomerStatus        `json:"customer_status"`
	ProcessingStatus      ProcessingStatus      `json:"processing_status"`
	IDCheckStatus         IDCheckStatus         `json:"id_check_status"`
	ComplianceCheckStatus ComplianceCheckStatus `json:"compliance_check_status"`
	CharacterCheckStatus  CharacterCheckStatus  `json:"character_check_status"`
	ReviewStatus          ReviewStatus          `json:"review_status"`

	SubmitterID           *int64 `json:"submitter,omitempty"`
	ProxyApplicantID      *int64 `json:"proxy_applicant,omitempty"`
	AssignedOfficerID     *int64 `json:"assigned_officer,omitempty"`
	AssignedApproverID    *int64 `json:"assigned_approver,omitempty"`
	ApprovalID            *int64 `json:"approval,omitempty"`
	PreviousApplicationID *int64 `json:"previous_application,omitempty"`

	Data                     json.RawMessage `json:"data,omitempty"`
	AssessorData             json.RawMessage `json:"assessor_data,omitempty"`
	CommentData              json.RawMessage `json:"comment_data,omitempty"`
	Schema                   json.RawMessage `json:"schema"`
	ProposedIssuanceApproval json.RawMessage `json:"proposed_issuance_approval,omitempty"`

	ProposedDeclineStatus bool   `json:"proposed_decline_status"`
	TemporaryCollectionID string `json:"temporary_document_collection_id,omitempty"`
	Migrated              bool   `json:"migrated"`
}

// NewProposal returns a draft proposal of the given kind. Renewal and
// amendment applications start in their own processing status.
func NewProposal(kind ApplicationKind, schema json.RawMessage) Proposal {
	processing := ProcessingDraft
	switch kind {
	case ApplicationRenewal:
		processing = ProcessingRenewal
	case ApplicationAmendment:
		processing = ProcessingLicenceAmendment
	}
	return Proposal{
		ApplicationKind:       kind,
		CustomerStatus:        CustomerDraft,
		ProcessingStatus:      processing,
		IDCheckStatus:         IDCheckNotChecked,
		ComplianceCheckStatus: ComplianceNotChecked,
		CharacterCheckStatus:  CharacterNotChecked,
		ReviewStatus:          ReviewNotReviewed,
		Schema:                schema,
	}
}

func (p *Proposal) LodgementPrefix() string { return ProposalLodgementPrefix }
func (p *Proposal) Lodgement() string       { return p.LodgementNumber }

func (p *Proposal) SetLodgementNumber(v string) error {
	return setOnce("lodgement_number", &p.LodgementNumber, v)
}

func (p *Proposal) AuditRef() (RecordKind, int64) { return RecordProposal, p.ID }

// Reference combines lodgement number and sequence, e.g. P000123-2.
func (p *Proposal) Reference() string {
	return fmt.Sprintf("%s-%d", p.LodgementNumber, p.LodgementSequence)
}

func (p *Proposal) String() string { return fmt.Sprintf("%d", p.ID) }

func (p *Proposal) Statuses() StatusPair {
	return StatusPair{Customer: p.CustomerStatus, Processing: p.ProcessingStatus}
}

func (p *Proposal) CanCustomerEdit() bool { return p.CustomerStatus.Editable() }
func (p *Proposal) CanCustomerView() bool { return p.CustomerStatus.Viewable() }

func (p *Proposal) Lodged() bool { return p.LodgementDate != nil }

// Validate checks the field-level invariants that hold independently of any
// transition.
func (p *Proposal) Validate() error {
	var problems []string
	if len(p.Schema) == 0 {
		problems = append(problems, "schema is required")
	} else if !json.Valid(p.Schema) {
		problems = append(problems, "schema is not valid json")
	}
	if !p.CustomerStatus.IsValid() && !(p.Migrated && p.CustomerStatus.Viewable()) {
		problems = append(problems, fmt.Sprintf("unknown customer status %q", p.CustomerStatus))
	}
	if !p.ProcessingStatus.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown processing status %q", p.ProcessingStatus))
	}
	if p.Lodged() && p.SubmitterID == nil && !p.Migrated {
		problems = append(problems, "submitter is required once lodged")
	}
	if p.PreviousApplicationID != nil && *p.PreviousApplicationID == p.ID && p.ID != 0 {
		problems = append(problems, "proposal cannot be its own previous application")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid proposal: %s", strings.Join(problems, "; "))
	}
	return nil
}

// EditData replaces the applicant payload. It is refused once the proposal
// has left the customer-editable statuses.
func (p *Proposal) EditData(data json.RawMessage) error {
	if !p.CanCustomerEdit() {
		return preconditionNotMet(RecordProposal, "data", string(p.CustomerStatus), string(p.CustomerStatus),
			"proposal is not editable by the customer")
	}
	p.Data = data
	return nil
}

// Transition moves the proposal to target. Both axes must follow their
// adjacency, the resulting pair must be consistent and entering
// ready_to_issue requires every check axis to be accepted. On failure the
// proposal is left untouched.
func (p *Proposal) Transition(actor int64, target StatusPair, now time.Time) (UserAction, error) {
	from := p.Statuses()
	if target == from {
		return UserAction{}, invalidTransition(RecordProposal, "status", from.String(), target.String(), "no status change requested")
	}
	if !target.Customer.IsValid() {
		return UserAction{}, invalidTransition(RecordProposal, "customer_status", string(from.Customer), string(target.Customer), "unknown status")
	}
	if !target.Processing.IsValid() {
		return UserAction{}, invalidTransition(RecordProposal, "processing_status", string(from.Processing), string(target.Processing), "unknown status")
	}
	if target.Customer != from.Customer && !customerTransitions.allows(from.Customer, target.Customer) {
		return UserAction{}, invalidTransition(RecordProposal, "customer_status", string(from.Customer), string(target.Customer), "")
	}
	if target.Processing != from.Processing && !processingTransitions.allows(from.Processing, target.Processing) {
		return UserAction{}, invalidTransition(RecordProposal, "processing_status", string(from.Processing), string(target.Processing), "")
	}
	if !ConsistentStatuses(target) {
		return UserAction{}, invalidTransition(RecordProposal, "status", from.String(), target.String(), "inconsistent status pair")
	}
	if target.Processing == ProcessingReadyToIssue && from.Processing != ProcessingReadyToIssue {
		if pending := p.PendingChecks(); len(pending) > 0 {
			return UserAction{}, preconditionNotMet(RecordProposal, "processing_status", string(from.Processing), string(target.Processing),
				"checks not accepted: "+strings.Join(pending, ", "))
		}
	}

	p.CustomerStatus = target.Customer
	p.ProcessingStatus = target.Processing
	return p.action(actor, now, fmt.Sprintf("Proposal %s status changed from %s to %s", p.ref(), from, target)), nil
}

// PendingChecks lists the check axes that have not been accepted yet.
func (p *Proposal) PendingChecks() []string {
	var pending []string
	if p.IDCheckStatus != IDCheckAccepted {
		pending = append(pending, string(CheckAxisID))
	}
	if p.ComplianceCheckStatus != ComplianceAccepted {
		pending = append(pending, string(CheckAxisCompliance))
	}
	if p.CharacterCheckStatus != CharacterAccepted {
		pending = append(pending, string(CheckAxisCharacter))
	}
	if p.ReviewStatus != ReviewAccepted {
		pending = append(pending, string(CheckAxisReview))
	}
	return pending
}

// SetCheck moves one check axis along its own adjacency.
func (p *Proposal) SetCheck(actor int64, axis CheckAxis, status string, now time.Time) (UserAction, error) {
	if p.ProcessingStatus.Terminal() {
		return UserAction{}, invalidTransition(RecordProposal, string(axis), "", status, "proposal is "+string(p.ProcessingStatus))
	}

	var from string
	switch axis {
	case CheckAxisID:
		from = string(p.IDCheckStatus)
		next := IDCheckStatus(status)
		if !next.IsValid() || !idCheckTransitions.allows(p.IDCheckStatus, next) {
			return UserAction{}, invalidTransition(RecordProposal, string(axis), from, status, "")
		}
		p.IDCheckStatus = next
	case CheckAxisCompliance:
		from = string(p.ComplianceCheckStatus)
		next := ComplianceCheckStatus(status)
		if !next.IsValid() || !complianceCheckTransitions.allows(p.ComplianceCheckStatus, next) {
			return UserAction{}, invalidTransition(RecordProposal, string(axis), from, status, "")
		}
		p.ComplianceCheckStatus = next
	case CheckAxisCharacter:
		from = string(p.CharacterCheckStatus)
		next := CharacterCheckStatus(status)
		if !next.IsValid() || !characterCheckTransitions.allows(p.CharacterCheckStatus, next) {
			return UserAction{}, invalidTransition(RecordProposal, string(axis), from, status, "")
		}
		p.CharacterCheckStatus = next
	case CheckAxisReview:
		from = string(p.ReviewStatus)
		next := ReviewStatus(status)
		if !next.IsValid() || !reviewTransitions.allows(p.ReviewStatus, next) {
			return UserAction{}, invalidTransition(RecordProposal, string(axis), from, status, "")
		}
		p.ReviewStatus = next
	default:
		return UserAction{}, invalidTransition(RecordProposal, string(axis), "", status, "unknown check axis")
	}

	return p.action(actor, now, fmt.Sprintf("Proposal %s %s changed from %s to %s", p.ref(), axis.Label(), from, status)), nil
}

// Lodge submits the proposal to the assessor. Lodging again after an
// amendment request bumps the lodgement sequence.
func (p *Proposal) Lodge(actor int64, now time.Time) (UserAction, error) {
	if p.SubmitterID == nil && !p.Migrated {
		return UserAction{}, preconditionNotMet(RecordProposal, "status", p.Statuses().String(), "with_assessor/with_assessor", "submitter is required")
	}
	relodging := p.Lodged()
	act, err := p.Transition(actor, LodgedStatuses, now)
	if err != nil {
		return UserAction{}, err
	}
	lodged := now
	p.LodgementDate = &lodged
	if relodging {
		p.LodgementSequence++
		act.What += fmt.Sprintf(" (lodgement sequence %d)", p.LodgementSequence)
	}
	return act, nil
}

// IsLodgement reports whether moving to target hands the proposal to the
// assessor, which must go through Lodge.
func (p *Proposal) IsLodgement(target StatusPair) bool {
	if target != LodgedStatuses {
		return false
	}
	switch p.ProcessingStatus {
	case ProcessingDraft, ProcessingRenewal, ProcessingLicenceAmendment:
		return true
	}
	return p.CustomerStatus == CustomerAmendmentRequired
}

// ExpectTarget fails with ErrInvalidTransition unless target is exactly want.
func (p *Proposal) ExpectTarget(target, want StatusPair) error {
	if target != want {
		return invalidTransition(RecordProposal, "status", p.Statuses().String(), target.String(), "only "+want.String()+" is reachable here")
	}
	return nil
}

// Amend hands a proposal under assessment back to the applicant.
func (p *Proposal) Amend(actor int64, now time.Time) (UserAction, error) {
	return p.Transition(actor, StatusPair{Customer: CustomerAmendmentRequired, Processing: ProcessingDraft}, now)
}

func (p *Proposal) ref() string {
	if p.LodgementNumber != "" {
		return p.LodgementNumber
	}
	return fmt.Sprintf("#%d", p.ID)
}

func (p *Proposal) action(actor int64, now time.Time, what string) UserAction {
	return UserAction{Record: RecordProposal, RecordID: p.ID, Who: actor, When: now, What: what}
}
