package domain

// Choice is a stored code paired with its display label.
type Choice struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type choiceTable []Choice

func (t choiceTable) label(code string) string {
	for _, c := range t {
		if c.Code == code {
			return c.Label
		}
	}
	return ""
}

func (t choiceTable) has(code string) bool {
	for _, c := range t {
		if c.Code == code {
			return true
		}
	}
	return false
}

func (t choiceTable) clone() []Choice {
	return append([]Choice(nil), t...)
}

type CustomerStatus string

const (
	CustomerTemp              CustomerStatus = "temp"
	CustomerDraft             CustomerStatus = "draft"
	CustomerWithAssessor      CustomerStatus = "with_assessor"
	CustomerAmendmentRequired CustomerStatus = "amendment_required"
	CustomerApproved          CustomerStatus = "approved"
	CustomerDeclined          CustomerStatus = "declined"
	CustomerDiscarded         CustomerStatus = "discarded"

	// Legacy customer codes carried by migrated records. They are viewable
	// but never produced by a transition.
	CustomerUnderReview     CustomerStatus = "under_review"
	CustomerIDRequired      CustomerStatus = "id_required"
	CustomerReturnsRequired CustomerStatus = "returns_required"
)

var customerStatusChoices = choiceTable{
	{string(CustomerTemp), "Temporary"},
	{string(CustomerDraft), "Draft"},
	{string(CustomerWithAssessor), "Under Review"},
	{string(CustomerAmendmentRequired), "Amendment Required"},
	{string(CustomerApproved), "Approved"},
	{string(CustomerDeclined), "Declined"},
	{string(CustomerDiscarded), "Discarded"},
}

var customerEditable = map[CustomerStatus]bool{
	CustomerTemp:              true,
	CustomerDraft:             true,
	CustomerAmendmentRequired: true,
}

var customerViewable = map[CustomerStatus]bool{
	CustomerTemp:              true,
	CustomerDraft:             true,
	CustomerAmendmentRequired: true,
	CustomerWithAssessor:      true,
	CustomerUnderReview:       true,
	CustomerIDRequired:        true,
	CustomerReturnsRequired:   true,
	CustomerApproved:          true,
	CustomerDeclined:          true,
}

func CustomerStatusChoices() []Choice { return customerStatusChoices.clone() }

func (s CustomerStatus) Label() string { return customerStatusChoices.label(string(s)) }
func (s CustomerStatus) IsValid() bool { return customerStatusChoices.has(string(s)) }

// Editable reports whether the submitter may still change the proposal data.
func (s CustomerStatus) Editable() bool { return customerEditable[s] }

// Viewable reports whether the submitter may read the proposal.
func (s CustomerStatus) Viewable() bool { return customerViewable[s] }

func (s CustomerStatus) Terminal() bool {
	return s == CustomerApproved || s == CustomerDeclined || s == CustomerDiscarded
}

type ProcessingStatus string

const (
	ProcessingTemp                      ProcessingStatus = "temp"
	ProcessingDraft                     ProcessingStatus = "draft"
	ProcessingWithAssessor              ProcessingStatus = "with_assessor"
	ProcessingWithReferral              ProcessingStatus = "with_referral"
	ProcessingWithAssessorRequirements  ProcessingStatus = "with_assessor_requirements"
	ProcessingWithApprover              ProcessingStatus = "with_approver"
	ProcessingRenewal                   ProcessingStatus = "renewal"
	ProcessingLicenceAmendment          ProcessingStatus = "licence_amendment"
	ProcessingAwaitingApplicantResponse ProcessingStatus = "awaiting_applicant_response"
	ProcessingAwaitingAssessorResponse  ProcessingStatus = "awaiting_assessor_response"
	ProcessingAwaitingResponses         ProcessingStatus = "awaiting_responses"
	ProcessingReadyForConditions        ProcessingStatus = "ready_for_conditions"
	ProcessingReadyToIssue              ProcessingStatus = "ready_to_issue"
	ProcessingApproved                  ProcessingStatus = "approved"
	ProcessingDeclined                  ProcessingStatus = "declined"
	ProcessingDiscarded                 ProcessingStatus = "discarded"
)

var processingStatusChoices = choiceTable{
	{string(ProcessingTemp), "Temporary"},
	{string(ProcessingDraft), "Draft"},
	{string(ProcessingWithAssessor), "With Assessor"},
	{string(ProcessingWithReferral), "With Referral"},
	{string(ProcessingWithAssessorRequirements), "With Assessor (Requirements)"},
	{string(ProcessingWithApprover), "With Approver"},
	{string(ProcessingRenewal), "Renewal"},
	{string(ProcessingLicenceAmendment), "Licence Amendment"},
	{string(ProcessingAwaitingApplicantResponse), "Awaiting Applicant Response"},
	{string(ProcessingAwaitingAssessorResponse), "Awaiting Assessor Response"},
	{string(ProcessingAwaitingResponses), "Awaiting Responses"},
	{string(ProcessingReadyForConditions), "Ready for Conditions"},
	{string(ProcessingReadyToIssue), "Ready to Issue"},
	{string(ProcessingApproved), "Approved"},
	{string(ProcessingDeclined), "Declined"},
	{string(ProcessingDiscarded), "Discarded"},
}

func ProcessingStatusChoices() []Choice { return processingStatusChoices.clone() }

func (s ProcessingStatus) Label() string { return processingStatusChoices.label(string(s)) }
func (s ProcessingStatus) IsValid() bool { return processingStatusChoices.has(string(s)) }

func (s ProcessingStatus) Terminal() bool {
	return s == ProcessingApproved || s == ProcessingDeclined || s == ProcessingDiscarded
}

type IDCheckStatus string

const (
	IDCheckNotChecked     IDCheckStatus = "not_checked"
	IDCheckAwaitingUpdate IDCheckStatus = "awaiting_update"
	IDCheckUpdated        IDCheckStatus = "updated"
	IDCheckAccepted       IDCheckStatus = "accepted"
)

var idCheckChoices = choiceTable{
	{string(IDCheckNotChecked), "Not Checked"},
	{string(IDCheckAwaitingUpdate), "Awaiting Update"},
	{string(IDCheckUpdated), "Updated"},
	{string(IDCheckAccepted), "Accepted"},
}

func IDCheckStatusChoices() []Choice { return idCheckChoices.clone() }

func (s IDCheckStatus) Label() string { return idCheckChoices.label(string(s)) }
func (s IDCheckStatus) IsValid() bool { return idCheckChoices.has(string(s)) }

type ComplianceCheckStatus string

const (
	ComplianceNotChecked      ComplianceCheckStatus = "not_checked"
	ComplianceAwaitingReturns ComplianceCheckStatus = "awaiting_returns"
	ComplianceCompleted       ComplianceCheckStatus = "completed"
	ComplianceAccepted        ComplianceCheckStatus = "accepted"
)

var complianceCheckChoices = choiceTable{
	{string(ComplianceNotChecked), "Not Checked"},
	{string(ComplianceAwaitingReturns), "Awaiting Returns"},
	{string(ComplianceCompleted), "Completed"},
	{string(ComplianceAccepted), "Accepted"},
}

func ComplianceCheckStatusChoices() []Choice { return complianceCheckChoices.clone() }

func (s ComplianceCheckStatus) Label() string { return complianceCheckChoices.label(string(s)) }
func (s ComplianceCheckStatus) IsValid() bool { return complianceCheckChoices.has(string(s)) }

type CharacterCheckStatus string

const (
	CharacterNotChecked CharacterCheckStatus = "not_checked"
	CharacterAccepted   CharacterCheckStatus = "accepted"
)

var characterCheckChoices = choiceTable{
	{string(CharacterNotChecked), "Not Checked"},
	{string(CharacterAccepted), "Accepted"},
}

func CharacterCheckStatusChoices() []Choice { return characterCheckChoices.clone() }

func (s CharacterCheckStatus) Label() string { return characterCheckChoices.label(string(s)) }
func (s CharacterCheckStatus) IsValid() bool { return characterCheckChoices.has(string(s)) }

type ReviewStatus string

const (
	ReviewNotReviewed        ReviewStatus = "not_reviewed"
	ReviewAwaitingAmendments ReviewStatus = "awaiting_amendments"
	ReviewAmended            ReviewStatus = "amended"
	ReviewAccepted           ReviewStatus = "accepted"
)

var reviewChoices = choiceTable{
	{string(ReviewNotReviewed), "Not Reviewed"},
	{string(ReviewAwaitingAmendments), "Awaiting Amendments"},
	{string(ReviewAmended), "Amended"},
	{string(ReviewAccepted), "Accepted"},
}

func ReviewStatusChoices() []Choice { return reviewChoices.clone() }

func (s ReviewStatus) Label() string { return reviewChoices.label(string(s)) }
func (s ReviewStatus) IsValid() bool { return reviewChoices.has(string(s)) }

// CheckAxis names one of the subordinate verification statuses of a proposal.
type CheckAxis string

const (
	CheckAxisID         CheckAxis = "id_check"
	CheckAxisCompliance CheckAxis = "compliance_check"
	CheckAxisCharacter  CheckAxis = "character_check"
	CheckAxisReview     CheckAxis = "review"
)

var checkAxisChoices = choiceTable{
	{string(CheckAxisID), "Identification Check Status"},
	{string(CheckAxisCompliance), "Return Check Status"},
	{string(CheckAxisCharacter), "Character Check Status"},
	{string(CheckAxisReview), "Review Status"},
}

func CheckAxisChoices() []Choice { return checkAxisChoices.clone() }

func (a CheckAxis) Label() string { return checkAxisChoices.label(string(a)) }
func (a CheckAxis) IsValid() bool { return checkAxisChoices.has(string(a)) }

type ApplicationKind string

const (
	ApplicationNewProposal ApplicationKind = "new_proposal"
	ApplicationAmendment   ApplicationKind = "amendment"
	ApplicationRenewal     ApplicationKind = "renewal"
)

var applicationKindChoices = choiceTable{
	{string(ApplicationNewProposal), "New Proposal"},
	{string(ApplicationAmendment), "Amendment"},
	{string(ApplicationRenewal), "Renewal"},
}

func ApplicationKindChoices() []Choice { return applicationKindChoices.clone() }

func (k ApplicationKind) Label() string { return applicationKindChoices.label(string(k)) }
func (k ApplicationKind) IsValid() bool { return applicationKindChoices.has(string(k)) }

type ApplicantType string

const (
	ApplicantOrganisation ApplicantType = "organisation"
	// ApplicantProxy also covers an individual lodging on their own behalf.
	ApplicantProxy     ApplicantType = "proxy"
	ApplicantSubmitter ApplicantType = "submitter"
)

var applicantTypeChoices = choiceTable{
	{string(ApplicantOrganisation), "Organisation"},
	{string(ApplicantProxy), "Proxy"},
	{string(ApplicantSubmitter), "Submitter"},
}

func ApplicantTypeChoices() []Choice { return applicantTypeChoices.clone() }

func (t ApplicantType) Label() string { return applicantTypeChoices.label(string(t)) }
func (t ApplicantType) IsValid() bool { return applicantTypeChoices.has(string(t)) }

type ApprovalStatus string

const (
	ApprovalCurrent     ApprovalStatus = "current"
	ApprovalExpired     ApprovalStatus = "expired"
	ApprovalCancelled   ApprovalStatus = "cancelled"
	ApprovalSurrendered ApprovalStatus = "surrendered"
	ApprovalSuspended   ApprovalStatus = "suspended"
)

var approvalStatusChoices = choiceTable{
	{string(ApprovalCurrent), "Current"},
	{string(ApprovalExpired), "Expired"},
	{string(ApprovalCancelled), "Cancelled"},
	{string(ApprovalSurrendered), "Surrendered"},
	{string(ApprovalSuspended), "Suspended"},
}

func ApprovalStatusChoices() []Choice { return approvalStatusChoices.clone() }

func (s ApprovalStatus) Label() string { return approvalStatusChoices.label(string(s)) }
func (s ApprovalStatus) IsValid() bool { return approvalStatusChoices.has(string(s)) }

// ApprovalIntent is an approval action that is staged before it is applied.
type ApprovalIntent string

const (
	IntentCancel    ApprovalIntent = "cancel"
	IntentSuspend   ApprovalIntent = "suspend"
	IntentSurrender ApprovalIntent = "surrender"
)

var approvalIntentChoices = choiceTable{
	{string(IntentCancel), "Cancel"},
	{string(IntentSuspend), "Suspend"},
	{string(IntentSurrender), "Surrender"},
}

func ApprovalIntentChoices() []Choice { return approvalIntentChoices.clone() }

func (i ApprovalIntent) Label() string { return approvalIntentChoices.label(string(i)) }
func (i ApprovalIntent) IsValid() bool { return approvalIntentChoices.has(string(i)) }

type CommunicationType string

const (
	CommunicationEmail            CommunicationType = "email"
	CommunicationPhone            CommunicationType = "phone"
	CommunicationMail             CommunicationType = "mail"
	CommunicationPerson           CommunicationType = "person"
	CommunicationReferralComplete CommunicationType = "referral_complete"

	DefaultCommunicationType = CommunicationEmail
)

var communicationTypeChoices = choiceTable{
	{string(CommunicationEmail), "Email"},
	{string(CommunicationPhone), "Phone Call"},
	{string(CommunicationMail), "Mail"},
	{string(CommunicationPerson), "In Person"},
	{string(CommunicationReferralComplete), "Referral Completed"},
}

func CommunicationTypeChoices() []Choice { return communicationTypeChoices.clone() }

func (t CommunicationType) Label() string { return communicationTypeChoices.label(string(t)) }
func (t CommunicationType) IsValid() bool { return communicationTypeChoices.has(string(t)) }

// RecordKind identifies the record an audit entry belongs to.
type RecordKind string

const (
	RecordProposal RecordKind = "proposal"
	RecordApproval RecordKind = "approval"
)
