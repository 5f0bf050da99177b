package domain

type adjacency[S ~string] map[S][]S

func (a adjacency[S]) allows(from, to S) bool {
	for _, s := range a[from] {
		if s == to {
			return true
		}
	}
	return false
}

var customerTransitions = adjacency[CustomerStatus]{
	CustomerTemp:              {CustomerDraft, CustomerDiscarded},
	CustomerDraft:             {CustomerWithAssessor, CustomerDiscarded},
	CustomerWithAssessor:      {CustomerAmendmentRequired, CustomerApproved, CustomerDeclined},
	CustomerAmendmentRequired: {CustomerWithAssessor},
}

var processingTransitions = adjacency[ProcessingStatus]{
	ProcessingTemp:             {ProcessingDraft, ProcessingDiscarded},
	ProcessingDraft:            {ProcessingWithAssessor, ProcessingDiscarded},
	ProcessingRenewal:          {ProcessingWithAssessor, ProcessingDiscarded},
	ProcessingLicenceAmendment: {ProcessingWithAssessor, ProcessingDiscarded},
	ProcessingWithAssessor: {
		ProcessingDraft,
		ProcessingWithReferral,
		ProcessingWithAssessorRequirements,
		ProcessingWithApprover,
		ProcessingAwaitingApplicantResponse,
		ProcessingAwaitingAssessorResponse,
		ProcessingAwaitingResponses,
		ProcessingReadyForConditions,
		ProcessingReadyToIssue,
		ProcessingDeclined,
	},
	ProcessingWithReferral:              {ProcessingWithAssessor, ProcessingAwaitingResponses},
	ProcessingWithAssessorRequirements:  {ProcessingWithAssessor, ProcessingWithApprover, ProcessingReadyForConditions},
	ProcessingWithApprover:              {ProcessingWithAssessor, ProcessingWithAssessorRequirements, ProcessingReadyToIssue, ProcessingDeclined},
	ProcessingAwaitingApplicantResponse: {ProcessingWithAssessor},
	ProcessingAwaitingAssessorResponse:  {ProcessingWithAssessor},
	ProcessingAwaitingResponses:         {ProcessingWithAssessor, ProcessingWithReferral},
	ProcessingReadyForConditions:        {ProcessingWithAssessorRequirements, ProcessingWithApprover, ProcessingReadyToIssue},
	ProcessingReadyToIssue:              {ProcessingWithAssessor, ProcessingApproved, ProcessingDeclined},
}

// customerForProcessing lists the customer statuses that may accompany each
// processing status.
var customerForProcessing = map[ProcessingStatus][]CustomerStatus{
	ProcessingTemp:                      {CustomerTemp},
	ProcessingDraft:                     {CustomerDraft, CustomerAmendmentRequired},
	ProcessingRenewal:                   {CustomerDraft},
	ProcessingLicenceAmendment:          {CustomerDraft},
	ProcessingWithAssessor:              {CustomerWithAssessor},
	ProcessingWithReferral:              {CustomerWithAssessor},
	ProcessingWithAssessorRequirements:  {CustomerWithAssessor},
	ProcessingWithApprover:              {CustomerWithAssessor},
	ProcessingAwaitingApplicantResponse: {CustomerWithAssessor, CustomerAmendmentRequired},
	ProcessingAwaitingAssessorResponse:  {CustomerWithAssessor},
	ProcessingAwaitingResponses:         {CustomerWithAssessor},
	ProcessingReadyForConditions:        {CustomerWithAssessor},
	ProcessingReadyToIssue:              {CustomerWithAssessor},
	ProcessingApproved:                  {CustomerApproved},
	ProcessingDeclined:                  {CustomerDeclined},
	ProcessingDiscarded:                 {CustomerDiscarded},
}

// ConsistentStatuses reports whether the customer-facing and internal
// statuses of a proposal may be held together.
func ConsistentStatuses(p StatusPair) bool {
	for _, c := range customerForProcessing[p.Processing] {
		if c == p.Customer {
			return true
		}
	}
	return false
}

var idCheckTransitions = adjacency[IDCheckStatus]{
	IDCheckNotChecked:     {IDCheckAwaitingUpdate, IDCheckAccepted},
	IDCheckAwaitingUpdate: {IDCheckUpdated},
	IDCheckUpdated:        {IDCheckAwaitingUpdate, IDCheckAccepted},
}

var complianceCheckTransitions = adjacency[ComplianceCheckStatus]{
	ComplianceNotChecked:      {ComplianceAwaitingReturns, ComplianceAccepted},
	ComplianceAwaitingReturns: {ComplianceCompleted},
	ComplianceCompleted:       {ComplianceAwaitingReturns, ComplianceAccepted},
}

var characterCheckTransitions = adjacency[CharacterCheckStatus]{
	CharacterNotChecked: {CharacterAccepted},
}

var reviewTransitions = adjacency[ReviewStatus]{
	ReviewNotReviewed:        {ReviewAwaitingAmendments, ReviewAccepted},
	ReviewAwaitingAmendments: {ReviewAmended},
	ReviewAmended:            {ReviewAwaitingAmendments, ReviewAccepted},
}

// approvalIntentSources lists the statuses an intent may be staged or applied from.
var approvalIntentSources = map[ApprovalIntent][]ApprovalStatus{
	IntentCancel:    {ApprovalCurrent, ApprovalSuspended},
	IntentSuspend:   {ApprovalCurrent},
	IntentSurrender: {ApprovalCurrent, ApprovalSuspended},
}

var approvalIntentTargets = map[ApprovalIntent]ApprovalStatus{
	IntentCancel:    ApprovalCancelled,
	IntentSuspend:   ApprovalSuspended,
	IntentSurrender: ApprovalSurrendered,
}

func intentAllowedFrom(intent ApprovalIntent, s ApprovalStatus) bool {
	for _, from := range approvalIntentSources[intent] {
		if from == s {
			return true
		}
	}
	return false
}
