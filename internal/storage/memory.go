package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"licensing-ledger/internal/domain"
)

// MemoryStore keeps every record in an arena keyed by id. Transactions work
// on a copy of the arena that replaces the live one on success.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error { return nil }

type memState struct {
	seq         map[string]int64
	proposals   map[int64]domain.Proposal
	approvals   map[int64]domain.Approval
	users       map[int64]domain.UserIdentity
	actions     []domain.UserAction
	comms       []domain.CommunicationLogEntry
	appTypes    map[int64]domain.ApplicationType
	collections map[uuid.UUID]domain.TemporaryDocumentCollection
	maintenance map[int64]domain.SystemMaintenance
}

func newMemState() *memState {
	return &memState{
		seq:         make(map[string]int64),
		proposals:   make(map[int64]domain.Proposal),
		approvals:   make(map[int64]domain.Approval),
		users:       make(map[int64]domain.UserIdentity),
		appTypes:    make(map[int64]domain.ApplicationType),
		collections: make(map[uuid.UUID]domain.TemporaryDocumentCollection),
		maintenance: make(map[int64]domain.SystemMaintenance),
	}
}

func (m *memState) clone() *memState {
	c := newMemState()
	for k, v := range m.seq {
		c.seq[k] = v
	}
	for k, v := range m.proposals {
		c.proposals[k] = v
	}
	for k, v := range m.approvals {
		v.ApiarySites = append([]domain.ApiarySiteOnApproval(nil), v.ApiarySites...)
		c.approvals[k] = v
	}
	for k, v := range m.users {
		c.users[k] = v
	}
	c.actions = append([]domain.UserAction(nil), m.actions...)
	c.comms = append([]domain.CommunicationLogEntry(nil), m.comms...)
	for k, v := range m.appTypes {
		c.appTypes[k] = v
	}
	for k, v := range m.collections {
		v.Documents = append([]domain.TemporaryDocument(nil), v.Documents...)
		c.collections[k] = v
	}
	for k, v := range m.maintenance {
		c.maintenance[k] = v
	}
	return c
}

func (m *memState) next(table string) int64 {
	m.seq[table]++
	return m.seq[table]
}

func notFound(what string, id any) error {
	return errors.Wrapf(domain.ErrNotFound, "%s %v", what, id)
}

func (m *memState) CreateProposal(_ context.Context, p *domain.Proposal) error {
	if p.PreviousApplicationID != nil {
		if _, ok := m.proposals[*p.PreviousApplicationID]; !ok {
			return notFound("previous application", *p.PreviousApplicationID)
		}
	}
	p.ID = m.next("proposals")
	if _, err := domain.AllocateLodgementNumber(p, p.ID); err != nil {
		return err
	}
	m.proposals[p.ID] = *p
	return nil
}

func (m *memState) GetProposal(_ context.Context, id int64) (domain.Proposal, error) {
	p, ok := m.proposals[id]
	if !ok {
		return domain.Proposal{}, notFound("proposal", id)
	}
	return p, nil
}

// LockProposal is GetProposal: MemoryStore runs one transaction at a time.
func (m *memState) LockProposal(ctx context.Context, id int64) (domain.Proposal, error) {
	return m.GetProposal(ctx, id)
}

func (m *memState) UpdateProposal(_ context.Context, p domain.Proposal) error {
	existing, ok := m.proposals[p.ID]
	if !ok {
		return notFound("proposal", p.ID)
	}
	if existing.LodgementNumber != "" && existing.LodgementNumber != p.LodgementNumber {
		return &domain.ImmutableFieldError{Field: "lodgement_number", Current: existing.LodgementNumber, Attempted: p.LodgementNumber}
	}
	m.proposals[p.ID] = p
	return nil
}

func (m *memState) DeleteProposal(_ context.Context, id int64) error {
	if _, ok := m.proposals[id]; !ok {
		return notFound("proposal", id)
	}
	for _, other := range m.proposals {
		if other.PreviousApplicationID != nil && *other.PreviousApplicationID == id {
			return errors.Wrapf(domain.ErrProtectedReference, "proposal %d is the previous application of %d", id, other.ID)
		}
	}
	for _, a := range m.approvals {
		if a.CurrentProposalID != nil && *a.CurrentProposalID == id {
			return errors.Wrapf(domain.ErrProtectedReference, "proposal %d is referenced by approval %d", id, a.ID)
		}
	}
	delete(m.proposals, id)
	return nil
}

func (m *memState) CreateApproval(_ context.Context, a *domain.Approval) error {
	a.ID = m.next("approvals")
	if _, err := domain.AllocateLodgementNumber(a, a.ID); err != nil {
		return err
	}
	if err := m.checkApprovalUnique(a.ID, a.LodgementNumber, a.IssueDate); err != nil {
		return err
	}
	for i := range a.ApiarySites {
		a.ApiarySites[i].ApprovalID = a.ID
	}
	m.approvals[a.ID] = *a
	return nil
}

func (m *memState) checkApprovalUnique(self int64, number string, issued time.Time) error {
	for _, other := range m.approvals {
		if other.ID != self && other.LodgementNumber == number && other.IssueDate.Equal(issued) {
			return errors.Wrapf(domain.ErrDuplicateLodgement, "approval %s issued %s", number, issued.Format(time.RFC3339))
		}
	}
	return nil
}

func (m *memState) GetApproval(_ context.Context, id int64) (domain.Approval, error) {
	a, ok := m.approvals[id]
	if !ok {
		return domain.Approval{}, notFound("approval", id)
	}
	return a, nil
}

func (m *memState) LockApproval(ctx context.Context, id int64) (domain.Approval, error) {
	return m.GetApproval(ctx, id)
}

func (m *memState) UpdateApproval(_ context.Context, a domain.Approval) error {
	existing, ok := m.approvals[a.ID]
	if !ok {
		return notFound("approval", a.ID)
	}
	if existing.LodgementNumber != "" && existing.LodgementNumber != a.LodgementNumber {
		return &domain.ImmutableFieldError{Field: "lodgement_number", Current: existing.LodgementNumber, Attempted: a.LodgementNumber}
	}
	if existing.OriginalIssueDate != nil && (a.OriginalIssueDate == nil || !existing.OriginalIssueDate.Equal(*a.OriginalIssueDate)) {
		attempted := ""
		if a.OriginalIssueDate != nil {
			attempted = a.OriginalIssueDate.Format(time.DateOnly)
		}
		return &domain.ImmutableFieldError{Field: "original_issue_date", Current: existing.OriginalIssueDate.Format(time.DateOnly), Attempted: attempted}
	}
	if err := m.checkApprovalUnique(a.ID, a.LodgementNumber, a.IssueDate); err != nil {
		return err
	}
	m.approvals[a.ID] = a
	return nil
}

func (m *memState) ApprovalsDueForExpiry(_ context.Context, today time.Time) ([]domain.Approval, error) {
	today = domain.DateOf(today)
	due := make([]domain.Approval, 0)
	for _, a := range m.approvals {
		if a.Status == domain.ApprovalCurrent && a.ExpiryDate.Before(today) {
			due = append(due, a)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (m *memState) CreateUser(_ context.Context, u *domain.UserIdentity) error {
	if u.ID == 0 {
		u.ID = m.next("users")
	} else if u.ID > m.seq["users"] {
		m.seq["users"] = u.ID
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memState) GetUser(_ context.Context, id int64) (domain.UserIdentity, error) {
	u, ok := m.users[id]
	if !ok {
		return domain.UserIdentity{}, notFound("user", id)
	}
	return u, nil
}

func (m *memState) RemoveUser(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return notFound("user", id)
	}
	for _, p := range m.proposals {
		if refersTo(p.SubmitterID, id) || refersTo(p.ProxyApplicantID, id) {
			return errors.Wrapf(domain.ErrProtectedReference, "user %d is an applicant on proposal %d", id, p.ID)
		}
	}
	for pid, p := range m.proposals {
		if refersTo(p.AssignedOfficerID, id) {
			p.AssignedOfficerID = nil
		}
		if refersTo(p.AssignedApproverID, id) {
			p.AssignedApproverID = nil
		}
		m.proposals[pid] = p
	}
	delete(m.users, id)
	return nil
}

func refersTo(ref *int64, id int64) bool {
	return ref != nil && *ref == id
}

func (m *memState) AppendAction(_ context.Context, a *domain.UserAction) error {
	a.ID = m.next("actions")
	m.actions = append(m.actions, *a)
	return nil
}

func (m *memState) ListActions(_ context.Context, record domain.RecordKind, id int64) ([]domain.UserAction, error) {
	out := make([]domain.UserAction, 0)
	for _, a := range m.actions {
		if a.Record == record && a.RecordID == id {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].When.Before(out[j].When) })
	return out, nil
}

func (m *memState) AppendCommunication(_ context.Context, e *domain.CommunicationLogEntry) error {
	e.ID = m.next("communication_logs")
	m.comms = append(m.comms, *e)
	return nil
}

func (m *memState) ListCommunications(_ context.Context, record domain.RecordKind, id int64) ([]domain.CommunicationLogEntry, error) {
	out := make([]domain.CommunicationLogEntry, 0)
	for _, e := range m.comms {
		if e.Record == record && e.RecordID == id {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, nil
}

func (m *memState) CreateApplicationType(_ context.Context, t *domain.ApplicationType) error {
	for _, other := range m.appTypes {
		if other.Name == t.Name {
			return errors.Wrapf(domain.ErrValidation, "application type %q already exists", t.Name)
		}
	}
	t.ID = m.next("application_types")
	m.appTypes[t.ID] = *t
	return nil
}

func (m *memState) ListApplicationTypes(_ context.Context) ([]domain.ApplicationType, error) {
	out := make([]domain.ApplicationType, 0, len(m.appTypes))
	for _, t := range m.appTypes {
		out = append(out, t)
	}
	domain.SortApplicationTypes(out)
	return out, nil
}

func (m *memState) CreateTemporaryCollection(_ context.Context, c domain.TemporaryDocumentCollection) error {
	if _, ok := m.collections[c.ID]; ok {
		return nil
	}
	c.Documents = nil
	m.collections[c.ID] = c
	return nil
}

func (m *memState) AddTemporaryDocument(_ context.Context, d *domain.TemporaryDocument) error {
	c, ok := m.collections[d.CollectionID]
	if !ok {
		return notFound("temporary document collection", d.CollectionID)
	}
	d.ID = m.next("temporary_documents")
	c.Documents = append(c.Documents, *d)
	m.collections[c.ID] = c
	return nil
}

func (m *memState) GetTemporaryCollection(_ context.Context, id uuid.UUID) (domain.TemporaryDocumentCollection, error) {
	c, ok := m.collections[id]
	if !ok {
		return domain.TemporaryDocumentCollection{}, notFound("temporary document collection", id)
	}
	return c, nil
}

func (m *memState) DeleteTemporaryCollection(_ context.Context, id uuid.UUID) error {
	if _, ok := m.collections[id]; !ok {
		return notFound("temporary document collection", id)
	}
	delete(m.collections, id)
	return nil
}

func (m *memState) OrphanedTemporaryCollections(_ context.Context, cutoff time.Time) ([]domain.TemporaryDocumentCollection, error) {
	claimed := make(map[string]bool, len(m.proposals))
	for _, p := range m.proposals {
		if p.TemporaryCollectionID != "" {
			claimed[p.TemporaryCollectionID] = true
		}
	}
	out := make([]domain.TemporaryDocumentCollection, 0)
	for id, c := range m.collections {
		if !claimed[id.String()] && c.Created.Before(cutoff) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, nil
}

func (m *memState) CreateMaintenance(_ context.Context, w *domain.SystemMaintenance) error {
	w.ID = m.next("system_maintenance")
	m.maintenance[w.ID] = *w
	return nil
}

func (m *memState) UpcomingMaintenance(_ context.Context, now time.Time) ([]domain.SystemMaintenance, error) {
	out := make([]domain.SystemMaintenance, 0)
	for _, w := range m.maintenance {
		if w.Upcoming(now) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
