package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"licensing-ledger/internal/domain"
)

// Repository is the persistence surface used inside a transaction. Lookups
// of missing rows return domain.ErrNotFound.
type Repository interface {
	// CreateProposal stores p, assigns its id and allocates its lodgement number.
	CreateProposal(ctx context.Context, p *domain.Proposal) error
	GetProposal(ctx context.Context, id int64) (domain.Proposal, error)
	// LockProposal reads a proposal and holds it against concurrent writers
	// until the transaction ends.
	LockProposal(ctx context.Context, id int64) (domain.Proposal, error)
	UpdateProposal(ctx context.Context, p domain.Proposal) error
	// DeleteProposal fails with domain.ErrProtectedReference while another
	// record still refers to the proposal.
	DeleteProposal(ctx context.Context, id int64) error

	// CreateApproval stores a, assigns its id and allocates its lodgement
	// number. A reused (lodgement_number, issue_date) pair fails with
	// domain.ErrDuplicateLodgement.
	CreateApproval(ctx context.Context, a *domain.Approval) error
	GetApproval(ctx context.Context, id int64) (domain.Approval, error)
	LockApproval(ctx context.Context, id int64) (domain.Approval, error)
	UpdateApproval(ctx context.Context, a domain.Approval) error
	// ApprovalsDueForExpiry locks and returns current approvals whose expiry
	// date is before today.
	ApprovalsDueForExpiry(ctx context.Context, today time.Time) ([]domain.Approval, error)

	CreateUser(ctx context.Context, u *domain.UserIdentity) error
	GetUser(ctx context.Context, id int64) (domain.UserIdentity, error)
	// RemoveUser clears staff assignments that point at the user. Users that
	// still own proposals are protected.
	RemoveUser(ctx context.Context, id int64) error

	AppendAction(ctx context.Context, a *domain.UserAction) error
	// ListActions returns the audit trail of one record, oldest first.
	ListActions(ctx context.Context, record domain.RecordKind, id int64) ([]domain.UserAction, error)

	AppendCommunication(ctx context.Context, e *domain.CommunicationLogEntry) error
	// ListCommunications returns the communications log of one record,
	// oldest first.
	ListCommunications(ctx context.Context, record domain.RecordKind, id int64) ([]domain.CommunicationLogEntry, error)

	// CreateApplicationType fails with domain.ErrValidation when the name is
	// taken.
	CreateApplicationType(ctx context.Context, t *domain.ApplicationType) error
	ListApplicationTypes(ctx context.Context) ([]domain.ApplicationType, error)

	CreateTemporaryCollection(ctx context.Context, c domain.TemporaryDocumentCollection) error
	AddTemporaryDocument(ctx context.Context, d *domain.TemporaryDocument) error
	GetTemporaryCollection(ctx context.Context, id uuid.UUID) (domain.TemporaryDocumentCollection, error)
	DeleteTemporaryCollection(ctx context.Context, id uuid.UUID) error
	// OrphanedTemporaryCollections lists collections created before cutoff
	// that no proposal refers to.
	OrphanedTemporaryCollections(ctx context.Context, cutoff time.Time) ([]domain.TemporaryDocumentCollection, error)

	CreateMaintenance(ctx context.Context, m *domain.SystemMaintenance) error
	// UpcomingMaintenance lists windows that have not ended at now, by start.
	UpcomingMaintenance(ctx context.Context, now time.Time) ([]domain.SystemMaintenance, error)
}

// Transactor runs fn against a Repository with all-or-nothing semantics: if
// fn returns an error nothing it wrote is kept.
type Transactor interface {
	InTx(ctx context.Context, fn func(Repository) error) error
}

// Backend is a Transactor the commands can health-check and close.
type Backend interface {
	Transactor
	Ping(ctx context.Context) error
	Close() error
}

// Open returns the backend named by driver: "memory" or "postgres".
func Open(driver, dsn string) (Backend, error) {
	switch driver {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		s, err := NewPostgresStore(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// DocumentStore holds uploaded files by object key.
type DocumentStore interface {
	PutDocument(ctx context.Context, objectKey string, content []byte) error
	GetDocument(ctx context.Context, objectKey string) ([]byte, error)
	RemoveDocuments(ctx context.Context, objectKeys []string) error
}
