package service

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"licensing-ledger/internal/domain"
	"licensing-ledger/internal/storage"
)

// DocumentRemover deletes stored files by object key.
type DocumentRemover interface {
	RemoveDocuments(ctx context.Context, objectKeys []string) error
}

type Service struct {
	store  storage.Transactor
	docs   DocumentRemover
	logger logrus.FieldLogger
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithDocuments(docs DocumentRemover) Option {
	return func(s *Service) { s.docs = docs }
}

func New(store storage.Transactor, logger logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Now() time.Time { return s.now() }

type change struct {
	record domain.RecordKind
	id     int64
	actor  int64
	op     string
	from   string
	to     string
}

func (s *Service) logApplied(c change) {
	s.logger.WithFields(logrus.Fields{
		"record": c.record,
		"id":     c.id,
		"from":   c.from,
		"to":     c.to,
		"actor":  c.actor,
	}).Info(c.op + " applied")
}

func (s *Service) logRejected(c change, err error) {
	fields := logrus.Fields{
		"record": c.record,
		"id":     c.id,
		"actor":  c.actor,
	}
	var te *domain.TransitionError
	if errors.As(err, &te) {
		fields["from"] = te.From
		fields["to"] = te.To
		fields["axis"] = te.Axis
	}
	s.logger.WithFields(fields).WithError(err).Warn(c.op + " rejected")
}

func appendAction(ctx context.Context, r storage.Repository, act domain.UserAction) error {
	if err := r.AppendAction(ctx, &act); err != nil {
		return errors.Wrap(err, "append user action")
	}
	return nil
}

type proposalMutation func(p *domain.Proposal, r storage.Repository) (domain.UserAction, error)

// mutateProposal loads a proposal, applies fn and writes the proposal and
// its audit entry in one transaction.
func (s *Service) mutateProposal(ctx context.Context, op string, actor, id int64, fn proposalMutation) (domain.Proposal, error) {
	c := change{record: domain.RecordProposal, id: id, actor: actor, op: op}
	var out domain.Proposal
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		p, err := r.LockProposal(ctx, id)
		if err != nil {
			return err
		}
		c.from = p.Statuses().String()
		act, err := fn(&p, r)
		if err != nil {
			return err
		}
		if err := r.UpdateProposal(ctx, p); err != nil {
			return errors.Wrap(err, "update proposal")
		}
		if err := appendAction(ctx, r, act); err != nil {
			return err
		}
		c.to = p.Statuses().String()
		out = p
		return nil
	})
	if err != nil {
		s.logRejected(c, err)
		return domain.Proposal{}, err
	}
	s.logApplied(c)
	return out, nil
}

type approvalMutation func(a *domain.Approval, r storage.Repository) (domain.UserAction, error)

func (s *Service) mutateApproval(ctx context.Context, op string, actor, id int64, fn approvalMutation) (domain.Approval, error) {
	c := change{record: domain.RecordApproval, id: id, actor: actor, op: op}
	var out domain.Approval
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		a, err := r.LockApproval(ctx, id)
		if err != nil {
			return err
		}
		c.from = string(a.Status)
		act, err := fn(&a, r)
		if err != nil {
			return err
		}
		if err := r.UpdateApproval(ctx, a); err != nil {
			return errors.Wrap(err, "update approval")
		}
		if err := appendAction(ctx, r, act); err != nil {
			return err
		}
		c.to = string(a.Status)
		out = a
		return nil
	})
	if err != nil {
		s.logRejected(c, err)
		return domain.Approval{}, err
	}
	s.logApplied(c)
	return out, nil
}
