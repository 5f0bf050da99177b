package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"licensing-ledger/internal/domain"
	"licensing-ledger/internal/storage"
)

func (s *Service) GetApproval(ctx context.Context, id int64) (domain.Approval, error) {
	var a domain.Approval
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		var err error
		a, err = r.GetApproval(ctx, id)
		return err
	})
	return a, err
}

func (s *Service) StageApprovalIntent(ctx context.Context, actor, id int64, intent domain.ApprovalIntent) (domain.Approval, error) {
	return s.mutateApproval(ctx, "stage "+string(intent), actor, id, func(a *domain.Approval, _ storage.Repository) (domain.UserAction, error) {
		return a.Stage(actor, intent, s.now())
	})
}

func (s *Service) ApplyApprovalIntent(ctx context.Context, actor, id int64, intent domain.ApprovalIntent, details domain.IntentDetails) (domain.Approval, error) {
	return s.mutateApproval(ctx, "apply "+string(intent), actor, id, func(a *domain.Approval, _ storage.Repository) (domain.UserAction, error) {
		return a.Apply(actor, intent, details, s.now())
	})
}

func (s *Service) ReinstateApproval(ctx context.Context, actor, id int64) (domain.Approval, error) {
	return s.mutateApproval(ctx, "reinstate", actor, id, func(a *domain.Approval, _ storage.Repository) (domain.UserAction, error) {
		return a.Reinstate(actor, s.now())
	})
}

// ExpireApprovals moves every current approval whose expiry date is before
// today to expired. Running it again for the same day changes nothing.
func (s *Service) ExpireApprovals(ctx context.Context, today time.Time) (int, error) {
	expired := make([]domain.Approval, 0)
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		expired = expired[:0]
		due, err := r.ApprovalsDueForExpiry(ctx, today)
		if err != nil {
			return errors.Wrap(err, "list approvals due for expiry")
		}
		for _, a := range due {
			act, changed := a.Expire(today)
			if !changed {
				continue
			}
			if err := r.UpdateApproval(ctx, a); err != nil {
				return errors.Wrapf(err, "expire approval %d", a.ID)
			}
			if err := appendAction(ctx, r, act); err != nil {
				return err
			}
			expired = append(expired, a)
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("approval expiry failed")
		return 0, err
	}
	for _, a := range expired {
		s.logApplied(change{record: domain.RecordApproval, id: a.ID, actor: domain.SystemActor, op: "expire",
			from: string(domain.ApprovalCurrent), to: string(a.Status)})
	}
	return len(expired), nil
}

// RenewApproval opens a renewal proposal against a current approval. The
// approval is linked to its successor when the renewal is issued.
func (s *Service) RenewApproval(ctx context.Context, actor, id int64, schema json.RawMessage) (domain.Proposal, error) {
	var p domain.Proposal
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		a, err := r.LockApproval(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != domain.ApprovalCurrent {
			return errors.Wrapf(domain.ErrPreconditionNotMet, "approval %s is %s", a.LodgementNumber, a.Status)
		}
		if a.ReplacedByID != nil {
			return errors.Wrapf(domain.ErrPreconditionNotMet, "approval %s has already been replaced", a.LodgementNumber)
		}
		if a.CurrentProposalID == nil {
			return errors.Wrapf(domain.ErrPreconditionNotMet, "approval %s has no proposal", a.LodgementNumber)
		}
		prev, err := r.GetProposal(ctx, *a.CurrentProposalID)
		if err != nil {
			return errors.Wrap(err, "load current proposal")
		}

		if len(schema) == 0 {
			schema = prev.Schema
		}
		p = domain.NewProposal(domain.ApplicationRenewal, schema)
		p.ApplicantType = prev.ApplicantType
		p.Title = prev.Title
		p.Data = prev.Data
		p.SubmitterID = prev.SubmitterID
		p.ProxyApplicantID = prev.ProxyApplicantID
		p.PreviousApplicationID = &prev.ID
		if err := p.Validate(); err != nil {
			return errors.Wrap(domain.ErrValidation, err.Error())
		}
		if err := r.CreateProposal(ctx, &p); err != nil {
			return errors.Wrap(err, "create renewal proposal")
		}

		a.RenewalSent = true
		if err := r.UpdateApproval(ctx, a); err != nil {
			return errors.Wrap(err, "mark renewal sent")
		}
		now := s.now()
		if err := appendAction(ctx, r, domain.UserAction{
			Record: domain.RecordProposal, RecordID: p.ID, Who: actor, When: now,
			What: fmt.Sprintf("Proposal %s created to renew approval %s", p.LodgementNumber, a.LodgementNumber),
		}); err != nil {
			return err
		}
		return appendAction(ctx, r, domain.UserAction{
			Record: domain.RecordApproval, RecordID: a.ID, Who: actor, When: now,
			What: fmt.Sprintf("Approval %s renewal started as %s", a.LodgementNumber, p.LodgementNumber),
		})
	})
	c := change{record: domain.RecordApproval, id: id, actor: actor, op: "renew"}
	if err != nil {
		s.logRejected(c, err)
		return domain.Proposal{}, err
	}
	c.to = p.LodgementNumber
	s.logApplied(c)
	return p, nil
}
