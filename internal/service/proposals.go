package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"licensing-ledger/internal/domain"
	"licensing-ledger/internal/storage"
)

type NewProposalInput struct {
	Kind                  domain.ApplicationKind `json:"application_type" validate:"required"`
	ApplicantType         domain.ApplicantType   `json:"applicant_type,omitempty"`
	Title                 string                 `json:"title,omitempty" validate:"max=255"`
	Schema                json.RawMessage        `json:"schema" validate:"required"`
	Data                  json.RawMessage        `json:"data,omitempty"`
	SubmitterID           *int64                 `json:"submitter,omitempty"`
	ProxyApplicantID      *int64                 `json:"proxy_applicant,omitempty"`
	PreviousApplicationID *int64                 `json:"previous_application,omitempty"`
	TemporaryCollectionID string                 `json:"temporary_document_collection_id,omitempty" validate:"omitempty,uuid"`
}

func (in NewProposalInput) validate() error {
	if err := domain.ValidateStruct(in).Err(); err != nil {
		return err
	}
	if !in.Kind.IsValid() {
		return errors.Wrapf(domain.ErrValidation, "unknown application type %q", in.Kind)
	}
	if in.ApplicantType != "" && !in.ApplicantType.IsValid() {
		return errors.Wrapf(domain.ErrValidation, "unknown applicant type %q", in.ApplicantType)
	}
	return nil
}

func (s *Service) CreateProposal(ctx context.Context, actor int64, in NewProposalInput) (domain.Proposal, error) {
	if err := in.validate(); err != nil {
		return domain.Proposal{}, err
	}
	p := domain.NewProposal(in.Kind, in.Schema)
	p.ApplicantType = in.ApplicantType
	p.Title = in.Title
	p.Data = in.Data
	p.SubmitterID = in.SubmitterID
	p.ProxyApplicantID = in.ProxyApplicantID
	p.PreviousApplicationID = in.PreviousApplicationID
	p.TemporaryCollectionID = in.TemporaryCollectionID
	if err := p.Validate(); err != nil {
		return domain.Proposal{}, errors.Wrap(domain.ErrValidation, err.Error())
	}

	err := s.store.InTx(ctx, func(r storage.Repository) error {
		if p.TemporaryCollectionID != "" {
			if _, err := r.GetTemporaryCollection(ctx, uuid.MustParse(p.TemporaryCollectionID)); err != nil {
				return err
			}
		}
		if err := r.CreateProposal(ctx, &p); err != nil {
			return errors.Wrap(err, "create proposal")
		}
		return appendAction(ctx, r, domain.UserAction{
			Record:   domain.RecordProposal,
			RecordID: p.ID,
			Who:      actor,
			When:     s.now(),
			What:     fmt.Sprintf("Proposal %s created as %s", p.LodgementNumber, p.Statuses()),
		})
	})
	if err != nil {
		s.logRejected(change{record: domain.RecordProposal, actor: actor, op: "create proposal"}, err)
		return domain.Proposal{}, err
	}
	s.logApplied(change{record: domain.RecordProposal, id: p.ID, actor: actor, op: "create proposal", to: p.Statuses().String()})
	return p, nil
}

func (s *Service) GetProposal(ctx context.Context, id int64) (domain.Proposal, error) {
	var p domain.Proposal
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		var err error
		p, err = r.GetProposal(ctx, id)
		return err
	})
	return p, err
}

func (s *Service) LodgeProposal(ctx context.Context, actor, id int64) (domain.Proposal, error) {
	return s.mutateProposal(ctx, "lodge", actor, id, func(p *domain.Proposal, _ storage.Repository) (domain.UserAction, error) {
		return p.Lodge(actor, s.now())
	})
}

// TransitionProposal moves a proposal to target. Reaching approved issues
// the approval described by the proposal's proposed issuance, and reaching
// with_assessor from a draft lodges it.
func (s *Service) TransitionProposal(ctx context.Context, actor, id int64, target domain.StatusPair) (domain.Proposal, error) {
	return s.mutateProposal(ctx, "transition", actor, id, func(p *domain.Proposal, r storage.Repository) (domain.UserAction, error) {
		switch {
		case target.Processing == domain.ProcessingApproved:
			if err := p.ExpectTarget(target, domain.ApprovedStatuses); err != nil {
				return domain.UserAction{}, err
			}
			terms, err := domain.ParseProposedIssuance(p.ProposedIssuanceApproval)
			if err != nil {
				return domain.UserAction{}, err
			}
			return s.approve(ctx, r, actor, p, terms)
		case p.IsLodgement(target):
			return p.Lodge(actor, s.now())
		}
		return p.Transition(actor, target, s.now())
	})
}

// IssueApproval records the issuance terms on the proposal and approves it.
func (s *Service) IssueApproval(ctx context.Context, actor, id int64, terms domain.IssuanceTerms) (domain.Proposal, error) {
	return s.mutateProposal(ctx, "issue", actor, id, func(p *domain.Proposal, r storage.Repository) (domain.UserAction, error) {
		raw, err := json.Marshal(map[string]string{
			"start_date":  terms.StartDate.Format("2006-01-02"),
			"expiry_date": terms.ExpiryDate.Format("2006-01-02"),
			"details":     terms.Details,
		})
		if err != nil {
			return domain.UserAction{}, errors.Wrap(err, "encode proposed issuance")
		}
		p.ProposedIssuanceApproval = raw
		return s.approve(ctx, r, actor, p, terms)
	})
}

// approve moves p to approved/approved, creates its approval and links any
// approval it renews. The replaced approval keeps its status.
func (s *Service) approve(ctx context.Context, r storage.Repository, actor int64, p *domain.Proposal, terms domain.IssuanceTerms) (domain.UserAction, error) {
	now := s.now()
	act, err := p.Transition(actor, domain.ApprovedStatuses, now)
	if err != nil {
		return domain.UserAction{}, err
	}

	a, err := domain.NewApproval(p.ID, terms, now)
	if err != nil {
		return domain.UserAction{}, err
	}
	a.ProxyApplicantID = p.ProxyApplicantID

	var replaced *domain.Approval
	if p.PreviousApplicationID != nil {
		prev, err := r.GetProposal(ctx, *p.PreviousApplicationID)
		if err != nil {
			return domain.UserAction{}, errors.Wrap(err, "load previous application")
		}
		if prev.ApprovalID != nil {
			old, err := r.LockApproval(ctx, *prev.ApprovalID)
			if err != nil {
				return domain.UserAction{}, errors.Wrap(err, "load replaced approval")
			}
			replaced = &old
			a.ApiaryApproval = old.ApiaryApproval
			if old.OriginalIssueDate != nil {
				if err := a.SetOriginalIssueDate(*old.OriginalIssueDate); err != nil {
					return domain.UserAction{}, err
				}
			}
		}
	}
	if a.OriginalIssueDate == nil {
		if err := a.SetOriginalIssueDate(now); err != nil {
			return domain.UserAction{}, err
		}
	}

	if err := r.CreateApproval(ctx, &a); err != nil {
		return domain.UserAction{}, errors.Wrap(err, "create approval")
	}
	p.ApprovalID = &a.ID

	if err := appendAction(ctx, r, domain.UserAction{
		Record:   domain.RecordApproval,
		RecordID: a.ID,
		Who:      actor,
		When:     now,
		What:     fmt.Sprintf("Approval %s issued from proposal %s", a.LodgementNumber, p.LodgementNumber),
	}); err != nil {
		return domain.UserAction{}, err
	}

	if replaced != nil {
		if err := replaced.ReplaceWith(a.ID); err != nil {
			return domain.UserAction{}, err
		}
		if err := r.UpdateApproval(ctx, *replaced); err != nil {
			return domain.UserAction{}, errors.Wrap(err, "link replaced approval")
		}
		if err := appendAction(ctx, r, domain.UserAction{
			Record:   domain.RecordApproval,
			RecordID: replaced.ID,
			Who:      actor,
			When:     now,
			What:     fmt.Sprintf("Approval %s replaced by %s", replaced.LodgementNumber, a.LodgementNumber),
		}); err != nil {
			return domain.UserAction{}, err
		}
	}
	return act, nil
}

func (s *Service) SetProposalCheck(ctx context.Context, actor, id int64, axis domain.CheckAxis, status string) (domain.Proposal, error) {
	return s.mutateProposal(ctx, "check", actor, id, func(p *domain.Proposal, _ storage.Repository) (domain.UserAction, error) {
		return p.SetCheck(actor, axis, status, s.now())
	})
}

func (s *Service) EditProposalData(ctx context.Context, actor, id int64, data json.RawMessage) (domain.Proposal, error) {
	return s.mutateProposal(ctx, "edit", actor, id, func(p *domain.Proposal, _ storage.Repository) (domain.UserAction, error) {
		if err := p.EditData(data); err != nil {
			return domain.UserAction{}, err
		}
		return domain.UserAction{
			Record:   domain.RecordProposal,
			RecordID: p.ID,
			Who:      actor,
			When:     s.now(),
			What:     fmt.Sprintf("Proposal %s data updated", p.LodgementNumber),
		}, nil
	})
}

func (s *Service) AmendProposal(ctx context.Context, actor, id int64) (domain.Proposal, error) {
	return s.mutateProposal(ctx, "amend", actor, id, func(p *domain.Proposal, _ storage.Repository) (domain.UserAction, error) {
		return p.Amend(actor, s.now())
	})
}

func (s *Service) DeclineProposal(ctx context.Context, actor, id int64) (domain.Proposal, error) {
	return s.mutateProposal(ctx, "decline", actor, id, func(p *domain.Proposal, _ storage.Repository) (domain.UserAction, error) {
		act, err := p.Transition(actor, domain.StatusPair{Customer: domain.CustomerDeclined, Processing: domain.ProcessingDeclined}, s.now())
		if err != nil {
			return domain.UserAction{}, err
		}
		p.ProposedDeclineStatus = false
		return act, nil
	})
}

// DiscardProposal abandons a draft and removes any files uploaded for it.
func (s *Service) DiscardProposal(ctx context.Context, actor, id int64) (domain.Proposal, error) {
	var purge []string
	p, err := s.mutateProposal(ctx, "discard", actor, id, func(p *domain.Proposal, r storage.Repository) (domain.UserAction, error) {
		act, err := p.Transition(actor, domain.StatusPair{Customer: domain.CustomerDiscarded, Processing: domain.ProcessingDiscarded}, s.now())
		if err != nil {
			return domain.UserAction{}, err
		}
		if p.TemporaryCollectionID == "" {
			return act, nil
		}
		collectionID, err := uuid.Parse(p.TemporaryCollectionID)
		if err != nil {
			return domain.UserAction{}, errors.Wrap(err, "parse temporary collection id")
		}
		c, err := r.GetTemporaryCollection(ctx, collectionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.UserAction{}, err
		}
		if err == nil {
			if err := r.DeleteTemporaryCollection(ctx, c.ID); err != nil {
				return domain.UserAction{}, errors.Wrap(err, "delete temporary collection")
			}
			purge = c.Paths()
		}
		p.TemporaryCollectionID = ""
		return act, nil
	})
	if err != nil {
		return domain.Proposal{}, err
	}
	s.removeDocuments(ctx, purge)
	return p, nil
}

// DeleteProposal removes a proposal that was never lodged.
func (s *Service) DeleteProposal(ctx context.Context, actor, id int64) error {
	c := change{record: domain.RecordProposal, id: id, actor: actor, op: "delete"}
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		p, err := r.LockProposal(ctx, id)
		if err != nil {
			return err
		}
		c.from = p.Statuses().String()
		if p.Lodged() {
			return errors.Wrapf(domain.ErrPreconditionNotMet, "proposal %s has been lodged", p.LodgementNumber)
		}
		return r.DeleteProposal(ctx, id)
	})
	if err != nil {
		s.logRejected(c, err)
		return err
	}
	s.logApplied(c)
	return nil
}

func (s *Service) ProposalActions(ctx context.Context, id int64) ([]domain.UserAction, error) {
	return s.actions(ctx, domain.RecordProposal, id)
}

func (s *Service) ApprovalActions(ctx context.Context, id int64) ([]domain.UserAction, error) {
	return s.actions(ctx, domain.RecordApproval, id)
}

func (s *Service) actions(ctx context.Context, record domain.RecordKind, id int64) ([]domain.UserAction, error) {
	var out []domain.UserAction
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		if err := recordExists(ctx, r, record, id); err != nil {
			return err
		}
		var err error
		out, err = r.ListActions(ctx, record, id)
		return err
	})
	return out, err
}

func recordExists(ctx context.Context, r storage.Repository, record domain.RecordKind, id int64) error {
	switch record {
	case domain.RecordProposal:
		_, err := r.GetProposal(ctx, id)
		return err
	case domain.RecordApproval:
		_, err := r.GetApproval(ctx, id)
		return err
	}
	return errors.Wrapf(domain.ErrValidation, "unknown record kind %q", record)
}
