package api

import (
	"encoding/json"
	"net/http"

	"licensing-ledger/internal/domain"
	"licensing-ledger/internal/service"
)

type proposalResponse struct {
	ID int64 `json:"id"`
}

type transitionRequest struct {
	CustomerStatus   domain.CustomerStatus   `json:"customer_status" validate:"required"`
	ProcessingStatus domain.ProcessingStatus `json:"processing_status" validate:"required"`
}

type checkRequest struct {
	Axis   domain.CheckAxis `json:"axis" validate:"required"`
	Status string           `json:"status" validate:"required"`
}

type issueRequest struct {
	StartDate  string `json:"start_date" validate:"required"`
	ExpiryDate string `json:"expiry_date" validate:"required"`
	Details    string `json:"details"`
}

func (h *Handler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var req service.NewProposalInput
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProposal(r.Context(), who, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProposal exposes only the id; full proposal data is served by the
// internal views.
func (h *Handler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "proposalId")
	if !ok {
		return
	}
	p, err := h.svc.GetProposal(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse{ID: p.ID})
}

func (h *Handler) DeleteProposal(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "proposalId")
	if !ok {
		return
	}
	if err := h.svc.DeleteProposal(r.Context(), who, id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TransitionProposal(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	h.proposalCommand(w, r, &req, func(who, id int64) (domain.Proposal, error) {
		target := domain.StatusPair{Customer: req.CustomerStatus, Processing: req.ProcessingStatus}
		return h.svc.TransitionProposal(r.Context(), who, id, target)
	})
}

func (h *Handler) SetProposalCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	h.proposalCommand(w, r, &req, func(who, id int64) (domain.Proposal, error) {
		return h.svc.SetProposalCheck(r.Context(), who, id, req.Axis, req.Status)
	})
}

func (h *Handler) IssueApproval(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	h.proposalCommand(w, r, &req, func(who, id int64) (domain.Proposal, error) {
		start, err := domain.ParseDate(req.StartDate)
		if err != nil {
			return domain.Proposal{}, invalidField("start_date", err)
		}
		expiry, err := domain.ParseDate(req.ExpiryDate)
		if err != nil {
			return domain.Proposal{}, invalidField("expiry_date", err)
		}
		return h.svc.IssueApproval(r.Context(), who, id, domain.IssuanceTerms{StartDate: start, ExpiryDate: expiry, Details: req.Details})
	})
}

func (h *Handler) EditProposalData(w http.ResponseWriter, r *http.Request) {
	var data json.RawMessage
	h.proposalCommand(w, r, &data, func(who, id int64) (domain.Proposal, error) {
		return h.svc.EditProposalData(r.Context(), who, id, data)
	})
}

func (h *Handler) LodgeProposal(w http.ResponseWriter, r *http.Request) {
	h.proposalCommand(w, r, nil, func(who, id int64) (domain.Proposal, error) {
		return h.svc.LodgeProposal(r.Context(), who, id)
	})
}

func (h *Handler) AmendProposal(w http.ResponseWriter, r *http.Request) {
	h.proposalCommand(w, r, nil, func(who, id int64) (domain.Proposal, error) {
		return h.svc.AmendProposal(r.Context(), who, id)
	})
}

func (h *Handler) DeclineProposal(w http.ResponseWriter, r *http.Request) {
	h.proposalCommand(w, r, nil, func(who, id int64) (domain.Proposal, error) {
		return h.svc.DeclineProposal(r.Context(), who, id)
	})
}

func (h *Handler) DiscardProposal(w http.ResponseWriter, r *http.Request) {
	h.proposalCommand(w, r, nil, func(who, id int64) (domain.Proposal, error) {
		return h.svc.DiscardProposal(r.Context(), who, id)
	})
}

func (h *Handler) ProposalActions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "proposalId")
	if !ok {
		return
	}
	acts, err := h.svc.ProposalActions(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": acts})
}

// proposalCommand resolves the actor and path id, decodes and validates req
// when given, then runs fn and writes the resulting proposal.
func (h *Handler) proposalCommand(w http.ResponseWriter, r *http.Request, req any, fn func(who, id int64) (domain.Proposal, error)) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "proposalId")
	if !ok {
		return
	}
	if req != nil {
		if !decodeJSON(w, r, req) {
			return
		}
		if _, raw := req.(*json.RawMessage); !raw {
			if err := domain.ValidateStruct(req).Err(); err != nil {
				h.writeError(w, err)
				return
			}
		}
	}
	p, err := fn(who, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
