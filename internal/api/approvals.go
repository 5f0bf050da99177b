package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"licensing-ledger/internal/domain"
)

type stageRequest struct {
	Intent domain.ApprovalIntent `json:"intent" validate:"required"`
}

type applyRequest struct {
	Date    string `json:"date,omitempty"`
	ToDate  string `json:"to_date,omitempty"`
	Details string `json:"details,omitempty"`
}

type renewRequest struct {
	Schema json.RawMessage `json:"schema,omitempty"`
}

func invalidField(field string, err error) error {
	return errors.Wrapf(domain.ErrValidation, "%s: %v", field, err)
}

func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "approvalId")
	if !ok {
		return
	}
	a, err := h.svc.GetApproval(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) StageApprovalIntent(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	h.approvalCommand(w, r, &req, func(who, id int64) (domain.Approval, error) {
		return h.svc.StageApprovalIntent(r.Context(), who, id, req.Intent)
	})
}

func (h *Handler) ApplyApprovalIntent(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	h.approvalCommand(w, r, &req, func(who, id int64) (domain.Approval, error) {
		details := domain.IntentDetails{Details: req.Details}
		if req.Date != "" {
			d, err := domain.ParseDate(req.Date)
			if err != nil {
				return domain.Approval{}, invalidField("date", err)
			}
			details.Date = d
		}
		if req.ToDate != "" {
			d, err := domain.ParseDate(req.ToDate)
			if err != nil {
				return domain.Approval{}, invalidField("to_date", err)
			}
			details.ToDate = &d
		}
		intent := domain.ApprovalIntent(chi.URLParam(r, "intent"))
		return h.svc.ApplyApprovalIntent(r.Context(), who, id, intent, details)
	})
}

func (h *Handler) ReinstateApproval(w http.ResponseWriter, r *http.Request) {
	h.approvalCommand(w, r, nil, func(who, id int64) (domain.Approval, error) {
		return h.svc.ReinstateApproval(r.Context(), who, id)
	})
}

func (h *Handler) RenewApproval(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "approvalId")
	if !ok {
		return
	}
	var req renewRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.RenewApproval(r.Context(), who, id, req.Schema)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) ApprovalActions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "approvalId")
	if !ok {
		return
	}
	acts, err := h.svc.ApprovalActions(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": acts})
}

// ExpireApprovals runs the expiry sweep for the given day, or today.
func (h *Handler) ExpireApprovals(w http.ResponseWriter, r *http.Request) {
	today := h.svc.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			h.writeError(w, invalidField("date", err))
			return
		}
		today = d
	}
	n, err := h.svc.ExpireApprovals(r.Context(), today)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": today.Format(time.DateOnly), "expired": n})
}

func (h *Handler) approvalCommand(w http.ResponseWriter, r *http.Request, req any, fn func(who, id int64) (domain.Approval, error)) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "approvalId")
	if !ok {
		return
	}
	if req != nil {
		if !decodeJSON(w, r, req) {
			return
		}
		if err := domain.ValidateStruct(req).Err(); err != nil {
			h.writeError(w, err)
			return
		}
	}
	a, err := fn(who, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
