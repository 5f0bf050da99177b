package api

import (
	"net/http"

	"licensing-ledger/internal/domain"
)

func (h *Handler) LogProposalCommunication(w http.ResponseWriter, r *http.Request) {
	h.logCommunication(w, r, domain.RecordProposal, "proposalId")
}

func (h *Handler) ProposalCommunications(w http.ResponseWriter, r *http.Request) {
	h.communications(w, r, domain.RecordProposal, "proposalId")
}

func (h *Handler) LogApprovalCommunication(w http.ResponseWriter, r *http.Request) {
	h.logCommunication(w, r, domain.RecordApproval, "approvalId")
}

func (h *Handler) ApprovalCommunications(w http.ResponseWriter, r *http.Request) {
	h.communications(w, r, domain.RecordApproval, "approvalId")
}

func (h *Handler) logCommunication(w http.ResponseWriter, r *http.Request, record domain.RecordKind, param string) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, param)
	if !ok {
		return
	}
	var e domain.CommunicationLogEntry
	if !decodeJSON(w, r, &e) {
		return
	}
	e.Record = record
	e.RecordID = id
	logged, err := h.svc.LogCommunication(r.Context(), who, e)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, logged)
}

func (h *Handler) communications(w http.ResponseWriter, r *http.Request, record domain.RecordKind, param string) {
	id, ok := h.pathID(w, r, param)
	if !ok {
		return
	}
	entries, err := h.svc.Communications(r.Context(), record, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

type applicationTypeResponse struct {
	domain.ApplicationType
	TotalFee string `json:"total_fee"`
}

// ApplicationTypes lists visible application types with their fee including
// GST. ?all=true includes hidden types.
func (h *Handler) ApplicationTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.ApplicationTypes(r.Context(), r.URL.Query().Get("all") == "true")
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]applicationTypeResponse, 0, len(types))
	for _, t := range types {
		items = append(items, applicationTypeResponse{ApplicationType: t, TotalFee: t.TotalFee(h.cfg.GSTRate).StringFixed(2)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) CreateApplicationType(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplicationType
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.CreateApplicationType(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, applicationTypeResponse{ApplicationType: t, TotalFee: t.TotalFee(h.cfg.GSTRate).StringFixed(2)})
}
