package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"

	"licensing-ledger/internal/config"
	"licensing-ledger/internal/domain"
	"licensing-ledger/internal/service"
	appTemporal "licensing-ledger/internal/temporal"
)

// ActorHeader carries the id of the user performing a request.
const ActorHeader = "X-User-ID"

type Handler struct {
	cfg       config.Config
	svc       *service.Service
	docs      documentStore
	store     pinger
	workflows workflowStarter
	logger    logrus.FieldLogger
}

type documentStore interface {
	PutDocument(ctx context.Context, objectKey string, content []byte) error
	GetDocument(ctx context.Context, objectKey string) ([]byte, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// NewHandler wires the HTTP surface. docs and workflows may be nil, in
// which case uploads and on-demand housekeeping answer 503.
func NewHandler(cfg config.Config, svc *service.Service, store pinger, docs documentStore, workflows workflowStarter, logger logrus.FieldLogger) *Handler {
	return &Handler{cfg: cfg, svc: svc, store: store, docs: docs, workflows: workflows, logger: logger}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type userResponse struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Title        string `json:"title"`
	Organisation string `json:"organisation"`
	Name         string `json:"name"`
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "userId")
	if !ok {
		return
	}
	u, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Title:        u.Title,
		Organisation: u.Organisation,
		Name:         u.FullName(),
	})
}

func (h *Handler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "userId")
	if !ok {
		return
	}
	if err := h.svc.RemoveUser(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpcomingMaintenance(w http.ResponseWriter, r *http.Request) {
	windows, err := h.svc.UpcomingMaintenance(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	now := h.svc.Now()
	items := make([]map[string]any, 0, len(windows))
	for _, m := range windows {
		items = append(items, map[string]any{
			"id":          m.ID,
			"name":        m.Name,
			"description": m.Description,
			"start_date":  m.Start,
			"end_date":    m.End,
			"duration":    m.DurationMinutes(),
			"active":      m.ActiveAt(now),
			"message":     m.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) ScheduleMaintenance(w http.ResponseWriter, r *http.Request) {
	var req domain.SystemMaintenance
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.ScheduleMaintenance(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// RunHousekeeping starts a one-off housekeeping run outside the schedule.
func (h *Handler) RunHousekeeping(w http.ResponseWriter, r *http.Request) {
	if h.workflows == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "workflow client not configured"})
		return
	}
	opts := client.StartWorkflowOptions{
		ID:        h.cfg.WorkflowIDPrefix + "-manual-" + h.svc.Now().Format("20060102T150405"),
		TaskQueue: h.cfg.TemporalTaskQueue,
	}
	run, err := h.workflows.ExecuteWorkflow(r.Context(), opts, appTemporal.HousekeepingWorkflowName, appTemporal.HousekeepingInput{AsOf: h.svc.Now()})
	if err != nil {
		h.logger.WithError(err).Error("start housekeeping workflow")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to start housekeeping"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": run.GetID(), "run_id": run.GetRunID()})
}

// writeError maps domain failures onto HTTP statuses. Anything unmapped is
// logged and reported as 500 without detail.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPreconditionNotMet),
		errors.Is(err, domain.ErrImmutableFieldViolation),
		errors.Is(err, domain.ErrDuplicateLodgement),
		errors.Is(err, domain.ErrProtectedReference):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed")
		writeJSON(w, status, map[string]any{"error": "internal error"})
		return
	}
	body := map[string]any{"error": err.Error()}
	var te *domain.TransitionError
	if errors.As(err, &te) {
		body["axis"] = te.Axis
		body["from"] = te.From
		body["to"] = te.To
	}
	writeJSON(w, status, body)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid " + param})
		return 0, false
	}
	return id, true
}

func actor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(ActorHeader)
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ActorHeader + " header is required"})
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid " + ActorHeader + " header"})
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
