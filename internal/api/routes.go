package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/", h.GetUser)
			r.Delete("/", h.RemoveUser)
		})

		r.Post("/proposals", h.CreateProposal)
		r.Route("/proposals/{proposalId}", func(r chi.Router) {
			r.Get("/", h.GetProposal)
			r.Delete("/", h.DeleteProposal)
			r.Put("/data", h.EditProposalData)
			r.Post("/lodge", h.LodgeProposal)
			r.Post("/transition", h.TransitionProposal)
			r.Post("/checks", h.SetProposalCheck)
			r.Post("/amend", h.AmendProposal)
			r.Post("/issue", h.IssueApproval)
			r.Post("/decline", h.DeclineProposal)
			r.Post("/discard", h.DiscardProposal)
			r.Get("/actions", h.ProposalActions)
			r.Get("/communications", h.ProposalCommunications)
			r.Post("/communications", h.LogProposalCommunication)
		})

		r.Post("/approvals/expire", h.ExpireApprovals)
		r.Route("/approvals/{approvalId}", func(r chi.Router) {
			r.Get("/", h.GetApproval)
			r.Post("/intents", h.StageApprovalIntent)
			r.Post("/intents/{intent}/apply", h.ApplyApprovalIntent)
			r.Post("/reinstate", h.ReinstateApproval)
			r.Post("/renew", h.RenewApproval)
			r.Get("/actions", h.ApprovalActions)
			r.Get("/communications", h.ApprovalCommunications)
			r.Post("/communications", h.LogApprovalCommunication)
		})

		r.Post("/temporary-documents", h.UploadTemporaryDocument)
		r.Route("/temporary-documents/{collectionId}", func(r chi.Router) {
			r.Get("/", h.GetTemporaryCollection)
			r.Delete("/", h.PurgeTemporaryCollection)
			r.Get("/files/{filename}", h.DownloadTemporaryDocument)
		})

		r.Get("/application-types", h.ApplicationTypes)
		r.Post("/application-types", h.CreateApplicationType)

		r.Get("/system-maintenance", h.UpcomingMaintenance)
		r.Post("/system-maintenance", h.ScheduleMaintenance)
		r.Post("/housekeeping", h.RunHousekeeping)
	})

	return r
}
