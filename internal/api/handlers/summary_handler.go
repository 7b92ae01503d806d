package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/planease/engine/internal/api/types"
	"github.com/planease/engine/internal/services"
)

// SummaryEnqueuer schedules a summary rebuild on the worker.
type SummaryEnqueuer interface {
	EnqueueSummaryRebuild(ctx context.Context, projectID string) (string, error)
}

type SummaryHandler struct {
	svc      services.SummaryService
	enqueuer SummaryEnqueuer
}

func NewSummaryHandler(svc services.SummaryService, enqueuer SummaryEnqueuer) *SummaryHandler {
	return &SummaryHandler{svc: svc, enqueuer: enqueuer}
}

func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: s})
}

func (h *SummaryHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async && h.enqueuer != nil {
		id, err := h.enqueuer.EnqueueSummaryRebuild(r.Context(), projectID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, types.APIResponse{Success: true, Data: map[string]string{"task_id": id}})
		return
	}
	s, err := h.svc.Rebuild(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: s})
}
