package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/planease/engine/internal/api/middleware"
	"github.com/planease/engine/internal/api/types"
	"github.com/planease/engine/internal/services"
	appErr "github.com/planease/engine/pkg/errors"
	"github.com/planease/engine/pkg/logger"
)

// FinaliseEnqueuer schedules finalisation on the worker.
type FinaliseEnqueuer interface {
	EnqueueFinalise(ctx context.Context, sessionID, userID string) (string, error)
}

type FinaliseHandler struct {
	svc      services.FinaliseService
	enqueuer FinaliseEnqueuer
}

// NewFinaliseHandler builds the trigger. enqueuer may be nil, in which case
// async requests run inline.
func NewFinaliseHandler(svc services.FinaliseService, enqueuer FinaliseEnqueuer) *FinaliseHandler {
	return &FinaliseHandler{svc: svc, enqueuer: enqueuer}
}

// Finalise takes the session id from the path or a {"sessionId"} body.
func (h *FinaliseHandler) Finalise(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" && r.Body != nil {
		var req types.FinaliseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			sessionID = req.SessionID
		}
	}
	userID := middleware.GetUserID(r.Context())

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async && h.enqueuer != nil && sessionID != "" {
		id, err := h.enqueuer.EnqueueFinalise(r.Context(), sessionID, userID)
		if err != nil {
			status, resp := Render(nil, err)
			writeJSON(w, status, resp)
			return
		}
		writeJSON(w, http.StatusAccepted, types.FinaliseResponse{OK: true, TaskID: id})
		return
	}

	status, resp := Run(r.Context(), h.svc, sessionID, userID)
	writeJSON(w, status, resp)
}

// Run invokes the finaliser and always produces a wire response, even when
// the service panics.
func Run(ctx context.Context, svc services.FinaliseService, sessionID, userID string) (status int, resp types.FinaliseResponse) {
	if sessionID == "" {
		return Render(nil, appErr.New(appErr.CodeInvalid, "sessionId is required"))
	}
	if userID == "" {
		return Render(nil, appErr.New(appErr.CodeUnauthorized, "caller identity is required"))
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.FromContext(ctx).Error("finalise panicked", zap.Any("panic", rec), zap.String("session_id", sessionID))
			status, resp = Render(nil, appErr.New(appErr.CodeFinaliseFailed, fmt.Sprint(rec)))
		}
	}()
	return Render(svc.Finalise(ctx, sessionID, userID))
}

// Render maps a finalisation outcome onto the wire contract.
func Render(res *services.FinaliseResult, err error) (int, types.FinaliseResponse) {
	if err != nil {
		code := appErr.CodeOf(err)
		if code == appErr.CodeUnknown {
			code = appErr.CodeFinaliseFailed
		}
		resp := types.FinaliseResponse{OK: false, Error: string(code), Message: err.Error()}
		if res != nil {
			resp.Progress = res.Progress
			resp.Warnings = res.Warnings
		}
		return types.HTTPStatus(code), resp
	}

	counts := res.Counts
	status := http.StatusCreated
	if res.AlreadyFinalised {
		status = http.StatusOK
	}
	return status, types.FinaliseResponse{
		OK:               true,
		ProjectID:        res.ProjectID,
		Counts:           &counts,
		AlreadyFinalised: res.AlreadyFinalised,
		Warnings:         res.Warnings,
	}
}
