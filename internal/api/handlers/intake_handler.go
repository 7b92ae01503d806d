package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planease/engine/internal/api/middleware"
	"github.com/planease/engine/internal/api/types"
	"github.com/planease/engine/internal/services"
)

// maxStepBody caps a single wizard step; parsed conditions can be large.
const maxStepBody = 8 << 20

type IntakeHandler struct {
	svc      services.IntakeService
	validate interface{ Struct(any) error }
}

func NewIntakeHandler(svc services.IntakeService, v interface{ Struct(any) error }) *IntakeHandler {
	return &IntakeHandler{svc: svc, validate: v}
}

func (h *IntakeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := h.svc.Create(r.Context(), middleware.GetUserID(r.Context()), &services.CreateSessionInput{
		CouncilCode:       req.CouncilCode,
		ApplicationNumber: req.ApplicationNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: sess})
}

func (h *IntakeHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: sess})
}

func (h *IntakeHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items, Meta: &types.Meta{Total: int64(len(items))}})
}

// SaveStep stores the raw request body as the step's JSON.
func (h *IntakeHandler) SaveStep(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStepBody))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "read body failed")
		return
	}
	req := types.SaveStepRequest{Step: chi.URLParam(r, "step"), Data: body}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := h.svc.SaveStep(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()), req.Step, req.Data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: sess})
}

func (h *IntakeHandler) SaveCouncilLookup(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStepBody))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "read body failed")
		return
	}
	sess, err := h.svc.SaveCouncilLookup(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: sess})
}
