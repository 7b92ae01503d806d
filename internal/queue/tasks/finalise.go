package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/planease/engine/internal/services"
	appErr "github.com/planease/engine/pkg/errors"
	"github.com/planease/engine/pkg/logger"
)

const (
	TypeFinalise       = "intake:finalise"
	TypeSummaryRebuild = "project:summary_rebuild"
)

// FinalisePayload is the task payload for intake:finalise.
type FinalisePayload struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// SummaryPayload is the task payload for project:summary_rebuild.
type SummaryPayload struct {
	ProjectID string `json:"project_id"`
}

// Handler runs finalisation and summary tasks.
type Handler struct {
	finaliser services.FinaliseService
	summaries services.SummaryService
}

func NewHandler(finaliser services.FinaliseService, summaries services.SummaryService) *Handler {
	return &Handler{finaliser: finaliser, summaries: summaries}
}

// Register binds the task types on mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeFinalise, h.HandleFinalise)
	mux.HandleFunc(TypeSummaryRebuild, h.HandleSummaryRebuild)
}

func (h *Handler) HandleFinalise(ctx context.Context, t *asynq.Task) error {
	var p FinalisePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid finalise task payload", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if p.SessionID == "" || p.UserID == "" {
		logger.L().Error("finalise task missing ids", zap.String("session_id", p.SessionID))
		return fmt.Errorf("%w: session_id and user_id are required", asynq.SkipRetry)
	}

	logger.L().Info("handling finalise task", zap.String("session_id", p.SessionID))
	res, err := h.finaliser.Finalise(ctx, p.SessionID, p.UserID)
	if err != nil {
		if permanent(err) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
	logger.L().Info("finalise task completed",
		zap.String("session_id", p.SessionID),
		zap.String("project_id", res.ProjectID),
		zap.Bool("already_finalised", res.AlreadyFinalised),
	)
	return nil
}

func (h *Handler) HandleSummaryRebuild(ctx context.Context, t *asynq.Task) error {
	var p SummaryPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid summary task payload", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if _, err := h.summaries.Rebuild(ctx, p.ProjectID); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
	return nil
}

// permanent reports failures a retry cannot fix. Everything else, including
// a concurrent claim, is retried with asynq's backoff.
func permanent(err error) bool {
	switch appErr.CodeOf(err) {
	case appErr.CodeNotFound, appErr.CodeMissingParsedConditions, appErr.CodeConditionCheckFailed, appErr.CodeForbidden:
		return true
	}
	return false
}

// taskTimeout bounds one finalisation attempt.
const taskTimeout = 2 * time.Minute
