package tasks

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	appErr "github.com/planease/engine/pkg/errors"
	"github.com/planease/engine/pkg/logger"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

var _ Enqueuer = (*asynq.Client)(nil)

// Client enqueues pipeline tasks.
type Client struct {
	q Enqueuer
}

func NewClient(q Enqueuer) *Client {
	return &Client{q: q}
}

// EnqueueFinalise schedules finalisation of sessionID. The task id is derived
// from the session, so a duplicate trigger while one is pending is accepted
// without queueing a second task.
func (c *Client) EnqueueFinalise(ctx context.Context, sessionID, userID string) (string, error) {
	pb, err := json.Marshal(FinalisePayload{SessionID: sessionID, UserID: userID})
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "encode finalise payload failed")
	}
	id := "finalise:" + sessionID
	return c.enqueue(ctx, asynq.NewTask(TypeFinalise, pb), id, asynq.MaxRetry(5), asynq.Timeout(taskTimeout))
}

func (c *Client) EnqueueSummaryRebuild(ctx context.Context, projectID string) (string, error) {
	pb, err := json.Marshal(SummaryPayload{ProjectID: projectID})
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "encode summary payload failed")
	}
	id := "summary:" + projectID
	return c.enqueue(ctx, asynq.NewTask(TypeSummaryRebuild, pb), id, asynq.MaxRetry(3))
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, id string, opts ...asynq.Option) (string, error) {
	if c == nil || c.q == nil {
		return "", appErr.New(appErr.CodeUnavailable, "task queue not configured")
	}
	opts = append(opts, asynq.TaskID(id))
	if _, err := c.q.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			logger.L().Info("task already queued", zap.String("task_id", id))
			return id, nil
		}
		logger.L().Error("enqueue task failed", zap.Error(err), zap.String("task_id", id))
		return "", appErr.Wrap(err, appErr.CodeUnavailable, "enqueue task failed")
	}
	return id, nil
}
