package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/services"
	appErr "github.com/planease/engine/pkg/errors"
	"github.com/planease/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by tasks)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

// Mock implementations
type mockFinaliser struct {
	mock.Mock
}

func (m *mockFinaliser) Finalise(ctx context.Context, sessionID, userID string) (*services.FinaliseResult, error) {
	args := m.Called(ctx, sessionID, userID)
	if v := args.Get(0); v != nil {
		return v.(*services.FinaliseResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSummaries struct {
	mock.Mock
}

func (m *mockSummaries) Rebuild(ctx context.Context, projectID string) (*models.ProjectSummary, error) {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.(*models.ProjectSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSummaries) Get(ctx context.Context, projectID string) (*models.ProjectSummary, error) {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.(*models.ProjectSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if v := args.Get(0); v != nil {
		return v.(*asynq.TaskInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func finaliseTask(t *testing.T, sessionID, userID string) *asynq.Task {
	t.Helper()
	pb, err := json.Marshal(FinalisePayload{SessionID: sessionID, UserID: userID})
	require.NoError(t, err)
	return asynq.NewTask(TypeFinalise, pb)
}

func TestHandleFinalise(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		fin := new(mockFinaliser)
		fin.On("Finalise", mock.Anything, "s1", "u1").Return(&services.FinaliseResult{ProjectID: "p1"}, nil).Once()

		h := NewHandler(fin, new(mockSummaries))
		require.NoError(t, h.HandleFinalise(ctx, finaliseTask(t, "s1", "u1")))
		mock.AssertExpectationsForObjects(t, fin)
	})

	t.Run("permanent failure skips retry", func(t *testing.T) {
		fin := new(mockFinaliser)
		fin.On("Finalise", mock.Anything, "s1", "u1").
			Return(&services.FinaliseResult{}, appErr.New(appErr.CodeMissingParsedConditions, "no parsed conditions")).Once()

		h := NewHandler(fin, new(mockSummaries))
		err := h.HandleFinalise(ctx, finaliseTask(t, "s1", "u1"))
		require.ErrorIs(t, err, asynq.SkipRetry)
		mock.AssertExpectationsForObjects(t, fin)
	})

	t.Run("in progress is retried", func(t *testing.T) {
		fin := new(mockFinaliser)
		fin.On("Finalise", mock.Anything, "s1", "u1").
			Return(&services.FinaliseResult{}, appErr.New(appErr.CodeFinaliseInProgress, "claimed")).Once()

		h := NewHandler(fin, new(mockSummaries))
		err := h.HandleFinalise(ctx, finaliseTask(t, "s1", "u1"))
		require.Error(t, err)
		require.False(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("bad payload", func(t *testing.T) {
		h := NewHandler(new(mockFinaliser), new(mockSummaries))
		err := h.HandleFinalise(ctx, asynq.NewTask(TypeFinalise, []byte("{")))
		require.ErrorIs(t, err, asynq.SkipRetry)

		err = h.HandleFinalise(ctx, finaliseTask(t, "", "u1"))
		require.ErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestHandleSummaryRebuild(t *testing.T) {
	ctx := context.Background()
	sum := new(mockSummaries)
	sum.On("Rebuild", mock.Anything, "p1").Return(&models.ProjectSummary{ProjectID: "p1"}, nil).Once()
	sum.On("Rebuild", mock.Anything, "gone").Return(nil, appErr.New(appErr.CodeNotFound, "project not found")).Once()

	h := NewHandler(new(mockFinaliser), sum)
	require.NoError(t, h.HandleSummaryRebuild(ctx, asynq.NewTask(TypeSummaryRebuild, []byte(`{"project_id":"p1"}`))))
	require.ErrorIs(t, h.HandleSummaryRebuild(ctx, asynq.NewTask(TypeSummaryRebuild, []byte(`{"project_id":"gone"}`))), asynq.SkipRetry)
	mock.AssertExpectationsForObjects(t, sum)
}

func TestClientEnqueueFinalise(t *testing.T) {
	ctx := context.Background()

	q := new(mockEnqueuer)
	q.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		var p FinalisePayload
		return task.Type() == TypeFinalise && json.Unmarshal(task.Payload(), &p) == nil && p.SessionID == "s1"
	}), mock.Anything).Return(&asynq.TaskInfo{ID: "finalise:s1"}, nil).Once()
	q.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).Return(nil, asynq.ErrTaskIDConflict).Once()

	c := NewClient(q)
	id, err := c.EnqueueFinalise(ctx, "s1", "u1")
	require.NoError(t, err)
	require.Equal(t, "finalise:s1", id)

	// a second trigger while the first is pending is accepted
	id, err = c.EnqueueFinalise(ctx, "s1", "u1")
	require.NoError(t, err)
	require.Equal(t, "finalise:s1", id)
	mock.AssertExpectationsForObjects(t, q)

	var nilClient *Client
	_, err = nilClient.EnqueueSummaryRebuild(ctx, "p1")
	require.Equal(t, appErr.CodeUnavailable, appErr.CodeOf(err))
}
