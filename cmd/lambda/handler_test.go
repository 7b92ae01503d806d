package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/planease/engine/internal/api/types"
	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/services"
	appErr "github.com/planease/engine/pkg/errors"
	"github.com/planease/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

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

func authorized(sub string) events.APIGatewayV2HTTPRequestContext {
	return events.APIGatewayV2HTTPRequestContext{
		RequestID: "req-1",
		Authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
			JWT: &events.APIGatewayV2HTTPRequestContextAuthorizerJWTDescription{
				Claims: map[string]string{"sub": sub},
			},
		},
	}
}

func TestHandle(t *testing.T) {
	fin := new(mockFinaliser)
	fin.On("Finalise", mock.Anything, "s1", "u1").
		Return(&services.FinaliseResult{ProjectID: "p1", Counts: models.Counts{Conditions: 3}}, nil).Once()

	out, err := newHandler(fin).Handle(context.Background(), events.APIGatewayV2HTTPRequest{
		PathParameters: map[string]string{"id": "s1"},
		RequestContext: authorized("u1"),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, out.StatusCode)

	var resp types.FinaliseResponse
	require.NoError(t, json.Unmarshal([]byte(out.Body), &resp))
	require.True(t, resp.OK)
	require.Equal(t, "p1", resp.ProjectID)
	require.Equal(t, 3, resp.Counts.Conditions)
	mock.AssertExpectationsForObjects(t, fin)
}

func TestHandleBase64Body(t *testing.T) {
	fin := new(mockFinaliser)
	fin.On("Finalise", mock.Anything, "s2", "u1").
		Return(nil, appErr.New(appErr.CodeBatchWriteExceededRetries, "3 items unprocessed")).Once()

	out, err := newHandler(fin).Handle(context.Background(), events.APIGatewayV2HTTPRequest{
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"sessionId":"s2"}`)),
		IsBase64Encoded: true,
		RequestContext:  authorized("u1"),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, out.StatusCode)
	require.JSONEq(t, `{"ok":false,"error":"BatchWriteExceededRetries","message":"BatchWriteExceededRetries: 3 items unprocessed"}`, out.Body)
}

func TestHandleMissingIdentity(t *testing.T) {
	fin := new(mockFinaliser)
	out, err := newHandler(fin).Handle(context.Background(), events.APIGatewayV2HTTPRequest{
		PathParameters: map[string]string{"id": "s1"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, out.StatusCode)
	fin.AssertNotCalled(t, "Finalise", mock.Anything, mock.Anything, mock.Anything)
}
