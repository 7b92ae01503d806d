package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/planease/engine/internal/api/handlers"
	"github.com/planease/engine/internal/api/types"
	"github.com/planease/engine/internal/services"
	"github.com/planease/engine/pkg/logger"
)

type handler struct {
	svc services.FinaliseService
}

func newHandler(svc services.FinaliseService) *handler {
	return &handler{svc: svc}
}

// Handle finalises the session named by the {id} path parameter or a
// {"sessionId"} body. The caller is the JWT authorizer's sub claim.
func (h *handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := logger.L().With(zap.String("request_id", req.RequestContext.RequestID))
	ctx = logger.WithContext(ctx, log)

	status, resp := handlers.Run(ctx, h.svc, sessionID(req), userID(req))
	body, err := json.Marshal(resp)
	if err != nil {
		log.Error("encode response failed", zap.Error(err))
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func sessionID(req events.APIGatewayV2HTTPRequest) string {
	if id := req.PathParameters["id"]; id != "" {
		return id
	}
	raw := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return ""
		}
		raw = decoded
	}
	var body types.FinaliseRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.SessionID
}

func userID(req events.APIGatewayV2HTTPRequest) string {
	auth := req.RequestContext.Authorizer
	if auth == nil || auth.JWT == nil {
		return ""
	}
	return auth.JWT.Claims["sub"]
}
