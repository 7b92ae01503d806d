package types

import "encoding/json"

type CreateSessionRequest struct {
	CouncilCode       string `json:"councilCode" validate:"required,max=32"`
	ApplicationNumber string `json:"applicationNumber" validate:"omitempty,max=64"`
}

// FinaliseRequest carries the session id when it is not in the path.
type FinaliseRequest struct {
	SessionID string `json:"sessionId" validate:"required,max=128"`
}

type SaveStepRequest struct {
	Step string          `json:"step" validate:"required,intake_step"`
	Data json.RawMessage `json:"data" validate:"required"`
}
