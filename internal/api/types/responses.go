package types

import "github.com/planease/engine/internal/models"

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// FinaliseResponse is the wire contract of the finalise trigger. Every
// outcome, including failures, is rendered in this shape.
type FinaliseResponse struct {
	OK               bool           `json:"ok"`
	ProjectID        string         `json:"projectId,omitempty"`
	Counts           *models.Counts `json:"counts,omitempty"`
	AlreadyFinalised bool           `json:"alreadyFinalised,omitempty"`
	Error            string         `json:"error,omitempty"`
	Message          string         `json:"message,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
	Progress         []string       `json:"progress,omitempty"`
	TaskID           string         `json:"taskId,omitempty"`
}
