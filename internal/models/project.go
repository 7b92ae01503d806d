package models

// ProjectStatusActive is the only status a freshly materialised project has.
const ProjectStatusActive = "active"

// Project is created exactly once per finalised intake session.
type Project struct {
	ProjectID         string         `json:"project_id" validate:"required"`
	SessionID         string         `json:"session_id" validate:"required"`
	OwnerID           string         `json:"owner_id" validate:"required"`
	Name              string         `json:"name"`
	CouncilCode       string         `json:"council_code"`
	ApplicationNumber string         `json:"application_number"`
	Address           string         `json:"address"`
	FileReference     string         `json:"file_reference,omitempty"`
	PermitStage       string         `json:"permit_stage,omitempty"`
	Status            string         `json:"status"`
	ParsedConditions  map[string]any `json:"parsed_conditions,omitempty"`
	CreatedBy         string         `json:"created_by"`
	CreatedAt         string         `json:"created_at"`
	UpdatedAt         string         `json:"updated_at"`
}
