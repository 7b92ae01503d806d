package models

// Session lifecycle statuses. Between DRAFT and finalised the status carries
// the name of the last saved wizard step.
const (
	SessionStatusDraft     = "DRAFT"
	SessionStatusFinalised = "finalised"
)

// Wizard steps stored in IntakeSession.StepData.
const (
	StepProject           = "project"
	StepTeam              = "team"
	StepDocuments         = "documents"
	StepCouncilConditions = "councilConditions"
)

// Steps lists every accepted wizard step.
var Steps = []string{StepProject, StepTeam, StepDocuments, StepCouncilConditions}

// IsStep reports whether name is a known wizard step.
func IsStep(name string) bool {
	for _, s := range Steps {
		if s == name {
			return true
		}
	}
	return false
}

// IntakeSession accumulates wizard input until it is finalised into a
// project. StepData holds one raw JSON document per step.
type IntakeSession struct {
	SessionID         string            `json:"session_id" validate:"required"`
	UserID            string            `json:"user_id,omitempty"`
	CouncilCode       string            `json:"council_code,omitempty"`
	ApplicationNumber string            `json:"application_number,omitempty"`
	Status            string            `json:"status"`
	StepData          map[string]string `json:"step_data,omitempty"`
	CouncilLookup     string            `json:"council_lookup,omitempty"`
	Finalised         bool              `json:"finalised"`
	ProjectID         string            `json:"project_id,omitempty"`
	FinalisedAt       string            `json:"finalised_at,omitempty"`
	ClaimID           string            `json:"claim_id,omitempty"`
	ClaimedAt         string            `json:"claimed_at,omitempty"`
	CreatedAt         string            `json:"created_at"`
	UpdatedAt         string            `json:"updated_at"`
}

// Step returns the raw JSON saved for step, or "".
func (s *IntakeSession) Step(step string) string {
	if s.StepData == nil {
		return ""
	}
	return s.StepData[step]
}
