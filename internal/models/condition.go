package models

const ConditionStatusNew = "new"

// Condition is one flattened approval condition. Parent linkage is by number;
// ParentNumber is nil for top-level conditions.
type Condition struct {
	ProjectID           string  `json:"project_id"`
	ConditionNumber     string  `json:"condition_number"`
	ConditionID         string  `json:"condition_id"`
	ParentNumber        *string `json:"parent_number"`
	SectionTitle        string  `json:"section_title"`
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	Timing              string  `json:"timing"`
	TimingSource        string  `json:"timing_source,omitempty"`
	TimingColumn        string  `json:"timing_column,omitempty"`
	TimingInline        string  `json:"timing_inline,omitempty"`
	MaterialRequired    bool    `json:"material_required"`
	MaterialDescription string  `json:"material_description,omitempty"`
	MaterialTiming      string  `json:"material_timing,omitempty"`
	Status              string  `json:"status"`
	Position            int     `json:"position"`
	CreatedAt           string  `json:"created_at"`
}
