package models

// Counts are the per-category row counts of one finalisation.
type Counts struct {
	Conditions         int `json:"conditions_count"`
	MaterialConditions int `json:"material_conditions_count"`
	Documents          int `json:"documents_count"`
	CouncilDocuments   int `json:"council_documents_count"`
	ParserDocuments    int `json:"parser_documents_count"`
	UploadedDocuments  int `json:"uploaded_documents_count"`
}

// AddDocument increments the counter for source.
func (c *Counts) AddDocument(source string) {
	c.Documents++
	switch source {
	case DocumentSourceCouncil:
		c.CouncilDocuments++
	case DocumentSourceParser:
		c.ParserDocuments++
	case DocumentSourceUserUpload:
		c.UploadedDocuments++
	}
}

// ProjectSummary is a read-optimised aggregate. It can always be rebuilt
// from the project, its conditions and its documents.
type ProjectSummary struct {
	Counts

	ProjectID         string `json:"project_id"`
	CouncilCode       string `json:"council_code"`
	ApplicationNumber string `json:"application_number"`
	Address           string `json:"address"`
	PermitStage       string `json:"permit_stage,omitempty"`
	UpdatedAt         string `json:"updated_at"`
}
