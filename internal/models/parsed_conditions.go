package models

import "encoding/json"

// CouncilConditionsStep is the councilConditions wizard step: the applicant's
// conditions package and the parser's reading of it.
type CouncilConditionsStep struct {
	CouncilCode FlexString        `json:"councilCode"`
	FileKey     FlexString        `json:"fileKey"`
	FileName    FlexString        `json:"fileName,omitempty"`
	Parsed      *ParsedConditions `json:"parsed"`
}

// ParsedConditions is the external parser output for one development
// approval. Only the fields the pipeline reads are typed; the project keeps
// the untouched document as its snapshot.
type ParsedConditions struct {
	Council            FlexString               `json:"council"`
	Summary            ParsedSummary            `json:"summary"`
	PermitInfo         PermitInfo               `json:"permitInfo"`
	ApplicationDetails ApplicationDetails       `json:"applicationDetails"`
	ProjectTeam        []json.RawMessage        `json:"projectTeam,omitempty"`
	Documents          FlexList[ParsedDocument] `json:"documents"`
	Conditions         ConditionTree            `json:"conditions"`
}

type ParsedSummary struct {
	NumberOfConditions FlexString `json:"numberOfConditions"`
	NumberOfPlans      FlexString `json:"numberOfPlans"`
}

type PermitInfo struct {
	PermitToWhichTheseConditionsRelate FlexString           `json:"permitToWhichTheseConditionsRelate"`
	Activities                         FlexList[FlexString] `json:"activities"`
	Stage                              FlexString           `json:"stage"`
}

type ApplicationDetails struct {
	AddressOfSite                         FlexString `json:"addressOfSite"`
	RealPropertyDescriptionOfSite         FlexString `json:"realPropertyDescriptionOfSite"`
	AspectsOfDevelopmentAndTypeOfApproval FlexString `json:"aspectsOfDevelopmentAndTypeOfApproval"`
	CouncilFileReference                  FlexString `json:"councilFileReference"`
	PermitReferenceNumbers                FlexString `json:"permitReferenceNumbers"`
	ApplicationNumber                     FlexString `json:"applicationNumber"`
}

// ParsedDocument is a plan or report referenced by the conditions. Councils
// disagree on field names, so both spellings are accepted.
type ParsedDocument struct {
	Title      FlexString `json:"title"`
	Number     FlexString `json:"number"`
	PlanNumber FlexString `json:"planNumber"`
	PlanDate   FlexString `json:"planDate"`
	Date       FlexString `json:"date"`
	Revision   FlexString `json:"revision"`
	PreparedBy FlexString `json:"preparedBy"`
}

// Reference returns the plan or reference number.
func (d ParsedDocument) Reference() string {
	if d.PlanNumber != "" {
		return string(d.PlanNumber)
	}
	return string(d.Number)
}

// DocumentDate returns the plan date, falling back to the generic date.
func (d ParsedDocument) DocumentDate() string {
	if d.PlanDate != "" {
		return string(d.PlanDate)
	}
	return string(d.Date)
}

type ConditionTree struct {
	Sections FlexList[ConditionSection] `json:"sections"`
}

// UnmarshalJSON tolerates a conditions value that is not an object.
func (t *ConditionTree) UnmarshalJSON(data []byte) error {
	type plain ConditionTree
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*t = ConditionTree{}
		return nil
	}
	*t = ConditionTree(p)
	return nil
}

type ConditionSection struct {
	Title      FlexString                `json:"title"`
	Conditions FlexList[ParsedCondition] `json:"conditions"`
}

type ParsedCondition struct {
	Number       FlexString                `json:"number"`
	ParentNumber FlexString                `json:"parentNumber,omitempty"`
	Title        FlexString                `json:"title"`
	Description  FlexString                `json:"description"`
	Timing       FlexString                `json:"timing"`
	TimingSource FlexString                `json:"timingSource"`
	TimingColumn FlexString                `json:"timingColumn"`
	TimingInline FlexString                `json:"timingInline"`
	Material     *Material                 `json:"material"`
	Children     FlexList[ParsedCondition] `json:"children,omitempty"`
}

type Material struct {
	Required    FlexBool   `json:"required"`
	Description FlexString `json:"description"`
	Timing      FlexString `json:"timing"`
}

// UnmarshalJSON treats a malformed material value as absent fields.
func (m *Material) UnmarshalJSON(data []byte) error {
	type plain Material
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*m = Material{}
		return nil
	}
	*m = Material(p)
	return nil
}
