package models

import "encoding/json"

// CouncilLookup is the result of the council portal scrape saved on the
// session before finalisation.
type CouncilLookup struct {
	CouncilCode     FlexString      `json:"councilCode"`
	DANumber        FlexString      `json:"daNumber"`
	ProjectMetadata ProjectMetadata `json:"projectMetadata"`
	LookupAt        FlexString      `json:"lookupAt"`
}

type ProjectMetadata struct {
	ApplicationID  FlexString      `json:"applicationId"`
	ScrapedAt      FlexString      `json:"scrapedAt"`
	TotalDocuments FlexString      `json:"totalDocuments"`
	Categories     json.RawMessage `json:"categories,omitempty"`
	Raw            LookupRaw       `json:"raw"`
}

type LookupRaw struct {
	ApplicationID FlexString                `json:"applicationId"`
	Documents     FlexList[CouncilDocument] `json:"documents"`
	Metadata      json.RawMessage           `json:"metadata,omitempty"`
}

// CouncilDocument is a file hosted on the council's portal.
type CouncilDocument struct {
	ApplicationID FlexString `json:"applicationId"`
	DocumentID    FlexString `json:"documentId"`
	FileName      FlexString `json:"fileName"`
	Category      FlexString `json:"category"`
	FileDate      FlexString `json:"fileDate"`
	FileSize      FlexString `json:"fileSize"`
	FileExtension FlexString `json:"fileextension"`
	DownloadURL   FlexString `json:"downloadUrl"`
}
