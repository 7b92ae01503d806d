package models

// Document sources.
const (
	DocumentSourceCouncil    = "council"
	DocumentSourceParser     = "parser"
	DocumentSourceUserUpload = "user_upload"
)

// Default categories per source.
const (
	CategoryCouncilDocument    = "Council Document"
	CategoryReferencedDocument = "Documents Referenced in Conditions"
	CategoryUploadedDocument   = "Uploaded Document"
	CategoryConditionsPackage  = "Conditions Package"
)

// Document is one row of a project's document register. Relocated uploads
// carry Bucket and StorageKey; council documents carry DownloadURL instead.
type Document struct {
	ProjectID     string  `json:"project_id"`
	CreatedAt     string  `json:"created_at"`
	DocumentID    string  `json:"document_id"`
	Source        string  `json:"source"`
	ExternalID    *string `json:"external_id"`
	Title         string  `json:"title"`
	Category      string  `json:"category"`
	DocumentDate  string  `json:"document_date,omitempty"`
	FileName      string  `json:"file_name,omitempty"`
	FileExtension string  `json:"file_extension,omitempty"`
	FileSize      string  `json:"file_size,omitempty"`
	ContentType   string  `json:"content_type,omitempty"`
	Revision      string  `json:"revision,omitempty"`
	Bucket        string  `json:"bucket,omitempty"`
	StorageKey    string  `json:"storage_key,omitempty"`
	DownloadURL   string  `json:"download_url,omitempty"`
}
