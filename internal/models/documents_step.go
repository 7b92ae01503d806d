package models

// DocumentsStep is the documents wizard step.
type DocumentsStep struct {
	Uploads FlexList[UploadEntry] `json:"uploads"`
}

// UploadEntry is a file the applicant uploaded through a presigned URL.
type UploadEntry struct {
	Key          FlexString `json:"key"`
	Bucket       FlexString `json:"bucket"`
	FileName     FlexString `json:"fileName"`
	Category     FlexString `json:"category"`
	DocumentDate FlexString `json:"documentDate"`
	ContentType  FlexString `json:"contentType"`
}

// ProjectStep is the project wizard step. Both fields are optional; the
// parsed conditions supply the address when the applicant left it blank.
type ProjectStep struct {
	Name    FlexString `json:"name"`
	Address FlexString `json:"address"`
}
