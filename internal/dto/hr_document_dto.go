package dto

type HRDocumentResponse struct {
	Name     string  `json:"name"`
	Updated  string  `json:"updated"`
	SizeKB   float64 `json:"size_kb"`
	Uploader string  `json:"uploader"`
}

type HRDocumentListResponse struct {
	Files []HRDocumentResponse `json:"files"`
}

type DeleteHRDocumentRequest struct {
	Filename string `json:"filename" validate:"required,max=255"`
}

// PublishReindexMessage is the payload of a knowledge-base reindex job.
type PublishReindexMessage struct {
	Trigger  string `json:"trigger"` // "upload", "delete" or "startup"
	FileName string `json:"file_name,omitempty"`
	Actor    string `json:"actor,omitempty"`
}
