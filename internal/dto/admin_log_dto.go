package dto

type LogListResponse struct {
	Id        string                 `json:"id"` // MD5 of the raw line
	Level     string                 `json:"level"`
	Module    string                 `json:"module"`
	Message   string                 `json:"message"`
	Timestamp string                 `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}
