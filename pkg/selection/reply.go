package selection

import "echo-assistant-be/pkg/store"

// Intent tags what a turn did, for the client and for chat history.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentHRAdmin        Intent = "hr_admin"
	IntentFileSearch     Intent = "file_search"
	IntentFileSent       Intent = "file_sent"
	IntentGeneral        Intent = "general_response"
	IntentError          Intent = "error"
	IntentSessionExpired Intent = "session_expired"
)

const (
	MsgGreeting         = "Hi there! What file are you looking for today?"
	MsgSelectPrompt     = "Please select file (e.g., 1,3):"
	MsgNoFiles          = "No files found."
	MsgNoAccess         = "You don't have access to the matching files."
	MsgNoAccessSelected = "You don't have access to the selected files."
	MsgInvalidSelection = "Invalid selection"
	MsgNoMatching       = "No matching files found"
	MsgExpired          = "File list expired"
	MsgCancelled        = "Cancelled"
	MsgDeliveryFailed   = "Failed to send the selected files. Please try again."
	MsgSessionExpired   = "Session expired. Please log in again."
)

// FilePage is one page of the stored candidate set.
type FilePage struct {
	Files      []store.RankedResult `json:"files"`
	Page       int                  `json:"page"`
	Total      int                  `json:"total"`
	FileTypes  []string             `json:"file_types"`
	AllFileIDs []string             `json:"allFileIds,omitempty"`
}

// Reply is the outcome of one conversation turn.
type Reply struct {
	Response string `json:"response"`
	Intent   Intent `json:"intent"`
	PauseGPT bool   `json:"pauseGPT,omitempty"`
	*FilePage
}
