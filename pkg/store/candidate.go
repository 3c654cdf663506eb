package store

import (
	"path/filepath"
	"strings"
)

// PersonalContainer tags candidates found in the caller's own drive.
const PersonalContainer = "personal"

// FileCandidate is one remote file considered as an answer to a query.
// ID is unique within a single discovery run only.
type FileCandidate struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WebURL        string `json:"webUrl"`
	DownloadURL   string `json:"downloadUrl,omitempty"`
	DriveID       string `json:"driveId,omitempty"`
	ContainerID   string `json:"siteId"`
	MimeType      string `json:"mimeType,omitempty"`
	Size          int64  `json:"size,omitempty"`
	IsFolder      bool   `json:"-"`
	ExtractedText string `json:"-"`
}

// RankingText is what the ranker scores: extracted text when present,
// otherwise the display name.
func (c FileCandidate) RankingText() string {
	if strings.TrimSpace(c.ExtractedText) != "" {
		return c.ExtractedText
	}
	return c.Name
}

// Extension returns the lower-cased extension including the dot, or "" when
// the name has none.
func (c FileCandidate) Extension() string {
	if !strings.Contains(c.Name, ".") {
		return ""
	}
	return strings.ToLower(filepath.Ext(c.Name))
}

// QueryContext is a parsed user query.
type QueryContext struct {
	Raw  string
	Year string // first 19xx/20xx token, "" when absent
	Core string // remaining words, lower-cased
}

// RankedResult is a candidate with its final hybrid score.
type RankedResult struct {
	FileCandidate
	Score float64 `json:"score"`
}
