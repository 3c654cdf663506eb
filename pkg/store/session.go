package store

import "time"

// Stage is the position of a conversation in the selection dialogue.
type Stage string

const (
	StageStart             Stage = "start"
	StageAwaitingQuery     Stage = "awaiting_query"
	StageAwaitingSelection Stage = "awaiting_selection"
)

func (s Stage) Valid() bool {
	switch s {
	case StageStart, StageAwaitingQuery, StageAwaitingSelection:
		return true
	}
	return false
}

// SelectionSession is the per-conversation dialogue state. It is owned by the
// caller and persisted through a session repository keyed by Key().
type SelectionSession struct {
	AccountID string `json:"account_id"`
	ChatID    string `json:"chat_id"`
	UserEmail string `json:"user_email"`
	Stage     Stage  `json:"stage"`

	// Ranked, access-filtered candidates of the last successful search.
	// Numeric selections are 1-based positions into this slice.
	Candidates []RankedResult `json:"candidates"`

	LastQuery string    `json:"last_query"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSelectionSession(accountID, chatID, userEmail string) *SelectionSession {
	return &SelectionSession{
		AccountID: accountID,
		ChatID:    chatID,
		UserEmail: userEmail,
		Stage:     StageStart,
		UpdatedAt: time.Now(),
	}
}

func SessionKey(accountID, chatID string) string {
	return accountID + ":" + chatID
}

func (s *SelectionSession) Key() string {
	return SessionKey(s.AccountID, s.ChatID)
}

// ClearCandidates drops the stored result set and returns to awaiting_query.
func (s *SelectionSession) ClearCandidates() {
	s.Candidates = nil
	s.Stage = StageAwaitingQuery
	s.UpdatedAt = time.Now()
}

// CandidateIDs lists ids of the stored result set in order.
func (s *SelectionSession) CandidateIDs() []string {
	ids := make([]string, len(s.Candidates))
	for i, c := range s.Candidates {
		ids[i] = c.ID
	}
	return ids
}
