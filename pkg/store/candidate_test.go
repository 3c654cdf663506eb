package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankingText(t *testing.T) {
	assert.Equal(t, "Policy.pdf", FileCandidate{Name: "Policy.pdf"}.RankingText())
	assert.Equal(t, "Policy.pdf", FileCandidate{Name: "Policy.pdf", ExtractedText: "  \n"}.RankingText())
	assert.Equal(t, "body", FileCandidate{Name: "Policy.pdf", ExtractedText: "body"}.RankingText())
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Report.PDF", ".pdf"},
		{"archive.tar.gz", ".gz"},
		{"README", ""},
		{"scan.jpeg", ".jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileCandidate{Name: tt.name}.Extension())
		})
	}
}

func TestSelectionSessionLifecycle(t *testing.T) {
	s := NewSelectionSession("acc", "chat", "a@corp.com")
	assert.Equal(t, StageStart, s.Stage)
	assert.Equal(t, "acc:chat", s.Key())

	s.Stage = StageAwaitingSelection
	s.Candidates = []RankedResult{{FileCandidate: FileCandidate{ID: "1"}}, {FileCandidate: FileCandidate{ID: "2"}}}
	assert.Equal(t, []string{"1", "2"}, s.CandidateIDs())

	s.ClearCandidates()
	assert.Empty(t, s.Candidates)
	assert.Equal(t, StageAwaitingQuery, s.Stage)

	assert.True(t, StageAwaitingQuery.Valid())
	assert.False(t, Stage("browsing").Valid())
}
