// Package selection drives the multi-turn file search dialogue: greet, take a
// query, present ranked results, accept a numeric selection and deliver.
package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/graph"
	"echo-assistant-be/pkg/metrics"
	"echo-assistant-be/pkg/store"

	"golang.org/x/sync/errgroup"
)

type Discoverer interface {
	Discover(ctx context.Context, conversationKey, query string, cred *graph.Credential) ([]store.RankedResult, error)
}

type AccessChecker interface {
	CheckAccess(ctx context.Context, cred *graph.Credential, f store.FileCandidate) (bool, error)
}

type Notifier interface {
	SendFilesEmail(ctx context.Context, cred *graph.Credential, recipient string, files []store.FileCandidate) error
}

// HROracle answers HR policy questions from the knowledge base. found is
// false when the knowledge base has nothing to say.
type HROracle interface {
	Answer(ctx context.Context, query string) (answer string, found bool)
}

// Classification is the classifier's reading of a message. Phrase is the
// search phrase for file searches.
type Classification struct {
	Intent string `json:"intent"`
	Phrase string `json:"data"`
}

const ClassFileSearch = "file_search"

type IntentClassifier interface {
	Classify(ctx context.Context, text string) Classification
}

type GeneralResponder interface {
	Respond(ctx context.Context, text string) string
}

type Config struct {
	PageSize           int
	PerformAccessCheck bool
	AccessConcurrency  int

	// CandidateTTL bounds how long an idle result set stays selectable.
	// Zero disables expiry.
	CandidateTTL time.Duration
}

type Deps struct {
	Discoverer Discoverer
	Access     AccessChecker
	Notifier   Notifier
	HR         HROracle
	Classifier IntentClassifier
	General    GeneralResponder
}

// Turn is one user message. SelectedIndices, when SelectionStage is set,
// carries a selection the client already parsed.
type Turn struct {
	Message         string
	SelectionStage  bool
	SelectedIndices []int
}

type Machine struct {
	deps   Deps
	cfg    Config
	logger logger.ILogger
	now    func() time.Time
}

func NewMachine(deps Deps, cfg Config, log logger.ILogger) *Machine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.AccessConcurrency <= 0 {
		cfg.AccessConcurrency = 4
	}
	return &Machine{deps: deps, cfg: cfg, logger: log, now: time.Now}
}

// Handle advances sess by one turn. The session is mutated in place and the
// caller persists it; every path leaves it at a valid stage.
func (m *Machine) Handle(ctx context.Context, sess *store.SelectionSession, cred *graph.Credential, turn Turn) Reply {
	reply := m.handle(ctx, sess, cred, turn)
	if !sess.Stage.Valid() {
		sess.Stage = store.StageAwaitingQuery
	}
	sess.UpdatedAt = m.now()
	metrics.ChatTurnsTotal.WithLabelValues(string(reply.Intent)).Inc()
	return reply
}

func (m *Machine) handle(ctx context.Context, sess *store.SelectionSession, cred *graph.Credential, turn Turn) Reply {
	text := strings.TrimSpace(turn.Message)

	if turn.SelectionStage && len(turn.SelectedIndices) > 0 {
		return m.selectFiles(ctx, sess, cred, turn.SelectedIndices)
	}

	switch sess.Stage {
	case store.StageAwaitingSelection:
		if m.expired(sess) {
			sess.ClearCandidates()
			return Reply{Response: MsgExpired, Intent: IntentError}
		}
		if IsCancel(text) {
			sess.Stage = store.StageAwaitingQuery
			return Reply{Response: MsgCancelled, Intent: IntentGeneral}
		}
		indices, err := ParseIndices(text)
		if err != nil {
			return Reply{Response: MsgInvalidSelection, Intent: IntentError}
		}
		return m.selectFiles(ctx, sess, cred, indices)

	case store.StageAwaitingQuery:
		return m.query(ctx, sess, cred, text)

	default:
		sess.Stage = store.StageAwaitingQuery
		return Reply{Response: MsgGreeting, Intent: IntentGreeting}
	}
}

func (m *Machine) expired(sess *store.SelectionSession) bool {
	if len(sess.Candidates) == 0 {
		return true
	}
	return m.cfg.CandidateTTL > 0 && m.now().Sub(sess.UpdatedAt) > m.cfg.CandidateTTL
}

func (m *Machine) query(ctx context.Context, sess *store.SelectionSession, cred *graph.Credential, text string) Reply {
	if answer, found := m.deps.HR.Answer(ctx, text); found {
		return Reply{Response: answer, Intent: IntentHRAdmin}
	}

	class := m.deps.Classifier.Classify(ctx, text)
	phrase := strings.TrimSpace(class.Phrase)
	m.logger.Info("Selection", "Intent classified", map[string]interface{}{
		"intent": class.Intent,
		"phrase": phrase,
	})

	if strings.EqualFold(class.Intent, ClassFileSearch) && len([]rune(phrase)) >= 2 {
		return m.search(ctx, sess, cred, phrase)
	}
	return Reply{Response: m.deps.General.Respond(ctx, text), Intent: IntentGeneral}
}

func (m *Machine) search(ctx context.Context, sess *store.SelectionSession, cred *graph.Credential, phrase string) Reply {
	sess.LastQuery = phrase
	results, err := m.deps.Discoverer.Discover(ctx, sess.Key(), phrase, cred)
	if err != nil {
		m.logger.Error("Selection", "Discovery failed", map[string]interface{}{"query": phrase, "error": err.Error()})
		return Reply{Response: MsgNoFiles, Intent: IntentFileSearch}
	}
	if len(results) == 0 {
		return Reply{Response: MsgNoFiles, Intent: IntentFileSearch}
	}

	accessible := results
	if m.cfg.PerformAccessCheck {
		accessible = m.filterAccessible(ctx, cred, results)
	}
	if len(accessible) == 0 {
		return Reply{Response: MsgNoAccess, Intent: IntentFileSearch}
	}

	sess.Candidates = accessible
	sess.Stage = store.StageAwaitingSelection
	sess.UpdatedAt = m.now()

	page := Paginate(sess, 1, m.cfg.PageSize, "")
	page.AllFileIDs = sess.CandidateIDs()
	return Reply{
		Response: MsgSelectPrompt,
		Intent:   IntentFileSearch,
		PauseGPT: true,
		FilePage: &page,
	}
}

// filterAccessible keeps candidates the caller holds a permission on, in
// their original order. A failed check counts as no access.
func (m *Machine) filterAccessible(ctx context.Context, cred *graph.Credential, in []store.RankedResult) []store.RankedResult {
	ok := make([]bool, len(in))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.AccessConcurrency)
	for i := range in {
		g.Go(func() error {
			allowed, err := m.deps.Access.CheckAccess(gctx, cred, in[i].FileCandidate)
			if err != nil {
				m.logger.Warn("Selection", "Access check failed", map[string]interface{}{"id": in[i].ID, "error": err.Error()})
				return nil
			}
			ok[i] = allowed
			return nil
		})
	}
	_ = g.Wait()

	out := make([]store.RankedResult, 0, len(in))
	for i, r := range in {
		if ok[i] {
			out = append(out, r)
		}
	}
	return out
}

func (m *Machine) selectFiles(ctx context.Context, sess *store.SelectionSession, cred *graph.Credential, indices []int) Reply {
	if m.expired(sess) {
		sess.ClearCandidates()
		return Reply{Response: MsgExpired, Intent: IntentError}
	}

	selected, err := Resolve(sess, indices)
	switch {
	case errors.Is(err, ErrSessionExpired):
		sess.ClearCandidates()
		return Reply{Response: MsgExpired, Intent: IntentError}
	case err != nil:
		return Reply{Response: MsgInvalidSelection, Intent: IntentError}
	}

	accessible := selected
	if m.cfg.PerformAccessCheck {
		accessible = m.filterAccessible(ctx, cred, selected)
	}
	if len(accessible) == 0 {
		return Reply{Response: MsgNoAccessSelected, Intent: IntentFileSearch}
	}

	files := make([]store.FileCandidate, len(accessible))
	for i, r := range accessible {
		files[i] = r.FileCandidate
	}
	if err := m.deps.Notifier.SendFilesEmail(ctx, cred, sess.UserEmail, files); err != nil {
		m.logger.Error("Selection", "Delivery failed", map[string]interface{}{
			"recipient": sess.UserEmail,
			"files":     len(files),
			"error":     err.Error(),
		})
		return Reply{Response: MsgDeliveryFailed, Intent: IntentError}
	}

	sess.Stage = store.StageAwaitingQuery
	return Reply{Response: Confirmation(files), Intent: IntentFileSent}
}

// Skip abandons the presented result set.
func (m *Machine) Skip(sess *store.SelectionSession) {
	sess.ClearCandidates()
	sess.UpdatedAt = m.now()
}

// Paginate reads one page of the stored result set without changing it.
func (m *Machine) Paginate(sess *store.SelectionSession, page int, typeFilter string) FilePage {
	return Paginate(sess, page, m.cfg.PageSize, typeFilter)
}

// Confirmation is the chat message listing delivered files.
func Confirmation(files []store.FileCandidate) string {
	lines := make([]string, 0, len(files)+2)
	lines = append(lines, "Sent:")
	for i, f := range files {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, f.Name, f.WebURL))
	}
	lines = append(lines, "\nNeed anything else?")
	return strings.Join(lines, "\n")
}
