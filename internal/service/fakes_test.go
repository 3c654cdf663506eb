package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/repository/contract"
	"echo-assistant-be/internal/repository/specification"
	"echo-assistant-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// fakeFactory hands out units of work over shared in-memory repositories.
type fakeFactory struct {
	history *fakeHistoryRepo
	tokens  *fakeTokenRepo
	docs    *fakeHRDocRepo
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		history: &fakeHistoryRepo{},
		tokens:  &fakeTokenRepo{records: map[string]*entity.TokenRecord{}},
		docs:    &fakeHRDocRepo{docs: map[string]*entity.HRDocument{}},
	}
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f }

func (f *fakeFactory) Begin(ctx context.Context) error { return nil }
func (f *fakeFactory) Commit() error                   { return nil }
func (f *fakeFactory) Rollback() error                 { return nil }

func (f *fakeFactory) ChatHistoryRepository() contract.ChatHistoryRepository { return f.history }
func (f *fakeFactory) TokenCacheRepository() contract.TokenCacheRepository   { return f.tokens }
func (f *fakeFactory) HRDocumentRepository() contract.HRDocumentRepository   { return f.docs }

type fakeHistoryRepo struct {
	mu   sync.Mutex
	rows []*entity.ChatMessage
}

func (r *fakeHistoryRepo) match(specs []specification.Specification) []*entity.ChatMessage {
	var out []*entity.ChatMessage
	desc := false
	for _, row := range r.rows {
		keep := true
		for _, s := range specs {
			switch v := s.(type) {
			case specification.ByUserEmail:
				keep = keep && row.UserEmail == v.Email
			case specification.ByChatID:
				keep = keep && row.ChatId == v.ChatID
			case specification.TitleRows:
				keep = keep && row.IsTitle()
			case specification.WithAiResponse:
				keep = keep && row.AiResponse != ""
			case specification.CreatedBefore:
				keep = keep && row.CreatedAt.Before(v.Cutoff)
			case specification.OrderBy:
				desc = v.Desc
			}
		}
		if keep {
			cp := *row
			out = append(out, &cp)
		}
	}
	if desc {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

func (r *fakeHistoryRepo) Create(ctx context.Context, m *entity.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.Id = uuid.New()
	cp := *m
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeHistoryRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := r.match(specs)
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *fakeHistoryRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.match(specs), nil
}

func (r *fakeHistoryRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.match(specs))), nil
}

func (r *fakeHistoryRepo) ChatIDs(ctx context.Context, email string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := map[string]time.Time{}
	for _, row := range r.rows {
		if row.UserEmail != email {
			continue
		}
		if row.CreatedAt.After(latest[row.ChatId]) || latest[row.ChatId].IsZero() {
			latest[row.ChatId] = row.CreatedAt
		}
	}
	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return latest[ids[i]].After(latest[ids[j]]) })
	return ids, nil
}

func (r *fakeHistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	var removed int64
	for _, row := range r.rows {
		if row.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return removed, nil
}

type fakeTokenRepo struct {
	mu      sync.Mutex
	records map[string]*entity.TokenRecord
	saves   int
}

func (r *fakeTokenRepo) Save(ctx context.Context, rec *entity.TokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.AccountId] = &cp
	r.saves++
	return nil
}

func (r *fakeTokenRepo) FindByAccount(ctx context.Context, accountID string) (*entity.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[accountID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeTokenRepo) Delete(ctx context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, accountID)
	return nil
}

type fakeHRDocRepo struct {
	mu   sync.Mutex
	docs map[string]*entity.HRDocument
}

func (r *fakeHRDocRepo) Upsert(ctx context.Context, doc *entity.HRDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.docs[doc.FileName] = &cp
	return nil
}

func (r *fakeHRDocRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HRDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range specs {
		if v, ok := s.(specification.ByFileName); ok {
			return r.docs[v.FileName], nil
		}
	}
	return nil, nil
}

func (r *fakeHRDocRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HRDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.HRDocument, 0, len(r.docs))
	for _, d := range r.docs {
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeHRDocRepo) DeleteByFileName(ctx context.Context, fileName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, fileName)
	return nil
}
