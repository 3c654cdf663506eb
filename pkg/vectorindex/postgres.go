package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"

	"echo-assistant-be/pkg/store"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry is one row of a persisted index. Rows of the same IndexName form one
// snapshot; Position is the vector's place in the built set.
type Entry struct {
	ID        uint             `gorm:"primaryKey"`
	IndexName string           `gorm:"type:varchar(255);not null;index:idx_vector_index_position,priority:1"`
	Position  int              `gorm:"not null;index:idx_vector_index_position,priority:2"`
	Embedding *pgvector.Vector `gorm:"type:vector"`
	Metadata  datatypes.JSON   `gorm:"type:jsonb"`
}

func (Entry) TableName() string {
	return "vector_index_entries"
}

// entryMetadata carries the extracted text, which the candidate's own JSON
// form leaves out.
type entryMetadata struct {
	store.FileCandidate
	IsFolder      bool   `json:"isFolder,omitempty"`
	ExtractedText string `json:"extractedText,omitempty"`
}

type PostgresIndex struct {
	db *gorm.DB
}

func NewPostgresIndex(db *gorm.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

func (p *PostgresIndex) Build(ctx context.Context, name string, vectors [][]float32, metadata []store.FileCandidate) error {
	if _, err := validate(vectors, metadata); err != nil {
		return err
	}
	rows := make([]Entry, len(vectors))
	for i, v := range vectors {
		meta, err := json.Marshal(entryMetadata{
			FileCandidate: metadata[i],
			IsFolder:      metadata[i].IsFolder,
			ExtractedText: metadata[i].ExtractedText,
		})
		if err != nil {
			return fmt.Errorf("marshal metadata %d: %w", i, err)
		}
		vec := pgvector.NewVector(v)
		rows[i] = Entry{
			IndexName: name,
			Position:  i,
			Embedding: &vec,
			Metadata:  datatypes.JSON(meta),
		}
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("index_name = ?", name).Delete(&Entry{}).Error; err != nil {
			return err
		}
		// An empty build keeps a marker row so it is not reported missing.
		if len(rows) == 0 {
			return tx.Create(&Entry{IndexName: name, Position: -1}).Error
		}
		return tx.CreateInBatches(rows, 100).Error
	})
}

func (p *PostgresIndex) exists(ctx context.Context, name string) error {
	var count int64
	if err := p.db.WithContext(ctx).Model(&Entry{}).Where("index_name = ?", name).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrIndexNotFound
	}
	return nil
}

func (p *PostgresIndex) Search(ctx context.Context, name string, query []float32, k int) ([]Neighbor, error) {
	if err := p.exists(ctx, name); err != nil {
		return nil, err
	}

	type row struct {
		Position int
		Distance float64
		Metadata datatypes.JSON
	}
	var rows []row
	q := p.db.WithContext(ctx).
		Model(&Entry{}).
		Select("position, power(embedding <-> ?, 2) AS distance, metadata", pgvector.NewVector(query)).
		Where("index_name = ? AND position >= 0", name).
		Order("distance ASC, position ASC")
	if k > 0 {
		q = q.Limit(k)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("search index %s: %w", name, err)
	}

	out := make([]Neighbor, len(rows))
	for i, r := range rows {
		c, err := decodeMetadata(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("decode metadata at %d: %w", r.Position, err)
		}
		out[i] = Neighbor{Position: r.Position, Distance: r.Distance, Candidate: c}
	}
	return out, nil
}

func (p *PostgresIndex) Load(ctx context.Context, name string) ([]store.FileCandidate, error) {
	if err := p.exists(ctx, name); err != nil {
		return nil, err
	}
	var rows []Entry
	if err := p.db.WithContext(ctx).
		Select("position, metadata").
		Where("index_name = ? AND position >= 0", name).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]store.FileCandidate, len(rows))
	for i, r := range rows {
		c, err := decodeMetadata(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("decode metadata at %d: %w", r.Position, err)
		}
		out[i] = c
	}
	return out, nil
}

func (p *PostgresIndex) Drop(ctx context.Context, name string) error {
	if err := p.db.WithContext(ctx).Where("index_name = ?", name).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	return nil
}

func decodeMetadata(raw datatypes.JSON) (store.FileCandidate, error) {
	var meta entryMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return store.FileCandidate{}, err
	}
	c := meta.FileCandidate
	c.IsFolder = meta.IsFolder
	c.ExtractedText = meta.ExtractedText
	return c, nil
}
