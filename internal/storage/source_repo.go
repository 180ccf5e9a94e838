package storage

import (
	"context"
	"fmt"

	"tutorflow/internal/models"
)

// Sources created by the pipeline are owned 1:1 by their node; other flows
// share sources across requests, this repo deliberately does not dedup.
type SourceRepo struct {
	db *DB
}

func NewSourceRepo(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

func (r *SourceRepo) InsertSource(ctx context.Context, s models.Source) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO sources (source_id, title, url)
VALUES ($1, $2, $3)`, s.SourceID, s.Title, s.URL)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}
