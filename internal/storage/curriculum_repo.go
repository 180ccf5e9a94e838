package storage

import (
	"context"
	"fmt"

	"tutorflow/internal/models"
)

type CurriculumRepo struct {
	db *DB
}

func NewCurriculumRepo(db *DB) *CurriculumRepo {
	return &CurriculumRepo{db: db}
}

// UpsertForRequest creates the request's curriculum row, or returns the
// existing one when a previous failed run already created it. Curricula are
// 1:1 with requests; the unique constraint on request_id enforces that.
func (r *CurriculumRepo) UpsertForRequest(ctx context.Context, curriculumID, requestID string) (string, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO curricula (curriculum_id, request_id)
VALUES ($1, $2)
ON CONFLICT (request_id) DO UPDATE SET request_id = EXCLUDED.request_id
RETURNING curriculum_id`, curriculumID, requestID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert curriculum: %w", err)
	}
	return id, nil
}

func (r *CurriculumRepo) GetByRequest(ctx context.Context, requestID string) (models.Curriculum, error) {
	var c models.Curriculum
	err := r.db.Pool.QueryRow(ctx, `
SELECT curriculum_id, request_id, created_at
FROM curricula
WHERE request_id=$1`, requestID).Scan(&c.CurriculumID, &c.RequestID, &c.CreatedAt)
	if err != nil {
		return models.Curriculum{}, fmt.Errorf("get curriculum by request: %w", err)
	}
	return c, nil
}
