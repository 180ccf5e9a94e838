package storage

import (
	"context"
	"errors"
	"fmt"

	"tutorflow/internal/models"
)

// ErrNotFound marks write operations that matched no row.
var ErrNotFound = errors.New("not found")

type RequestRepo struct {
	db *DB
}

func NewRequestRepo(db *DB) *RequestRepo {
	return &RequestRepo{db: db}
}

type RequestUpdate struct {
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	Tag            *string `json:"tag,omitempty"`
	Level          *string `json:"level,omitempty"`
	AssignedExpert *string `json:"assigned_expert,omitempty"`
}

func (r *RequestRepo) CreateRequest(ctx context.Context, req models.Request) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO requests (request_id, student_id, title, description, tag, level, assigned_expert)
VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), NULLIF($7,''))`,
		req.RequestID, req.StudentID, req.Title, req.Description, req.Tag, req.Level, req.AssignedExpert,
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

func (r *RequestRepo) GetRequestByID(ctx context.Context, requestID string) (models.Request, error) {
	var req models.Request
	err := r.db.Pool.QueryRow(ctx, `
SELECT request_id, student_id, title, COALESCE(description,''), COALESCE(tag,''), COALESCE(level,''),
       COALESCE(assigned_expert,''), started_at, finished_at, created_at, updated_at
FROM requests
WHERE request_id=$1`, requestID).
		Scan(&req.RequestID, &req.StudentID, &req.Title, &req.Description, &req.Tag, &req.Level,
			&req.AssignedExpert, &req.StartedAt, &req.FinishedAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return models.Request{}, fmt.Errorf("get request by id: %w", err)
	}
	req.Status = models.DeriveStatus(req)
	return req, nil
}

func (r *RequestRepo) ListRequests(ctx context.Context, studentID string) ([]models.Request, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT request_id, student_id, title, COALESCE(description,''), COALESCE(tag,''), COALESCE(level,''),
       COALESCE(assigned_expert,''), started_at, finished_at, created_at, updated_at
FROM requests
WHERE ($1 = '' OR student_id = $1)
ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	out := make([]models.Request, 0)
	for rows.Next() {
		var req models.Request
		if err := rows.Scan(&req.RequestID, &req.StudentID, &req.Title, &req.Description, &req.Tag, &req.Level,
			&req.AssignedExpert, &req.StartedAt, &req.FinishedAt, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		req.Status = models.DeriveStatus(req)
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

func (r *RequestRepo) UpdateRequest(ctx context.Context, requestID string, upd RequestUpdate) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE requests SET
  title = COALESCE($2, title),
  description = COALESCE($3, description),
  tag = COALESCE($4, tag),
  level = COALESCE($5, level),
  assigned_expert = COALESCE($6, assigned_expert),
  updated_at = NOW()
WHERE request_id=$1`,
		requestID, upd.Title, upd.Description, upd.Tag, upd.Level, upd.AssignedExpert,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update request %s: %w", requestID, ErrNotFound)
	}
	return nil
}

func (r *RequestRepo) DeleteRequest(ctx context.Context, requestID string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM requests WHERE request_id=$1`, requestID)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete request %s: %w", requestID, ErrNotFound)
	}
	return nil
}

func (r *RequestRepo) MarkStarted(ctx context.Context, requestID string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE requests SET started_at=NOW(), updated_at=NOW() WHERE request_id=$1`, requestID)
	if err != nil {
		return fmt.Errorf("mark request started: %w", err)
	}
	return nil
}

func (r *RequestRepo) MarkFinished(ctx context.Context, requestID string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE requests SET finished_at=NOW(), updated_at=NOW() WHERE request_id=$1`, requestID)
	if err != nil {
		return fmt.Errorf("mark request finished: %w", err)
	}
	return nil
}
