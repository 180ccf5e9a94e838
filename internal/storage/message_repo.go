package storage

import (
	"context"
	"fmt"

	"tutorflow/internal/models"
)

type MessageRepo struct {
	db *DB
}

func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) InsertMessage(ctx context.Context, m models.Message) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO messages (message_id, request_id, sender_id, body)
VALUES ($1, $2, $3, $4)`, m.MessageID, m.RequestID, m.SenderID, m.Body)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListByRequest(ctx context.Context, requestID string) ([]models.Message, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT message_id, request_id, sender_id, body, created_at
FROM messages
WHERE request_id=$1
ORDER BY created_at ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.MessageID, &m.RequestID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
