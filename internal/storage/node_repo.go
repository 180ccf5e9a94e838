package storage

import (
	"context"
	"fmt"

	"tutorflow/internal/models"
)

type NodeRepo struct {
	db *DB
}

func NewNodeRepo(db *DB) *NodeRepo {
	return &NodeRepo{db: db}
}

type NodeWithSource struct {
	models.CurriculumNode
	SourceTitle string `json:"source_title"`
	SourceURL   string `json:"source_url"`
}

func (r *NodeRepo) InsertNode(ctx context.Context, n models.CurriculumNode) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO curriculum_nodes (node_id, curriculum_id, source_id, topic, level, index_in_curriculum)
VALUES ($1, $2, $3, $4, $5, $6)`,
		n.NodeID, n.CurriculumID, n.SourceID, n.Topic, n.Level, n.IndexInCurriculum,
	)
	if err != nil {
		return fmt.Errorf("insert curriculum node: %w", err)
	}
	return nil
}

func (r *NodeRepo) ListByCurriculum(ctx context.Context, curriculumID string) ([]NodeWithSource, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT n.node_id, n.curriculum_id, n.source_id, n.topic, n.level, n.index_in_curriculum, n.created_at,
       s.title, s.url
FROM curriculum_nodes n
JOIN sources s ON s.source_id = n.source_id
WHERE n.curriculum_id=$1
ORDER BY n.index_in_curriculum ASC`, curriculumID)
	if err != nil {
		return nil, fmt.Errorf("list curriculum nodes: %w", err)
	}
	defer rows.Close()

	out := make([]NodeWithSource, 0)
	for rows.Next() {
		var n NodeWithSource
		if err := rows.Scan(&n.NodeID, &n.CurriculumID, &n.SourceID, &n.Topic, &n.Level, &n.IndexInCurriculum,
			&n.CreatedAt, &n.SourceTitle, &n.SourceURL); err != nil {
			return nil, fmt.Errorf("scan curriculum node: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curriculum nodes: %w", err)
	}
	return out, nil
}
