package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// RunMetricsRecord is the denormalized summary written once per pipeline run.
// The sink is append-only; nothing in the pipeline ever reads it back.
type RunMetricsRecord struct {
	RunID            string
	RequestID        string
	Tag              string
	Success          bool
	TotalDurationMs  int64
	StageDurationsMs map[string]int64
	PlanItemCount    int
	NodeCount        int
}

type RunMetricsRepo struct {
	db *DB
}

func NewRunMetricsRepo(db *DB) *RunMetricsRepo {
	return &RunMetricsRepo{db: db}
}

func (r *RunMetricsRepo) Insert(ctx context.Context, rec RunMetricsRecord) error {
	stageJSON, _ := json.Marshal(rec.StageDurationsMs)
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO curriculum_run_metrics
  (run_id, request_id, tag, success, total_duration_ms, stage_durations_ms, plan_item_count, node_count)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, NULLIF($3,''), $4, $5, $6::jsonb, $7, $8)`,
		rec.RunID, rec.RequestID, rec.Tag, rec.Success, rec.TotalDurationMs, string(stageJSON), rec.PlanItemCount, rec.NodeCount)
	if err != nil {
		return fmt.Errorf("insert run metrics: %w", err)
	}
	return nil
}
