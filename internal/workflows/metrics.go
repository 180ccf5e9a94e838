package workflows

import (
	"time"

	"tutorflow/internal/activities"

	"go.temporal.io/sdk/workflow"
)

// metricsRecorder collects per-stage timings during a run and flushes them to
// the metrics sink exactly once, on success or on the first failure. Flushing
// is best effort: a sink outage must not change the run outcome.
type metricsRecorder struct {
	requestID string
	tag       string
	runStart  time.Time

	stageStart time.Time
	durations  map[string]int64

	planItemCount int
	nodeCount     int
	flushed       bool
}

func newMetricsRecorder(ctx workflow.Context, requestID string) *metricsRecorder {
	return &metricsRecorder{
		requestID: requestID,
		runStart:  workflow.Now(ctx),
		durations: make(map[string]int64),
	}
}

func (m *metricsRecorder) onStageStart(ctx workflow.Context) {
	m.stageStart = workflow.Now(ctx)
}

func (m *metricsRecorder) onStageEnd(ctx workflow.Context, stage string) {
	m.durations[stage] = workflow.Now(ctx).Sub(m.stageStart).Milliseconds()
}

func (m *metricsRecorder) flush(ctx workflow.Context, success bool) {
	if m.flushed {
		return
	}
	m.flushed = true
	in := activities.RecordRunMetricsInput{
		RequestID:        m.requestID,
		Tag:              m.tag,
		Success:          success,
		TotalDurationMs:  workflow.Now(ctx).Sub(m.runStart).Milliseconds(),
		StageDurationsMs: m.durations,
		PlanItemCount:    m.planItemCount,
		NodeCount:        m.nodeCount,
	}
	_ = workflow.ExecuteActivity(ctx, "RecordRunMetricsActivity", in).Get(ctx, nil)
}
