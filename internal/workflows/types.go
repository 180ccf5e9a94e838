package workflows

import "tutorflow/internal/activities"

const (
	StageGatherContext  = "gather_context"
	StagePlan           = "plan"
	StageResourceSearch = "resource_search"
	StageBuild          = "build"

	// StageFinalize labels failures in the post-pipeline bookkeeping (the
	// finish timestamp write); it is not a pipeline stage and has no entry in
	// the per-stage status map.
	StageFinalize = "finalize"
)

// QueryGetRunStatus is the query name the API server uses to read pipeline
// progress out of a running (or recently completed) workflow.
const QueryGetRunStatus = "getRunStatus"

type CurriculumBuildInput struct {
	RequestID           string `json:"request_id"`
	StageTimeoutSeconds int    `json:"stage_timeout_seconds"`
	ResourcesPerTopic   int    `json:"resources_per_topic"`
}

type CurriculumBuildResult struct {
	RequestID    string   `json:"request_id"`
	CurriculumID string   `json:"curriculum_id"`
	PlanItems    []string `json:"plan_items"`
	NodeCount    int      `json:"node_count"`
}

type StageStatus struct {
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// RunStatus is the query-visible snapshot of a pipeline run.
type RunStatus struct {
	RequestID     string                 `json:"request_id"`
	CurrentStage  string                 `json:"current_stage"`
	Status        string                 `json:"status"`
	FailReason    string                 `json:"fail_reason,omitempty"`
	Stages        map[string]StageStatus `json:"stages"`
	PlanItemCount int                    `json:"plan_item_count"`
}

// PipelineState accumulates stage outputs as the run advances. Each stage
// reads only from here and from its own activity result, never from the
// database directly.
type PipelineState struct {
	RequestID string
	Context   *activities.RequestContext
	PlanItems []string
	Resources map[string][]activities.ResourceCandidate
}
