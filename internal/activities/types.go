package activities

type RequestContext struct {
	RequestID      string `json:"request_id"`
	StudentID      string `json:"student_id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Tag            string `json:"tag"`
	Level          string `json:"level"`
	AssignedExpert string `json:"assigned_expert,omitempty"`
}

type ResourceCandidate struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type MarkRequestStartedInput struct {
	RequestID string `json:"request_id"`
}

type MarkRequestFinishedInput struct {
	RequestID string `json:"request_id"`
}

type GatherContextInput struct {
	RequestID string `json:"request_id"`
}

type GatherContextOutput struct {
	Request RequestContext `json:"request"`
}

type PlanInput struct {
	RequestID string `json:"request_id"`
	Tag       string `json:"tag"`
}

type PlanOutput struct {
	Items        []string `json:"items"`
	ProviderName string   `json:"provider_name"`
	Model        string   `json:"model"`
}

type ResourceSearchInput struct {
	RequestID string   `json:"request_id"`
	Items     []string `json:"items"`
	PerTopic  int      `json:"per_topic"`
}

type ResourceSearchOutput struct {
	Resources map[string][]ResourceCandidate `json:"resources"`
}

type BuildCurriculumInput struct {
	RequestID string                         `json:"request_id"`
	Items     []string                       `json:"items"`
	Resources map[string][]ResourceCandidate `json:"resources"`
}

type BuildCurriculumOutput struct {
	CurriculumID string `json:"curriculum_id"`
	NodeCount    int    `json:"node_count"`
}

type PublishProgressInput struct {
	RequestID  string `json:"request_id"`
	Step       int    `json:"step"`
	TotalSteps int    `json:"total_steps"`
}

type RecordRunMetricsInput struct {
	RequestID        string           `json:"request_id"`
	Tag              string           `json:"tag"`
	Success          bool             `json:"success"`
	TotalDurationMs  int64            `json:"total_duration_ms"`
	StageDurationsMs map[string]int64 `json:"stage_durations_ms"`
	PlanItemCount    int              `json:"plan_item_count"`
	NodeCount        int              `json:"node_count"`
}
