package workflows

import (
	"fmt"
	"time"

	"tutorflow/internal/activities"
	"tutorflow/internal/progress"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const defaultStageTimeout = 2 * time.Minute

// CurriculumBuildWorkflow runs the four pipeline stages for one tutoring
// request, strictly in order: gather context, plan, resource search, build.
// Stages do not retry; any stage failure aborts the run and the failure
// reaches the caller through the workflow result.
func CurriculumBuildWorkflow(ctx workflow.Context, input CurriculumBuildInput) (CurriculumBuildResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("curriculum build started", "request_id", input.RequestID)

	stageTimeout := defaultStageTimeout
	if input.StageTimeoutSeconds > 0 {
		stageTimeout = time.Duration(input.StageTimeoutSeconds) * time.Second
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: stageTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	status := RunStatus{
		RequestID: input.RequestID,
		Status:    "running",
		Stages: map[string]StageStatus{
			StageGatherContext:  {Status: "pending"},
			StagePlan:           {Status: "pending"},
			StageResourceSearch: {Status: "pending"},
			StageBuild:          {Status: "pending"},
		},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetRunStatus, func() (RunStatus, error) {
		return status, nil
	}); err != nil {
		return CurriculumBuildResult{}, err
	}

	metrics := newMetricsRecorder(ctx, input.RequestID)
	state := PipelineState{RequestID: input.RequestID}

	fail := func(stage string, err error) (CurriculumBuildResult, error) {
		status.Status = "failed"
		status.CurrentStage = stage
		status.FailReason = err.Error()
		// Completed stages keep their status; only a real pipeline stage is
		// marked failed, not post-pipeline bookkeeping like finalize.
		if _, ok := status.Stages[stage]; ok {
			status.Stages[stage] = StageStatus{Status: "failed"}
		}
		metrics.flush(ctx, false)
		logger.Error("curriculum build failed", "request_id", input.RequestID, "stage", stage, "error", err)
		return CurriculumBuildResult{RequestID: input.RequestID}, err
	}

	beginStage := func(stage string) {
		status.CurrentStage = stage
		status.Stages[stage] = StageStatus{Status: "running"}
		metrics.onStageStart(ctx)
	}
	endStage := func(stage string, step int) {
		metrics.onStageEnd(ctx, stage)
		status.Stages[stage] = StageStatus{Status: "completed", DurationMs: metrics.durations[stage]}
		publishProgress(ctx, input.RequestID, step)
	}

	// Timestamp writes are not a pipeline stage; a failure here still aborts
	// since nothing downstream can run without a persisted start.
	if err := workflow.ExecuteActivity(ctx, "MarkRequestStartedActivity",
		activities.MarkRequestStartedInput{RequestID: input.RequestID}).Get(ctx, nil); err != nil {
		return fail(StageGatherContext, err)
	}

	// Stage 1: gather context.
	beginStage(StageGatherContext)
	var gatherOut activities.GatherContextOutput
	if err := workflow.ExecuteActivity(ctx, "GatherContextActivity",
		activities.GatherContextInput{RequestID: input.RequestID}).Get(ctx, &gatherOut); err != nil {
		return fail(StageGatherContext, err)
	}
	state.Context = &gatherOut.Request
	metrics.tag = gatherOut.Request.Tag
	endStage(StageGatherContext, progress.StepGatherContext)

	// Stage 2: plan.
	beginStage(StagePlan)
	var planOut activities.PlanOutput
	if err := workflow.ExecuteActivity(ctx, "PlanActivity",
		activities.PlanInput{RequestID: input.RequestID, Tag: state.Context.Tag}).Get(ctx, &planOut); err != nil {
		return fail(StagePlan, err)
	}
	state.PlanItems = planOut.Items
	status.PlanItemCount = len(planOut.Items)
	metrics.planItemCount = len(planOut.Items)
	logger.Info("plan produced", "request_id", input.RequestID,
		"items", len(planOut.Items), "provider", planOut.ProviderName, "model", planOut.Model)
	endStage(StagePlan, progress.StepPlan)

	// Stage 3: resource search.
	beginStage(StageResourceSearch)
	var searchOut activities.ResourceSearchOutput
	if err := workflow.ExecuteActivity(ctx, "ResourceSearchActivity",
		activities.ResourceSearchInput{
			RequestID: input.RequestID,
			Items:     state.PlanItems,
			PerTopic:  input.ResourcesPerTopic,
		}).Get(ctx, &searchOut); err != nil {
		return fail(StageResourceSearch, err)
	}
	state.Resources = searchOut.Resources
	endStage(StageResourceSearch, progress.StepResourceSearch)

	// Stage 4: build.
	beginStage(StageBuild)
	var buildOut activities.BuildCurriculumOutput
	if err := workflow.ExecuteActivity(ctx, "BuildCurriculumActivity",
		activities.BuildCurriculumInput{
			RequestID: input.RequestID,
			Items:     state.PlanItems,
			Resources: state.Resources,
		}).Get(ctx, &buildOut); err != nil {
		return fail(StageBuild, err)
	}
	metrics.nodeCount = buildOut.NodeCount
	endStage(StageBuild, progress.StepBuild)

	if err := workflow.ExecuteActivity(ctx, "MarkRequestFinishedActivity",
		activities.MarkRequestFinishedInput{RequestID: input.RequestID}).Get(ctx, nil); err != nil {
		return fail(StageFinalize, err)
	}

	status.Status = "completed"
	status.CurrentStage = ""
	metrics.flush(ctx, true)

	logger.Info("curriculum build completed", "request_id", input.RequestID,
		"curriculum_id", buildOut.CurriculumID, "nodes", buildOut.NodeCount)
	return CurriculumBuildResult{
		RequestID:    input.RequestID,
		CurriculumID: buildOut.CurriculumID,
		PlanItems:    state.PlanItems,
		NodeCount:    buildOut.NodeCount,
	}, nil
}

// publishProgress fans the stage-complete event out to subscribers. Best
// effort: a dropped event never fails the run.
func publishProgress(ctx workflow.Context, requestID string, step int) {
	_ = workflow.ExecuteActivity(ctx, "PublishProgressActivity", activities.PublishProgressInput{
		RequestID:  requestID,
		Step:       step,
		TotalSteps: progress.TotalSteps,
	}).Get(ctx, nil)
}

// WorkflowID returns the deterministic workflow ID for a request, which is
// what prevents two concurrent runs for the same request.
func WorkflowID(requestID string) string {
	return fmt.Sprintf("curriculum-%s", requestID)
}
