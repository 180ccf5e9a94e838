package workflows

import (
	"context"
	"errors"
	"testing"

	"tutorflow/internal/activities"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerPipelineActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "MarkRequestStartedActivity", func(context.Context, activities.MarkRequestStartedInput) error { return nil })
	registerActivityName(env, "MarkRequestFinishedActivity", func(context.Context, activities.MarkRequestFinishedInput) error { return nil })
	registerActivityName(env, "GatherContextActivity", func(context.Context, activities.GatherContextInput) (activities.GatherContextOutput, error) {
		return activities.GatherContextOutput{}, nil
	})
	registerActivityName(env, "PlanActivity", func(context.Context, activities.PlanInput) (activities.PlanOutput, error) {
		return activities.PlanOutput{}, nil
	})
	registerActivityName(env, "ResourceSearchActivity", func(context.Context, activities.ResourceSearchInput) (activities.ResourceSearchOutput, error) {
		return activities.ResourceSearchOutput{}, nil
	})
	registerActivityName(env, "BuildCurriculumActivity", func(context.Context, activities.BuildCurriculumInput) (activities.BuildCurriculumOutput, error) {
		return activities.BuildCurriculumOutput{}, nil
	})
	registerActivityName(env, "PublishProgressActivity", func(context.Context, activities.PublishProgressInput) error { return nil })
	registerActivityName(env, "RecordRunMetricsActivity", func(context.Context, activities.RecordRunMetricsInput) error { return nil })
}

func TestCurriculumBuildWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(CurriculumBuildWorkflow)
	registerPipelineActivities(env)

	var publishedSteps []int
	var flushes []activities.RecordRunMetricsInput

	env.OnActivity("MarkRequestStartedActivity", mock.Anything, activities.MarkRequestStartedInput{RequestID: "req-1"}).Return(nil)
	env.OnActivity("GatherContextActivity", mock.Anything, activities.GatherContextInput{RequestID: "req-1"}).Return(activities.GatherContextOutput{
		Request: activities.RequestContext{RequestID: "req-1", StudentID: "stu-1", Title: "Learn calculus", Tag: "calculus", Level: "beginner"},
	}, nil)
	env.OnActivity("PlanActivity", mock.Anything, activities.PlanInput{RequestID: "req-1", Tag: "calculus"}).Return(activities.PlanOutput{
		Items: []string{"Limits", "Derivatives", "Integrals"}, ProviderName: "mock", Model: "mock",
	}, nil)
	env.OnActivity("ResourceSearchActivity", mock.Anything, activities.ResourceSearchInput{
		RequestID: "req-1", Items: []string{"Limits", "Derivatives", "Integrals"}, PerTopic: 3,
	}).Return(activities.ResourceSearchOutput{Resources: map[string][]activities.ResourceCandidate{
		"Limits":      {{Title: "Limits intro", URL: "https://example.org/limits"}},
		"Derivatives": {{Title: "Derivatives intro", URL: "https://example.org/derivatives"}},
		"Integrals":   {},
	}}, nil)
	env.OnActivity("BuildCurriculumActivity", mock.Anything, mock.Anything).Return(activities.BuildCurriculumOutput{CurriculumID: "cur-1", NodeCount: 2}, nil)
	env.OnActivity("MarkRequestFinishedActivity", mock.Anything, activities.MarkRequestFinishedInput{RequestID: "req-1"}).Return(nil)
	env.OnActivity("PublishProgressActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.PublishProgressInput) error {
		publishedSteps = append(publishedSteps, in.Step)
		return nil
	})
	env.OnActivity("RecordRunMetricsActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.RecordRunMetricsInput) error {
		flushes = append(flushes, in)
		return nil
	})

	env.ExecuteWorkflow(CurriculumBuildWorkflow, CurriculumBuildInput{RequestID: "req-1", ResourcesPerTopic: 3})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out CurriculumBuildResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "req-1", out.RequestID)
	require.Equal(t, "cur-1", out.CurriculumID)
	require.Equal(t, []string{"Limits", "Derivatives", "Integrals"}, out.PlanItems)
	require.Equal(t, 2, out.NodeCount)

	require.Equal(t, []int{1, 2, 3, 4}, publishedSteps)

	require.Len(t, flushes, 1)
	require.True(t, flushes[0].Success)
	require.Equal(t, "calculus", flushes[0].Tag)
	require.Equal(t, 3, flushes[0].PlanItemCount)
	require.Equal(t, 2, flushes[0].NodeCount)
	require.Len(t, flushes[0].StageDurationsMs, 4)
}

func TestCurriculumBuildWorkflowPlanFailureAborts(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(CurriculumBuildWorkflow)
	registerPipelineActivities(env)

	var publishedSteps []int
	var flushes []activities.RecordRunMetricsInput

	env.OnActivity("MarkRequestStartedActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GatherContextActivity", mock.Anything, mock.Anything).Return(activities.GatherContextOutput{
		Request: activities.RequestContext{RequestID: "req-2", Tag: "algebra", Level: "beginner"},
	}, nil)
	env.OnActivity("PlanActivity", mock.Anything, mock.Anything).Return(activities.PlanOutput{}, errors.New("provider unavailable"))
	env.OnActivity("PublishProgressActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.PublishProgressInput) error {
		publishedSteps = append(publishedSteps, in.Step)
		return nil
	})
	env.OnActivity("RecordRunMetricsActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.RecordRunMetricsInput) error {
		flushes = append(flushes, in)
		return nil
	})

	env.ExecuteWorkflow(CurriculumBuildWorkflow, CurriculumBuildInput{RequestID: "req-2"})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())

	// Only stage 1 completed, so only one progress event; build and the
	// finish timestamp never ran.
	require.Equal(t, []int{1}, publishedSteps)
	env.AssertNotCalled(t, "BuildCurriculumActivity", mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "MarkRequestFinishedActivity", mock.Anything, mock.Anything)

	require.Len(t, flushes, 1)
	require.False(t, flushes[0].Success)
	require.Equal(t, "algebra", flushes[0].Tag)
	require.Equal(t, 0, flushes[0].NodeCount)
}

func TestCurriculumBuildWorkflowFinishWriteFailureKeepsStageStatuses(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(CurriculumBuildWorkflow)
	registerPipelineActivities(env)

	var flushes []activities.RecordRunMetricsInput

	env.OnActivity("MarkRequestStartedActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GatherContextActivity", mock.Anything, mock.Anything).Return(activities.GatherContextOutput{
		Request: activities.RequestContext{RequestID: "req-3", Tag: "physics", Level: "beginner"},
	}, nil)
	env.OnActivity("PlanActivity", mock.Anything, mock.Anything).Return(activities.PlanOutput{Items: []string{"Kinematics"}}, nil)
	env.OnActivity("ResourceSearchActivity", mock.Anything, mock.Anything).Return(activities.ResourceSearchOutput{
		Resources: map[string][]activities.ResourceCandidate{"Kinematics": {{Title: "Kinematics intro", URL: "https://example.org/kinematics"}}},
	}, nil)
	env.OnActivity("BuildCurriculumActivity", mock.Anything, mock.Anything).Return(activities.BuildCurriculumOutput{CurriculumID: "cur-3", NodeCount: 1}, nil)
	env.OnActivity("MarkRequestFinishedActivity", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	env.OnActivity("PublishProgressActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("RecordRunMetricsActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.RecordRunMetricsInput) error {
		flushes = append(flushes, in)
		return nil
	})

	env.ExecuteWorkflow(CurriculumBuildWorkflow, CurriculumBuildInput{RequestID: "req-3"})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())

	// The pipeline itself succeeded; the failure belongs to finalize, so the
	// build stage keeps its completed status in the queryable snapshot.
	val, err := env.QueryWorkflow(QueryGetRunStatus)
	require.NoError(t, err)
	var status RunStatus
	require.NoError(t, val.Get(&status))
	require.Equal(t, "failed", status.Status)
	require.Equal(t, StageFinalize, status.CurrentStage)
	require.Equal(t, "completed", status.Stages[StageBuild].Status)

	require.Len(t, flushes, 1)
	require.False(t, flushes[0].Success)
	require.Equal(t, 1, flushes[0].NodeCount)
}

func TestCurriculumBuildWorkflowMissingRequestAbortsBeforeProgress(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(CurriculumBuildWorkflow)
	registerPipelineActivities(env)

	var publishedSteps []int

	env.OnActivity("MarkRequestStartedActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GatherContextActivity", mock.Anything, mock.Anything).Return(activities.GatherContextOutput{}, errors.New("request req-missing not found"))
	env.OnActivity("PublishProgressActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.PublishProgressInput) error {
		publishedSteps = append(publishedSteps, in.Step)
		return nil
	})
	env.OnActivity("RecordRunMetricsActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(CurriculumBuildWorkflow, CurriculumBuildInput{RequestID: "req-missing"})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	require.Contains(t, env.GetWorkflowError().Error(), "not found")

	require.Empty(t, publishedSteps)
	env.AssertNotCalled(t, "PlanActivity", mock.Anything, mock.Anything)
}

func TestWorkflowIDIsDeterministicPerRequest(t *testing.T) {
	require.Equal(t, "curriculum-abc", WorkflowID("abc"))
	require.Equal(t, WorkflowID("abc"), WorkflowID("abc"))
	require.NotEqual(t, WorkflowID("abc"), WorkflowID("def"))
}
