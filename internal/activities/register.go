package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.MarkRequestStartedActivity)
	w.RegisterActivity(a.MarkRequestFinishedActivity)
	w.RegisterActivity(a.GatherContextActivity)
	w.RegisterActivity(a.PlanActivity)
	w.RegisterActivity(a.ResourceSearchActivity)
	w.RegisterActivity(a.BuildCurriculumActivity)
	w.RegisterActivity(a.PublishProgressActivity)
	w.RegisterActivity(a.RecordRunMetricsActivity)
}
