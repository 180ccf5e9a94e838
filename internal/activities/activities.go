package activities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tutorflow/internal/config"
	"tutorflow/internal/models"
	"tutorflow/internal/progress"
	"tutorflow/internal/providers"
	"tutorflow/internal/resources"
	"tutorflow/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type Activities struct {
	cfg        config.Config
	requests   *storage.RequestRepo
	curricula  *storage.CurriculumRepo
	nodes      *storage.NodeRepo
	sources    *storage.SourceRepo
	runMetrics *storage.RunMetricsRepo
	providers  *providers.Manager
	searcher   resources.Searcher
	bus        *progress.Bus
	log        *zap.SugaredLogger
}

func New(cfg config.Config, db *storage.DB, bus *progress.Bus, log *zap.SugaredLogger) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	searcher, err := resources.NewSearcher(cfg)
	if err != nil {
		return nil, err
	}
	return &Activities{
		cfg:        cfg,
		requests:   storage.NewRequestRepo(db),
		curricula:  storage.NewCurriculumRepo(db),
		nodes:      storage.NewNodeRepo(db),
		sources:    storage.NewSourceRepo(db),
		runMetrics: storage.NewRunMetricsRepo(db),
		providers:  pm,
		searcher:   searcher,
		bus:        bus,
		log:        log,
	}, nil
}

func (a *Activities) MarkRequestStartedActivity(ctx context.Context, in MarkRequestStartedInput) error {
	if err := a.requests.MarkStarted(ctx, in.RequestID); err != nil {
		return persistenceError("write request start timestamp", err)
	}
	return nil
}

func (a *Activities) MarkRequestFinishedActivity(ctx context.Context, in MarkRequestFinishedInput) error {
	if err := a.requests.MarkFinished(ctx, in.RequestID); err != nil {
		return persistenceError("write request finish timestamp", err)
	}
	return nil
}

// The classification fields the later stages depend on, enumerated so a new
// one cannot slip through a truthiness check.
var requiredClassificationFields = []struct {
	name string
	get  func(models.Request) string
}{
	{"tag", func(r models.Request) string { return r.Tag }},
	{"level", func(r models.Request) string { return r.Level }},
}

func missingClassificationFields(req models.Request) []string {
	missing := make([]string, 0)
	for _, f := range requiredClassificationFields {
		if strings.TrimSpace(f.get(req)) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// validateClassification reports every missing field in one error so the
// caller fixes the request once, not field by field.
func validateClassification(req models.Request) error {
	if missing := missingClassificationFields(req); len(missing) > 0 {
		return validationError("request %s missing required classification fields: %s", req.RequestID, strings.Join(missing, ", "))
	}
	return nil
}

func classifyFetchErr(requestID string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFoundError("request %s not found", requestID)
	}
	return persistenceError("fetch request", err)
}

func (a *Activities) GatherContextActivity(ctx context.Context, in GatherContextInput) (GatherContextOutput, error) {
	req, err := a.requests.GetRequestByID(ctx, in.RequestID)
	if err != nil {
		return GatherContextOutput{}, classifyFetchErr(in.RequestID, err)
	}
	if err := validateClassification(req); err != nil {
		return GatherContextOutput{}, err
	}
	return GatherContextOutput{Request: RequestContext{
		RequestID:      req.RequestID,
		StudentID:      req.StudentID,
		Title:          req.Title,
		Description:    req.Description,
		Tag:            req.Tag,
		Level:          req.Level,
		AssignedExpert: req.AssignedExpert,
	}}, nil
}

func (a *Activities) PlanActivity(ctx context.Context, in PlanInput) (PlanOutput, error) {
	tag := strings.TrimSpace(in.Tag)
	if tag == "" {
		// Stage 1 validates the tag; reaching here without one is a bug, not
		// something to paper over with a default topic.
		return PlanOutput{}, validationError("plan stage invoked without a tag for request %s", in.RequestID)
	}
	provider, ref := a.providers.FirstLLMProvider()
	resp, info, err := provider.Generate(ctx, providers.GenerateRequest{
		Operation: "curriculum_plan",
		Prompt:    planPrompt(tag),
	})
	if err != nil {
		a.log.Errorw("plan generation failed", "request_id", in.RequestID, "provider", ref.Raw,
			"error_type", providers.ClassifyError(err), "error", err)
		return PlanOutput{}, externalServiceError(fmt.Sprintf("plan generation via %s failed: %v", ref.Raw, err), err)
	}
	return PlanOutput{
		Items:        parsePlanItems(resp.Text),
		ProviderName: info.Name,
		Model:        info.Model,
	}, nil
}

func planPrompt(tag string) string {
	return "List the key subtopics a student should work through to learn " + tag + ".\n" +
		"Return one subtopic per line, most fundamental first.\n" +
		"No numbering, no bullets, no commentary."
}

// parsePlanItems splits completion text into plan items: one per line,
// trimmed, blank lines dropped. An empty result is legal and means the run
// builds zero nodes.
func parsePlanItems(text string) []string {
	lines := strings.Split(text, "\n")
	items := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		items = append(items, l)
	}
	return items
}

func (a *Activities) ResourceSearchActivity(ctx context.Context, in ResourceSearchInput) (ResourceSearchOutput, error) {
	perTopic := in.PerTopic
	if perTopic <= 0 {
		perTopic = a.cfg.ResourcesPerTopic
	}
	out := ResourceSearchOutput{Resources: make(map[string][]ResourceCandidate, len(in.Items))}
	for _, item := range in.Items {
		results, err := a.searcher.Search(ctx, item, perTopic)
		if err != nil {
			a.log.Errorw("resource search failed", "request_id", in.RequestID, "topic", item, "error", err)
			return ResourceSearchOutput{}, externalServiceError(fmt.Sprintf("resource search for %q failed: %v", item, err), err)
		}
		// A topic with no hits keeps its key so downstream can tell "no plan
		// item" apart from "plan item with no resources".
		candidates := make([]ResourceCandidate, 0, len(results))
		for _, r := range results {
			candidates = append(candidates, ResourceCandidate{Title: r.Title, URL: r.URL})
		}
		out.Resources[item] = candidates
	}
	return out, nil
}

type plannedNode struct {
	Topic    string
	Position int
	Resource ResourceCandidate
}

// planNodes picks, for each plan item with at least one candidate, the first
// candidate and the item's original plan position. Items without candidates
// are skipped without renumbering the rest.
func planNodes(items []string, resources map[string][]ResourceCandidate) []plannedNode {
	out := make([]plannedNode, 0, len(items))
	for i, item := range items {
		candidates := resources[item]
		if len(candidates) == 0 {
			continue
		}
		out = append(out, plannedNode{Topic: item, Position: i, Resource: candidates[0]})
	}
	return out
}

func (a *Activities) BuildCurriculumActivity(ctx context.Context, in BuildCurriculumInput) (BuildCurriculumOutput, error) {
	curriculumID, err := a.curricula.UpsertForRequest(ctx, uuid.NewString(), in.RequestID)
	if err != nil {
		return BuildCurriculumOutput{}, persistenceError("create curriculum", err)
	}

	planned := planNodes(in.Items, in.Resources)
	for _, n := range planned {
		sourceID := uuid.NewString()
		if err := a.sources.InsertSource(ctx, models.Source{SourceID: sourceID, Title: n.Resource.Title, URL: n.Resource.URL}); err != nil {
			return BuildCurriculumOutput{}, persistenceError(fmt.Sprintf("insert source for topic %q", n.Topic), err)
		}
		if err := a.nodes.InsertNode(ctx, models.CurriculumNode{
			NodeID:            uuid.NewString(),
			CurriculumID:      curriculumID,
			SourceID:          sourceID,
			Topic:             n.Topic,
			Level:             n.Position,
			IndexInCurriculum: n.Position,
		}); err != nil {
			return BuildCurriculumOutput{}, persistenceError(fmt.Sprintf("insert node for topic %q", n.Topic), err)
		}
	}
	return BuildCurriculumOutput{CurriculumID: curriculumID, NodeCount: len(planned)}, nil
}

func (a *Activities) PublishProgressActivity(ctx context.Context, in PublishProgressInput) error {
	a.bus.Publish(ctx, in.RequestID, progress.Event{Step: in.Step, TotalSteps: in.TotalSteps})
	return nil
}

func (a *Activities) RecordRunMetricsActivity(ctx context.Context, in RecordRunMetricsInput) error {
	err := a.runMetrics.Insert(ctx, storage.RunMetricsRecord{
		RequestID:        in.RequestID,
		Tag:              in.Tag,
		Success:          in.Success,
		TotalDurationMs:  in.TotalDurationMs,
		StageDurationsMs: in.StageDurationsMs,
		PlanItemCount:    in.PlanItemCount,
		NodeCount:        in.NodeCount,
	})
	if err != nil {
		// The recorder is observational only; log and let the workflow's
		// best-effort call discard this error.
		a.log.Warnw("record run metrics failed", "request_id", in.RequestID, "error", err)
		return err
	}
	return nil
}
