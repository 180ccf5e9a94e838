package resources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"tutorflow/internal/config"
)

type Result struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Searcher finds candidate learning resources for one plan topic. A topic
// with nothing discoverable yields an empty slice, not an error.
type Searcher interface {
	Search(ctx context.Context, topic string, limit int) ([]Result, error)
}

func NewSearcher(cfg config.Config) (Searcher, error) {
	ref := strings.TrimSpace(cfg.SearchProviders)
	name, keyAlias := ref, ""
	if strings.Contains(ref, ":") {
		x := strings.SplitN(ref, ":", 2)
		name, keyAlias = strings.TrimSpace(x[0]), strings.TrimSpace(x[1])
	}
	switch strings.ToLower(name) {
	case "", "static":
		return NewStaticSearcher(), nil
	case "serper":
		return NewSerperSearcher(keyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", name)
	}
}

// StaticSearcher synthesizes deterministic catalog links per topic. It is the
// default so the pipeline works without a search API key.
type StaticSearcher struct{}

func NewStaticSearcher() *StaticSearcher {
	return &StaticSearcher{}
}

func (s *StaticSearcher) Search(ctx context.Context, topic string, limit int) ([]Result, error) {
	_ = ctx
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return []Result{}, nil
	}
	candidates := []Result{
		{
			Title: topic + " — Wikipedia",
			URL:   "https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(topic, " ", "_")),
		},
		{
			Title: topic + " on Khan Academy",
			URL:   "https://www.khanacademy.org/search?page_search_query=" + url.QueryEscape(topic),
		},
		{
			Title: topic + " video lessons",
			URL:   "https://www.youtube.com/results?search_query=" + url.QueryEscape(topic),
		},
	}
	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
