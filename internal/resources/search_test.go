package resources

import (
	"context"
	"testing"

	"tutorflow/internal/config"
)

func TestStaticSearcherIsDeterministic(t *testing.T) {
	s := NewStaticSearcher()
	a, err := s.Search(context.Background(), "Algebra", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	b, _ := s.Search(context.Background(), "Algebra", 3)
	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("expected 3 results, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("results differ at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestStaticSearcherHonorsLimit(t *testing.T) {
	s := NewStaticSearcher()
	out, err := s.Search(context.Background(), "Geometry", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out))
	}
}

func TestStaticSearcherBlankTopicYieldsEmptyList(t *testing.T) {
	s := NewStaticSearcher()
	out, err := s.Search(context.Background(), "   ", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no results for blank topic, got %d", len(out))
	}
}

func TestNewSearcherRejectsUnknownProvider(t *testing.T) {
	if _, err := NewSearcher(config.Config{SearchProviders: "bing"}); err == nil {
		t.Fatalf("expected error for unknown search provider")
	}
}
