package resources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// SerperSearcher queries serper.dev web search for real resource candidates.
type SerperSearcher struct {
	keyName string
	apiKey  string
	client  *http.Client
}

func NewSerperSearcher(keyName string) *SerperSearcher {
	return &SerperSearcher{
		keyName: keyName,
		apiKey:  resolveSerperKey(keyName),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SerperSearcher) Search(ctx context.Context, topic string, limit int) ([]Result, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("serper key missing for alias %q", s.keyName)
	}
	if limit <= 0 {
		limit = 3
	}
	payload, _ := json.Marshal(map[string]any{"q": topic + " tutorial", "num": limit})
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, "https://google.serper.dev/search", bytes.NewReader(payload))
	httpReq.Header.Set("X-API-KEY", s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("serper search request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("serper search error %d: %s", resp.StatusCode, string(body))
	}
	var parsed struct {
		Organic []struct {
			Title string `json:"title"`
			Link  string `json:"link"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode serper response: %w", err)
	}
	out := make([]Result, 0, limit)
	for _, item := range parsed.Organic {
		if len(out) >= limit {
			break
		}
		if strings.TrimSpace(item.Link) == "" {
			continue
		}
		out = append(out, Result{Title: item.Title, URL: item.Link})
	}
	return out, nil
}

func resolveSerperKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("TUTORFLOW_SERPER_KEY_" + strings.ToUpper(alias)); v != "" {
			return v
		}
	}
	return os.Getenv("SERPER_API_KEY")
}
