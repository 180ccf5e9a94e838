package providers

import (
	"context"
	"strings"
)

// MockProvider returns deterministic text so the pipeline can run end to end
// without any API keys configured.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	text := "Mock response."
	if strings.Contains(strings.ToLower(req.Operation), "plan") {
		text = strings.Join([]string{
			"Foundations and terminology",
			"Core concepts",
			"Worked examples",
			"Guided practice",
			"Applied project",
		}, "\n")
	}
	return GenerateResponse{Text: text}, ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}, nil
}
