package testsupport

import (
	"context"
	"encoding/json"
	"sync"

	"iconsort/internal/services/llm"
)

// FakeBackend is an in-memory llm.VisionBackend. Reply decides each answer;
// nil replies with a valid "general" classification.
type FakeBackend struct {
	Reply  func(ctx context.Context, req llm.VisionRequest) (string, error)
	Health error

	mu      sync.Mutex
	prompts []string
}

func (f *FakeBackend) Name() string { return "fake" }

func (f *FakeBackend) Complete(ctx context.Context, req llm.VisionRequest) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()
	if f.Reply == nil {
		return JSONReply("general", 0.5, "icon"), nil
	}
	return f.Reply(ctx, req)
}

func (f *FakeBackend) HealthCheck(context.Context) error { return f.Health }

// Calls returns the number of Complete invocations.
func (f *FakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// Prompts returns the user prompts received so far.
func (f *FakeBackend) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// JSONReply renders a well-formed model answer.
func JSONReply(category string, confidence float64, tags ...string) string {
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(map[string]any{
		"category":   category,
		"tags":       tags,
		"confidence": confidence,
		"reasoning":  "test reply",
	})
	return string(data)
}
