package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

const claudeName = "anthropic"

// ClaudeBackend sends image messages to Anthropic through go-anthropic.
type ClaudeBackend struct {
	client *anthropic.Client
	opts   Options
}

func NewClaudeBackend(opts Options) (*ClaudeBackend, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, missingKey(claudeName, "ANTHROPIC_API_KEY")
	}
	clientOpts := []anthropic.ClientOption{anthropic.WithHTTPClient(opts.httpClient())}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(opts.BaseURL))
	}
	return &ClaudeBackend{
		client: anthropic.NewClient(opts.APIKey, clientOpts...),
		opts:   opts,
	}, nil
}

func (b *ClaudeBackend) Name() string { return claudeName }

func (b *ClaudeBackend) Complete(ctx context.Context, req VisionRequest) (string, error) {
	temperature := float32(b.opts.Temperature)
	maxTokens := b.opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	resp, err := b.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:  anthropic.Model(b.opts.Model),
		System: strings.TrimSpace(req.System),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
						anthropic.MessagesContentSourceTypeBase64,
						req.mimeType(),
						encodeBase64(req.Image),
					)),
					anthropic.NewTextMessageContent(req.Prompt),
				},
			},
		},
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", b.classify(err)
	}
	for _, content := range resp.Content {
		if content.Text != nil && strings.TrimSpace(*content.Text) != "" {
			return strings.TrimSpace(*content.Text), nil
		}
	}
	return "", nil
}

// HealthCheck only confirms a key is configured; the messages API has no
// free health endpoint.
func (b *ClaudeBackend) HealthCheck(context.Context) error {
	if strings.TrimSpace(b.opts.APIKey) == "" {
		return missingKey(claudeName, "ANTHROPIC_API_KEY")
	}
	return nil
}

func (b *ClaudeBackend) classify(err error) error {
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode > 0 {
		return classifyStatus(claudeName, b.opts.Model, reqErr.StatusCode, err)
	}
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsAuthenticationErr(), apiErr.IsPermissionErr():
			return classifyStatus(claudeName, b.opts.Model, http.StatusUnauthorized, err)
		case apiErr.IsNotFoundErr():
			return classifyStatus(claudeName, b.opts.Model, http.StatusNotFound, err)
		case apiErr.IsRateLimitErr():
			return classifyStatus(claudeName, b.opts.Model, http.StatusTooManyRequests, err)
		case apiErr.IsOverloadedErr(), apiErr.IsApiErr():
			return classifyStatus(claudeName, b.opts.Model, http.StatusServiceUnavailable, err)
		default:
			return classifyStatus(claudeName, b.opts.Model, http.StatusBadRequest, err)
		}
	}
	baseURL := b.opts.BaseURL
	if baseURL == "" {
		baseURL = "api.anthropic.com"
	}
	return classifyTransport(claudeName, baseURL, err)
}
