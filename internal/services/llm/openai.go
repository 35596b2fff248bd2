package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	"iconsort/internal/services"
)

const openAIName = "openai"

// OpenAIBackend sends vision chat completions through go-openai.
type OpenAIBackend struct {
	client *openai.Client
	opts   Options
}

// NewOpenAIBackend builds a client for the official API or any compatible
// base URL.
func NewOpenAIBackend(opts Options) (*OpenAIBackend, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, missingKey(openAIName, "OPENAI_API_KEY")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = opts.httpClient()
	return &OpenAIBackend{client: openai.NewClientWithConfig(cfg), opts: opts}, nil
}

func (b *OpenAIBackend) Name() string { return openAIName }

func (b *OpenAIBackend) Complete(ctx context.Context, req VisionRequest) (string, error) {
	dataURL := "data:" + req.mimeType() + ";base64," + encodeBase64(req.Image)
	var messages []openai.ChatCompletionMessage
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailLow,
				},
			},
		},
	})

	request := openai.ChatCompletionRequest{
		Model:       b.opts.Model,
		Messages:    messages,
		MaxTokens:   b.opts.MaxTokens,
		Temperature: float32(b.opts.Temperature),
		TopP:        float32(b.opts.TopP),
	}
	if b.opts.ForceJSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", b.classify(err)
	}
	for _, choice := range resp.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", nil
}

// HealthCheck looks the configured model up, which also validates the key.
func (b *OpenAIBackend) HealthCheck(ctx context.Context) error {
	if _, err := b.client.GetModel(ctx, b.opts.Model); err != nil {
		return b.classify(err)
	}
	return nil
}

func (b *OpenAIBackend) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return classifyStatus(openAIName, b.opts.Model, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return classifyStatus(openAIName, b.opts.Model, reqErr.HTTPStatusCode, err)
	}
	return classifyTransport(openAIName, b.baseURL(), err)
}

func (b *OpenAIBackend) baseURL() string {
	if b.opts.BaseURL != "" {
		return b.opts.BaseURL
	}
	return "api.openai.com"
}

func missingKey(backend, envName string) error {
	return services.WithRemediation(
		services.Wrap(services.ErrConfiguration, backend, "credentials", "api key missing", nil),
		"set api key: export "+envName+" or classify.api_key",
	)
}
