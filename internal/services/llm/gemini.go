package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const geminiName = "gemini"

// GeminiBackend calls Gemini generateContent with inline image data.
type GeminiBackend struct {
	client *genai.Client
	model  *genai.GenerativeModel
	opts   Options
}

func NewGeminiBackend(ctx context.Context, opts Options) (*GeminiBackend, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, missingKey(geminiName, "GEMINI_API_KEY")
	}
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, classifyTransport(geminiName, opts.BaseURL, err)
	}
	model := client.GenerativeModel(opts.Model)
	model.SetTemperature(float32(opts.Temperature))
	if opts.TopP > 0 {
		model.SetTopP(float32(opts.TopP))
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.ForceJSON {
		model.ResponseMIMEType = "application/json"
	}
	return &GeminiBackend{client: client, model: model, opts: opts}, nil
}

func (b *GeminiBackend) Name() string { return geminiName }

// Complete sends the image and prompt. Each call gets its own model handle
// so concurrent calls never share the system instruction.
func (b *GeminiBackend) Complete(ctx context.Context, req VisionRequest) (string, error) {
	model := b.client.GenerativeModel(b.opts.Model)
	model.GenerationConfig = b.model.GenerationConfig
	if system := strings.TrimSpace(req.System); system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	format := strings.TrimPrefix(req.mimeType(), "image/")
	resp, err := model.GenerateContent(ctx, genai.ImageData(format, req.Image), genai.Text(req.Prompt))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", nil
		}
		return "", b.classify(err)
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
		if out := strings.TrimSpace(text.String()); out != "" {
			return out, nil
		}
	}
	return "", nil
}

// HealthCheck fetches model info, which validates the key and model name.
func (b *GeminiBackend) HealthCheck(ctx context.Context) error {
	if _, err := b.model.Info(ctx); err != nil {
		return b.classify(err)
	}
	return nil
}

// Close releases the underlying gRPC and REST clients.
func (b *GeminiBackend) Close() error {
	return b.client.Close()
}

func (b *GeminiBackend) classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return classifyStatus(geminiName, b.opts.Model, apiErr.Code, err)
	}
	baseURL := b.opts.BaseURL
	if baseURL == "" {
		baseURL = "generativelanguage.googleapis.com"
	}
	return classifyTransport(geminiName, baseURL, err)
}
