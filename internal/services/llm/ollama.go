package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"iconsort/internal/services"
)

const ollamaName = "ollama"

// OllamaClient calls a local Ollama server.
type OllamaClient struct {
	opts       Options
	httpClient *http.Client
}

// NewOllamaClient constructs a client; an empty BaseURL targets localhost.
func NewOllamaClient(opts Options) *OllamaClient {
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434"
	}
	opts.Model = strings.TrimSpace(opts.Model)
	return &OllamaClient{opts: opts, httpClient: opts.httpClient()}
}

func (c *OllamaClient) Name() string { return ollamaName }

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// Complete posts a non-streaming /api/chat request with the image attached to
// the user message.
func (c *OllamaClient) Complete(ctx context.Context, req VisionRequest) (string, error) {
	payload := ollamaChatRequest{
		Model:  c.opts.Model,
		Stream: false,
		Options: ollamaOptions{
			Temperature: c.opts.Temperature,
			TopP:        c.opts.TopP,
			NumPredict:  c.opts.MaxTokens,
		},
	}
	if c.opts.ForceJSON {
		payload.Format = "json"
	}
	if system := strings.TrimSpace(req.System); system != "" {
		payload.Messages = append(payload.Messages, ollamaMessage{Role: "system", Content: system})
	}
	user := ollamaMessage{Role: "user", Content: req.Prompt}
	if len(req.Image) > 0 {
		user.Images = []string{encodeBase64(req.Image)}
	}
	payload.Messages = append(payload.Messages, user)

	body, err := c.do(ctx, http.MethodPost, "/api/chat", payload)
	if err != nil {
		return "", err
	}
	var resp ollamaChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", services.Wrap(services.ErrTransient, ollamaName, "decode response", Snippet(string(body)), err)
	}
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return "", c.classifyMessage(msg)
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// HealthCheck confirms the server answers and the configured model is
// pulled.
func (c *OllamaClient) HealthCheck(ctx context.Context) error {
	body, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return err
	}
	var tags ollamaTagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return services.Wrap(services.ErrExternalTool, ollamaName, "list models", Snippet(string(body)), err)
	}
	for _, m := range tags.Models {
		if modelMatches(c.opts.Model, m.Name) || modelMatches(c.opts.Model, m.Model) {
			return nil
		}
	}
	return c.modelMissing(nil)
}

func (c *OllamaClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	endpoint, err := url.JoinPath(c.opts.BaseURL, path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, ollamaName, "build url", c.opts.BaseURL, err)
	}
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("ollama request: encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("ollama request: new request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(ollamaName, c.opts.BaseURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(ollamaName, c.opts.BaseURL, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		wait, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		statusErr := &httpStatusError{StatusCode: resp.StatusCode, Body: string(body), Wait: wait}
		if resp.StatusCode == http.StatusNotFound || strings.Contains(strings.ToLower(string(body)), "not found") {
			return nil, c.modelMissing(statusErr)
		}
		return nil, classifyStatus(ollamaName, c.opts.Model, resp.StatusCode, statusErr)
	}
	return body, nil
}

func (c *OllamaClient) classifyMessage(msg string) error {
	if strings.Contains(strings.ToLower(msg), "not found") {
		return c.modelMissing(errors.New(msg))
	}
	return services.Wrap(services.ErrTransient, ollamaName, "chat", msg, nil)
}

func (c *OllamaClient) modelMissing(cause error) error {
	return services.WithRemediation(
		services.Wrap(services.ErrConfiguration, ollamaName, "model", fmt.Sprintf("model %q is not available", c.opts.Model), cause),
		"pull the required model: ollama pull "+c.opts.Model,
	)
}

// modelMatches treats "llava" and "llava:latest" as the same model.
func modelMatches(want, have string) bool {
	want = strings.TrimSpace(want)
	have = strings.TrimSpace(have)
	if want == "" || have == "" {
		return false
	}
	if want == have {
		return true
	}
	if !strings.Contains(want, ":") {
		return have == want+":latest"
	}
	return false
}
