package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"iconsort/internal/config"
	"iconsort/internal/services"
)

const defaultHTTPTimeout = 60 * time.Second

// VisionRequest is one image classification call.
type VisionRequest struct {
	System   string
	Prompt   string
	Image    []byte
	MIMEType string
}

func (r VisionRequest) mimeType() string {
	if strings.TrimSpace(r.MIMEType) == "" {
		return "image/png"
	}
	return r.MIMEType
}

// VisionBackend sends an image and prompt to a model and returns its text.
type VisionBackend interface {
	Name() string
	Complete(ctx context.Context, req VisionRequest) (string, error)
	HealthCheck(ctx context.Context) error
}

// Options captures the settings shared by every backend.
type Options struct {
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	TopP        float64
	MaxTokens   int
	ForceJSON   bool
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// OptionsFromConfig copies the request knobs from the classify section.
func OptionsFromConfig(c config.Classify) Options {
	return Options{
		Model:       c.Model,
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Temperature: c.Temperature,
		TopP:        c.TopP,
		MaxTokens:   c.MaxTokens,
		ForceJSON:   c.ForceJSON,
		Timeout:     time.Duration(c.TimeoutMS) * time.Millisecond,
	}
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// NewBackend selects the backend for the configured provider.
func NewBackend(ctx context.Context, c config.Classify) (VisionBackend, error) {
	opts := OptionsFromConfig(c)
	if c.Provider == config.ProviderLocal {
		return NewOllamaClient(opts), nil
	}
	switch c.CloudBackend {
	case config.BackendOpenAI:
		return NewOpenAIBackend(opts)
	case config.BackendAnthropic:
		return NewClaudeBackend(opts)
	case config.BackendGemini:
		return NewGeminiBackend(ctx, opts)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "classify", "select backend",
			fmt.Sprintf("unknown cloud backend %q", c.CloudBackend), nil)
	}
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

type httpStatusError struct {
	StatusCode int
	Body       string
	Wait       time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, Snippet(e.Body))
}

// RetryAfter exposes the server's Retry-After hint to the retry policy.
func (e *httpStatusError) RetryAfter() time.Duration { return e.Wait }

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// classifyStatus maps an HTTP status from any backend onto the error
// taxonomy. cause is kept in the chain.
func classifyStatus(backend, model string, status int, cause error) error {
	op := "request"
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.WithRemediation(
			services.Wrap(services.ErrConfiguration, backend, op, "credentials rejected", cause),
			"set a valid api key for "+backend,
		)
	case status == http.StatusNotFound:
		return services.WithRemediation(
			services.Wrap(services.ErrConfiguration, backend, op, fmt.Sprintf("model %q not found", model), cause),
			"pull the required model or pick one the backend serves",
		)
	case status == http.StatusRequestTimeout:
		return services.Wrap(services.ErrTimeout, backend, op, "backend timed out", cause)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return services.WithRemediation(
			services.Wrap(services.ErrTransient, backend, op, "backend busy", cause),
			"reduce concurrency",
		)
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge:
		return services.Wrap(services.ErrValidation, backend, op, "request rejected", cause)
	default:
		return services.Wrap(services.ErrExternalTool, backend, op, fmt.Sprintf("unexpected status %d", status), cause)
	}
}

// classifyTransport maps dial, timeout, and reset failures onto the error
// taxonomy. Context cancellation passes through untouched.
func classifyTransport(backend, baseURL string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, backend, "request", "deadline exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, backend, "request", "network timeout", err)
	}
	var opErr *net.OpError
	if errors.Is(err, syscall.ECONNREFUSED) || (errors.As(err, &opErr) && opErr.Op == "dial") {
		return services.WithRemediation(
			services.Wrap(services.ErrConfiguration, backend, "request", "backend unreachable at "+baseURL, err),
			"check backend reachable",
		)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return services.WithRemediation(
			services.Wrap(services.ErrConfiguration, backend, "request", "cannot resolve "+baseURL, err),
			"check backend reachable",
		)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, syscall.ECONNRESET) {
		return services.Wrap(services.ErrTransient, backend, "request", "connection failed", err)
	}
	return services.Wrap(services.ErrExternalTool, backend, "request", "", err)
}
