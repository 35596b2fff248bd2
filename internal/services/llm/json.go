package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeLLMJSON decodes JSON from an LLM response, handling common formatting quirks.
func DecodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := ExtractJSONObject(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, Snippet(trimmed))
	}

	sanitizedErr := json.Unmarshal([]byte(sanitized), target)
	if sanitizedErr == nil {
		return nil
	}
	return fmt.Errorf("%w (sanitized payload snippet: %s)", sanitizedErr, Snippet(sanitized))
}

// ExtractJSONObject strips code fences and surrounding prose and returns the
// span from the first '{' to the last '}'. Content without braces is
// returned trimmed and unfenced.
func ExtractJSONObject(content string) string {
	trimmed := strings.TrimSpace(StripCodeFence(content))
	if trimmed == "" {
		return ""
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

// StripCodeFence removes a surrounding ``` or ```json fence. A fence that
// opens after some prose is also removed.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	open := strings.Index(trimmed, "```")
	if open < 0 {
		return trimmed
	}
	body := trimmed[open+3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	prefix := strings.TrimSpace(trimmed[:open])
	if prefix == "" {
		return strings.TrimSpace(body)
	}
	return prefix + "\n" + strings.TrimSpace(body)
}

// Snippet collapses whitespace and truncates content for log and error text.
func Snippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
