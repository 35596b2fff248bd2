// Package llm talks to the vision-capable model backends that classify icons.
//
// Every backend implements VisionBackend: it receives a rendered PNG plus a
// system and user prompt and returns the model's raw text reply. Parsing the
// reply is the caller's job; DecodeLLMJSON and ExtractJSONObject help with
// the usual formatting quirks (code fences, leading prose).
//
// # Backends
//
//   - OllamaClient: local inference over the Ollama HTTP API (/api/chat and
//     /api/tags). Supports forced JSON output and the temperature, top_p,
//     and num_predict knobs.
//   - OpenAIBackend: chat completions with an image_url data part
//     (go-openai). Works with any OpenAI-compatible base URL.
//   - ClaudeBackend: Anthropic messages with a base64 image block
//     (go-anthropic).
//   - GeminiBackend: Google Gemini generateContent with inline image data
//     (generative-ai-go).
//
// # Error Classification
//
// Backends tag failures with the services markers so the retry policy can
// tell them apart. Unreachable endpoints, rejected credentials, and missing
// models are configuration errors (fatal, with remediation). Rate limits,
// 5xx responses, and connection resets are transient. Deadline hits are
// timeouts. Backends never retry on their own; callers compose
// retry.Policy.
//
// An empty reply is returned as an empty string with a nil error so callers
// can route it to their fallback path.
package llm
