// Package classify assigns categories and tags to icons.
//
// A Provider renders each icon to a PNG on a white square, builds a prompt
// from the category taxonomy and file name hints, sends both to an
// llm.VisionBackend under a retry.Policy, and parses the reply. Two
// variants exist: CloudProvider for hosted APIs and LocalProvider for an
// Ollama server, which is health-checked before a batch is dispatched.
// NewProvider picks one from classify.provider.
//
// Parser.Parse never fails. It tries the JSON object in the reply, then
// regex extraction over the text, then a generic fallback record with low
// confidence. Every record has a non-empty category, at most five tags, and
// a confidence in [0, 1].
package classify
