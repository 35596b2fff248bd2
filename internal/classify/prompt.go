package classify

import (
	"fmt"
	"strings"

	"iconsort/internal/inventory"
	"iconsort/internal/textutil"
)

const systemPrompt = `You are an icon librarian. You look at a single icon image and classify it.
Respond with one JSON object and nothing else. Use this shape:
{"category": "<one allowed category>", "tags": ["<tag>", ...], "confidence": <0.0-1.0>, "reasoning": "<one short sentence>"}
Tags are lowercase single words or short phrases, at most 5.`

// PromptBuilder renders the per-item classification prompt.
type PromptBuilder struct {
	categories      []string
	defaultCategory string
}

func NewPromptBuilder(categories []string, defaultCategory string) PromptBuilder {
	return PromptBuilder{
		categories:      append([]string(nil), categories...),
		defaultCategory: defaultCategory,
	}
}

// System returns the constraint message sent as the system role.
func (b PromptBuilder) System() string { return systemPrompt }

// Build embeds the taxonomy and filename keyword hints for item.
func (b PromptBuilder) Build(item inventory.Item) string {
	var sb strings.Builder
	sb.WriteString("Classify the icon in the attached image.\n")
	if len(b.categories) > 0 {
		fmt.Fprintf(&sb, "Allowed categories: %s.\n", strings.Join(b.categories, ", "))
		if b.defaultCategory != "" {
			fmt.Fprintf(&sb, "Use %q when nothing else fits.\n", b.defaultCategory)
		}
	}
	if name := strings.TrimSpace(item.DisplayName); name != "" {
		fmt.Fprintf(&sb, "File name: %s\n", name)
	}
	if hints := textutil.Keywords(item.DisplayName); len(hints) > 0 {
		fmt.Fprintf(&sb, "Keyword hints from the file name: %s\n", strings.Join(hints, ", "))
	}
	sb.WriteString("Reply with the JSON object only.")
	return sb.String()
}
