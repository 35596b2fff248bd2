package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"iconsort/internal/services/llm"
)

var (
	categoryPattern   = regexp.MustCompile(`(?i)["']?\bcategory["']?\s*[:=]\s*["']?([\p{L}\p{N}][\p{L}\p{N} _&/-]*)`)
	confidencePattern = regexp.MustCompile(`(?i)["']?\bconfidence["']?\s*[:=]\s*["']?(\d+(?:\.\d+)?|\.\d+)\s*(%?)`)
	tagsPattern       = regexp.MustCompile(`(?i)["']?\btags["']?\s*[:=]\s*\[?([^\n\]}]+)`)
	reasoningPattern  = regexp.MustCompile(`(?i)["']?\breason(?:ing)?["']?\s*[:=]\s*["']?([^\n"']+)`)
)

// Parser turns free-form model replies into records. It is safe for
// concurrent use.
type Parser struct {
	categories      map[string]struct{}
	keywords        []keywordMatcher
	defaultCategory string
}

type keywordMatcher struct {
	category string
	pattern  *regexp.Regexp
}

// NewParser builds a parser over a taxonomy. An empty taxonomy accepts any
// category the model names.
func NewParser(categories []string, defaultCategory string) *Parser {
	defaultCategory = strings.ToLower(strings.TrimSpace(defaultCategory))
	if defaultCategory == "" {
		defaultCategory = "general"
	}
	p := &Parser{
		categories:      make(map[string]struct{}, len(categories)),
		defaultCategory: defaultCategory,
	}
	for _, category := range categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if category == "" {
			continue
		}
		if _, seen := p.categories[category]; seen {
			continue
		}
		p.categories[category] = struct{}{}
		if category == defaultCategory {
			continue
		}
		p.keywords = append(p.keywords, keywordMatcher{
			category: category,
			pattern:  regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(category) + `\b`),
		})
	}
	return p
}

// DefaultCategory returns the category used for unknown or missing values.
func (p *Parser) DefaultCategory() string { return p.defaultCategory }

// TaxonomyFingerprint identifies the category set and default category that
// records are produced under. Order, case, and repeats do not change it.
func TaxonomyFingerprint(categories []string, defaultCategory string) string {
	p := NewParser(categories, defaultCategory)
	names := make([]string, 0, len(p.categories))
	for category := range p.categories {
		names = append(names, category)
	}
	slices.Sort(names)
	sum := sha256.Sum256([]byte(p.defaultCategory + "\n" + strings.Join(names, "\n")))
	return hex.EncodeToString(sum[:8])
}

// reply is the permissive view of a model's JSON answer.
type reply struct {
	Category   string
	Tags       []string
	Confidence *float64
	Reasoning  string
}

// Parse never fails. Structured JSON is tried first, then regex extraction
// over the raw text, then a generic fallback.
func (p *Parser) Parse(raw string) Record {
	parsed, ok := parseStructured(raw)
	if ok && parsed.Category != "" && len(cleanTags(parsed.Tags)) > 0 {
		return p.finish(parsed, SourceStructured)
	}

	p.extractKeywords(raw, &parsed)
	if len(cleanTags(parsed.Tags)) == 0 {
		parsed.Tags = GenericTags
		confidence := FallbackConfidence
		if parsed.Confidence != nil {
			confidence = math.Min(*parsed.Confidence, FallbackConfidence)
		}
		parsed.Confidence = &confidence
		return p.finish(parsed, SourceFallback)
	}
	return p.finish(parsed, SourceKeyword)
}

func parseStructured(raw string) (reply, bool) {
	var out reply
	candidate := llm.ExtractJSONObject(raw)
	if !strings.HasPrefix(candidate, "{") {
		return out, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return out, false
	}
	for key, value := range fields {
		switch strings.ToLower(key) {
		case "category":
			out.Category = decodeString(value)
		case "tags", "tag", "keywords":
			out.Tags = decodeTags(value)
		case "confidence":
			out.Confidence = decodeConfidence(value)
		case "reason", "reasoning":
			if out.Reasoning == "" {
				out.Reasoning = decodeString(value)
			}
		}
	}
	return out, true
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

func decodeTags(raw json.RawMessage) []string {
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s := decodeString(raw); s != "" {
		return strings.Split(s, ",")
	}
	return nil
}

func decodeConfidence(raw json.RawMessage) *float64 {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	s := decodeString(raw)
	if s == "" {
		return nil
	}
	percent := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
	if err != nil {
		return nil
	}
	if percent {
		v /= 100
	}
	return &v
}

// extractKeywords fills fields missing from r using line patterns and
// taxonomy words found in raw.
func (p *Parser) extractKeywords(raw string, r *reply) {
	if r.Category == "" {
		if m := categoryPattern.FindStringSubmatch(raw); m != nil {
			r.Category = strings.TrimSpace(m[1])
		}
	}
	if r.Category == "" || !p.known(strings.ToLower(r.Category)) {
		if category := p.scanTaxonomy(raw); category != "" {
			r.Category = category
		}
	}
	if r.Confidence == nil {
		if m := confidencePattern.FindStringSubmatch(raw); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				if m[2] == "%" {
					v /= 100
				}
				r.Confidence = &v
			}
		}
	}
	if len(cleanTags(r.Tags)) == 0 {
		if m := tagsPattern.FindStringSubmatch(raw); m != nil {
			r.Tags = strings.Split(m[1], ",")
		}
	}
	if r.Reasoning == "" {
		if m := reasoningPattern.FindStringSubmatch(raw); m != nil {
			r.Reasoning = strings.TrimSpace(m[1])
		}
	}
}

// scanTaxonomy returns the taxonomy category mentioned earliest in raw.
func (p *Parser) scanTaxonomy(raw string) string {
	best, bestAt := "", -1
	for _, k := range p.keywords {
		loc := k.pattern.FindStringIndex(raw)
		if loc == nil {
			continue
		}
		if bestAt < 0 || loc[0] < bestAt {
			best, bestAt = k.category, loc[0]
		}
	}
	return best
}

func (p *Parser) known(category string) bool {
	if len(p.categories) == 0 {
		return category != ""
	}
	_, ok := p.categories[category]
	return ok
}

func (p *Parser) finish(r reply, source Source) Record {
	category := strings.ToLower(strings.TrimSpace(r.Category))
	if !p.known(category) {
		category = p.defaultCategory
	}
	confidence := DefaultConfidence
	if r.Confidence != nil {
		confidence = *r.Confidence
	}
	if confidence > 1 && confidence <= 100 {
		confidence /= 100
	}
	return Record{
		Category:   category,
		Tags:       cleanTags(r.Tags),
		Confidence: clamp(confidence),
		Reasoning:  strings.Join(strings.Fields(r.Reasoning), " "),
		Source:     source,
	}
}

// cleanTags lowercases, strips quotes and separators, de-duplicates, and
// truncates to MaxTags.
func cleanTags(tags []string) []string {
	out := make([]string, 0, min(len(tags), MaxTags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(tag)
		tag = strings.Map(func(r rune) rune {
			switch r {
			case '"', '\'', '`', '[', ']', '{', '}':
				return -1
			case ',', ';', '\n', '\r', '\t':
				return ' '
			}
			return r
		}, tag)
		tag = strings.Join(strings.Fields(tag), " ")
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
