// Package metadata embeds classification results into SVG files as comment
// lines and reads them back.
//
// The block sits right after the root <svg ...> tag, or at the top of the
// file when no root tag is found:
//
//	<!-- iconsort:category: navigation -->
//	<!-- iconsort:tags: back, arrow -->
//	<!-- iconsort:confidence: 0.90 -->
//	<!-- iconsort:reasoning: ... -->
//	<!-- iconsort:duplicate-of: name.svg -->
//	<!-- iconsort:processed: 2026-01-02T03:04:05Z -->
//	<!-- iconsort:version: 1 -->
//
// Reasoning and duplicate-of appear only when set. Tags are joined by ", "
// with commas, line breaks, edge spaces and the second dash of any "--"
// percent-escaped, so any tag survives a round trip unchanged. Embedding
// replaces any existing block, so embedding twice with the same fields is a
// no-op.
package metadata

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Version is written into every block.
const Version = 1

const (
	keyCategory    = "category"
	keyTags        = "tags"
	keyConfidence  = "confidence"
	keyReasoning   = "reasoning"
	keyDuplicateOf = "duplicate-of"
	keyProcessed   = "processed"
	keyVersion     = "version"
)

var (
	rootTagPattern = regexp.MustCompile(`(?is)<svg\b[^>]*>`)
	blockLine      = regexp.MustCompile(`(?m)^[ \t]*<!-- iconsort:[a-z-]+: .*? -->[ \t]*(?:\r?\n)?`)
	fieldPattern   = regexp.MustCompile(`(?m)<!-- iconsort:([a-z-]+): (.*?) -->`)
)

// Fields is what gets embedded.
type Fields struct {
	Category    string
	Tags        []string
	Confidence  float64
	Reasoning   string
	DuplicateOf string
	Processed   time.Time
}

// Partial is what Extract recovers. Nil pointers and a nil Tags slice mean
// the line was absent.
type Partial struct {
	Category    *string
	Tags        []string
	Confidence  *float64
	Reasoning   *string
	DuplicateOf *string
	Processed   *time.Time
	Version     *int
}

// Empty reports whether no field was found.
func (p Partial) Empty() bool {
	return p.Category == nil && p.Tags == nil && p.Confidence == nil && p.Reasoning == nil &&
		p.DuplicateOf == nil && p.Processed == nil && p.Version == nil
}

// Embed returns content with f written as a metadata block. content is not
// modified.
func Embed(content []byte, f Fields) []byte {
	body := Strip(content)
	block := renderBlock(f)

	loc := rootTagPattern.FindIndex(body)
	if loc == nil {
		out := make([]byte, 0, len(block)+len(body)+1)
		out = append(out, block...)
		out = append(out, '\n')
		return append(out, body...)
	}
	rest := body[loc[1]:]
	out := make([]byte, 0, len(body)+len(block)+2)
	out = append(out, body[:loc[1]]...)
	out = append(out, '\n')
	out = append(out, block...)
	if !bytes.HasPrefix(rest, []byte("\n")) && !bytes.HasPrefix(rest, []byte("\r\n")) {
		out = append(out, '\n')
	}
	return append(out, rest...)
}

// Strip removes every metadata line from content.
func Strip(content []byte) []byte {
	return blockLine.ReplaceAll(content, nil)
}

// Extract reads the metadata block back. Unknown keys and unparsable values
// are ignored.
func Extract(content []byte) Partial {
	var p Partial
	for _, m := range fieldPattern.FindAllSubmatch(content, -1) {
		key, value := string(m[1]), string(m[2])
		switch key {
		case keyCategory:
			p.Category = &value
		case keyTags:
			p.Tags = decodeTags(value)
		case keyConfidence:
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				p.Confidence = &v
			}
		case keyReasoning:
			p.Reasoning = &value
		case keyDuplicateOf:
			p.DuplicateOf = &value
		case keyProcessed:
			if ts, err := time.Parse(time.RFC3339, value); err == nil {
				p.Processed = &ts
			}
		case keyVersion:
			if v, err := strconv.Atoi(value); err == nil {
				p.Version = &v
			}
		}
	}
	return p
}

func renderBlock(f Fields) []byte {
	var lines []string
	add := func(key, value string) {
		lines = append(lines, fmt.Sprintf("<!-- iconsort:%s: %s -->", key, value))
	}
	add(keyCategory, sanitize(f.Category))
	add(keyTags, encodeTags(f.Tags))
	add(keyConfidence, strconv.FormatFloat(f.Confidence, 'f', 2, 64))
	if reasoning := sanitize(f.Reasoning); reasoning != "" {
		add(keyReasoning, reasoning)
	}
	if dup := sanitize(f.DuplicateOf); dup != "" {
		add(keyDuplicateOf, dup)
	}
	processed := f.Processed
	if processed.IsZero() {
		processed = time.Now()
	}
	add(keyProcessed, processed.UTC().Format(time.RFC3339))
	add(keyVersion, strconv.Itoa(Version))
	return []byte(strings.Join(lines, "\n"))
}

// encodeTags joins tags with ", ". Bytes that would split a tag, break the
// line or close the comment are written as %XX.
func encodeTags(tags []string) string {
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = escapeTag(tag)
	}
	return strings.Join(parts, ", ")
}

func escapeTag(tag string) string {
	lead := len(tag) - len(strings.TrimLeft(tag, " "))
	trail := len(strings.TrimRight(tag, " "))
	var b strings.Builder
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		switch {
		case c == '%', c == ',', c == '\n', c == '\r',
			c == ' ' && (i < lead || i >= trail),
			c == '-' && i > 0 && tag[i-1] == '-':
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// decodeTags splits on commas and undoes escapeTag. Blocks written before
// escaping existed decode the same way.
func decodeTags(value string) []string {
	out := []string{}
	for _, tag := range strings.Split(value, ",") {
		if tag = strings.Trim(tag, " "); tag != "" {
			out = append(out, unescapeTag(tag))
		}
	}
	return out
}

func unescapeTag(tag string) string {
	if !strings.Contains(tag, "%") {
		return tag
	}
	var b strings.Builder
	for i := 0; i < len(tag); i++ {
		if tag[i] == '%' && i+2 < len(tag) {
			if v, err := strconv.ParseUint(tag[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(tag[i])
	}
	return b.String()
}

// sanitize keeps a value on one line and out of comment syntax.
func sanitize(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	for strings.Contains(value, "--") {
		value = strings.ReplaceAll(value, "--", "-")
	}
	return value
}
