package metadata_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"iconsort/internal/metadata"
	"iconsort/internal/testsupport"
)

var processed = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestEmbedExtractRoundTrip(t *testing.T) {
	tests := []metadata.Fields{
		{Category: "navigation", Tags: []string{"back", "arrow"}, Confidence: 0.9, Reasoning: "points left", Processed: processed},
		{Category: "general", Tags: []string{"icon", "symbol", "graphic"}, Confidence: 0.2, Processed: processed},
		{Category: "media", Tags: []string{"play button", "video-player"}, Confidence: 1, Processed: processed},
		{Category: "error", Tags: []string{}, Confidence: 0, Reasoning: "timeout: no response within 60s", Processed: processed},
		{Category: "user", Tags: []string{"person"}, Confidence: 0.37, DuplicateOf: "people/user.svg", Processed: processed},
		{Category: "commas", Tags: []string{"arrow, left", "back"}, Confidence: 0.5, Processed: processed},
		{Category: "dashes", Tags: []string{"drag--handle", "a---b", "trailing-", "-->"}, Confidence: 0.5, Processed: processed},
		{Category: "spacing", Tags: []string{" padded ", "two  spaces", "50% \"off\"", "tab\there", "   "}, Confidence: 0.5, Processed: processed},
		{Category: "escapes", Tags: []string{"%2C", "line\nbreak", "100%"}, Confidence: 0.5, Processed: processed},
	}
	for _, want := range tests {
		t.Run(want.Category, func(t *testing.T) {
			out := metadata.Embed(testsupport.DistinctIcon(0), want)
			got := metadata.Extract(out)
			if got.Category == nil || *got.Category != want.Category {
				t.Fatalf("category = %v, want %q", got.Category, want.Category)
			}
			if strings.Join(got.Tags, "|") != strings.Join(want.Tags, "|") || got.Tags == nil {
				t.Fatalf("tags = %#v, want %#v", got.Tags, want.Tags)
			}
			if got.Confidence == nil || *got.Confidence != want.Confidence {
				t.Fatalf("confidence = %v, want %v", got.Confidence, want.Confidence)
			}
			if want.Reasoning == "" {
				if got.Reasoning != nil {
					t.Fatalf("unexpected reasoning %q", *got.Reasoning)
				}
			} else if got.Reasoning == nil || *got.Reasoning != want.Reasoning {
				t.Fatalf("reasoning = %v, want %q", got.Reasoning, want.Reasoning)
			}
			if want.DuplicateOf == "" {
				if got.DuplicateOf != nil {
					t.Fatalf("unexpected duplicate-of %q", *got.DuplicateOf)
				}
			} else if got.DuplicateOf == nil || *got.DuplicateOf != want.DuplicateOf {
				t.Fatalf("duplicate-of = %v, want %q", got.DuplicateOf, want.DuplicateOf)
			}
			if got.Processed == nil || !got.Processed.Equal(processed) {
				t.Fatalf("processed = %v", got.Processed)
			}
			if got.Version == nil || *got.Version != metadata.Version {
				t.Fatalf("version = %v", got.Version)
			}
		})
	}
}

func TestEmbedPlacesBlockAfterRootTag(t *testing.T) {
	content := []byte("<?xml version=\"1.0\"?>\n<svg viewBox=\"0 0 24 24\">\n<path d=\"M0 0h24v24H0z\"/>\n</svg>\n")
	out := metadata.Embed(content, metadata.Fields{Category: "action", Tags: []string{"save", "disk"}, Confidence: 0.5, Processed: processed})
	lines := strings.Split(string(out), "\n")
	if lines[1] != `<svg viewBox="0 0 24 24">` {
		t.Fatalf("root tag moved: %q", lines[1])
	}
	want := []string{
		"<!-- iconsort:category: action -->",
		"<!-- iconsort:tags: save, disk -->",
		"<!-- iconsort:confidence: 0.50 -->",
		"<!-- iconsort:processed: 2026-01-02T03:04:05Z -->",
		"<!-- iconsort:version: 1 -->",
		`<path d="M0 0h24v24H0z"/>`,
	}
	for i, w := range want {
		if lines[2+i] != w {
			t.Fatalf("line %d = %q, want %q", 2+i, lines[2+i], w)
		}
	}
	if !bytes.Equal(metadata.Strip(out), content) {
		t.Fatalf("strip did not restore the original:\n%s", metadata.Strip(out))
	}
}

func TestEmbedWithoutRootTagPrepends(t *testing.T) {
	content := []byte("<g><path/></g>")
	out := metadata.Embed(content, metadata.Fields{Category: "general", Confidence: 0.2, Processed: processed})
	if !strings.HasPrefix(string(out), "<!-- iconsort:category: general -->\n") {
		t.Fatalf("block not prepended:\n%s", out)
	}
	if !strings.HasSuffix(string(out), "\n<g><path/></g>") {
		t.Fatalf("body not preserved:\n%s", out)
	}
}

func TestEmbedIsIdempotent(t *testing.T) {
	fields := metadata.Fields{Category: "navigation", Tags: []string{"home"}, Confidence: 0.8, Processed: processed}
	for _, content := range [][]byte{testsupport.DistinctIcon(1), []byte("<svg>\n<path/>\n</svg>"), []byte("plain")} {
		once := metadata.Embed(content, fields)
		twice := metadata.Embed(once, fields)
		if !bytes.Equal(once, twice) {
			t.Fatalf("re-embedding changed content:\n%s\n---\n%s", once, twice)
		}
	}

	updated := metadata.Embed(metadata.Embed(testsupport.DistinctIcon(1), fields), metadata.Fields{Category: "action", Confidence: 0.1, Processed: processed})
	if strings.Count(string(updated), "iconsort:category") != 1 {
		t.Fatalf("expected a single block after re-embedding:\n%s", updated)
	}
	if got := metadata.Extract(updated); *got.Category != "action" {
		t.Fatalf("expected the new category, got %q", *got.Category)
	}
}

func TestEmbedSanitizesCommentBreakers(t *testing.T) {
	out := metadata.Embed(testsupport.SVG(`<path d="M4 4h16"/>`), metadata.Fields{
		Category:   "general",
		Tags:       []string{"x-->y", "a--b"},
		Confidence: 0.5,
		Reasoning:  "line one\nline two --> sneaky",
		Processed:  processed,
	})
	got := metadata.Extract(out)
	if got.Reasoning == nil || *got.Reasoning != "line one line two -> sneaky" {
		t.Fatalf("reasoning = %v", got.Reasoning)
	}
	if strings.Join(got.Tags, "|") != "x-->y|a--b" {
		t.Fatalf("tags = %#v", got.Tags)
	}
	if strings.Count(string(out), "-->") != 6 {
		t.Fatalf("comment structure broken:\n%s", out)
	}
}

func TestExtractWithoutBlock(t *testing.T) {
	got := metadata.Extract(testsupport.DistinctIcon(3))
	if !got.Empty() {
		t.Fatalf("expected empty partial, got %+v", got)
	}
}

func TestExtractIgnoresUnparsableValues(t *testing.T) {
	content := []byte("<svg>\n<!-- iconsort:category: media -->\n<!-- iconsort:confidence: high -->\n<!-- iconsort:version: x -->\n</svg>")
	got := metadata.Extract(content)
	if got.Category == nil || *got.Category != "media" {
		t.Fatalf("category = %v", got.Category)
	}
	if got.Confidence != nil || got.Version != nil || got.Tags != nil {
		t.Fatalf("expected unparsable fields to be omitted, got %+v", got)
	}
}

func TestEmbedEscapesTagSeparators(t *testing.T) {
	out := metadata.Embed(testsupport.SVG(`<path d="M4 4h16"/>`), metadata.Fields{
		Category:   "general",
		Tags:       []string{"arrow, left", "drag--handle", " edge"},
		Confidence: 0.5,
		Processed:  processed,
	})
	want := "<!-- iconsort:tags: arrow%2C left, drag-%2Dhandle, %20edge -->"
	if !strings.Contains(string(out), want) {
		t.Fatalf("expected %q in:\n%s", want, out)
	}
}

func TestExtractReadsHandWrittenTags(t *testing.T) {
	content := []byte("<svg>\n<!-- iconsort:tags: back, arrow , ,50%, 100%zz -->\n</svg>")
	got := metadata.Extract(content)
	if strings.Join(got.Tags, "|") != "back|arrow|50%|100%zz" {
		t.Fatalf("tags = %#v", got.Tags)
	}
}
