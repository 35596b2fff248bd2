package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Slug turns a provider id such as "local/llava:13b" into a lowercase
// directory name ("local-llava-13b"). Accents are folded; any run of other
// characters collapses to a single dash. Empty results become "unknown".
func Slug(value string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range FoldAccents(strings.TrimSpace(value)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(unicode.ToLower(r))
		case r == '_' || r == '.':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	out := strings.Trim(b.String(), "-._")
	if out == "" {
		return "unknown"
	}
	return out
}

// UniqueSlug is Slug with a short digest of the raw value appended whenever
// the slug is not the value itself, so ids that fold to the same slug (such
// as "local/llava:13b" and "local/llava-13b") stay apart.
func UniqueSlug(value string) string {
	slug := Slug(value)
	if slug == value {
		return slug
	}
	sum := sha256.Sum256([]byte(value))
	return slug + "-" + hex.EncodeToString(sum[:4])
}
