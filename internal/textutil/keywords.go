package textutil

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separatorPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	sizeTokenPattern = regexp.MustCompile(`^\d+(px|x\d+)?$|^x\d+$|^\d+x\d+$`)
)

// noiseTokens carry styling or size information rather than meaning.
var noiseTokens = map[string]struct{}{
	"icon": {}, "icons": {}, "ic": {}, "svg": {}, "px": {},
	"outline": {}, "outlined": {}, "filled": {}, "fill": {}, "solid": {},
	"regular": {}, "light": {}, "thin": {}, "bold": {}, "duotone": {},
	"round": {}, "rounded": {}, "sharp": {}, "line": {}, "alt": {},
	"small": {}, "large": {}, "sm": {}, "lg": {}, "md": {}, "xl": {},
}

// FoldAccents strips combining marks so "café" becomes "cafe".
func FoldAccents(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

// Keywords derives lowercase hint words from a file name. The extension is
// removed, camelCase humps are split, and size or style noise is dropped.
// Order follows first appearance; duplicates are removed.
func Keywords(fileName string) []string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = FoldAccents(base)

	var out []string
	seen := make(map[string]struct{})
	for _, chunk := range separatorPattern.Split(base, -1) {
		if sizeTokenPattern.MatchString(strings.ToLower(chunk)) {
			continue
		}
		for _, word := range splitCamel(chunk) {
			word = strings.ToLower(word)
			if len(word) < 2 || sizeTokenPattern.MatchString(word) {
				continue
			}
			if _, noisy := noiseTokens[word]; noisy {
				continue
			}
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			out = append(out, word)
		}
	}
	return out
}

// splitCamel breaks "arrowLeftHTTPIcon" into ["arrow", "Left", "HTTP", "Icon"].
func splitCamel(value string) []string {
	if value == "" {
		return nil
	}
	rs := []rune(value)
	var parts []string
	start := 0
	for i := 1; i < len(rs); i++ {
		prev, cur := rs[i-1], rs[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsLetter(prev) && unicode.IsDigit(cur):
			boundary = true
		case unicode.IsDigit(prev) && unicode.IsLetter(cur):
			// keep "24px" together so it can be recognised as a size
			boundary = !(cur == 'p' || cur == 'x')
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(rs) && unicode.IsLower(rs[i+1]):
			boundary = true
		}
		if boundary {
			parts = append(parts, string(rs[start:i]))
			start = i
		}
	}
	parts = append(parts, string(rs[start:]))
	return parts
}
