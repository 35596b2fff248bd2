package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes content under root at the slash-separated rel path and
// returns the absolute path.
func WriteFile(t testing.TB, root, rel string, content []byte) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// SVG wraps body in a 24x24 svg root element.
func SVG(body string) []byte {
	return []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" width="24" height="24">` + body + `</svg>`)
}

// StrokedSVG wraps body in a 24x24 root styled like common line-icon sets:
// no fill, round two-unit strokes in the given color.
func StrokedSVG(stroke, body string) []byte {
	return []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="24" height="24" viewBox="0 0 24 24" fill="none" stroke="` +
		stroke + `" stroke-width="2" stroke-linecap="round" stroke-linejoin="round">` + body + `</svg>`)
}

// LineIcons are thin-stroke glyphs in the style of Feather and Lucide.
var LineIcons = []struct {
	Name string
	Body string
}{
	{"plus", `<line x1="12" y1="5" x2="12" y2="19"/><line x1="5" y1="12" x2="19" y2="12"/>`},
	{"x", `<line x1="18" y1="6" x2="6" y2="18"/><line x1="6" y1="6" x2="18" y2="18"/>`},
	{"chevron-left", `<polyline points="15 18 9 12 15 6"/>`},
	{"chevron-right", `<polyline points="9 18 15 12 9 6"/>`},
	{"minus", `<line x1="5" y1="12" x2="19" y2="12"/>`},
	{"circle", `<circle cx="12" cy="12" r="10"/>`},
	{"square", `<rect x="3" y="3" width="18" height="18" rx="2" ry="2"/>`},
	{"check", `<polyline points="20 6 9 17 4 12"/>`},
	{"arrow-up", `<line x1="12" y1="19" x2="12" y2="5"/><polyline points="5 12 12 5 19 12"/>`},
	{"play", `<polygon points="5 3 19 12 5 21 5 3"/>`},
	{"menu", `<line x1="3" y1="12" x2="21" y2="12"/><line x1="3" y1="6" x2="21" y2="6"/><line x1="3" y1="18" x2="21" y2="18"/>`},
	{"chevron-up", `<polyline points="18 15 12 9 6 15"/>`},
}

// DistinctIcon returns the n-th line icon. Wrapped variants
// (n >= len(LineIcons)) reuse a glyph with different bytes.
func DistinctIcon(n int) []byte {
	icon := LineIcons[n%len(LineIcons)]
	return StrokedSVG("currentColor", fmt.Sprintf("<!-- %s %d -->", icon.Name, n)+icon.Body)
}

// NearCopy returns DistinctIcon(n) re-exported with an explicit stroke
// color, so it renders the same but differs in bytes.
func NearCopy(n int) []byte {
	return []byte(strings.Replace(string(DistinctIcon(n)), `stroke="currentColor"`, `stroke="#000000"`, 1))
}

// RecoloredCopy returns DistinctIcon(n) stroked in a mid-tone blue.
func RecoloredCopy(n int) []byte {
	return []byte(strings.Replace(string(DistinctIcon(n)), `stroke="currentColor"`, `stroke="#336699"`, 1))
}

// BlankIcon returns an svg that parses but draws nothing the rasterizer
// understands, as text-only glyphs do.
func BlankIcon(label string) []byte {
	return SVG(`<text x="4" y="16" font-size="12">` + label + `</text>`)
}

// WriteIcons writes count distinct icons named icon-<n>.svg under root.
func WriteIcons(t testing.TB, root string, count int) []string {
	t.Helper()
	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		paths = append(paths, WriteFile(t, root, fmt.Sprintf("icon-%02d.svg", i), DistinctIcon(i)))
	}
	return paths
}
