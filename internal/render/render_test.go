package render_test

import (
	"bytes"
	"image"
	"image/color"
	"testing"
	"time"

	"iconsort/internal/render"
	"iconsort/internal/testsupport"
)

func TestRasterizeIsSquareAndOpaque(t *testing.T) {
	// Wide view box: the glyph is letterboxed on a white square.
	content := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 48 24"><rect x="0" y="0" width="48" height="24" fill="#000"/></svg>`)
	img, err := render.NewSVGRenderer().Rasterize(content, 64)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Fatalf("expected 64x64, got %v", b)
	}
	if got := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Fatalf("expected white letterbox, got %v", got)
	}
	center := color.NRGBAModel.Convert(img.At(32, 32)).(color.NRGBA)
	if center.A != 255 || center.R > 10 {
		t.Fatalf("expected opaque black center, got %v", center)
	}
}

func TestPNGIsDeterministic(t *testing.T) {
	r := render.NewSVGRenderer()
	a, err := render.PNG(r, testsupport.DistinctIcon(3), 128)
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	b, err := render.PNG(r, testsupport.DistinctIcon(3), 128)
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("expected identical PNG bytes for identical input")
	}
	if !bytes.HasPrefix(a, []byte("\x89PNG")) {
		t.Fatal("expected PNG signature")
	}
}

func TestRasterizeRejectsGarbage(t *testing.T) {
	if _, err := render.NewSVGRenderer().Rasterize([]byte("not an svg"), 64); err == nil {
		t.Fatal("expected error for non-svg content")
	}
	if _, err := render.NewSVGRenderer().Rasterize(testsupport.DistinctIcon(0), 0); err == nil {
		t.Fatal("expected error for zero size")
	}
}

func signature(t *testing.T, content []byte) render.Signature {
	t.Helper()
	sig, err := render.SignatureOf(render.NewSVGRenderer(), content, 64)
	if err != nil {
		t.Fatalf("SignatureOf: %v", err)
	}
	return sig
}

func TestSignatureSeparatesLineIcons(t *testing.T) {
	sigs := make([]render.Signature, len(testsupport.LineIcons))
	for i := range testsupport.LineIcons {
		sigs[i] = signature(t, testsupport.DistinctIcon(i))
		if !sigs[i].Valid() {
			t.Fatalf("%s rendered blank", testsupport.LineIcons[i].Name)
		}
		if got := render.Similarity(sigs[i], sigs[i]); got != 1 {
			t.Fatalf("%s self similarity %v", testsupport.LineIcons[i].Name, got)
		}
	}
	for i := range sigs {
		for j := i + 1; j < len(sigs); j++ {
			if got := render.Similarity(sigs[i], sigs[j]); got >= 0.8 {
				t.Errorf("%s ~ %s = %.3f, want < 0.8",
					testsupport.LineIcons[i].Name, testsupport.LineIcons[j].Name, got)
			}
		}
	}
}

func TestSignatureMatchesCopies(t *testing.T) {
	for i, icon := range testsupport.LineIcons {
		base := signature(t, testsupport.DistinctIcon(i))
		if got := render.Similarity(base, signature(t, testsupport.NearCopy(i))); got != 1 {
			t.Errorf("%s: re-exported copy scored %.3f, want 1", icon.Name, got)
		}
		if got := render.Similarity(base, signature(t, testsupport.RecoloredCopy(i))); got < 0.9 {
			t.Errorf("%s: recolored copy scored %.3f, want >= 0.9", icon.Name, got)
		}
	}
}

func TestSignatureBlankRastersMatchNothing(t *testing.T) {
	a := signature(t, testsupport.BlankIcon("A"))
	b := signature(t, testsupport.BlankIcon("B"))
	if a.Valid() || b.Valid() {
		t.Fatal("text-only icons should not produce a signature")
	}
	if got := render.Similarity(a, b); got != 0 {
		t.Fatalf("blank icons scored %v against each other", got)
	}
	if got := render.Similarity(a, signature(t, testsupport.DistinctIcon(0))); got != 0 {
		t.Fatalf("blank icon scored %v against a glyph", got)
	}

	full := testsupport.SVG(`<rect x="0" y="0" width="24" height="24" fill="#000"/>`)
	if signature(t, full).Valid() {
		t.Fatal("a uniform raster should not produce a signature")
	}
}

type countingRenderer struct {
	calls int
	next  render.Renderer
}

func (c *countingRenderer) Rasterize(content []byte, size int) (*image.NRGBA, error) {
	c.calls++
	return c.next.Rasterize(content, size)
}

func TestCachingRendererMemoizes(t *testing.T) {
	inner := &countingRenderer{next: render.NewSVGRenderer()}
	cached := render.NewCachingRenderer(inner, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cached.Rasterize(testsupport.DistinctIcon(1), 64); err != nil {
			t.Fatalf("Rasterize: %v", err)
		}
	}
	if _, err := cached.Rasterize(testsupport.DistinctIcon(1), 128); err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 underlying renders (one per size), got %d", inner.calls)
	}
	if cached.Len() != 2 {
		t.Fatalf("expected 2 cache entries, got %d", cached.Len())
	}
}
