package render

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// SignatureGrid is the edge of the coverage lattice a signature samples.
const SignatureGrid = 16

const (
	// minContrast is the least ink range (0-255) a raster needs to be compared.
	minContrast = 24
	// frameSpread is the half-width of the sampled frame in standard
	// deviations of the ink distribution.
	frameSpread = 2.5
)

// Signature is the ink coverage of an icon centered on its ink centroid,
// scaled by the spread of its ink and resampled onto a SignatureGrid lattice.
// Cells are scaled so the densest one is 1, which lets recolored copies match.
type Signature struct {
	cells [SignatureGrid * SignatureGrid]float64
	valid bool
}

// Valid reports whether the raster had any marks. Blank and uniform rasters
// produce invalid signatures that match nothing.
func (s Signature) Valid() bool { return s.valid }

// InkSignature computes the signature of img.
func InkSignature(img image.Image) Signature {
	gray := imaging.Grayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()

	lo, hi := 255, 0
	for y := range h {
		row := gray.Pix[y*gray.Stride:]
		for x := range w {
			v := 255 - int(row[x*4])
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	if hi-lo < minContrast {
		return Signature{}
	}

	ink := make([]float64, w*h)
	var total, sx, sy float64
	for y := range h {
		row := gray.Pix[y*gray.Stride:]
		for x := range w {
			v := float64(255 - int(row[x*4]) - lo)
			ink[y*w+x] = v
			total += v
			sx += v * (float64(x) + 0.5)
			sy += v * (float64(y) + 0.5)
		}
	}
	cx, cy := sx/total, sy/total
	var vx, vy float64
	for y := range h {
		for x := range w {
			v := ink[y*w+x]
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			vx += v * dx * dx
			vy += v * dy * dy
		}
	}
	half := max(frameSpread*math.Sqrt(max(vx, vy)/total), 1)

	plane := inkPlane{w: w, h: h, ink: ink}
	cell := 2 * half / SignatureGrid
	samples := min(max(2, int(math.Ceil(cell))), 8)
	step := cell / float64(samples)

	var sig Signature
	peak := 0.0
	for gy := range SignatureGrid {
		for gx := range SignatureGrid {
			x0 := cx - half + float64(gx)*cell
			y0 := cy - half + float64(gy)*cell
			sum := 0.0
			for j := range samples {
				for i := range samples {
					sum += plane.at(x0+(float64(i)+0.5)*step, y0+(float64(j)+0.5)*step)
				}
			}
			v := sum / float64(samples*samples)
			sig.cells[gy*SignatureGrid+gx] = v
			peak = max(peak, v)
		}
	}
	if peak == 0 {
		return Signature{}
	}
	for i := range sig.cells {
		sig.cells[i] /= peak
	}
	sig.valid = true
	return sig
}

// inkPlane samples ink bilinearly between pixel centers; outside is empty.
type inkPlane struct {
	w, h int
	ink  []float64
}

func (p inkPlane) at(x, y float64) float64 {
	x, y = x-0.5, y-0.5
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)
	return p.pixel(ix, iy)*(1-fx)*(1-fy) +
		p.pixel(ix+1, iy)*fx*(1-fy) +
		p.pixel(ix, iy+1)*(1-fx)*fy +
		p.pixel(ix+1, iy+1)*fx*fy
}

func (p inkPlane) pixel(x, y int) float64 {
	if x < 0 || y < 0 || x >= p.w || y >= p.h {
		return 0
	}
	return p.ink[y*p.w+x]
}

// Similarity is the weighted Jaccard index of two signatures, in [0,1].
// Invalid signatures score 0 against everything, themselves included.
func Similarity(a, b Signature) float64 {
	if !a.valid || !b.valid {
		return 0
	}
	var shared, union float64
	for i := range a.cells {
		shared += min(a.cells[i], b.cells[i])
		union += max(a.cells[i], b.cells[i])
	}
	if union == 0 {
		return 0
	}
	return shared / union
}

// SignatureOf rasterizes content at size and computes its signature.
func SignatureOf(r Renderer, content []byte, size int) (Signature, error) {
	img, err := r.Rasterize(content, size)
	if err != nil {
		return Signature{}, err
	}
	return InkSignature(img), nil
}
