package sot

import (
	"image"
	"math"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Windows whose summed per-channel variance is below this are treated as flat and score 0.
const flatVarianceEps = 1e-6

// Match is the best window found by a correlation search
type Match struct {
	// Top-left pixel of the best matching window
	Location image.Point
	// Normalized correlation coefficient in [-1, 1]
	Score float64
}

// patch is a zero-mean copy of an image region prepared for normalized cross-correlation.
// Score definition follows TM_CCOEFF_NORMED: channel means are removed per channel,
// products and energies are summed over all channels.
type patch struct {
	width    int
	height   int
	raw      []float64
	centered []float64
	mean     [channels]float64
	energy   float64
}

// newPatch copies region r of frame. Caller guarantees r lies inside the frame.
func newPatch(frame *Frame, r image.Rectangle) *patch {
	w, h := r.Dx(), r.Dy()
	p := &patch{
		width:    w,
		height:   h,
		raw:      make([]float64, 0, w*h*channels),
		centered: make([]float64, w*h*channels),
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		p.raw = append(p.raw, frame.row(y, r.Min.X, r.Max.X)...)
	}
	planes := [channels][]float64{}
	for c := 0; c < channels; c++ {
		planes[c] = make([]float64, w*h)
		for i := 0; i < w*h; i++ {
			planes[c][i] = p.raw[i*channels+c]
		}
		p.mean[c] = stat.Mean(planes[c], nil)
	}
	for i, v := range p.raw {
		p.centered[i] = v - p.mean[i%channels]
	}
	p.energy = floats.Dot(p.centered, p.centered)
	return p
}

// size returns patch extent as image.Point
func (p *patch) size() image.Point {
	return image.Pt(p.width, p.height)
}

// flat reports whether patch has no texture to correlate against
func (p *patch) flat() bool {
	return p.energy <= flatVarianceEps*float64(p.width*p.height)
}

// integral holds per-channel summed-area tables of samples and squared samples over an area of frame.
type integral struct {
	origin image.Point
	stride int
	sum    [channels][]float64
	sq     [channels][]float64
}

func newIntegral(frame *Frame, area image.Rectangle) *integral {
	w, h := area.Dx(), area.Dy()
	ii := &integral{
		origin: area.Min,
		stride: w + 1,
	}
	for c := 0; c < channels; c++ {
		ii.sum[c] = make([]float64, (w+1)*(h+1))
		ii.sq[c] = make([]float64, (w+1)*(h+1))
	}
	for y := 0; y < h; y++ {
		row := frame.row(area.Min.Y+y, area.Min.X, area.Max.X)
		var rowSum, rowSq [channels]float64
		for x := 0; x < w; x++ {
			idx := (y+1)*ii.stride + x + 1
			up := y*ii.stride + x + 1
			for c := 0; c < channels; c++ {
				v := row[x*channels+c]
				rowSum[c] += v
				rowSq[c] += v * v
				ii.sum[c][idx] = ii.sum[c][up] + rowSum[c]
				ii.sq[c][idx] = ii.sq[c][up] + rowSq[c]
			}
		}
	}
	return ii
}

// window returns per-channel sums of samples and squared samples of the w*h window at frame position (x, y).
func (ii *integral) window(x, y, w, h int) (sum, sq [channels]float64) {
	x0, y0 := x-ii.origin.X, y-ii.origin.Y
	a := y0*ii.stride + x0
	b := y0*ii.stride + x0 + w
	c := (y0+h)*ii.stride + x0
	d := (y0+h)*ii.stride + x0 + w
	for ch := 0; ch < channels; ch++ {
		sum[ch] = ii.sum[ch][d] - ii.sum[ch][b] - ii.sum[ch][c] + ii.sum[ch][a]
		sq[ch] = ii.sq[ch][d] - ii.sq[ch][b] - ii.sq[ch][c] + ii.sq[ch][a]
	}
	return sum, sq
}

// scoreAt evaluates normalized correlation of patch against the frame window with top-left at (x, y).
func (p *patch) scoreAt(frame *Frame, ii *integral, x, y int) float64 {
	if p.flat() {
		return 0
	}
	rowLen := p.width * channels
	// Centered template sums to zero per channel, so raw frame samples give the same numerator
	num := 0.0
	for ty := 0; ty < p.height; ty++ {
		num += floats.Dot(p.centered[ty*rowLen:(ty+1)*rowLen], frame.row(y+ty, x, x+p.width))
	}
	sum, sq := ii.window(x, y, p.width, p.height)
	n := float64(p.width * p.height)
	variance := 0.0
	for c := 0; c < channels; c++ {
		variance += sq[c] - sum[c]*sum[c]/n
	}
	if variance <= flatVarianceEps*n {
		return 0
	}
	score := num / math.Sqrt(p.energy*variance)
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

// bestMatch scans every placement of patch fully inside area and returns the best scoring one.
// Rows of placements are split into bands evaluated concurrently; bands are reduced in order
// with strict comparison, so the first maximum in raster order wins regardless of workers.
func (p *patch) bestMatch(frame *Frame, area image.Rectangle, workers int) (Match, error) {
	area = area.Intersect(frame.Bounds())
	positionsX := area.Dx() - p.width + 1
	positionsY := area.Dy() - p.height + 1
	if positionsX <= 0 || positionsY <= 0 {
		return Match{}, errors.Wrapf(ErrDimensionMismatch, "search area %v can't hold %dx%d patch", area, p.width, p.height)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ii := newIntegral(frame, area)

	bands := minInt(workers, positionsY)
	rowsPerBand := (positionsY + bands - 1) / bands
	results := make([]Match, bands)
	filled := make([]bool, bands)
	var g errgroup.Group
	for b := 0; b < bands; b++ {
		y0 := area.Min.Y + b*rowsPerBand
		y1 := minInt(y0+rowsPerBand, area.Min.Y+positionsY)
		if y0 >= y1 {
			continue
		}
		band := b
		g.Go(func() error {
			results[band] = p.scanRows(frame, ii, area.Min.X, area.Min.X+positionsX, y0, y1)
			filled[band] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Match{}, err
	}

	best := Match{Score: math.Inf(-1)}
	for b := range results {
		if filled[b] && results[b].Score > best.Score {
			best = results[b]
		}
	}
	return best, nil
}

// scanRows returns the first best placement with top-left in [x0, x1) x [y0, y1)
func (p *patch) scanRows(frame *Frame, ii *integral, x0, x1, y0, y1 int) Match {
	best := Match{Location: image.Pt(x0, y0), Score: math.Inf(-1)}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			score := p.scoreAt(frame, ii, x, y)
			if score > best.Score {
				best = Match{Location: image.Pt(x, y), Score: score}
			}
		}
	}
	return best
}
