package sot

import (
	"image"
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// FlowTracker follows a grid of points inside the box with block-matching optical flow.
// Each point is tracked forward and then back; points with large forward-backward error or
// weak block similarity are dropped and the box moves by the median displacement of the rest.
// Box size is kept constant.
type FlowTracker struct {
	opts      TrackerOptions
	prev      []float64
	width     int
	height    int
	box       Rectangle
	lastScore float64
}

// NewFlowTracker creates tracker. It must be seeded with Init before Update.
func NewFlowTracker(opts TrackerOptions) *FlowTracker {
	return &FlowTracker{
		opts: opts.withDefaults(),
	}
}

// Init seeds tracker with object at bbox. Previous frame history is dropped.
func (ft *FlowTracker) Init(frame *Frame, bbox Rectangle) error {
	region, err := cropRegion(frame, bbox)
	if err != nil {
		return errors.Wrap(err, "Can't init flow tracker")
	}
	ft.prev = frame.Luminance()
	ft.width = frame.Width()
	ft.height = frame.Height()
	ft.box = NewRectFrom(region)
	ft.lastScore = 1.0
	return nil
}

// flowVector is displacement of a single grid point
type flowVector struct {
	dx, dy     float64
	fbError    float64
	similarity float64
}

// Update estimates box motion between the previous frame and this one
func (ft *FlowTracker) Update(frame *Frame) (Rectangle, bool, error) {
	if frame.Empty() {
		return Rectangle{}, false, errors.Wrap(ErrInvalidInput, "Can't update flow tracker")
	}
	if ft.prev == nil {
		return Rectangle{}, false, ErrNotInitialized
	}
	if frame.Width() != ft.width || frame.Height() != ft.height {
		return Rectangle{}, false, errors.Wrapf(ErrDimensionMismatch, "got %dx%d, tracker has %dx%d", frame.Width(), frame.Height(), ft.width, ft.height)
	}
	cur := frame.Luminance()

	points := ft.gridPoints()
	vectors := make([]flowVector, 0, len(points))
	for _, pt := range points {
		fwd, similarity, ok := ft.blockMatch(ft.prev, cur, pt)
		if !ok {
			continue
		}
		back, _, ok := ft.blockMatch(cur, ft.prev, fwd)
		if !ok {
			continue
		}
		vectors = append(vectors, flowVector{
			dx:         float64(fwd.X - pt.X),
			dy:         float64(fwd.Y - pt.Y),
			fbError:    euclideanDistance(NewPointFrom(pt), NewPointFrom(back)),
			similarity: similarity,
		})
	}
	// Too few points survived near the borders
	if len(vectors) == 0 || len(vectors) < len(points)/4 {
		ft.lastScore = 0
		return Rectangle{}, false, nil
	}

	medianFB := median(collect(vectors, func(v flowVector) float64 { return v.fbError }))
	medianSimilarity := median(collect(vectors, func(v flowVector) float64 { return v.similarity }))
	ft.lastScore = medianSimilarity
	if medianFB > ft.opts.MaxForwardBackwardError || medianSimilarity < ft.opts.MinScore {
		return Rectangle{}, false, nil
	}

	reliable := make([]flowVector, 0, len(vectors))
	for _, v := range vectors {
		if v.fbError <= medianFB && v.similarity >= medianSimilarity {
			reliable = append(reliable, v)
		}
	}
	if len(reliable) == 0 {
		reliable = vectors
	}
	dx := median(collect(reliable, func(v flowVector) float64 { return v.dx }))
	dy := median(collect(reliable, func(v flowVector) float64 { return v.dy }))

	next := ft.box.Translate(dx, dy)
	if IoU(next, NewRectFrom(frame.Bounds())) == 0 {
		return Rectangle{}, false, nil
	}
	ft.box = next
	ft.prev = cur
	return next, true, nil
}

// LastScore returns median block similarity of the last update
func (ft *FlowTracker) LastScore() float64 {
	return ft.lastScore
}

// gridPoints spreads FlowGrid x FlowGrid points over box, keeping only those whose block fits the frame
func (ft *FlowTracker) gridPoints() []image.Point {
	grid := ft.opts.FlowGrid
	win := ft.opts.FlowWindow
	points := make([]image.Point, 0, grid*grid)
	stepX := ft.box.Width / float64(grid)
	stepY := ft.box.Height / float64(grid)
	for j := 0; j < grid; j++ {
		for i := 0; i < grid; i++ {
			x := int(math.Floor(ft.box.X + stepX*(float64(i)+0.5)))
			y := int(math.Floor(ft.box.Y + stepY*(float64(j)+0.5)))
			if x-win < 0 || y-win < 0 || x+win >= ft.width || y+win >= ft.height {
				continue
			}
			points = append(points, image.Pt(x, y))
		}
	}
	return points
}

// blockMatch finds displacement of the block around pt in src that best fits dst (least sum of squared differences).
// Zero displacement wins ties. Similarity is normalized correlation between the two blocks.
func (ft *FlowTracker) blockMatch(src, dst []float64, pt image.Point) (image.Point, float64, bool) {
	win := ft.opts.FlowWindow
	radius := ft.opts.FlowRadius
	if pt.X-win < 0 || pt.Y-win < 0 || pt.X+win >= ft.width || pt.Y+win >= ft.height {
		return image.Point{}, 0, false
	}
	best := pt
	bestSSD := ft.ssd(src, dst, pt, pt)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			q := image.Pt(pt.X+dx, pt.Y+dy)
			if q.X-win < 0 || q.Y-win < 0 || q.X+win >= ft.width || q.Y+win >= ft.height {
				continue
			}
			if ssd := ft.ssd(src, dst, pt, q); ssd < bestSSD {
				best = q
				bestSSD = ssd
			}
		}
	}
	return best, ft.blockCorrelation(src, dst, pt, best), true
}

func (ft *FlowTracker) ssd(src, dst []float64, p, q image.Point) float64 {
	win := ft.opts.FlowWindow
	total := 0.0
	for y := -win; y <= win; y++ {
		srcRow := (p.Y+y)*ft.width + p.X
		dstRow := (q.Y+y)*ft.width + q.X
		for x := -win; x <= win; x++ {
			d := src[srcRow+x] - dst[dstRow+x]
			total += d * d
		}
	}
	return total
}

// blockCorrelation returns normalized correlation between the block around p in src and around q in dst
func (ft *FlowTracker) blockCorrelation(src, dst []float64, p, q image.Point) float64 {
	win := ft.opts.FlowWindow
	side := 2*win + 1
	a := make([]float64, 0, side*side)
	b := make([]float64, 0, side*side)
	for y := -win; y <= win; y++ {
		a = append(a, src[(p.Y+y)*ft.width+p.X-win:(p.Y+y)*ft.width+p.X+win+1]...)
		b = append(b, dst[(q.Y+y)*ft.width+q.X-win:(q.Y+y)*ft.width+q.X+win+1]...)
	}
	if stat.Variance(a, nil) < flatVarianceEps || stat.Variance(b, nil) < flatVarianceEps {
		// Flat blocks are identical if their levels agree
		if math.Abs(stat.Mean(a, nil)-stat.Mean(b, nil)) < 1.0 {
			return 1.0
		}
		return 0
	}
	return stat.Correlation(a, b, nil)
}

func collect(vectors []flowVector, field func(flowVector) float64) []float64 {
	values := make([]float64, len(vectors))
	for i, v := range vectors {
		values[i] = field(v)
	}
	return values
}

// median sorts values in place and returns the empirical median
func median(values []float64) float64 {
	sort.Float64s(values)
	return stat.Quantile(0.5, stat.Empirical, values, nil)
}
