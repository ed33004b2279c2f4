package sot

import "image"

// IoU calculates Intersection over Union between two rectangles.
func IoU(r1, r2 Rectangle) float64 {
	xA := maxFloat64(r1.X, r2.X)
	yA := maxFloat64(r1.Y, r2.Y)
	xB := minFloat64(r1.X+r1.Width, r2.X+r2.Width)
	yB := minFloat64(r1.Y+r1.Height, r2.Y+r2.Height)

	interArea := maxFloat64(0, xB-xA) * maxFloat64(0, yB-yA)
	if interArea == 0 {
		return 0.0
	}

	r1Area := r1.Width * r1.Height
	r2Area := r2.Width * r2.Height

	iouVal := interArea / (r1Area + r2Area - interArea)
	return iouVal
}

// searchArea returns the region of top-left positions plus template extent
// that a local search around box should scan: box grown by margin on every side, clipped to bounds.
func searchArea(box image.Rectangle, margin int, bounds image.Rectangle) image.Rectangle {
	area := image.Rect(box.Min.X-margin, box.Min.Y-margin, box.Max.X+margin, box.Max.Y+margin)
	return area.Intersect(bounds)
}

// clampBox moves box inside bounds without resizing it. Box must not be larger than bounds.
func clampBox(box image.Rectangle, bounds image.Rectangle) image.Rectangle {
	dx, dy := 0, 0
	if box.Min.X < bounds.Min.X {
		dx = bounds.Min.X - box.Min.X
	} else if box.Max.X > bounds.Max.X {
		dx = bounds.Max.X - box.Max.X
	}
	if box.Min.Y < bounds.Min.Y {
		dy = bounds.Min.Y - box.Min.Y
	} else if box.Max.Y > bounds.Max.Y {
		dy = bounds.Max.Y - box.Max.Y
	}
	return box.Add(image.Pt(dx, dy))
}

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
