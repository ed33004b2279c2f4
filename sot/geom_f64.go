package sot

import (
	"image"
	"math"
)

// Rectangle is an axis-aligned box in pixel coordinates: top-left corner plus size.
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// ImageRect converts box to integer pixel rectangle.
// Origin is floored and size is rounded, so a box never shrinks by more than half a pixel.
func (r Rectangle) ImageRect() image.Rectangle {
	x := int(math.Floor(r.X))
	y := int(math.Floor(r.Y))
	w := int(math.Round(r.Width))
	h := int(math.Round(r.Height))
	return image.Rect(x, y, x+w, y+h)
}

// Center returns box's center
func (r Rectangle) Center() Point {
	return Point{
		X: r.X + r.Width/2.0,
		Y: r.Y + r.Height/2.0,
	}
}

// Empty reports whether box has non-positive extent
func (r Rectangle) Empty() bool {
	return !(r.Width > 0) || !(r.Height > 0)
}

// Translate returns box shifted by (dx, dy)
func (r Rectangle) Translate(dx, dy float64) Rectangle {
	return Rectangle{
		X:      r.X + dx,
		Y:      r.Y + dy,
		Width:  r.Width,
		Height: r.Height,
	}
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(float64(p1.X-p2.X), 2) + math.Pow(float64(p1.Y-p2.Y), 2))
}
