package cropper

import (
	"image"
	"math"
)

// Rect is a selection in transformed-image pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pixels rounds r onto the integer grid.
func (r Rect) Pixels() image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.Width))
	y1 := int(math.Round(r.Y + r.Height))
	return image.Rect(x0, y0, x1, y1)
}

// Empty reports whether r covers less than one whole pixel on either axis.
func (r Rect) Empty() bool {
	return r.Pixels().Empty()
}

func (r Rect) center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Line is a guide segment in transformed-image pixels.
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Transform is the image-space manipulation applied before cropping.
type Transform struct {
	Rotation float64 `json:"rotation"`
	ScaleX   float64 `json:"scale_x"`
	ScaleY   float64 `json:"scale_y"`
	Zoom     float64 `json:"zoom"`
}

func identityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1, Zoom: 1}
}

// normalizeDegrees maps any angle onto [0, 360).
func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// clampRect fits r inside a w x h image: the size is capped first, then the
// origin is pushed back inside.
func clampRect(r Rect, w, h float64) Rect {
	r.Width = math.Max(0, math.Min(r.Width, w))
	r.Height = math.Max(0, math.Min(r.Height, h))
	r.X = math.Min(math.Max(r.X, 0), w-r.Width)
	r.Y = math.Min(math.Max(r.Y, 0), h-r.Height)
	return r
}

// fitAspect shrinks r around its center until width/height equals ratio and
// it still fits a w x h image.
func fitAspect(r Rect, ratio, w, h float64) Rect {
	if ratio <= 0 {
		return r
	}
	cx, cy := r.center()
	width, height := r.Width, r.Height
	if width/ratio > height {
		width = height * ratio
	} else {
		height = width / ratio
	}
	if width > w {
		width = w
		height = width / ratio
	}
	if height > h {
		height = h
		width = height * ratio
	}
	return clampRect(Rect{X: cx - width/2, Y: cy - height/2, Width: width, Height: height}, w, h)
}

// coverageRect is the centered rect covering the given fraction of each axis.
func coverageRect(w, h, coverage float64) Rect {
	cw, ch := w*coverage, h*coverage
	return Rect{X: (w - cw) / 2, Y: (h - ch) / 2, Width: cw, Height: ch}
}

func sameRect(a, b Rect) bool {
	const eps = 0.5
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.Width-b.Width) < eps && math.Abs(a.Height-b.Height) < eps
}
