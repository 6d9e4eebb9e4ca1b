package cropper

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Smoothing qualities accepted by RasterOptions.
const (
	QualityLow    = "low"
	QualityMedium = "medium"
	QualityHigh   = "high"
)

// RasterOptions controls CroppedRaster output.
type RasterOptions struct {
	// Width and Height request an output size; zero keeps the selection size.
	Width  int
	Height int
	// Smoothing enables interpolated resampling; off means nearest neighbour.
	Smoothing bool
	Quality   string
}

// Interpolator picks the resampler for o.
func (o RasterOptions) Interpolator() draw.Interpolator {
	if !o.Smoothing {
		return draw.NearestNeighbor
	}
	switch o.Quality {
	case QualityLow:
		return draw.ApproxBiLinear
	case QualityMedium:
		return draw.BiLinear
	default:
		return draw.CatmullRom
	}
}

// fillColor backs the corners exposed by arbitrary-angle rotation; JPEG has
// no alpha, so transparent would encode as black anyway.
var fillColor = color.Black

// render applies scale, flips and rotation to src, in that order.
func render(src image.Image, t Transform) *image.NRGBA {
	img := imaging.Clone(src)

	sx, sy := math.Abs(t.ScaleX), math.Abs(t.ScaleY)
	if sx != 1 || sy != 1 {
		b := img.Bounds()
		w := max(1, int(math.Round(float64(b.Dx())*sx)))
		h := max(1, int(math.Round(float64(b.Dy())*sy)))
		scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
		img = scaled
	}
	if t.ScaleX < 0 {
		img = imaging.FlipH(img)
	}
	if t.ScaleY < 0 {
		img = imaging.FlipV(img)
	}

	// Positive rotation is clockwise on screen; imaging rotates counter-clockwise.
	switch deg := normalizeDegrees(t.Rotation); deg {
	case 0:
		return img
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return imaging.Rotate(img, 360-deg, fillColor)
	}
}

// extract copies rect out of img, resampling into the requested size.
func extract(img *image.NRGBA, rect image.Rectangle, opts RasterOptions) *image.RGBA {
	w, h := rect.Dx(), rect.Dy()
	switch {
	case opts.Width > 0 && opts.Height > 0:
		w, h = opts.Width, opts.Height
	case opts.Width > 0:
		h = max(1, int(math.Round(float64(opts.Width)*float64(h)/float64(w))))
		w = opts.Width
	case opts.Height > 0:
		w = max(1, int(math.Round(float64(opts.Height)*float64(w)/float64(h))))
		h = opts.Height
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == rect.Dx() && h == rect.Dy() {
		draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
		return dst
	}
	opts.Interpolator().Scale(dst, dst.Bounds(), img, rect, draw.Src, nil)
	return dst
}
