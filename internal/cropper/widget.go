package cropper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/jpegn"
)

var (
	ErrDestroyed = errors.New("crop widget destroyed")
	ErrNotReady  = errors.New("crop widget not ready")
	// ErrEmptySelection means the selection does not cover a whole pixel.
	ErrEmptySelection = errors.New("crop selection is empty")
	// ErrDisabled means the requested manipulation is turned off in Options.
	ErrDisabled = errors.New("manipulation disabled")
)

// Options configures a Widget.
type Options struct {
	FreeAspect bool
	// AspectRatio is width/height, enforced when FreeAspect is false.
	AspectRatio float64
	ShowGuides  bool
	Movable     bool
	Zoomable    bool
	Rotatable   bool
	Scalable    bool
	// InitialCoverage is the fraction of each axis the initial selection covers.
	InitialCoverage float64
}

// DefaultOptions mirrors the interactive defaults: free aspect, guides on,
// every manipulation enabled, selection covering the whole image.
func DefaultOptions() Options {
	return Options{
		FreeAspect:      true,
		ShowGuides:      true,
		Movable:         true,
		Zoomable:        true,
		Rotatable:       true,
		Scalable:        true,
		InitialCoverage: 1,
	}
}

// Widget is one crop surface bound to one source image.
type Widget struct {
	opts Options

	ready     chan struct{}
	src       image.Image
	decodeErr error

	transform   Transform
	selection   Rect
	view        *image.NRGBA
	viewDirty   bool
	initialized bool
	destroyed   bool
}

// Open starts decoding data in the background and returns immediately.
func Open(data []byte, opts Options) *Widget {
	if opts.InitialCoverage <= 0 || opts.InitialCoverage > 1 {
		opts.InitialCoverage = 1
	}
	w := &Widget{
		opts:      opts,
		ready:     make(chan struct{}),
		transform: identityTransform(),
		viewDirty: true,
	}
	go func() {
		defer close(w.ready)
		img, err := Decode(data)
		if err != nil {
			w.decodeErr = fmt.Errorf("decode crop source: %w", err)
			return
		}
		w.src = img
	}()
	return w
}

// Decode returns data as displayed: EXIF orientation is applied, so the
// bounds match the coordinate space selections are made in.
func Decode(data []byte) (image.Image, error) {
	img, err := jpegn.Decode(bytes.NewReader(data), &jpegn.Options{
		ToRGBA:         true,
		UpsampleMethod: jpegn.CatmullRom,
		AutoRotate:     true,
	})
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("image has no pixels")
	}
	return img, nil
}

// Wait blocks until the source is decoded, decoding fails, or ctx ends.
func (w *Widget) Wait(ctx context.Context) error {
	if w.destroyed {
		return ErrDestroyed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.ready:
	}
	if w.decodeErr != nil {
		return w.decodeErr
	}
	if !w.initialized {
		w.initialized = true
		w.selection = w.initialSelection()
	}
	return nil
}

func (w *Widget) check() error {
	if w.destroyed {
		return ErrDestroyed
	}
	select {
	case <-w.ready:
	default:
		return ErrNotReady
	}
	if w.decodeErr != nil {
		return w.decodeErr
	}
	if !w.initialized {
		return ErrNotReady
	}
	return nil
}

// Options returns the configuration the widget was opened with.
func (w *Widget) Options() Options { return w.opts }

// NaturalSize is the decoded source size.
func (w *Widget) NaturalSize() (int, int, error) {
	if err := w.check(); err != nil {
		return 0, 0, err
	}
	b := w.src.Bounds()
	return b.Dx(), b.Dy(), nil
}

// ImageSize is the size of the transformed image the selection lives in.
func (w *Widget) ImageSize() (int, int, error) {
	if err := w.check(); err != nil {
		return 0, 0, err
	}
	b := w.viewImage().Bounds()
	return b.Dx(), b.Dy(), nil
}

// Selection returns the current crop rectangle.
func (w *Widget) Selection() (Rect, error) {
	if err := w.check(); err != nil {
		return Rect{}, err
	}
	return w.selection, nil
}

// Transform returns the current image transform.
func (w *Widget) Transform() (Transform, error) {
	if err := w.check(); err != nil {
		return Transform{}, err
	}
	return w.transform, nil
}

// SetSelection replaces the selection. A fixed aspect ratio is enforced and
// the result is clamped to the image; negative sizes collapse to zero.
func (w *Widget) SetSelection(r Rect) error {
	if err := w.check(); err != nil {
		return err
	}
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	iw, ih := w.bounds()
	if !w.opts.FreeAspect {
		r = fitAspect(r, w.opts.AspectRatio, iw, ih)
	}
	w.selection = clampRect(r, iw, ih)
	return nil
}

// Move pans the selection across the image by (dx, dy) pixels.
func (w *Widget) Move(dx, dy float64) error {
	if err := w.check(); err != nil {
		return err
	}
	if !w.opts.Movable {
		return fmt.Errorf("move: %w", ErrDisabled)
	}
	iw, ih := w.bounds()
	r := w.selection
	r.X += dx
	r.Y += dy
	w.selection = clampRect(r, iw, ih)
	return nil
}

// Zoom changes magnification by a relative ratio: 0.1 zooms in 10%, -0.1
// zooms out. Zooming in shrinks the selection around its center since the
// crop box stays fixed on screen while the image grows under it.
func (w *Widget) Zoom(ratio float64) error {
	if err := w.check(); err != nil {
		return err
	}
	if !w.opts.Zoomable {
		return fmt.Errorf("zoom: %w", ErrDisabled)
	}
	factor := 1 + ratio
	if factor <= 0 {
		return fmt.Errorf("zoom ratio %.2f would invert the image", ratio)
	}
	w.transform.Zoom *= factor

	iw, ih := w.bounds()
	cx, cy := w.selection.center()
	width := w.selection.Width / factor
	height := w.selection.Height / factor
	r := Rect{X: cx - width/2, Y: cy - height/2, Width: width, Height: height}
	if !w.opts.FreeAspect {
		r = fitAspect(r, w.opts.AspectRatio, iw, ih)
	}
	w.selection = clampRect(r, iw, ih)
	return nil
}

// Rotate turns the image clockwise by deg degrees relative to its current angle.
func (w *Widget) Rotate(deg float64) error {
	if err := w.check(); err != nil {
		return err
	}
	if !w.opts.Rotatable {
		return fmt.Errorf("rotate: %w", ErrDisabled)
	}
	next := w.transform
	next.Rotation = normalizeDegrees(next.Rotation + deg)
	w.applyTransform(next)
	return nil
}

// Scale sets the per-axis scale factors; negative values flip the axis.
func (w *Widget) Scale(sx, sy float64) error {
	if err := w.check(); err != nil {
		return err
	}
	if !w.opts.Scalable {
		return fmt.Errorf("scale: %w", ErrDisabled)
	}
	if sx == 0 || sy == 0 {
		return fmt.Errorf("scale factors must be non-zero, got %.2f x %.2f", sx, sy)
	}
	next := w.transform
	next.ScaleX, next.ScaleY = sx, sy
	w.applyTransform(next)
	return nil
}

// applyTransform swaps in t and refits the selection. A selection that
// covered the whole previous image keeps covering the whole new one.
func (w *Widget) applyTransform(t Transform) {
	pw, ph := w.bounds()
	wasFull := sameRect(w.selection, Rect{Width: pw, Height: ph})

	w.transform = t
	w.viewDirty = true

	iw, ih := w.bounds()
	if wasFull {
		w.selection = Rect{Width: iw, Height: ih}
		if !w.opts.FreeAspect {
			w.selection = fitAspect(w.selection, w.opts.AspectRatio, iw, ih)
		}
		return
	}
	w.selection = clampRect(w.selection, iw, ih)
}

// Reset restores the initial transform and the initial selection.
func (w *Widget) Reset() error {
	if err := w.check(); err != nil {
		return err
	}
	w.transform = identityTransform()
	w.viewDirty = true
	w.selection = w.initialSelection()
	return nil
}

// Guides returns rule-of-thirds lines across the selection, or nil when
// guides are disabled.
func (w *Widget) Guides() ([]Line, error) {
	if err := w.check(); err != nil {
		return nil, err
	}
	if !w.opts.ShowGuides {
		return nil, nil
	}
	s := w.selection
	lines := make([]Line, 0, 4)
	for i := 1; i <= 2; i++ {
		x := s.X + s.Width*float64(i)/3
		lines = append(lines, Line{X1: x, Y1: s.Y, X2: x, Y2: s.Y + s.Height})
	}
	for i := 1; i <= 2; i++ {
		y := s.Y + s.Height*float64(i)/3
		lines = append(lines, Line{X1: s.X, Y1: y, X2: s.X + s.Width, Y2: y})
	}
	return lines, nil
}

// CroppedRaster renders the selection of the transformed image.
func (w *Widget) CroppedRaster(opts RasterOptions) (*image.RGBA, error) {
	if err := w.check(); err != nil {
		return nil, err
	}
	view := w.viewImage()
	rect := w.selection.Pixels().Intersect(view.Bounds())
	if rect.Empty() {
		return nil, ErrEmptySelection
	}
	return extract(view, rect, opts), nil
}

// Destroy releases the decoded image. It is safe to call more than once.
func (w *Widget) Destroy() {
	if w.destroyed {
		return
	}
	w.destroyed = true
	select {
	case <-w.ready:
		w.src = nil
		w.view = nil
	default:
	}
}

// Destroyed reports whether Destroy has been called.
func (w *Widget) Destroyed() bool { return w.destroyed }

func (w *Widget) initialSelection() Rect {
	iw, ih := w.bounds()
	r := coverageRect(iw, ih, w.opts.InitialCoverage)
	if !w.opts.FreeAspect {
		r = fitAspect(r, w.opts.AspectRatio, iw, ih)
	}
	return r
}

func (w *Widget) bounds() (float64, float64) {
	b := w.viewImage().Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (w *Widget) viewImage() *image.NRGBA {
	if w.viewDirty || w.view == nil {
		w.view = render(w.src, w.transform)
		w.viewDirty = false
	}
	return w.view
}
