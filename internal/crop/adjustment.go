package crop

import (
	"fmt"

	"heicrop/internal/cropper"
)

// Op names a crop-surface manipulation.
type Op string

const (
	OpSelect Op = "select"
	OpMove   Op = "move"
	OpZoom   Op = "zoom"
	OpRotate Op = "rotate"
	OpScale  Op = "scale"
)

// Adjustment is one manipulation of the crop surface. Only the fields that
// belong to Op are read.
type Adjustment struct {
	Op        Op           `json:"op"`
	Selection cropper.Rect `json:"selection"`
	DX        float64      `json:"dx,omitempty"`
	DY        float64      `json:"dy,omitempty"`
	Ratio     float64      `json:"ratio,omitempty"`
	Degrees   float64      `json:"degrees,omitempty"`
	ScaleX    float64      `json:"scale_x,omitempty"`
	ScaleY    float64      `json:"scale_y,omitempty"`
}

func (a Adjustment) String() string {
	switch a.Op {
	case OpSelect:
		s := a.Selection
		return fmt.Sprintf("select %.0fx%.0f+%.0f+%.0f", s.Width, s.Height, s.X, s.Y)
	case OpMove:
		return fmt.Sprintf("move %+.0f,%+.0f", a.DX, a.DY)
	case OpZoom:
		return fmt.Sprintf("zoom %+.2f", a.Ratio)
	case OpRotate:
		return fmt.Sprintf("rotate %+.1f", a.Degrees)
	case OpScale:
		return fmt.Sprintf("scale %.2f,%.2f", a.ScaleX, a.ScaleY)
	default:
		return string(a.Op)
	}
}

func (a Adjustment) apply(w *cropper.Widget) error {
	switch a.Op {
	case OpSelect:
		return w.SetSelection(a.Selection)
	case OpMove:
		return w.Move(a.DX, a.DY)
	case OpZoom:
		return w.Zoom(a.Ratio)
	case OpRotate:
		return w.Rotate(a.Degrees)
	case OpScale:
		return w.Scale(a.ScaleX, a.ScaleY)
	default:
		return fmt.Errorf("unknown adjustment %q", a.Op)
	}
}
