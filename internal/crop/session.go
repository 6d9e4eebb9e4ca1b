package crop

import (
	"time"

	"github.com/google/uuid"

	"heicrop/internal/cropper"
	"heicrop/internal/ledger"
)

// Session binds one crop widget to exactly one converted handle. It lives
// only while the workflow is cropping.
type Session struct {
	id      string
	source  *ledger.Handle
	widget  *cropper.Widget
	started time.Time
	ended   bool
}

func (s *Session) ID() string              { return s.id }
func (s *Session) Source() *ledger.Handle  { return s.source }
func (s *Session) Widget() *cropper.Widget { return s.widget }
func (s *Session) Started() time.Time      { return s.started }
func (s *Session) Active() bool            { return s != nil && !s.ended }

// Summary is a read-only snapshot of a session for status output.
type Summary struct {
	ID          string            `json:"id"`
	SourceURI   string            `json:"source_uri"`
	Selection   cropper.Rect      `json:"selection"`
	Transform   cropper.Transform `json:"transform"`
	ImageWidth  int               `json:"image_width"`
	ImageHeight int               `json:"image_height"`
	Guides      []cropper.Line    `json:"guides,omitempty"`
}

// Summary captures the widget state; errors yield a partial summary.
func (s *Session) Summary() Summary {
	sum := Summary{ID: s.id}
	if s.source != nil {
		sum.SourceURI = s.source.URI()
	}
	if s.ended {
		return sum
	}
	sum.Selection, _ = s.widget.Selection()
	sum.Transform, _ = s.widget.Transform()
	sum.ImageWidth, sum.ImageHeight, _ = s.widget.ImageSize()
	sum.Guides, _ = s.widget.Guides()
	return sum
}

func newSession(source *ledger.Handle, widget *cropper.Widget) *Session {
	return &Session{
		id:      uuid.NewString(),
		source:  source,
		widget:  widget,
		started: time.Now(),
	}
}
