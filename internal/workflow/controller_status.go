package workflow

import (
	"context"

	"heicrop/internal/crop"
	"heicrop/internal/ledger"
	"heicrop/internal/services"
	"heicrop/internal/stage"
)

// HandleSummary describes one live handle.
type HandleSummary struct {
	Tag       ledger.Tag `json:"tag"`
	URI       string     `json:"uri"`
	Name      string     `json:"name"`
	MediaType string     `json:"media_type"`
	Size      int        `json:"size"`
	Width     int        `json:"width,omitempty"`
	Height    int        `json:"height,omitempty"`
}

// ErrorSummary is the last recorded failure.
type ErrorSummary struct {
	Kind    services.Kind `json:"kind"`
	Message string        `json:"message"`
	Hint    string        `json:"hint,omitempty"`
}

// StatusSummary is a snapshot of the controller for status surfaces.
type StatusSummary struct {
	State       State           `json:"state"`
	Message     Message         `json:"message"`
	Handles     []HandleSummary `json:"handles"`
	Session     *crop.Summary   `json:"session,omitempty"`
	LastError   *ErrorSummary   `json:"last_error,omitempty"`
	StageHealth []stage.Health  `json:"stage_health"`
}

// Status returns the current controller snapshot.
func (c *Controller) Status(ctx context.Context) StatusSummary {
	summary := StatusSummary{
		State:       c.state,
		Message:     c.message,
		Handles:     make([]HandleSummary, 0, c.ledger.Len()),
		StageHealth: stage.Summarize(ctx, c.converter, c.cropper, c.exporter),
	}
	for _, h := range c.ledger.Live() {
		summary.Handles = append(summary.Handles, SummarizeHandle(h))
	}
	if c.session.Active() {
		sum := c.session.Summary()
		summary.Session = &sum
	}
	if c.lastErr != nil {
		details := services.Details(c.lastErr)
		summary.LastError = &ErrorSummary{
			Kind:    details.Kind,
			Message: failureMessage(details),
			Hint:    details.Hint,
		}
	}
	return summary
}

// SummarizeHandle describes h without its bytes.
func SummarizeHandle(h *ledger.Handle) HandleSummary {
	w, hh := h.Dimensions()
	return HandleSummary{
		Tag:       h.Tag(),
		URI:       h.URI(),
		Name:      h.Name(),
		MediaType: h.MediaType(),
		Size:      h.Size(),
		Width:     w,
		Height:    hh,
	}
}
