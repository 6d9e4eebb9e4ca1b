package workflow

import (
	"context"

	"heicrop/internal/ledger"
	"heicrop/internal/logging"
	"heicrop/internal/services"
)

// transition is the only place sessions end and handles enter or leave the
// ledger. Leaving cropping ends the session; entering idle releases every
// handle. The given handles are registered after retirements, and a handle
// with the tag of a live one replaces it.
func (c *Controller) transition(ctx context.Context, next State, register ...*ledger.Handle) error {
	prev := c.state
	logger := logging.WithContext(ctx, c.logger)

	if prev == StateCropping && next != StateCropping && c.session != nil {
		c.cropper.End(c.session)
		c.session = nil
	}
	released := 0
	if next == StateIdle {
		released = c.ledger.ReleaseAll()
	}

	c.state = next
	for _, h := range register {
		if err := c.ledger.Register(h); err != nil {
			return services.Wrap(services.ErrValidation, "workflow", "register handle",
				"Could not track image handle", err)
		}
	}

	logger.Debug("workflow transition",
		logging.String(logging.FieldEventType, "state_transition"),
		logging.String("from", prev.String()),
		logging.String("to", next.String()),
		logging.Int("released", released),
		logging.Int("live_handles", c.ledger.Len()),
	)
	if c.onTransition != nil {
		c.onTransition(prev, next)
	}
	return nil
}
