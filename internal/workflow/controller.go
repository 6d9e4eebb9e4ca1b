package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"heicrop/internal/config"
	"heicrop/internal/conversion"
	"heicrop/internal/crop"
	"heicrop/internal/export"
	"heicrop/internal/heif"
	"heicrop/internal/ledger"
	"heicrop/internal/logging"
	"heicrop/internal/services"
)

// Controller owns the image lifecycle for one interactive session.
type Controller struct {
	cfg       *config.Config
	logger    *slog.Logger
	ledger    *ledger.Ledger
	converter Converter
	cropper   Cropper
	exporter  Exporter

	state   State
	session *crop.Session
	lastErr error
	message Message

	onTransition func(from, to State)
}

// Option configures optional Controller behavior.
type Option func(*Controller)

// WithLedger substitutes the handle ledger (tests install revoke hooks this way).
func WithLedger(l *ledger.Ledger) Option {
	return func(c *Controller) {
		c.ledger = l
	}
}

// WithTransitionHook observes every state change after it completes.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(c *Controller) {
		c.onTransition = fn
	}
}

// NewController constructs a controller with the configured stages.
func NewController(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Controller, error) {
	converter, err := conversion.NewStage(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewControllerWithDependencies(cfg, logger, converter, crop.NewStage(cfg, logger), export.NewExporter(cfg, logger), opts...), nil
}

// NewControllerWithDependencies allows injecting stages (used in tests).
func NewControllerWithDependencies(cfg *config.Config, logger *slog.Logger, converter Converter, cropper Cropper, exporter Exporter, opts ...Option) *Controller {
	c := &Controller{
		cfg:       cfg,
		converter: converter,
		cropper:   cropper,
		exporter:  exporter,
		state:     StateIdle,
	}
	c.SetLogger(logger)
	for _, opt := range opts {
		opt(c)
	}
	if c.ledger == nil {
		c.ledger = ledger.New(ledger.WithLogger(logger))
	}
	return c
}

// SetLogger updates the controller's logging destination while preserving component labeling.
func (c *Controller) SetLogger(logger *slog.Logger) {
	c.logger = logging.NewComponentLogger(logger, "workflow")
}

func (c *Controller) State() State           { return c.state }
func (c *Controller) Ledger() *ledger.Ledger { return c.ledger }
func (c *Controller) Session() *crop.Session { return c.session }
func (c *Controller) LastError() error       { return c.lastErr }
func (c *Controller) Message() Message       { return c.message }

// SubmitFile converts file and moves to converted. Submitting from result
// discards the previous image first. On failure the controller is idle with
// no handles and the classified error recorded.
func (c *Controller) SubmitFile(ctx context.Context, file heif.File) error {
	if !c.allowed(ctx, opSubmitFile) {
		return nil
	}
	if c.state == StateResult {
		if err := c.transition(ctx, StateIdle); err != nil {
			return err
		}
	}
	c.lastErr = nil
	c.setMessage(MessageLoading, msgProcessing)
	if err := c.transition(ctx, StateLoading); err != nil {
		return err
	}
	c.setMessage(MessageLoading, msgConverting)

	result, err := c.converter.Convert(ctx, file)
	if err != nil {
		_ = c.transition(ctx, StateIdle)
		return c.handleStageFailure(ctx, "conversion", err)
	}
	if err := c.transition(ctx, StateConverted, result.Original, result.Converted); err != nil {
		_ = c.transition(ctx, StateIdle)
		return c.handleStageFailure(ctx, "conversion", err)
	}
	c.setMessage(MessageSuccess, msgConverted)
	logging.WithContext(ctx, c.logger).Info("image ready to crop",
		logging.String(logging.FieldEventType, "image_converted"),
		logging.String("file", file.Name),
		logging.String(logging.FieldHandleURI, result.Converted.URI()),
		logging.Duration("elapsed", result.Elapsed),
	)
	return nil
}

// StartCrop opens a crop session on the converted image. If the crop surface
// cannot be opened the controller stays in converted.
func (c *Controller) StartCrop(ctx context.Context) error {
	if !c.allowed(ctx, opStartCrop) {
		return nil
	}
	converted, ok := c.ledger.ByTag(ledger.TagConverted)
	if !ok {
		return c.handleStageFailure(ctx, "crop", services.Wrap(services.ErrValidation, "workflow", "start crop",
			"No converted image is loaded", nil))
	}
	c.lastErr = nil
	if err := c.transition(ctx, StateCropping); err != nil {
		return err
	}
	sess, err := c.cropper.Begin(ctx, converted)
	if err != nil {
		_ = c.transition(ctx, StateConverted)
		return c.handleStageFailure(ctx, "crop", err)
	}
	c.session = sess
	c.setMessage(MessageInfo, msgCropReady)
	return nil
}

// ApplyCrop commits the selection and moves to result. An empty selection
// leaves the session open so the user can select again.
func (c *Controller) ApplyCrop(ctx context.Context) error {
	if !c.allowed(ctx, opApplyCrop) || !c.sessionActive(ctx, opApplyCrop) {
		return nil
	}
	cropped, err := c.cropper.Commit(ctx, c.session)
	if err != nil {
		return c.handleStageFailure(ctx, "crop", err)
	}
	c.lastErr = nil
	if err := c.transition(ctx, StateResult, cropped); err != nil {
		return c.handleStageFailure(ctx, "crop", err)
	}
	c.setMessage(MessageSuccess, msgCropped)
	return nil
}

// ResetCrop restores the initial full-frame selection. State and handles are
// untouched.
func (c *Controller) ResetCrop(ctx context.Context) error {
	if !c.allowed(ctx, opResetCrop) || !c.sessionActive(ctx, opResetCrop) {
		return nil
	}
	if err := c.cropper.Reset(c.session); err != nil {
		return c.handleStageFailure(ctx, "crop", err)
	}
	return nil
}

// Adjust applies one manipulation to the crop surface.
func (c *Controller) Adjust(ctx context.Context, adj crop.Adjustment) error {
	if !c.allowed(ctx, opAdjust) || !c.sessionActive(ctx, opAdjust) {
		return nil
	}
	if err := c.cropper.Adjust(c.session, adj); err != nil {
		return c.handleStageFailure(ctx, "crop", err)
	}
	return nil
}

// NewImage discards everything and returns to idle. It is ignored while a
// conversion is in flight.
func (c *Controller) NewImage(ctx context.Context) error {
	if !c.allowed(ctx, opNewImage) {
		return nil
	}
	if err := c.transition(ctx, StateIdle); err != nil {
		return err
	}
	c.lastErr = nil
	c.message = Message{}
	return nil
}

// Download exports the crop and returns the written path. While cropping it
// renders the live selection under the cropped name without committing; in
// result it exports the committed crop under the final name. An empty name
// selects that default.
func (c *Controller) Download(ctx context.Context, name string) (string, error) {
	if !c.allowed(ctx, opDownload) {
		return "", nil
	}
	var (
		h           *ledger.Handle
		defaultName string
	)
	switch c.state {
	case StateCropping:
		if !c.sessionActive(ctx, opDownload) {
			return "", nil
		}
		preview, err := c.cropper.Render(ctx, c.session)
		if err != nil {
			return "", c.handleStageFailure(ctx, "export", err)
		}
		h, defaultName = preview, c.cfg.Export.CroppedName
	case StateResult:
		cropped, ok := c.ledger.ByTag(ledger.TagCropped)
		if !ok {
			return "", c.handleStageFailure(ctx, "export", services.Wrap(services.ErrValidation, "workflow", "download",
				"No cropped image to download", nil))
		}
		h, defaultName = cropped, c.cfg.Export.FinalName
	}
	if strings.TrimSpace(name) == "" {
		name = defaultName
	}

	path, err := c.exporter.Export(ctx, h, name)
	if err != nil {
		return "", c.handleStageFailure(ctx, "export", err)
	}
	c.setMessage(MessageSuccess, fmt.Sprintf("Saved %s", path))
	return path, nil
}

// WriteResult streams the committed crop, encoded for export, to w.
func (c *Controller) WriteResult(w io.Writer) error {
	if c.state != StateResult {
		return services.Wrap(services.ErrValidation, "workflow", "write result",
			fmt.Sprintf("No cropped image while %s", c.state), nil)
	}
	cropped, _ := c.ledger.ByTag(ledger.TagCropped)
	return c.exporter.WriteTo(w, cropped)
}

// Preview returns the live handle for tag. Retired handles are never returned.
func (c *Controller) Preview(tag ledger.Tag) (*ledger.Handle, bool) {
	return c.ledger.ByTag(tag)
}

// Close ends any session and releases every handle regardless of state.
func (c *Controller) Close(ctx context.Context) {
	_ = c.transition(ctx, StateIdle)
}

func (c *Controller) allowed(ctx context.Context, op string) bool {
	if c.state.Accepts(op) {
		return true
	}
	logging.WithContext(ctx, c.logger).Debug("ignoring operation outside its state",
		logging.String("operation", op),
		logging.String("state", c.state.String()),
	)
	return false
}

func (c *Controller) sessionActive(ctx context.Context, op string) bool {
	if c.session.Active() {
		return true
	}
	logging.WithContext(ctx, c.logger).Debug("ignoring operation without crop session",
		logging.String("operation", op),
	)
	return false
}

func (c *Controller) setMessage(kind MessageKind, text string) {
	c.message = Message{Kind: kind, Text: text}
}
