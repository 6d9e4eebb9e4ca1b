package crop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"log/slog"

	"heicrop/internal/config"
	"heicrop/internal/cropper"
	"heicrop/internal/heif"
	"heicrop/internal/ledger"
	"heicrop/internal/logging"
	"heicrop/internal/services"
	"heicrop/internal/stage"
)

const (
	stageName     = "crop"
	mediaTypeJPEG = "image/jpeg"
)

// Stage owns crop widget lifecycles.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
	open   func([]byte, cropper.Options) *cropper.Widget
}

// NewStage constructs the crop stage.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	s := &Stage{cfg: cfg, open: cropper.Open}
	s.SetLogger(logger)
	return s
}

// SetLogger updates the stage's logging destination while preserving component labeling.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "cropper")
}

// WidgetOptions derives widget configuration from the crop settings.
func (s *Stage) WidgetOptions() cropper.Options {
	c := s.cfg.Crop
	return cropper.Options{
		FreeAspect:      c.FreeAspect,
		AspectRatio:     c.AspectRatio,
		ShowGuides:      c.ShowGuides,
		Movable:         c.Movable,
		Zoomable:        c.Zoomable,
		Rotatable:       c.Rotatable,
		Scalable:        c.Scalable,
		InitialCoverage: c.InitialCoverage,
	}
}

// Begin opens a widget on converted and suspends until it is ready. The
// session is not returned until the widget reports completion, so callers
// never observe a half-initialized surface.
func (s *Stage) Begin(ctx context.Context, converted *ledger.Handle) (*Session, error) {
	ctx, logger := stage.Enter(ctx, s.logger, stageName)
	if converted == nil || converted.Tag() != ledger.TagConverted {
		return nil, services.Wrap(services.ErrValidation, stageName, "begin",
			"Cropping needs a converted image", nil)
	}
	data, err := converted.Bytes()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "begin",
			"Converted image is no longer available", err)
	}

	widget := s.open(data, s.WidgetOptions())
	if err := widget.Wait(ctx); err != nil {
		widget.Destroy()
		return nil, services.Wrap(services.ErrValidation, stageName, "open widget",
			"Converted image could not be loaded into the crop surface", err)
	}

	sess := newSession(converted, widget)
	w, h, _ := widget.ImageSize()
	logger.Info("crop session started",
		logging.String(logging.FieldEventType, "crop_begin"),
		logging.String("crop_session", sess.id),
		logging.String(logging.FieldHandleURI, converted.URI()),
		logging.Size(w, h),
	)
	return sess, nil
}

// Commit rasterizes the current selection, encodes it, and wraps it as a
// cropped handle. The handle is not registered; the caller owns that.
func (s *Stage) Commit(ctx context.Context, sess *Session) (*ledger.Handle, error) {
	_, logger := stage.Enter(ctx, s.logger, stageName)
	handle, err := s.render(sess, "commit")
	if err != nil {
		return nil, err
	}
	w, h := handle.Dimensions()
	logger.Info("crop committed",
		logging.String(logging.FieldEventType, "crop_commit"),
		logging.String("crop_session", sess.id),
		logging.Size(w, h),
		logging.Int("jpeg_bytes", handle.Size()),
	)
	return handle, nil
}

// Render encodes the current selection the same way Commit does but leaves
// the session uncommitted. The handle is never registered.
func (s *Stage) Render(ctx context.Context, sess *Session) (*ledger.Handle, error) {
	_, logger := stage.Enter(ctx, s.logger, stageName)
	handle, err := s.render(sess, "render")
	if err != nil {
		return nil, err
	}
	w, h := handle.Dimensions()
	logger.Debug("crop selection rendered",
		logging.String("crop_session", sess.id),
		logging.Size(w, h),
	)
	return handle, nil
}

func (s *Stage) render(sess *Session, op string) (*ledger.Handle, error) {
	if err := s.requireActive(sess, op); err != nil {
		return nil, err
	}

	raster, err := sess.widget.CroppedRaster(cropper.RasterOptions{
		Smoothing: s.cfg.Crop.Smoothing,
		Quality:   s.cfg.Crop.SmoothingQuality,
	})
	if err != nil {
		if errors.Is(err, cropper.ErrEmptySelection) {
			return nil, services.Wrap(services.ErrEmptySelection, stageName, op,
				"No crop region selected", err)
		}
		return nil, services.Wrap(services.ErrValidation, stageName, op,
			"Crop surface could not render the selection", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, raster, &jpeg.Options{Quality: heif.JPEGQuality(s.cfg.Crop.Quality)}); err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "encode",
			"Failed to encode cropped image", err)
	}

	b := raster.Bounds()
	return ledger.NewHandle(ledger.TagCropped, s.cfg.Export.CroppedName, mediaTypeJPEG, buf.Bytes()).
		WithDimensions(b.Dx(), b.Dy()), nil
}

// Reset restores the widget's initial selection and transform.
func (s *Stage) Reset(sess *Session) error {
	if err := s.requireActive(sess, "reset"); err != nil {
		return err
	}
	if err := sess.widget.Reset(); err != nil {
		return services.Wrap(services.ErrValidation, stageName, "reset", "Crop surface reset failed", err)
	}
	s.logger.Debug("crop selection reset", logging.String("crop_session", sess.id))
	return nil
}

// Adjust applies one manipulation to the crop surface.
func (s *Stage) Adjust(sess *Session, adj Adjustment) error {
	if err := s.requireActive(sess, "adjust"); err != nil {
		return err
	}
	if err := adj.apply(sess.widget); err != nil {
		message := fmt.Sprintf("Could not %s", adj.Op)
		if errors.Is(err, cropper.ErrDisabled) {
			message = fmt.Sprintf("%s is disabled in the crop settings", adj.Op)
		}
		return services.Wrap(services.ErrValidation, stageName, string(adj.Op), message, err)
	}
	s.logger.Debug("crop adjusted",
		logging.String("crop_session", sess.id),
		logging.String("adjustment", adj.String()),
	)
	return nil
}

// End destroys the widget. Ending an ended or nil session is a no-op.
func (s *Stage) End(sess *Session) {
	if sess == nil || sess.ended {
		return
	}
	sess.ended = true
	sess.widget.Destroy()
	s.logger.Debug("crop session ended", logging.String("crop_session", sess.id))
}

// HealthCheck reports crop readiness; the widget is in-process so only the
// configuration can be wrong.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.cfg == nil {
		return stage.NotReady(stageName, "configuration unavailable")
	}
	if s.open == nil {
		return stage.NotReady(stageName, "crop widget unavailable")
	}
	return stage.Ready(stageName, "")
}

func (s *Stage) requireActive(sess *Session, op string) error {
	if !sess.Active() {
		return services.Wrap(services.ErrValidation, stageName, op, "No active crop session", nil)
	}
	return nil
}
