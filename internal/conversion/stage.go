package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"heicrop/internal/config"
	"heicrop/internal/cropper"
	"heicrop/internal/heif"
	"heicrop/internal/ledger"
	"heicrop/internal/logging"
	"heicrop/internal/services"
	"heicrop/internal/stage"
)

const (
	stageName = "conversion"

	MediaTypeHEIC = "image/heic"
	MediaTypeJPEG = "image/jpeg"
)

// Result carries the two handles a successful conversion produces. They are
// not registered anywhere yet; the caller owns registration.
type Result struct {
	Original  *ledger.Handle
	Converted *ledger.Handle
	Elapsed   time.Duration
}

// Stage converts uploads into handles.
type Stage struct {
	cfg        *config.Config
	detector   heif.Detector
	transcoder heif.Transcoder
	logger     *slog.Logger
}

// NewStage constructs the conversion stage with the backend selected in cfg.
func NewStage(cfg *config.Config, logger *slog.Logger) (*Stage, error) {
	transcoder, err := heif.NewTranscoder(cfg, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "select transcoder",
			"Set conversion.backend to native or command", err)
	}
	return NewStageWithDependencies(cfg, logger, heif.BrandDetector{}, transcoder), nil
}

// NewStageWithDependencies allows injecting custom dependencies (used for tests).
func NewStageWithDependencies(cfg *config.Config, logger *slog.Logger, detector heif.Detector, transcoder heif.Transcoder) *Stage {
	s := &Stage{cfg: cfg, detector: detector, transcoder: transcoder}
	s.SetLogger(logger)
	return s
}

// SetLogger updates the stage's logging destination while preserving component labeling.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "converter")
}

// Convert classifies file, transcodes it to JPEG, and wraps both the input
// and the output as handles. On error no handle is returned.
func (s *Stage) Convert(ctx context.Context, file heif.File) (Result, error) {
	ctx, logger := stage.Enter(ctx, s.logger, stageName)
	start := time.Now()

	isHEIC, err := s.detector.IsHEIC(ctx, file)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "detect format",
			"Could not inspect the uploaded file", err)
	}
	if !isHEIC {
		logger.Info("rejected non-HEIF upload",
			logging.String("file", file.Name),
			logging.Int("bytes", file.Size()),
		)
		return Result{}, services.Wrap(services.ErrUnsupportedFormat, stageName, "detect format",
			fmt.Sprintf("%s is not a HEIC/HEIF image", displayName(file)), nil)
	}
	if err := s.checkSize(file); err != nil {
		return Result{}, err
	}

	logger.Info("converting HEIC image",
		logging.String("file", file.Name),
		logging.Int("bytes", file.Size()),
		logging.String("backend", s.transcoder.Name()),
	)

	tctx := ctx
	if timeout := s.cfg.ConversionTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	data, err := s.transcoder.Transcode(tctx, file, heif.Options{
		Format:  heif.FormatJPEG,
		Quality: s.cfg.Conversion.Quality,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Result{}, services.Wrap(services.ErrTranscodeFailed, stageName, "transcode",
				fmt.Sprintf("conversion exceeded %s", s.cfg.ConversionTimeout()), errors.Join(services.ErrTimeout, err))
		}
		return Result{}, services.Wrap(services.ErrTranscodeFailed, stageName, "transcode",
			"HEIC decoder failed", err)
	}

	// Dimensions are recorded as displayed so they agree with the crop surface.
	decoded, err := cropper.Decode(data)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTranscodeFailed, stageName, "decode output",
			"Transcoder output is not a valid JPEG", err)
	}
	bounds := decoded.Bounds()

	result := Result{
		Original: ledger.NewHandle(ledger.TagOriginal, file.Name, MediaTypeHEIC, file.Data),
		Converted: ledger.NewHandle(ledger.TagConverted, file.BaseName()+".jpg", MediaTypeJPEG, data).
			WithDimensions(bounds.Dx(), bounds.Dy()),
		Elapsed: time.Since(start),
	}
	logger.Info("conversion completed",
		logging.String(logging.FieldEventType, "conversion_complete"),
		logging.Size(bounds.Dx(), bounds.Dy()),
		logging.Int("jpeg_bytes", len(data)),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// checkSize runs after classification; empty or truncated input never
// parses as HEIF and is rejected as an unsupported format instead.
func (s *Stage) checkSize(file heif.File) error {
	if limit := s.cfg.MaxInputBytes(); limit > 0 && int64(file.Size()) > limit {
		return services.Wrap(services.ErrValidation, stageName, "validate input",
			fmt.Sprintf("%s is %d bytes; limit is %d MiB", displayName(file), file.Size(), s.cfg.Conversion.MaxInputMiB), nil)
	}
	return nil
}

// HealthCheck reports whether the configured transcoder can run.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s.cfg == nil {
		return stage.NotReady(stageName, "configuration unavailable")
	}
	if s.detector == nil || s.transcoder == nil {
		return stage.NotReady(stageName, "transcoder unavailable")
	}
	if err := s.transcoder.Ready(ctx); err != nil {
		return stage.NotReady(stageName, "%s backend: %v", s.transcoder.Name(), err)
	}
	return stage.Ready(stageName, s.transcoder.Name()+" backend")
}

func displayName(file heif.File) string {
	if file.Name == "" {
		return "upload"
	}
	return file.Name
}
