package heif

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"heicrop/internal/config"
)

// FormatJPEG is the only target format.
const FormatJPEG = "jpeg"

// Options selects the output encoding.
type Options struct {
	Format  string
	Quality float64
}

// Transcoder converts a HEIF file into encoded bytes of Options.Format.
type Transcoder interface {
	Name() string
	Transcode(ctx context.Context, file File, opts Options) ([]byte, error)
	// Ready reports nil when the backend can run in this build and host.
	Ready(ctx context.Context) error
}

// NewTranscoder builds the backend selected by conversion.backend.
func NewTranscoder(cfg *config.Config, logger *slog.Logger) (Transcoder, error) {
	switch cfg.Conversion.Backend {
	case config.BackendNative:
		return NewNative(), nil
	case config.BackendCommand:
		return NewCommand(cfg.ConverterBinary(), logger), nil
	default:
		return nil, fmt.Errorf("unknown transcoder backend %q", cfg.Conversion.Backend)
	}
}

func (o Options) validate() error {
	if !strings.EqualFold(o.Format, FormatJPEG) && !strings.EqualFold(o.Format, "jpg") {
		return fmt.Errorf("unsupported target format %q", o.Format)
	}
	if o.Quality <= 0 || o.Quality > 1 {
		return fmt.Errorf("quality %.2f outside (0, 1]", o.Quality)
	}
	return nil
}

// JPEGQuality maps a 0-1 quality onto the 1-100 scale JPEG encoders use.
func JPEGQuality(q float64) int {
	v := int(math.Round(q * 100))
	switch {
	case v < 1:
		return 1
	case v > 100:
		return 100
	default:
		return v
	}
}
