package export

import (
	"context"
	"image/jpeg"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"heicrop/internal/config"
	"heicrop/internal/cropper"
	"heicrop/internal/fileutil"
	"heicrop/internal/heif"
	"heicrop/internal/ledger"
	"heicrop/internal/logging"
	"heicrop/internal/services"
	"heicrop/internal/stage"
)

const stageName = "export"

// Exporter re-encodes image handles into the export directory.
type Exporter struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewExporter constructs the export surface.
func NewExporter(cfg *config.Config, logger *slog.Logger) *Exporter {
	e := &Exporter{cfg: cfg}
	e.SetLogger(logger)
	return e
}

// SetLogger updates the exporter's logging destination while preserving component labeling.
func (e *Exporter) SetLogger(logger *slog.Logger) {
	e.logger = logging.NewComponentLogger(logger, "exporter")
}

// Export writes h to <export_dir>/<name> and returns the written path. An
// empty name falls back to the handle's own name.
func (e *Exporter) Export(ctx context.Context, h *ledger.Handle, name string) (string, error) {
	_, logger := stage.Enter(ctx, e.logger, stageName)
	if h == nil {
		return "", services.Wrap(services.ErrValidation, stageName, "export", "Nothing to export", nil)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = h.Name()
	}
	if err := config.ValidateExportName(name); err != nil {
		return "", services.Wrap(services.ErrValidation, stageName, "export", "Invalid export file name", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(e.cfg.Paths.ExportDir, name)
	var written int64
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		cw := &countingWriter{w: w}
		err := e.encode(cw, h)
		written = cw.n
		return err
	})
	if err != nil {
		return "", services.Wrap(services.ErrValidation, stageName, "write", "Failed to write exported image", err)
	}

	logger.Info("image exported",
		logging.String(logging.FieldEventType, "export_written"),
		logging.String(logging.FieldHandleURI, h.URI()),
		logging.String("path", path),
		logging.Int64("bytes", written),
	)
	return path, nil
}

// WriteTo streams the export encoding of h to w.
func (e *Exporter) WriteTo(w io.Writer, h *ledger.Handle) error {
	if h == nil {
		return services.Wrap(services.ErrValidation, stageName, "write", "Nothing to export", nil)
	}
	if err := e.encode(w, h); err != nil {
		return services.Wrap(services.ErrValidation, stageName, "write", "Failed to encode exported image", err)
	}
	return nil
}

func (e *Exporter) encode(w io.Writer, h *ledger.Handle) error {
	data, err := h.Bytes()
	if err != nil {
		return err
	}
	img, err := cropper.Decode(data)
	if err != nil {
		return err
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: heif.JPEGQuality(e.cfg.Export.Quality)})
}

// HealthCheck reports whether an export directory is configured.
func (e *Exporter) HealthCheck(context.Context) stage.Health {
	if e.cfg == nil || strings.TrimSpace(e.cfg.Paths.ExportDir) == "" {
		return stage.NotReady(stageName, "export directory not configured")
	}
	return stage.Ready(stageName, e.cfg.Paths.ExportDir)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
