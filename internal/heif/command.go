package heif

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"heicrop/internal/logging"
)

// Command shells out to heif-convert (libheif):
//
//	heif-convert -q <quality> input.heic output.jpg
type Command struct {
	Binary string
	logger *slog.Logger
}

// NewCommand constructs the external backend.
func NewCommand(binary string, logger *slog.Logger) *Command {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "heif-convert"
	}
	return &Command{Binary: binary, logger: logging.NewComponentLogger(logger, "heif-convert")}
}

func (c *Command) Name() string { return "command" }

func (c *Command) Ready(context.Context) error {
	if _, err := exec.LookPath(c.Binary); err != nil {
		return fmt.Errorf("binary %q not found", c.Binary)
	}
	return nil
}

// Transcode writes the input to a private temp dir, runs the tool, and reads
// back its output. Stderr becomes part of the returned error.
func (c *Command) Transcode(ctx context.Context, file File, opts Options) ([]byte, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "heicrop-convert-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "input.heic")
	output := filepath.Join(workDir, "output.jpg")
	if err := os.WriteFile(input, file.Data, 0o600); err != nil {
		return nil, fmt.Errorf("stage input: %w", err)
	}

	args := []string{"-q", strconv.Itoa(JPEGQuality(opts.Quality)), input, output}
	c.logger.Debug("running transcoder",
		logging.String("binary", c.Binary),
		logging.String("args", strings.Join(args, " ")),
	)

	cmd := exec.CommandContext(ctx, c.Binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return nil, fmt.Errorf("%s: %w", c.Binary, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", c.Binary, err, detail)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("%s produced no output: %w", c.Binary, err)
	}
	return data, nil
}
