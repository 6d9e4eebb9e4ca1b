package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"heicrop/internal/config"
	"heicrop/internal/deps"
	"heicrop/internal/heif"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTranscoder verifies the configured conversion backend can run.
func CheckTranscoder(ctx context.Context, cfg *config.Config) Result {
	name := fmt.Sprintf("Transcoder (%s)", cfg.Conversion.Backend)
	transcoder, err := heif.NewTranscoder(cfg, nil)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if err := transcoder.Ready(ctx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "ready"}
}

// CheckSystemDeps evaluates the external converters for the given config.
// heif-convert is only required when the command backend is selected.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	optional := cfg.Conversion.Backend != config.BackendCommand
	return deps.Check(ctx, deps.HeifConvert(cfg.ConverterBinary(), optional))
}
