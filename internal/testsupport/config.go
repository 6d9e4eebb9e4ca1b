package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"heicrop/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns a default config whose export and log directories live
// under a per-test temp dir. Directories are not created; call
// EnsureDirectories when a test needs them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ExportDir = filepath.Join(base, "export")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.SocketPath = filepath.Join(socketDir(t), "heicrop.sock")
	cfg.Conversion.TimeoutSeconds = 10

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// socketDir keeps unix socket paths under the 108 byte sun_path limit, which
// t.TempDir paths can exceed.
func socketDir(t testing.TB) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "hc")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func WithBackend(backend string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Conversion.Backend = backend
	}
}

// WithFixedAspect disables free aspect and pins the crop ratio.
func WithFixedAspect(ratio float64) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Crop.FreeAspect = false
		cfg.Crop.AspectRatio = ratio
	}
}

// WithHeifConvertStub selects the command backend and puts a fake
// heif-convert first on PATH. The stub answers --version and otherwise copies
// a width x height JPEG to its output argument, so every "conversion"
// produces the same image regardless of input.
func WithHeifConvertStub(width, height int) ConfigOption {
	return func(t testing.TB, base string, cfg *config.Config) {
		t.Helper()
		fixture := WriteBytes(t, base, "fixture.jpg", JPEG(t, width, height))
		script := fmt.Sprintf(`#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "heif-convert libheif %s"
	exit 0
fi
cp %q "$4"
`, StubLibheifVersion, fixture)
		binDir := filepath.Join(base, "bin")
		WriteBytes(t, binDir, "heif-convert", []byte(script))
		if err := os.Chmod(filepath.Join(binDir, "heif-convert"), 0o755); err != nil {
			t.Fatalf("chmod stub: %v", err)
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
		cfg.Conversion.Backend = config.BackendCommand
		cfg.Conversion.Command = ""
	}
}

// StubLibheifVersion is the version the heif-convert stub reports.
const StubLibheifVersion = "1.17.6"
