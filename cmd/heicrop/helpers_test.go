package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"heicrop/internal/config"
	"heicrop/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	inputPath  string
	baseDir    string
}

// setupCLITestEnv writes a config file for a heif-convert stub that always
// produces a 64x48 JPEG.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HEICROP_EXPORT_DIR", "")
	t.Setenv("HEICROP_LOG_LEVEL", "")
	cfg := testsupport.NewConfig(t, testsupport.WithHeifConvertStub(64, 48))
	cfg.Logging.Level = "error"
	base := filepath.Dir(cfg.Paths.ExportDir)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "heicrop.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		inputPath:  testsupport.WriteBytes(t, base, "photo.heic", testsupport.HEICHeader("heic")),
		baseDir:    base,
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
