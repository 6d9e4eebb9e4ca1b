package sessionrun_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"heicrop/internal/config"
	"heicrop/internal/ipc"
	"heicrop/internal/logging"
	"heicrop/internal/sessionrun"
	"heicrop/internal/testsupport"
	"heicrop/internal/workflow"
)

func dial(t *testing.T, socket string) *ipc.Client {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socket)
		if err == nil {
			t.Cleanup(func() { client.Close() })
			return client
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("session socket %s never became available", socket)
	return nil
}

func TestRunServesUntilShutdown(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHeifConvertStub(8, 8))
	cfg.Logging.Format = "json"

	done := make(chan error, 1)
	go func() {
		done <- sessionrun.Run(context.Background(), cfg, sessionrun.Options{LogLevel: "debug"})
	}()

	client := dial(t, cfg.Paths.SocketPath)
	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Session.Running || status.Workflow.State != workflow.StateIdle {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.LogPath != filepath.Join(cfg.Paths.LogDir, logging.LogFileName) {
		t.Fatalf("unexpected log path %q", status.LogPath)
	}

	if _, err := client.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("session did not exit after shutdown")
	}

	if _, err := os.Stat(cfg.Paths.SocketPath); !os.IsNotExist(err) {
		t.Fatalf("expected socket removed, stat err=%v", err)
	}
	data, err := os.ReadFile(status.LogPath)
	if err != nil {
		t.Fatalf("read session log: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected session log to be written")
	}
}

func TestRunRefusesFailedPreflight(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(config.BackendCommand))
	cfg.Conversion.Command = filepath.Join(t.TempDir(), "missing-heif-convert")

	err := sessionrun.Run(context.Background(), cfg, sessionrun.Options{})
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	if _, statErr := os.Stat(cfg.Paths.SocketPath); !os.IsNotExist(statErr) {
		t.Fatalf("socket should not exist after refused start, stat err=%v", statErr)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := sessionrun.Run(context.Background(), nil, sessionrun.Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
