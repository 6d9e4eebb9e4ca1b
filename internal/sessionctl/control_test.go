package sessionctl_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"heicrop/internal/config"
	"heicrop/internal/deps"
	"heicrop/internal/ipc"
	"heicrop/internal/logging"
	"heicrop/internal/session"
	"heicrop/internal/sessionctl"
	"heicrop/internal/testsupport"
	"heicrop/internal/workflow"
)

// serve runs an in-process session whose shutdown hook tears itself down.
func serve(t *testing.T, cfg *config.Config) <-chan struct{} {
	t.Helper()
	logger := logging.NewNop()
	ctrl, err := workflow.NewController(cfg, logger)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	host, err := session.New(cfg, logger, ctrl)
	if err != nil {
		t.Fatal(err)
	}
	if err := host.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(host.Stop)

	stopped := make(chan struct{})
	var srv *ipc.Server
	srv, err = ipc.NewServer(context.Background(), cfg.Paths.SocketPath, host, logger, ipc.ServerOptions{
		Dependencies: []deps.Status{{Name: "heif-convert", Available: true}},
		Shutdown: func() {
			srv.Close()
			host.Stop()
			close(stopped)
		},
	})
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	return stopped
}

func TestEnsureStartedFindsRunningSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	serve(t, cfg)

	result, err := sessionctl.EnsureStarted(context.Background(), cfg.Paths.SocketPath, "/nonexistent/heicrop", sessionctl.LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != sessionctl.StartStateAlreadyRunning || result.SessionID == "" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestEnsureStartedReportsLaunchFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := sessionctl.EnsureStarted(context.Background(), cfg.Paths.SocketPath, "", sessionctl.LaunchOptions{}, time.Second)
	if err == nil {
		t.Fatal("expected launch failure without an executable")
	}
}

func TestStopShutsDownSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stopped := serve(t, cfg)

	result, err := sessionctl.Stop(context.Background(), cfg.Paths.SocketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !result.Acknowledged || result.ForcedKill {
		t.Fatalf("unexpected stop result %+v", result)
	}
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown hook never ran")
	}

	if _, err := sessionctl.Stop(context.Background(), cfg.Paths.SocketPath, time.Second); !errors.Is(err, sessionctl.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestBuildSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	offline, err := sessionctl.BuildSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if offline.Running || offline.Status != nil || len(offline.Dependencies) != 1 {
		t.Fatalf("unexpected offline snapshot %+v", offline)
	}

	serve(t, cfg)
	online, err := sessionctl.BuildSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !online.Running || online.Status == nil || online.Status.Workflow.State != workflow.StateIdle {
		t.Fatalf("unexpected online snapshot %+v", online)
	}
	if online.DependencySummary.Severity != "ok" {
		t.Fatalf("expected ok dependency summary, got %+v", online.DependencySummary)
	}
}

func TestSummarizeDependencies(t *testing.T) {
	tests := []struct {
		name     string
		statuses []deps.Status
		severity string
		detail   string
	}{
		{name: "empty", severity: "info", detail: "No dependency checks configured"},
		{name: "all available", statuses: []deps.Status{{Available: true}}, severity: "ok", detail: "1/1 available"},
		{name: "optional missing", statuses: []deps.Status{{Available: true}, {Optional: true}}, severity: "warn", detail: "1/2 available (missing: 0 required, 1 optional)"},
		{name: "required missing", statuses: []deps.Status{{}, {Optional: true}}, severity: "error", detail: "0/2 available (missing: 1 required, 1 optional)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sessionctl.SummarizeDependencies(tt.statuses)
			if got.Severity != tt.severity || got.Detail != tt.detail {
				t.Fatalf("got %+v", got)
			}
		})
	}
}
