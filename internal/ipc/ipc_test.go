package ipc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"heicrop/internal/config"
	"heicrop/internal/conversion"
	"heicrop/internal/crop"
	"heicrop/internal/cropper"
	"heicrop/internal/deps"
	"heicrop/internal/export"
	"heicrop/internal/heif"
	"heicrop/internal/ipc"
	"heicrop/internal/logging"
	"heicrop/internal/services"
	"heicrop/internal/session"
	"heicrop/internal/testsupport"
	"heicrop/internal/workflow"
)

type jpegTranscoder struct{ out []byte }

func (jpegTranscoder) Name() string                { return "stub" }
func (jpegTranscoder) Ready(context.Context) error { return nil }
func (j jpegTranscoder) Transcode(context.Context, heif.File, heif.Options) ([]byte, error) {
	return j.out, nil
}

type fixture struct {
	cfg      *config.Config
	host     *session.Host
	client   *ipc.Client
	logPath  string
	shutdown chan struct{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	logger := logging.NewNop()
	ctrl := workflow.NewControllerWithDependencies(cfg, logger,
		conversion.NewStageWithDependencies(cfg, logger, heif.BrandDetector{}, jpegTranscoder{out: testsupport.JPEG(t, 40, 30)}),
		crop.NewStage(cfg, logger),
		export.NewExporter(cfg, logger),
	)
	host, err := session.New(cfg, logger, ctrl)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if err := host.Start(context.Background()); err != nil {
		t.Fatalf("host.Start: %v", err)
	}
	t.Cleanup(host.Stop)

	f := &fixture{
		cfg:      cfg,
		host:     host,
		logPath:  filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		shutdown: make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, host, logger, ipc.ServerOptions{
		LogPath:      f.logPath,
		Dependencies: []deps.Status{{Name: "heif-convert", Command: "heif-convert", Optional: true}},
		Shutdown:     func() { close(f.shutdown) },
	})
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	f.client = client
	return f
}

func TestWorkflowOverIPC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.client.Submit(ctx, "photo.heic", testsupport.HEICHeader("heic"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.State != workflow.StateConverted || resp.Error != nil {
		t.Fatalf("unexpected submit response %+v", resp)
	}

	if resp, err = f.client.StartCrop(ctx); err != nil || resp.State != workflow.StateCropping {
		t.Fatalf("StartCrop: %+v %v", resp, err)
	}
	sel := cropper.Rect{X: 5, Y: 5, Width: 20, Height: 10}
	if resp, err = f.client.Adjust(ctx, crop.Adjustment{Op: crop.OpSelect, Selection: sel}); err != nil || resp.Error != nil {
		t.Fatalf("Adjust: %+v %v", resp, err)
	}

	status, err := f.client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Workflow.Session == nil || status.Workflow.Session.Selection != sel {
		t.Fatalf("expected live selection in status, got %+v", status.Workflow.Session)
	}
	if !status.Session.Running || status.Session.SocketPath != f.cfg.Paths.SocketPath {
		t.Fatalf("unexpected session info %+v", status.Session)
	}
	if len(status.Dependencies) != 1 || status.LogPath != f.logPath {
		t.Fatalf("unexpected status extras %+v", status)
	}

	if resp, err = f.client.ApplyCrop(ctx); err != nil || resp.State != workflow.StateResult {
		t.Fatalf("ApplyCrop: %+v %v", resp, err)
	}

	preview, err := f.client.Preview(ctx, "cropped")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if preview.Handle.Width != 20 || preview.Handle.Height != 10 || len(preview.Data) == 0 {
		t.Fatalf("unexpected preview %+v", preview.Handle)
	}

	dl, err := f.client.Download(ctx, "")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(dl.Path) != f.cfg.Export.FinalName {
		t.Fatalf("expected final export name, got %q", dl.Path)
	}
	if _, err := os.Stat(dl.Path); err != nil {
		t.Fatalf("exported file missing: %v", err)
	}

	if resp, err = f.client.NewImage(ctx); err != nil || resp.State != workflow.StateIdle {
		t.Fatalf("NewImage: %+v %v", resp, err)
	}
	status, err = f.client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(status.Workflow.Handles) != 0 {
		t.Fatalf("expected no live handles, got %+v", status.Workflow.Handles)
	}
}

func TestStageFailuresTravelInResponse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.client.Submit(ctx, "photo.jpg", testsupport.JPEG(t, 4, 4))
	if err != nil {
		t.Fatalf("Submit should not fail at the RPC layer: %v", err)
	}
	if resp.State != workflow.StateIdle || resp.Error == nil || resp.Error.Kind != services.KindUnsupportedFormat {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Message.Kind != workflow.MessageError {
		t.Fatalf("expected error message, got %+v", resp.Message)
	}

	// Out-of-state calls are ignored, not errors.
	resp, err = f.client.ApplyCrop(ctx)
	if err != nil || resp.Error != nil || resp.State != workflow.StateIdle {
		t.Fatalf("ApplyCrop in idle: %+v %v", resp, err)
	}
}

func TestPreviewErrorsAreRemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.Preview(ctx, "thumbnail")
	var remote *ipc.RemoteError
	if !errors.As(err, &remote) || remote.Kind != services.KindValidation {
		t.Fatalf("expected validation RemoteError, got %v", err)
	}

	_, err = f.client.Preview(ctx, "converted")
	if !errors.As(err, &remote) || !strings.Contains(remote.Message, "idle") {
		t.Fatalf("expected missing image error, got %v", err)
	}
}

func TestLogTailOverIPC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := os.WriteFile(f.logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	resp, err := f.client.LogTail(ctx, ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail: %v", err)
	}
	if len(resp.Lines) != 2 || resp.Lines[0] != "second" || resp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", resp.Lines)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		next, err := f.client.LogTail(ctx, ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 2000})
		if err != nil {
			t.Errorf("LogTail follow: %v", err)
			return
		}
		if len(next.Lines) != 1 || next.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", next.Lines)
		}
	}(resp.Offset)

	time.Sleep(100 * time.Millisecond)
	file, err := os.OpenFile(f.logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("append log: %v", err)
	}
	_, _ = file.WriteString("fourth\n")
	_ = file.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}
}

func TestShutdownAndStoppedHost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.client.Shutdown(ctx)
	if err != nil || !resp.Stopping {
		t.Fatalf("Shutdown: %+v %v", resp, err)
	}
	select {
	case <-f.shutdown:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown callback not invoked")
	}

	f.host.Stop()
	_, err = f.client.Status(ctx)
	var remote *ipc.RemoteError
	if !errors.As(err, &remote) || !remote.NotRunning() {
		t.Fatalf("expected not-running RemoteError, got %v", err)
	}
}

func TestCallHonoursContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.client.Status(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
