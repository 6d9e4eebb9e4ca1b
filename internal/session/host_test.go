package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"heicrop/internal/config"
	"heicrop/internal/conversion"
	"heicrop/internal/crop"
	"heicrop/internal/export"
	"heicrop/internal/heif"
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

func newController(t *testing.T, cfg *config.Config) *workflow.Controller {
	t.Helper()
	logger := logging.NewNop()
	return workflow.NewControllerWithDependencies(cfg, logger,
		conversion.NewStageWithDependencies(cfg, logger, heif.BrandDetector{}, jpegTranscoder{out: testsupport.JPEG(t, 16, 12)}),
		crop.NewStage(cfg, logger),
		export.NewExporter(cfg, logger),
	)
}

func startHost(t *testing.T, cfg *config.Config) *session.Host {
	t.Helper()
	host, err := session.New(cfg, logging.NewNop(), newController(t, cfg))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if err := host.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(host.Stop)
	return host
}

func TestHostIsSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := startHost(t, cfg)
	if !first.Info().Running || first.Info().LockPath != cfg.LockPath() {
		t.Fatalf("unexpected info %+v", first.Info())
	}

	second, err := session.New(cfg, nil, newController(t, cfg))
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second host to be refused the lock")
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("lock should be free after stop: %v", err)
	}
	second.Stop()
}

func TestDoSerializesActions(t *testing.T) {
	host := startHost(t, testsupport.NewConfig(t))

	var inFlight, maxInFlight atomic.Int32
	counter := 0
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := host.Do(context.Background(), func(context.Context, *workflow.Controller) error {
				n := inFlight.Add(1)
				if n > maxInFlight.Load() {
					maxInFlight.Store(n)
				}
				counter++
				inFlight.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()
	if counter != 32 || maxInFlight.Load() != 1 {
		t.Fatalf("expected 32 serialized actions, got %d with max concurrency %d", counter, maxInFlight.Load())
	}
}

func TestDoStampsSessionAndRequest(t *testing.T) {
	host := startHost(t, testsupport.NewConfig(t))
	var sessionID, requestID string
	err := host.Do(context.Background(), func(ctx context.Context, _ *workflow.Controller) error {
		sessionID, _ = services.SessionIDFromContext(ctx)
		requestID, _ = services.RequestIDFromContext(ctx)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if sessionID != host.Info().ID || requestID == "" {
		t.Fatalf("unexpected ids session=%q request=%q", sessionID, requestID)
	}
}

func TestDoPropagatesErrors(t *testing.T) {
	host := startHost(t, testsupport.NewConfig(t))
	want := errors.New("boom")
	if err := host.Do(context.Background(), func(context.Context, *workflow.Controller) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected action error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := host.Do(ctx, func(context.Context, *workflow.Controller) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestStopReleasesHandles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctrl := newController(t, cfg)
	host, err := session.New(cfg, nil, ctrl)
	if err != nil {
		t.Fatal(err)
	}
	if err := host.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	err = host.Do(context.Background(), func(ctx context.Context, c *workflow.Controller) error {
		if err := c.SubmitFile(ctx, heif.File{Name: "photo.heic", Data: testsupport.HEICHeader("heic")}); err != nil {
			return err
		}
		return c.StartCrop(ctx)
	})
	if err != nil {
		t.Fatal(err)
	}
	sess := ctrl.Session()

	host.Stop()
	host.Stop()
	if ctrl.Ledger().Len() != 0 || ctrl.State() != workflow.StateIdle {
		t.Fatalf("stop must release everything, got %s with %d handles", ctrl.State(), ctrl.Ledger().Len())
	}
	if !sess.Widget().Destroyed() {
		t.Fatal("stop must destroy the crop widget")
	}
	if err := host.Do(context.Background(), func(context.Context, *workflow.Controller) error { return nil }); !errors.Is(err, session.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning after stop, got %v", err)
	}
}
