package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"heicrop/internal/config"
	"heicrop/internal/logging"
	"heicrop/internal/services"
	"heicrop/internal/workflow"
)

// ErrNotRunning is returned by Do when the event loop is not accepting work.
var ErrNotRunning = errors.New("session host not running")

// Action is one unit of work run on the event loop.
type Action func(ctx context.Context, c *workflow.Controller) error

type request struct {
	ctx    context.Context
	action Action
	done   chan error
}

// Host serializes access to one workflow controller.
type Host struct {
	cfg    *config.Config
	logger *slog.Logger
	ctrl   *workflow.Controller

	id       string
	lockPath string
	lock     *flock.Flock
	started  time.Time

	requests chan request
	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// Info describes a running host.
type Info struct {
	ID         string    `json:"id"`
	PID        int       `json:"pid"`
	Running    bool      `json:"running"`
	Started    time.Time `json:"started"`
	LockPath   string    `json:"lock_path"`
	SocketPath string    `json:"socket_path"`
}

// New constructs a host around ctrl.
func New(cfg *config.Config, logger *slog.Logger, ctrl *workflow.Controller) (*Host, error) {
	if cfg == nil || ctrl == nil {
		return nil, errors.New("session host requires config and controller")
	}
	lockPath := cfg.LockPath()
	return &Host{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "session"),
		ctrl:     ctrl,
		id:       uuid.NewString(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		requests: make(chan request),
	}, nil
}

// Start acquires the session lock and starts the event loop.
func (h *Host) Start(ctx context.Context) error {
	if h.running.Load() {
		return errors.New("session host already running")
	}

	ok, err := h.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another heicrop session is already running")
	}

	h.ctx, h.cancel = context.WithCancel(services.WithSessionID(ctx, h.id))
	h.done = make(chan struct{})
	h.started = time.Now()
	h.running.Store(true)
	go h.loop()

	h.logger.Info("heicrop session started",
		logging.String(logging.FieldEventType, "session_start"),
		logging.String(logging.FieldSessionID, h.id),
		logging.String("lock", h.lockPath),
	)
	return nil
}

// Stop cancels the loop, waits for the in-flight request, releases every
// image handle, and drops the lock.
func (h *Host) Stop() {
	if !h.running.Swap(false) {
		return
	}
	h.cancel()
	<-h.done
	h.ctrl.Close(context.WithoutCancel(h.ctx))

	if err := h.lock.Unlock(); err != nil {
		logging.WarnWithContext(h.logger, "failed to release session lock", "session_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next session start may report a stale lock"),
		)
	}
	h.logger.Info("heicrop session stopped", logging.String(logging.FieldSessionID, h.id))
}

// Do runs action on the event loop and returns its error. It blocks until
// the action finishes, ctx ends, or the host stops.
func (h *Host) Do(ctx context.Context, action Action) error {
	if !h.running.Load() {
		return ErrNotRunning
	}
	req := request{ctx: ctx, action: action, done: make(chan error, 1)}
	select {
	case h.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrNotRunning
	}
	select {
	case err := <-req.done:
		return err
	case <-h.done:
		return ErrNotRunning
	}
}

// Info reports host identity and lock location.
func (h *Host) Info() Info {
	return Info{
		ID:         h.id,
		PID:        os.Getpid(),
		Running:    h.running.Load(),
		Started:    h.started,
		LockPath:   h.lockPath,
		SocketPath: h.cfg.Paths.SocketPath,
	}
}

func (h *Host) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			return
		case req := <-h.requests:
			req.done <- h.run(req)
		}
	}
}

// run executes one request under a context that ends with either the host or
// the caller, stamped with a fresh request id.
func (h *Host) run(req request) error {
	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	stop := context.AfterFunc(req.ctx, cancel)
	defer stop()
	ctx = services.WithRequestID(ctx, uuid.NewString())

	if err := req.ctx.Err(); err != nil {
		return err
	}
	return req.action(ctx, h.ctrl)
}
