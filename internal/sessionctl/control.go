// Package sessionctl launches, inspects, and stops the background session
// process on behalf of the CLI.
package sessionctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"heicrop/internal/config"
	"heicrop/internal/deps"
	"heicrop/internal/ipc"
	"heicrop/internal/preflight"
)

const pollInterval = 200 * time.Millisecond

// ErrNotRunning indicates the session socket is unavailable.
var ErrNotRunning = errors.New("heicrop session not running")

// LaunchOptions controls session process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// StartState describes what EnsureStarted found or did.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures session start orchestration state.
type StartResult struct {
	State     StartState
	SessionID string
	PID       int
}

// StopResult captures session stop outcome.
type StopResult struct {
	Acknowledged bool
	ForcedKill   bool
	PID          int
}

// Launch starts a detached "heicrop session serve" process in its own
// process group.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return errors.New("resolve executable: executable path is empty")
	}

	args := []string{"session", "serve"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch session: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for the session socket and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(pollInterval)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for session")
	}
	return nil, fmt.Errorf("session failed to start: %w", lastErr)
}

// EnsureStarted connects to a running session or launches one.
func EnsureStarted(ctx context.Context, socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	state := StartStateAlreadyRunning
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if launchErr := Launch(executablePath, opts); launchErr != nil {
			return StartResult{}, launchErr
		}
		client, err = WaitForClient(socketPath, waitTimeout)
		if err != nil {
			return StartResult{}, err
		}
		state = StartStateStarted
	}
	defer client.Close()

	status, err := client.Status(ctx)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{State: state, SessionID: status.Session.ID, PID: status.Session.PID}, nil
}

// WaitForShutdown waits for the session socket to stop answering.
func WaitForShutdown(ctx context.Context, socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if unavailable(err) {
				return nil
			}
			time.Sleep(pollInterval)
			continue
		}
		_, statusErr := client.Status(ctx)
		_ = client.Close()
		var remote *ipc.RemoteError
		if errors.As(statusErr, &remote) && remote.NotRunning() {
			return nil
		}
		time.Sleep(pollInterval)
	}
	return errors.New("session did not stop before the deadline")
}

// Stop asks the session to shut down and kills it when it outlives
// gracePeriod.
func Stop(ctx context.Context, socketPath string, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if unavailable(err) {
			return StopResult{}, ErrNotRunning
		}
		return StopResult{}, err
	}
	var result StopResult
	if status, err := client.Status(ctx); err == nil {
		result.PID = status.Session.PID
	}
	resp, err := client.Shutdown(ctx)
	_ = client.Close()
	if err != nil {
		return result, err
	}
	result.Acknowledged = resp.Stopping

	if err := WaitForShutdown(ctx, socketPath, gracePeriod); err == nil {
		return result, nil
	}
	if err := forceKill(result.PID); err != nil {
		return result, fmt.Errorf("failed to stop session process: %w", err)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	return result, nil
}

func forceKill(pid int) error {
	if pid <= 0 {
		return errors.New("unable to determine session pid")
	}
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill session process %d: %w", pid, err)
	}
	return nil
}

func unavailable(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// Snapshot is the status view used by "heicrop session status"; it works
// whether or not a session is running.
type Snapshot struct {
	Running           bool                `json:"running"`
	Status            *ipc.StatusResponse `json:"status,omitempty"`
	Dependencies      []deps.Status       `json:"dependencies"`
	DependencySummary DependencySummary   `json:"dependency_summary"`
}

// BuildSnapshot queries the session when reachable and falls back to local
// dependency checks otherwise.
func BuildSnapshot(ctx context.Context, cfg *config.Config) (Snapshot, error) {
	if cfg == nil {
		return Snapshot{}, errors.New("configuration not available")
	}
	var snap Snapshot
	if client, err := ipc.Dial(cfg.Paths.SocketPath); err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(ctx); statusErr == nil {
			snap.Running = resp.Session.Running
			snap.Status = resp
			snap.Dependencies = resp.Dependencies
		}
	}
	if len(snap.Dependencies) == 0 {
		snap.Dependencies = preflight.CheckSystemDeps(ctx, cfg)
	}
	snap.DependencySummary = SummarizeDependencies(snap.Dependencies)
	return snap, nil
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missing_required"`
	MissingOptional int    `json:"missing_optional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// SummarizeDependencies computes aggregate dependency readiness.
func SummarizeDependencies(statuses []deps.Status) DependencySummary {
	if len(statuses) == 0 {
		return DependencySummary{Severity: "info", Detail: "No dependency checks configured"}
	}

	var summary DependencySummary
	summary.Total = len(statuses)
	for _, dep := range statuses {
		switch {
		case dep.Available:
			summary.Available++
		case dep.Optional:
			summary.MissingOptional++
		default:
			summary.MissingRequired++
		}
	}

	summary.Severity = "ok"
	if summary.MissingRequired > 0 {
		summary.Severity = "error"
	} else if summary.MissingOptional > 0 {
		summary.Severity = "warn"
	}
	summary.Detail = fmt.Sprintf("%d/%d available", summary.Available, summary.Total)
	if summary.Available < summary.Total {
		summary.Detail += fmt.Sprintf(" (missing: %d required, %d optional)", summary.MissingRequired, summary.MissingOptional)
	}
	return summary
}
