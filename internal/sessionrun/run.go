// Package sessionrun hosts the long-lived heicrop session process behind
// "heicrop session serve".
package sessionrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"heicrop/internal/config"
	"heicrop/internal/deps"
	"heicrop/internal/ipc"
	"heicrop/internal/logging"
	"heicrop/internal/preflight"
	"heicrop/internal/session"
	"heicrop/internal/stage"
	"heicrop/internal/workflow"
)

// Options configures session process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run serves one interactive session until a signal arrives or a client
// requests shutdown.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logPath := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if failed := preflight.Failed(preflight.RunAll(signalCtx, cfg)); len(failed) > 0 {
		for _, result := range failed {
			logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldErrorHint, "run heicrop deps and fix the reported check"),
			)
		}
		return fmt.Errorf("preflight failed: %s", failed[0].Name)
	}

	dependencies := preflight.CheckSystemDeps(signalCtx, cfg)
	logDependencySnapshot(logger, cfg, dependencies)

	ctrl, err := workflow.NewController(cfg, logger)
	if err != nil {
		return fmt.Errorf("create workflow: %w", err)
	}
	for _, h := range stage.Blocking(ctrl.Status(signalCtx).StageHealth) {
		logging.WarnWithContext(logger, "stage not ready", "stage_unready",
			logging.String("stage", h.Name),
			logging.String("detail", h.Detail),
		)
	}

	host, err := session.New(cfg, logger, ctrl)
	if err != nil {
		return err
	}
	if err := host.Start(signalCtx); err != nil {
		return err
	}
	defer host.Stop()

	runCtx, shutdown := context.WithCancel(signalCtx)
	defer shutdown()

	ipcServer, err := ipc.NewServer(runCtx, cfg.Paths.SocketPath, host, logger, ipc.ServerOptions{
		LogPath:      logPath,
		Dependencies: dependencies,
		Shutdown:     shutdown,
	})
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-runCtx.Done()
	logger.Info("heicrop session shutting down",
		logging.String(logging.FieldEventType, "session_shutdown"),
		logging.Bool("signaled", signalCtx.Err() != nil),
	)
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config, statuses []deps.Status) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("backend", cfg.Conversion.Backend),
		logging.String("export_dir", cfg.Paths.ExportDir),
	}
	for _, status := range statuses {
		attrs = append(attrs,
			logging.Bool(status.Name+"_available", status.Available),
			logging.String(status.Name+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
