package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"heicrop/internal/deps"
	"heicrop/internal/heif"
	"heicrop/internal/ledger"
	"heicrop/internal/logging"
	"heicrop/internal/logs"
	"heicrop/internal/services"
	"heicrop/internal/session"
	"heicrop/internal/workflow"
)

const (
	// ServiceName is the JSON-RPC receiver name.
	ServiceName = "Heicrop"

	shutdownGrace = 100 * time.Millisecond
)

// ServerOptions carries what the server reports besides the workflow.
type ServerOptions struct {
	LogPath      string
	Dependencies []deps.Status
	// Shutdown is invoked after a Shutdown request has been answered.
	Shutdown func()
}

// Server exposes a session host via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, host *session.Host, logger *slog.Logger, opts ServerOptions) (*Server, error) {
	if host == nil {
		return nil, errors.New("ipc server requires session host")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{host: host, logger: logger, ctx: serverCtx, opts: opts}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting RPC connections until Close is called.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				if s.ctx.Err() != nil {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the session if needed"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server, drops open connections, and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun heicrop session stop"))
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

type service struct {
	host   *session.Host
	logger *slog.Logger
	ctx    context.Context
	opts   ServerOptions
}

// act runs fn on the host loop and fills resp with the resulting workflow
// state. Stage errors land in resp.Error; host errors are returned.
func (s *service) act(name string, resp *ActionResponse, fn func(context.Context, *workflow.Controller) error) error {
	s.logger.Debug("ipc action requested", logging.String("operation", name))
	err := s.host.Do(s.ctx, func(ctx context.Context, c *workflow.Controller) error {
		stageErr := fn(ctx, c)
		resp.State = c.State()
		resp.Message = c.Message()
		if stageErr != nil {
			details := services.Details(stageErr)
			resp.Error = &workflow.ErrorSummary{Kind: details.Kind, Message: details.Message, Hint: details.Hint}
		}
		return nil
	})
	return encodeError(err)
}

func (s *service) Submit(req SubmitRequest, resp *ActionResponse) error {
	file := heif.File{Name: req.Name, Data: req.Data}
	return s.act("submit_file", resp, func(ctx context.Context, c *workflow.Controller) error {
		return c.SubmitFile(ctx, file)
	})
}

func (s *service) StartCrop(_ StartCropRequest, resp *ActionResponse) error {
	return s.act("start_crop", resp, func(ctx context.Context, c *workflow.Controller) error {
		return c.StartCrop(ctx)
	})
}

func (s *service) ApplyCrop(_ ApplyCropRequest, resp *ActionResponse) error {
	return s.act("apply_crop", resp, func(ctx context.Context, c *workflow.Controller) error {
		return c.ApplyCrop(ctx)
	})
}

func (s *service) ResetCrop(_ ResetCropRequest, resp *ActionResponse) error {
	return s.act("reset_crop", resp, func(ctx context.Context, c *workflow.Controller) error {
		return c.ResetCrop(ctx)
	})
}

func (s *service) NewImage(_ NewImageRequest, resp *ActionResponse) error {
	return s.act("new_image", resp, func(ctx context.Context, c *workflow.Controller) error {
		return c.NewImage(ctx)
	})
}

func (s *service) Adjust(req AdjustRequest, resp *ActionResponse) error {
	adj := req.Adjustment
	return s.act("adjust", resp, func(ctx context.Context, c *workflow.Controller) error {
		return c.Adjust(ctx, adj)
	})
}

func (s *service) Download(req DownloadRequest, resp *DownloadResponse) error {
	return s.act("download", &resp.ActionResponse, func(ctx context.Context, c *workflow.Controller) error {
		path, err := c.Download(ctx, req.Name)
		resp.Path = path
		return err
	})
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Session = s.host.Info()
	resp.Dependencies = s.opts.Dependencies
	resp.LogPath = s.opts.LogPath
	err := s.host.Do(s.ctx, func(ctx context.Context, c *workflow.Controller) error {
		resp.Workflow = c.Status(ctx)
		return nil
	})
	return encodeError(err)
}

func (s *service) Preview(req PreviewRequest, resp *PreviewResponse) error {
	tag, err := ledger.ParseTag(req.Tag)
	if err != nil {
		return encodeError(services.Wrap(services.ErrValidation, "ipc", "preview", err.Error(), nil))
	}
	err = s.host.Do(s.ctx, func(_ context.Context, c *workflow.Controller) error {
		h, ok := c.Preview(tag)
		if !ok {
			return services.Wrap(services.ErrValidation, "ipc", "preview",
				fmt.Sprintf("No %s image in state %s", tag, c.State()), nil)
		}
		data, err := h.Bytes()
		if err != nil {
			return services.Wrap(services.ErrValidation, "ipc", "preview", "Image no longer available", err)
		}
		resp.Handle = workflow.SummarizeHandle(h)
		resp.Data = data
		return nil
	})
	return encodeError(err)
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	if s.opts.LogPath == "" {
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, s.opts.LogPath, logs.TailOptions{
		Offset:   req.Offset,
		Limit:    req.Limit,
		Follow:   req.Follow,
		Wait:     wait,
		Contains: req.Contains,
	})
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return encodeError(err)
	}
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	if s.opts.Shutdown == nil {
		return encodeError(services.Wrap(services.ErrConfiguration, "ipc", "shutdown",
			"Session does not accept remote shutdown", nil))
	}
	s.logger.Info("session shutdown requested via IPC",
		logging.String(logging.FieldEventType, "session_shutdown_requested"))
	resp.Stopping = true
	// Let the reply reach the client before connections are torn down.
	time.AfterFunc(shutdownGrace, s.opts.Shutdown)
	return nil
}
