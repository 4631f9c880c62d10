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

	"vidqueue/internal/daemon"
	"vidqueue/internal/logging"
	"vidqueue/internal/queue"
	"vidqueue/internal/services"
)

// ServiceName is the RPC service the daemon registers.
const ServiceName = "VidQueue"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. Shutdown,
// when non-nil, is invoked by the Shutdown RPC.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, shutdown func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
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
	srv := &service{daemon: d, logger: logger, ctx: serverCtx, shutdown: shutdown}
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
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

// begin stamps the request id onto the server context.
func (s *service) begin(req Request, method string) (context.Context, *slog.Logger) {
	ctx := services.WithRequestID(s.ctx, req.RequestID)
	logger := logging.WithContext(ctx, s.logger)
	logger.Debug("rpc call", logging.String("method", method))
	return ctx, logger
}

// result maps queue sentinels onto refusal codes. Unexpected errors are
// returned as RPC errors.
func result(err error, okMessage string) (Result, error) {
	if err == nil {
		return Result{OK: true, Message: okMessage}, nil
	}
	code := ""
	switch {
	case errors.Is(err, queue.ErrEmptyQueue):
		code = CodeEmptyQueue
	case errors.Is(err, queue.ErrJobRunning):
		code = CodeJobRunning
	case errors.Is(err, queue.ErrNotIdle):
		code = CodeNotIdle
	case errors.Is(err, queue.ErrUnknownRef):
		code = CodeUnknownRef
	case errors.Is(err, queue.ErrJobFinished):
		code = CodeJobFinished
	default:
		return Result{Code: CodeError, Message: err.Error()}, err
	}
	return Result{Code: code, Message: err.Error()}, nil
}

func (s *service) Add(req AddRequest, resp *AddResponse) error {
	ctx, logger := s.begin(req.Request, "Add")
	results, err := s.daemon.AddFiles(ctx, req.Paths)
	if err != nil {
		return err
	}
	resp.Results = make([]AddResult, 0, len(results))
	queued := 0
	for _, r := range results {
		item := AddResult{Source: r.Source, JobID: r.JobID, Steps: r.Steps}
		if r.Err != nil {
			item.Error = r.Err.Error()
		} else {
			queued++
		}
		resp.Results = append(resp.Results, item)
	}
	logger.Info("sources added via IPC",
		logging.Int("requested", len(req.Paths)),
		logging.Int("queued", queued),
		logging.String(logging.FieldEventType, "ipc_add"),
	)
	return nil
}

func (s *service) Start(req StartRequest, resp *StartResponse) error {
	ctx, _ := s.begin(req.Request, "Start")
	var err error
	resp.Result, err = result(s.daemon.StartQueue(ctx), "queue started")
	return err
}

func (s *service) Stop(req StopRequest, resp *StopResponse) error {
	ctx, _ := s.begin(req.Request, "Stop")
	var err error
	resp.Result, err = result(s.daemon.StopQueue(ctx), "queue stopped")
	return err
}

func (s *service) Delete(req DeleteRequest, resp *DeleteResponse) error {
	ctx, _ := s.begin(req.Request, "Delete")
	var err error
	resp.Result, err = result(s.daemon.Delete(ctx, req.JobID, req.Step), "job deleted")
	return err
}

func (s *service) Clear(req ClearRequest, resp *ClearResponse) error {
	ctx, _ := s.begin(req.Request, "Clear")
	var err error
	resp.Result, err = result(s.daemon.Clear(ctx), "queue cleared")
	return err
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	ctx, _ := s.begin(req.Request, "List")
	jobs, idle, err := s.daemon.Snapshot(ctx)
	if err != nil {
		return err
	}
	resp.Idle = idle
	resp.Jobs = make([]Job, 0, len(jobs))
	for _, view := range jobs {
		resp.Jobs = append(resp.Jobs, convertJob(view))
	}
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	ctx, _ := s.begin(req.Request, "History")
	runs, err := s.daemon.History(ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Runs = make([]Run, 0, len(runs))
	for _, run := range runs {
		resp.Runs = append(resp.Runs, Run{
			JobID:        run.JobID,
			Name:         run.Name,
			Outcome:      run.Outcome,
			FailedStep:   run.FailedStep,
			FailureKind:  run.FailureKind,
			ErrorMessage: run.ErrorMessage,
			Steps:        run.Steps,
			SubmittedAt:  run.SubmittedAt,
			FinishedAt:   run.FinishedAt,
			Duration:     run.Duration,
		})
	}
	return nil
}

func (s *service) Status(req StatusRequest, resp *StatusResponse) error {
	ctx, _ := s.begin(req.Request, "Status")
	status := s.daemon.Status(ctx)
	resp.Running = status.Running
	resp.QueueIdle = status.QueueIdle
	resp.Jobs = status.Jobs
	resp.JobCounts = status.JobCounts
	resp.Activity = status.Activity
	resp.LockPath = status.LockPath
	resp.SocketPath = status.SocketPath
	resp.HistoryPath = status.HistoryPath
	resp.LogPath = status.LogPath
	resp.PID = os.Getpid()
	resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		resp.Dependencies = append(resp.Dependencies, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return nil
}

func (s *service) TestNotification(req TestNotificationRequest, resp *TestNotificationResponse) error {
	ctx, _ := s.begin(req.Request, "TestNotification")
	sent, message, err := s.daemon.TestNotification(ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func (s *service) Shutdown(req ShutdownRequest, resp *ShutdownResponse) error {
	_, logger := s.begin(req.Request, "Shutdown")
	if s.shutdown == nil {
		return errors.New("shutdown not supported by this server")
	}
	logger.Info("daemon shutdown requested via IPC", logging.String(logging.FieldEventType, "ipc_shutdown"))
	resp.Accepted = true
	go s.shutdown()
	return nil
}

func convertJob(view queue.JobView) Job {
	job := Job{
		ID:        view.ID,
		Index:     view.Index,
		Name:      view.Name,
		Status:    view.Status.String(),
		Submitted: view.Submitted,
		Steps:     make([]Step, 0, len(view.Steps)),
	}
	for _, step := range view.Steps {
		job.Steps = append(job.Steps, Step{
			Index:    step.Index,
			Label:    step.Label,
			Status:   step.Status.String(),
			Progress: step.Progress,
			Error:    step.Error,
		})
	}
	return job
}
