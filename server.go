// Package sketchroom composes the drawing service: the SQLite-backed
// chatlog, the HTTP API, and the room broadcast socket.
package sketchroom

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/sketchroom/httpapi"
	"pkt.systems/sketchroom/internal/appconfig"
	"pkt.systems/sketchroom/internal/auth"
	"pkt.systems/sketchroom/internal/chatlog"
	"pkt.systems/sketchroom/internal/token"
	"pkt.systems/sketchroom/wsserver"
)

// Server composes the HTTP API and socket services.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP   bool
	enableSocket bool
}

// WithHTTP enables the HTTP API server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSocket enables the room broadcast socket server.
func WithSocket() ServerOption {
	return func(o *serverOptions) { o.enableSocket = true }
}

// New constructs a composable sketchroom server.
func New(cfg appconfig.Config, logger pslog.Logger, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableSocket {
		return nil, errors.New("no services enabled")
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	store, err := chatlog.NewStore(cfg.Database.Path, logger)
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewManager(cfg.Auth.TokenSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var httpSrv *httpapi.Server
	if options.enableHTTP {
		authSvc, err := auth.NewService(store, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		httpSrv, err = httpapi.NewServer(httpapi.Config{
			Addr:         cfg.HTTP.Addr,
			HistoryLimit: cfg.HTTP.HistoryLimit,
		}, store, authSvc, tokens, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	var socketSrv *wsserver.Server
	if options.enableSocket {
		socketSrv, err = wsserver.New(wsserver.Config{
			Addr:           cfg.Socket.Addr,
			ReadLimitBytes: cfg.Socket.ReadLimitBytes,
			SendBuffer:     cfg.Socket.SendBuffer,
		}, wsserver.Deps{
			Log:    store,
			Tokens: tokens,
			Logger: logger,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return &compositeServer{
		cfg:       cfg,
		options:   options,
		store:     store,
		httpSrv:   httpSrv,
		socketSrv: socketSrv,
	}, nil
}

type compositeServer struct {
	cfg       appconfig.Config
	options   serverOptions
	store     *chatlog.Store
	httpSrv   *httpapi.Server
	socketSrv *wsserver.Server
	logger    pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"socket", s.options.enableSocket,
		"http_addr", s.cfg.HTTP.Addr,
		"socket_addr", s.cfg.Socket.Addr,
		"database", s.cfg.Database.Path,
	)
	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.options.enableSocket && s.socketSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.Socket.Addr, s.socketSrv.Handler()); err != nil {
				log.Error("socket server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Warn("server chatlog close failed", "err", err)
		}
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
