package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/darkawower/autodark/internal/command"
)

const defaultIdleTimeout = time.Minute

// Server accepts command connections and dispatches each line.
type Server struct {
	addr        string
	dispatcher  *command.Dispatcher
	logger      *zap.Logger
	idleTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIdleTimeout closes connections that send nothing for d.
func WithIdleTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.idleTimeout = d
	}
}

// NewServer creates a server for addr. An empty addr means DefaultAddr.
func NewServer(addr string, d *command.Dispatcher, opts ...ServerOption) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:        addr,
		dispatcher:  d,
		logger:      zap.NewNop(),
		idleTimeout: defaultIdleTimeout,
		conns:       make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the address. A bind failure usually means another service
// instance owns the port.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then closes open
// connections and waits for their handlers.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	s.logger.Info("command channel listening", zap.String("addr", ln.Addr().String()))

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		s.closeConns()
	})
	defer stop()

	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info("command channel stopped")
				return nil
			}
			s.logger.Warn("failed to accept connection", zap.Error(err))
			continue
		}

		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	log := s.logger.With(zap.String("remote", conn.RemoteAddr().String()))
	scanner := bufio.NewScanner(conn)
	w := bufio.NewWriter(conn)

	for {
		if s.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && ctx.Err() == nil {
				log.Debug("connection closed", zap.Error(err))
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		resp := s.handleLine(ctx, log, line)
		if _, err := w.WriteString(resp.String() + "\n"); err != nil {
			log.Debug("failed to write response", zap.Error(err))
			return
		}
		if err := w.Flush(); err != nil {
			log.Debug("failed to write response", zap.Error(err))
			return
		}
	}
}

func (s *Server) handleLine(ctx context.Context, log *zap.Logger, line string) Response {
	cmd, ok := command.Parse(line)
	if !ok {
		log.Debug("ignoring unknown command", zap.String("line", line))
		return Response{Status: StatusIgnored}
	}

	log.Info("received command", zap.Stringer("command", cmd.Op))

	handled, err := s.dispatcher.Dispatch(ctx, cmd)
	switch {
	case err != nil:
		log.Warn("command failed", zap.Stringer("command", cmd.Op), zap.Error(err))
		return Response{Status: StatusError, Message: oneLine(err.Error())}
	case !handled:
		return Response{Status: StatusIgnored}
	default:
		return Response{Status: StatusOK}
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
