package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/darkawower/autodark/internal/command"
)

const (
	defaultClientTimeout = 3 * time.Second
	defaultStartWait     = 5 * time.Second
	readyPollInterval    = 100 * time.Millisecond
)

// Client sends commands to the service.
type Client struct {
	addr      string
	timeout   time.Duration
	startWait time.Duration
	classic   bool
	logger    *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds dialing and each request/response exchange.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithStartWait bounds how long SendOrStart waits for a started service.
func WithStartWait(d time.Duration) ClientOption {
	return func(c *Client) {
		c.startWait = d
	}
}

// WithClassicMode makes the client shut the service down after every
// command, so a one-shot front-end never leaves it resident.
func WithClassicMode(enabled bool) ClientOption {
	return func(c *Client) {
		c.classic = enabled
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for addr. An empty addr means DefaultAddr.
func NewClient(addr string, opts ...ClientOption) *Client {
	if addr == "" {
		addr = DefaultAddr
	}
	c := &Client{
		addr:      addr,
		timeout:   defaultClientTimeout,
		startWait: defaultStartWait,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send delivers token and returns the service's response. An unreachable
// service yields a *DeliveryError; an error response yields a *RemoteError.
func (c *Client) Send(ctx context.Context, token string) (Response, error) {
	resp, err := c.roundTrip(ctx, token)
	if err != nil {
		return Response{}, err
	}

	if c.classic && token != command.Shutdown.Token() {
		if _, err := c.roundTrip(ctx, command.Shutdown.Token()); err != nil {
			c.logger.Warn("failed to send shutdown after command", zap.Error(err))
		}
	}

	return resp, resp.Err()
}

// SendOrStart sends token; if nothing is listening it calls start once,
// waits for the service to listen and retries once. Failures after the
// connection was made are returned as is, since the service may already
// have acted on the command.
func (c *Client) SendOrStart(ctx context.Context, token string, start func() error) (Response, error) {
	resp, err := c.Send(ctx, token)

	var derr *DeliveryError
	if start == nil || !errors.As(err, &derr) || derr.Op != "dial" {
		return resp, err
	}

	c.logger.Info("service not reachable, starting it", zap.String("addr", c.addr))
	if err := start(); err != nil {
		return Response{}, fmt.Errorf("failed to start service: %w", err)
	}
	if err := c.WaitReady(ctx, c.startWait); err != nil {
		return Response{}, err
	}

	return c.Send(ctx, token)
}

// Ping reports whether something accepts connections on the service
// address. It dials once and sends nothing.
func (c *Client) Ping(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return &DeliveryError{Addr: c.addr, Op: "dial", Err: err}
	}
	return conn.Close()
}

// WaitReady polls until the service accepts connections or d elapses.
func (c *Client) WaitReady(ctx context.Context, d time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(ctx, "tcp", c.addr)
		if err == nil {
			conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return &DeliveryError{Addr: c.addr, Op: "wait", Err: err}
		case <-ticker.C:
		}
	}
}

func (c *Client) roundTrip(ctx context.Context, token string) (Response, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return Response{}, &DeliveryError{Addr: c.addr, Op: "dial", Err: err}
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write([]byte(token + "\n")); err != nil {
		return Response{}, &DeliveryError{Addr: c.addr, Op: "write", Err: err}
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return Response{}, &DeliveryError{Addr: c.addr, Op: "read", Err: err}
	}

	resp, err := ParseResponse(line)
	if err != nil {
		return Response{}, err
	}
	c.logger.Debug("command delivered", zap.String("token", token), zap.Stringer("response", resp))
	return resp, nil
}
