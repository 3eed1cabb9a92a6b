// Package service runs the resident theme service: a command channel and a
// timer feeding a single worker that drives the theme engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/darkawower/autodark/internal/command"
	"github.com/darkawower/autodark/internal/config"
	"github.com/darkawower/autodark/internal/ipc"
	"github.com/darkawower/autodark/internal/learned"
	"github.com/darkawower/autodark/internal/location"
	"github.com/darkawower/autodark/internal/platform"
	"github.com/darkawower/autodark/internal/state"
	"github.com/darkawower/autodark/internal/theme"
	"github.com/darkawower/autodark/internal/update"
)

// DefaultLabel names the scheduled task and autostart entry.
const DefaultLabel = "com.darkawower.autodark"

const defaultShutdownTimeout = 10 * time.Second

// ErrAlreadyRunning is returned when the command port is taken.
var ErrAlreadyRunning = errors.New("service already running")

// Locator resolves the current location.
type Locator interface {
	LookupSilently(ctx context.Context) (location.Coordinates, error)
}

// Updater checks for new releases.
type Updater interface {
	CheckForNewVersion(ctx context.Context) (update.VersionInfo, error)
}

// Service is the resident process.
type Service struct {
	cfgMu sync.RWMutex
	cfg   *config.Config

	state    *state.State
	cache    *learned.Cache
	engine   *theme.Engine
	platform platform.Platform
	locator  Locator
	updater  Updater
	server   *ipc.Server
	logger   *zap.Logger

	addr            string
	label           string
	version         string
	now             func() time.Time
	shutdownTimeout time.Duration

	queue  chan job
	bg     sync.WaitGroup
	cancel context.CancelFunc
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPlatform replaces platform.Current().
func WithPlatform(p platform.Platform) Option {
	return func(s *Service) {
		s.platform = p
	}
}

func WithLocator(l Locator) Option {
	return func(s *Service) {
		s.locator = l
	}
}

func WithUpdater(u Updater) Option {
	return func(s *Service) {
		s.updater = u
	}
}

// WithAddr overrides the configured command address.
func WithAddr(addr string) Option {
	return func(s *Service) {
		s.addr = addr
	}
}

// WithLabel sets the scheduled task and autostart label.
func WithLabel(label string) Option {
	return func(s *Service) {
		s.label = label
	}
}

// WithVersion sets the running version used by update checks.
func WithVersion(v string) Option {
	return func(s *Service) {
		s.version = v
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithShutdownTimeout bounds the wait for an in-flight theme cycle.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.shutdownTimeout = d
	}
}

// New wires a service from configuration and state.
func New(cfg *config.Config, st *state.State, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:             cfg,
		state:           st,
		logger:          zap.NewNop(),
		label:           DefaultLabel,
		version:         "dev",
		now:             time.Now,
		shutdownTimeout: defaultShutdownTimeout,
		queue:           make(chan job, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.platform == nil {
		s.platform = platform.Current()
	}
	if s.addr == "" {
		s.addr = cfg.Address()
	}
	if s.locator == nil {
		s.locator = location.New(cfg.Location.URL, location.WithLogger(s.logger.Named("location")))
	}
	if s.updater == nil {
		s.updater = update.New(cfg.Update.URL, s.version, update.WithLogger(s.logger.Named("update")))
	}

	cache, err := learned.New(st, learned.WithLogger(s.logger.Named("learned")))
	if err != nil {
		return nil, err
	}
	s.cache = cache

	s.engine = theme.New(s.platform.ThemeManager(),
		theme.WithLogger(s.logger.Named("theme")),
		theme.WithNames(cache),
		theme.WithTimeout(cfg.ApplyTimeout()),
	)

	s.server = ipc.NewServer(s.addr, s.dispatcher(), ipc.WithServerLogger(s.logger.Named("ipc")))
	return s, nil
}

// Cache exposes the learned-name cache.
func (s *Service) Cache() *learned.Cache {
	return s.cache
}

// Addr returns the bound command address once Run has started listening.
func (s *Service) Addr() string {
	if a := s.server.Addr(); a != nil {
		return a.String()
	}
	return s.addr
}

func (s *Service) config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

func (s *Service) setConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

// Listen binds the command address. Run calls it when needed.
func (s *Service) Listen() error {
	if err := s.server.Listen(); err != nil {
		return fmt.Errorf("%w: %v", ErrAlreadyRunning, err)
	}
	return nil
}

// Run serves until ctx is cancelled or a shutdown command arrives.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel

	s.logger.Info("service started", zap.String("addr", s.Addr()), zap.String("platform", s.platform.Name()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.server.Serve(gctx) })
	g.Go(func() error { return s.tick(gctx) })
	g.Go(func() error { return s.watchConfig(gctx) })

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		s.work(gctx)
	}()

	s.submit(job{kind: jobEvaluate, reason: "startup"})

	err := g.Wait()

	idle := make(chan struct{})
	go func() {
		<-workerDone
		s.bg.Wait()
		close(idle)
	}()

	select {
	case <-idle:
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn("background work still running at shutdown", zap.Duration("waited", s.shutdownTimeout))
	}

	if ferr := s.cache.Flush(); ferr != nil {
		s.logger.Error("failed to flush learned names", zap.Error(ferr))
	}
	if serr := s.state.Save(); serr != nil {
		s.logger.Error("failed to save state", zap.Error(serr))
	}

	s.logger.Info("service stopped")
	return err
}

func (s *Service) shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Service) tick(ctx context.Context) error {
	interval := s.config().Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.submit(job{kind: jobEvaluate, reason: "timer"})
			if err := s.cache.Flush(); err != nil {
				s.logger.Warn("failed to flush learned names", zap.Error(err))
			}
			if next := s.config().Interval(); next != interval {
				interval = next
				ticker.Reset(interval)
				s.logger.Info("timer interval changed", zap.Duration("interval", interval))
			}
		}
	}
}

func (s *Service) dispatcher() *command.Dispatcher {
	d := command.NewDispatcher()

	d.Handle(command.Switch, func(ctx context.Context, cmd command.Command) error {
		s.state.ClearOverride()
		s.submit(job{kind: jobEvaluate, reason: "switch", force: true})
		return nil
	})
	d.Handle(command.Dark, func(ctx context.Context, cmd command.Command) error {
		s.submit(job{kind: jobPin, reason: "dark", theme: platform.ThemeDark})
		return nil
	})
	d.Handle(command.Light, func(ctx context.Context, cmd command.Command) error {
		s.submit(job{kind: jobPin, reason: "light", theme: platform.ThemeLight})
		return nil
	})
	d.Handle(command.Swap, func(ctx context.Context, cmd command.Command) error {
		s.submit(job{kind: jobSwap, reason: "swap"})
		return nil
	})
	d.Handle(command.Location, func(ctx context.Context, cmd command.Command) error {
		s.submit(job{kind: jobLocation, reason: "location"})
		return nil
	})
	d.Handle(command.Update, func(ctx context.Context, cmd command.Command) error {
		s.checkUpdate(ctx)
		return nil
	})
	d.Handle(command.Forget, func(ctx context.Context, cmd command.Command) error {
		if cmd.Payload == "" {
			return errors.New("forget needs a theme name")
		}
		if !s.cache.Forget(cmd.Payload) {
			return fmt.Errorf("%w: %s", learned.ErrNotLearned, cmd.Payload)
		}
		s.logger.Info("forgot learned theme name", zap.String("requested", cmd.Payload))
		return s.cache.Flush()
	})
	d.Handle(command.RemoveScheduledTask, func(ctx context.Context, cmd command.Command) error {
		if err := s.platform.Scheduler().Uninstall(s.label); err != nil {
			s.logger.Warn("failed to remove scheduled task", zap.String("label", s.label), zap.Error(err))
		}
		return nil
	})
	d.Handle(command.RemoveAutostart, func(ctx context.Context, cmd command.Command) error {
		if err := s.platform.Autostart().Disable(s.label); err != nil {
			s.logger.Warn("failed to remove autostart entry", zap.String("label", s.label), zap.Error(err))
		}
		return nil
	})
	d.Handle(command.Test, func(ctx context.Context, cmd command.Command) error {
		return ipc.ErrTestCommand
	})
	d.Handle(command.Shutdown, func(ctx context.Context, cmd command.Command) error {
		s.logger.Info("shutdown requested")
		s.shutdown()
		return nil
	})

	return d
}

// checkUpdate runs in the background. ctx is the serving context, so the
// check is abandoned on shutdown.
func (s *Service) checkUpdate(ctx context.Context) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		info, err := s.updater.CheckForNewVersion(ctx)
		if err != nil {
			s.logger.Warn("update check failed", zap.Error(err))
			return
		}
		if info.Available {
			s.logger.Info("new version available", zap.String("version", info.Latest), zap.String("url", info.URL))
		}
	}()
}
