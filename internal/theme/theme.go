// Package theme resolves requested theme names against the native catalog
// and applies them.
package theme

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/darkawower/autodark/internal/isolate"
	"github.com/darkawower/autodark/internal/platform"
)

// ErrBusy is reported when a native call abandoned by an earlier cycle has
// not finished yet.
var ErrBusy = errors.New("previous native theme call still running")

// Request asks for a theme by display name. OriginPath records where the
// name came from and is used for logging and path fallback.
type Request struct {
	DisplayName string
	OriginPath  string
}

// Result is the outcome of a resolution. Found and Success are independent:
// Found=false, Success=true means there was nothing to apply.
type Result struct {
	Found   bool
	Success bool
	// Applied is the catalog name that was applied.
	Applied string
	// Err holds the cause when Success is false.
	Err error
}

// Names substitutes learned catalog names for requested ones.
type Names interface {
	Lookup(requested string) string
}

type identityNames struct{}

func (identityNames) Lookup(requested string) string { return requested }

// Engine serializes all native theme calls. At most one cycle runs at a time.
type Engine struct {
	manager platform.ThemeManager
	names   Names
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	inflight chan struct{}
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithNames sets the learned-name lookup.
func WithNames(names Names) Option {
	return func(e *Engine) {
		if names != nil {
			e.names = names
		}
	}
}

// WithTimeout bounds each native round trip.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// New creates a new Engine over manager.
func New(manager platform.ThemeManager, opts ...Option) *Engine {
	e := &Engine{
		manager: manager,
		names:   identityNames{},
		logger:  zap.NewNop(),
		timeout: isolate.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type scan struct {
	match    *platform.ThemeDescriptor
	catalog  []string
	applyErr error
}

// Resolve finds req.DisplayName in the catalog and applies it by index.
func (e *Engine) Resolve(ctx context.Context, req Request) Result {
	if req.DisplayName == "" {
		return Result{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	name := e.names.Lookup(req.DisplayName)
	log := e.logger.With(zap.String("theme", name), zap.String("origin", req.OriginPath))
	if name != req.DisplayName {
		log = log.With(zap.String("requested", req.DisplayName))
	}

	// matched is set before applying so a failure inside SetByIndex still
	// reports the theme as found.
	var matched atomic.Bool
	out, err := invoke(ctx, e, "resolve", func(sess platform.ThemeSession) (scan, error) {
		themes, err := sess.Themes()
		if err != nil {
			return scan{}, err
		}
		var s scan
		for i := range themes {
			if themes[i].DisplayName == name {
				s.match = &themes[i]
				matched.Store(true)
				s.applyErr = sess.SetByIndex(themes[i].Index)
				return s, nil
			}
			s.catalog = append(s.catalog, themes[i].DisplayName)
		}
		return s, nil
	})
	if err != nil {
		logFailure(log, "theme resolution failed", err)
		return Result{Found: matched.Load(), Err: err}
	}

	if out.match == nil {
		fields := []zap.Field{zap.Int("catalog_size", len(out.catalog))}
		if hint := closest(name, out.catalog); hint != "" {
			fields = append(fields, zap.String("closest", hint))
		}
		log.Info("theme not present in catalog", fields...)
		return Result{Found: false, Success: true}
	}

	if out.applyErr != nil {
		logFailure(log.With(zap.Int("index", out.match.Index)), "failed to apply theme", out.applyErr)
		return Result{Found: true, Err: out.applyErr}
	}

	log.Info("applied theme", zap.Int("index", out.match.Index))
	return Result{Found: true, Success: true, Applied: out.match.DisplayName}
}

// ApplyPath applies a theme file directly. Applied is filled from the
// catalog's current theme afterwards so callers can learn its name.
func (e *Engine) ApplyPath(ctx context.Context, path string) Result {
	if path == "" {
		return Result{}
	}
	log := e.logger.With(zap.String("path", path))

	if _, err := os.Stat(path); err != nil {
		log.Info("theme file not found", zap.Error(err))
		return Result{Found: false, Success: true}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := invoke(ctx, e, "apply-path", func(sess platform.ThemeSession) (platform.ThemeDescriptor, error) {
		if err := sess.SetByPath(path); err != nil {
			return platform.ThemeDescriptor{}, err
		}
		cur, err := sess.Current()
		if err != nil {
			log.Warn("applied theme file but could not read current theme", zap.Error(err))
			return platform.ThemeDescriptor{}, nil
		}
		return cur, nil
	})
	if err != nil {
		logFailure(log, "failed to apply theme file", err)
		return Result{Found: true, Err: err}
	}

	log.Info("applied theme file", zap.String("theme", current.DisplayName))
	return Result{Found: true, Success: true, Applied: current.DisplayName}
}

// Catalog lists the native catalog in its current order.
func (e *Engine) Catalog(ctx context.Context) ([]platform.ThemeDescriptor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return invoke(ctx, e, "catalog", func(sess platform.ThemeSession) ([]platform.ThemeDescriptor, error) {
		return sess.Themes()
	})
}

// invoke opens a session on a fresh isolated runner. The caller holds e.mu.
func invoke[T any](ctx context.Context, e *Engine, name string, work func(platform.ThemeSession) (T, error)) (T, error) {
	var zero T
	if e.inflight != nil {
		select {
		case <-e.inflight:
		default:
			return zero, ErrBusy
		}
	}

	done := make(chan struct{})
	e.inflight = done

	r := isolate.New(name, isolate.WithLogger(e.logger), isolate.WithTimeout(e.timeout))
	return isolate.Run(ctx, r, func() (T, error) {
		defer close(done)

		sess, err := e.manager.Open()
		if err != nil {
			return zero, err
		}
		defer func() {
			if cerr := sess.Close(); cerr != nil {
				e.logger.Debug("failed to close theme session", zap.Error(cerr))
			}
		}()

		return work(sess)
	})
}

func logFailure(log *zap.Logger, msg string, err error) {
	fields := []zap.Field{zap.Error(err)}
	if code, ok := platform.StatusCode(err); ok {
		fields = append(fields, zap.String("status", fmt.Sprintf("0x%08x", uint32(code))))
	}
	log.Error(msg, fields...)
}

func closest(name string, catalog []string) string {
	matches := fuzzy.Find(name, catalog)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
