package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/darkawower/autodark/internal/config"
	"github.com/darkawower/autodark/internal/platform"
	"github.com/darkawower/autodark/internal/schedule"
	"github.com/darkawower/autodark/internal/theme"
)

type jobKind int

const (
	// jobEvaluate applies the scheduled theme.
	jobEvaluate jobKind = iota
	// jobPin applies a theme and holds it until the next transition.
	jobPin
	// jobSwap pins the opposite of the detected theme.
	jobSwap
	// jobLocation refreshes coordinates, then evaluates.
	jobLocation
)

type job struct {
	kind   jobKind
	reason string
	theme  platform.Theme
	// force applies even when the desired theme already appears active.
	force bool
}

// submit places j in the one-slot queue. A queued job that has not started
// yet is replaced.
func (s *Service) submit(j job) {
	for {
		select {
		case s.queue <- j:
			return
		default:
		}

		select {
		case old := <-s.queue:
			s.logger.Debug("dropping superseded job", zap.String("reason", old.reason), zap.String("by", j.reason))
		default:
		}
	}
}

func (s *Service) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if ctx.Err() != nil {
				return
			}
			// A cycle in flight is not interrupted by shutdown.
			s.run(context.WithoutCancel(ctx), j)
		}
	}
}

func (s *Service) run(ctx context.Context, j job) {
	log := s.logger.With(zap.String("reason", j.reason))

	switch j.kind {
	case jobLocation:
		s.refreshLocation(ctx)
		j.force = true
	case jobSwap:
		j.theme = s.platform.Theme().Detect().Opposite()
		j.kind = jobPin
	}

	now := s.now()
	decision, err := schedule.New(s.config().Schedule, s.coordinates).Desired(now)
	if err != nil {
		log.Error("failed to evaluate schedule", zap.Error(err))
		return
	}
	if decision.Fallback {
		log.Debug("no location known, using fixed times")
	}

	want := decision.Theme
	if j.kind == jobPin {
		want = j.theme
		if want == decision.Theme {
			s.state.ClearOverride()
		} else {
			s.state.SetOverride(string(want), decision.Next)
		}
	} else if pinned, ok := s.state.ActiveOverride(now); ok {
		want = platform.Theme(pinned)
	}

	if !j.force && j.kind != jobPin && s.isActive(want) {
		log.Debug("theme already active", zap.Stringer("theme", want))
		return
	}

	res := s.apply(ctx, want, j.reason)
	if res.Success && res.Found {
		if err := s.state.Save(); err != nil {
			log.Warn("failed to save state", zap.Error(err))
		}
	}
}

func (s *Service) isActive(want platform.Theme) bool {
	return s.state.CurrentApplied().Theme == string(want) && s.platform.Theme().Detect() == want
}

func (s *Service) coordinates() (lat, lon float64, ok bool) {
	loc, ok := s.state.GetLocation()
	return loc.Latitude, loc.Longitude, ok
}

func (s *Service) refreshLocation(ctx context.Context) {
	c, err := s.locator.LookupSilently(ctx)
	if err != nil {
		s.logger.Warn("location lookup failed", zap.Error(err))
		return
	}
	s.state.SetLocation(c.Latitude, c.Longitude)
	if err := s.state.Save(); err != nil {
		s.logger.Warn("failed to save state", zap.Error(err))
	}
}

// apply resolves the configured theme for want, falling back to its file
// path when the catalog has no match, and learns the applied name.
func (s *Service) apply(ctx context.Context, want platform.Theme, origin string) theme.Result {
	cfg := s.config()
	tc := *cfg.GetThemeConfig(config.ThemeMode(want))
	log := s.logger.With(zap.Stringer("theme", want), zap.String("reason", origin))

	res := s.engine.Resolve(ctx, theme.Request{DisplayName: tc.DisplayName, OriginPath: tc.Path})
	if !res.Found && res.Err == nil && cfg.Service.PathFallback && tc.Path != "" {
		log.Info("falling back to theme file", zap.String("path", tc.Path))
		res = s.engine.ApplyPath(ctx, tc.Path)
	}

	if !res.Success || !res.Found {
		return res
	}

	if tc.DisplayName != "" && res.Applied != "" {
		s.cache.Record(tc.DisplayName, res.Applied)
	}
	s.state.SetCurrent(string(want), res.Applied, origin)
	return res
}
