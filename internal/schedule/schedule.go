// Package schedule decides which theme is wanted at a given moment.
package schedule

import (
	"fmt"
	"time"

	"github.com/darkawower/autodark/internal/config"
	"github.com/darkawower/autodark/internal/platform"
)

// Coordinates supplies the last known location.
type Coordinates func() (lat, lon float64, ok bool)

// Decision is the wanted theme and when it next changes.
type Decision struct {
	Theme platform.Theme
	Next  time.Time
	// Source is "fixed", "time" or "location".
	Source string
	// Fallback is set when location scheduling was configured but no
	// coordinates were known.
	Fallback bool
}

// Schedule evaluates a schedule configuration.
type Schedule struct {
	cfg    config.ScheduleConfig
	coords Coordinates
}

// New creates a schedule. coords may be nil.
func New(cfg config.ScheduleConfig, coords Coordinates) *Schedule {
	return &Schedule{cfg: cfg, coords: coords}
}

// Desired returns the theme wanted at now.
func (s *Schedule) Desired(now time.Time) (Decision, error) {
	switch s.cfg.Mode {
	case config.ThemeModeLight:
		return Decision{Theme: platform.ThemeLight, Next: now.Add(24 * time.Hour), Source: "fixed"}, nil
	case config.ThemeModeDark:
		return Decision{Theme: platform.ThemeDark, Next: now.Add(24 * time.Hour), Source: "fixed"}, nil
	case config.ThemeModeAuto:
	default:
		return Decision{}, fmt.Errorf("unknown schedule mode %q", s.cfg.Mode)
	}

	if s.cfg.Source == config.SourceLocation {
		if lat, lon, ok := s.location(); ok {
			return s.bySun(now, lat, lon), nil
		}
		d, err := s.byClock(now)
		d.Fallback = true
		return d, err
	}
	return s.byClock(now)
}

func (s *Schedule) location() (lat, lon float64, ok bool) {
	if s.cfg.Latitude != 0 || s.cfg.Longitude != 0 {
		return s.cfg.Latitude, s.cfg.Longitude, true
	}
	if s.coords == nil {
		return 0, 0, false
	}
	return s.coords()
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *Schedule) byClock(now time.Time) (Decision, error) {
	lightAt, err := config.ParseClock(s.cfg.LightAt)
	if err != nil {
		return Decision{}, err
	}
	darkAt, err := config.ParseClock(s.cfg.DarkAt)
	if err != nil {
		return Decision{}, err
	}

	day := midnight(now)
	light := day.Add(lightAt)
	dark := day.Add(darkAt)

	d := Decision{Source: "time", Theme: platform.ThemeDark}
	if lightAt <= darkAt {
		if !now.Before(light) && now.Before(dark) {
			d.Theme = platform.ThemeLight
		}
	} else if !now.Before(light) || now.Before(dark) {
		d.Theme = platform.ThemeLight
	}

	d.Next = nextAfter(now, light, dark, light.AddDate(0, 0, 1), dark.AddDate(0, 0, 1))
	return d, nil
}

func (s *Schedule) bySun(now time.Time, lat, lon float64) Decision {
	d := Decision{Source: "location", Theme: platform.ThemeDark}
	riseOffset := time.Duration(s.cfg.SunriseOffset) * time.Minute
	setOffset := time.Duration(s.cfg.SunsetOffset) * time.Minute

	rise, set, kind := SunTimes(now, lat, lon)
	switch kind {
	case PolarNight:
		d.Next = midnight(now).AddDate(0, 0, 1)
		return d
	case MidnightSun:
		d.Theme = platform.ThemeLight
		d.Next = midnight(now).AddDate(0, 0, 1)
		return d
	}

	rise = rise.Add(riseOffset)
	set = set.Add(setOffset)

	switch {
	case now.Before(rise):
		d.Next = rise
	case now.Before(set):
		d.Theme = platform.ThemeLight
		d.Next = set
	default:
		tomorrowRise, _, kind := SunTimes(now.AddDate(0, 0, 1), lat, lon)
		if kind == NormalDay {
			d.Next = tomorrowRise.Add(riseOffset)
		} else {
			d.Next = midnight(now).AddDate(0, 0, 1)
		}
	}
	return d
}

func nextAfter(now time.Time, candidates ...time.Time) time.Time {
	var next time.Time
	for _, c := range candidates {
		if c.After(now) && (next.IsZero() || c.Before(next)) {
			next = c
		}
	}
	return next
}
