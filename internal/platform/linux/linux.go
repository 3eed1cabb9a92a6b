//go:build linux

// Package linux provides Linux desktop platform implementations.
package linux

import "github.com/darkawower/autodark/internal/platform"

func init() {
	platform.Register("linux", func() platform.Platform {
		return New()
	})
}

// Platform implements platform.Platform for freedesktop sessions.
type Platform struct {
	theme     *ThemeService
	manager   *GtkThemeManager
	autostart *AutostartService
}

// New creates a new Linux platform instance.
func New() *Platform {
	return &Platform{
		theme:     NewThemeService(),
		manager:   NewGtkThemeManager(),
		autostart: NewAutostartService(),
	}
}

func (p *Platform) Name() string {
	return "linux"
}

func (p *Platform) IsSupported() bool {
	return true
}

func (p *Platform) Theme() platform.ThemeService {
	return p.theme
}

func (p *Platform) ThemeManager() platform.ThemeManager {
	return p.manager
}

// Scheduler is not implemented; systemd timers are left to the user.
func (p *Platform) Scheduler() platform.SchedulerService {
	return unsupportedScheduler{}
}

func (p *Platform) Autostart() platform.AutostartService {
	return p.autostart
}

var _ platform.Platform = (*Platform)(nil)

type unsupportedScheduler struct{}

func (unsupportedScheduler) Install(platform.SchedulerConfig) error { return platform.ErrUnsupported }
func (unsupportedScheduler) Uninstall(string) error                 { return platform.ErrUnsupported }
func (unsupportedScheduler) Status(string) (platform.SchedulerStatus, error) {
	return platform.SchedulerStatus{}, platform.ErrUnsupported
}
func (unsupportedScheduler) IsSupported() bool { return false }
