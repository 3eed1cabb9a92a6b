//go:build windows

// Package windows provides Windows-specific platform implementations.
package windows

import "github.com/darkawower/autodark/internal/platform"

func init() {
	platform.Register("windows", func() platform.Platform {
		return New()
	})
}

// Platform implements platform.Platform for Windows.
type Platform struct {
	theme     *ThemeService
	manager   *ThemeManager
	scheduler *SchedulerService
	autostart *AutostartService
}

// New creates a new Windows platform instance.
func New() *Platform {
	return &Platform{
		theme:     NewThemeService(),
		manager:   NewThemeManager(),
		scheduler: NewSchedulerService(),
		autostart: NewAutostartService(),
	}
}

// Name returns the platform identifier.
func (p *Platform) Name() string {
	return "windows"
}

// IsSupported returns true as Windows is fully supported.
func (p *Platform) IsSupported() bool {
	return true
}

// Theme returns the theme detection service.
func (p *Platform) Theme() platform.ThemeService {
	return p.theme
}

// ThemeManager returns the IThemeManager2 backed catalog.
func (p *Platform) ThemeManager() platform.ThemeManager {
	return p.manager
}

// Scheduler returns the Task Scheduler service.
func (p *Platform) Scheduler() platform.SchedulerService {
	return p.scheduler
}

// Autostart returns the Run key service.
func (p *Platform) Autostart() platform.AutostartService {
	return p.autostart
}

// Compile-time check that Platform implements platform.Platform.
var _ platform.Platform = (*Platform)(nil)
