//go:build darwin

// Package darwin implements the platform services on macOS: the light/dark
// appearance as a two-entry catalog, launchd tasks and login agents.
package darwin

import "github.com/darkawower/autodark/internal/platform"

func init() {
	platform.Register("darwin", func() platform.Platform { return New() })
}

type Platform struct {
	theme      *ThemeService
	appearance *AppearanceManager
	scheduler  *SchedulerService
	autostart  *AutostartService
}

func New() *Platform {
	theme := NewThemeService()
	return &Platform{
		theme:      theme,
		appearance: &AppearanceManager{detector: theme},
		scheduler:  NewSchedulerService(),
		autostart:  NewAutostartService(),
	}
}

func (p *Platform) Name() string                         { return "darwin" }
func (p *Platform) IsSupported() bool                    { return true }
func (p *Platform) Theme() platform.ThemeService         { return p.theme }
func (p *Platform) ThemeManager() platform.ThemeManager  { return p.appearance }
func (p *Platform) Scheduler() platform.SchedulerService { return p.scheduler }
func (p *Platform) Autostart() platform.AutostartService { return p.autostart }

var _ platform.Platform = (*Platform)(nil)
