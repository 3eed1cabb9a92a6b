// Package stub registers a platform for systems without native theme
// support. Detection always reports light; every other service fails with
// an error wrapping platform.ErrUnsupported.
package stub

import (
	"fmt"
	"runtime"

	"github.com/darkawower/autodark/internal/platform"
)

var unsupportedOS = []string{"freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos", "aix"}

func init() {
	for _, goos := range unsupportedOS {
		platform.Register(goos, func() platform.Platform { return New() })
	}
}

type Platform struct {
	name string
}

func New() *Platform {
	return &Platform{name: runtime.GOOS}
}

func (p *Platform) Name() string                         { return p.name }
func (p *Platform) IsSupported() bool                    { return false }
func (p *Platform) Theme() platform.ThemeService         { return lightOnly{} }
func (p *Platform) ThemeManager() platform.ThemeManager  { return services{p.name} }
func (p *Platform) Scheduler() platform.SchedulerService { return services{p.name} }
func (p *Platform) Autostart() platform.AutostartService { return services{p.name} }

var _ platform.Platform = (*Platform)(nil)

type lightOnly struct{}

func (lightOnly) Detect() platform.Theme { return platform.ThemeLight }

// services answers every manager, scheduler and autostart call.
type services struct {
	goos string
}

func (s services) unsupported(what string) error {
	return fmt.Errorf("%s on %s: %w", what, s.goos, platform.ErrUnsupported)
}

func (s services) Open() (platform.ThemeSession, error) {
	return nil, platform.NewStatusError(platform.ErrNativeInit, "open", 0, s.unsupported("theme manager"))
}

func (s services) IsSupported() bool { return false }

func (s services) Install(platform.SchedulerConfig) error { return s.unsupported("scheduler") }
func (s services) Uninstall(string) error                 { return s.unsupported("scheduler") }

func (s services) Status(string) (platform.SchedulerStatus, error) {
	return platform.SchedulerStatus{}, s.unsupported("scheduler")
}

func (s services) Enable(string, string, []string) error { return s.unsupported("autostart") }
func (s services) Disable(string) error                  { return s.unsupported("autostart") }
func (s services) IsEnabled(string) (bool, error)        { return false, s.unsupported("autostart") }
