package platform

import (
	"errors"
	"runtime"
	"sort"
	"sync"
)

var ErrUnsupported = errors.New("operation not supported on this platform")

// Builder constructs the Platform for one GOOS.
type Builder func() Platform

var (
	mu       sync.RWMutex
	builders = make(map[string]Builder)
	current  Platform
)

// Register makes a platform available for goos. Platform packages call it
// from init.
func Register(goos string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	builders[goos] = b
}

// Registered lists the GOOS values with a registered platform.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Current returns the platform for runtime.GOOS, building it on first use.
// Without a registration every service reports ErrUnsupported.
func Current() Platform {
	mu.Lock()
	defer mu.Unlock()

	if current == nil {
		if b, ok := builders[runtime.GOOS]; ok {
			current = b()
		} else {
			current = unsupported{name: runtime.GOOS}
		}
	}
	return current
}

// SetPlatform replaces the current platform. Used by tests.
func SetPlatform(p Platform) {
	mu.Lock()
	current = p
	mu.Unlock()
}

// ResetPlatform drops the current platform so the next Current rebuilds it.
func ResetPlatform() {
	SetPlatform(nil)
}

// unsupported implements every platform service.
type unsupported struct {
	name string
}

func (u unsupported) Name() string                  { return u.name }
func (u unsupported) IsSupported() bool             { return false }
func (u unsupported) Theme() ThemeService           { return u }
func (u unsupported) ThemeManager() ThemeManager    { return u }
func (u unsupported) Scheduler() SchedulerService   { return u }
func (u unsupported) Autostart() AutostartService   { return u }
func (u unsupported) Detect() Theme                 { return ThemeLight }
func (u unsupported) Install(SchedulerConfig) error { return ErrUnsupported }
func (u unsupported) Uninstall(string) error        { return ErrUnsupported }
func (u unsupported) Disable(string) error          { return ErrUnsupported }

func (u unsupported) Open() (ThemeSession, error) {
	return nil, NewStatusError(ErrNativeInit, "open", 0, ErrUnsupported)
}

func (u unsupported) Status(string) (SchedulerStatus, error) {
	return SchedulerStatus{}, ErrUnsupported
}

func (u unsupported) Enable(string, string, []string) error {
	return ErrUnsupported
}

func (u unsupported) IsEnabled(string) (bool, error) {
	return false, ErrUnsupported
}
