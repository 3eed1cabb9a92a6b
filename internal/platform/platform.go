// Package platform provides OS-agnostic abstractions for system operations.
package platform

import "time"

// Theme represents the system color theme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Opposite returns the other theme.
func (t Theme) Opposite() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// String returns the string representation of the theme.
func (t Theme) String() string {
	return string(t)
}

// Platform provides access to OS-specific services.
type Platform interface {
	// Name returns the platform identifier (e.g., "darwin", "linux", "windows").
	Name() string

	// IsSupported returns true if this platform is fully supported.
	IsSupported() bool

	// Theme returns the theme detection service.
	Theme() ThemeService

	// ThemeManager returns the native theme catalog service.
	ThemeManager() ThemeManager

	// Scheduler returns the background task scheduler service.
	Scheduler() SchedulerService

	// Autostart returns the login autostart service.
	Autostart() AutostartService
}

// ThemeService detects system color theme.
type ThemeService interface {
	// Detect returns the current system theme (light or dark).
	Detect() Theme
}

// ThemeDescriptor is one entry of the native theme catalog. Index is only
// meaningful within the enumeration that produced it.
type ThemeDescriptor struct {
	Index       int
	DisplayName string
}

// ThemeManager opens sessions against the native theme service.
//
// Open must be called on the goroutine that will use the session, and that
// goroutine must stay locked to its OS thread until the session is closed.
type ThemeManager interface {
	Open() (ThemeSession, error)
}

// ThemeSession is a live connection to the native theme service.
type ThemeSession interface {
	// Themes enumerates the catalog in the service's current order.
	Themes() ([]ThemeDescriptor, error)

	// SetByIndex makes the theme at index current.
	SetByIndex(index int) error

	// SetByPath opens a theme file silently and makes it current.
	SetByPath(path string) error

	// Current returns the active catalog entry.
	Current() (ThemeDescriptor, error)

	// Close releases the session.
	Close() error
}

// SchedulerService manages background task scheduling.
type SchedulerService interface {
	// Install installs a scheduled task with the given configuration.
	Install(config SchedulerConfig) error

	// Uninstall removes the scheduled task by label.
	Uninstall(label string) error

	// Status returns the current status of the scheduled task by label.
	Status(label string) (SchedulerStatus, error)

	// IsSupported returns true if scheduling is supported on this platform.
	IsSupported() bool
}

// SchedulerConfig holds configuration for a scheduled task.
type SchedulerConfig struct {
	// Label is the unique identifier for the task.
	Label string

	// Command is the executable path.
	Command string

	// Args are the command arguments.
	Args []string

	// Interval is the time between executions.
	Interval time.Duration

	// RunAtLoad indicates whether to run immediately when loaded.
	RunAtLoad bool

	// LogPath is the path for stdout/stderr output.
	LogPath string
}

// SchedulerStatus represents the current state of a scheduled task.
type SchedulerStatus struct {
	// Installed indicates whether the task is installed.
	Installed bool

	// Running indicates whether the task is currently active.
	Running bool

	// Interval is the configured interval between executions.
	Interval time.Duration

	// LogPath is the configured log file path.
	LogPath string
}

// AutostartService manages starting the service at login.
type AutostartService interface {
	// Enable registers command with args to run at login under label.
	Enable(label, command string, args []string) error

	// Disable removes the login entry for label. Missing entries are not an error.
	Disable(label string) error

	// IsEnabled reports whether a login entry for label exists.
	IsEnabled(label string) (bool, error)
}
