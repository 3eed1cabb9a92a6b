//go:build darwin

package darwin

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/darkawower/autodark/internal/platform"
)

// Appearance catalog names. macOS exposes exactly two system appearances.
const (
	AppearanceLight = "Light"
	AppearanceDark  = "Dark"
)

var appearances = []string{AppearanceLight, AppearanceDark}

// AppearanceManager exposes the system appearance as a two-entry catalog.
type AppearanceManager struct {
	detector *ThemeService
}

// NewAppearanceManager creates a new appearance catalog.
func NewAppearanceManager() *AppearanceManager {
	return &AppearanceManager{detector: NewThemeService()}
}

// Open returns a session. System Events needs no per-thread setup.
func (m *AppearanceManager) Open() (platform.ThemeSession, error) {
	if _, err := exec.LookPath("osascript"); err != nil {
		return nil, platform.NewStatusError(platform.ErrNativeInit, "osascript", 0, err)
	}
	return &appearanceSession{detector: m.detector}, nil
}

type appearanceSession struct {
	detector *ThemeService
}

func (s *appearanceSession) Themes() ([]platform.ThemeDescriptor, error) {
	themes := make([]platform.ThemeDescriptor, len(appearances))
	for i, name := range appearances {
		themes[i] = platform.ThemeDescriptor{Index: i, DisplayName: name}
	}
	return themes, nil
}

func (s *appearanceSession) SetByIndex(index int) error {
	if index < 0 || index >= len(appearances) {
		return platform.NewStatusError(platform.ErrNativeApply, "set appearance", 1,
			fmt.Errorf("index %d out of range", index))
	}

	script := fmt.Sprintf(`tell application "System Events"
		tell appearance preferences
			set dark mode to %t
		end tell
	end tell`, appearances[index] == AppearanceDark)

	cmd := exec.Command("osascript", "-e", script)
	if output, err := cmd.CombinedOutput(); err != nil {
		return platform.NewStatusError(platform.ErrNativeApply, "set appearance", exitCode(err),
			fmt.Errorf("%w (output: %s)", err, string(output)))
	}
	return nil
}

func (s *appearanceSession) SetByPath(path string) error {
	return platform.NewStatusError(platform.ErrNativeApply, "open theme file", 1, platform.ErrUnsupported)
}

func (s *appearanceSession) Current() (platform.ThemeDescriptor, error) {
	if s.detector.Detect() == platform.ThemeDark {
		return platform.ThemeDescriptor{Index: 1, DisplayName: AppearanceDark}, nil
	}
	return platform.ThemeDescriptor{Index: 0, DisplayName: AppearanceLight}, nil
}

func (s *appearanceSession) Close() error {
	return nil
}

func exitCode(err error) int32 {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return int32(exitErr.ExitCode())
	}
	return -1
}
