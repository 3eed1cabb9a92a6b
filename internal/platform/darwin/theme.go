//go:build darwin

package darwin

import (
	"os/exec"
	"strings"

	"github.com/darkawower/autodark/internal/platform"
)

// interfaceStyleKey is absent from the global domain in light mode.
const interfaceStyleKey = "AppleInterfaceStyle"

// ThemeService reads the system appearance from user defaults.
type ThemeService struct {
	read func(key string) (string, error)
}

func NewThemeService() *ThemeService {
	return &ThemeService{read: readGlobalDefault}
}

func (s *ThemeService) Detect() platform.Theme {
	style, err := s.read(interfaceStyleKey)
	if err != nil || !strings.EqualFold(style, "dark") {
		return platform.ThemeLight
	}
	return platform.ThemeDark
}

func readGlobalDefault(key string) (string, error) {
	out, err := exec.Command("defaults", "read", "-g", key).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
