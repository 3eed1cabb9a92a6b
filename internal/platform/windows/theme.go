//go:build windows

package windows

import (
	"golang.org/x/sys/windows/registry"

	"github.com/darkawower/autodark/internal/platform"
)

const (
	personalizeKey = `Software\Microsoft\Windows\CurrentVersion\Themes\Personalize`
	appsLightValue = `AppsUseLightTheme`
)

// ThemeService implements platform.ThemeService for Windows.
type ThemeService struct{}

// NewThemeService creates a new Windows theme service.
func NewThemeService() *ThemeService {
	return &ThemeService{}
}

// Detect reads AppsUseLightTheme. Older builds lack the value and are light.
func (s *ThemeService) Detect() platform.Theme {
	k, err := registry.OpenKey(registry.CURRENT_USER, personalizeKey, registry.QUERY_VALUE)
	if err != nil {
		return platform.ThemeLight
	}
	defer k.Close()

	useLight, _, err := k.GetIntegerValue(appsLightValue)
	if err != nil {
		return platform.ThemeLight
	}
	if useLight == 0 {
		return platform.ThemeDark
	}
	return platform.ThemeLight
}
