//go:build linux

package linux

import (
	"os/exec"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/darkawower/autodark/internal/platform"
)

const (
	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	portalReadOne   = "org.freedesktop.portal.Settings.ReadOne"
	portalRead      = "org.freedesktop.portal.Settings.Read"
	appearanceNS    = "org.freedesktop.appearance"
	colorSchemeKey  = "color-scheme"
	colorSchemeDark = 1
)

// ThemeService reads the freedesktop color-scheme preference, falling back
// to the GTK theme name.
type ThemeService struct{}

// NewThemeService creates a new Linux theme service.
func NewThemeService() *ThemeService {
	return &ThemeService{}
}

// Detect returns the current color scheme.
func (s *ThemeService) Detect() platform.Theme {
	if scheme, ok := portalColorScheme(); ok {
		if scheme == colorSchemeDark {
			return platform.ThemeDark
		}
		return platform.ThemeLight
	}

	out, err := exec.Command("gsettings", "get", gtkSchema, gtkThemeKey).Output()
	if err == nil && strings.Contains(strings.ToLower(string(out)), "dark") {
		return platform.ThemeDark
	}
	return platform.ThemeLight
}

func portalColorScheme() (uint32, bool) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return 0, false
	}

	obj := conn.Object(portalDest, portalPath)

	var v dbus.Variant
	if err := obj.Call(portalReadOne, 0, appearanceNS, colorSchemeKey).Store(&v); err != nil {
		// Portals before version 2 only have Read, which double-wraps the value.
		if err := obj.Call(portalRead, 0, appearanceNS, colorSchemeKey).Store(&v); err != nil {
			return 0, false
		}
		if inner, ok := v.Value().(dbus.Variant); ok {
			v = inner
		}
	}

	scheme, ok := v.Value().(uint32)
	return scheme, ok
}
