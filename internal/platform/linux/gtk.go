//go:build linux

package linux

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/darkawower/autodark/internal/platform"
)

const (
	gtkSchema      = "org.gnome.desktop.interface"
	gtkThemeKey    = "gtk-theme"
	colorSchemeSet = "color-scheme"
)

// GtkThemeManager exposes installed GTK themes as the catalog and switches
// them through gsettings.
type GtkThemeManager struct {
	dirs      []string
	gsettings string
}

// NewGtkThemeManager creates a catalog over the XDG theme directories.
func NewGtkThemeManager() *GtkThemeManager {
	return &GtkThemeManager{
		dirs:      themeDirs(),
		gsettings: "gsettings",
	}
}

func themeDirs() []string {
	var dirs []string
	home, _ := os.UserHomeDir()

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" && home != "" {
		dataHome = filepath.Join(home, ".local", "share")
	}
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "themes"))
	}
	if home != "" {
		dirs = append(dirs, filepath.Join(home, ".themes"))
	}

	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, d := range filepath.SplitList(dataDirs) {
		dirs = append(dirs, filepath.Join(d, "themes"))
	}
	return dirs
}

// Open checks that gsettings is reachable.
func (m *GtkThemeManager) Open() (platform.ThemeSession, error) {
	if _, err := exec.LookPath(m.gsettings); err != nil {
		return nil, platform.NewStatusError(platform.ErrNativeInit, "gsettings", 0, err)
	}
	return &gtkSession{m: m}, nil
}

type gtkSession struct {
	m *GtkThemeManager
}

func (s *gtkSession) Themes() ([]platform.ThemeDescriptor, error) {
	seen := make(map[string]bool)
	var names []string

	for _, dir := range s.m.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, platform.NewStatusError(platform.ErrNativeEnum, "read "+dir, 0, err)
		}
		for _, e := range entries {
			name := e.Name()
			if seen[name] || !isGtkTheme(filepath.Join(dir, name)) {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}

	sort.Strings(names)

	themes := make([]platform.ThemeDescriptor, len(names))
	for i, name := range names {
		themes[i] = platform.ThemeDescriptor{Index: i, DisplayName: name}
	}
	return themes, nil
}

func isGtkTheme(dir string) bool {
	for _, marker := range []string{"gtk-3.0", "gtk-4.0", "index.theme"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

func (s *gtkSession) SetByIndex(index int) error {
	themes, err := s.Themes()
	if err != nil {
		return platform.NewStatusError(platform.ErrNativeApply, "set gtk-theme", 0, err)
	}
	if index < 0 || index >= len(themes) {
		return platform.NewStatusError(platform.ErrNativeApply, "set gtk-theme", 1,
			fmt.Errorf("index %d out of range", index))
	}
	return s.set(themes[index].DisplayName)
}

func (s *gtkSession) SetByPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return platform.NewStatusError(platform.ErrNativeApply, "open theme", 2, err)
	}
	dir := path
	if !info.IsDir() {
		dir = filepath.Dir(path)
	}
	return s.set(filepath.Base(dir))
}

func (s *gtkSession) set(name string) error {
	cmd := exec.Command(s.m.gsettings, "set", gtkSchema, gtkThemeKey, name)
	if output, err := cmd.CombinedOutput(); err != nil {
		return platform.NewStatusError(platform.ErrNativeApply, "set gtk-theme "+name, exitCode(err),
			fmt.Errorf("%w (output: %s)", err, strings.TrimSpace(string(output))))
	}

	scheme := "default"
	if strings.Contains(strings.ToLower(name), "dark") {
		scheme = "prefer-dark"
	}
	// Older GNOME releases have no color-scheme key.
	_ = exec.Command(s.m.gsettings, "set", gtkSchema, colorSchemeSet, scheme).Run()

	return nil
}

func (s *gtkSession) Current() (platform.ThemeDescriptor, error) {
	out, err := exec.Command(s.m.gsettings, "get", gtkSchema, gtkThemeKey).Output()
	if err != nil {
		return platform.ThemeDescriptor{}, platform.NewStatusError(platform.ErrNativeEnum, "get gtk-theme", exitCode(err), err)
	}
	name := strings.Trim(strings.TrimSpace(string(out)), "'")

	themes, err := s.Themes()
	if err != nil {
		return platform.ThemeDescriptor{}, err
	}
	for _, t := range themes {
		if t.DisplayName == name {
			return t, nil
		}
	}
	return platform.ThemeDescriptor{Index: -1, DisplayName: name}, nil
}

func (s *gtkSession) Close() error {
	return nil
}

func exitCode(err error) int32 {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return int32(exitErr.ExitCode())
	}
	return -1
}
