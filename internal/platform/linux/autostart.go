//go:build linux

package linux

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const desktopEntryTemplate = `[Desktop Entry]
Type=Application
Name=%s
Exec=%s
X-GNOME-Autostart-enabled=true
NoDisplay=true
`

// AutostartService writes XDG autostart desktop entries.
type AutostartService struct {
	dir string
}

// NewAutostartService creates a new XDG autostart service.
func NewAutostartService() *AutostartService {
	return &AutostartService{dir: autostartDir()}
}

func autostartDir() string {
	if cfg := os.Getenv("XDG_CONFIG_HOME"); cfg != "" {
		return filepath.Join(cfg, "autostart")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "autostart")
}

func (s *AutostartService) entryPath(label string) (string, error) {
	if s.dir == "" {
		return "", fmt.Errorf("autostart directory unknown")
	}
	return filepath.Join(s.dir, label+".desktop"), nil
}

func (s *AutostartService) Enable(label, command string, args []string) error {
	path, err := s.entryPath(label)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create autostart directory: %w", err)
	}

	parts := []string{quoteExec(command)}
	for _, arg := range args {
		parts = append(parts, quoteExec(arg))
	}

	content := fmt.Sprintf(desktopEntryTemplate, label, strings.Join(parts, " "))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write desktop entry: %w", err)
	}
	return nil
}

func (s *AutostartService) Disable(label string) error {
	path, err := s.entryPath(label)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove desktop entry: %w", err)
	}
	return nil
}

func (s *AutostartService) IsEnabled(label string) (bool, error) {
	path, err := s.entryPath(label)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func quoteExec(arg string) string {
	if strings.ContainsAny(arg, " \t\"") {
		return `"` + strings.ReplaceAll(arg, `"`, `\"`) + `"`
	}
	return arg
}
