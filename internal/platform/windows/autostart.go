//go:build windows

package windows

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/windows/registry"
)

const runKey = `Software\Microsoft\Windows\CurrentVersion\Run`

// AutostartService manages a value under the current user's Run key.
type AutostartService struct{}

// NewAutostartService creates a new Run key service.
func NewAutostartService() *AutostartService {
	return &AutostartService{}
}

func (s *AutostartService) Enable(label, command string, args []string) error {
	k, _, err := registry.CreateKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open run key: %w", err)
	}
	defer k.Close()

	parts := []string{quoteArg(command)}
	for _, arg := range args {
		parts = append(parts, quoteArg(arg))
	}

	if err := k.SetStringValue(label, strings.Join(parts, " ")); err != nil {
		return fmt.Errorf("failed to write run value: %w", err)
	}
	return nil
}

func (s *AutostartService) Disable(label string) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open run key: %w", err)
	}
	defer k.Close()

	if err := k.DeleteValue(label); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("failed to delete run value: %w", err)
	}
	return nil
}

func (s *AutostartService) IsEnabled(label string) (bool, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKey, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open run key: %w", err)
	}
	defer k.Close()

	_, _, err = k.GetStringValue(label)
	if errors.Is(err, registry.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
