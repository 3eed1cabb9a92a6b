//go:build darwin

package darwin

import (
	"fmt"
	"os"
)

// AutostartService registers a launch agent that runs once at login.
type AutostartService struct{}

// NewAutostartService creates a new macOS autostart service.
func NewAutostartService() *AutostartService {
	return &AutostartService{}
}

func (s *AutostartService) Enable(label, command string, args []string) error {
	path, err := launchAgentPath(label)
	if err != nil {
		return fmt.Errorf("failed to get plist path: %w", err)
	}

	agent := launchAgent{
		Label:     label,
		Program:   append([]string{command}, args...),
		RunAtLoad: true,
		LoginOnly: true,
	}
	return agent.write(path)
}

func (s *AutostartService) Disable(label string) error {
	path, err := launchAgentPath(label)
	if err != nil {
		return fmt.Errorf("failed to get plist path: %w", err)
	}
	return removeLaunchAgent(path)
}

func (s *AutostartService) IsEnabled(label string) (bool, error) {
	path, err := launchAgentPath(label)
	if err != nil {
		return false, fmt.Errorf("failed to get plist path: %w", err)
	}

	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}
