//go:build darwin

package darwin

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/darkawower/autodark/internal/platform"
)

// SchedulerService runs a command at a fixed interval through launchd.
type SchedulerService struct{}

func NewSchedulerService() *SchedulerService {
	return &SchedulerService{}
}

func (s *SchedulerService) IsSupported() bool {
	return true
}

func (s *SchedulerService) Install(config platform.SchedulerConfig) error {
	path, err := launchAgentPath(config.Label)
	if err != nil {
		return fmt.Errorf("failed to get plist path: %w", err)
	}

	if config.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(config.LogPath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	agent := launchAgent{
		Label:         config.Label,
		Program:       append([]string{config.Command}, config.Args...),
		StartInterval: int(config.Interval.Seconds()),
		RunAtLoad:     config.RunAtLoad,
		LogPath:       config.LogPath,
	}
	if err := agent.write(path); err != nil {
		return err
	}

	if output, err := exec.Command("launchctl", "load", path).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to load agent: %w (output: %s)", err, string(output))
	}
	return nil
}

func (s *SchedulerService) Uninstall(label string) error {
	path, err := launchAgentPath(label)
	if err != nil {
		return fmt.Errorf("failed to get plist path: %w", err)
	}
	return removeLaunchAgent(path)
}

// Status reports the agent as running when launchctl knows the label.
func (s *SchedulerService) Status(label string) (platform.SchedulerStatus, error) {
	path, err := launchAgentPath(label)
	if err != nil {
		return platform.SchedulerStatus{}, fmt.Errorf("failed to get plist path: %w", err)
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return platform.SchedulerStatus{}, nil
	}
	if err != nil {
		return platform.SchedulerStatus{}, err
	}
	defer f.Close()

	status := platform.SchedulerStatus{
		Installed: true,
		Running:   exec.Command("launchctl", "list", label).Run() == nil,
	}
	if agent, err := readLaunchAgent(f); err == nil {
		status.Interval = agent.interval()
		status.LogPath = agent.LogPath
	}
	return status, nil
}
