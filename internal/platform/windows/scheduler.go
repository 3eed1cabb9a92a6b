//go:build windows

package windows

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/darkawower/autodark/internal/platform"
)

// SchedulerService manages a repeating task through schtasks.exe.
type SchedulerService struct {
	exe string
}

// NewSchedulerService creates a new Task Scheduler service.
func NewSchedulerService() *SchedulerService {
	return &SchedulerService{exe: "schtasks"}
}

func (s *SchedulerService) IsSupported() bool {
	_, err := exec.LookPath(s.exe)
	return err == nil
}

func (s *SchedulerService) Install(config platform.SchedulerConfig) error {
	minutes := int(config.Interval.Minutes())
	if minutes < 1 {
		minutes = 1
	}

	run := quoteArg(config.Command)
	for _, arg := range config.Args {
		run += " " + quoteArg(arg)
	}

	args := []string{
		"/Create", "/F",
		"/TN", config.Label,
		"/TR", run,
		"/SC", "MINUTE",
		"/MO", strconv.Itoa(minutes),
	}

	cmd := exec.Command(s.exe, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create task: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}

	if config.RunAtLoad {
		_ = exec.Command(s.exe, "/Run", "/TN", config.Label).Run()
	}

	return nil
}

func (s *SchedulerService) Uninstall(label string) error {
	installed, err := s.exists(label)
	if err != nil {
		return err
	}
	if !installed {
		return nil
	}

	cmd := exec.Command(s.exe, "/Delete", "/F", "/TN", label)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to delete task: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (s *SchedulerService) Status(label string) (platform.SchedulerStatus, error) {
	status := platform.SchedulerStatus{}

	output, err := exec.Command(s.exe, "/Query", "/TN", label, "/V", "/FO", "LIST").Output()
	if err != nil {
		return status, nil
	}
	status.Installed = true

	info := parseTaskList(string(output))
	status.Running = !strings.EqualFold(info["Scheduled Task State"], "Disabled")
	status.Interval = parseRepeat(info["Repeat: Every"])

	return status, nil
}

func (s *SchedulerService) exists(label string) (bool, error) {
	err := exec.Command(s.exe, "/Query", "/TN", label).Run()
	if err == nil {
		return true, nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return false, nil
	}
	return false, fmt.Errorf("failed to query task: %w", err)
}

// schtasks pads values with at least two spaces, which separates keys that
// contain a colon themselves ("Repeat: Every").
var taskFieldRe = regexp.MustCompile(`^(.+?):\s{2,}(.*)$`)

func parseTaskList(output string) map[string]string {
	info := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		m := taskFieldRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		info[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
	}
	return info
}

var repeatRe = regexp.MustCompile(`(?i)(\d+)\s*Hour\(s\),\s*(\d+)\s*Minute\(s\)`)

func parseRepeat(value string) time.Duration {
	m := repeatRe.FindStringSubmatch(value)
	if len(m) < 3 {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
}

func quoteArg(arg string) string {
	if strings.ContainsAny(arg, " \t") {
		return `"` + arg + `"`
	}
	return arg
}
