// Package main is the entry point for the autodark CLI and service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/darkawower/autodark/internal/command"
	"github.com/darkawower/autodark/internal/config"
	"github.com/darkawower/autodark/internal/ipc"
	"github.com/darkawower/autodark/internal/learned"
	"github.com/darkawower/autodark/internal/logging"
	"github.com/darkawower/autodark/internal/platform"
	"github.com/darkawower/autodark/internal/schedule"
	"github.com/darkawower/autodark/internal/service"
	"github.com/darkawower/autodark/internal/state"
	"github.com/darkawower/autodark/internal/theme"
	"github.com/darkawower/autodark/internal/ui"
	"github.com/darkawower/autodark/internal/update"
)

// Scheduled task constants (minutes).
const (
	minTaskInterval = 1
	maxTaskInterval = 24 * 60
)

// Set by -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile string
	verbose bool
	quiet   bool
	noColor bool

	out *ui.Output
)

const initHint = "Run 'autodark init' to create a default configuration"

func main() {
	rootCmd := &cobra.Command{
		Use:   "autodark",
		Short: "Keep the system light/dark theme in sync with the time of day",
		Long: `Autodark switches the operating system between a light and a dark theme
on a schedule (fixed times or sunrise/sunset). 'autodark service' runs the
resident service; the other commands talk to it or manage the installation.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initOutput()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/autodark/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newServiceCmd(),
		newSendCmd(),
		newStatusCmd(),
		newThemesCmd(),
		newApplyCmd(),
		newLearnedCmd(),
		newInitCmd(),
		newTaskInstallCmd(),
		newTaskUninstallCmd(),
		newTaskStatusCmd(),
		newAutostartEnableCmd(),
		newAutostartDisableCmd(),
		newVersionCmd(),
	)
	for _, op := range []command.Opcode{command.Switch, command.Swap, command.Dark, command.Light} {
		rootCmd.AddCommand(newShortcutCmd(op))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func initOutput() {
	out = ui.DefaultOutput()
	out.SetVerbose(verbose)
	out.SetQuiet(quiet)
	out.SetNoColor(noColor || os.Getenv("NO_COLOR") != "")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		out.ErrorWithHint(err.Error(), initHint)
		return nil, err
	}
	return cfg, nil
}

// newCLILogger logs to the console only when verbose; commands report
// through ui.Output otherwise.
func newCLILogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, _, err := logging.New(config.LogConfig{Level: "debug"})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newServiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "service",
		Short: "Run the resident theme service",
		Long: `Runs the background service: it applies the scheduled theme, re-checks it
periodically and accepts commands on the local command port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				out.Error("Failed to create directories: %v", err)
				return err
			}

			logger, closeLog, err := logging.New(cfg.Log, logging.WithVerbose(verbose))
			if err != nil {
				out.Error("Failed to set up logging: %v", err)
				return err
			}
			defer closeLog()

			st, err := state.Load(cfg.State.Path)
			if err != nil {
				logger.Warn("state file unreadable, starting fresh", zap.Error(err))
				st = state.New(cfg.State.Path)
			}

			svc, err := service.New(cfg, st,
				service.WithLogger(logger),
				service.WithVersion(version),
			)
			if err != nil {
				out.Error("Failed to start service: %v", err)
				return err
			}

			if err := svc.Run(cmd.Context()); err != nil {
				if errors.Is(err, service.ErrAlreadyRunning) {
					out.ErrorWithHint(fmt.Sprintf("service already running on %s", cfg.Address()), "Use 'autodark send shutdown' to stop it")
					return err
				}
				logger.Error("service failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func newSendCmd() *cobra.Command {
	var noStart bool

	names := make([]string, 0, len(command.Opcodes()))
	for _, op := range command.Opcodes() {
		names = append(names, op.String())
	}

	cmd := &cobra.Command{
		Use:       "send <command>",
		Short:     "Send a command to the running service",
		Long:      "Sends one command to the service. Known commands: " + strings.Join(names, ", ") + ".",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			op, ok := command.Lookup(args[0])
			if !ok {
				out.ErrorWithHint(fmt.Sprintf("unknown command %q", args[0]), "Known commands: "+strings.Join(names, ", "))
				return fmt.Errorf("unknown command %q", args[0])
			}
			return send(cmd.Context(), op, !noStart)
		},
	}

	cmd.Flags().BoolVar(&noStart, "no-start", false, "do not start the service when it is not running")

	return cmd
}

func newShortcutCmd(op command.Opcode) *cobra.Command {
	short := map[command.Opcode]string{
		command.Switch: "Apply the scheduled theme and clear any manual override",
		command.Swap:   "Switch to the opposite of the current theme",
		command.Dark:   "Apply the dark theme until the next scheduled change",
		command.Light:  "Apply the light theme until the next scheduled change",
	}[op]

	return &cobra.Command{
		Use:   op.String(),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd.Context(), op, true)
		},
	}
}

func send(ctx context.Context, op command.Opcode, start bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := ipc.NewClient(cfg.Address(),
		ipc.WithClassicMode(cfg.Service.ClassicMode),
		ipc.WithClientLogger(newCLILogger()),
	)

	var spinner *ui.Spinner
	var starter func() error
	if start {
		starter = func() error {
			spinner = ui.NewSpinner(out, "Starting service...")
			spinner.Start()
			return startService()
		}
	}

	resp, err := client.SendOrStart(ctx, op.Token(), starter)
	if spinner != nil {
		spinner.Stop()
	}

	var derr *ipc.DeliveryError
	var rerr *ipc.RemoteError
	switch {
	case errors.As(err, &derr):
		out.ErrorWithHint(derr.Error(), "Start the service with 'autodark service'")
		return err
	case errors.As(err, &rerr):
		out.Error("Service rejected %s: %s", op, rerr.Message)
		return err
	case err != nil:
		out.Error("Failed to send %s: %v", op, err)
		return err
	}

	if resp.Status == ipc.StatusIgnored {
		out.Warning("Service ignored %s", op)
		return nil
	}
	out.Success("Sent %s", op)
	return nil
}

// startService launches a detached 'autodark service' process.
func startService() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	args := []string{"service"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}

	proc := exec.Command(exe, args...)
	if err := proc.Start(); err != nil {
		return err
	}
	return proc.Process.Release()
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied theme and the schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := state.Load(cfg.State.Path)
			if err != nil {
				out.Error("Failed to read state: %v", err)
				return err
			}

			cur := st.CurrentApplied()
			out.Print("")
			out.Applied(cur.Theme, cur.DisplayName, cur.Origin, cur.AppliedAt)

			coords := func() (float64, float64, bool) {
				loc, ok := st.GetLocation()
				return loc.Latitude, loc.Longitude, ok
			}
			now := time.Now()
			decision, err := schedule.New(cfg.Schedule, coords).Desired(now)
			if err != nil {
				out.Error("Failed to evaluate schedule: %v", err)
				return err
			}
			out.Schedule(string(decision.Theme), decision.Source, decision.Next, decision.Fallback)

			if pinned, ok := st.ActiveOverride(now); ok {
				out.FieldColored("Override", pinned+" until "+st.Override.Until.Local().Format("15:04"), ui.Yellow)
			}

			client := ipc.NewClient(cfg.Address(), ipc.WithTimeout(500*time.Millisecond))
			if err := client.Ping(cmd.Context()); err != nil {
				out.FieldColored("Service", "not running", ui.Gray)
			} else {
				out.FieldColored("Service", "running on "+cfg.Address(), ui.Green)
			}
			out.Print("")

			return nil
		},
	}
}

var errServiceRunning = errors.New("service is running")

// requireServiceStopped refuses direct native theme calls while the service
// is listening, so only one process enumerates and applies at a time.
func requireServiceStopped(ctx context.Context, cfg *config.Config, hint string) error {
	client := ipc.NewClient(cfg.Address(), ipc.WithTimeout(500*time.Millisecond))
	if err := client.Ping(ctx); err != nil {
		return nil
	}
	out.ErrorWithHint(fmt.Sprintf("service is running on %s", cfg.Address()), hint)
	return errServiceRunning
}

// newEngine builds a theme engine for one-shot use outside the service.
func newEngine(cfg *config.Config, names theme.Names) *theme.Engine {
	opts := []theme.Option{
		theme.WithLogger(newCLILogger()),
		theme.WithTimeout(cfg.ApplyTimeout()),
	}
	if names != nil {
		opts = append(opts, theme.WithNames(names))
	}
	return theme.New(platform.Current().ThemeManager(), opts...)
}

func newThemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List installed themes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := requireServiceStopped(cmd.Context(), cfg, "Stop it with 'autodark send shutdown' to list themes"); err != nil {
				return err
			}

			themes, err := newEngine(cfg, nil).Catalog(cmd.Context())
			if err != nil {
				if code, ok := platform.StatusCode(err); ok {
					out.Error("Failed to list themes: %v (status 0x%08X)", err, uint32(code))
				} else {
					out.Error("Failed to list themes: %v", err)
				}
				return err
			}

			current := ""
			if st, err := state.Load(cfg.State.Path); err == nil {
				current = st.CurrentApplied().DisplayName
			}

			out.Print("")
			out.Catalog(themes, current)
			out.Print("")
			out.Field("Light", cfg.Light.DisplayName)
			out.Field("Dark", cfg.Dark.DisplayName)
			out.Print("")

			return nil
		},
	}
}

func newApplyCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "apply [display name]",
		Short: "Apply a theme by catalog name or file once, without the service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && path == "" {
				return fmt.Errorf("either a display name or --path is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := requireServiceStopped(cmd.Context(), cfg, "Use 'autodark dark' or 'autodark light', or stop it with 'autodark send shutdown'"); err != nil {
				return err
			}
			st, err := state.Load(cfg.State.Path)
			if err != nil {
				out.Error("Failed to read state: %v", err)
				return err
			}
			cache, err := learned.New(st)
			if err != nil {
				out.Error("Failed to load learned names: %v", err)
				return err
			}

			engine := newEngine(cfg, cache)
			var res theme.Result
			name := ""
			if len(args) == 1 {
				name = args[0]
				res = engine.Resolve(cmd.Context(), theme.Request{DisplayName: name, OriginPath: path})
			}
			if !res.Found && res.Err == nil && path != "" {
				res = engine.ApplyPath(cmd.Context(), path)
				if res.Success && res.Found && name != "" {
					cache.Record(name, res.Applied)
				}
			}

			switch {
			case res.Err != nil:
				out.Error("Failed to apply theme: %v", res.Err)
				return res.Err
			case !res.Found:
				out.Warning("Theme not found")
				out.Info("Run 'autodark themes' to list installed themes")
				return nil
			}

			if err := cache.Flush(); err != nil {
				out.Warning("Failed to save learned names: %v", err)
			}
			applied := res.Applied
			if applied == "" {
				applied = name
			}
			out.Success("Theme applied: %s", applied)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "theme file to apply when the name is not installed")

	return cmd
}

func newLearnedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learned",
		Short: "List learned theme names",
		Long: `Lists names that were requested in the configuration but applied under a
different catalog name. Later runs use the learned name directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cache, err := loadCache(cfg)
			if err != nil {
				return err
			}
			out.Print("")
			out.Learned(cache.Entries())
			out.Print("")
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "forget <requested name>",
		Short: "Forget a learned theme name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return forget(cmd.Context(), cfg, args[0])
		},
	})

	return cmd
}

// forget asks the running service to drop the mapping, since it would
// otherwise write its own copy back. The state file is edited directly only
// when nothing is listening.
func forget(ctx context.Context, cfg *config.Config, name string) error {
	client := ipc.NewClient(cfg.Address(), ipc.WithClientLogger(newCLILogger()))
	_, err := client.Send(ctx, command.Command{Op: command.Forget, Payload: name}.String())

	var derr *ipc.DeliveryError
	var remote *ipc.RemoteError
	switch {
	case err == nil:
		out.Success("Forgot %q", name)
		return nil
	case errors.As(err, &remote) && strings.HasPrefix(remote.Message, learned.ErrNotLearned.Error()):
		out.Info("Nothing learned for %q", name)
		return nil
	case !errors.As(err, &derr) || derr.Op != "dial":
		out.Error("Failed to forget %q: %v", name, err)
		return err
	}

	cache, err := loadCache(cfg)
	if err != nil {
		return err
	}
	if !cache.Forget(name) {
		out.Info("Nothing learned for %q", name)
		return nil
	}
	if err := cache.Flush(); err != nil {
		out.Error("Failed to save state: %v", err)
		return err
	}
	out.Success("Forgot %q", name)
	return nil
}

func loadCache(cfg *config.Config) (*learned.Cache, error) {
	st, err := state.Load(cfg.State.Path)
	if err != nil {
		out.Error("Failed to read state: %v", err)
		return nil, err
	}
	return learned.New(st, learned.WithLogger(newCLILogger()))
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize autodark configuration",
		Long:  "Creates the default configuration file, state file and directories.",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := cfgFile
			if configPath == "" {
				configPath = config.DefaultConfigPath()
			}

			if _, err := os.Stat(configPath); err == nil && !force {
				out.Warning("Configuration already exists at %s", shortenPath(configPath))
				out.Info("Use --force to overwrite")
				return nil
			}

			cfg := config.DefaultConfig()
			if err := cfg.EnsureDirectories(); err != nil {
				out.Error("Failed to create directories: %v", err)
				return err
			}
			if err := cfg.Save(configPath); err != nil {
				out.Error("Failed to write config: %v", err)
				return err
			}

			st := state.New(cfg.State.Path)
			if err := st.Save(); err != nil {
				out.Error("Failed to create state file: %v", err)
				return err
			}

			out.Success("Autodark initialized")
			out.Field("Config", shortenPath(configPath))
			out.Field("State", shortenPath(cfg.State.Path))
			out.Field("Light", cfg.Light.DisplayName)
			out.Field("Dark", cfg.Dark.DisplayName)
			out.Print("")
			out.Info("Run 'autodark themes' to see installed theme names")

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration")

	return cmd
}

func newTaskInstallCmd() *cobra.Command {
	var interval int

	cmd := &cobra.Command{
		Use:   "task-install",
		Short: "Install a scheduled task that keeps the service running",
		Long:  "Installs a scheduled task that runs 'autodark switch' at regular intervals, starting the service when needed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if interval == 0 {
				interval = cfg.Task.Interval
			}
			if interval < minTaskInterval || interval > maxTaskInterval {
				out.Error("Interval must be between %d and %d minutes", minTaskInterval, maxTaskInterval)
				return fmt.Errorf("interval out of range")
			}

			sched := platform.Current().Scheduler()
			if !sched.IsSupported() {
				out.Error("Scheduled tasks are not supported on this platform")
				return platform.ErrUnsupported
			}

			exe, err := os.Executable()
			if err != nil {
				return err
			}
			taskArgs := []string{"switch"}
			if cfgFile != "" {
				taskArgs = append(taskArgs, "--config", cfgFile)
			}
			logPath := filepath.Join(config.DefaultConfigDir(), "task.log")

			err = sched.Install(platform.SchedulerConfig{
				Label:     service.DefaultLabel,
				Command:   exe,
				Args:      taskArgs,
				Interval:  time.Duration(interval) * time.Minute,
				RunAtLoad: true,
				LogPath:   logPath,
			})
			if err != nil {
				out.Error("Failed to install task: %v", err)
				return err
			}

			out.Success("Scheduled task installed")
			out.Field("Interval", formatDuration(time.Duration(interval)*time.Minute))
			out.Field("Log", shortenPath(logPath))

			return nil
		},
	}

	cmd.Flags().IntVar(&interval, "interval", 0, "interval in minutes (default from config)")

	return cmd
}

func newTaskUninstallCmd() *cobra.Command {
	var viaService bool

	cmd := &cobra.Command{
		Use:   "task-uninstall",
		Short: "Remove the scheduled task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if viaService {
				return send(cmd.Context(), command.RemoveScheduledTask, false)
			}

			sched := platform.Current().Scheduler()
			status, err := sched.Status(service.DefaultLabel)
			if err != nil {
				out.Error("Failed to get task status: %v", err)
				return err
			}
			if !status.Installed {
				out.Info("Scheduled task is not installed")
				return nil
			}

			if err := sched.Uninstall(service.DefaultLabel); err != nil {
				out.Error("Failed to remove task: %v", err)
				return err
			}
			out.Success("Scheduled task removed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&viaService, "via-service", false, "ask the running service to remove the task")

	return cmd
}

func newTaskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "task-status",
		Short: "Show scheduled task status",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched := platform.Current().Scheduler()
			if !sched.IsSupported() {
				out.Error("Scheduled tasks are not supported on this platform")
				return platform.ErrUnsupported
			}

			status, err := sched.Status(service.DefaultLabel)
			if err != nil {
				out.Error("Failed to get task status: %v", err)
				return err
			}

			if !status.Installed {
				out.Info("Scheduled task is not installed")
				return nil
			}

			if status.Running {
				out.Success("Scheduled task is active")
			} else {
				out.Warning("Scheduled task is installed but not active")
			}
			if status.Interval > 0 {
				out.Field("Interval", formatDuration(status.Interval))
			}
			if status.LogPath != "" {
				out.Field("Log", shortenPath(status.LogPath))
			}

			return nil
		},
	}
}

func newAutostartEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "autostart-enable",
		Short: "Start the service at login",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return err
			}
			svcArgs := []string{"service"}
			if cfgFile != "" {
				svcArgs = append(svcArgs, "--config", cfgFile)
			}

			if err := platform.Current().Autostart().Enable(service.DefaultLabel, exe, svcArgs); err != nil {
				out.Error("Failed to enable autostart: %v", err)
				return err
			}
			out.Success("Autostart enabled")
			return nil
		},
	}
}

func newAutostartDisableCmd() *cobra.Command {
	var viaService bool

	cmd := &cobra.Command{
		Use:   "autostart-disable",
		Short: "Stop starting the service at login",
		RunE: func(cmd *cobra.Command, args []string) error {
			if viaService {
				return send(cmd.Context(), command.RemoveAutostart, false)
			}

			auto := platform.Current().Autostart()
			enabled, err := auto.IsEnabled(service.DefaultLabel)
			if err != nil {
				out.Error("Failed to read autostart: %v", err)
				return err
			}
			if !enabled {
				out.Info("Autostart is not enabled")
				return nil
			}

			if err := auto.Disable(service.DefaultLabel); err != nil {
				out.Error("Failed to disable autostart: %v", err)
				return err
			}
			out.Success("Autostart disabled")
			return nil
		},
	}

	cmd.Flags().BoolVar(&viaService, "via-service", false, "ask the running service to remove the entry")

	return cmd
}

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out.Print("autodark version %s", version)
			if !check {
				return nil
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			info, err := update.New(cfg.Update.URL, version, update.WithLogger(newCLILogger())).CheckForNewVersion(cmd.Context())
			if err != nil {
				out.Error("Update check failed: %v", err)
				return err
			}
			if info.Available {
				out.Info("Version %s is available", info.Latest)
				out.Field("Download", info.URL)
			} else {
				out.Success("Up to date")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "check for a newer release")

	return cmd
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home || strings.HasPrefix(path, home+string(filepath.Separator)) {
		return "~" + path[len(home):]
	}
	return path
}

// formatDuration formats d in minutes, e.g. "1.5 minutes".
func formatDuration(d time.Duration) string {
	minutes := d.Minutes()
	if minutes == 1 {
		return "1 minute"
	}
	if minutes == float64(int(minutes)) {
		return fmt.Sprintf("%d minutes", int(minutes))
	}
	return fmt.Sprintf("%.1f minutes", minutes)
}
