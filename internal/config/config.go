package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type ThemeMode string

const (
	ThemeModeAuto  ThemeMode = "auto"
	ThemeModeLight ThemeMode = "light"
	ThemeModeDark  ThemeMode = "dark"
)

type ScheduleSource string

const (
	SourceTime     ScheduleSource = "time"
	SourceLocation ScheduleSource = "location"
)

const (
	DefaultPort     = 54345
	DefaultInterval = 60

	EnvPort     = "AUTODARK_PORT"
	EnvLogLevel = "AUTODARK_LOG_LEVEL"
	EnvInterval = "AUTODARK_INTERVAL"
)

type ServiceConfig struct {
	Port         int  `toml:"port"`
	Interval     int  `toml:"interval"`
	ClassicMode  bool `toml:"classic-mode"`
	PathFallback bool `toml:"path-fallback"`
	ApplyTimeout int  `toml:"apply-timeout"`
}

type ScheduleConfig struct {
	Mode          ThemeMode      `toml:"mode"`
	Source        ScheduleSource `toml:"source"`
	LightAt       string         `toml:"light-at"`
	DarkAt        string         `toml:"dark-at"`
	SunriseOffset int            `toml:"sunrise-offset"`
	SunsetOffset  int            `toml:"sunset-offset"`
	Latitude      float64        `toml:"latitude,omitempty"`
	Longitude     float64        `toml:"longitude,omitempty"`
}

// ThemeConfig names the catalog theme for one side of the schedule.
type ThemeConfig struct {
	DisplayName string `toml:"display-name"`
	Path        string `toml:"path"`
}

type StateConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type UpdateConfig struct {
	URL string `toml:"url"`
}

type LocationConfig struct {
	URL string `toml:"url"`
}

type TaskConfig struct {
	Interval int `toml:"interval"`
}

type Config struct {
	Service  ServiceConfig  `toml:"service"`
	Schedule ScheduleConfig `toml:"schedule"`
	Light    ThemeConfig    `toml:"light"`
	Dark     ThemeConfig    `toml:"dark"`
	State    StateConfig    `toml:"state"`
	Log      LogConfig      `toml:"log"`
	Update   UpdateConfig   `toml:"update"`
	Location LocationConfig `toml:"location"`
	Task     TaskConfig     `toml:"task"`

	configPath string
}

func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "autodark")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

func defaultThemeNames() (light, dark string) {
	switch runtime.GOOS {
	case "windows":
		return "Windows (light)", "Windows (dark)"
	case "linux":
		return "Adwaita", "Adwaita-dark"
	default:
		return "Light", "Dark"
	}
}

func DefaultConfig() *Config {
	configDir := DefaultConfigDir()
	light, dark := defaultThemeNames()

	return &Config{
		Service: ServiceConfig{
			Port:         DefaultPort,
			Interval:     DefaultInterval,
			PathFallback: true,
			ApplyTimeout: 30,
		},
		Schedule: ScheduleConfig{
			Mode:    ThemeModeAuto,
			Source:  SourceTime,
			LightAt: "07:00",
			DarkAt:  "19:00",
		},
		Light: ThemeConfig{DisplayName: light},
		Dark:  ThemeConfig{DisplayName: dark},
		State: StateConfig{
			Path: filepath.Join(configDir, "state.json"),
		},
		Log: LogConfig{
			Level: "info",
		},
		Update: UpdateConfig{
			URL: "https://api.github.com/repos/darkawower/autodark/releases/latest",
		},
		Location: LocationConfig{
			URL: "https://ipapi.co/json/",
		},
		Task: TaskConfig{
			Interval: 15,
		},
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	path = expandPath(path)

	cfg := DefaultConfig()
	cfg.configPath = path

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg.postProcess()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) postProcess() {
	c.State.Path = expandPath(c.State.Path)
	c.Log.File = expandPath(c.Log.File)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Light.Path = expandPath(c.Light.Path)
	c.Dark.Path = expandPath(c.Dark.Path)
	c.Update.URL = expandEnv(c.Update.URL)
	c.Location.URL = expandEnv(c.Location.URL)
}

func (c *Config) applyEnv() error {
	port, err := readInt(EnvPort, c.Service.Port, 1, 65535)
	if err != nil {
		return err
	}
	c.Service.Port = port

	interval, err := readInt(EnvInterval, c.Service.Interval, 5, 86400)
	if err != nil {
		return err
	}
	c.Service.Interval = interval

	if level, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = strings.ToLower(strings.TrimSpace(level))
	}

	return nil
}

func readInt(key string, fallback, min, max int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if parsed < min || parsed > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}

	return parsed, nil
}

func (c *Config) Validate() error {
	switch c.Schedule.Mode {
	case ThemeModeAuto, ThemeModeLight, ThemeModeDark:
	default:
		return fmt.Errorf("invalid schedule mode: %s (must be auto, light, or dark)", c.Schedule.Mode)
	}

	switch c.Schedule.Source {
	case SourceTime, SourceLocation:
	default:
		return fmt.Errorf("invalid schedule source: %s (must be time or location)", c.Schedule.Source)
	}

	if _, err := ParseClock(c.Schedule.LightAt); err != nil {
		return fmt.Errorf("schedule.light-at: %w", err)
	}
	if _, err := ParseClock(c.Schedule.DarkAt); err != nil {
		return fmt.Errorf("schedule.dark-at: %w", err)
	}

	for name, offset := range map[string]int{
		"sunrise-offset": c.Schedule.SunriseOffset,
		"sunset-offset":  c.Schedule.SunsetOffset,
	} {
		if offset < -720 || offset > 720 {
			return fmt.Errorf("schedule.%s must be between -720 and 720 minutes", name)
		}
	}

	if c.Schedule.Latitude < -90 || c.Schedule.Latitude > 90 {
		return fmt.Errorf("schedule.latitude must be between -90 and 90")
	}
	if c.Schedule.Longitude < -180 || c.Schedule.Longitude > 180 {
		return fmt.Errorf("schedule.longitude must be between -180 and 180")
	}

	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port must be between 1 and 65535")
	}
	if c.Service.Interval <= 0 {
		return fmt.Errorf("service.interval must be greater than 0")
	}
	if c.Service.ApplyTimeout <= 0 {
		return fmt.Errorf("service.apply-timeout must be greater than 0")
	}
	if c.Task.Interval <= 0 {
		return fmt.Errorf("task.interval must be greater than 0")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	if c.Light.DisplayName == "" && c.Light.Path == "" {
		return fmt.Errorf("light: display-name or path is required")
	}
	if c.Dark.DisplayName == "" && c.Dark.Path == "" {
		return fmt.Errorf("dark: display-name or path is required")
	}

	return nil
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (c *Config) GetThemeConfig(theme ThemeMode) *ThemeConfig {
	switch theme {
	case ThemeModeDark:
		return &c.Dark
	default:
		return &c.Light
	}
}

// Address is the loopback address of the command channel.
func (c *Config) Address() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(c.Service.Port))
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.Service.Interval) * time.Second
}

func (c *Config) ApplyTimeout() time.Duration {
	return time.Duration(c.Service.ApplyTimeout) * time.Second
}

func (c *Config) TaskInterval() time.Duration {
	return time.Duration(c.Task.Interval) * time.Minute
}

func (c *Config) ConfigPath() string {
	return c.configPath
}

func (c *Config) Save(path string) error {
	if path == "" {
		path = c.configPath
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	path = expandPath(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.State.Path)}
	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func expandPath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func expandEnv(s string) string {
	if s == "" {
		return ""
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		inner := s[2 : len(s)-1]

		if idx := strings.Index(inner, ":-"); idx != -1 {
			varName := inner[:idx]
			defaultVal := inner[idx+2:]
			if val := os.Getenv(varName); val != "" {
				return val
			}
			return defaultVal
		}

		return os.Getenv(inner)
	}

	if strings.HasPrefix(s, "$") && !strings.Contains(s, " ") {
		return os.Getenv(s[1:])
	}

	return s
}
