package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const maxHistory = 50

type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Applied struct {
	Theme       string    `json:"theme"`
	DisplayName string    `json:"display_name"`
	Origin      string    `json:"origin,omitempty"`
	AppliedAt   time.Time `json:"applied_at"`
}

// Override pins a theme until the next scheduled transition.
type Override struct {
	Theme string    `json:"theme"`
	Until time.Time `json:"until"`
}

// State is safe for concurrent use.
type State struct {
	LearnedThemeNames map[string]string `json:"learned_theme_names,omitempty"`
	Location          *Location         `json:"location,omitempty"`
	Current           Applied           `json:"current"`
	Override          *Override         `json:"override,omitempty"`
	History           []Applied         `json:"history"`

	mu   sync.Mutex
	path string
}

func New(path string) *State {
	return &State{
		path:    path,
		History: []Applied{},
	}
}

func Load(path string) (*State, error) {
	path = expandPath(path)
	s := New(path)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if s.History == nil {
		s.History = []Applied{}
	}

	return s, nil
}

func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *State) saveLocked() error {
	if s.path == "" {
		return fmt.Errorf("state path not set")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

func (s *State) Path() string {
	return s.path
}

// LearnedNames returns a copy of the learned theme names.
func (s *State) LearnedNames() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make(map[string]string, len(s.LearnedThemeNames))
	for k, v := range s.LearnedThemeNames {
		names[k] = v
	}
	return names
}

// SetLearnedNames replaces the learned names and saves the file.
func (s *State) SetLearnedNames(names map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LearnedThemeNames = make(map[string]string, len(names))
	for k, v := range names {
		s.LearnedThemeNames[k] = v
	}
	return s.saveLocked()
}

func (s *State) SetCurrent(theme, displayName, origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Current.DisplayName != "" {
		s.History = append(s.History, s.Current)
		if len(s.History) > maxHistory {
			s.History = s.History[len(s.History)-maxHistory:]
		}
	}

	s.Current = Applied{
		Theme:       theme,
		DisplayName: displayName,
		Origin:      origin,
		AppliedAt:   time.Now(),
	}
}

func (s *State) CurrentApplied() Applied {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Current
}

func (s *State) SetLocation(lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Location = &Location{Latitude: lat, Longitude: lon, UpdatedAt: time.Now()}
}

func (s *State) GetLocation() (Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Location == nil {
		return Location{}, false
	}
	return *s.Location, true
}

func (s *State) SetOverride(theme string, until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Override = &Override{Theme: theme, Until: until}
}

// ActiveOverride returns the pinned theme if it has not expired at now.
// An expired override is cleared.
func (s *State) ActiveOverride(now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Override == nil {
		return "", false
	}
	if !now.Before(s.Override.Until) {
		s.Override = nil
		return "", false
	}
	return s.Override.Theme, true
}

func (s *State) ClearOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Override = nil
}

func expandPath(path string) string {
	if path == "" {
		return ""
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
