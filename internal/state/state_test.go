package state

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New("/tmp/state.json")

	require.NotNil(t, s)
	assert.Equal(t, "/tmp/state.json", s.Path())
	assert.Empty(t, s.History)
	assert.Empty(t, s.Current.DisplayName)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		wantErr     bool
		errContains string
		validate    func(t *testing.T, s *State)
	}{
		{
			name:    "valid state",
			file:    "testdata/valid.json",
			wantErr: false,
			validate: func(t *testing.T, s *State) {
				assert.Equal(t, map[string]string{"Aqua": "aqua_v2"}, s.LearnedNames())
				assert.Equal(t, "dark", s.Current.Theme)
				assert.Equal(t, "Aqua Dark", s.Current.DisplayName)
				assert.Len(t, s.History, 1)

				loc, ok := s.GetLocation()
				require.True(t, ok)
				assert.InDelta(t, 52.52, loc.Latitude, 1e-9)
			},
		},
		{
			name:        "invalid json",
			file:        "testdata/invalid.json",
			wantErr:     true,
			errContains: "failed to parse",
		},
		{
			name:    "non-existent file returns empty state",
			file:    "testdata/does_not_exist.json",
			wantErr: false,
			validate: func(t *testing.T, s *State) {
				assert.Empty(t, s.LearnedNames())
				assert.Empty(t, s.Current.DisplayName)
				assert.Empty(t, s.History)
				_, ok := s.GetLocation()
				assert.False(t, ok)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(tt.file)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, s)

			if tt.validate != nil {
				tt.validate(t, s)
			}
		})
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	emptyFile := filepath.Join(tmpDir, "empty.json")

	err := os.WriteFile(emptyFile, []byte{}, 0644)
	require.NoError(t, err)

	s, err := Load(emptyFile)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Empty(t, s.Current.Theme)
}

func TestState_Save(t *testing.T) {
	tmpDir := t.TempDir()
	statePath := filepath.Join(tmpDir, "subdir", "state.json")

	s := New(statePath)
	s.SetCurrent("light", "Aqua Light", "schedule")
	s.SetLocation(48.85, 2.35)

	err := s.Save()
	require.NoError(t, err)

	_, err = os.Stat(statePath)
	require.NoError(t, err)
	_, err = os.Stat(statePath + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := Load(statePath)
	require.NoError(t, err)
	assert.Equal(t, "Aqua Light", loaded.CurrentApplied().DisplayName)
	loc, ok := loaded.GetLocation()
	require.True(t, ok)
	assert.InDelta(t, 2.35, loc.Longitude, 1e-9)
}

func TestState_Save_NoPath(t *testing.T) {
	s := &State{}
	err := s.Save()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path not set")
}

func TestState_SetLearnedNames(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	s := New(statePath)

	names := map[string]string{"Aqua": "aqua_v2"}
	require.NoError(t, s.SetLearnedNames(names))

	names["Aqua"] = "mutated"
	assert.Equal(t, "aqua_v2", s.LearnedNames()["Aqua"])

	loaded, err := Load(statePath)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Aqua": "aqua_v2"}, loaded.LearnedNames())
}

func TestState_History(t *testing.T) {
	s := New("")

	s.SetCurrent("light", "Aqua Light", "schedule")
	assert.Empty(t, s.History)

	for i := 0; i < maxHistory+10; i++ {
		s.SetCurrent("dark", "Aqua Dark", "command")
	}
	assert.Len(t, s.History, maxHistory)
	assert.Equal(t, "Aqua Dark", s.CurrentApplied().DisplayName)
}

func TestState_Override(t *testing.T) {
	s := New("")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, ok := s.ActiveOverride(now)
	assert.False(t, ok)

	s.SetOverride("dark", now.Add(time.Hour))

	theme, ok := s.ActiveOverride(now)
	assert.True(t, ok)
	assert.Equal(t, "dark", theme)

	_, ok = s.ActiveOverride(now.Add(time.Hour))
	assert.False(t, ok)
	assert.Nil(t, s.Override, "expired override is cleared")

	s.SetOverride("light", now.Add(time.Hour))
	s.ClearOverride()
	_, ok = s.ActiveOverride(now)
	assert.False(t, ok)
}

func TestState_ConcurrentAccess(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.SetCurrent("dark", "Aqua Dark", "test")
				_ = s.LearnedNames()
				assert.NoError(t, s.SetLearnedNames(map[string]string{"a": "b"}))
			}
		}()
	}
	wg.Wait()
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	assert.Equal(t, "", expandPath(""))
	assert.Equal(t, "/abs/state.json", expandPath("/abs/state.json"))
	assert.Equal(t, filepath.Join(home, "state.json"), expandPath("~/state.json"))
}
