package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkawower/autodark/internal/config"
	"github.com/darkawower/autodark/internal/platform"
)

var cest = time.FixedZone("CEST", 2*3600)

func within(t *testing.T, want, got time.Time, tolerance time.Duration) {
	t.Helper()
	diff := got.Sub(want)
	if diff < 0 {
		diff = -diff
	}
	assert.LessOrEqual(t, diff, tolerance, "want %s, got %s", want, got)
}

func TestSunTimes_Berlin(t *testing.T) {
	day := time.Date(2026, 6, 21, 12, 0, 0, 0, cest)

	rise, set, kind := SunTimes(day, 52.52, 13.405)

	require.Equal(t, NormalDay, kind)
	within(t, time.Date(2026, 6, 21, 4, 43, 0, 0, cest), rise, 10*time.Minute)
	within(t, time.Date(2026, 6, 21, 21, 33, 0, 0, cest), set, 10*time.Minute)
	assert.Equal(t, cest, rise.Location())
}

func TestSunTimes_EquatorEquinox(t *testing.T) {
	day := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	rise, set, kind := SunTimes(day, 0, 0)

	require.Equal(t, NormalDay, kind)
	noon := rise.Add(set.Sub(rise) / 2)
	within(t, time.Date(2026, 3, 20, 12, 7, 0, 0, time.UTC), noon, 5*time.Minute)
	assert.InDelta(t, 12*60+7, set.Sub(rise).Minutes(), 8)
}

func TestSunTimes_Polar(t *testing.T) {
	_, _, kind := SunTimes(time.Date(2026, 12, 21, 12, 0, 0, 0, time.UTC), 69.65, 18.96)
	assert.Equal(t, PolarNight, kind)

	_, _, kind = SunTimes(time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC), 69.65, 18.96)
	assert.Equal(t, MidnightSun, kind)
}

func TestDesired_Fixed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d, err := New(config.ScheduleConfig{Mode: config.ThemeModeDark}, nil).Desired(now)
	require.NoError(t, err)
	assert.Equal(t, platform.ThemeDark, d.Theme)
	assert.Equal(t, "fixed", d.Source)
	assert.True(t, d.Next.After(now))

	d, err = New(config.ScheduleConfig{Mode: config.ThemeModeLight}, nil).Desired(now)
	require.NoError(t, err)
	assert.Equal(t, platform.ThemeLight, d.Theme)

	_, err = New(config.ScheduleConfig{Mode: "sepia"}, nil).Desired(now)
	assert.Error(t, err)
}

func TestDesired_Clock(t *testing.T) {
	day := func(h, m int) time.Time { return time.Date(2026, 3, 1, h, m, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		lightAt  string
		darkAt   string
		now      time.Time
		want     platform.Theme
		wantNext time.Time
	}{
		{"before light", "07:00", "19:00", day(6, 59), platform.ThemeDark, day(7, 0)},
		{"at light", "07:00", "19:00", day(7, 0), platform.ThemeLight, day(19, 0)},
		{"afternoon", "07:00", "19:00", day(15, 0), platform.ThemeLight, day(19, 0)},
		{"at dark", "07:00", "19:00", day(19, 0), platform.ThemeDark, day(7, 0).AddDate(0, 0, 1)},
		{"inverted schedule, night shift light", "22:00", "06:00", day(23, 0), platform.ThemeLight, day(6, 0).AddDate(0, 0, 1)},
		{"inverted schedule, early light", "22:00", "06:00", day(5, 0), platform.ThemeLight, day(6, 0)},
		{"inverted schedule, day dark", "22:00", "06:00", day(12, 0), platform.ThemeDark, day(22, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(config.ScheduleConfig{
				Mode:    config.ThemeModeAuto,
				Source:  config.SourceTime,
				LightAt: tt.lightAt,
				DarkAt:  tt.darkAt,
			}, nil)

			d, err := s.Desired(tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Theme)
			assert.Equal(t, tt.wantNext, d.Next)
			assert.Equal(t, "time", d.Source)
		})
	}
}

func TestDesired_ClockInvalid(t *testing.T) {
	s := New(config.ScheduleConfig{Mode: config.ThemeModeAuto, Source: config.SourceTime, LightAt: "x", DarkAt: "19:00"}, nil)
	_, err := s.Desired(time.Now())
	assert.Error(t, err)
}

func TestDesired_Location(t *testing.T) {
	berlin := func() (float64, float64, bool) { return 52.52, 13.405, true }
	cfg := config.ScheduleConfig{Mode: config.ThemeModeAuto, Source: config.SourceLocation, LightAt: "07:00", DarkAt: "19:00"}

	t.Run("midday is light until sunset", func(t *testing.T) {
		d, err := New(cfg, berlin).Desired(time.Date(2026, 6, 21, 12, 0, 0, 0, cest))
		require.NoError(t, err)
		assert.Equal(t, platform.ThemeLight, d.Theme)
		assert.Equal(t, "location", d.Source)
		within(t, time.Date(2026, 6, 21, 21, 33, 0, 0, cest), d.Next, 10*time.Minute)
	})

	t.Run("night is dark until tomorrow's sunrise", func(t *testing.T) {
		d, err := New(cfg, berlin).Desired(time.Date(2026, 6, 21, 23, 0, 0, 0, cest))
		require.NoError(t, err)
		assert.Equal(t, platform.ThemeDark, d.Theme)
		within(t, time.Date(2026, 6, 22, 4, 43, 0, 0, cest), d.Next, 10*time.Minute)
	})

	t.Run("sunset offset", func(t *testing.T) {
		withOffset := cfg
		withOffset.SunsetOffset = 60
		d, err := New(withOffset, berlin).Desired(time.Date(2026, 6, 21, 22, 0, 0, 0, cest))
		require.NoError(t, err)
		assert.Equal(t, platform.ThemeLight, d.Theme)
	})

	t.Run("configured coordinates win", func(t *testing.T) {
		fixed := cfg
		fixed.Latitude, fixed.Longitude = 69.65, 18.96
		d, err := New(fixed, berlin).Desired(time.Date(2026, 12, 21, 12, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, platform.ThemeDark, d.Theme)
		assert.Equal(t, time.Date(2026, 12, 22, 0, 0, 0, 0, time.UTC), d.Next)
	})

	t.Run("falls back to clock without coordinates", func(t *testing.T) {
		d, err := New(cfg, func() (float64, float64, bool) { return 0, 0, false }).Desired(time.Date(2026, 6, 21, 12, 0, 0, 0, cest))
		require.NoError(t, err)
		assert.True(t, d.Fallback)
		assert.Equal(t, "time", d.Source)
		assert.Equal(t, platform.ThemeLight, d.Theme)
	})
}
