package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkawower/autodark/internal/learned"
	"github.com/darkawower/autodark/internal/platform"
)

func newPlain() (*Output, *bytes.Buffer) {
	var buf bytes.Buffer
	o := NewOutput(&buf)
	o.SetNoColor(true)
	return o, &buf
}

func TestOutput_color(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf)

	t.Run("with color", func(t *testing.T) {
		result := o.color(Green, "test")
		assert.Equal(t, Green+"test"+Reset, result)
	})

	t.Run("without color", func(t *testing.T) {
		o.SetNoColor(true)
		assert.Equal(t, "test", o.color(Green, "test"))
	})
}

func TestOutput_Levels(t *testing.T) {
	tests := []struct {
		name   string
		write  func(o *Output)
		symbol string
		quiet  bool
	}{
		{"success", func(o *Output) { o.Success("done %s", "now") }, SymbolSuccess, false},
		{"error", func(o *Output) { o.Error("done %s", "now") }, SymbolError, true},
		{"warning", func(o *Output) { o.Warning("done %s", "now") }, SymbolWarning, false},
		{"info", func(o *Output) { o.Info("done %s", "now") }, SymbolInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, buf := newPlain()
			tt.write(o)
			assert.Equal(t, tt.symbol+" done now\n", buf.String())

			buf.Reset()
			o.SetQuiet(true)
			tt.write(o)
			if tt.quiet {
				assert.Contains(t, buf.String(), "done now")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutput_ErrorWithHint(t *testing.T) {
	o, buf := newPlain()

	o.ErrorWithHint("service not reachable", "run autodark service")
	assert.Equal(t, SymbolError+" service not reachable\n  Hint: run autodark service\n", buf.String())
}

func TestOutput_Debug(t *testing.T) {
	o, buf := newPlain()

	o.Debug("hidden")
	assert.Empty(t, buf.String())

	o.SetVerbose(true)
	o.Debug("shown %d", 1)
	assert.Equal(t, "[DEBUG] shown 1\n", buf.String())
}

func TestOutput_Field(t *testing.T) {
	o, buf := newPlain()

	o.Field("Label", "Value")
	assert.Equal(t, "  Label: Value\n", buf.String())

	buf.Reset()
	o.SetQuiet(true)
	o.FieldColored("Label", "Value", Green)
	assert.Empty(t, buf.String())
}

func TestOutput_Table(t *testing.T) {
	o, buf := newPlain()

	o.Table([]string{"Name", "Value"}, [][]string{
		{"a", "1"},
		{"longer", "2"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Name    Value", lines[0])
	assert.Equal(t, "------  -----", lines[1])
	assert.Equal(t, "a       1", lines[2])
	assert.Equal(t, "longer  2", lines[3])
}

func TestOutput_Table_Runes(t *testing.T) {
	o, buf := newPlain()

	o.Table([]string{"", "Name"}, [][]string{{SymbolCurrent, "x"}, {"", "y"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, SymbolCurrent+"  x", lines[2])
	assert.Equal(t, "   y", lines[3])
}

func TestOutput_ThemeBadge(t *testing.T) {
	o, _ := newPlain()

	assert.Equal(t, SymbolMoon+" dark", o.ThemeBadge("dark"))
	assert.Equal(t, SymbolSun+" light", o.ThemeBadge("light"))
	assert.Equal(t, "auto", o.ThemeBadge("auto"))
}

func TestOutput_Applied(t *testing.T) {
	o, buf := newPlain()

	at := time.Date(2026, 5, 4, 19, 0, 0, 0, time.Local)
	o.Applied("dark", "Windows (dark)", "timer", at)

	out := buf.String()
	assert.Contains(t, out, SymbolMoon+" dark Windows (dark)")
	assert.Contains(t, out, "Reason: timer")
	assert.Contains(t, out, "Applied at: 2026-05-04 19:00:00")
}

func TestOutput_Applied_Never(t *testing.T) {
	o, buf := newPlain()

	o.Applied("", "", "", time.Time{})
	assert.Contains(t, buf.String(), "No theme applied yet")
}

func TestOutput_Schedule(t *testing.T) {
	o, buf := newPlain()

	o.Schedule("light", "time", time.Time{}, true)

	out := buf.String()
	assert.Contains(t, out, "Scheduled: "+SymbolSun+" light")
	assert.Contains(t, out, "using fixed times")
	assert.NotContains(t, out, "Next change")
}

func TestOutput_Catalog(t *testing.T) {
	o, buf := newPlain()

	o.Catalog([]platform.ThemeDescriptor{
		{Index: 0, DisplayName: "Windows (light)"},
		{Index: 1, DisplayName: "Windows (dark)"},
	}, "Windows (dark)")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], " "))
	assert.True(t, strings.HasPrefix(lines[3], SymbolCurrent))
	assert.Contains(t, lines[3], "Windows (dark)")
}

func TestOutput_Catalog_Empty(t *testing.T) {
	o, buf := newPlain()

	o.Catalog(nil, "")
	assert.Contains(t, buf.String(), "No themes installed")
}

func TestOutput_Learned(t *testing.T) {
	o, buf := newPlain()

	o.Learned([]learned.Entry{{Requested: "Dark", Actual: "Dark (custom)"}})
	assert.Contains(t, buf.String(), "Dark       "+SymbolArrow+"  Dark (custom)")

	buf.Reset()
	o.Learned(nil)
	assert.Contains(t, buf.String(), "No learned theme names")
}

func TestSpinner_StartStop(t *testing.T) {
	o, buf := newPlain()

	s := NewSpinner(o, "Starting service")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	assert.Contains(t, buf.String(), "Starting service")
	assert.True(t, strings.HasSuffix(buf.String(), "\r"))
}

func TestSpinner_Quiet(t *testing.T) {
	o, buf := newPlain()
	o.SetQuiet(true)

	s := NewSpinner(o, "Starting service")
	s.Start()
	s.Stop()

	assert.Empty(t, buf.String())
}
