//go:build windows

package windows

import (
	"testing"
	"time"

	"github.com/darkawower/autodark/internal/platform"
	"github.com/stretchr/testify/assert"
)

func TestPlatformInterface(t *testing.T) {
	p := New()

	var _ platform.Platform = p

	assert.Equal(t, "windows", p.Name())
	assert.True(t, p.IsSupported())
	assert.NotNil(t, p.ThemeManager())
	assert.NotNil(t, p.Autostart())
}

func TestThemeService(t *testing.T) {
	theme := NewThemeService().Detect()
	assert.True(t, theme == platform.ThemeLight || theme == platform.ThemeDark)
}

func TestParseTaskList(t *testing.T) {
	output := "TaskName:      \\Auto Dark Mode\r\nScheduled Task State:  Enabled\r\nRepeat: Every:  0 Hour(s), 15 Minute(s)\r\n"

	info := parseTaskList(output)
	assert.Equal(t, "Enabled", info["Scheduled Task State"])
	assert.Equal(t, 15*time.Minute, parseRepeat(info["Repeat: Every"]))
}

func TestParseRepeat_Invalid(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRepeat("Disabled"))
}

func TestQuoteArg(t *testing.T) {
	assert.Equal(t, "service", quoteArg("service"))
	assert.Equal(t, `"C:\Program Files\autodark.exe"`, quoteArg(`C:\Program Files\autodark.exe`))
}
