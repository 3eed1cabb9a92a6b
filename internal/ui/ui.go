// Package ui renders autodark command output for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/darkawower/autodark/internal/learned"
	"github.com/darkawower/autodark/internal/platform"
)

// ANSI codes.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
)

const (
	SymbolSuccess = "✔"
	SymbolError   = "✖"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
	SymbolArrow   = "→"
	SymbolCurrent = "●"
	SymbolSun     = "☀"
	SymbolMoon    = "☾"
)

const timeLayout = "2006-01-02 15:04:05"

// Output writes status lines to w.
type Output struct {
	w       io.Writer
	noColor bool
	quiet   bool
	verbose bool
}

func NewOutput(w io.Writer) *Output {
	return &Output{w: w}
}

// DefaultOutput writes to stdout.
func DefaultOutput() *Output {
	return NewOutput(os.Stdout)
}

func (o *Output) SetNoColor(noColor bool) { o.noColor = noColor }
func (o *Output) SetQuiet(quiet bool)     { o.quiet = quiet }
func (o *Output) SetVerbose(verbose bool) { o.verbose = verbose }

func (o *Output) color(code, text string) string {
	if o.noColor {
		return text
	}
	return code + text + Reset
}

func (o *Output) line(symbol, code, format string, args []any) {
	fmt.Fprintf(o.w, "%s %s\n", o.color(code, symbol), fmt.Sprintf(format, args...))
}

func (o *Output) Success(format string, args ...any) {
	if o.quiet {
		return
	}
	o.line(SymbolSuccess, Green, format, args)
}

// Error prints even in quiet mode.
func (o *Output) Error(format string, args ...any) {
	o.line(SymbolError, Red, format, args)
}

func (o *Output) ErrorWithHint(err, hint string) {
	o.line(SymbolError, Red, "%s", []any{err})
	fmt.Fprintf(o.w, "  %s %s\n", o.color(Gray, "Hint:"), hint)
}

func (o *Output) Warning(format string, args ...any) {
	if o.quiet {
		return
	}
	o.line(SymbolWarning, Yellow, format, args)
}

func (o *Output) Info(format string, args ...any) {
	if o.quiet {
		return
	}
	o.line(SymbolInfo, Blue, format, args)
}

func (o *Output) Print(format string, args ...any) {
	if o.quiet {
		return
	}
	fmt.Fprintf(o.w, format+"\n", args...)
}

// Debug prints only in verbose mode.
func (o *Output) Debug(format string, args ...any) {
	if !o.verbose {
		return
	}
	o.line("[DEBUG]", Gray, format, args)
}

func (o *Output) Field(label, value string) {
	o.FieldColored(label, value, "")
}

func (o *Output) FieldColored(label, value, code string) {
	if o.quiet {
		return
	}
	if code != "" {
		value = o.color(code, value)
	}
	fmt.Fprintf(o.w, "  %s %s\n", o.color(Gray, label+":"), value)
}

// Table prints rows under headers with columns padded to the widest cell.
func (o *Output) Table(headers []string, rows [][]string) {
	if o.quiet {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len([]rune(h))
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len([]rune(cell)) > widths[i] {
				widths[i] = len([]rune(cell))
			}
		}
	}

	join := func(cells []string) string {
		var b strings.Builder
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-len([]rune(cell))+2))
		}
		return strings.TrimRight(b.String(), " ")
	}

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}

	fmt.Fprintln(o.w, o.color(Bold, join(headers)))
	fmt.Fprintln(o.w, o.color(Gray, join(sep)))
	for _, row := range rows {
		fmt.Fprintln(o.w, join(row))
	}
}

// ThemeBadge renders a theme with its sun or moon symbol.
func (o *Output) ThemeBadge(theme string) string {
	switch platform.Theme(theme) {
	case platform.ThemeDark:
		return o.color(Blue, SymbolMoon+" "+theme)
	case platform.ThemeLight:
		return o.color(Yellow, SymbolSun+" "+theme)
	}
	return theme
}

// Applied prints the last applied theme.
func (o *Output) Applied(theme, displayName, origin string, at time.Time) {
	if displayName == "" {
		o.Info("No theme applied yet")
		return
	}
	o.Success("%s %s", o.ThemeBadge(theme), displayName)
	if origin != "" {
		o.Field("Reason", origin)
	}
	if !at.IsZero() {
		o.Field("Applied at", at.Local().Format(timeLayout))
	}
}

// Schedule prints the desired theme and the next transition.
func (o *Output) Schedule(theme, source string, next time.Time, fallback bool) {
	o.Field("Scheduled", o.ThemeBadge(theme))
	src := source
	if fallback {
		src += " (no location, using fixed times)"
	}
	o.Field("Source", src)
	if !next.IsZero() {
		o.Field("Next change", next.Local().Format(timeLayout))
	}
}

// Catalog prints the installed themes, marking the active one.
func (o *Output) Catalog(themes []platform.ThemeDescriptor, current string) {
	if len(themes) == 0 {
		o.Warning("No themes installed")
		return
	}

	rows := make([][]string, 0, len(themes))
	for _, t := range themes {
		mark := ""
		if t.DisplayName == current {
			mark = SymbolCurrent
		}
		rows = append(rows, []string{mark, fmt.Sprintf("%d", t.Index), t.DisplayName})
	}
	o.Table([]string{"", "#", "Name"}, rows)
}

// Learned prints requested to actual name mappings.
func (o *Output) Learned(entries []learned.Entry) {
	if len(entries) == 0 {
		o.Info("No learned theme names")
		return
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Requested, SymbolArrow, e.Actual})
	}
	o.Table([]string{"Requested", "", "Applied as"}, rows)
}

// Spinner animates a message until stopped.
type Spinner struct {
	out      *Output
	message  string
	frames   []string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewSpinner(out *Output, message string) *Spinner {
	return &Spinner{
		out:      out,
		message:  message,
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 80 * time.Millisecond,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Spinner) Start() {
	if s.out.quiet {
		close(s.done)
		return
	}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			fmt.Fprintf(s.out.w, "\r%s %s", s.out.color(Cyan, s.frames[i%len(s.frames)]), s.message)
			select {
			case <-s.stop:
				fmt.Fprintf(s.out.w, "\r%s\r", strings.Repeat(" ", len([]rune(s.message))+4))
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop blocks until the spinner line is cleared.
func (s *Spinner) Stop() {
	close(s.stop)
	<-s.done
}
