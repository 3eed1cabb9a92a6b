//go:build darwin

package darwin

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// launchAgent is the subset of a launchd property list autodark writes.
type launchAgent struct {
	Label         string
	Program       []string
	StartInterval int
	RunAtLoad     bool
	// LoginOnly limits the agent to GUI login sessions.
	LoginOnly bool
	LogPath   string
}

var launchAgentTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{"x": xmlEscape}).Parse(
	`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{x .Label}}</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Program}}
        <string>{{x .}}</string>
{{- end}}
    </array>
{{- if gt .StartInterval 0}}
    <key>StartInterval</key>
    <integer>{{.StartInterval}}</integer>
{{- end}}
    <key>RunAtLoad</key>
    <{{.RunAtLoad}}/>
{{- if .LoginOnly}}
    <key>LimitLoadToSessionType</key>
    <string>Aqua</string>
{{- end}}
{{- if .LogPath}}
    <key>StandardOutPath</key>
    <string>{{x .LogPath}}</string>
    <key>StandardErrorPath</key>
    <string>{{x .LogPath}}</string>
{{- end}}
</dict>
</plist>
`))

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func launchAgentPath(label string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", label+".plist"), nil
}

func (a launchAgent) render() ([]byte, error) {
	var buf bytes.Buffer
	if err := launchAgentTemplate.Execute(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// write stores the agent at path, unloading any previous copy first.
func (a launchAgent) write(path string) error {
	data, err := a.render()
	if err != nil {
		return fmt.Errorf("failed to render plist: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		_ = exec.Command("launchctl", "unload", path).Run()
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write plist: %w", err)
	}
	return nil
}

// removeLaunchAgent unloads and deletes the agent. A missing file is not an
// error.
func removeLaunchAgent(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	_ = exec.Command("launchctl", "unload", path).Run()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plist: %w", err)
	}
	return nil
}

// readLaunchAgent decodes the top-level dict of a property list.
func readLaunchAgent(r io.Reader) (launchAgent, error) {
	var a launchAgent
	dec := xml.NewDecoder(r)

	depth := 0
	key := ""
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return a, nil
		}
		if err != nil {
			return a, fmt.Errorf("invalid plist: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			// plist > dict > value
			if depth != 3 {
				continue
			}
			switch t.Name.Local {
			case "key":
				var k string
				if err := dec.DecodeElement(&k, &t); err != nil {
					return a, err
				}
				depth--
				key = k
			case "true", "false":
				if key == "RunAtLoad" {
					a.RunAtLoad = t.Name.Local == "true"
				}
			case "string", "integer":
				var v string
				if err := dec.DecodeElement(&v, &t); err != nil {
					return a, err
				}
				depth--
				a.set(key, strings.TrimSpace(v))
			case "array":
				if key == "ProgramArguments" {
					var arr struct {
						Items []string `xml:"string"`
					}
					if err := dec.DecodeElement(&arr, &t); err != nil {
						return a, err
					}
					depth--
					a.Program = arr.Items
				}
			}
		case xml.EndElement:
			depth--
		}
	}
}

func (a *launchAgent) set(key, value string) {
	switch key {
	case "Label":
		a.Label = value
	case "StartInterval":
		a.StartInterval, _ = strconv.Atoi(value)
	case "StandardOutPath":
		a.LogPath = value
	case "LimitLoadToSessionType":
		a.LoginOnly = value == "Aqua"
	}
}

func (a launchAgent) interval() time.Duration {
	return time.Duration(a.StartInterval) * time.Second
}
