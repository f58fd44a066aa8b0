// Package dashboard renders a Grafana dashboard for the GreptimeDB tables
// written by the fixture sinks.
package dashboard

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

// Tables names the GreptimeDB database and tables the dashboard queries.
type Tables struct {
	Database    string
	RecordTable string
	FleetTable  string
}

var funcMap = template.FuncMap{
	"env": func(key string) (string, error) {
		v := os.Getenv(key)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", key)
		}
		return v, nil
	},
}

// Render executes every embedded template with t and writes the dashboards
// to outDir. It returns the written paths.
func Render(outDir string, t Tables) ([]string, error) {
	tpl, err := template.New("").Funcs(funcMap).ParseFS(templates, "templates/*.json.tmpl")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for _, tmpl := range tpl.Templates() {
		if tmpl.Name() == "" {
			continue
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, t); err != nil {
			return nil, err
		}
		if !json.Valid(buf.Bytes()) {
			return nil, fmt.Errorf("dashboard %s: rendered invalid JSON", tmpl.Name())
		}
		out := filepath.Join(outDir, strings.TrimSuffix(tmpl.Name(), ".tmpl"))
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, out)
	}
	return paths, nil
}
