package main

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, configName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestFindConfigSearchesUpward(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	got, ok, err := findConfig(nested)
	if err != nil || !ok {
		t.Fatalf("findConfig: got %q,%v,%v", got, ok, err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadConfig(t *testing.T) {
	const full = `
[target]
args = "-m32"

[output]
color = "off"
format = "msgpack"

[analysis]
max_diagnostics = 5
workers = 3

[log]
level = "debug"
`
	tests := []struct {
		name    string
		body    string
		changed []string
		want    settings
		wantErr string
	}{
		{
			name: "all keys",
			body: full,
			want: settings{target: "-m32", color: "off", format: "msgpack", logLevel: "debug", maxDiagnostics: 5, workers: 3},
		},
		{
			name:    "flags win",
			body:    full,
			changed: []string{"target", "workers"},
			want:    settings{target: "", color: "off", format: "msgpack", logLevel: "debug", maxDiagnostics: 5, workers: 1},
		},
		{
			name: "partial",
			body: "[output]\ncolor = \"on\"\n",
			want: settings{color: "on", format: "json", logLevel: "warn", maxDiagnostics: 200, workers: 1},
		},
		{
			name:    "unknown key",
			body:    "[output]\ncolour = \"on\"\n",
			wantErr: "unknown key",
		},
		{
			name:    "bad color",
			body:    "[output]\ncolor = \"sometimes\"\n",
			wantErr: "output.color",
		},
		{
			name:    "negative workers",
			body:    "[analysis]\nworkers = -1\n",
			wantErr: "analysis.workers",
		},
		{
			name:    "malformed",
			body:    "[output\n",
			wantErr: "failed to parse TOML",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			apply, err := loadConfig(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("got %v, want error containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadConfig: %v", err)
			}

			s := settings{color: "auto", format: "json", logLevel: "warn", maxDiagnostics: 200, workers: 1}
			apply(&s, func(name string) bool { return slices.Contains(tt.changed, name) })
			if s != tt.want {
				t.Errorf("got %+v, want %+v", s, tt.want)
			}
		})
	}
}

func TestValidateSettings(t *testing.T) {
	s := settings{color: "auto", format: "json", workers: 0}
	if err := validateSettings(&s); err != nil {
		t.Fatalf("validateSettings: %v", err)
	}
	if s.workers != 1 {
		t.Errorf("workers: got %d, want 1", s.workers)
	}

	bad := settings{color: "auto", format: "yaml"}
	if err := validateSettings(&bad); err == nil {
		t.Error("expected error for unknown format")
	}
}
