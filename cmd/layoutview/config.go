package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

const configName = ".cxxlayout.toml"

type fileConfig struct {
	Target   targetConfig   `toml:"target"`
	Output   outputConfig   `toml:"output"`
	Analysis analysisConfig `toml:"analysis"`
	Log      logConfig      `toml:"log"`
}

type targetConfig struct {
	Args string `toml:"args"`
}

type outputConfig struct {
	Color  string `toml:"color"`
	Format string `toml:"format"`
}

type analysisConfig struct {
	MaxDiagnostics int `toml:"max_diagnostics"`
	Workers        int `toml:"workers"`
}

type logConfig struct {
	Level string `toml:"level"`
}

var (
	colorModes    = []string{"auto", "on", "off"}
	layoutFormats = []string{"json", "msgpack"}
)

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadConfig decodes and validates a config file. Only keys present in
// the file are applied; the returned function copies them into s.
func loadConfig(path string) (func(s *settings, changed func(string) bool), error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, keys[0].String())
	}
	if meta.IsDefined("output", "color") && !slices.Contains(colorModes, cfg.Output.Color) {
		return nil, fmt.Errorf("%s: output.color must be one of %s", path, strings.Join(colorModes, ", "))
	}
	if meta.IsDefined("output", "format") && !slices.Contains(layoutFormats, cfg.Output.Format) {
		return nil, fmt.Errorf("%s: output.format must be one of %s", path, strings.Join(layoutFormats, ", "))
	}
	if cfg.Analysis.MaxDiagnostics < 0 {
		return nil, fmt.Errorf("%s: analysis.max_diagnostics must not be negative", path)
	}
	if cfg.Analysis.Workers < 0 {
		return nil, fmt.Errorf("%s: analysis.workers must not be negative", path)
	}

	return func(s *settings, changed func(string) bool) {
		if meta.IsDefined("target", "args") && !changed("target") {
			s.target = cfg.Target.Args
		}
		if meta.IsDefined("output", "color") && !changed("color") {
			s.color = cfg.Output.Color
		}
		if meta.IsDefined("output", "format") && !changed("format") {
			s.format = cfg.Output.Format
		}
		if meta.IsDefined("analysis", "max_diagnostics") && !changed("max-diagnostics") {
			s.maxDiagnostics = cfg.Analysis.MaxDiagnostics
		}
		if meta.IsDefined("analysis", "workers") && cfg.Analysis.Workers > 0 && !changed("workers") {
			s.workers = cfg.Analysis.Workers
		}
		if meta.IsDefined("log", "level") && !changed("log-level") {
			s.logLevel = cfg.Log.Level
		}
	}, nil
}

// loadSettings merges the config file into opts. Flags given on the
// command line win over the file.
func loadSettings(cmd *cobra.Command) error {
	path := configFile
	if path == "" {
		found, ok, err := findConfig(".")
		if err != nil {
			return err
		}
		if !ok {
			return validateSettings(&opts)
		}
		path = found
	}

	apply, err := loadConfig(path)
	if err != nil {
		return err
	}
	apply(&opts, cmd.Flags().Changed)
	return validateSettings(&opts)
}

func validateSettings(s *settings) error {
	if !slices.Contains(colorModes, s.color) {
		return fmt.Errorf("invalid --color %q: must be one of %s", s.color, strings.Join(colorModes, ", "))
	}
	if !slices.Contains(layoutFormats, s.format) {
		return fmt.Errorf("invalid --format %q: must be one of %s", s.format, strings.Join(layoutFormats, ", "))
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return nil
}
