package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var diagCmd = &cobra.Command{
	Use:   "diag <source-file>",
	Short: "Print the diagnostics of a source file",
	Long:  `Print the errors, warnings and notes collected while reading a C++ source file.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDiag,
}

var severityColors = map[string]*color.Color{
	"error":   color.New(color.FgRed, color.Bold),
	"warning": color.New(color.FgYellow, color.Bold),
	"note":    color.New(color.FgCyan),
}

func runDiag(cmd *cobra.Command, args []string) error {
	s, err := analyze(cmd, args[0])
	if err != nil {
		return err
	}

	text := s.DiagnosticsText()
	if text == "" {
		fmt.Fprintln(output, "no diagnostics")
		return nil
	}
	for line := range strings.Lines(text) {
		fmt.Fprint(output, colorSeverity(line))
	}
	return nil
}

// colorSeverity colors the severity word of one compiler-style line.
func colorSeverity(line string) string {
	for sev, c := range severityColors {
		marker := ": " + sev + ": "
		if i := strings.Index(line, marker); i >= 0 {
			return line[:i+2] + c.Sprint(sev) + line[i+len(marker)-2:]
		}
	}
	return line
}
