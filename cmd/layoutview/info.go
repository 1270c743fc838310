package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/cxxlayout/layout"
)

var infoCmd = &cobra.Command{
	Use:   "info <source-file>",
	Short: "Display analysis information",
	Long:  `Display the target, record counts and diagnostic counts of a C++ source file.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := analyze(cmd, args[0])
	if err != nil {
		return err
	}

	t := s.Target()
	fmt.Fprintf(output, "Source: %s\n", args[0])
	fmt.Fprintf(output, "Target: %s\n", t.Triple)
	fmt.Fprintf(output, "Pointer Size: %d\n", t.PointerSize)
	fmt.Fprintf(output, "Long Size: %d\n", t.LongSize)
	fmt.Fprintf(output, "Long Double Size: %d\n", t.LongDoubleSize)

	records, invalid := 0, 0
	for ref := range s.Records() {
		records++
		if d, ok := s.Decl(ref.ID); ok && !d.Valid {
			invalid++
		}
	}
	fmt.Fprintf(output, "Records: %d\n", records)
	fmt.Fprintf(output, "Invalid Records: %d\n", invalid)

	counts := make(map[layout.Severity]int)
	for _, d := range s.Diagnostics() {
		counts[d.Severity]++
	}
	fmt.Fprintf(output, "Errors: %d\n", counts[layout.SeverityError])
	fmt.Fprintf(output, "Warnings: %d\n", counts[layout.SeverityWarning])
	fmt.Fprintf(output, "Notes: %d\n", counts[layout.SeverityNote])
	return nil
}
