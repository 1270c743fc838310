package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

var recordsJSON bool

var recordsCmd = &cobra.Command{
	Use:   "records <source-file>",
	Short: "List the records declared in a source file",
	Long: `List every complete class, struct and union found in a C++ source file
with its id, size and alignment.

Use --json to print the record index in its wire form.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecords,
}

func init() {
	recordsCmd.Flags().BoolVar(&recordsJSON, "json", false, "print the record index as JSON")
}

const nameColumn = 40

func runRecords(cmd *cobra.Command, args []string) error {
	s, err := analyze(cmd, args[0])
	if err != nil {
		return err
	}

	if recordsJSON {
		fmt.Fprintf(output, "%s\n", s.ListRecordsJSON())
		return nil
	}

	invalid := color.New(color.FgRed)

	fmt.Fprintf(output, "%-6s %s %8s %6s %s\n", "ID", runewidth.FillRight("NAME", nameColumn), "SIZE", "ALIGN", "VALID")
	fmt.Fprintf(output, "%s\n", strings.Repeat("-", 80))

	count := 0
	for ref := range s.Records() {
		d, ok := s.Decl(ref.ID)
		if !ok {
			continue
		}
		name := runewidth.FillRight(runewidth.Truncate(ref.Name, nameColumn, "…"), nameColumn)
		valid := "yes"
		if !d.Valid {
			valid = invalid.Sprint("no")
		}
		fmt.Fprintf(output, "%-6s %s %8d %6d %s\n", ref.ID, name, d.Size, d.Align, valid)
		count++
	}

	fmt.Fprintf(output, "\nTotal: %d records\n", count)
	return nil
}
