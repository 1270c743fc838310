package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/skdltmxn/cxxlayout/bytemap"
)

var bytesCmd = &cobra.Command{
	Use:   "bytes <source-file> <id-or-name>",
	Short: "Show which field owns each byte of a record",
	Long: `Show the byte ranges of a record grouped by the top-level field that
owns them. Bytes owned by no field are reported as padding.`,
	Args: cobra.ExactArgs(2),
	RunE: runBytes,
}

var paddingColor = color.New(color.Faint)

func runBytes(cmd *cobra.Command, args []string) error {
	s, err := analyze(cmd, args[0])
	if err != nil {
		return err
	}
	_, n, err := resolve(s, args[1])
	if err != nil {
		return fmt.Errorf("failed to find record: %w", err)
	}
	m, err := byteMap(n)
	if err != nil {
		return err
	}
	writeRuns(output, m)
	return nil
}

func writeRuns(w io.Writer, m *bytemap.Map) {
	fmt.Fprintf(w, "%s (%d bytes)\n\n", recordColor.Sprint(m.Type()), m.Size())
	fmt.Fprintf(w, "%-8s %-8s %-6s %s\n", "START", "END", "LEN", "OWNER")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 80))

	for _, r := range m.Runs() {
		owner := paddingColor.Sprint("<padding>")
		if !r.Padding() {
			f, _ := m.Field(r.Owner)
			owner = fmt.Sprintf("%s  %s", runewidth.Truncate(f.Label(), nameColumn, "…"), typeColor.Sprint(f.Type))
			if f.BitWidth > 0 {
				owner += bitsColor.Sprintf("  :%d", f.BitWidth)
			}
		}
		fmt.Fprintf(w, "%-8d %-8d %-6d %s\n", r.Start, r.End, r.End-r.Start, owner)
	}

	fmt.Fprintf(w, "\nTotal: %d bytes, %d mapped, %d padding\n", m.Size(), m.Mapped(), m.Padding())
}
