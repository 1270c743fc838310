package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/skdltmxn/cxxlayout/layout"
)

var treeCmd = &cobra.Command{
	Use:   "tree <source-file> [id-or-name]",
	Short: "Show record layouts as trees",
	Long: `Show the layout tree of one record, or of every record when none is
given, with absolute byte offsets, sizes and bit-field widths.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTree,
}

var (
	offsetColor  = color.New(color.FgYellow)
	typeColor    = color.New(color.FgCyan)
	recordColor  = color.New(color.FgCyan, color.Bold)
	specialColor = color.New(color.FgMagenta)
	bitsColor    = color.New(color.FgGreen)
	invalidColor = color.New(color.FgRed, color.Bold)
)

func runTree(cmd *cobra.Command, args []string) error {
	s, err := analyze(cmd, args[0])
	if err != nil {
		return err
	}
	if err := s.Require(); err != nil {
		return err
	}

	if len(args) == 2 {
		_, n, err := resolve(s, args[1])
		if err != nil {
			return fmt.Errorf("failed to find record: %w", err)
		}
		writeTree(output, n)
		return nil
	}

	first := true
	for ref := range s.Records() {
		n, ok := s.LayoutOf(ref.ID)
		if !ok {
			continue
		}
		if !first {
			fmt.Fprintln(output)
		}
		first = false
		fmt.Fprintf(output, "#%s ", ref.ID)
		writeTree(output, n)
	}
	return nil
}

// writeTree prints a layout tree, one node per line, with offsets
// relative to the root record.
func writeTree(w io.Writer, root *layout.FieldNode) {
	fmt.Fprintf(w, "%s (size %d, align %d)%s\n",
		recordColor.Sprint(root.TypeName), root.Size, root.Align, validMark(root))
	writeChildren(w, root, 0, 1)
}

func writeChildren(w io.Writer, n *layout.FieldNode, base uint64, depth int) {
	width := 0
	for _, c := range n.Children {
		width = max(width, runewidth.StringWidth(nodeLabel(c)))
	}

	indent := strings.Repeat("  ", depth)
	for _, c := range n.Children {
		offset := base + c.OffsetBytes()
		label := runewidth.FillRight(nodeLabel(c), width)
		if c.Kind == layout.FieldVPtr || c.Kind == layout.FieldNVBase {
			label = specialColor.Sprint(label)
		}

		fmt.Fprintf(w, "%s %s%s  %s  %s%s\n",
			offsetColor.Sprintf("%6d", offset), indent, label,
			typeColor.Sprint(c.TypeName), sizeText(c), validMark(c))

		if c.Kind.IsContainer() {
			writeChildren(w, c, offset, depth+1)
		}
	}
}

func nodeLabel(n *layout.FieldNode) string {
	switch n.Kind {
	case layout.FieldVPtr:
		return "<vptr>"
	case layout.FieldNVBase:
		return "<base>"
	}
	if n.Name == "" {
		return "<anonymous>"
	}
	return n.Name
}

func sizeText(n *layout.FieldNode) string {
	if n.Kind == layout.FieldBitField {
		return bitsColor.Sprintf("[bits %d+%d of %d bytes]", n.OffsetBits%8, n.BitWidth, n.Size)
	}
	return fmt.Sprintf("[%d bytes, align %d]", n.Size, n.Align)
}

func validMark(n *layout.FieldNode) string {
	if n.Valid {
		return ""
	}
	return " " + invalidColor.Sprint("(invalid)")
}
