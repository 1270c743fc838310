package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/cxxlayout/layout"
)

var layoutCmd = &cobra.Command{
	Use:   "layout <source-file> <id-or-name>",
	Short: "Print the serialized layout of a record",
	Long: `Print the layout tree of one record in its wire form.

The record is selected by id (as listed by "records") or by qualified
name. Use --format msgpack for the binary transport encoding.`,
	Args: cobra.ExactArgs(2),
	RunE: runLayout,
}

func init() {
	layoutCmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json|msgpack")
}

func runLayout(cmd *cobra.Command, args []string) error {
	s, err := analyze(cmd, args[0])
	if err != nil {
		return err
	}

	_, n, err := resolve(s, args[1])
	if err != nil {
		return fmt.Errorf("failed to find record: %w", err)
	}

	switch opts.format {
	case "msgpack":
		if err := layout.EncodeMsgpack(output, n); err != nil {
			return fmt.Errorf("failed to write layout: %w", err)
		}
	default:
		if err := layout.Serialize(output, n); err != nil {
			return fmt.Errorf("failed to write layout: %w", err)
		}
		fmt.Fprintln(output)
	}
	return nil
}
