package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/cxxlayout/bytemap"
	"github.com/skdltmxn/cxxlayout/internal/cxx"
	"github.com/skdltmxn/cxxlayout/layout"
)

// readSource returns the contents of path and the name diagnostics should
// use for it. A path of "-" reads standard input.
func readSource(path string) (string, string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), cxx.DefaultFilename, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read source: %w", err)
	}
	return string(data), path, nil
}

// analyze runs a fresh session over the source file at path.
func analyze(cmd *cobra.Command, path string) (*layout.Session, error) {
	src, name, err := readSource(path)
	if err != nil {
		return nil, err
	}

	fe := cxx.New(cxx.WithFilename(name), cxx.WithLogger(logger))
	s := layout.NewSession(fe,
		layout.WithLogger(logger),
		layout.WithWorkers(opts.workers),
		layout.WithMaxDiagnostics(opts.maxDiagnostics),
		layout.WithFilename(name),
	)
	s.ConfigureTarget(opts.target)

	if err := s.Analyze(cmd.Context(), src); err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", name, err)
	}
	return s, nil
}

// resolve looks up a record by id or qualified name and returns its
// layout.
func resolve(s *layout.Session, idOrName string) (layout.RecordRef, *layout.FieldNode, error) {
	if err := s.Require(); err != nil {
		return layout.RecordRef{}, nil, err
	}
	ref, err := s.Resolve(idOrName)
	if err != nil {
		return layout.RecordRef{}, nil, err
	}
	n, ok := s.LayoutOf(ref.ID)
	if !ok {
		return layout.RecordRef{}, nil, fmt.Errorf("%w: %s", layout.ErrUnknownRecord, idOrName)
	}
	return ref, n, nil
}

// byteMap maps a layout through its MessagePack transport form, the same
// way a remote viewer receives it.
func byteMap(n *layout.FieldNode) (*bytemap.Map, error) {
	data, err := layout.MarshalMsgpack(n)
	if err != nil {
		return nil, fmt.Errorf("failed to encode layout: %w", err)
	}
	m, err := bytemap.FromMsgpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to map layout: %w", err)
	}
	return m, nil
}
