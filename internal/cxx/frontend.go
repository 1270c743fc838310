// Package cxx is a front end for the subset of C++ that determines class
// layout: namespaces, classes, bases, data members, enumerations, aliases
// and integral constant expressions. It implements layout.Provider.
package cxx

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/skdltmxn/cxxlayout/layout"
)

// DefaultFilename is the name diagnostics and unnamed classes refer to.
const DefaultFilename = "input.cpp"

// Frontend parses C++ source into record declarations.
type Frontend struct {
	filename string
	log      *zap.Logger
}

// Option configures a Frontend.
type Option func(*Frontend)

// WithFilename sets the file name used in positions.
func WithFilename(name string) Option {
	return func(f *Frontend) {
		if name != "" {
			f.filename = name
		}
	}
}

// WithLogger sets the logger; the layout package logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(f *Frontend) {
		if l != nil {
			f.log = l
		}
	}
}

// New creates a front end.
func New(opts ...Option) *Frontend {
	f := &Frontend{filename: DefaultFilename}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = layout.Logger()
	}
	return f
}

var _ layout.Provider = (*Frontend)(nil)

// Parse implements layout.Provider. Every class definition is returned in
// the order its definition begins, nested and unnamed classes included.
// Syntax and semantic problems become diagnostics; only a cancelled
// context is an error.
func (f *Frontend) Parse(ctx context.Context, source string, target layout.Target) (*layout.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	s := newSema(ctx, f.filename, source, target)
	if err := s.run(); err != nil {
		return nil, err
	}
	s.diags.Sort()
	s.diags.Dedup()

	unit := &layout.Unit{Diagnostics: s.diags.Items()}
	for _, rec := range s.records {
		if rec.defined {
			unit.Records = append(unit.Records, rec.decl)
		}
	}
	f.log.Debug("parsed translation unit",
		zap.String("file", f.filename),
		zap.String("target", target.Triple),
		zap.Int("records", len(unit.Records)),
		zap.Int("diagnostics", len(unit.Diagnostics)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return unit, nil
}
