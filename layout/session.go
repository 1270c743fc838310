package layout

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultMaxDiagnostics caps the diagnostics kept per analysis.
const DefaultMaxDiagnostics = 200

// Session holds the records and cached layouts of one analysis. Analyze
// starts a new analysis and Clear ends it; nothing expires implicitly.
// A Session is safe for concurrent read access between those calls.
type Session struct {
	provider Provider
	target   Target
	log      *zap.Logger
	workers  int
	maxDiags int
	filename string

	mu        sync.RWMutex
	engine    *Engine
	records   []*RecordDecl
	byID      map[DeclID]*RecordDecl
	diags     []Diagnostic
	truncated int

	// Index by name, rebuilt once per analysis
	byName     map[string][]RecordRef
	byNameOnce *sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithTarget sets the initial target.
func WithTarget(t Target) Option {
	return func(s *Session) { s.target = t }
}

// WithLogger sets the logger used by the session and its engine.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithWorkers sets how many goroutines compute layouts after analysis.
func WithWorkers(n int) Option {
	return func(s *Session) { s.workers = n }
}

// WithMaxDiagnostics caps the number of kept diagnostics. Zero or less
// keeps all of them.
func WithMaxDiagnostics(n int) Option {
	return func(s *Session) { s.maxDiags = n }
}

// WithFilename sets the file name used when formatting diagnostics.
func WithFilename(name string) Option {
	return func(s *Session) { s.filename = name }
}

// NewSession creates an empty session reading declarations from p.
func NewSession(p Provider, opts ...Option) *Session {
	s := &Session{
		provider:   p,
		target:     DefaultTarget(),
		log:        Logger(),
		workers:    1,
		maxDiags:   DefaultMaxDiagnostics,
		filename:   "input.cpp",
		byNameOnce: new(sync.Once),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfigureTarget sets the target for subsequent analyses from a
// compiler-style argument string. Empty input resets to the default target;
// malformed input falls back to it with a warning.
func (s *Session) ConfigureTarget(args string) {
	t, ok := ParseTargetArgs(args)
	if !ok {
		s.log.Warn("unsupported target arguments, using default",
			zap.String("args", args), zap.String("target", t.Triple))
	}
	s.mu.Lock()
	s.target = t
	s.mu.Unlock()
}

// Target returns the configured target.
func (s *Session) Target() Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// Analyze discards the previous analysis, runs the provider over source and
// computes the layout of every record found. Diagnostics are collected, not
// returned; an error means the provider failed outright or ctx was
// cancelled, in which case the session is left empty.
func (s *Session) Analyze(ctx context.Context, source string) error {
	s.Clear()
	if s.provider == nil {
		return ErrNoProvider
	}

	target := s.Target()
	unit, err := s.provider.Parse(ctx, source, target)
	if err != nil {
		return fmt.Errorf("layout: analyze: %w", err)
	}

	engine := NewEngine(target, s.log)
	records := make([]*RecordDecl, 0, len(unit.Records))
	byID := make(map[DeclID]*RecordDecl, len(unit.Records))
	for _, r := range unit.Records {
		if r == nil {
			continue
		}
		if _, dup := byID[r.ID]; dup {
			s.log.Warn("duplicate record id ignored", zap.Stringer("id", r.ID), zap.String("record", r.Name))
			continue
		}
		byID[r.ID] = r
		records = append(records, r)
	}

	if err := engine.ComputeAll(ctx, records, s.workers); err != nil {
		return fmt.Errorf("layout: analyze: %w", err)
	}

	diags := unit.Diagnostics
	truncated := 0
	if s.maxDiags > 0 && len(diags) > s.maxDiags {
		truncated = len(diags) - s.maxDiags
		diags = diags[:s.maxDiags]
	}

	s.mu.Lock()
	s.engine = engine
	s.records = records
	s.byID = byID
	s.diags = append([]Diagnostic(nil), diags...)
	s.truncated = truncated
	s.mu.Unlock()

	s.log.Debug("analysis complete",
		zap.Int("records", len(records)),
		zap.Int("diagnostics", len(unit.Diagnostics)),
		zap.String("target", target.Triple))
	return nil
}

// Clear discards the record index, cached layouts and diagnostics.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = nil
	s.records = nil
	s.byID = nil
	s.diags = nil
	s.truncated = 0
	s.byName = nil
	s.byNameOnce = new(sync.Once)
}

// Empty reports whether the last analysis found no records.
func (s *Session) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records) == 0
}

// Require returns ErrNoRecords when there is nothing to display.
func (s *Session) Require() error {
	if s.Empty() {
		return ErrNoRecords
	}
	return nil
}

// Records returns an iterator over the discovered records in discovery
// order.
func (s *Session) Records() iter.Seq[RecordRef] {
	return func(yield func(RecordRef) bool) {
		s.mu.RLock()
		records := s.records
		s.mu.RUnlock()

		for _, r := range records {
			if !yield(RecordRef{ID: r.ID, Name: r.Name}) {
				return
			}
		}
	}
}

// ListRecords returns the discovered records in discovery order.
func (s *Session) ListRecords() []RecordRef {
	refs := make([]RecordRef, 0)
	for r := range s.Records() {
		refs = append(refs, r)
	}
	return refs
}

// ListRecordsJSON returns the record index in its JSON wire form.
func (s *Session) ListRecordsJSON() []byte {
	return MarshalRecordIndex(s.ListRecords())
}

// Decl returns the declaration of a record by id.
func (s *Session) Decl(id DeclID) (*RecordDecl, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	return d, ok
}

// Layout returns the layout tree for a record id in its string form.
func (s *Session) Layout(id string) (*FieldNode, bool) {
	did, ok := ParseDeclID(id)
	if !ok {
		return nil, false
	}
	return s.LayoutOf(did)
}

// LayoutOf returns the layout tree for a record id.
func (s *Session) LayoutOf(id DeclID) (*FieldNode, bool) {
	s.mu.RLock()
	decl, ok := s.byID[id]
	engine := s.engine
	s.mu.RUnlock()
	if !ok || engine == nil {
		return nil, false
	}
	return engine.Compute(decl), true
}

// LayoutJSON returns the JSON wire form of a record's layout, or "{}" when
// the id is unknown.
func (s *Session) LayoutJSON(id string) []byte {
	n, ok := s.Layout(id)
	if !ok {
		return []byte(EmptyObject)
	}
	return Marshal(n)
}

// LookupName returns the records with the given qualified name.
func (s *Session) LookupName(name string) iter.Seq[RecordRef] {
	return func(yield func(RecordRef) bool) {
		s.buildNameIndex()

		s.mu.RLock()
		refs := s.byName[name]
		s.mu.RUnlock()

		for _, r := range refs {
			if !yield(r) {
				return
			}
		}
	}
}

func (s *Session) buildNameIndex() {
	s.mu.RLock()
	once := s.byNameOnce
	s.mu.RUnlock()

	once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.byName = make(map[string][]RecordRef)
		for _, r := range s.records {
			s.byName[r.Name] = append(s.byName[r.Name], RecordRef{ID: r.ID, Name: r.Name})
		}
	})
}

// Resolve finds a record by id or, failing that, by qualified name.
func (s *Session) Resolve(idOrName string) (RecordRef, error) {
	if id, ok := ParseDeclID(idOrName); ok {
		if d, ok := s.Decl(id); ok {
			return RecordRef{ID: d.ID, Name: d.Name}, nil
		}
	}
	for r := range s.LookupName(idOrName) {
		return r, nil
	}
	return RecordRef{}, fmt.Errorf("%w: %s", ErrUnknownRecord, idOrName)
}

// Diagnostics returns the diagnostics kept from the last analysis.
func (s *Session) Diagnostics() []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Diagnostic(nil), s.diags...)
}

// DiagnosticsText renders the diagnostics one per line in compiler style.
func (s *Session) DiagnosticsText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sb strings.Builder
	for _, d := range s.diags {
		sb.WriteString(d.Format(s.filename))
		sb.WriteByte('\n')
	}
	if s.truncated > 0 {
		fmt.Fprintf(&sb, "%s: note: %d more diagnostics not shown\n", s.filename, s.truncated)
	}
	return sb.String()
}

// Engine returns the engine of the current analysis, or nil after Clear.
func (s *Session) Engine() *Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}
