package layout

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Engine decomposes record declarations into layout trees. Every record is
// computed at most once; the results live in the engine's arena until the
// engine is discarded.
type Engine struct {
	Target Target

	log   *zap.Logger
	mu    sync.RWMutex
	arena map[DeclID]*FieldNode
	group singleflight.Group
}

// NewEngine creates an engine with an empty arena for the given target.
func NewEngine(target Target, log *zap.Logger) *Engine {
	if log == nil {
		log = Logger()
	}
	return &Engine{
		Target: target,
		log:    log,
		arena:  make(map[DeclID]*FieldNode),
	}
}

type computeState struct {
	active map[DeclID]bool
	shared bool // Coordinate with other goroutines through the flight group
}

func newComputeState(shared bool) *computeState {
	return &computeState{active: make(map[DeclID]bool, 16), shared: shared}
}

// Compute returns the layout tree of a record. The returned node is shared
// with later calls and must not be modified.
func (e *Engine) Compute(decl *RecordDecl) *FieldNode {
	if decl == nil {
		return nil
	}
	return e.compute(decl, newComputeState(false))
}

// Cached returns a previously computed tree.
func (e *Engine) Cached(id DeclID) (*FieldNode, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, ok := e.arena[id]
	return n, ok
}

// Len returns the number of records in the arena.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.arena)
}

func (e *Engine) compute(decl *RecordDecl, state *computeState) *FieldNode {
	if n, ok := e.Cached(decl.ID); ok {
		return n
	}
	if state.active[decl.ID] {
		e.log.Warn("record refers to itself", zap.String("record", decl.Name), zap.Stringer("id", decl.ID))
		return &FieldNode{Kind: FieldRecord, TypeName: decl.Name, Size: decl.Size, Align: decl.Align}
	}

	if !state.shared {
		return e.store(decl.ID, e.build(decl, state))
	}
	v, _, _ := e.group.Do(decl.ID.String(), func() (any, error) {
		if n, ok := e.Cached(decl.ID); ok {
			return n, nil
		}
		return e.store(decl.ID, e.build(decl, state)), nil
	})
	return v.(*FieldNode)
}

// store records n unless another computation got there first, and returns
// the node that is kept.
func (e *Engine) store(id DeclID, n *FieldNode) *FieldNode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.arena[id]; ok {
		return prev
	}
	e.arena[id] = n
	return n
}

func (e *Engine) build(decl *RecordDecl, state *computeState) *FieldNode {
	state.active[decl.ID] = true
	defer delete(state.active, decl.ID)

	n := &FieldNode{
		Kind:     FieldRecord,
		TypeName: decl.Name,
		Size:     decl.Size,
		Align:    decl.Align,
		Valid:    decl.Valid,
	}
	children := make([]*FieldNode, 0, 1+len(decl.Bases)+len(decl.Fields))

	if decl.OwnsVPtr {
		children = append(children, &FieldNode{
			Kind:     FieldVPtr,
			TypeName: "vptr",
			Size:     e.Target.PointerSize,
			Align:    e.Target.PointerAlign,
			Valid:    true,
		})
	}

	bases := make([]*FieldNode, 0, len(decl.Bases))
	for _, b := range decl.Bases {
		if b.Virtual {
			e.log.Debug("virtual base not modeled",
				zap.String("record", decl.Name), zap.String("base", baseName(b)))
			continue
		}
		if b.Record == nil {
			n.Valid = false
			continue
		}
		bn := e.compute(b.Record, state).use()
		bn.Kind = FieldNVBase
		bn.Name = ""
		bn.OffsetBits = b.Offset * 8
		n.Valid = n.Valid && bn.Valid
		bases = append(bases, bn)
	}
	slices.SortStableFunc(bases, func(a, b *FieldNode) int {
		return cmp.Compare(a.OffsetBits, b.OffsetBits)
	})
	children = append(children, bases...)

	for _, f := range decl.Fields {
		var fn *FieldNode
		if f.Record != nil {
			fn = e.compute(f.Record, state).use()
			fn.Name = f.Name
			fn.OffsetBits = f.OffsetBits
			fn.Valid = fn.Valid && f.Valid
		} else {
			fn = &FieldNode{
				Kind:       FieldSimple,
				Name:       f.Name,
				TypeName:   f.TypeName,
				OffsetBits: f.OffsetBits,
				Size:       f.Size,
				Align:      f.Align,
				Valid:      f.Valid,
			}
			if f.BitField {
				fn.Kind = FieldBitField
				fn.BitWidth = f.BitWidth
			}
		}
		n.Valid = n.Valid && fn.Valid
		children = append(children, fn)
	}

	n.Children = children
	return n
}

func baseName(b BaseDecl) string {
	if b.Record == nil {
		return ""
	}
	return b.Record.Name
}

// ComputeAll computes every record in decls, using up to workers goroutines.
// A workers value below 2 computes sequentially. Cancellation abandons the
// whole computation; the arena may then hold a partial set of records and
// the engine should be discarded.
func (e *Engine) ComputeAll(ctx context.Context, decls []*RecordDecl, workers int) error {
	if workers < 2 || len(decls) < 2 || hasCycle(decls) {
		for _, d := range decls {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.Compute(d)
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, d := range decls {
		if d == nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.compute(d, newComputeState(true))
			return nil
		})
	}
	return g.Wait()
}

// hasCycle reports whether the declaration graph reachable from decls
// contains a cycle. Such graphs are computed sequentially so that the
// per-goroutine recursion guard can break them.
func hasCycle(decls []*RecordDecl) bool {
	const (
		unvisited = iota
		visiting
		done
	)
	mark := make(map[DeclID]int, len(decls))
	var visit func(d *RecordDecl) bool
	visit = func(d *RecordDecl) bool {
		switch mark[d.ID] {
		case visiting:
			return true
		case done:
			return false
		}
		mark[d.ID] = visiting
		for _, b := range d.Bases {
			if b.Record != nil && !b.Virtual && visit(b.Record) {
				return true
			}
		}
		for _, f := range d.Fields {
			if f.Record != nil && visit(f.Record) {
				return true
			}
		}
		mark[d.ID] = done
		return false
	}
	for _, d := range decls {
		if d != nil && visit(d) {
			return true
		}
	}
	return false
}
