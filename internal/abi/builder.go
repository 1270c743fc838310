package abi

import (
	"cmp"
	"math"
	"math/bits"
	"slices"

	"github.com/skdltmxn/cxxlayout/layout"
)

// Record describes a class, struct or union for placement. Bases must refer
// to records that are themselves complete.
type Record struct {
	Name   string
	Union  bool
	Packed bool
	// AlignAs is the strictest alignas/aligned request on the record, 0 if none.
	AlignAs uint64

	HasVirtualMethods bool
	// UserSpecialMembers is set when a constructor, destructor or copy
	// assignment operator is user-declared.
	UserSpecialMembers bool
	NonPublicFields    bool

	Bases  []Base
	Fields []Field

	layout *Layout
	busy   bool
}

// Base is a direct base class.
type Base struct {
	Record  *Record
	Virtual bool
}

// Field is a non-static data member.
type Field struct {
	Size    uint64 // sizeof the declared type
	Align   uint64 // alignof the declared type
	AlignAs uint64 // alignas on the member, 0 if none

	BitField bool
	Width    uint64
	Named    bool

	// Record is the member's class type when it is held by value; it is
	// used to keep empty subobjects of the same type at distinct addresses.
	Record *Record
	POD    bool
}

// Layout is the placement of a record.
type Layout struct {
	Size  uint64
	Align uint64

	// DataSize and NVSize are the sizes used when the record is a base:
	// tail padding of a non-POD record may be reused by a derived class.
	DataSize uint64
	NVSize   uint64
	NVAlign  uint64

	Dynamic  bool
	OwnsVPtr bool
	Empty    bool
	POD      bool

	PrimaryBase int // Index into Bases, -1 if none

	BaseOffsets  []uint64 // Bytes, per entry of Record.Bases
	FieldOffsets []uint64 // Bits, per entry of Record.Fields

	// VBaseOffsets holds every virtual base, direct or inherited.
	VBaseOffsets map[*Record]uint64

	// TooLarge is set when the record would exceed MaxObjectSize; offsets
	// past the limit are clamped to it.
	TooLarge bool

	empties []subobject
}

type subobject struct {
	offset uint64
	rec    *Record
}

// Builder places records for one target.
type Builder struct {
	Target layout.Target
}

// Layout returns the placement of r, computing it on first use.
func (b *Builder) Layout(r *Record) *Layout {
	if r.layout != nil {
		return r.layout
	}
	if r.busy {
		return &Layout{Size: 1, Align: 1, NVSize: 1, NVAlign: 1, PrimaryBase: -1}
	}
	r.busy = true
	l := b.place(r)
	r.busy = false
	r.layout = l
	return l
}

type placer struct {
	b *Builder
	r *Record
	l *Layout

	size     uint64 // bytes
	dataSize uint64 // bytes
	bitEnd   uint64 // bit position after the last bit-field of the current run
	inBits   bool
	align    uint64
	limit    uint64 // bytes

	empties        map[subobject]bool
	primaryVirtual *Record
}

func roundUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	n, carry := bits.Add64(v, align-1, 0)
	if carry != 0 {
		return math.MaxUint64 / align * align
	}
	return n / align * align
}

// end returns offset+size in bytes, clamped to the object size limit.
func (p *placer) end(offset, size uint64) uint64 {
	e, carry := bits.Add64(offset, size, 0)
	if carry != 0 || e > p.limit {
		p.l.TooLarge = true
		return p.limit
	}
	return e
}

func (p *placer) fit(offset uint64) uint64 { return p.end(offset, 0) }

func (b *Builder) place(r *Record) *Layout {
	p := &placer{
		b:     b,
		r:     r,
		align: 1,
		limit: MaxObjectSize(b.Target),
		l: &Layout{
			PrimaryBase:  -1,
			BaseOffsets:  make([]uint64, len(r.Bases)),
			FieldOffsets: make([]uint64, len(r.Fields)),
			VBaseOffsets: make(map[*Record]uint64),
		},
		empties: make(map[subobject]bool),
	}
	if r.AlignAs > p.align {
		p.align = r.AlignAs
	}

	p.classify()
	if r.Union {
		p.placeUnionFields()
	} else {
		p.placeNonVirtualBases()
		p.placeFields()
	}

	nvSize := max(p.size, p.dataSize)
	p.l.NVAlign = p.align
	p.placeVirtualBases()

	l := p.l
	l.Size = max(p.size, p.dataSize)
	if l.Size == 0 {
		l.Size = 1
	}
	l.Align = p.align
	l.Size = roundUp(l.Size, l.Align)
	if l.Size > p.limit {
		l.TooLarge = true
		l.Size = p.limit / l.Align * l.Align
	}
	if l.POD {
		l.DataSize = l.Size
		l.NVSize = l.Size
	} else {
		l.DataSize = p.dataSize
		l.NVSize = nvSize
	}

	l.empties = make([]subobject, 0, len(p.empties))
	for s := range p.empties {
		l.empties = append(l.empties, s)
	}
	slices.SortFunc(l.empties, func(a, b subobject) int {
		return cmp.Compare(a.offset, b.offset)
	})
	return l
}

func (p *placer) classify() {
	r, l := p.r, p.l
	l.Dynamic = r.HasVirtualMethods
	l.Empty = true
	l.POD = len(r.Bases) == 0 && !r.HasVirtualMethods && !r.UserSpecialMembers && !r.NonPublicFields

	for _, base := range r.Bases {
		bl := p.b.Layout(base.Record)
		if base.Virtual || bl.Dynamic {
			l.Dynamic = true
		}
		if base.Virtual || !bl.Empty {
			l.Empty = false
		}
	}
	for _, f := range r.Fields {
		if !f.BitField || f.Width != 0 {
			l.Empty = false
		}
		if !f.POD {
			l.POD = false
		}
	}
	if l.Dynamic {
		l.Empty = false
	}
}

func (p *placer) updateAlign(a uint64) {
	if a > p.align {
		p.align = a
	}
}

func (p *placer) canPlace(rec *Record, offset uint64) bool {
	rl := p.b.Layout(rec)
	if rl.Empty && p.empties[subobject{offset, rec}] {
		return false
	}
	for _, s := range rl.empties {
		if p.empties[subobject{offset + s.offset, s.rec}] {
			return false
		}
	}
	return true
}

func (p *placer) addEmpties(rec *Record, offset uint64) {
	rl := p.b.Layout(rec)
	if rl.Empty {
		p.empties[subobject{offset, rec}] = true
	}
	for _, s := range rl.empties {
		p.empties[subobject{offset + s.offset, s.rec}] = true
	}
}

func (p *placer) baseAlign(bl *Layout) uint64 {
	if p.r.Packed {
		return 1
	}
	return bl.NVAlign
}

// placeBase puts a base subobject at the first offset it may occupy and
// returns that offset.
func (p *placer) placeBase(rec *Record) uint64 {
	bl := p.b.Layout(rec)
	align := p.baseAlign(bl)

	if bl.Empty && p.canPlace(rec, 0) {
		p.addEmpties(rec, 0)
		p.size = max(p.size, bl.Size)
		p.updateAlign(align)
		return 0
	}

	offset := p.fit(roundUp(p.dataSize, align))
	for !p.canPlace(rec, offset) && !p.l.TooLarge {
		offset = p.end(offset, align)
	}
	p.addEmpties(rec, offset)
	if bl.Empty {
		p.size = max(p.size, p.end(offset, bl.Size))
	} else {
		p.dataSize = p.end(offset, bl.NVSize)
		p.size = max(p.size, p.dataSize)
	}
	p.updateAlign(align)
	return offset
}

func isNearlyEmpty(bl *Layout, ptr uint64) bool {
	return bl.Dynamic && bl.NVSize == ptr
}

func (p *placer) placeNonVirtualBases() {
	r, l := p.r, p.l
	if l.Dynamic {
		for i, base := range r.Bases {
			if !base.Virtual && p.b.Layout(base.Record).Dynamic {
				l.PrimaryBase = i
				break
			}
		}
		if l.PrimaryBase < 0 {
			for _, base := range r.Bases {
				if base.Virtual && isNearlyEmpty(p.b.Layout(base.Record), p.b.Target.PointerSize) {
					p.primaryVirtual = base.Record
					break
				}
			}
		}
	}

	switch {
	case l.PrimaryBase >= 0:
		l.BaseOffsets[l.PrimaryBase] = p.placeBase(r.Bases[l.PrimaryBase].Record)
	case l.Dynamic:
		l.OwnsVPtr = p.primaryVirtual == nil
		ptrSize, ptrAlign := Pointer(p.b.Target)
		p.size, p.dataSize = ptrSize, ptrSize
		p.updateAlign(ptrAlign)
	}

	for i, base := range r.Bases {
		if base.Virtual || i == l.PrimaryBase {
			continue
		}
		l.BaseOffsets[i] = p.placeBase(base.Record)
	}
}

// virtualBases lists every virtual base reachable from r in inheritance
// graph order, without duplicates.
func (p *placer) virtualBases(r *Record, seen map[*Record]bool, out []*Record) []*Record {
	for _, base := range r.Bases {
		if base.Virtual && !seen[base.Record] {
			seen[base.Record] = true
			out = append(out, base.Record)
		}
		out = p.virtualBases(base.Record, seen, out)
	}
	return out
}

func (p *placer) placeVirtualBases() {
	r, l := p.r, p.l
	vbases := p.virtualBases(r, make(map[*Record]bool), nil)
	if len(vbases) == 0 {
		return
	}

	// A nearly empty virtual base that is the primary base of a direct
	// non-virtual base shares that base's address.
	shared := make(map[*Record]uint64)
	for i, base := range r.Bases {
		if base.Virtual {
			continue
		}
		bl := p.b.Layout(base.Record)
		if bl.OwnsVPtr || bl.PrimaryBase >= 0 {
			continue
		}
		for vb, off := range bl.VBaseOffsets {
			if off == 0 && isNearlyEmpty(p.b.Layout(vb), p.b.Target.PointerSize) {
				shared[vb] = l.BaseOffsets[i]
			}
		}
	}

	for _, vb := range vbases {
		switch {
		case vb == p.primaryVirtual:
			p.addEmpties(vb, 0)
			bl := p.b.Layout(vb)
			p.dataSize = max(p.dataSize, bl.NVSize)
			p.size = max(p.size, p.dataSize)
			p.updateAlign(p.baseAlign(bl))
			l.VBaseOffsets[vb] = 0
		default:
			if off, ok := shared[vb]; ok {
				l.VBaseOffsets[vb] = off
				continue
			}
			l.VBaseOffsets[vb] = p.placeBase(vb)
		}
	}
	for i, base := range r.Bases {
		if base.Virtual {
			l.BaseOffsets[i] = l.VBaseOffsets[base.Record]
		}
	}
}

func (p *placer) fieldAlign(f Field) uint64 {
	a := f.Align
	if p.r.Packed {
		a = 1
	}
	if f.AlignAs > a {
		a = f.AlignAs
	}
	return max(a, 1)
}

func (p *placer) placeFields() {
	for i, f := range p.r.Fields {
		if f.BitField {
			p.l.FieldOffsets[i] = p.placeBitField(f)
			continue
		}
		p.inBits = false

		align := p.fieldAlign(f)
		offset := p.fit(roundUp(p.dataSize, align))
		if f.Record != nil {
			for !p.canPlace(f.Record, offset) && !p.l.TooLarge {
				offset = p.end(offset, align)
			}
			p.addEmpties(f.Record, offset)
		}
		p.dataSize = p.end(offset, f.Size)
		p.size = max(p.size, p.dataSize)
		p.updateAlign(align)
		p.l.FieldOffsets[i] = offset * 8
	}
}

// placeBitField returns the bit offset of a bit-field. A bit-field starts
// right after the previous one unless it would straddle a boundary of its
// declared type; a zero-width bit-field always aligns to its type.
func (p *placer) placeBitField(f Field) uint64 {
	typeBits := f.Size * 8
	alignBits := max(f.Align, 1) * 8

	offset := p.dataSize * 8
	if p.inBits {
		offset = p.bitEnd
	}

	switch {
	case f.Width == 0:
		offset = roundUp(offset, alignBits)
	case f.Width > typeBits:
		offset = roundUp(offset, alignBits)
	case p.r.Packed:
	case offset%alignBits+f.Width > typeBits:
		offset = roundUp(offset, alignBits)
	}

	end, carry := bits.Add64(offset, f.Width, 0)
	if limitBits := p.limit * 8; carry != 0 || end > limitBits {
		p.l.TooLarge = true
		end = limitBits
		offset = min(offset, end)
	}
	p.inBits = true
	p.bitEnd = end
	p.dataSize = max(p.dataSize, bytesFor(end))
	p.size = max(p.size, p.dataSize)

	switch {
	case f.Named && !p.r.Packed:
		p.updateAlign(f.Align)
	case !f.Named && f.Width == 0 && p.b.Target.ZeroLengthBitFieldAlign:
		p.updateAlign(f.Align)
	}
	return offset
}

func (p *placer) placeUnionFields() {
	for i, f := range p.r.Fields {
		p.l.FieldOffsets[i] = 0
		if f.BitField {
			p.size = max(p.size, p.fit(bytesFor(f.Width)))
			if f.Named {
				p.updateAlign(max(f.Align, 1))
			}
			continue
		}
		p.size = max(p.size, p.fit(f.Size))
		p.updateAlign(p.fieldAlign(f))
	}
	p.dataSize = p.size
}

// bytesFor returns the number of bytes that hold n bits.
func bytesFor(n uint64) uint64 { return n/8 + min(n%8, 1) }
