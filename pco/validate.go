// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pco

import (
	"context"
	"strconv"

	"github.com/google/gfxcodegen/core/fault"
	"github.com/google/gfxcodegen/core/log"
	"github.com/pkg/errors"
)

// maxBits is the widest field a bit-struct can carry.
const maxBits = 64

// Validate resolves every name in the ISA and checks the encodings for
// consistency. All problems found are returned together.
func (isa *ISA) Validate(ctx context.Context) error {
	ctx = log.Enter(ctx, "pco.Validate")
	errs := fault.List{}
	isa.enums = map[string]*Enum{}
	isa.types = map[string]*FieldType{}
	isa.sets = map[string]*BitSet{}

	for _, e := range isa.Enums {
		if _, dup := isa.enums[e.Name]; dup {
			errs.Collect(errors.Wrapf(ErrISA, "enum %v declared twice", e.Name))
			continue
		}
		isa.enums[e.Name] = e
		errs.Collect(e.validate())
	}
	for _, t := range isa.Types {
		if _, dup := isa.types[t.Name]; dup {
			errs.Collect(errors.Wrapf(ErrISA, "type %v declared twice", t.Name))
			continue
		}
		isa.types[t.Name] = t
		errs.Collect(isa.resolveType(t))
	}
	for _, s := range isa.BitSets {
		if _, dup := isa.sets[s.Name]; dup {
			errs.Collect(errors.Wrapf(ErrISA, "bit set %v declared twice", s.Name))
			continue
		}
		isa.sets[s.Name] = s
		errs.Collect(isa.validateSet(ctx, s))
	}
	return errs.Err()
}

func (e *Enum) validate() error {
	if e.Bits == 0 || e.Bits > maxBits {
		return errors.Wrapf(ErrISA, "enum %v has %d bits", e.Name, e.Bits)
	}
	seen := map[string]bool{}
	var union uint64
	for _, el := range e.Elems {
		if seen[el.Name] {
			return errors.Wrapf(ErrISA, "enum %v declares %v twice", e.Name, el.Name)
		}
		seen[el.Name] = true
		if !fits(el.Value, e.Bits) {
			return errors.Wrapf(ErrISA, "%v.%v = 0x%x does not fit in %d bits", e.Name, el.Name, el.Value, e.Bits)
		}
		if e.Bitset {
			if el.Value&union != 0 {
				return errors.Wrapf(ErrISA, "bitset %v.%v overlaps another element", e.Name, el.Name)
			}
			union |= el.Value
		}
	}
	return nil
}

func (isa *ISA) resolveType(t *FieldType) error {
	switch t.Transform {
	case Identity, PosInc, PosWrap, Pow2:
	default:
		return errors.Wrapf(ErrISA, "type %v has unknown transform %q", t.Name, t.Transform)
	}
	if t.Enum != "" {
		t.enum = isa.enums[t.Enum]
		if t.enum == nil {
			return errors.Wrapf(ErrISA, "type %v refers to unknown enum %v", t.Name, t.Enum)
		}
		if t.Transform != Identity {
			return errors.Wrapf(ErrISA, "enum type %v cannot be transformed", t.Name)
		}
		if t.Bits == 0 {
			t.Bits = t.enum.Bits
		}
	}
	if t.Bits == 0 || t.Bits > maxBits {
		return errors.Wrapf(ErrISA, "type %v has %d bits", t.Name, t.Bits)
	}
	if t.Transform == Pow2 && t.Bits > 3 {
		return errors.Wrapf(ErrISA, "pow2 type %v is wider than 3 bits", t.Name)
	}
	return nil
}

// fieldType returns the named type, falling back to the enum of that name.
func (isa *ISA) fieldType(name string) *FieldType {
	if t, ok := isa.types[name]; ok {
		return t
	}
	if e, ok := isa.enums[name]; ok {
		t := &FieldType{Name: e.Name, Bits: e.Bits, Enum: e.Name, enum: e}
		isa.types[name] = t
		return t
	}
	return nil
}

func (isa *ISA) validateSet(ctx context.Context, s *BitSet) error {
	errs := fault.List{}
	s.pieces = map[string]*Piece{}
	s.fields = map[string]*Field{}
	for _, p := range s.Pieces {
		if _, dup := s.pieces[p.Name]; dup {
			errs.Collect(errors.Wrapf(ErrISA, "%v: piece %v declared twice", s.Name, p.Name))
			continue
		}
		if p.Hi > 7 || p.lo() > p.Hi {
			errs.Collect(errors.Wrapf(ErrISA, "%v: piece %v has bad range %d:%d", s.Name, p.Name, p.Hi, p.lo()))
			continue
		}
		s.pieces[p.Name] = p
	}
	for _, f := range s.Fields {
		if _, dup := s.fields[f.Name]; dup {
			errs.Collect(errors.Wrapf(ErrISA, "%v: field %v declared twice", s.Name, f.Name))
			continue
		}
		s.fields[f.Name] = f
		errs.Collect(isa.resolveField(s, f))
	}
	if len(errs) > 0 {
		return errs.Err()
	}
	names := map[string]bool{}
	for _, bs := range s.Structs {
		if names[bs.Name] {
			errs.Collect(errors.Wrapf(ErrISA, "%v: struct %v declared twice", s.Name, bs.Name))
			continue
		}
		names[bs.Name] = true
		if bs.Name == s.Name {
			errs.Collect(errors.Wrapf(ErrISA, "struct %v has the name of its bit set", bs.Name))
			continue
		}
		bs.set = s
		errs.Collect(bs.resolve())
	}
	if len(errs) > 0 {
		return errs.Err()
	}
	for i, a := range s.Structs {
		for _, b := range s.Structs[i+1:] {
			if !distinct(a, b) {
				errs.Collect(errors.Wrapf(ErrISA, "%v: %v and %v cannot be told apart by their pinned fields",
					s.Name, a.Name, b.Name))
			}
		}
	}
	log.D(ctx, "Bit set %v: %d structs", s.Name, len(s.Structs))
	return errs.Err()
}

func (isa *ISA) resolveField(s *BitSet, f *Field) error {
	f.typ = isa.fieldType(f.Type)
	if f.typ == nil {
		return errors.Wrapf(ErrISA, "%v.%v has unknown type %q", s.Name, f.Name, f.Type)
	}
	names := f.Pieces
	if len(names) == 0 {
		names = []string{f.Name}
	}
	f.pieces = nil
	width := uint32(0)
	for _, n := range names {
		p := s.pieces[n]
		if p == nil {
			return errors.Wrapf(ErrISA, "%v.%v refers to unknown piece %v", s.Name, f.Name, n)
		}
		f.pieces = append(f.pieces, p)
		width += p.Width()
	}
	if width != f.typ.Bits {
		return errors.Wrapf(ErrISA, "%v.%v spans %d bits but its type %v has %d",
			s.Name, f.Name, width, f.typ.Name, f.typ.Bits)
	}
	return nil
}

func (bs *BitStruct) resolve() error {
	s := bs.set
	used := map[uint32]uint32{}
	members := map[string]bool{}
	bs.Bytes = 0
	for _, m := range bs.Mappings {
		m.field = s.fields[m.Field]
		if m.field == nil {
			return errors.Wrapf(ErrISA, "%v maps unknown field %v", bs.Name, m.Field)
		}
		if err := m.resolvePin(); err != nil {
			return errors.Wrapf(err, "%v.%v", bs.Name, m.Field)
		}
		if name := m.Member(); name != "" {
			if members[name] {
				return errors.Wrapf(ErrISA, "%v has two members called %v", bs.Name, name)
			}
			members[name] = true
		}
		for _, p := range m.field.pieces {
			if used[p.Byte]&p.mask() != 0 {
				return errors.Wrapf(ErrISA, "%v: field %v overlaps another field in byte %d", bs.Name, m.Field, p.Byte)
			}
			used[p.Byte] |= p.mask()
			if p.Byte+1 > bs.Bytes {
				bs.Bytes = p.Byte + 1
			}
		}
	}
	return nil
}

func (m *Mapping) resolvePin() error {
	m.pinned, m.pin = false, 0
	if m.Value == "" {
		if m.field.Reserved {
			m.pinned = true
		}
		return nil
	}
	if m.field.Reserved {
		return errors.Wrap(ErrISA, "reserved fields cannot be pinned")
	}
	v, err := strconv.ParseUint(m.Value, 0, 64)
	if err != nil {
		e := m.field.typ.enum
		if e == nil {
			return errors.Wrapf(ErrISA, "bad pinned value %q", m.Value)
		}
		el, ok := e.Lookup(m.Value)
		if !ok {
			return errors.Wrapf(ErrISA, "%v has no element %v", e.Name, m.Value)
		}
		v = el.Value
	}
	if _, err := m.field.typ.encode(v); err != nil {
		return err
	}
	m.pinned, m.pin = true, v
	return nil
}

// distinct returns true if some field pinned in both a and b holds different
// values.
func distinct(a, b *BitStruct) bool {
	for _, ma := range a.Mappings {
		if !ma.pinned || ma.field.Reserved {
			continue
		}
		for _, mb := range b.Mappings {
			if mb.field == ma.field && mb.pinned && mb.pin != ma.pin {
				return true
			}
		}
	}
	return false
}

func fits(v uint64, bits uint32) bool {
	return bits >= 64 || v < 1<<bits
}
