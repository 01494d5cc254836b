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
	"math/bits"

	"github.com/google/gfxcodegen/core/data/binary"
	"github.com/pkg/errors"
)

// Values holds bit-struct members by name.
type Values map[string]uint64

// encode maps a field value to the bits stored in the instruction word.
func (t *FieldType) encode(v uint64) (uint64, error) {
	limit := uint64(1) << t.Bits
	switch t.Transform {
	case PosInc:
		if v < 1 || v > limit {
			return 0, errors.Wrapf(ErrRange, "%v: %d not in [1, %d]", t.Name, v, limit)
		}
		return v - 1, nil
	case PosWrap:
		if v < 1 || v > limit {
			return 0, errors.Wrapf(ErrRange, "%v: %d not in [1, %d]", t.Name, v, limit)
		}
		return v & (limit - 1), nil
	case Pow2:
		if v == 0 || v&(v-1) != 0 {
			return 0, errors.Wrapf(ErrRange, "%v: %d is not a power of two", t.Name, v)
		}
		exp := uint64(bits.TrailingZeros64(v))
		if exp >= limit {
			return 0, errors.Wrapf(ErrRange, "%v: %d is too large", t.Name, v)
		}
		return exp, nil
	}
	if !fits(v, t.Bits) {
		return 0, errors.Wrapf(ErrRange, "%v: 0x%x does not fit in %d bits", t.Name, v, t.Bits)
	}
	if err := t.checkEnum(v); err != nil {
		return 0, err
	}
	return v, nil
}

// decode is the inverse of encode.
func (t *FieldType) decode(raw uint64) (uint64, error) {
	switch t.Transform {
	case PosInc:
		return raw + 1, nil
	case PosWrap:
		if raw == 0 {
			return 1 << t.Bits, nil
		}
		return raw, nil
	case Pow2:
		return 1 << raw, nil
	}
	return raw, t.checkEnum(raw)
}

func (t *FieldType) checkEnum(v uint64) error {
	e := t.enum
	if e == nil {
		return nil
	}
	if e.Bitset {
		var union uint64
		for _, el := range e.Elems {
			union |= el.Value
		}
		if v&^union != 0 {
			return errors.Wrapf(ErrRange, "%v: 0x%x has undefined flags", e.Name, v)
		}
		return nil
	}
	for _, el := range e.Elems {
		if el.Value == v {
			return nil
		}
	}
	return errors.Wrapf(ErrRange, "%v: %d is not an element", e.Name, v)
}

// put scatters raw across the field's pieces, most significant piece first.
func (f *Field) put(s *binary.BitStream, raw uint64) {
	shift := f.typ.Bits
	for _, p := range f.pieces {
		w := p.Width()
		shift -= w
		s.SetField(p.offset(), w, (raw>>shift)&(1<<w-1))
	}
}

// get gathers the field's bits from its pieces.
func (f *Field) get(s *binary.BitStream) uint64 {
	raw := uint64(0)
	for _, p := range f.pieces {
		w := p.Width()
		raw = raw<<w | s.Field(p.offset(), w)
	}
	return raw
}

// Members returns the names of the struct's members in mapping order.
func (bs *BitStruct) Members() []string {
	out := []string{}
	for _, m := range bs.Mappings {
		if name := m.Member(); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Encode packs v into a new instruction word of bs.Bytes bytes. Every member
// must be given and no other names may appear.
func (bs *BitStruct) Encode(v Values) ([]byte, error) {
	s := binary.BitStream{Data: make([]byte, bs.Bytes)}
	used := 0
	for _, m := range bs.Mappings {
		val := m.pin
		if name := m.Member(); name != "" {
			given, ok := v[name]
			if !ok {
				return nil, errors.Wrapf(ErrMember, "%v.%v is missing", bs.Name, name)
			}
			val = given
			used++
		}
		raw, err := m.field.typ.encode(val)
		if err != nil {
			return nil, errors.Wrapf(err, "%v.%v", bs.Name, m.Field)
		}
		m.field.put(&s, raw)
	}
	if used != len(v) {
		for name := range v {
			if !bs.hasMember(name) {
				return nil, errors.Wrapf(ErrMember, "%v has no member %v", bs.Name, name)
			}
		}
	}
	return s.Data, nil
}

func (bs *BitStruct) hasMember(name string) bool {
	for _, m := range bs.Mappings {
		if m.Member() == name {
			return true
		}
	}
	return false
}

// Decode unpacks the leading bs.Bytes bytes of data. Reserved fields must be
// zero and pinned fields must hold their constants.
func (bs *BitStruct) Decode(data []byte) (Values, error) {
	if uint32(len(data)) < bs.Bytes {
		return nil, errors.Wrapf(ErrShort, "%v needs %d bytes, got %d", bs.Name, bs.Bytes, len(data))
	}
	s := binary.BitStream{Data: data[:bs.Bytes]}
	out := Values{}
	for _, m := range bs.Mappings {
		raw := m.field.get(&s)
		if m.field.Reserved {
			if raw != 0 {
				return nil, errors.Wrapf(ErrReserved, "%v.%v holds 0x%x", bs.Name, m.Field, raw)
			}
			continue
		}
		val, err := m.field.typ.decode(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "%v.%v", bs.Name, m.Field)
		}
		if m.pinned {
			if val != m.pin {
				return nil, errors.Wrapf(ErrVariant, "%v.%v is %d, not %d", bs.Name, m.Field, val, m.pin)
			}
			continue
		}
		out[m.Member()] = val
	}
	return out, nil
}

// matches returns true if the pinned fields of bs agree with data.
func (bs *BitStruct) matches(data []byte) bool {
	if uint32(len(data)) < bs.Bytes {
		return false
	}
	s := binary.BitStream{Data: data[:bs.Bytes]}
	for _, m := range bs.Mappings {
		if !m.pinned || m.field.Reserved {
			continue
		}
		raw, err := m.field.typ.encode(m.pin)
		if err != nil || m.field.get(&s) != raw {
			return false
		}
	}
	return true
}

// Decode finds the bit-struct of s whose pinned fields match data and
// decodes it. The returned struct's Bytes is the length consumed.
func (s *BitSet) Decode(data []byte) (*BitStruct, Values, error) {
	short := false
	for _, bs := range s.Structs {
		if uint32(len(data)) < bs.Bytes {
			short = true
			continue
		}
		if !bs.matches(data) {
			continue
		}
		v, err := bs.Decode(data)
		return bs, v, err
	}
	if short {
		return nil, nil, errors.Wrapf(ErrShort, "%v: %d bytes match no variant", s.Name, len(data))
	}
	return nil, nil, errors.Wrapf(ErrVariant, "%v: no variant matches", s.Name)
}
