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

// Package pco describes instruction encodings of the PowerVR compiler ISA as
// bit-structs and generates C encoders and decoders for them.
//
// An ISA is made of enum types, field types and bit sets. A bit set names
// pieces of an instruction word (a bit range within one byte) and fields
// composed of pieces. Each bit-struct of a set selects fields of the set,
// pinning some of them to constants; the pinned fields tell the variants of
// a set apart when decoding.
package pco

import (
	"bytes"
	"context"
	_ "embed"
	"io"

	"github.com/google/gfxcodegen/core/fault"
	"github.com/google/gfxcodegen/core/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ErrISA      = fault.Const("Bad PCO ISA definition")
	ErrRange    = fault.Const("Value out of range")
	ErrReserved = fault.Const("Reserved field is not zero")
	ErrVariant  = fault.Const("No matching bit-struct variant")
	ErrShort    = fault.Const("Instruction data too short")
	ErrMember   = fault.Const("Bad bit-struct member")
)

//go:embed isa.yaml
var isaYAML []byte

// ISA is a complete instruction set description.
type ISA struct {
	Name    string       `yaml:"name"`
	Enums   []*Enum      `yaml:"enums"`
	Types   []*FieldType `yaml:"types"`
	BitSets []*BitSet    `yaml:"bit_sets"`

	enums map[string]*Enum
	types map[string]*FieldType
	sets  map[string]*BitSet
}

// Enum is a named set of values held in Bits bits. The elements of a bitset
// enum are flags that may be combined.
type Enum struct {
	Name   string `yaml:"name"`
	Bits   uint32 `yaml:"bits"`
	Bitset bool   `yaml:"bitset"`
	Elems  Elems  `yaml:"elems"`
}

// Elem is a single enumerant.
type Elem struct {
	Name  string
	Value uint64
}

// Elems is an ordered list of enumerants, written in YAML as a mapping from
// name to value.
type Elems []Elem

// UnmarshalYAML keeps the elements in declaration order.
func (e *Elems) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return errors.Wrapf(ErrISA, "line %d: elems must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		var v uint64
		if err := n.Content[i+1].Decode(&v); err != nil {
			return errors.Wrapf(ErrISA, "line %d: %v", n.Content[i+1].Line, err)
		}
		*e = append(*e, Elem{Name: n.Content[i].Value, Value: v})
	}
	return nil
}

// Lookup returns the element called name.
func (e *Enum) Lookup(name string) (Elem, bool) {
	for _, el := range e.Elems {
		if el.Name == name {
			return el, true
		}
	}
	return Elem{}, false
}

// Transform is the mapping between a field's value and its encoding.
type Transform string

const (
	// Identity stores the value as is.
	Identity Transform = ""
	// PosInc stores 1..2ⁿ as 0..2ⁿ-1.
	PosInc Transform = "pos_inc"
	// PosWrap stores 1..2ⁿ-1 as themselves and 2ⁿ as 0.
	PosWrap Transform = "pos_wrap"
	// Pow2 stores a power of two as its exponent.
	Pow2 Transform = "pow2"
)

// FieldType is the type of a bit-set field. Enum types stand in for field
// types of the same name and width.
type FieldType struct {
	Name      string    `yaml:"name"`
	Bits      uint32    `yaml:"bits"`
	Enum      string    `yaml:"enum"`
	Transform Transform `yaml:"transform"`

	enum *Enum
}

// Piece is the bit range Hi..Lo of byte Byte of an instruction word.
type Piece struct {
	Name string  `yaml:"name"`
	Byte uint32  `yaml:"byte"`
	Hi   uint32  `yaml:"hi"`
	Lo   *uint32 `yaml:"lo"`
}

func (p *Piece) lo() uint32 {
	if p.Lo == nil {
		return p.Hi
	}
	return *p.Lo
}

// Width returns the number of bits in the piece.
func (p *Piece) Width() uint32 { return p.Hi - p.lo() + 1 }

func (p *Piece) offset() uint32 { return p.Byte*8 + p.lo() }

func (p *Piece) mask() uint32 { return ((1 << p.Width()) - 1) << p.lo() }

// Field is a typed value stored in one or more pieces. Pieces are listed
// most significant first and default to the single piece sharing the field's
// name.
type Field struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Pieces   []string `yaml:"pieces"`
	Reserved bool     `yaml:"reserved"`

	typ    *FieldType
	pieces []*Piece
}

// BitSet is a family of bit-structs sharing one set of pieces and fields.
type BitSet struct {
	Name    string       `yaml:"name"`
	Pieces  []*Piece     `yaml:"pieces"`
	Fields  []*Field     `yaml:"fields"`
	Structs []*BitStruct `yaml:"structs"`

	pieces map[string]*Piece
	fields map[string]*Field
}

// BitStruct is one encoding of a bit set.
type BitStruct struct {
	Name     string     `yaml:"name"`
	Mappings []*Mapping `yaml:"fields"`
	// Bytes is the encoded length, set by Validate.
	Bytes uint32 `yaml:"-"`

	set *BitSet
}

// Mapping places a bit-set field in a bit-struct. Pinned mappings carry a
// constant, given as a number or an enumerant name, and have no member.
// Reserved fields are pinned to zero.
type Mapping struct {
	// Name is the member name, defaulting to the field name.
	Name  string
	Field string
	Value string

	field  *Field
	pinned bool
	pin    uint64
}

// UnmarshalYAML accepts either a bare field name or a mapping.
func (m *Mapping) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		m.Field = n.Value
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			switch k.Value {
			case "name":
				m.Name = v.Value
			case "field":
				m.Field = v.Value
			case "value":
				m.Value = v.Value
			default:
				return errors.Wrapf(ErrISA, "line %d: unknown mapping key %q", k.Line, k.Value)
			}
		}
		return nil
	}
	return errors.Wrapf(ErrISA, "line %d: bad field mapping", n.Line)
}

// Member returns the struct member name of the mapping, or "" for pinned
// and reserved fields.
func (m *Mapping) Member() string {
	if m.pinned || (m.field != nil && m.field.Reserved) {
		return ""
	}
	if m.Name != "" {
		return m.Name
	}
	return m.Field
}

// Load decodes and validates an ISA.
func Load(ctx context.Context, r io.Reader) (*ISA, error) {
	isa := &ISA{}
	if err := yaml.NewDecoder(r).Decode(isa); err != nil {
		return nil, errors.Wrap(err, "Parsing PCO ISA")
	}
	if err := isa.Validate(ctx); err != nil {
		return nil, err
	}
	log.D(ctx, "Loaded ISA %v: %d enums, %d bit sets", isa.Name, len(isa.Enums), len(isa.BitSets))
	return isa, nil
}

// Default loads the built-in ISA.
func Default(ctx context.Context) (*ISA, error) {
	return Load(ctx, bytes.NewReader(isaYAML))
}

// Enum returns the enum called name, or nil.
func (isa *ISA) Enum(name string) *Enum { return isa.enums[name] }

// BitSet returns the bit set called name, or nil.
func (isa *ISA) BitSet(name string) *BitSet { return isa.sets[name] }

// Struct returns the bit-struct called name, or nil.
func (s *BitSet) Struct(name string) *BitStruct {
	for _, bs := range s.Structs {
		if bs.Name == name {
			return bs
		}
	}
	return nil
}

// Set returns the bit set owning s.
func (s *BitStruct) Set() *BitSet { return s.set }
