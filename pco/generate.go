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
	"fmt"
	"strings"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/core/text/copyright"
	"github.com/iancoleman/strcase"
)

// ModuleName is the base name of the generated header.
const ModuleName = "pco_isa"

func cName(parts ...string) string {
	return "pco_" + strcase.ToSnake(strings.Join(parts, "_"))
}

func cConst(parts ...string) string {
	return "PCO_" + strcase.ToScreamingSnake(strings.Join(parts, "_"))
}

// Generate emits a header holding the ISA's enums, one struct per
// bit-struct with its encoder and decoder, and per bit set a tagged union
// with encode and decode functions switching over the variants.
func (isa *ISA) Generate(ctx context.Context, stamp copyright.Info) (*emit.Module, error) {
	ctx = log.Enter(ctx, "pco.Generate")
	if err := isa.Validate(ctx); err != nil {
		return nil, err
	}
	m := emit.NewModule("", ModuleName)
	m.HeaderOnly = true

	g := emit.New()
	g.Line("#include <assert.h>")
	g.Line("#include <stdbool.h>")
	g.Line("#include <stdint.h>")
	g.Blank()
	for _, e := range isa.Enums {
		genEnum(g, e)
	}
	m.AppendHeader(g.Swap())

	for _, s := range isa.BitSets {
		genVariants(g, s)
		for _, bs := range s.Structs {
			genStruct(g, bs)
			genEncode(g, bs)
			genDecode(g, bs)
			m.AddFunction()
			m.AddFunction()
		}
		genMatch(g, s)
		genUnion(g, s)
		m.AddFunction()
		m.AddFunction()
		m.AddFunction()
		m.AppendHeader(g.Swap())
	}

	stamp.Module = ModuleName
	m.Stamp(copyright.Build("generated_c", stamp))
	log.I(ctx, "Generated %d PCO functions", m.Functions())
	return m, nil
}

// Generate emits the header for the built-in ISA.
func Generate(ctx context.Context, stamp copyright.Info) (*emit.Module, error) {
	isa, err := Default(ctx)
	if err != nil {
		return nil, err
	}
	return isa.Generate(ctx, stamp)
}

func genEnum(g *emit.CodeGen, e *Enum) {
	g.Line("enum %s", cName(e.Name))
	g.BeginBlock()
	for _, el := range e.Elems {
		if e.Bitset {
			g.Line("%s = 0x%x,", cConst(e.Name, el.Name), el.Value)
		} else {
			g.Line("%s = %d,", cConst(e.Name, el.Name), el.Value)
		}
	}
	g.EndBlockWith(";")
	g.Blank()
}

func genVariants(g *emit.CodeGen, s *BitSet) {
	g.Line("enum %s", cName(s.Name, "variant"))
	g.BeginBlock()
	g.Line("%s = 0,", cConst(s.Name, "none"))
	for _, bs := range s.Structs {
		g.Line("%s,", cConst(bs.Name))
	}
	g.EndBlockWith(";")
	g.Blank()
}

func memberType(t *FieldType) string {
	switch {
	case t.enum != nil:
		return "enum " + cName(t.enum.Name)
	case t.Bits > 32:
		return "uint64_t"
	default:
		return "unsigned"
	}
}

func genStruct(g *emit.CodeGen, bs *BitStruct) {
	g.Line("struct %s", cName(bs.Name))
	g.BeginBlock()
	for _, m := range bs.Mappings {
		if name := m.Member(); name != "" {
			g.Stmt("%s %s", memberType(m.field.typ), name)
		}
	}
	g.EndBlockWith(";")
	g.Line("#define %s_BYTES %d", cConst(bs.Name), bs.Bytes)
	g.Blank()
}

// rangeCheck returns the condition a member value must satisfy, or "".
func rangeCheck(t *FieldType, x string) string {
	limit := uint64(1) << t.Bits
	switch t.Transform {
	case PosInc, PosWrap:
		return fmt.Sprintf("%s >= 1 && %s <= %d", x, x, limit)
	case Pow2:
		return fmt.Sprintf("%s && !(%s & (%s - 1)) && %s <= %d", x, x, x, x, uint64(1)<<(limit-1))
	}
	switch {
	case t.enum != nil && t.enum.Bitset:
		union := uint64(0)
		for _, el := range t.enum.Elems {
			union |= el.Value
		}
		return fmt.Sprintf("!(%s & ~0x%x)", x, union)
	case t.enum != nil, t.Bits >= 32:
		return ""
	}
	return fmt.Sprintf("%s < 0x%x", x, limit)
}

func encodeExpr(t *FieldType, x string) string {
	switch t.Transform {
	case PosInc:
		return x + " - 1"
	case PosWrap:
		return fmt.Sprintf("%s & 0x%x", x, uint64(1)<<t.Bits-1)
	case Pow2:
		return fmt.Sprintf("__builtin_ctz(%s)", x)
	}
	return x
}

func decodeExpr(t *FieldType, v string) string {
	switch {
	case t.Transform == PosInc:
		return v + " + 1"
	case t.Transform == PosWrap:
		return fmt.Sprintf("%s ? %s : %d", v, v, uint64(1)<<t.Bits)
	case t.Transform == Pow2:
		return "1u << " + v
	case t.enum != nil:
		return fmt.Sprintf("(enum %s)%s", cName(t.enum.Name), v)
	}
	return v
}

// gather returns an expression reading field f from bin.
func gather(f *Field) string {
	parts := []string{}
	shift := f.typ.Bits
	for _, p := range f.pieces {
		w := p.Width()
		shift -= w
		expr := fmt.Sprintf("((bin[%d] >> %d) & 0x%x)", p.Byte, p.lo(), uint32(1)<<w-1)
		if shift > 0 {
			expr = fmt.Sprintf("((uint64_t)%s << %d)", expr, shift)
		}
		parts = append(parts, expr)
	}
	return strings.Join(parts, " | ")
}

func genEncode(g *emit.CodeGen, bs *BitStruct) {
	g.BeginFuncDef(fmt.Sprintf("static inline unsigned %s_encode(uint8_t *bin, const struct %s *s)",
		cName(bs.Name), cName(bs.Name)))
	g.Stmt("uint64_t v")
	for _, m := range bs.Mappings {
		t := m.field.typ
		switch name := m.Member(); {
		case name != "":
			x := "s->" + name
			if check := rangeCheck(t, x); check != "" {
				g.Stmt("assert(%s)", check)
			}
			g.Stmt("v = %s", encodeExpr(t, x))
		default:
			raw, _ := t.encode(m.pin)
			g.Stmt("v = 0x%x", raw)
		}
		shift := t.Bits
		for _, p := range m.field.pieces {
			w := p.Width()
			shift -= w
			g.Stmt("bin[%d] = (bin[%d] & 0x%02x) | (((v >> %d) & 0x%x) << %d)",
				p.Byte, p.Byte, ^p.mask()&0xff, shift, uint32(1)<<w-1, p.lo())
		}
	}
	g.Stmt("return %s_BYTES", cConst(bs.Name))
	g.EndFuncDef()
}

func genDecode(g *emit.CodeGen, bs *BitStruct) {
	g.BeginFuncDef(fmt.Sprintf("static inline bool %s_decode(const uint8_t *bin, struct %s *s)",
		cName(bs.Name), cName(bs.Name)))
	g.Stmt("uint64_t v")
	for _, m := range bs.Mappings {
		t := m.field.typ
		g.Stmt("v = %s", gather(m.field))
		switch {
		case m.field.Reserved:
			g.BeginIf("v")
			g.Stmt("return false")
			g.EndIf()
		case m.pinned:
			raw, _ := t.encode(m.pin)
			g.BeginIf("v != 0x%x", raw)
			g.Stmt("return false")
			g.EndIf()
		default:
			g.Stmt("s->%s = %s", m.Member(), decodeExpr(t, "v"))
		}
	}
	g.Stmt("return true")
	g.EndFuncDef()
}

func genMatch(g *emit.CodeGen, s *BitSet) {
	g.BeginFuncDef(fmt.Sprintf("static inline enum %s %s(const uint8_t *bin, unsigned len)",
		cName(s.Name, "variant"), cName(s.Name, "match")))
	for _, bs := range s.Structs {
		conds := []string{fmt.Sprintf("len >= %s_BYTES", cConst(bs.Name))}
		for _, m := range bs.Mappings {
			if m.pinned && !m.field.Reserved {
				raw, _ := m.field.typ.encode(m.pin)
				conds = append(conds, fmt.Sprintf("(%s) == 0x%x", gather(m.field), raw))
			}
		}
		g.BeginIf(strings.Join(conds, " && "))
		g.Stmt("return %s", cConst(bs.Name))
		g.EndIf()
	}
	g.Stmt("return %s", cConst(s.Name, "none"))
	g.EndFuncDef()
}

func genUnion(g *emit.CodeGen, s *BitSet) {
	name := cName(s.Name)
	g.Line("struct %s", name)
	g.BeginBlock()
	g.Stmt("enum %s variant", cName(s.Name, "variant"))
	g.Line("union")
	g.BeginBlock()
	for _, bs := range s.Structs {
		g.Stmt("struct %s %s", cName(bs.Name), strcase.ToSnake(bs.Name))
	}
	g.EndBlockWith(";")
	g.EndBlockWith(";")
	g.Blank()

	g.BeginFuncDef(fmt.Sprintf("static inline unsigned %s_encode(uint8_t *bin, const struct %s *s)", name, name))
	g.BeginSwitch("s->variant")
	for _, bs := range s.Structs {
		g.SwitchCaseReturn(cConst(bs.Name),
			fmt.Sprintf("%s_encode(bin, &s->%s)", cName(bs.Name), strcase.ToSnake(bs.Name)))
	}
	g.SwitchDefault()
	g.Stmt("break")
	g.EndBlock()
	g.EndSwitch()
	g.Stmt("return 0")
	g.EndFuncDef()

	g.BeginFuncDef(fmt.Sprintf("static inline unsigned %s_decode(const uint8_t *bin, unsigned len, struct %s *s)", name, name))
	g.Stmt("s->variant = %s(bin, len)", cName(s.Name, "match"))
	g.BeginSwitch("s->variant")
	for _, bs := range s.Structs {
		g.SwitchCaseReturn(cConst(bs.Name),
			fmt.Sprintf("%s_decode(bin, &s->%s) ? %s_BYTES : 0", cName(bs.Name), strcase.ToSnake(bs.Name), cConst(bs.Name)))
	}
	g.SwitchDefault()
	g.Stmt("break")
	g.EndBlock()
	g.EndSwitch()
	g.Stmt("return 0")
	g.EndFuncDef()
}
