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

package aco

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/core/text/copyright"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ModuleName is the base name of the generated files.
const ModuleName = "aco_opcodes"

const count = "static_cast<int>(aco_opcode::num_opcodes)"

// Sorted returns the instructions ordered by name, which is the order of
// the aco_opcode enum.
func (c *Catalogue) Sorted() []*Instruction {
	out := slices.Clone(c.Instructions)
	slices.SortFunc(out, func(a, b *Instruction) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Generate validates the catalogue and returns the aco_opcodes module,
// stamped with the license header described by stamp.
func (c *Catalogue) Generate(ctx context.Context, stamp copyright.Info) (*emit.Module, error) {
	ctx = log.Enter(ctx, "aco.Generate")
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}
	insts := c.Sorted()
	m := emit.NewModule("", ModuleName)
	m.AppendHeader(header(insts))
	m.AppendImpl(impl(insts))
	m.AddFunction()
	stamp.Module = ModuleName
	m.Stamp(copyright.Build("generated_c", stamp))
	log.I(ctx, "Generated %d ACO opcodes", len(insts))
	return m, nil
}

// Generate returns the module of the catalogue compiled into the generator.
func Generate(ctx context.Context, stamp copyright.Info) (*emit.Module, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.Generate(ctx, stamp)
}

func header(insts []*Instruction) string {
	g := emit.New()
	g.Line("#include <bitset>")
	g.Line("#include <cstdint>")
	g.Blank()
	g.Line("namespace aco {")
	g.Blank()

	used := maps.Keys(formats)
	slices.Sort(used)
	g.Line("enum class Format : uint32_t")
	g.BeginBlock()
	for _, f := range used {
		g.Line("%v = %d,", f, uint32(f))
	}
	g.EndBlockWith(";")
	g.Blank()

	g.Line("enum class instr_class : uint8_t")
	g.BeginBlock()
	for i, c := range classes {
		g.Line("%s = %d,", c, i)
	}
	g.Line("count,")
	g.EndBlockWith(";")
	g.Blank()

	g.Line("enum class aco_opcode : uint16_t")
	g.BeginBlock()
	for _, i := range insts {
		g.Line("%s,", i.Name)
	}
	g.Line("num_opcodes")
	g.EndBlockWith(";")
	g.Blank()

	g.Line("typedef struct")
	g.BeginBlock()
	for gen := Gen(0); gen < NumGens; gen++ {
		g.Stmt("const int16_t opcode_%v[%s]", gen, count)
	}
	g.Stmt("const std::bitset<%s> can_use_input_modifiers", count)
	g.Stmt("const std::bitset<%s> can_use_output_modifiers", count)
	g.Stmt("const std::bitset<%s> is_atomic", count)
	g.Stmt("const char* name[%s]", count)
	g.Stmt("const aco::Format format[%s]", count)
	g.Stmt("const unsigned definitions[%s]", count)
	g.Stmt("const unsigned operands[%s]", count)
	g.Stmt("const instr_class classes[%s]", count)
	g.EndBlockWith(" Info;")
	g.Blank()
	g.Stmt("extern const Info instr_info")
	g.Blank()
	g.Line("} // namespace aco")
	return g.String()
}

func impl(insts []*Instruction) string {
	g := emit.New()
	g.Line("namespace aco {")
	g.Blank()
	g.Line("extern const aco::Info instr_info = {")
	g.Indent()
	for gen := Gen(0); gen < NumGens; gen++ {
		field(g, "opcode_"+gen.String(), insts, func(i *Instruction) string {
			if i.Op[gen] == Absent {
				return "-1"
			}
			return fmt.Sprintf("0x%x", i.Op[gen])
		})
	}
	bitset(g, "can_use_input_modifiers", insts, func(i *Instruction) bool { return i.InMod })
	bitset(g, "can_use_output_modifiers", insts, func(i *Instruction) bool { return i.OutMod })
	bitset(g, "is_atomic", insts, func(i *Instruction) bool { return i.Atomic })
	field(g, "name", insts, func(i *Instruction) string { return `"` + i.Name + `"` })
	field(g, "format", insts, func(i *Instruction) string { return "aco::Format::" + i.Format.String() })
	field(g, "definitions", insts, func(i *Instruction) string { return fmt.Sprint(i.Defs) })
	field(g, "operands", insts, func(i *Instruction) string { return fmt.Sprint(i.Ops) })
	field(g, "classes", insts, func(i *Instruction) string { return "instr_class::" + i.Class })
	g.Dedent()
	g.Line("};")
	g.Blank()
	g.Line("} // namespace aco")
	return g.String()
}

// field writes one array initializer of the Info struct.
func field(g *emit.CodeGen, name string, insts []*Instruction, value func(*Instruction) string) {
	g.Line(".%s = {", name)
	g.Indent()
	for _, i := range insts {
		g.Line("%s,", value(i))
	}
	g.Dedent()
	g.Line("},")
}

// bitset writes a std::bitset initializer. The string form is most
// significant bit first, so the last opcode comes first.
func bitset(g *emit.CodeGen, name string, insts []*Instruction, bit func(*Instruction) bool) {
	bits := make([]byte, len(insts))
	for n, i := range insts {
		b := byte('0')
		if bit(i) {
			b = '1'
		}
		bits[len(insts)-1-n] = b
	}
	g.Line(".%s = std::bitset<%d>(\"%s\"),", name, len(insts), bits)
}
