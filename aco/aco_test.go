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

package aco_test

import (
	"strings"
	"testing"

	"github.com/google/gfxcodegen/aco"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/core/text/copyright"
)

func TestDefaultCatalogue(t *testing.T) {
	ctx := log.Testing(t)
	c, err := aco.Default()
	if !assert.For(ctx, "load").ThatError(err).Succeeded() {
		return
	}
	assert.For(ctx, "validate").ThatError(c.Validate(ctx)).Succeeded()
	assert.For(ctx, "package validate").ThatError(aco.Validate(ctx)).Succeeded()

	lo, lu := c.Instruction("v_mul_lo_i32"), c.Instruction("v_mul_lo_u32")
	for _, g := range []aco.Gen{aco.GFX8, aco.GFX9, aco.GFX11} {
		assert.For(ctx, "%v shared", g).That(lo.Op[g]).Equals(lu.Op[g])
		assert.For(ctx, "%v allowed", g).That(aco.Shared(g, "v_mul_lo_u32", "v_mul_lo_i32")).Equals(true)
	}
	assert.For(ctx, "gfx8 opcode").That(lo.Op[aco.GFX8]).Equals(0x169)
	assert.For(ctx, "gfx6 not allowed").That(aco.Shared(aco.GFX6, "v_mul_lo_i32", "v_mul_lo_u32")).Equals(false)
	assert.For(ctx, "gfx10 legacy mad").That(aco.Shared(aco.GFX10, "v_fma_legacy_f32", "v_mad_legacy_f32")).Equals(true)
	assert.For(ctx, "gfx10 legacy mac").That(aco.Shared(aco.GFX10, "v_mac_legacy_f32", "v_fmac_legacy_f32")).Equals(true)
	assert.For(ctx, "gfx9 legacy mad").That(aco.Shared(aco.GFX9, "v_mad_legacy_f32", "v_fma_legacy_f32")).Equals(false)
	assert.For(ctx, "unlisted pair").That(aco.Shared(aco.GFX10, "v_mul_lo_i32", "v_mad_legacy_f32")).Equals(false)
}

func TestInheritance(t *testing.T) {
	ctx := log.Testing(t)
	c, err := aco.Default()
	if !assert.For(ctx, "load").ThatError(err).Succeeded() {
		return
	}
	for _, test := range []struct {
		name string
		op   aco.Opcode
	}{
		{"s_add_u32", aco.Opcode{0, 0, 0, 0, 0, 0}},
		{"s_and_b32", aco.Opcode{0x0e, 0x0e, 0x0c, 0x0c, 0x0e, 0x16}},
		{"s_mul_hi_u32", aco.Opcode{-1, -1, -1, 0x2c, 0x35, 0x2d}},
		{"flat_load_dword", aco.Opcode{-1, 0x0c, 0x14, 0x14, 0x0c, 0x14}},
		{"p_phi", aco.Opcode{-1, -1, -1, -1, -1, -1}},
	} {
		i := c.Instruction(test.name)
		if assert.For(ctx, "%v", test.name).That(i != nil).Equals(true) {
			assert.For(ctx, "%v opcode", test.name).That(i.Op).Equals(test.op)
		}
	}

	addc := c.Instruction("s_addc_u32")
	assert.For(ctx, "format defs").That(addc.Defs).Equals(2)
	assert.For(ctx, "explicit ops").That(addc.Ops).Equals(3)
	assert.For(ctx, "format class").That(addc.Class).Equals("salu")
	add := c.Instruction("v_add_f32")
	assert.For(ctx, "mods").That(add.InMod && add.OutMod).Equals(true)
	cvt := c.Instruction("v_cvt_u32_f32")
	assert.For(ctx, "input only").That(cvt.InMod && !cvt.OutMod).Equals(true)
}

const colliding = `
- format: VOP3
  instructions:
    - {name: v_one, op: {gfx6: 0x10, gfx9: 0x20}}
    - {name: v_two, op: {gfx6: 0x11, gfx9: 0x20}}
    - {name: v_mul_lo_u32, op: 0x30}
    - {name: v_mul_lo_i32, op: 0x30}
- format: VOP2
  instructions:
    - {name: v_three, op: 0x10}
`

func TestCollisions(t *testing.T) {
	ctx := log.Testing(t)
	c, err := aco.Load([]byte(colliding))
	if !assert.For(ctx, "load").ThatError(err).Succeeded() {
		return
	}
	err = c.Validate(ctx)
	assert.For(ctx, "validate").ThatError(err).HasCause(aco.ErrCollision)
	msg := err.Error()
	assert.For(ctx, "names").ThatString(msg).Contains("v_one and v_two share the same VOP3 opcode number (0x20) on gfx9")
	assert.For(ctx, "inherited").ThatString(msg).Contains("(0x20) on gfx11")
	assert.For(ctx, "exception gens").ThatString(msg).Contains("v_mul_lo_u32 and v_mul_lo_i32 share the same VOP3 opcode number (0x30) on gfx6")
	assert.For(ctx, "exception applies").ThatString(msg).DoesNotContain("(0x30) on gfx8")
	assert.For(ctx, "other formats").ThatString(msg).DoesNotContain("v_three")

	_, err = c.Generate(ctx, copyright.Info{})
	assert.For(ctx, "generate").ThatError(err).HasCause(aco.ErrCollision)
}

func TestBadCatalogue(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		name string
		yaml string
	}{
		{"format", "- {format: VOP9, instructions: [{name: v_x, op: 1}]}"},
		{"generation", "- {format: VOP1, instructions: [{name: v_x, op: {gfx99: 1}}]}"},
		{"opcode", "- {format: VOP1, instructions: [{name: v_x}]}"},
		{"duplicate", "- {format: VOP1, instructions: [{name: v_x, op: 1}, {name: v_x, op: 2}]}"},
		{"class", "- {format: VOP1, instructions: [{name: v_x, op: 1, cls: fast}]}"},
	} {
		_, err := aco.Load([]byte(test.yaml))
		assert.For(ctx, test.name).ThatError(err).HasCause(aco.ErrCatalogue)
	}
}

func TestGenerate(t *testing.T) {
	ctx := log.Testing(t)
	m, err := aco.Generate(ctx, copyright.Info{Year: "2024", Tool: "vkgen", Source: "opcodes.yaml"})
	if !assert.For(ctx, "generate").ThatError(err).Succeeded() {
		return
	}
	files := m.Files()
	if !assert.For(ctx, "files").That(len(files)).Equals(2) {
		return
	}
	h, cpp := files[0], files[1]
	assert.For(ctx, "header path").That(h.Path).Equals("aco_opcodes.h")
	assert.For(ctx, "impl path").That(cpp.Path).Equals("aco_opcodes.cpp")
	assert.For(ctx, "license").ThatString(h.Content).Contains("Autogenerated module aco_opcodes")
	assert.For(ctx, "guard").ThatString(h.Content).Contains("#pragma once")
	assert.For(ctx, "opcode enum").ThatString(h.Content).Contains("enum class aco_opcode : uint16_t")
	assert.For(ctx, "format enum").ThatString(h.Content).Contains("VOP3 = 2048,")
	assert.For(ctx, "info").ThatString(h.Content).Contains("const int16_t opcode_gfx11[static_cast<int>(aco_opcode::num_opcodes)];")

	c, _ := aco.Default()
	sorted := c.Sorted()
	assert.For(ctx, "first").That(sorted[0].Name).Equals("buffer_atomic_add")
	first := strings.Index(h.Content, "   buffer_atomic_add,")
	last := strings.Index(h.Content, "   v_xor_b32,")
	assert.For(ctx, "enum order").That(first >= 0 && first < last).Equals(true)

	assert.For(ctx, "include").ThatString(cpp.Content).Contains(`#include "aco_opcodes.h"`)
	assert.For(ctx, "names").ThatString(cpp.Content).Contains(`"v_mul_lo_u32",`)
	assert.For(ctx, "columns").ThatString(cpp.Content).Contains(".opcode_gfx8 = {")
	assert.For(ctx, "absent").ThatString(cpp.Content).Contains("-1,")
	assert.For(ctx, "classes").ThatString(cpp.Content).Contains("instr_class::valu_quarter_rate32,")
	// buffer_atomic_add sorts first, so its bit is the last character.
	atomics := cpp.Content[strings.Index(cpp.Content, ".is_atomic"):]
	atomics = atomics[:strings.Index(atomics, "\n")]
	assert.For(ctx, "atomic bitset").ThatString(atomics).Contains(`1"),`)
}
