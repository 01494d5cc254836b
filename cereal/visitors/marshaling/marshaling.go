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

// Package marshaling emits the functions that stream Vulkan structs between
// guest and host. The same wrapper serves the stream, reserved buffer and
// counting variants; they differ only in the Styles they are built with.
package marshaling

import (
	"context"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/iterate"
	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors"
	"github.com/google/gfxcodegen/core/log"
)

// Wrapper emits one function per struct and Style into its module.
type Wrapper struct {
	*visitors.StructWrapper
	Styles []Style
	// Opcodes, when set, adds the OP_ defines and api_opcode_to_string.
	Opcodes *opcodes.Assignment

	commands []command
}

type command struct {
	name    string
	feature string
}

// New returns a wrapper emitting the given styles into m.
func New(info *types.Info, m *emit.Module, ops *opcodes.Assignment, styles ...Style) *Wrapper {
	return &Wrapper{
		StructWrapper: visitors.NewStructWrapper(info, m, emitter{info, styles}),
		Styles:        styles,
		Opcodes:       ops,
	}
}

type emitter struct {
	info   *types.Info
	styles []Style
}

func (e emitter) Prefixes() []string {
	out := make([]string, len(e.styles))
	for i, s := range e.styles {
		out[i] = s.Prefix
	}
	return out
}

func (e emitter) Protos(st *types.StructInfo) []string {
	out := make([]string, len(e.styles))
	for i, s := range e.styles {
		out[i] = s.Proto(st.Name, iterate.FreeParams(st))
	}
	return out
}

func (e emitter) Struct(g *emit.CodeGen, st *types.StructInfo) error {
	for _, s := range e.styles {
		if err := s.Struct(e.info, g, st); err != nil {
			return err
		}
	}
	return nil
}

func (e emitter) ExtensionProtos() []string {
	out := make([]string, len(e.styles))
	for i, s := range e.styles {
		out[i] = s.ExtensionProto()
	}
	return out
}

func (e emitter) Extension(g *emit.CodeGen, ext *visitors.Extensions) {
	for _, s := range e.styles {
		s.Extension(g, ext)
	}
}

// OnGenCmd defines the opcode of the command.
func (w *Wrapper) OnGenCmd(ctx context.Context, api *types.APIInfo, name, alias string) error {
	if w.Opcodes == nil || !w.Emit {
		return nil
	}
	if _, ok := w.Opcodes.Opcode(name); !ok {
		return log.Errf(ctx, opcodes.ErrRange, "No opcode assigned to %v", name)
	}
	w.Module.AppendHeader(w.Opcodes.Define(name) + "\n")
	w.commands = append(w.commands, command{name, w.Feature})
	return nil
}

// OnEnd emits the extension chain functions and the opcode helpers.
func (w *Wrapper) OnEnd(ctx context.Context) error {
	if err := w.StructWrapper.OnEnd(ctx); err != nil {
		return err
	}
	if w.Opcodes == nil {
		return nil
	}
	g := emit.New()
	g.FuncDecl("const char* api_opcode_to_string(\n    const uint32_t opcode)")
	opcodes.WriteSentinels(g)
	w.Module.AppendHeader(g.Swap())
	w.opcodeToString(g)
	w.Module.AppendImpl(g.Swap())
	return nil
}

func (w *Wrapper) opcodeToString(g *emit.CodeGen) {
	g.BeginFuncDef("const char* api_opcode_to_string(\n    const uint32_t opcode)")
	g.BeginSwitch("opcode")
	for _, c := range w.commands {
		if c.feature != "" {
			g.BeginIfdef(c.feature)
		}
		g.SwitchCaseReturn("OP_"+c.name, `"OP_`+c.name+`"`)
		if c.feature != "" {
			g.EndIfdef()
		}
	}
	g.Line(`default: return "OP_UNKNOWN_API_CALL";`)
	g.EndSwitch()
	g.EndFuncDef()
	w.Module.AddFunction()
}
