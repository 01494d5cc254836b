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

package visitors

import (
	"context"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/registry"
)

// Emitter is the per-struct part of a visitor module.
type Emitter interface {
	// Prefixes lists the prefixes of the per-struct functions, used to
	// forward aliases.
	Prefixes() []string
	// Protos returns the prototypes of the functions for s.
	Protos(s *types.StructInfo) []string
	// Struct emits the definitions of the functions for s.
	Struct(g *emit.CodeGen, s *types.StructInfo) error
	// ExtensionProtos returns the prototypes of the chain functions.
	ExtensionProtos() []string
	// Extension emits the chain functions dispatching over ext.
	Extension(g *emit.CodeGen, ext *Extensions)
}

// StructWrapper drives an Emitter over every struct and union, declaring
// in the header and defining in the implementation. The chain functions
// are emitted last, once every extension struct is known.
type StructWrapper struct {
	emit.BaseWrapper
	Info    *types.Info
	Emitter Emitter
	// Ext holds the extension structs seen so far.
	Ext Extensions
	// Feature is the feature being traversed.
	Feature string
}

// NewStructWrapper returns a wrapper driving e into m.
func NewStructWrapper(info *types.Info, m *emit.Module, e Emitter) *StructWrapper {
	return &StructWrapper{BaseWrapper: emit.BaseWrapper{Module: m}, Info: info, Emitter: e}
}

func (w *StructWrapper) OnBeginFeature(ctx context.Context, name string, enabled bool) error {
	w.Feature = name
	return w.BaseWrapper.OnBeginFeature(ctx, name, enabled)
}

func (w *StructWrapper) OnGenType(ctx context.Context, t *registry.TypeInfo, name, alias string) error {
	if !w.Emit || !t.IsCompound() {
		return nil
	}
	if alias != "" {
		for _, p := range w.Emitter.Prefixes() {
			w.Module.AppendHeader(AliasDefine(p, name, alias))
		}
		return nil
	}
	s := w.Info.Struct(name)
	if s == nil {
		return log.Errf(ctx, types.ErrUnknownType, "No layout for %v", name)
	}
	w.Ext.Add(s, w.Feature)
	g := emit.New()
	for _, p := range w.Emitter.Protos(s) {
		g.FuncDecl(p)
	}
	w.Module.AppendHeader(g.Swap())
	if err := w.Emitter.Struct(g, s); err != nil {
		return log.Errf(ctx, err, "Generating %v for %v", w.Module.Name, name)
	}
	for range w.Emitter.Protos(s) {
		w.Module.AddFunction()
	}
	w.Module.AppendImpl(g.Swap())
	return nil
}

func (w *StructWrapper) OnEnd(ctx context.Context) error {
	w.Module.EndFeature()
	g := emit.New()
	protos := w.Emitter.ExtensionProtos()
	for _, p := range protos {
		g.FuncDecl(p)
		w.Module.AddFunction()
	}
	w.Module.AppendHeader(g.Swap())
	w.Emitter.Extension(g, &w.Ext)
	w.Module.AppendImpl(g.Swap())
	log.D(ctx, "%v: %d extension structs", w.Module.Name, len(w.Ext.List))
	return nil
}
