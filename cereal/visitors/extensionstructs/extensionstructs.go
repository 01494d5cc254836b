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

// Package extensionstructs emits the sType introspection used by every
// chain-walking function: the struct type of a chain link and the size of
// its struct, optionally subject to the negotiated stream features.
package extensionstructs

import (
	"context"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors"
	"github.com/google/gfxcodegen/registry"
)

const (
	structTypeProto   = "uint32_t goldfish_vk_struct_type(\n    const void* structExtension)"
	sizeProto         = "size_t goldfish_vk_extension_struct_size(\n    VkStructureType rootType,\n    const void* structExtension)"
	featureSizeProto  = "size_t goldfish_vk_extension_struct_size_with_stream_features(\n    uint32_t streamFeatures,\n    VkStructureType rootType,\n    const void* structExtension)"
	streamFeaturesVar = "streamFeatures"
)

// Wrapper collects the extension structs and emits the tables at the end.
type Wrapper struct {
	emit.BaseWrapper
	Info *types.Info

	ext     visitors.Extensions
	feature string
}

// New returns a wrapper emitting into m.
func New(info *types.Info, m *emit.Module) *Wrapper {
	return &Wrapper{BaseWrapper: emit.BaseWrapper{Module: m}, Info: info}
}

func (w *Wrapper) OnBeginFeature(ctx context.Context, name string, enabled bool) error {
	w.feature = name
	return w.BaseWrapper.OnBeginFeature(ctx, name, enabled)
}

func (w *Wrapper) OnGenType(ctx context.Context, t *registry.TypeInfo, name, alias string) error {
	if w.Emit && t.IsCompound() && alias == "" {
		w.ext.Add(w.Info.Struct(name), w.feature)
	}
	return nil
}

func (w *Wrapper) OnEnd(ctx context.Context) error {
	w.Module.EndFeature()
	g := emit.New()
	g.FuncDecl(structTypeProto)
	g.FuncDecl(sizeProto)
	g.FuncDecl(featureSizeProto)
	w.Module.AppendHeader(g.Swap())

	g.BeginFuncDef(structTypeProto)
	g.Stmt("const uint32_t asStructType = *(reinterpret_cast<const uint32_t*>(structExtension))")
	g.Stmt("return asStructType")
	g.EndFuncDef()
	w.sizeTable(g, sizeProto, false)
	w.sizeTable(g, featureSizeProto, true)
	w.Module.AppendImpl(g.Swap())
	for i := 0; i < 3; i++ {
		w.Module.AddFunction()
	}
	return nil
}

func (w *Wrapper) sizeTable(g *emit.CodeGen, proto string, withFeatures bool) {
	g.BeginFuncDef(proto)
	if withFeatures {
		g.Stmt("(void)%s", streamFeaturesVar)
	}
	g.BeginIf("!structExtension")
	g.Stmt("return (size_t)0")
	g.EndIf()
	g.Stmt("uint32_t structType = (uint32_t)goldfish_vk_struct_type(structExtension)")
	w.ext.Switch(g, "structType", "rootType", func(s *types.StructInfo) {
		feature, gated := types.StructStreamFeatures[s.Name]
		if !withFeatures || !gated {
			g.Stmt("return sizeof(%s)", s.Name)
			return
		}
		g.BeginIf("%s & %s", streamFeaturesVar, types.StreamFeatureMacro(feature))
		g.Stmt("return sizeof(%s)", s.Name)
		g.BeginElse()
		g.Stmt("return 0")
		g.EndIf()
	}, func() {
		g.Stmt("return (size_t)0")
	})
	g.EndFuncDef()
}
