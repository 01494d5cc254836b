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

// Package handlemap emits the functions that rewrite, in place, every
// handle reachable from a struct through a VulkanHandleMapping.
package handlemap

import (
	"fmt"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/iterate"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors"
	"github.com/google/gfxcodegen/cereal/visitors/marshaling"
)

const (
	prefix     = "handlemap"
	mappingVar = "handlemap"
	structVar  = "toMap"
)

// New returns the wrapper emitting handlemap_ functions into m.
func New(info *types.Info, m *emit.Module) *visitors.StructWrapper {
	return visitors.NewStructWrapper(info, m, emitter{info})
}

// FuncName returns the name of the function mapping the named struct.
func FuncName(name string) string { return prefix + "_" + name }

// Proto returns the prototype of the function mapping the named struct.
func Proto(name string) string {
	return emit.FuncProto("void", FuncName(name),
		emit.Param{Type: "VulkanHandleMapping*", Name: mappingVar},
		emit.Param{Type: "VkStructureType", Name: "rootType"},
		emit.Param{Type: name + "*", Name: structVar})
}

// ExtensionProto is the prototype of the chain mapping.
var ExtensionProto = emit.FuncProto("void", prefix+"_extension_struct",
	emit.Param{Type: "VulkanHandleMapping*", Name: mappingVar},
	emit.Param{Type: "VkStructureType", Name: "rootType"},
	emit.Param{Type: "void*", Name: "structExtension_out"})

type emitter struct{ info *types.Info }

func (emitter) Prefixes() []string                  { return []string{prefix} }
func (emitter) Protos(s *types.StructInfo) []string { return []string{Proto(s.Name)} }
func (emitter) ExtensionProtos() []string           { return []string{ExtensionProto} }

func (e emitter) Struct(g *emit.CodeGen, s *types.StructInfo) error {
	g.BeginFuncDef(Proto(s.Name))
	g.Stmt("(void)%s", mappingVar)
	g.Stmt("(void)rootType")
	g.Stmt("(void)%s", structVar)
	m := &mapper{
		info:  e.info,
		g:     g,
		scope: emit.Scope{Var: structVar, Members: s.Members},
		env:   iterate.Env{Struct: s, Var: structVar},
	}
	for _, t := range marshaling.WireOrder(s) {
		if err := m.member(t); err != nil {
			return err
		}
		if t.ParamName == "sType" && s.HasPNext() {
			g.BeginIf("rootType == %s", visitors.MaxEnumRoot)
			g.Stmt("rootType = %s", emit.Access(structVar, "sType"))
			g.EndIf()
		}
	}
	g.EndFuncDef()
	return nil
}

func (emitter) Extension(g *emit.CodeGen, ext *visitors.Extensions) {
	g.BeginFuncDef(ExtensionProto)
	g.BeginIf("!structExtension_out")
	g.Stmt("return")
	g.EndIf()
	g.Stmt("uint32_t structType = (uint32_t)goldfish_vk_struct_type(structExtension_out)")
	ext.Switch(g, "structType", "rootType", func(s *types.StructInfo) {
		g.FuncCall("", FuncName(s.Name), mappingVar, "rootType", visitors.ExtensionCast(s, "structExtension_out", false))
	}, func() {
		g.Stmt("return")
	})
	g.EndFuncDef()
}

// mapper visits the members that can hold handles. Anything else is left
// alone.
type mapper struct {
	iterate.Base
	info  *types.Info
	g     *emit.CodeGen
	scope emit.Scope
	env   iterate.Env
}

// member maps t, skipping members whose filter on a sibling says they are
// not in use.
func (m *mapper) member(t *types.VulkanType) error {
	pred, err := m.env.MemberFilter(t)
	if err != nil {
		return err
	}
	if pred != "" {
		m.g.BeginIf("%s", pred)
	}
	if _, err := iterate.Iterate(m.info, t, m); err != nil {
		return err
	}
	if pred != "" {
		m.g.EndIf()
	}
	return nil
}

func (m *mapper) access(t *types.VulkanType) string { return m.scope.Access(t.ParamName) }

func (m *mapper) isHandle(t *types.VulkanType) bool { return m.info.IsHandleType(t.TypeName) }

func (m *mapper) mapHandles(t *types.VulkanType, ptr, n string) {
	name := m.info.Resolve(t.TypeName)
	if n == "1" {
		m.g.Stmt("%s->mapHandles_%s((%s*)%s)", mappingVar, name, name, ptr)
		return
	}
	m.g.Stmt("%s->mapHandles_%s((%s*)%s, %s)", mappingVar, name, name, ptr, n)
}

func (m *mapper) OnValue(t *types.VulkanType) error {
	if m.isHandle(t) {
		m.mapHandles(t, emit.AddressOf(m.access(t)), "1")
	}
	return nil
}

func (m *mapper) OnStaticArr(t *types.VulkanType) error {
	if m.isHandle(t) {
		m.mapHandles(t, m.access(t), t.StaticArrLen())
	}
	return nil
}

func (m *mapper) OnPointer(t *types.VulkanType) error {
	if !m.isHandle(t) || t.PointerIndirectionLevels != 1 {
		return nil
	}
	n, err := emit.LengthAccess(t, m.scope)
	if err != nil {
		return err
	}
	if n == "" {
		n = "1"
	}
	lv := m.access(t)
	m.g.BeginIf("%s", lv)
	m.mapHandles(t, lv, n)
	m.g.EndIf()
	return nil
}

func (m *mapper) OnStructExtension(t *types.VulkanType) error {
	lv := m.access(t)
	m.g.BeginIf("%s", lv)
	m.g.FuncCall("", prefix+"_extension_struct", mappingVar, "rootType", fmt.Sprintf("(void*)(%s)", lv))
	m.g.EndIf()
	return nil
}

func (m *mapper) OnCompoundType(t *types.VulkanType) error {
	name := m.info.Resolve(t.TypeName)
	return visitors.EachElement(m.g, t, m.scope, func(ptr string) {
		m.g.FuncCall("", FuncName(name), mappingVar, "rootType", fmt.Sprintf("(%s*)(%s)", name, ptr))
	})
}
