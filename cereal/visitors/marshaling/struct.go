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

package marshaling

import (
	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/iterate"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors"
)

// WireOrder returns the members of s in the order they are streamed. Unions
// stream their first member only. The extension chain always goes last so
// readers know the root struct before descending into it.
func WireOrder(s *types.StructInfo) []*types.VulkanType {
	if s.IsUnion {
		if len(s.Members) == 0 {
			return nil
		}
		return s.Members[:1]
	}
	out := make([]*types.VulkanType, 0, len(s.Members))
	var next *types.VulkanType
	for _, m := range s.Members {
		if m.IsNextPointer() {
			next = m
			continue
		}
		out = append(out, m)
	}
	if next != nil {
		out = append(out, next)
	}
	return out
}

// Struct emits the definition of the function streaming s.
func (s Style) Struct(info *types.Info, g *emit.CodeGen, st *types.StructInfo) error {
	g.BeginFuncDef(s.Proto(st.Name, iterate.FreeParams(st)))
	if s.Dir == emit.Count {
		g.Stmt("(void)%s", s.Stream.Name)
	}
	g.Stmt("(void)rootType")
	c := NewCodec(s, info, g, emit.Scope{Var: s.StructVar, Members: st.Members}, st)
	if err := c.Lets(); err != nil {
		return err
	}
	for _, m := range WireOrder(st) {
		if err := c.Member(m); err != nil {
			return err
		}
		if m.ParamName == "sType" && st.HasPNext() {
			g.BeginIf("rootType == %s", visitors.MaxEnumRoot)
			g.Stmt("rootType = %s", emit.Access(s.StructVar, "sType"))
			g.EndIf()
		}
	}
	g.EndFuncDef()
	return nil
}

// ExtensionProto returns the prototype of the chain function.
func (s Style) ExtensionProto() string {
	params := []emit.Param{s.Stream, {Type: "VkStructureType", Name: "rootType"}}
	if s.IsRead() {
		params = append(params, emit.Param{Type: "void**", Name: "structExtension_out"})
	} else {
		params = append(params, emit.Param{Type: "const void*", Name: "structExtension"})
	}
	if s.Cursor != nil {
		params = append(params, *s.Cursor)
	}
	return emit.FuncProto("void", s.ExtensionFunc(), params...)
}

func (s Style) extensionArgs(ptr string) []string {
	out := []string{s.Stream.Name, "rootType", ptr}
	if s.Cursor != nil {
		out = append(out, s.Cursor.Name)
	}
	return out
}

// Extension emits the chain function. Each link is its in-memory size
// followed by the struct; a zero size ends the chain. Writers skip structs
// they cannot size and readers skip the declared size of structs they do
// not know.
func (s Style) Extension(g *emit.CodeGen, ext *visitors.Extensions) {
	g.BeginFuncDef(s.ExtensionProto())
	if s.IsRead() {
		s.extensionRead(g, ext)
	} else {
		s.extensionWrite(g, ext)
	}
	g.EndFuncDef()
}

func (s Style) extensionWrite(g *emit.CodeGen, ext *visitors.Extensions) {
	stream := s.StreamOps()
	g.Stmt("const VkBaseOutStructure* structAccess = (const VkBaseOutStructure*)(structExtension)")
	g.Stmt("size_t currExtSize = goldfish_vk_extension_struct_size_with_stream_features(%s, rootType, structExtension)", s.FeatureBits)
	g.BeginIf("!currExtSize && structExtension")
	g.FuncCall("", s.ExtensionFunc(), s.extensionArgs("(const void*)structAccess->pNext")...)
	g.Stmt("return")
	g.EndIf()
	stream.Value(g, 4, "currExtSize")
	g.BeginIf("!currExtSize")
	g.Stmt("return")
	g.EndIf()
	g.Stmt("uint32_t structType = (uint32_t)goldfish_vk_struct_type(structExtension)")
	ext.Switch(g, "structType", "rootType", func(st *types.StructInfo) {
		g.FuncCall("", s.FuncName(st.Name), s.CallArgs(st.Name, "rootType", "structExtension")...)
	}, func() {})
}

func (s Style) extensionRead(g *emit.CodeGen, ext *visitors.Extensions) {
	stream := s.StreamOps()
	g.Stmt("uint32_t currExtSize")
	stream.Primitive(g, 4, "currExtSize")
	g.BeginIf("!currExtSize")
	g.Stmt("*structExtension_out = nullptr")
	g.Stmt("return")
	g.EndIf()
	g.Stmt("uint32_t structType")
	if s.Dir == emit.ReservedRead {
		g.Stmt("memcpy(&structType, *%s, sizeof(uint32_t))", s.Cursor.Name)
		g.Stmt("android::base::Stream::fromBe32((uint8_t*)&structType)")
	} else {
		g.Stmt("structType = %s->peekBe32()", s.Stream.Name)
	}
	g.BeginIf("!goldfish_vk_extension_struct_size(rootType, &structType)")
	if s.Dir == emit.ReservedRead {
		g.Stmt("*%s += currExtSize", s.Cursor.Name)
	} else {
		g.Stmt("uint8_t* skipped")
		stream.Allocate(g, "skipped", "currExtSize")
		stream.Bytes(g, "skipped", "currExtSize")
	}
	g.FuncCall("", s.ExtensionFunc(), s.extensionArgs("structExtension_out")...)
	g.Stmt("return")
	g.EndIf()
	g.Stmt("size_t size = goldfish_vk_extension_struct_size_with_stream_features(%s, rootType, &structType)", s.FeatureBits)
	g.BeginIf("size < currExtSize")
	g.Stmt("size = currExtSize")
	g.EndIf()
	g.Stmt("%s->alloc(structExtension_out, size)", s.Stream.Name)
	ext.Switch(g, "structType", "rootType", func(st *types.StructInfo) {
		g.FuncCall("", s.FuncName(st.Name), s.CallArgs(st.Name, "rootType", "*structExtension_out")...)
	}, func() {})
}
