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

// Package deepcopy emits the functions that duplicate a struct and
// everything it points to into an arena allocator.
package deepcopy

import (
	"fmt"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/iterate"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors"
	"github.com/google/gfxcodegen/cereal/visitors/marshaling"
	"github.com/pkg/errors"
)

const (
	prefix    = "deepcopy"
	allocName = "alloc"
	fromVar   = "from"
	toVar     = "to"
)

var (
	allocParam = emit.Param{Type: "Allocator*", Name: allocName}
	rootParam  = emit.Param{Type: "VkStructureType", Name: "rootType"}
)

// New returns the wrapper emitting deepcopy_ functions into m.
func New(info *types.Info, m *emit.Module) *visitors.StructWrapper {
	return visitors.NewStructWrapper(info, m, emitter{info})
}

// FuncName returns the name of the function copying the named struct.
func FuncName(name string) string { return prefix + "_" + name }

// Proto returns the prototype of the function copying the named struct.
func Proto(name string) string {
	return emit.FuncProto("void", FuncName(name),
		allocParam,
		rootParam,
		emit.Param{Type: "const " + name + "*", Name: fromVar},
		emit.Param{Type: name + "*", Name: toVar})
}

// ExtensionProto is the prototype of the chain copy.
var ExtensionProto = emit.FuncProto("void", prefix+"_extension_struct",
	allocParam,
	rootParam,
	emit.Param{Type: "const void*", Name: "structExtension"},
	emit.Param{Type: "void*", Name: "structExtension_out"})

type emitter struct{ info *types.Info }

func (emitter) Prefixes() []string                  { return []string{prefix} }
func (emitter) Protos(s *types.StructInfo) []string { return []string{Proto(s.Name)} }
func (emitter) ExtensionProtos() []string           { return []string{ExtensionProto} }

func (e emitter) Struct(g *emit.CodeGen, s *types.StructInfo) error {
	g.BeginFuncDef(Proto(s.Name))
	g.Stmt("(void)%s", allocName)
	g.Stmt("(void)rootType")
	g.Stmt("*%s = *%s", toVar, fromVar)
	c := &copier{
		info: e.info,
		g:    g,
		from: emit.Scope{Var: fromVar, Members: s.Members},
		to:   emit.Scope{Var: toVar, Members: s.Members},
	}
	for _, m := range marshaling.WireOrder(s) {
		if _, err := iterate.Iterate(e.info, m, c); err != nil {
			return err
		}
		if m.ParamName == "sType" && s.HasPNext() {
			g.BeginIf("rootType == %s", visitors.MaxEnumRoot)
			g.Stmt("rootType = %s", emit.Access(fromVar, "sType"))
			g.EndIf()
		}
	}
	g.EndFuncDef()
	return nil
}

func (emitter) Extension(g *emit.CodeGen, ext *visitors.Extensions) {
	g.BeginFuncDef(ExtensionProto)
	g.BeginIf("!structExtension")
	g.Stmt("return")
	g.EndIf()
	g.Stmt("uint32_t structType = (uint32_t)goldfish_vk_struct_type(structExtension)")
	ext.Switch(g, "structType", "rootType", func(s *types.StructInfo) {
		g.FuncCall("", FuncName(s.Name), allocName, "rootType",
			visitors.ExtensionCast(s, "structExtension", true),
			visitors.ExtensionCast(s, "structExtension_out", false))
	}, func() {
		g.Stmt("return")
	})
	g.EndFuncDef()
}

// copier emits the copy of the members the shallow struct copy got wrong:
// everything reached through a pointer. Values and handles are already in
// place.
type copier struct {
	iterate.Base
	info     *types.Info
	g        *emit.CodeGen
	from, to emit.Scope
	// skip drops the second string visit of the null optional string form,
	// which only differs on the wire.
	skip bool
}

func (c *copier) OnCheckWithNullOptionalStringFeature(t *types.VulkanType) error { return nil }

func (c *copier) EndCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	c.skip = true
	return nil
}

func (c *copier) FinalCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	c.skip = false
	return nil
}

// nullable emits "to = nullptr; if (from && cond) { body }".
func (c *copier) nullable(t *types.VulkanType, cond string, body func() error) error {
	src, dst := c.from.Access(t.ParamName), c.to.Access(t.ParamName)
	c.g.Stmt("%s = nullptr", dst)
	if cond != "" {
		c.g.BeginIf("%s && %s", src, cond)
	} else {
		c.g.BeginIf("%s", src)
	}
	if err := body(); err != nil {
		return err
	}
	c.g.EndIf()
	return nil
}

func (c *copier) OnString(t *types.VulkanType) error {
	if c.skip {
		return nil
	}
	return c.nullable(t, "", func() error {
		c.g.Stmt("%s = %s->strDup(%s)", c.to.Access(t.ParamName), allocName, c.from.Access(t.ParamName))
		return nil
	})
}

func (c *copier) OnStringArray(t *types.VulkanType) error {
	n, err := emit.LengthAccess(t, c.from)
	if err != nil {
		return err
	}
	if n == "" {
		return errors.Wrapf(types.ErrUnsupported, "%v.%v: string array without length", t.Parent, t.ParamName)
	}
	return c.nullable(t, n, func() error {
		c.g.Stmt("%s = %s->strDupArray(%s, %s)", c.to.Access(t.ParamName), allocName, c.from.Access(t.ParamName), n)
		return nil
	})
}

func (c *copier) OnStaticArr(t *types.VulkanType) error {
	et := t.ForValueAccess()
	c.g.Stmt("memcpy(%s, %s, %s * %s)", c.to.Access(t.ParamName), c.from.Access(t.ParamName), t.StaticArrLen(), emit.SizeofExpr(et.ForNonConstAccess()))
	return nil
}

func (c *copier) OnStructExtension(t *types.VulkanType) error {
	g := c.g
	g.Stmt("const void* from_pNext = %s", fromVar)
	g.Stmt("size_t pNext_size = 0u")
	g.BeginWhile("!pNext_size && from_pNext")
	g.Stmt("from_pNext = %s->pNext", emit.ReinterpretCast("const VkBaseInStructure*", "from_pNext"))
	g.Stmt("pNext_size = goldfish_vk_extension_struct_size(rootType, from_pNext)")
	g.EndWhile()
	dst := c.to.Access(t.ParamName)
	g.Stmt("%s = nullptr", dst)
	g.BeginIf("pNext_size")
	g.Stmt("%s = (void*)%s->alloc(pNext_size)", dst, allocName)
	g.FuncCall("", prefix+"_extension_struct", allocName, "rootType", "from_pNext", fmt.Sprintf("(void*)(%s)", dst))
	g.EndIf()
	return nil
}

func (c *copier) OnPointer(t *types.VulkanType) error {
	if t.IsVoidWithNoSize() {
		return nil
	}
	n, err := emit.LengthAccess(t, c.from)
	if err != nil {
		return err
	}
	if n == "" {
		n = "1"
	}
	guard := emit.LengthGuard(t, c.from)
	return c.nullable(t, guard, func() error {
		c.g.Stmt("%s = (%s)%s->dupArray(%s, %s * %s)",
			c.to.Access(t.ParamName), t.Decl(false), allocName, c.from.Access(t.ParamName), n, emit.SizeofExpr(t.ForValueAccess()))
		return nil
	})
}

func (c *copier) OnCompoundType(t *types.VulkanType) error {
	name := c.info.Resolve(t.TypeName)
	src, dst := c.from.Access(t.ParamName), c.to.Access(t.ParamName)
	call := func(from, to string) {
		c.g.FuncCall("", FuncName(name), allocName, "rootType", from, fmt.Sprintf("(%s*)(%s)", name, to))
	}
	switch {
	case t.IsStaticArray():
		idx := c.g.VarWithPrefix("i")
		c.g.BeginLoop(idx, t.StaticArrLen())
		call(fmt.Sprintf("%s + %s", src, idx), fmt.Sprintf("%s + %s", dst, idx))
		c.g.EndFor()
	case t.IsPointer():
		n, err := emit.LengthAccess(t, c.from)
		if err != nil {
			return err
		}
		count := n
		if count == "" {
			count = "1"
		}
		return c.nullable(t, emit.LengthGuard(t, c.from), func() error {
			c.g.Stmt("%s = (%s*)%s->alloc(%s * sizeof(const %s))", dst, name, allocName, count, name)
			if n == "" {
				call(src, dst)
				return nil
			}
			idx := c.g.VarWithPrefix("i")
			c.g.BeginLoop(idx, n)
			call(fmt.Sprintf("%s + %s", src, idx), fmt.Sprintf("%s + %s", dst, idx))
			c.g.EndFor()
			return nil
		})
	default:
		call(emit.AddressOf(src), emit.AddressOf(dst))
	}
	return nil
}
