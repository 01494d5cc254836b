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

// Package equality emits checkEqual_ functions, which compare two structs
// member by member and report each difference through a callback.
package equality

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
	prefix = "checkEqual"
	onFail = "onFail"
)

var onFailParam = emit.Param{Type: "OnFailCompareFunc", Name: onFail}

// New returns the wrapper emitting checkEqual_ functions into m.
func New(info *types.Info, m *emit.Module) *visitors.StructWrapper {
	return visitors.NewStructWrapper(info, m, emitter{info})
}

// FuncName returns the name of the function comparing the named struct.
func FuncName(name string) string { return prefix + "_" + name }

// Proto returns the prototype of the function comparing the named struct.
func Proto(name string) string {
	return emit.FuncProto("void", FuncName(name),
		emit.Param{Type: "const " + name + "*", Name: "a"},
		emit.Param{Type: "const " + name + "*", Name: "b"},
		onFailParam)
}

// ExtensionProto is the prototype of the chain comparison.
var ExtensionProto = emit.FuncProto("void", prefix+"_extension_struct",
	emit.Param{Type: "VkStructureType", Name: "rootType"},
	emit.Param{Type: "const void*", Name: "structExtension"},
	emit.Param{Type: "const void*", Name: "structExtension2"},
	onFailParam)

type emitter struct{ info *types.Info }

func (emitter) Prefixes() []string                  { return []string{prefix} }
func (emitter) Protos(s *types.StructInfo) []string { return []string{Proto(s.Name)} }
func (emitter) ExtensionProtos() []string           { return []string{ExtensionProto} }

func (e emitter) Struct(g *emit.CodeGen, s *types.StructInfo) error {
	g.BeginFuncDef(Proto(s.Name))
	c := &comparator{
		info: e.info,
		g:    g,
		a:    emit.Scope{Var: "a", Members: s.Members},
		b:    emit.Scope{Var: "b", Members: s.Members},
		env:  iterate.Env{Struct: s, Var: "a"},
	}
	for _, m := range marshaling.WireOrder(s) {
		if err := c.member(m); err != nil {
			return err
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
		g.FuncCall("", FuncName(s.Name),
			visitors.ExtensionCast(s, "structExtension", true),
			visitors.ExtensionCast(s, "structExtension2", true),
			onFail)
	}, func() {
		g.Stmt("return")
	})
	g.EndFuncDef()
}

// comparator walks a and b in lockstep.
type comparator struct {
	iterate.Base
	info *types.Info
	g    *emit.CodeGen
	a, b emit.Scope
	env  iterate.Env
	skip bool
}

func (c *comparator) member(t *types.VulkanType) error {
	pred, err := c.env.MemberFilter(t)
	if err != nil {
		return err
	}
	if pred != "" {
		c.g.BeginIf("%s", pred)
	}
	if _, err := iterate.Iterate(c.info, t, c); err != nil {
		return err
	}
	if pred != "" {
		c.g.EndIf()
	}
	return nil
}

// check reports msg about t unless cond holds.
func (c *comparator) check(t *types.VulkanType, cond, msg string) {
	c.g.BeginIf("!(%s)", cond)
	c.g.Stmt(`%s("%s (Error: %s)")`, onFail, c.a.Access(t.ParamName), msg)
	c.g.EndIf()
}

// both opens a scope entered only when the pointers are both non-null.
func (c *comparator) both(t *types.VulkanType) {
	c.g.BeginIf("(%s) && (%s)", c.a.Access(t.ParamName), c.b.Access(t.ParamName))
}

// lengths compares the lengths of t and opens a scope entered when they
// agree. It returns the length in a and whether a scope was opened.
func (c *comparator) lengths(t *types.VulkanType) (string, bool, error) {
	na, err := emit.LengthAccess(t, c.a)
	if err != nil {
		return "", false, err
	}
	nb, err := emit.LengthAccess(t, c.b)
	if err != nil {
		return "", false, err
	}
	if na == "" {
		return "1", false, nil
	}
	if na == nb {
		return na, false, nil
	}
	cond := fmt.Sprintf("%s == %s", na, nb)
	c.check(t, cond, "Lengths not equal")
	c.g.BeginIf("%s", cond)
	return na, true, nil
}

func (c *comparator) OnCheck(t *types.VulkanType) error {
	a, b := c.a.Access(t.ParamName), c.b.Access(t.ParamName)
	c.check(t, fmt.Sprintf("(!(%s) && !(%s)) || ((%s) && (%s))", a, b, a, b), "Mismatch in optional field")
	return nil
}

func (c *comparator) OnCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	return c.OnCheck(t)
}

func (c *comparator) EndCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	c.skip = true
	return nil
}

func (c *comparator) FinalCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	c.skip = false
	return nil
}

func (c *comparator) OnValue(t *types.VulkanType) error {
	c.check(t, fmt.Sprintf("(%s) == (%s)", c.a.Access(t.ParamName), c.b.Access(t.ParamName)), "Value not equal")
	return nil
}

func (c *comparator) OnString(t *types.VulkanType) error {
	if c.skip {
		return nil
	}
	c.both(t)
	c.check(t, fmt.Sprintf("(strcmp(%s, %s) == 0)", c.a.Access(t.ParamName), c.b.Access(t.ParamName)), "Unequal strings")
	c.g.EndIf()
	return nil
}

func (c *comparator) OnStringArray(t *types.VulkanType) error {
	c.both(t)
	n, opened, err := c.lengths(t)
	if err != nil {
		return err
	}
	if n == "1" {
		return errors.Wrapf(types.ErrUnsupported, "%v.%v: string array without length", t.Parent, t.ParamName)
	}
	idx := c.g.VarWithPrefix("i")
	c.g.BeginLoop(idx, n)
	a, b := c.a.Access(t.ParamName), c.b.Access(t.ParamName)
	c.check(t, fmt.Sprintf("(strcmp(*(%s + %s), *(%s + %s)) == 0)", a, idx, b, idx), "Unequal string arrays")
	c.g.EndFor()
	if opened {
		c.g.EndIf()
	}
	c.g.EndIf()
	return nil
}

func (c *comparator) OnStaticArr(t *types.VulkanType) error {
	et := t.ForValueAccess().ForNonConstAccess()
	c.check(t, fmt.Sprintf("(memcmp(%s, %s, %s * %s) == 0)",
		c.a.Access(t.ParamName), c.b.Access(t.ParamName), t.StaticArrLen(), emit.SizeofExpr(et)), "Unequal static array")
	return nil
}

func (c *comparator) OnPointer(t *types.VulkanType) error {
	if t.IsVoidWithNoSize() {
		return nil
	}
	c.both(t)
	n, opened, err := c.lengths(t)
	if err != nil {
		return err
	}
	c.check(t, fmt.Sprintf("(memcmp(%s, %s, %s * %s) == 0)",
		c.a.Access(t.ParamName), c.b.Access(t.ParamName), n, emit.SizeofExpr(t.ForValueAccess())), "Unequal dyn array")
	if opened {
		c.g.EndIf()
	}
	c.g.EndIf()
	return nil
}

func (c *comparator) OnStructExtension(t *types.VulkanType) error {
	if err := c.OnCheck(t); err != nil {
		return err
	}
	c.both(t)
	c.g.FuncCall("", prefix+"_extension_struct", emit.Access(c.a.Var, "sType"), c.a.Access(t.ParamName), c.b.Access(t.ParamName), onFail)
	c.g.EndIf()
	return nil
}

func (c *comparator) OnCompoundType(t *types.VulkanType) error {
	call := FuncName(c.info.Resolve(t.TypeName))
	a, b := c.a.Access(t.ParamName), c.b.Access(t.ParamName)
	switch {
	case t.IsStaticArray():
		idx := c.g.VarWithPrefix("i")
		c.g.BeginLoop(idx, t.StaticArrLen())
		c.g.FuncCall("", call, fmt.Sprintf("%s + %s", a, idx), fmt.Sprintf("%s + %s", b, idx), onFail)
		c.g.EndFor()
	case t.IsPointer():
		c.both(t)
		n, opened, err := c.lengths(t)
		if err != nil {
			return err
		}
		if n == "1" {
			c.g.FuncCall("", call, a, b, onFail)
		} else {
			idx := c.g.VarWithPrefix("i")
			c.g.BeginLoop(idx, n)
			c.g.FuncCall("", call, fmt.Sprintf("%s + %s", a, idx), fmt.Sprintf("%s + %s", b, idx), onFail)
			c.g.EndFor()
		}
		if opened {
			c.g.EndIf()
		}
		c.g.EndIf()
	default:
		c.g.FuncCall("", call, emit.AddressOf(a), emit.AddressOf(b), onFail)
	}
	return nil
}
