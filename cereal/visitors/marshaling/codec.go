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
	"fmt"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/iterate"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/pkg/errors"
)

// Codec is the iterate.Visitor that streams members in one direction.
type Codec struct {
	Style Style
	Info  *types.Info
	G     *emit.CodeGen
	Scope emit.Scope
	Env   iterate.Env
	// Root is the rootType expression passed on to nested calls.
	Root string
	// Static readers fill caller provided storage instead of allocating.
	Static bool
	// Raw names the handles read as the ids the peer sent, without
	// unboxing.
	Raw map[string]bool

	stream emit.Stream
}

var _ iterate.Visitor = (*Codec)(nil)

// NewCodec returns a codec for the members of scope. s is the struct being
// streamed, or nil for command parameters.
func NewCodec(style Style, info *types.Info, g *emit.CodeGen, scope emit.Scope, s *types.StructInfo) *Codec {
	return &Codec{
		Style:  style,
		Info:   info,
		G:      g,
		Scope:  scope,
		Env:    iterate.Env{Struct: s, Var: scope.Var},
		Root:   "rootType",
		stream: style.StreamOps(),
	}
}

func (c *Codec) access(t *types.VulkanType) string { return c.Scope.Access(t.ParamName) }

// Member streams t under its stream feature guard and filter predicate.
func (c *Codec) Member(t *types.VulkanType) error {
	fb := c.Style.FeatureBits
	guard := iterate.FeatureGuard(t, fb)
	if guard != "" {
		c.G.BeginIf(guard)
	}
	pred, err := c.Env.Predicate(t, fb)
	if err != nil {
		return err
	}
	if pred != "" {
		c.G.BeginIf(pred)
	}
	if _, err := iterate.Iterate(c.Info, t, c); err != nil {
		return err
	}
	if pred != "" {
		if c.Style.IsRead() && t.FilterOtherwise != "" {
			c.G.BeginElse()
			c.G.Stmt("%s", t.FilterOtherwise)
		}
		c.G.EndIf()
	}
	if guard != "" {
		c.G.EndIf()
	}
	return nil
}

// Lets materializes the let variables of the struct. Writers evaluate and
// send them, readers take the value the peer computed.
func (c *Codec) Lets() error {
	if c.Env.Struct == nil {
		return nil
	}
	lets, err := c.Env.Lets()
	if err != nil {
		return err
	}
	for _, l := range lets {
		size := c.Info.PrimEncodingSize(l.Type)
		if size == 0 {
			return errors.Wrapf(types.ErrUnsupported, "%v let %v of type %v", c.Env.Struct.Name, l.Name, l.Type)
		}
		c.G.Stmt("%s %s = 1", l.Type, l.Name)
		c.G.BeginIf("%s & %s", c.Style.FeatureBits, iterate.IgnoredHandlesBit)
		if !c.Style.IsRead() {
			c.G.Stmt("%s = %s", l.Name, l.Expr)
		}
		c.stream.Primitive(c.G, size, l.Name)
		c.G.EndIf()
	}
	return nil
}

func (c *Codec) OnCheck(t *types.VulkanType) error {
	lv := c.access(t)
	switch {
	case c.Style.IsRead():
		c.G.BeginIf(c.stream.Value(c.G, 8, ""))
	default:
		c.stream.Value(c.G, 8, fmt.Sprintf("(%s ? 0xffffffffffffffffULL : 0)", lv))
		c.G.BeginIf(lv)
	}
	return nil
}

func (c *Codec) EndCheck(t *types.VulkanType) error {
	if c.Style.IsRead() {
		c.G.BeginElse()
		c.G.Stmt("%s = nullptr", c.access(t))
	}
	c.G.EndIf()
	return nil
}

func (c *Codec) OnCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	c.G.BeginIf("%s & %s", c.Style.FeatureBits, types.StreamFeatureMacro("NULL_OPTIONAL_STRINGS"))
	return c.OnCheck(t)
}

func (c *Codec) EndCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	if err := c.EndCheck(t); err != nil {
		return err
	}
	c.G.BeginElse()
	return nil
}

func (c *Codec) FinalCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	c.G.EndIf()
	return nil
}

func (c *Codec) OnString(t *types.VulkanType) error {
	c.stream.String(c.G, c.access(t))
	return nil
}

func (c *Codec) OnStringArray(t *types.VulkanType) error {
	n, err := emit.LengthAccess(t, c.Scope)
	if err != nil {
		return err
	}
	if n == "" {
		return errors.Wrapf(types.ErrUnsupported, "%v.%v: string array without length", t.Parent, t.ParamName)
	}
	c.stream.StringArray(c.G, c.access(t), n)
	return nil
}

func (c *Codec) OnStaticArr(t *types.VulkanType) error {
	return c.array(t.ForValueAccess(), c.access(t), t.StaticArrLen())
}

func (c *Codec) OnPointer(t *types.VulkanType) error {
	lv := c.access(t)
	if t.IsVoidWithNoSize() {
		return c.wide(t, lv)
	}
	n, err := emit.LengthAccess(t, c.Scope)
	if err != nil {
		return err
	}
	if n == "" {
		n = "1"
	}
	et := t.ForValueAccess()
	guard := emit.LengthGuard(t, c.Scope)
	if guard != "" {
		c.G.BeginIf(guard)
	}
	if t.TypeName == "void" && t.PointerIndirectionLevels == 1 {
		// Sized blobs are measured in bytes.
		c.allocate(lv, fmt.Sprintf("%s * sizeof(uint8_t)", n))
		c.stream.Bytes(c.G, lv, fmt.Sprintf("%s * sizeof(uint8_t)", n))
	} else {
		c.allocate(lv, fmt.Sprintf("%s * %s", n, emit.SizeofExpr(et)))
		if err := c.array(et, lv, n); err != nil {
			return err
		}
	}
	if guard != "" {
		c.G.EndIf()
	}
	return nil
}

func (c *Codec) OnValue(t *types.VulkanType) error { return c.elem(t, c.access(t)) }

func (c *Codec) OnCompoundType(t *types.VulkanType) error {
	lv := c.access(t)
	name := c.Info.Resolve(t.TypeName)
	bound, err := c.Env.BindArgs(c.Info, t)
	if err != nil {
		return err
	}
	call := func(ptr string) {
		c.G.FuncCall("", c.Style.FuncName(name), c.Style.CallArgs(name, c.Root, ptr, bound...)...)
	}
	switch {
	case t.IsStaticArray():
		idx := c.G.VarWithPrefix("i")
		c.G.BeginLoop(idx, t.StaticArrLen())
		call(emit.AddressOf(fmt.Sprintf("%s[%s]", lv, idx)))
		c.G.EndFor()
	case t.IsPointer():
		n, err := emit.LengthAccess(t, c.Scope)
		if err != nil {
			return err
		}
		guard := emit.LengthGuard(t, c.Scope)
		if guard != "" {
			c.G.BeginIf(guard)
		}
		count := n
		if count == "" {
			count = "1"
		}
		c.allocate(lv, fmt.Sprintf("%s * sizeof(%s)", count, name))
		if n == "" {
			call(lv)
		} else {
			idx := c.G.VarWithPrefix("i")
			c.G.BeginLoop(idx, n)
			call(fmt.Sprintf("%s + %s", lv, idx))
			c.G.EndFor()
		}
		if guard != "" {
			c.G.EndIf()
		}
	default:
		call(emit.AddressOf(lv))
	}
	return nil
}

func (c *Codec) OnStructExtension(t *types.VulkanType) error {
	lv := c.access(t)
	args := []string{c.Style.Stream.Name, c.Root}
	if c.Style.IsRead() {
		args = append(args, "(void**)"+emit.AddressOf(lv))
	} else {
		args = append(args, lv)
	}
	if c.Style.Cursor != nil {
		args = append(args, c.Style.Cursor.Name)
	}
	c.G.FuncCall("", c.Style.ExtensionFunc(), args...)
	return nil
}

func (c *Codec) allocate(lv, n string) {
	if !c.Static {
		c.stream.Allocate(c.G, lv, n)
	}
}

// size returns the wire size of one element of type t.
func (c *Codec) size(t *types.VulkanType) (int, error) {
	if t.IsPointer() {
		return 8, nil
	}
	if size := c.Info.PrimEncodingSize(t.TypeName); size > 0 {
		return size, nil
	}
	return 0, errors.Wrapf(types.ErrUnsupported, "%v.%v: no wire size for %v", t.Parent, t.ParamName, t.TypeName)
}

// array streams n elements of type et starting at the pointer or array lv.
func (c *Codec) array(et *types.VulkanType, lv, n string) error {
	size, err := c.size(et)
	if err != nil {
		return err
	}
	switch {
	case c.Style.Dir == emit.Count:
		if n == "1" {
			c.G.Stmt("*%s += %d", c.stream.Var, size)
		} else {
			c.G.Stmt("*%s += %s * %d", c.stream.Var, n, size)
		}
		return nil
	case size == 1 && !et.IsPointer():
		c.stream.Bytes(c.G, lv, fmt.Sprintf("%s * %s", n, emit.SizeofExpr(et)))
		return nil
	case n == "1":
		return c.elem(et, fmt.Sprintf("(*(%s))", lv))
	}
	idx := c.G.VarWithPrefix("i")
	c.G.BeginLoop(idx, n)
	if err := c.elem(et, fmt.Sprintf("%s[%s]", lv, idx)); err != nil {
		return err
	}
	c.G.EndFor()
	return nil
}

// elem streams the single value lv of type t.
func (c *Codec) elem(t *types.VulkanType, lv string) error {
	switch {
	case !t.IsPointer() && c.Info.IsHandleType(t.TypeName):
		c.handle(t, lv)
	case t.IsPointer() || c.Info.IsNonAbiPortableType(t.TypeName):
		return c.wide(t, lv)
	default:
		size, err := c.size(t)
		if err != nil {
			return err
		}
		c.stream.Primitive(c.G, size, lv)
	}
	return nil
}

// wide streams a pointer sized value through a 64-bit temporary.
func (c *Codec) wide(t *types.VulkanType, lv string) error {
	switch c.Style.Dir {
	case emit.Read, emit.ReservedRead:
		v := c.stream.Value(c.G, 8, "")
		decl := t.ForNonConstAccess().Decl(false)
		c.G.Stmt("*(%s*)%s = (%s)(uintptr_t)%s", decl, emit.AddressOf(lv), decl, v)
	default:
		c.stream.Value(c.G, 8, "(uintptr_t)"+lv)
	}
	return nil
}

// handle streams a handle as the 64-bit id the mapping assigns to it.
func (c *Codec) handle(t *types.VulkanType, lv string) {
	name := c.Info.Resolve(t.TypeName)
	s := c.Style.Stream.Name
	switch c.Style.Dir {
	case emit.Write:
		v := c.G.Var()
		c.G.Stmt("uint64_t %s", v)
		c.G.Stmt("%s->handleMapping()->mapHandles_%s_u64(%s, &%s, 1)", s, name, emit.AddressOf(lv), v)
		c.stream.Primitive(c.G, 8, v)
	case emit.Read:
		v := c.stream.Value(c.G, 8, "")
		c.G.Stmt("%s->handleMapping()->mapHandles_u64_%s(&%s, (%s*)%s, 1)", s, name, v, name, emit.AddressOf(lv))
	case emit.ReservedWrite:
		c.stream.Value(c.G, 8, fmt.Sprintf("get_host_u64_%s(%s)", name, lv))
	case emit.ReservedRead:
		v := c.stream.Value(c.G, 8, "")
		if c.Raw[t.ParamName] {
			c.G.Stmt("*(%s*)%s = (%s)(uintptr_t)%s", name, emit.AddressOf(lv), name, v)
		} else {
			c.G.Stmt("*(%s*)%s = (%s)unbox_%s((%s)%s)", name, emit.AddressOf(lv), name, name, name, v)
		}
	case emit.Count:
		c.stream.Primitive(c.G, 8, lv)
	}
}
