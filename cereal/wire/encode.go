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

package wire

import (
	"math"

	"github.com/google/gfxcodegen/cereal/filter"
	"github.com/google/gfxcodegen/cereal/iterate"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/marshaling"
	"github.com/pkg/errors"
)

// encoder writes values to a sink, one struct or command at a time.
type encoder struct {
	c    *Codec
	out  sink
	sc   *scope
	root int64
	// skip is set while inside the check of a null pointer.
	skip bool
	// nos is set while streaming an optional string under the null
	// optional strings feature.
	nos bool
}

var _ iterate.Visitor = (*encoder)(nil)

// structure writes s as a struct of type st. The pNext member is left out
// when omitNext is set.
func (e *encoder) structure(st *types.StructInfo, s *Struct, free filter.Vars, root int64, omitNext bool) error {
	s = e.c.withSType(st, s)
	if root == MaxEnumRoot && st.StructEnumExpr != "" {
		v, _ := toUint(s.Get("sType"))
		root = int64(v)
	}
	saved, savedRoot := e.sc, e.root
	e.sc, e.root = e.c.scope(s, st.Members, free), root
	defer func() { e.sc, e.root = saved, savedRoot }()

	if e.c.Features.Has(IgnoredHandles) {
		for _, l := range st.Lets() {
			v, err := e.sc.let(l)
			if err != nil {
				return errors.Wrapf(err, "%v", st.Name)
			}
			e.sc.vars[l.Name] = v
			e.out.value(e.c.Info.PrimEncodingSize(l.Type), v)
		}
	}
	for _, m := range marshaling.WireOrder(st) {
		if omitNext && m.IsNextPointer() {
			continue
		}
		if err := e.member(m); err != nil {
			return err
		}
	}
	return nil
}

// params writes the named parameters of a command.
func (e *encoder) params(api *types.APIInfo, s *Struct, params []*types.VulkanType) error {
	saved, savedRoot := e.sc, e.root
	e.sc, e.root = e.c.scope(s, api.Parameters, nil), MaxEnumRoot
	defer func() { e.sc, e.root = saved, savedRoot }()
	for _, p := range params {
		if err := e.member(p); err != nil {
			return errors.Wrapf(err, "%v", api.Name)
		}
	}
	return nil
}

func (e *encoder) member(t *types.VulkanType) error {
	ok, err := e.sc.present(t)
	if err != nil || !ok {
		return err
	}
	_, err = iterate.Iterate(e.c.Info, t, e)
	return err
}

func (e *encoder) get(t *types.VulkanType) interface{} { return e.sc.s.Get(t.ParamName) }

func (e *encoder) OnCheck(t *types.VulkanType) error {
	if isNull(e.get(t)) {
		e.out.value(8, 0)
		e.skip = true
	} else {
		e.out.value(8, math.MaxUint64)
	}
	return nil
}

func (e *encoder) EndCheck(t *types.VulkanType) error {
	e.skip = false
	return nil
}

func (e *encoder) OnCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	e.nos = e.c.Features.Has(NullOptionalStrings)
	if !e.nos {
		e.skip = true
		return nil
	}
	return e.OnCheck(t)
}

func (e *encoder) EndCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	e.skip = e.nos
	return nil
}

func (e *encoder) FinalCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	e.skip, e.nos = false, false
	return nil
}

func (e *encoder) OnString(t *types.VulkanType) error {
	if e.skip {
		return nil
	}
	s, ok := e.get(t).(string)
	if !ok && e.get(t) != nil {
		return errors.Wrapf(ErrValue, "%v.%v: %T is not a string", t.Parent, t.ParamName, e.get(t))
	}
	e.string(s)
	return nil
}

func (e *encoder) string(s string) {
	e.out.value(4, uint64(len(s)))
	e.out.bytes([]byte(s))
}

func (e *encoder) OnStringArray(t *types.VulkanType) error {
	n, ok, err := e.sc.length(t)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(types.ErrUnsupported, "%v.%v: string array without length", t.Parent, t.ParamName)
	}
	list, _ := e.get(t).([]string)
	if len(list) != n {
		return errors.Wrapf(ErrValue, "%v.%v: %d strings for a length of %d", t.Parent, t.ParamName, len(list), n)
	}
	e.out.value(4, uint64(n))
	for _, s := range list {
		e.string(s)
	}
	return nil
}

func (e *encoder) OnStaticArr(t *types.VulkanType) error {
	return e.array(t, t.ForValueAccess(), e.get(t), t.StaticArrCount)
}

func (e *encoder) OnPointer(t *types.VulkanType) error {
	if e.skip {
		return nil
	}
	v := e.get(t)
	if t.IsVoidWithNoSize() {
		return e.elem(t, v)
	}
	et := t.ForValueAccess()
	if !hasLength(t) {
		return e.elem(et, v)
	}
	n, ok, err := e.sc.length(t)
	if err != nil || !ok {
		return err
	}
	return e.array(t, et, v, n)
}

func (e *encoder) OnValue(t *types.VulkanType) error { return e.elem(t, e.get(t)) }

func (e *encoder) OnCompoundType(t *types.VulkanType) error {
	if e.skip {
		return nil
	}
	st := e.c.Info.Struct(t.TypeName)
	if st == nil {
		return errors.Wrapf(ErrUnknown, "%v.%v: struct %v", t.Parent, t.ParamName, t.TypeName)
	}
	free, err := e.sc.binds(t)
	if err != nil {
		return err
	}
	v := e.get(t)
	n := 1
	switch {
	case t.IsStaticArray():
		n = t.StaticArrCount
	case t.IsPointer() && hasLength(t):
		var ok bool
		if n, ok, err = e.sc.length(t); err != nil || !ok {
			return err
		}
	default:
		s, _ := v.(*Struct)
		return e.structure(st, s, free, e.root, false)
	}
	list, err := structs(t, v, n)
	if err != nil {
		return err
	}
	for _, s := range list {
		if err := e.structure(st, s, free, e.root, false); err != nil {
			return err
		}
	}
	return nil
}

// OnStructExtension writes the chain as a sequence of links, each a 32-bit
// size followed by the struct without its pNext. A size of zero ends it.
func (e *encoder) OnStructExtension(t *types.VulkanType) error {
	next, _ := e.get(t).(*Struct)
	return e.chain(next)
}

func (e *encoder) chain(s *Struct) error {
	for ; s != nil; s = s.Next() {
		st := e.c.linkStruct(s)
		if st == nil {
			continue
		}
		size, err := e.c.Info.CSize(st.Name)
		if err != nil {
			return err
		}
		e.out.value(4, uint64(size))
		if err := e.structure(st, s, nil, e.root, true); err != nil {
			return err
		}
		return e.chain(s.Next())
	}
	e.out.value(4, 0)
	return nil
}

// array writes n elements of type et held by v, the value of t.
func (e *encoder) array(t, et *types.VulkanType, v interface{}, n int) error {
	if e.skip {
		return nil
	}
	size, err := e.c.size(et)
	if err != nil {
		return err
	}
	if size == 1 && !et.IsPointer() {
		var b []byte
		switch v := v.(type) {
		case []byte:
			b = v
		case string:
			b = []byte(v)
		case nil:
		default:
			return errors.Wrapf(ErrValue, "%v.%v: %T is not bytes", t.Parent, t.ParamName, v)
		}
		if len(b) > n || (!t.IsStaticArray() && len(b) != n) {
			return errors.Wrapf(ErrValue, "%v.%v: %d bytes for a length of %d", t.Parent, t.ParamName, len(b), n)
		}
		out := make([]byte, n)
		copy(out, b)
		e.out.bytes(out)
		return nil
	}
	list, err := elements(v, n, t.IsStaticArray())
	if err != nil {
		return errors.Wrapf(err, "%v.%v", t.Parent, t.ParamName)
	}
	for _, x := range list {
		if err := e.elem(et, x); err != nil {
			return err
		}
	}
	return nil
}

// elem writes the single value v of type t.
func (e *encoder) elem(t *types.VulkanType, v interface{}) error {
	if e.skip {
		return nil
	}
	switch t.TypeName {
	case "float":
		if !t.IsPointer() {
			f, ok := toFloat(v)
			if !ok {
				return errors.Wrapf(ErrValue, "%v.%v: %T is not a float", t.Parent, t.ParamName, v)
			}
			e.out.value(4, uint64(math.Float32bits(float32(f))))
			return nil
		}
	case "double":
		if !t.IsPointer() {
			f, ok := toFloat(v)
			if !ok {
				return errors.Wrapf(ErrValue, "%v.%v: %T is not a double", t.Parent, t.ParamName, v)
			}
			e.out.value(8, math.Float64bits(f))
			return nil
		}
	}
	size, err := e.c.size(t)
	if err != nil {
		return err
	}
	if t.IsPointer() || e.c.Info.IsHandleType(t.TypeName) || e.c.Info.IsNonAbiPortableType(t.TypeName) {
		size = 8
	}
	u, ok := toUint(v)
	if !ok {
		return errors.Wrapf(ErrValue, "%v.%v: %T is not an integer", t.Parent, t.ParamName, v)
	}
	e.out.value(size, u)
	return nil
}
