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
	"github.com/google/gfxcodegen/core/memory/arena"
	"github.com/pkg/errors"
)

// decoder reads values from a source. Extension chain links are read from
// chain, which differs from in while decoding the body of a link.
type decoder struct {
	c     *Codec
	in    source
	chain source
	arena *arena.Arena
	sc    *scope
	root  int64
	skip  bool
	nos   bool
}

var _ iterate.Visitor = (*decoder)(nil)

func (d *decoder) structure(st *types.StructInfo, free filter.Vars, root int64, in, chain source) (*Struct, error) {
	s := NewStruct(st.Name, nil)
	saved, savedRoot, savedIn, savedChain := d.sc, d.root, d.in, d.chain
	d.sc, d.root, d.in, d.chain = d.c.scope(s, st.Members, free), root, in, chain
	defer func() { d.sc, d.root, d.in, d.chain = saved, savedRoot, savedIn, savedChain }()

	if d.c.Features.Has(IgnoredHandles) {
		for _, l := range st.Lets() {
			d.sc.vars[l.Name] = d.in.value(d.c.Info.PrimEncodingSize(l.Type))
		}
	}
	for _, m := range marshaling.WireOrder(st) {
		if err := d.member(m); err != nil {
			return nil, err
		}
		if m.ParamName == "sType" && d.root == MaxEnumRoot {
			v, _ := toUint(s.Get("sType"))
			d.root = int64(v)
		}
	}
	if err := d.in.err(); err != nil {
		return nil, errors.Wrapf(err, "%v", st.Name)
	}
	return s, nil
}

func (d *decoder) params(api *types.APIInfo, s *Struct, params []*types.VulkanType) error {
	saved, savedRoot := d.sc, d.root
	d.sc, d.root = d.c.scope(s, api.Parameters, nil), MaxEnumRoot
	defer func() { d.sc, d.root = saved, savedRoot }()
	for _, p := range params {
		if err := d.member(p); err != nil {
			return errors.Wrapf(err, "%v", api.Name)
		}
	}
	return errors.Wrapf(d.in.err(), "%v", api.Name)
}

func (d *decoder) member(t *types.VulkanType) error {
	ok, err := d.sc.present(t)
	if err != nil || !ok {
		return err
	}
	_, err = iterate.Iterate(d.c.Info, t, d)
	return err
}

func (d *decoder) set(t *types.VulkanType, v interface{}) { d.sc.s.Set(t.ParamName, v) }

func (d *decoder) OnCheck(t *types.VulkanType) error {
	if d.in.value(8) == 0 {
		d.skip = true
		d.set(t, nil)
	}
	return nil
}

func (d *decoder) EndCheck(t *types.VulkanType) error {
	d.skip = false
	return nil
}

func (d *decoder) OnCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	d.nos = d.c.Features.Has(NullOptionalStrings)
	if !d.nos {
		d.skip = true
		return nil
	}
	return d.OnCheck(t)
}

func (d *decoder) EndCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	d.skip = d.nos
	return nil
}

func (d *decoder) FinalCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	d.skip, d.nos = false, false
	return nil
}

func (d *decoder) OnString(t *types.VulkanType) error {
	if d.skip {
		return nil
	}
	d.set(t, d.string())
	return nil
}

func (d *decoder) string() string {
	n := d.in.value(4)
	if d.in.err() != nil {
		return ""
	}
	return string(d.in.bytes(int(n)))
}

func (d *decoder) OnStringArray(t *types.VulkanType) error {
	n := int(d.in.value(4))
	list := []string{}
	for i := 0; i < n && d.in.err() == nil; i++ {
		list = append(list, d.string())
	}
	d.set(t, list)
	return nil
}

func (d *decoder) OnStaticArr(t *types.VulkanType) error {
	v, err := d.array(t.ForValueAccess(), t.StaticArrCount)
	if err != nil {
		return err
	}
	d.set(t, v)
	return nil
}

func (d *decoder) OnPointer(t *types.VulkanType) error {
	if d.skip {
		return nil
	}
	var v interface{}
	var err error
	switch {
	case t.IsVoidWithNoSize():
		v, err = d.elem(t)
	case !hasLength(t):
		v, err = d.elem(t.ForValueAccess())
	default:
		n, ok, lerr := d.sc.length(t)
		if lerr != nil || !ok {
			return lerr
		}
		v, err = d.array(t.ForValueAccess(), n)
	}
	if err != nil {
		return err
	}
	d.set(t, v)
	return nil
}

func (d *decoder) OnValue(t *types.VulkanType) error {
	v, err := d.elem(t)
	if err != nil {
		return err
	}
	d.set(t, v)
	return nil
}

func (d *decoder) OnCompoundType(t *types.VulkanType) error {
	if d.skip {
		return nil
	}
	st := d.c.Info.Struct(t.TypeName)
	if st == nil {
		return errors.Wrapf(ErrUnknown, "%v.%v: struct %v", t.Parent, t.ParamName, t.TypeName)
	}
	free, err := d.sc.binds(t)
	if err != nil {
		return err
	}
	n := 0
	switch {
	case t.IsStaticArray():
		n = t.StaticArrCount
	case t.IsPointer() && hasLength(t):
		var ok bool
		if n, ok, err = d.sc.length(t); err != nil || !ok {
			return err
		}
	default:
		s, err := d.structure(st, free, d.root, d.in, d.in)
		if err != nil {
			return err
		}
		d.set(t, s)
		return nil
	}
	list := make([]*Struct, 0, n)
	for i := 0; i < n; i++ {
		s, err := d.structure(st, free, d.root, d.in, d.in)
		if err != nil {
			return err
		}
		list = append(list, s)
	}
	d.set(t, list)
	return nil
}

// OnStructExtension reads links until the terminating zero size. The size
// of a link is the sizeof of its struct and only its sType is looked at
// before the struct is read. A link whose sType is unknown is skipped by its
// size, counted from the sType.
func (d *decoder) OnStructExtension(t *types.VulkanType) error {
	for {
		size := int(d.chain.value(4))
		if err := d.chain.err(); err != nil {
			return err
		}
		if size == 0 {
			d.set(t, nil)
			return nil
		}
		head := d.chain.bytes(4)
		if err := d.chain.err(); err != nil {
			return err
		}
		st, ok := d.c.Info.StructForSType(d.root, int64(getUint(head, 4)))
		if !ok {
			if size < len(head) {
				return errors.Wrapf(ErrCorrupt, "%v.%v: link of %d bytes", t.Parent, t.ParamName, size)
			}
			d.chain.bytes(size - len(head))
			continue
		}
		in := &replaySource{head: head, src: d.chain}
		s, err := d.structure(st, nil, d.root, in, in)
		if err != nil {
			return err
		}
		d.set(t, s)
		return nil
	}
}

// array reads n elements of type et.
func (d *decoder) array(et *types.VulkanType, n int) (interface{}, error) {
	size, err := d.c.size(et)
	if err != nil {
		return nil, err
	}
	if size == 1 && !et.IsPointer() {
		return d.in.bytes(n), nil
	}
	if n < 0 {
		return nil, errors.Wrapf(ErrCorrupt, "%v.%v: length %d", et.Parent, et.ParamName, n)
	}
	switch {
	case !et.IsPointer() && et.TypeName == "float":
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(uint32(d.in.value(4)))
		}
		return out, nil
	case !et.IsPointer() && et.TypeName == "double":
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(d.in.value(8))
		}
		return out, nil
	case !et.IsPointer() && d.c.Info.IsHandleType(et.TypeName):
		out := make([]Handle, n)
		for i := range out {
			out[i] = Handle(d.in.value(8))
		}
		return out, nil
	}
	out := make([]uint64, n)
	for i := range out {
		v, err := d.elem(et)
		if err != nil {
			return nil, err
		}
		out[i] = v.(uint64)
	}
	return out, nil
}

// elem reads a single value of type t.
func (d *decoder) elem(t *types.VulkanType) (interface{}, error) {
	if !t.IsPointer() {
		switch {
		case t.TypeName == "float":
			return math.Float32frombits(uint32(d.in.value(4))), nil
		case t.TypeName == "double":
			return math.Float64frombits(d.in.value(8)), nil
		case d.c.Info.IsHandleType(t.TypeName):
			return Handle(d.in.value(8)), nil
		}
	}
	size, err := d.c.size(t)
	if err != nil {
		return nil, err
	}
	if t.IsPointer() || d.c.Info.IsNonAbiPortableType(t.TypeName) {
		size = 8
	}
	return d.in.value(size), nil
}
