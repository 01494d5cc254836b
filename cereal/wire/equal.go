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
	"fmt"
	"reflect"
	"strings"

	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/marshaling"
	"github.com/google/gfxcodegen/core/data/compare"
	"github.com/pkg/errors"
)

// Equal returns nil if a and b agree on every member that travels, or an
// ErrNotEqual naming the first member that differs. Members whose filter
// reads a sibling are only compared when the filter holds for a.
func (c *Codec) Equal(a, b *Struct) error {
	if a == nil || b == nil {
		if a == b {
			return nil
		}
		return errors.Wrapf(ErrNotEqual, "%v != %v", a, b)
	}
	if a.Type != b.Type {
		return errors.Wrapf(ErrNotEqual, "type %v != %v", a.Type, b.Type)
	}
	st, err := c.structInfo(a.Type)
	if err != nil {
		return err
	}
	a, b = c.withSType(st, a), c.withSType(st, b)
	sc := c.scope(a, st.Members, nil)
	for _, m := range marshaling.WireOrder(st) {
		if ok, err := sc.memberFilter(m); err != nil || !ok {
			if err != nil {
				return err
			}
			continue
		}
		if err := c.equalMember(st, m, a.Get(m.ParamName), b.Get(m.ParamName)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) equalMember(st *types.StructInfo, m *types.VulkanType, x, y interface{}) error {
	if m.IsNextPointer() {
		return c.Equal(c.nextLink(x), c.nextLink(y))
	}
	if c.Info.IsCompoundType(m.TypeName) {
		xs, ys := structList(x), structList(y)
		zero := alwaysSent(m)
		if zero {
			xs, ys = c.padStructs(m, xs, len(ys)), c.padStructs(m, ys, len(xs))
		}
		if len(xs) != len(ys) {
			return errors.Wrapf(ErrNotEqual, "%v.%v: %d != %d elements", st.Name, m.ParamName, len(xs), len(ys))
		}
		for i := range xs {
			if err := c.Equal(xs[i], ys[i]); err != nil {
				return errors.Wrapf(err, "%v.%v[%d]", st.Name, m.ParamName, i)
			}
		}
		return nil
	}
	nx, ny := normalize(x), normalize(y)
	if m.IsStaticArray() {
		nx, ny = trimZeros(nx), trimZeros(ny)
	}
	if !compare.DeepEqual(nx, ny) {
		return errors.Wrapf(ErrNotEqual, "%v.%v: %v != %v", st.Name, m.ParamName, nx, ny)
	}
	return nil
}

// nextLink returns the first struct of the chain v that travels.
func (c *Codec) nextLink(v interface{}) *Struct {
	for s, _ := v.(*Struct); s != nil; s = s.Next() {
		if c.linkStruct(s) != nil {
			return s
		}
	}
	return nil
}

func structList(v interface{}) []*Struct {
	switch v := v.(type) {
	case *Struct:
		if v != nil {
			return []*Struct{v}
		}
	case []*Struct:
		return v
	}
	return nil
}

// alwaysSent returns true if a struct member is on the wire whether or not
// it is set, in which case unset reads as zero.
func alwaysSent(m *types.VulkanType) bool {
	return !m.IsOptionalPointer() && !hasLength(m)
}

// padStructs returns list with its null elements replaced by zero structs
// and grown to n elements.
func (c *Codec) padStructs(m *types.VulkanType, list []*Struct, n int) []*Struct {
	typ := m.TypeName
	if st := c.Info.Struct(typ); st != nil {
		typ = st.Name
	}
	if n < len(list) {
		n = len(list)
	}
	out := make([]*Struct, n)
	for i := range out {
		if i < len(list) && list[i] != nil {
			out[i] = list[i]
		} else {
			out[i] = NewStruct(typ, nil)
		}
	}
	return out
}

// trimZeros drops the trailing zeros of a normalized static array. Fixed
// char arrays lose their trailing NULs.
func trimZeros(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		if s = strings.TrimRight(s, "\x00"); s == "" {
			return nil
		}
		return s
	}
	rv := reflect.ValueOf(v)
	if v == nil || rv.Kind() != reflect.Slice {
		return v
	}
	n := rv.Len()
	for n > 0 && rv.Index(n-1).IsZero() {
		n--
	}
	if n == 0 {
		return nil
	}
	return rv.Slice(0, n).Interface()
}

// normalize converts the integer and slice forms a member may be given in
// to the forms the decoder produces. Unset, zero and empty values are all
// nil.
func normalize(v interface{}) interface{} {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return v
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return string(v)
	case float32:
		if v == 0 {
			return nil
		}
		return float64(v)
	case float64:
		if v == 0 {
			return nil
		}
		return v
	}
	if u, ok := toUint(v); ok {
		if u == 0 {
			return nil
		}
		return u
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return fmt.Sprint(v)
	}
	if rv.Len() == 0 {
		return nil
	}
	switch v.(type) {
	case []float32, []float64, []string:
		return v
	}
	out := make([]uint64, rv.Len())
	for i := range out {
		out[i], _ = toUint(rv.Index(i).Interface())
	}
	return out
}
