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
	"reflect"

	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/core/data/binary"
	"github.com/google/gfxcodegen/core/memory/arena"
	"github.com/pkg/errors"
)

// Codec streams the structs and commands of a type model with a fixed set
// of stream features. A Codec is safe for concurrent use.
type Codec struct {
	Info     *types.Info
	Features Features
}

// New returns a codec for info with the features fs negotiated.
func New(info *types.Info, fs Features) *Codec {
	// Build the sType table now, it is read from every decoding goroutine.
	info.StructForSType(MaxEnumRoot, 0)
	return &Codec{Info: info, Features: fs}
}

func (c *Codec) structInfo(typ string) (*types.StructInfo, error) {
	st := c.Info.Struct(typ)
	if st == nil {
		return nil, errors.Wrapf(ErrUnknown, "struct %v", typ)
	}
	return st, nil
}

// Command returns the command with the given name.
func (c *Codec) Command(name string) (*types.APIInfo, error) {
	api := c.Info.Command(name)
	if api == nil {
		return nil, errors.Wrapf(ErrUnknown, "command %v", name)
	}
	return api, nil
}

// Marshal writes s to w.
func (c *Codec) Marshal(w binary.Writer, s *Struct) error {
	return c.marshal(writerSink{w}, s)
}

func (c *Codec) marshal(out sink, s *Struct) error {
	st, err := c.structInfo(s.Type)
	if err != nil {
		return err
	}
	e := &encoder{c: c, out: out}
	if err := e.structure(st, s, nil, MaxEnumRoot, false); err != nil {
		return err
	}
	return out.err()
}

// Unmarshal reads a struct of type typ from r.
func (c *Codec) Unmarshal(r binary.Reader, typ string) (*Struct, error) {
	st, err := c.structInfo(typ)
	if err != nil {
		return nil, err
	}
	in := readerSource{r}
	d := &decoder{c: c}
	return d.structure(st, nil, MaxEnumRoot, in, in)
}

// Count returns the number of bytes Marshal writes for s.
func (c *Codec) Count(s *Struct) (int, error) {
	out := &countSink{}
	if err := c.marshal(out, s); err != nil {
		return 0, err
	}
	return out.n, nil
}

// ReservedMarshal writes s to the start of buf, which is usually sized by
// Count, and returns the number of bytes written.
func (c *Codec) ReservedMarshal(buf []byte, s *Struct) (int, error) {
	out := &reservedSink{buf: buf}
	if err := c.marshal(out, s); err != nil {
		return out.cursor, err
	}
	return out.cursor, nil
}

// ReservedUnmarshal reads a struct of type typ from the start of buf and
// returns it with the number of bytes read. Blobs are copied into a when
// it is not nil, otherwise they alias buf.
func (c *Codec) ReservedUnmarshal(buf []byte, typ string, a *arena.Arena) (*Struct, int, error) {
	st, err := c.structInfo(typ)
	if err != nil {
		return nil, 0, err
	}
	in := &sliceSource{buf: buf, arena: a}
	d := &decoder{c: c, arena: a}
	s, err := d.structure(st, nil, MaxEnumRoot, in, in)
	return s, in.cursor, err
}

// withSType returns s with the sType member filled in from the registry
// when it is unset.
func (c *Codec) withSType(st *types.StructInfo, s *Struct) *Struct {
	if s == nil {
		s = NewStruct(st.Name, nil)
	}
	if st.StructEnumExpr == "" || st.Member("sType") == nil || s.Get("sType") != nil {
		return s
	}
	v, err := c.Info.Registry.EnumValue(st.StructEnumExpr)
	if err != nil {
		return s
	}
	fields := make(map[string]interface{}, len(s.Fields)+1)
	for k, f := range s.Fields {
		fields[k] = f
	}
	fields["sType"] = uint64(v)
	return &Struct{Type: s.Type, Fields: fields}
}

// linkStruct returns the type of a struct in an extension chain, or nil if
// it does not travel.
func (c *Codec) linkStruct(s *Struct) *types.StructInfo {
	st := c.Info.Struct(s.Type)
	if st == nil || len(st.StructExtendsExpr) == 0 || st.StructEnumExpr == "" {
		return nil
	}
	if f, ok := types.StructStreamFeatures[st.Name]; ok && !c.Features.Has(Features(types.StreamFeatures[f])) {
		return nil
	}
	return st
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

func hasLength(t *types.VulkanType) bool {
	return t.LenExpr != "" && t.LenExpr != "null-terminated"
}

func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map:
		return rv.IsNil()
	}
	return false
}

func toUint(v interface{}) (uint64, bool) {
	switch v := v.(type) {
	case nil:
		return 0, true
	case uint64:
		return v, true
	case uint32:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case int:
		return uint64(v), true
	case int32:
		return uint64(v), true
	case int64:
		return uint64(v), true
	case Handle:
		return uint64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	if u, ok := toUint(v); ok {
		return float64(u), true
	}
	return 0, false
}

// elements returns the n elements of the slice v. Static arrays may hold
// fewer, the rest are zero.
func elements(v interface{}, n int, static bool) ([]interface{}, error) {
	out := make([]interface{}, n)
	if v == nil {
		if n > 0 && !static {
			return nil, errors.Wrapf(ErrValue, "null array of length %d", n)
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		if n == 1 {
			out[0] = v
			return out, nil
		}
		return nil, errors.Wrapf(ErrValue, "%T is not a slice", v)
	}
	if rv.Len() > n || (!static && rv.Len() != n) {
		return nil, errors.Wrapf(ErrValue, "%d elements for a length of %d", rv.Len(), n)
	}
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// structs returns the n structs held by v, the value of t.
func structs(t *types.VulkanType, v interface{}, n int) ([]*Struct, error) {
	if s, ok := v.(*Struct); ok && n == 1 {
		return []*Struct{s}, nil
	}
	if v != nil {
		if _, ok := v.([]*Struct); !ok {
			return nil, errors.Wrapf(ErrValue, "%v.%v: %T is not []*Struct", t.Parent, t.ParamName, v)
		}
	}
	list, err := elements(v, n, t.IsStaticArray())
	if err != nil {
		return nil, errors.Wrapf(err, "%v.%v", t.Parent, t.ParamName)
	}
	out := make([]*Struct, n)
	for i, s := range list {
		out[i], _ = s.(*Struct)
	}
	return out, nil
}
