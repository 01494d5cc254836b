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

// Package manifest describes the output of a generation run: every file
// written and the opcode of every command. Manifests of two protocol
// revisions can be compared with Diff.
package manifest

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/google/gfxcodegen/cereal"
	"github.com/google/gfxcodegen/core/fault"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrManifest is returned for a manifest missing a required field.
const ErrManifest = fault.Const("Malformed manifest")

const (
	toolKey    = "tool"
	variantKey = "variant"
	filesKey   = "files"
	opcodesKey = "opcodes"
)

func str(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func num(n float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: n}}
}

func obj(fields map[string]*structpb.Value) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StructValue{StructValue: &structpb.Struct{Fields: fields}}}
}

// Build returns the manifest of r.
func Build(r *cereal.Result) *structpb.Struct {
	files := make([]*structpb.Value, len(r.Files))
	for i, f := range r.Files {
		files[i] = obj(map[string]*structpb.Value{
			"path":      str(f.Path),
			"module":    str(f.Module),
			"functions": num(float64(f.Functions)),
			"bytes":     num(float64(len(f.Content))),
		})
	}
	ops := map[string]*structpb.Value{}
	for _, name := range r.Opcodes.Names {
		op, _ := r.Opcodes.Opcode(name)
		ops[name] = num(float64(op))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		toolKey:    str(cereal.Tool),
		variantKey: str(string(r.Variant)),
		filesKey:   {Kind: &structpb.Value_ListValue{ListValue: &structpb.ListValue{Values: files}}},
		opcodesKey: obj(ops),
	}}
}

// WriteJSON writes m as indented JSON.
func WriteJSON(w io.Writer, m *structpb.Struct) error {
	marshaler := jsonpb.Marshaler{Indent: "  "}
	return marshaler.Marshal(w, m)
}

// ReadJSON reads a manifest written by WriteJSON.
func ReadJSON(r io.Reader) (*structpb.Struct, error) {
	m := &structpb.Struct{}
	if err := jsonpb.Unmarshal(r, m); err != nil {
		return nil, errors.Wrap(err, "Reading JSON manifest")
	}
	return m, nil
}

// WriteProto writes m in the binary proto encoding.
func WriteProto(w io.Writer, m *structpb.Struct) error {
	data, err := proto.Marshal(m)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}

// ReadProto reads a manifest written by WriteProto.
func ReadProto(r io.Reader) (*structpb.Struct, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m := &structpb.Struct{}
	if err := proto.Unmarshal(data, m); err != nil {
		return nil, errors.Wrap(err, "Reading proto manifest")
	}
	return m, nil
}

// Opcodes returns the command to opcode map of m.
func Opcodes(m *structpb.Struct) (map[string]uint32, error) {
	v, ok := m.Fields[opcodesKey]
	if !ok || v.GetStructValue() == nil {
		return nil, errors.Wrapf(ErrManifest, "No %q object", opcodesKey)
	}
	out := map[string]uint32{}
	for name, op := range v.GetStructValue().Fields {
		if _, ok := op.Kind.(*structpb.Value_NumberValue); !ok {
			return nil, errors.Wrapf(ErrManifest, "Opcode of %s is not a number", name)
		}
		out[name] = uint32(op.GetNumberValue())
	}
	return out, nil
}

// Diff lists the protocol changes from before to after, one line per command,
// sorted by command name. Renumbered commands break compatibility with
// older peers.
func Diff(before, after map[string]uint32) []string {
	names := maps.Keys(before)
	for name := range after {
		if _, ok := before[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	out := []string{}
	for _, name := range names {
		a, inOld := before[name]
		b, inNew := after[name]
		switch {
		case !inOld:
			out = append(out, fmt.Sprintf("+ %s %d", name, b))
		case !inNew:
			out = append(out, fmt.Sprintf("- %s %d", name, a))
		case a != b:
			out = append(out, fmt.Sprintf("! %s %d -> %d", name, a, b))
		}
	}
	return out
}
