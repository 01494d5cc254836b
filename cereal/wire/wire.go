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

// Package wire is a Go model of the Vulkan stream protocol. It interprets
// the same type model the code generators emit from, so the layout of every
// struct and command can be exercised without a C++ toolchain.
//
// Values are held in Structs keyed by member name:
//
//	integers, enums, bitmasks   uint64
//	float, double               float32, float64
//	handles                     Handle
//	pointer sized values        uint64
//	strings, string arrays      string, []string
//	byte arrays and blobs       []byte
//	other arrays                []uint64, []float32, []Handle, []*Struct
//	structs and pNext           *Struct
//
// A pointer without a length holds its single pointee. A null pointer is a
// nil value.
package wire

import (
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/core/fault"
)

const (
	// ErrCorrupt is returned for input that does not decode.
	ErrCorrupt = fault.Const("Corrupt stream")
	// ErrValue is returned for a value of the wrong Go type for its member.
	ErrValue = fault.Const("Bad value")
	// ErrOverflow is returned when a reserved buffer is too small.
	ErrOverflow = fault.Const("Reserved buffer overflow")
	// ErrNotEqual is returned by Equal for the first differing member.
	ErrNotEqual = fault.Const("Values differ")
	// ErrUnknown is returned for types and commands missing from the model.
	ErrUnknown = fault.Const("Unknown type or command")
)

// MaxEnumRoot is the rootType of a chain whose root is not known yet.
const MaxEnumRoot = 0x7FFFFFFF

// Handle is the 64-bit id a handle travels as.
type Handle uint64

// Features are the negotiated VULKAN_STREAM_FEATURE bits.
type Features uint32

// Has returns true if every bit of f is set in fs.
func (fs Features) Has(f Features) bool { return fs&f == f }

// The feature bits, as negotiated by the runtime.
const (
	NullOptionalStrings     = Features(types.FeatureNullOptionalStrings)
	IgnoredHandles          = Features(types.FeatureIgnoredHandles)
	ShaderFloat16Int8       = Features(types.FeatureShaderFloat16Int8)
	QueueSubmitWithCommands = Features(types.FeatureQueueSubmitWithCommands)
)

// Struct is the value of a struct, a union or the parameters of a command.
type Struct struct {
	Type   string
	Fields map[string]interface{}
}

// NewStruct returns a struct of type typ holding fields.
func NewStruct(typ string, fields map[string]interface{}) *Struct {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return &Struct{Type: typ, Fields: fields}
}

// Field returns the named member for filter getfield expressions. Unset
// members read as zero.
func (s *Struct) Field(name string) (interface{}, bool) {
	if s == nil {
		return nil, false
	}
	return scalar(s.Fields[name]), true
}

// Get returns the named member, or nil.
func (s *Struct) Get(name string) interface{} {
	if s == nil {
		return nil
	}
	return s.Fields[name]
}

// Set assigns the named member.
func (s *Struct) Set(name string, v interface{}) { s.Fields[name] = v }

// Next returns the next struct of the extension chain, or nil.
func (s *Struct) Next() *Struct {
	next, _ := s.Get("pNext").(*Struct)
	return next
}
