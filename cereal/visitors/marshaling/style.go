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
)

// Style is the calling convention of the functions of one streaming
// direction.
type Style struct {
	Dir emit.Direction
	// Prefix is prepended to the type name to form function names.
	Prefix string
	// Stream is the first parameter of every function.
	Stream emit.Param
	// StructVar is the name of the struct pointer parameter.
	StructVar string
	// Const is set when the struct pointer is read only.
	Const bool
	// Cursor is the trailing parameter of the reserved and counting
	// directions.
	Cursor *emit.Param
	// FeatureBits is the expression of the negotiated stream features.
	FeatureBits string
}

var (
	// Marshal writes through a VulkanStream.
	Marshal = Style{
		Dir:         emit.Write,
		Prefix:      "marshal",
		Stream:      emit.Param{Type: "VulkanStream*", Name: "vkStream"},
		StructVar:   "forMarshaling",
		Const:       true,
		FeatureBits: "vkStream->getFeatureBits()",
	}
	// Unmarshal reads from a VulkanStream.
	Unmarshal = Style{
		Dir:         emit.Read,
		Prefix:      "unmarshal",
		Stream:      emit.Param{Type: "VulkanStream*", Name: "vkStream"},
		StructVar:   "forUnmarshaling",
		FeatureBits: "vkStream->getFeatureBits()",
	}
	// ReservedMarshal writes into a buffer sized by Count.
	ReservedMarshal = Style{
		Dir:         emit.ReservedWrite,
		Prefix:      "reservedmarshal",
		Stream:      emit.Param{Type: "VulkanStreamGuest*", Name: "vkStream"},
		StructVar:   "forMarshaling",
		Const:       true,
		Cursor:      &emit.Param{Type: "uint8_t**", Name: "ptr"},
		FeatureBits: "vkStream->getFeatureBits()",
	}
	// ReservedUnmarshal reads from a received buffer.
	ReservedUnmarshal = Style{
		Dir:         emit.ReservedRead,
		Prefix:      "reservedunmarshal",
		Stream:      emit.Param{Type: "VulkanStream*", Name: "vkStream"},
		StructVar:   "forUnmarshaling",
		Cursor:      &emit.Param{Type: "uint8_t**", Name: "ptr"},
		FeatureBits: "vkStream->getFeatureBits()",
	}
	// Count adds up the bytes Marshal would write.
	Count = Style{
		Dir:         emit.Count,
		Prefix:      "count",
		Stream:      emit.Param{Type: "uint32_t", Name: "featureBits"},
		StructVar:   "toCount",
		Const:       true,
		Cursor:      &emit.Param{Type: "size_t*", Name: "count"},
		FeatureBits: "featureBits",
	}
)

// FuncName returns the name of the function for typeName.
func (s Style) FuncName(typeName string) string { return s.Prefix + "_" + typeName }

// ExtensionFunc returns the name of the pNext chain function.
func (s Style) ExtensionFunc() string { return s.Prefix + "_extension_struct" }

// StreamOps returns the primitive streamer of the direction.
func (s Style) StreamOps() emit.Stream {
	switch s.Dir {
	case emit.ReservedWrite, emit.ReservedRead:
		return emit.Stream{Dir: s.Dir, Var: s.Cursor.Name, Alloc: s.Stream.Name}
	case emit.Count:
		return emit.Stream{Dir: s.Dir, Var: s.Cursor.Name}
	}
	return emit.Stream{Dir: s.Dir, Var: s.Stream.Name, Alloc: s.Stream.Name}
}

// IsRead returns true for the decoding directions.
func (s Style) IsRead() bool { return s.StreamOps().IsRead() }

// PtrType returns the type of the struct pointer parameter.
func (s Style) PtrType(typeName string) string {
	if s.Const {
		return "const " + typeName + "*"
	}
	return typeName + "*"
}

// Params returns the parameters of the function for typeName, followed by
// the free variables of its struct.
func (s Style) Params(typeName string, free []emit.Param) []emit.Param {
	out := []emit.Param{
		s.Stream,
		{Type: "VkStructureType", Name: "rootType"},
		{Type: s.PtrType(typeName), Name: s.StructVar},
	}
	if s.Cursor != nil {
		out = append(out, *s.Cursor)
	}
	return append(out, free...)
}

// Proto returns the prototype of the function for typeName.
func (s Style) Proto(typeName string, free []emit.Param) string {
	return emit.FuncProto("void", s.FuncName(typeName), s.Params(typeName, free)...)
}

// CallArgs returns the arguments of a call to the function for typeName on
// the pointer expression ptr, in a chain rooted at root.
func (s Style) CallArgs(typeName, root, ptr string, bound ...string) []string {
	out := []string{s.Stream.Name, root, fmt.Sprintf("(%s)(%s)", s.PtrType(typeName), ptr)}
	if s.Cursor != nil {
		out = append(out, s.Cursor.Name)
	}
	return append(out, bound...)
}
