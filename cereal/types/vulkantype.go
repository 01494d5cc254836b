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

package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gfxcodegen/registry"
)

// VulkanType is a struct member, command parameter or return value as the
// visitors see it.
type VulkanType struct {
	TypeName  string
	ParamName string
	// Parent is the struct or command that declares the value.
	Parent string

	IsConst                  bool
	PointerIndirectionLevels int
	PointerToConstPointer    bool

	// StaticArrExpr is the static array size, either a literal or an API
	// constant. StaticArrCount is its resolved value.
	StaticArrExpr  string
	StaticArrCount int

	// LenExpr is the length of the outermost pointer level and InnerLenExpr
	// the length of the next level (e.g. "null-terminated" for string
	// arrays). AltLen is the C form of a latexmath length.
	LenExpr      string
	InnerLenExpr string
	AltLen       string

	IsOptional bool
	// IsForceOptional is set for members treated as optional for backwards
	// compatibility.
	IsForceOptional bool

	FilterVar       string
	FilterVals      []string
	FilterFunc      string
	FilterOtherwise string
	Binds           map[string]string
	StreamFeature   string

	IsTransformed bool

	// Handle roles of command parameters.
	DispatchHandle               bool
	NonDispatchableHandleCreate  bool
	NonDispatchableHandleDestroy bool
}

func newVulkanType(parent string, m *registry.Member) *VulkanType {
	t := &VulkanType{
		TypeName:                 m.TypeName,
		ParamName:                m.Name,
		Parent:                   parent,
		IsConst:                  m.IsConst,
		PointerIndirectionLevels: m.PointerLevels,
		PointerToConstPointer:    m.PointerToConstPointer,
		StaticArrExpr:            m.StaticArr,
		AltLen:                   m.AltLen,
		IsOptional:               m.IsOptional(),
		FilterVar:                m.FilterVar,
		FilterVals:               m.FilterVals,
		FilterFunc:               m.FilterFunc,
		FilterOtherwise:          m.FilterOtherwise,
		Binds:                    m.Binds,
		StreamFeature:            m.StreamFeature,
		IsTransformed:            IsTransformedType(m.TypeName),
	}
	if parts := m.LenParts(); len(parts) > 0 {
		t.LenExpr = parts[0]
		if len(parts) > 1 {
			t.InnerLenExpr = parts[1]
		}
	}
	if IsForceOptional(parent, m.Name) {
		t.IsOptional, t.IsForceOptional = true, true
	}
	return t
}

// Copy returns a copy of t.
func (t *VulkanType) Copy() *VulkanType {
	out := *t
	return &out
}

// String returns the C declaration of t.
func (t *VulkanType) String() string { return t.Decl(true) }

// Decl returns the C declaration of t, optionally with its name.
func (t *VulkanType) Decl(withName bool) string {
	sb := strings.Builder{}
	if t.IsConst {
		sb.WriteString("const ")
	}
	sb.WriteString(t.TypeName)
	for i := 0; i < t.PointerIndirectionLevels; i++ {
		sb.WriteString("*")
		if t.PointerToConstPointer && i == 0 && t.PointerIndirectionLevels > 1 {
			sb.WriteString(" const")
		}
	}
	if withName && t.ParamName != "" {
		sb.WriteString(" ")
		sb.WriteString(t.ParamName)
	}
	if withName && t.StaticArrExpr != "" {
		fmt.Fprintf(&sb, "[%v]", t.StaticArrExpr)
	}
	return sb.String()
}

// IsPointer returns true if t has at least one level of indirection.
func (t *VulkanType) IsPointer() bool { return t.PointerIndirectionLevels > 0 }

// IsString returns true for a single null-terminated char pointer.
func (t *VulkanType) IsString() bool {
	return t.TypeName == "char" && t.PointerIndirectionLevels == 1 && t.StaticArrExpr == "" &&
		(t.LenExpr == "" || t.LenExpr == "null-terminated")
}

// IsArrayOfStrings returns true for "const char* const*" arrays.
func (t *VulkanType) IsArrayOfStrings() bool {
	return t.TypeName == "char" && t.PointerIndirectionLevels == 2 && t.PointerToConstPointer
}

// IsNextPointer returns true for the pNext extension chain pointer.
func (t *VulkanType) IsNextPointer() bool { return t.ParamName == "pNext" }

// IsVoidWithNoSize returns true for void pointers with no length.
func (t *VulkanType) IsVoidWithNoSize() bool {
	return t.TypeName == "void" && t.PointerIndirectionLevels == 1 && t.LenExpr == ""
}

// IsOptionalPointer returns true if t is a pointer that may be null. Static
// arrays are never null.
func (t *VulkanType) IsOptionalPointer() bool {
	return t.IsOptional && t.PointerIndirectionLevels > 0 && !t.IsNextPointer() && t.StaticArrExpr == ""
}

// IsStaticArray returns true if t is declared with a static size.
func (t *VulkanType) IsStaticArray() bool { return t.StaticArrExpr != "" }

// ForAddressAccess returns the type of a pointer to t's storage. Static
// arrays decay to a pointer to their first element.
func (t *VulkanType) ForAddressAccess() *VulkanType {
	out := t.Copy()
	out.PointerIndirectionLevels++
	out.StaticArrExpr, out.StaticArrCount = "", 0
	if t.StaticArrExpr != "" {
		out.LenExpr = t.StaticArrExpr
	}
	return out
}

// ForValueAccess returns the type pointed to by t. A pointee of void is
// accessed as bytes.
func (t *VulkanType) ForValueAccess() *VulkanType {
	out := t.Copy()
	if out.PointerIndirectionLevels > 0 {
		out.PointerIndirectionLevels--
	}
	out.StaticArrExpr, out.StaticArrCount = "", 0
	out.LenExpr, out.InnerLenExpr, out.AltLen = t.InnerLenExpr, "", ""
	out.IsOptional = false
	out.PointerToConstPointer = false
	if out.TypeName == "void" && out.PointerIndirectionLevels == 0 {
		out.TypeName = "uint8_t"
	}
	return out
}

// ForNonConstAccess returns t with constness removed.
func (t *VulkanType) ForNonConstAccess() *VulkanType {
	out := t.Copy()
	out.IsConst = false
	out.PointerToConstPointer = false
	return out
}

// StaticArrLen returns the static array size expression or the resolved
// count when the expression is a literal.
func (t *VulkanType) StaticArrLen() string {
	if t.StaticArrCount > 0 {
		if _, err := strconv.Atoi(t.StaticArrExpr); err == nil {
			return strconv.Itoa(t.StaticArrCount)
		}
	}
	return t.StaticArrExpr
}

// HasFilter returns true if the member is only streamed when its predicate
// holds.
func (t *VulkanType) HasFilter() bool { return t.FilterVar != "" || t.FilterFunc != "" }

// HasNullOptionalStringFeature returns true if t is an optional string whose
// nullability depends on the negotiated stream features.
func (t *VulkanType) HasNullOptionalStringFeature() bool {
	return t.StreamFeature == "NULL_OPTIONAL_STRINGS" && t.IsString() && t.IsOptional
}
