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

// Package types interprets the registry catalogue for the cereal visitors:
// struct layouts, command prototypes, handle roles and wire sizes.
package types

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/gfxcodegen/core/fault"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/core/text/cases"
	"github.com/google/gfxcodegen/registry"
	"github.com/pkg/errors"
)

const (
	// ErrUnknownType is returned when a name does not resolve to a type.
	ErrUnknownType = fault.Const("Unknown type")
	// ErrUnsupported is returned for declarations the visitors cannot stream.
	ErrUnsupported = fault.Const("Unsupported construct")
)

// EnvVar is a variable visible to the filter predicates of a struct.
type EnvVar struct {
	Name string
	// Type is the C type of the variable.
	Type string
	// StructMember is set for the struct's own members.
	StructMember bool
	// Body is the defining expression of a let variable.
	Body string
	// Free is set for variables bound by the enclosing struct.
	Free bool
}

// StructInfo is the layout of a struct or union.
type StructInfo struct {
	Name              string
	Members           []*VulkanType
	Env               map[string]*EnvVar
	EnvOrder          []string
	IsUnion           bool
	StructEnumExpr    string
	StructExtendsExpr []string
	ReturnedOnly      bool
	Type              *registry.TypeInfo
}

// Member returns the member with the given name.
func (s *StructInfo) Member(name string) *VulkanType {
	for _, m := range s.Members {
		if m.ParamName == name {
			return m
		}
	}
	return nil
}

// Feature returns the feature that first required the struct.
func (s *StructInfo) Feature() string { return s.Type.RequiredBy }

// Lets returns the let bound variables in declaration order.
func (s *StructInfo) Lets() []*EnvVar {
	out := []*EnvVar{}
	for _, n := range s.EnvOrder {
		if v := s.Env[n]; v.Body != "" {
			out = append(out, v)
		}
	}
	return out
}

// FreeVars returns the variables the enclosing struct must bind.
func (s *StructInfo) FreeVars() []*EnvVar {
	out := []*EnvVar{}
	for _, n := range s.EnvOrder {
		if v := s.Env[n]; v.Free {
			out = append(out, v)
		}
	}
	return out
}

// HasPNext returns true if the struct starts an extension chain.
func (s *StructInfo) HasPNext() bool { return s.Member("pNext") != nil }

// APIInfo is the prototype of a command.
type APIInfo struct {
	Name string
	// OrigName is the aliased command, or Name.
	OrigName   string
	RetType    *VulkanType
	Parameters []*VulkanType
	Cmd        *registry.CmdInfo
}

// Param returns the parameter with the given name.
func (a *APIInfo) Param(name string) *VulkanType {
	for _, p := range a.Parameters {
		if p.ParamName == name {
			return p
		}
	}
	return nil
}

// Feature returns the feature that first required the command.
func (a *APIInfo) Feature() string { return a.Cmd.RequiredBy }

// RetVarExpr returns the name of the local holding the return value.
func (a *APIInfo) RetVarExpr() string {
	return a.Name + "_" + a.RetType.TypeName + "_return"
}

// ReturnsVoid returns true if the command has no return value.
func (a *APIInfo) ReturnsVoid() bool { return a.RetType.TypeName == "void" }

// DeviceMemory returns the device memory parameters of the command.
func (a *APIInfo) DeviceMemory() (DeviceMemoryInfo, bool) {
	info, ok := DeviceMemoryCommands[a.Name]
	return info, ok
}

// Info is the interpreted registry.
type Info struct {
	Registry *registry.Registry
	Structs  map[string]*StructInfo
	APIs     map[string]*APIInfo

	sTypes  map[int64][]*StructInfo
	layouts map[string]layout
}

// New interprets every struct, union and command of reg.
func New(ctx context.Context, reg *registry.Registry) (*Info, error) {
	info := &Info{
		Registry: reg,
		Structs:  map[string]*StructInfo{},
		APIs:     map[string]*APIInfo{},
	}
	for _, name := range reg.TypeOrder {
		t := reg.Types[name]
		if !t.IsCompound() || t.Alias != "" {
			continue
		}
		s, err := info.newStruct(ctx, t)
		if err != nil {
			return nil, err
		}
		info.Structs[name] = s
	}
	for _, name := range reg.CommandOrder {
		info.APIs[name] = info.newAPI(reg.Commands[name])
	}
	return info, nil
}

// derivedSType names the sType of a struct whose sType member has no values
// attribute, as vendor registries sometimes omit it. The name follows the
// registry's own derivation and is only used if the enumerant exists.
func (i *Info) derivedSType(ctx context.Context, t *registry.TypeInfo) string {
	if len(t.Members) == 0 || t.Members[0].Name != "sType" || !strings.HasPrefix(t.Name, "Vk") {
		return ""
	}
	name := "VK_STRUCTURE_TYPE_" + cases.Vulkan(strings.TrimPrefix(t.Name, "Vk")).ToScreamingSnake()
	if _, err := i.Registry.EnumValue(name); err != nil {
		return ""
	}
	log.D(ctx, "%v: sType %v derived from the struct name", t.Name, name)
	return name
}

func (i *Info) newStruct(ctx context.Context, t *registry.TypeInfo) (*StructInfo, error) {
	s := &StructInfo{
		Name:              t.Name,
		Env:               map[string]*EnvVar{},
		IsUnion:           t.IsUnion(),
		StructEnumExpr:    t.StructureType(),
		StructExtendsExpr: t.StructExtends,
		ReturnedOnly:      t.ReturnedOnly,
		Type:              t,
	}
	addEnv := func(v *EnvVar) {
		if _, dup := s.Env[v.Name]; !dup {
			s.EnvOrder = append(s.EnvOrder, v.Name)
		}
		s.Env[v.Name] = v
	}
	for _, m := range t.Members {
		vt := newVulkanType(t.Name, m)
		if vt.StaticArrExpr != "" {
			n, err := i.resolveCount(vt.StaticArrExpr)
			if err != nil {
				return nil, errors.Wrapf(err, "%v.%v", t.Name, m.Name)
			}
			vt.StaticArrCount = n
		}
		s.Members = append(s.Members, vt)
		addEnv(&EnvVar{Name: m.Name, Type: vt.Decl(false), StructMember: true})
	}
	for _, e := range t.Env {
		addEnv(&EnvVar{Name: e.Name, Type: e.Type, Body: e.Body, Free: !e.Let})
	}
	if s.StructEnumExpr == "" {
		s.StructEnumExpr = i.derivedSType(ctx, t)
	}
	if len(s.FreeVars()) > 0 {
		log.D(ctx, "%v binds %d free variables", t.Name, len(s.FreeVars()))
	}
	return s, nil
}

func (i *Info) resolveCount(expr string) (int, error) {
	if n, err := strconv.Atoi(expr); err == nil {
		return n, nil
	}
	v, err := i.Registry.EnumValue(expr)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func (i *Info) newAPI(c *registry.CmdInfo) *APIInfo {
	a := &APIInfo{
		Name:     c.Name,
		OrigName: c.Name,
		RetType:  &VulkanType{TypeName: c.ReturnType, Parent: c.Name},
		Cmd:      c,
	}
	if c.Alias != "" {
		a.OrigName = c.Alias
	}
	for idx, p := range c.Params {
		vt := newVulkanType(c.Name, p)
		if vt.StaticArrExpr != "" {
			vt.StaticArrCount, _ = i.resolveCount(vt.StaticArrExpr)
		}
		if idx == 0 && i.IsDispatchableHandleType(vt.TypeName) && !vt.IsPointer() {
			vt.DispatchHandle = true
		}
		if i.IsNonDispatchableHandleType(vt.TypeName) {
			h := HandleInfoFor(i.Resolve(vt.TypeName))
			if vt.IsPointer() && !vt.IsConst && contains(h.Create, a.OrigName) {
				vt.NonDispatchableHandleCreate = true
			}
			if contains(h.Destroy, a.OrigName) {
				vt.NonDispatchableHandleDestroy = true
			}
		}
		a.Parameters = append(a.Parameters, vt)
	}
	return a
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

// Resolve follows type aliases.
func (i *Info) Resolve(name string) string {
	for n := 0; n < 8; n++ {
		t, ok := i.Registry.Types[name]
		if !ok || t.Alias == "" {
			return name
		}
		name = t.Alias
	}
	return name
}

// Category returns the category of the named type, following aliases.
func (i *Info) Category(name string) registry.Category {
	if t, ok := i.Registry.Types[i.Resolve(name)]; ok {
		return t.Category
	}
	return registry.Primitive
}

// Struct returns the layout of a struct or union, following aliases.
func (i *Info) Struct(name string) *StructInfo { return i.Structs[i.Resolve(name)] }

// Command returns the prototype of a command.
func (i *Info) Command(name string) *APIInfo { return i.APIs[name] }

// IsCompoundType returns true for structs and unions.
func (i *Info) IsCompoundType(name string) bool {
	c := i.Category(name)
	return c == registry.Struct || c == registry.Union
}

// IsHandleType returns true for dispatchable and non-dispatchable handles.
func (i *Info) IsHandleType(name string) bool { return i.Category(name) == registry.Handle }

// IsDispatchableHandleType returns true for handles with a dispatch table.
func (i *Info) IsDispatchableHandleType(name string) bool {
	t, ok := i.Registry.Types[i.Resolve(name)]
	return ok && t.IsDispatchableHandle()
}

// IsNonDispatchableHandleType returns true for opaque 64-bit handles.
func (i *Info) IsNonDispatchableHandleType(name string) bool {
	return i.IsHandleType(name) && !i.IsDispatchableHandleType(name)
}

// IsNonAbiPortableType returns true for types whose size differs between
// guest and host ABIs.
func (i *Info) IsNonAbiPortableType(name string) bool {
	if nonAbiPortable[name] {
		return true
	}
	switch i.Category(name) {
	case registry.Handle, registry.FuncPointer:
		return true
	}
	return false
}

// PrimEncodingSize returns the wire size of a primitive type, or 0 for
// compound and unknown types.
func (i *Info) PrimEncodingSize(name string) int {
	name = i.Resolve(name)
	if size, ok := primitiveSizes[name]; ok {
		return size
	}
	t, ok := i.Registry.Types[name]
	if !ok {
		return 0
	}
	switch t.Category {
	case registry.Enum:
		return 4
	case registry.Handle, registry.FuncPointer:
		return 8
	case registry.BaseType, registry.Bitmask:
		if t.Underlying == "" || t.Underlying == name {
			return 4
		}
		return i.PrimEncodingSize(t.Underlying)
	}
	return 0
}

// ExtensionStructs returns the structs that extend other structs, in
// registry order.
func (i *Info) ExtensionStructs() []*StructInfo {
	out := []*StructInfo{}
	for _, name := range i.Registry.TypeOrder {
		if s, ok := i.Structs[name]; ok && len(s.StructExtendsExpr) > 0 && s.StructEnumExpr != "" {
			out = append(out, s)
		}
	}
	return out
}

// StructForSType returns the struct an extension sType denotes in a chain
// rooted at a struct of type rootType. Shared sType values are resolved by
// the override table, then by the structextends lists.
func (i *Info) StructForSType(rootType, sType int64) (*StructInfo, bool) {
	if i.sTypes == nil {
		i.sTypes = map[int64][]*StructInfo{}
		for _, s := range i.ExtensionStructs() {
			if v, err := i.Registry.EnumValue(s.StructEnumExpr); err == nil {
				i.sTypes[v] = append(i.sTypes[v], s)
			}
		}
	}
	candidates := i.sTypes[sType]
	switch len(candidates) {
	case 0:
		return nil, false
	case 1:
		return candidates[0], true
	}
	def := candidates[0]
	for _, c := range candidates {
		overrides, ok := RootTypeOverrides[c.StructEnumExpr]
		if !ok {
			continue
		}
		def = c
		for _, o := range overrides {
			if v, err := i.Registry.EnumValue(o.RootType); err == nil && v == rootType {
				if s := i.Struct(o.Struct); s != nil {
					return s, true
				}
			}
		}
	}
	for _, c := range candidates {
		for _, ext := range c.StructExtendsExpr {
			if root := i.Struct(ext); root != nil && root.StructEnumExpr != "" {
				if v, err := i.Registry.EnumValue(root.StructEnumExpr); err == nil && v == rootType {
					return c, true
				}
			}
		}
	}
	return def, true
}
