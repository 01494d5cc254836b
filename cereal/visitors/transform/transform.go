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

// Package transform emits the functions that convert structs between their
// guest and host forms. Types listed as transformed call hand written hooks
// on the tracker; device memory attributes go through one remap entry point.
package transform

import (
	"fmt"
	"strings"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/iterate"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors"
	"github.com/google/gfxcodegen/cereal/visitors/marshaling"
)

// Direction is the way a transform converts.
type Direction string

const (
	ToHost   = Direction("tohost")
	FromHost = Direction("fromhost")
)

// Directions are emitted in this order.
var Directions = []Direction{ToHost, FromHost}

// Trackers own the transform hooks on each side.
const (
	GuestTracker = "ResourceTracker"
	HostTracker  = "VkDecoderGlobalState"
)

const (
	trackerVar = "resourceTracker"
	structVar  = "toTransform"
)

// FuncName returns the name of the function transforming the named struct.
func FuncName(d Direction, name string) string {
	return fmt.Sprintf("transform_%s_%s", d, name)
}

// ExtensionFunc returns the name of the chain transform.
func ExtensionFunc(d Direction) string { return FuncName(d, "extension_struct") }

// Emitter emits both directions for a tracker type.
type Emitter struct {
	Info    *types.Info
	Tracker string
}

// New returns the wrapper emitting transform_ functions into m.
func New(info *types.Info, m *emit.Module, tracker string) *visitors.StructWrapper {
	return visitors.NewStructWrapper(info, m, Emitter{info, tracker})
}

func (e Emitter) trackerParam() emit.Param {
	return emit.Param{Type: e.Tracker + "*", Name: trackerVar}
}

// Proto returns the prototype of the transform of the named struct.
func (e Emitter) Proto(d Direction, name string) string {
	return emit.FuncProto("void", FuncName(d, name),
		e.trackerParam(),
		emit.Param{Type: "VkStructureType", Name: "rootType"},
		emit.Param{Type: name + "*", Name: structVar})
}

func (e Emitter) extensionProto(d Direction) string {
	return emit.FuncProto("void", ExtensionFunc(d),
		e.trackerParam(),
		emit.Param{Type: "VkStructureType", Name: "rootType"},
		emit.Param{Type: "void*", Name: "structExtension_out"})
}

func (e Emitter) Prefixes() []string {
	out := []string{}
	for _, d := range Directions {
		out = append(out, "transform_"+string(d))
	}
	return out
}

func (e Emitter) Protos(s *types.StructInfo) []string {
	out := []string{}
	for _, d := range Directions {
		out = append(out, e.Proto(d, s.Name))
	}
	return out
}

func (e Emitter) ExtensionProtos() []string {
	out := []string{}
	for _, d := range Directions {
		out = append(out, e.extensionProto(d))
	}
	return out
}

func (e Emitter) Struct(g *emit.CodeGen, s *types.StructInfo) error {
	for _, d := range Directions {
		if err := e.structFunc(g, d, s); err != nil {
			return err
		}
	}
	return nil
}

func (e Emitter) structFunc(g *emit.CodeGen, d Direction, s *types.StructInfo) error {
	g.BeginFuncDef(e.Proto(d, s.Name))
	g.Stmt("(void)%s", trackerVar)
	g.Stmt("(void)rootType")
	g.Stmt("(void)%s", structVar)
	if types.IsTransformedType(s.Name) {
		g.Stmt("%s->transformImpl_%s_%s(%s, 1)", trackerVar, s.Name, d, structVar)
	}
	if dm, ok := types.DeviceMemoryStructs[s.Name]; ok {
		DeviceMemory(g, d, trackerVar, dm, func(member string) string {
			return emit.AddressOf(emit.Access(structVar, member))
		})
	}
	w := &walker{info: e.Info, g: g, dir: d, scope: emit.Scope{Var: structVar, Members: s.Members}}
	for _, m := range marshaling.WireOrder(s) {
		if _, err := iterate.Iterate(e.Info, m, w); err != nil {
			return err
		}
		if m.ParamName == "sType" && s.HasPNext() {
			g.BeginIf("rootType == %s", visitors.MaxEnumRoot)
			g.Stmt("rootType = %s", emit.Access(structVar, "sType"))
			g.EndIf()
		}
	}
	g.EndFuncDef()
	return nil
}

func (e Emitter) Extension(g *emit.CodeGen, ext *visitors.Extensions) {
	for _, d := range Directions {
		g.BeginFuncDef(e.extensionProto(d))
		g.BeginIf("!structExtension_out")
		g.Stmt("return")
		g.EndIf()
		g.Stmt("uint32_t structType = (uint32_t)goldfish_vk_struct_type(structExtension_out)")
		ext.Switch(g, "structType", "rootType", func(s *types.StructInfo) {
			g.FuncCall("", FuncName(d, s.Name), trackerVar, "rootType", visitors.ExtensionCast(s, "structExtension_out", false))
		}, func() {
			g.Stmt("return")
		})
		g.EndFuncDef()
	}
}

// deviceMemoryArgs are the remap arguments in order, with their C types.
var deviceMemoryArgs = []struct {
	field string
	typ   string
}{
	{"handle", "VkDeviceMemory"},
	{"offset", "VkDeviceSize"},
	{"size", "VkDeviceSize"},
	{"typeIndex", "uint32_t"},
	{"typeBits", "uint32_t"},
}

// DeviceMemory emits the call remapping the device memory attributes of
// dm. addr returns the address of the member or parameter holding one.
func DeviceMemory(g *emit.CodeGen, d Direction, tracker string, dm types.DeviceMemoryInfo, addr func(string) string) {
	present := map[string]string{}
	for _, f := range dm.Fields() {
		present[f[0]] = f[1]
	}
	args := []string{}
	for _, a := range deviceMemoryArgs {
		if member, ok := present[a.field]; ok {
			args = append(args, fmt.Sprintf("(%s*)%s", a.typ, addr(member)), "1")
		} else {
			args = append(args, fmt.Sprintf("(%s*)nullptr", a.typ), "0")
		}
	}
	g.Stmt("%s->deviceMemoryTransform_%s(%s)", tracker, d, strings.Join(args, ", "))
}

// walker descends into nested structs and the extension chain.
type walker struct {
	iterate.Base
	info  *types.Info
	g     *emit.CodeGen
	dir   Direction
	scope emit.Scope
}

func (w *walker) OnStructExtension(t *types.VulkanType) error {
	lv := w.scope.Access(t.ParamName)
	w.g.BeginIf("%s", lv)
	w.g.FuncCall("", ExtensionFunc(w.dir), trackerVar, "rootType", fmt.Sprintf("(void*)(%s)", lv))
	w.g.EndIf()
	return nil
}

func (w *walker) OnCompoundType(t *types.VulkanType) error {
	name := w.info.Resolve(t.TypeName)
	return visitors.EachElement(w.g, t, w.scope, func(ptr string) {
		w.g.FuncCall("", FuncName(w.dir, name), trackerVar, "rootType", fmt.Sprintf("(%s*)(%s)", name, ptr))
	})
}
