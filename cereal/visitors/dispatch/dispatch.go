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

// Package dispatch emits the VulkanDispatch table of driver entry points,
// its loaders and the lookup of an entry point by opcode.
package dispatch

import (
	"context"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/core/log"
)

// Level is the object an entry point is resolved through.
type Level int

const (
	// Global entry points are only reachable through the loader.
	Global Level = iota
	// Instance entry points take an instance or physical device.
	Instance
	// Device entry points take a device, queue or command buffer.
	Device
)

// LevelOf returns the level of the command.
func LevelOf(api *types.APIInfo) Level {
	if len(api.Parameters) == 0 {
		return Global
	}
	switch api.Parameters[0].TypeName {
	case "VkInstance", "VkPhysicalDevice":
		return Instance
	case "VkDevice", "VkQueue", "VkCommandBuffer":
		return Device
	}
	return Global
}

const (
	lookupProto       = "PFN_vkVoidFunction vulkan_dispatch_lookup(\n    const VulkanDispatch* vk,\n    uint32_t opcode)"
	systemLoaderProto = "void init_vulkan_dispatch_from_system_loader(\n    DlOpenFunc dlOpenFunc,\n    DlSymFunc dlSymFunc,\n    VulkanDispatch* out)"
	fromInstanceProto = "void init_vulkan_dispatch_from_instance(\n    VulkanDispatch* vk,\n    VkInstance instance,\n    VulkanDispatch* out)"
	fromDeviceProto   = "void init_vulkan_dispatch_from_device(\n    VulkanDispatch* vk,\n    VkDevice device,\n    VulkanDispatch* out)"
)

type entry struct {
	name    string
	feature string
	level   Level
}

// Wrapper collects the commands and emits the table once all are known.
type Wrapper struct {
	emit.BaseWrapper
	Opcodes *opcodes.Assignment

	feature string
	entries []entry
}

// New returns a wrapper emitting the dispatch table into m.
func New(m *emit.Module, ops *opcodes.Assignment) *Wrapper {
	return &Wrapper{BaseWrapper: emit.BaseWrapper{Module: m}, Opcodes: ops}
}

func (w *Wrapper) OnBeginFeature(ctx context.Context, name string, enabled bool) error {
	w.feature = name
	return w.BaseWrapper.OnBeginFeature(ctx, name, enabled)
}

func (w *Wrapper) OnGenCmd(ctx context.Context, api *types.APIInfo, name, alias string) error {
	if !w.Emit {
		return nil
	}
	w.entries = append(w.entries, entry{name, w.feature, LevelOf(api)})
	return nil
}

// each calls f for every entry matching keep, grouped under the feature
// guards.
func (w *Wrapper) each(g *emit.CodeGen, keep func(entry) bool, f func(entry)) {
	open := ""
	for _, e := range w.entries {
		if !keep(e) {
			continue
		}
		if e.feature != open {
			if open != "" {
				g.EndIfdef()
			}
			if e.feature != "" {
				g.BeginIfdef(e.feature)
			}
			open = e.feature
		}
		f(e)
	}
	if open != "" {
		g.EndIfdef()
	}
}

func all(entry) bool { return true }

func (w *Wrapper) OnEnd(ctx context.Context) error {
	w.Module.EndFeature()
	g := emit.New()
	g.Line("struct VulkanDispatch")
	g.BeginBlock()
	w.each(g, all, func(e entry) {
		g.Stmt("PFN_%s %s", e.name, e.name)
	})
	g.EndBlockWith(";")
	g.Blank()
	for _, p := range []string{systemLoaderProto, fromInstanceProto, fromDeviceProto, lookupProto} {
		g.FuncDecl(p)
	}
	w.Module.AppendHeader(g.Swap())

	g.BeginFuncDef(systemLoaderProto)
	g.Stmt("void* lib = dlOpenFunc()")
	g.BeginIf("!lib")
	g.Stmt("return")
	g.EndIf()
	w.each(g, all, func(e entry) {
		g.Stmt(`out->%s = (PFN_%s)dlSymFunc(lib, "%s")`, e.name, e.name, e.name)
	})
	g.EndFuncDef()

	g.BeginFuncDef(fromInstanceProto)
	g.BeginIf("!vk->vkGetInstanceProcAddr")
	g.Stmt("return")
	g.EndIf()
	w.each(g, func(e entry) bool { return e.level != Global }, func(e entry) {
		g.Stmt(`out->%s = (PFN_%s)vk->vkGetInstanceProcAddr(instance, "%s")`, e.name, e.name, e.name)
	})
	g.EndFuncDef()

	g.BeginFuncDef(fromDeviceProto)
	g.BeginIf("!vk->vkGetDeviceProcAddr")
	g.Stmt("return")
	g.EndIf()
	w.each(g, func(e entry) bool { return e.level == Device }, func(e entry) {
		g.Stmt(`out->%s = (PFN_%s)vk->vkGetDeviceProcAddr(device, "%s")`, e.name, e.name, e.name)
	})
	g.EndFuncDef()

	g.BeginFuncDef(lookupProto)
	g.BeginSwitch("opcode")
	w.each(g, func(e entry) bool {
		_, ok := w.Opcodes.Opcode(e.name)
		return ok
	}, func(e entry) {
		g.SwitchCaseReturn("OP_"+e.name, "(PFN_vkVoidFunction)vk->"+e.name)
	})
	g.Line("default: return nullptr;")
	g.EndSwitch()
	g.EndFuncDef()
	w.Module.AppendImpl(g.Swap())
	for i := 0; i < 4; i++ {
		w.Module.AddFunction()
	}
	log.D(ctx, "Dispatch table of %d entry points", len(w.entries))
	return nil
}
