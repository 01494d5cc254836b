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

// Package snapshot emits VkDecoderSnapshot, which records the raw trace of
// every command that creates, destroys or modifies a handle so the host
// state can be rebuilt by replay.
package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/commands"
	"github.com/google/gfxcodegen/core/log"
)

// prefix are the parameters the decoder passes ahead of the command's own.
var prefix = []emit.Param{
	{Type: "const uint8_t*", Name: "snapshotTraceBegin"},
	{Type: "size_t", Name: "snapshotTraceBytes"},
	{Type: "android::base::BumpPool*", Name: "pool"},
}

// Modifies maps the commands that change a handle's state, other than by
// recording into a command buffer, to the parameter holding it.
var Modifies = map[string]string{
	"vkBindBufferMemory":   "buffer",
	"vkBindImageMemory":    "image",
	"vkBeginCommandBuffer": "commandBuffer",
	"vkEndCommandBuffer":   "commandBuffer",
	"vkResetCommandBuffer": "commandBuffer",
}

// Resets are the commands that discard the earlier modifications of their
// handle.
var Resets = map[string]bool{
	"vkBeginCommandBuffer": true,
	"vkResetCommandBuffer": true,
}

// Modified returns the parameter whose handle api modifies, or nil.
func Modified(api *types.APIInfo) *types.VulkanType {
	name, ok := Modifies[api.OrigName]
	if !ok && commands.UsesCommandBuffer(api) && strings.HasPrefix(api.OrigName, "vkCmd") {
		name, ok = api.Parameters[0].ParamName, true
	}
	if !ok {
		return nil
	}
	for _, p := range api.Parameters {
		if p.ParamName == name {
			return p
		}
	}
	return nil
}

// Params returns the parameters of the snapshot method of api.
func Params(api *types.APIInfo) []emit.Param {
	out := append([]emit.Param{}, prefix...)
	if !api.ReturnsVoid() {
		out = append(out, emit.Param{Type: api.RetType.TypeName, Name: "input_result"})
	}
	return append(out, emit.ParamsOf(api.Parameters)...)
}

// Wrapper emits one snapshot method per command.
type Wrapper struct {
	emit.BaseWrapper
	Info    *types.Info
	Opcodes *opcodes.Assignment

	feature    string
	forwarders []commands.Case
}

// New returns a wrapper emitting the snapshot into m.
func New(info *types.Info, m *emit.Module, ops *opcodes.Assignment) *Wrapper {
	return &Wrapper{BaseWrapper: emit.BaseWrapper{Module: m}, Info: info, Opcodes: ops}
}

func indent(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "    " + l
		}
	}
	return strings.Join(lines, "\n")
}

func (w *Wrapper) OnBegin(ctx context.Context) error {
	w.Module.AppendHeader("class VkDecoderSnapshot {\n   public:\n" +
		"    VkDecoderSnapshot();\n" +
		"    ~VkDecoderSnapshot();\n\n" +
		"    void save(android::base::Stream* stream);\n" +
		"    void load(android::base::Stream* stream, GfxApiLogger& gfx_logger,\n" +
		"              HealthMonitor<>* healthMonitor);\n" +
		"    void createExtraHandlesForNextApi(const uint64_t* created, uint32_t count);\n\n")
	w.Module.AppendImpl("class VkDecoderSnapshot::Impl {\n   public:\n    Impl() {}\n\n" +
		"    void save(android::base::Stream* stream) { mReconstruction.save(stream); }\n\n" +
		"    void load(android::base::Stream* stream, GfxApiLogger& gfx_logger,\n" +
		"              HealthMonitor<>* healthMonitor) {\n" +
		"        mReconstruction.load(stream, gfx_logger, healthMonitor);\n" +
		"    }\n\n" +
		"    void createExtraHandlesForNextApi(const uint64_t* created, uint32_t count) {\n" +
		"        mReconstruction.createExtraHandlesForNextApi(created, count);\n" +
		"    }\n\n")
	return nil
}

func (w *Wrapper) OnBeginFeature(ctx context.Context, name string, enabled bool) error {
	w.feature = name
	return w.BaseWrapper.OnBeginFeature(ctx, name, enabled)
}

func (w *Wrapper) OnGenCmd(ctx context.Context, api *types.APIInfo, name, alias string) error {
	if !w.Emit {
		return nil
	}
	if _, ok := w.Opcodes.Opcode(name); !ok {
		return log.Errf(ctx, opcodes.ErrRange, "No opcode assigned to %v", name)
	}
	params := Params(api)
	w.Module.AppendHeader(indent(emit.FuncProto("void", api.Name, params...)) + ";\n")

	g := emit.New()
	g.BeginFuncDef(emit.FuncProto("void", api.Name, params...))
	if err := w.body(g, api); err != nil {
		return log.Errf(ctx, err, "Snapshot of %v", name)
	}
	g.EndFuncDef()
	w.Module.AppendImpl(indent(g.Swap()))

	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	g.BeginFuncDef(emit.FuncProto("void", "VkDecoderSnapshot::"+api.Name, params...))
	g.FuncCall("", "mImpl->"+api.Name, names...)
	g.EndFuncDef()
	w.forwarders = append(w.forwarders, commands.Case{Feature: w.feature, Text: g.String()})
	w.Module.AddFunction()
	return nil
}

// trace records the command's bytes as a new api held by apiHandle.
func trace(g *emit.CodeGen, api *types.APIInfo) {
	g.Stmt("auto apiHandle = mReconstruction.createApiInfo()")
	g.Stmt("auto apiInfo = mReconstruction.getApiInfo(apiHandle)")
	g.Stmt("mReconstruction.setApiTrace(apiInfo, OP_%s, snapshotTraceBegin, snapshotTraceBytes)", api.Name)
}

func (w *Wrapper) body(g *emit.CodeGen, api *types.APIInfo) error {
	if created := commands.CreatedHandle(w.Info, api); created != nil {
		return w.create(g, api, created)
	}
	if destroyed, n, err := w.destroyed(api); err != nil {
		return err
	} else if destroyed != nil {
		handles := fmt.Sprintf("(const uint64_t*)(%s)", destroyed.ParamName)
		if !destroyed.IsPointer() {
			handles = fmt.Sprintf("(const uint64_t*)(&%s)", destroyed.ParamName)
		}
		g.Stmt("android::base::AutoLock lock(mLock)")
		g.Line("// %s destroy", destroyed.ParamName)
		g.Stmt("mReconstruction.removeHandles(%s, %s)", handles, n)
		return nil
	}
	if modified := Modified(api); modified != nil {
		handles := fmt.Sprintf("(const uint64_t*)(&%s)", modified.ParamName)
		g.Stmt("android::base::AutoLock lock(mLock)")
		g.Line("// %s modify", modified.ParamName)
		if Resets[api.OrigName] {
			g.Stmt("mReconstruction.forEachHandleClearModifyApi(%s, 1)", handles)
		}
		trace(g, api)
		g.Stmt("mReconstruction.forEachHandleAddModifyApi(%s, 1, apiHandle)", handles)
	}
	return nil
}

func (w *Wrapper) create(g *emit.CodeGen, api *types.APIInfo, created *types.VulkanType) error {
	scope := commands.Scope(api)
	n, err := emit.LengthAccess(created, scope)
	if err != nil {
		return err
	}
	if n == "" {
		n = "1"
	}
	if api.RetType.TypeName == "VkResult" {
		g.BeginIf("input_result != VK_SUCCESS")
		g.Stmt("return")
		g.EndIf()
	}
	cond := "!" + created.ParamName
	if guard := emit.LengthGuard(created, scope); guard != "" {
		cond = "!" + guard + " || " + cond
	}
	g.BeginIf("%s", cond)
	g.Stmt("return")
	g.EndIf()
	handles := fmt.Sprintf("(const uint64_t*)%s", created.ParamName)
	g.Stmt("android::base::AutoLock lock(mLock)")
	g.Line("// %s create", created.ParamName)
	g.Stmt("mReconstruction.addHandles(%s, %s)", handles, n)
	if parent := w.parent(api, created); parent != nil {
		g.Stmt("mReconstruction.addHandleDependency(%s, %s, (uint64_t)(uintptr_t)%s)", handles, n, parent.ParamName)
	}
	trace(g, api)
	g.Stmt("mReconstruction.forEachHandleAddApi(%s, %s, apiHandle)", handles, n)
	g.Stmt("mReconstruction.setCreatedHandlesForApi(apiHandle, %s, %s)", handles, n)
	return nil
}

// parent returns the handle the created handles depend on: the first
// handle parameter passed by value.
func (w *Wrapper) parent(api *types.APIInfo, created *types.VulkanType) *types.VulkanType {
	for _, p := range api.Parameters {
		if p != created && !p.IsPointer() && w.Info.IsHandleType(p.TypeName) {
			return p
		}
	}
	return nil
}

// destroyed returns the parameter holding the handles api destroys and
// their count. Unlike the decoder, arrays of handles count.
func (w *Wrapper) destroyed(api *types.APIInfo) (*types.VulkanType, string, error) {
	for _, p := range api.Parameters {
		if !w.Info.IsHandleType(p.TypeName) || commands.IsOutput(p) {
			continue
		}
		for _, c := range types.HandleInfoFor(w.Info.Resolve(p.TypeName)).Destroy {
			if c != api.OrigName {
				continue
			}
			if !p.IsPointer() {
				return p, "1", nil
			}
			n, err := emit.LengthAccess(p, commands.Scope(api))
			if err != nil {
				return nil, "", err
			}
			if n == "" {
				n = "1"
			}
			return p, n, nil
		}
	}
	return nil, "", nil
}

func (w *Wrapper) OnEnd(ctx context.Context) error {
	w.Module.EndFeature()
	w.Module.AppendHeader("\n   private:\n    class Impl;\n    std::unique_ptr<Impl> mImpl;\n};\n")
	w.Module.AppendImpl("\n   private:\n    android::base::Lock mLock;\n    VkReconstruction mReconstruction;\n};\n\n")
	g := emit.New()
	g.Line("VkDecoderSnapshot::VkDecoderSnapshot() : mImpl(new VkDecoderSnapshot::Impl()) {}")
	g.Blank()
	g.Line("VkDecoderSnapshot::~VkDecoderSnapshot() = default;")
	g.Blank()
	g.Line("void VkDecoderSnapshot::save(android::base::Stream* stream) { mImpl->save(stream); }")
	g.Blank()
	g.Line("void VkDecoderSnapshot::load(android::base::Stream* stream, GfxApiLogger& gfx_logger,")
	g.Line("                             HealthMonitor<>* healthMonitor) {")
	g.Line("    mImpl->load(stream, gfx_logger, healthMonitor);")
	g.Line("}")
	g.Blank()
	g.Line("void VkDecoderSnapshot::createExtraHandlesForNextApi(const uint64_t* created, uint32_t count) {")
	g.Line("    mImpl->createExtraHandlesForNextApi(created, count);")
	g.Line("}")
	g.Blank()
	commands.Cases(g, w.forwarders)
	w.Module.AppendImpl(g.Swap())
	log.D(ctx, "Snapshot of %d commands", len(w.forwarders))
	return nil
}
