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

// Package decoder emits VkDecoder, the host side loop that reads command
// packets, runs each command and writes its outputs back to the guest.
package decoder

import (
	"context"
	"fmt"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/commands"
	"github.com/google/gfxcodegen/cereal/visitors/marshaling"
	"github.com/google/gfxcodegen/cereal/visitors/transform"
	"github.com/google/gfxcodegen/core/log"
	"github.com/pkg/errors"
)

const (
	qswc     = "queueSubmitWithCommandsEnabled"
	state    = "m_state"
	cursor   = "readStreamPtrPtr"
	seqnoInc = "seqnoPtr->fetch_add(1, std::memory_order_seq_cst)"

	decodeProto = "size_t VkDecoder::Impl::decode(\n    void* buf,\n    size_t len,\n    IOStream* ioStream,\n" +
		"    const ProcessResources* processResources,\n    const VkDecoderContext& context)"
)

var (
	readStyle  = marshaling.ReservedUnmarshal
	writeStyle = marshaling.Marshal
)

func init() {
	readStyle.Stream.Name = "vkReadStream"
	readStyle.Cursor = &emit.Param{Type: "uint8_t**", Name: cursor}
	writeStyle.Stream.Name = "vkStream"
}

// Custom describes a command whose decoding departs from the generated
// pattern.
type Custom struct {
	// Boxed parameters are passed on without unboxing.
	Boxed []string
	// Subst replaces arguments of the call.
	Subst map[string]string
	// Extra arguments are appended to the call.
	Extra []string
	// NoOutputs skips writing the output parameters back.
	NoOutputs bool
}

// Customs are the commands with custom decoders.
var Customs = map[string]Custom{
	"vkQueueFlushCommandsGOOGLE":              {Boxed: []string{"commandBuffer"}, Extra: []string{"context"}},
	"vkQueueFlushCommandsFromAuxMemoryGOOGLE": {Boxed: []string{"commandBuffer"}, Extra: []string{"context"}},
	"vkBeginCommandBuffer":                    {Extra: []string{"context"}},
	"vkBeginCommandBufferAsyncGOOGLE":         {Extra: []string{"context"}},
	"vkQueueSubmit":                           {Extra: []string{"context"}},
	"vkQueueSubmit2":                          {Extra: []string{"context"}},
	"vkQueueSubmitAsyncGOOGLE":                {Extra: []string{"context"}},
	"vkCmdCopyBufferToImage":                  {Extra: []string{"context"}},
	"vkCmdCopyImageToBuffer":                  {Extra: []string{"context"}},
	"vkCreateImage":                           {Extra: []string{"context"}},
	// The mapping lives in the guest; the host only tracks it.
	"vkMapMemory": {Subst: map[string]string{"ppData": "nullptr"}, NoOutputs: true},
	// The swapchain image belongs to the guest's native window.
	"vkAcquireImageANDROID":            {Extra: []string{"context"}},
	"vkQueueSignalReleaseImageANDROID": {Extra: []string{"context"}},
}

// Wrapper collects one switch case per command and emits the decode loop
// once all are known.
type Wrapper struct {
	emit.BaseWrapper
	Info    *types.Info
	Opcodes *opcodes.Assignment

	feature string
	cases   []commands.Case
}

// New returns a wrapper emitting the decoder into m.
func New(info *types.Info, m *emit.Module, ops *opcodes.Assignment) *Wrapper {
	return &Wrapper{BaseWrapper: emit.BaseWrapper{Module: m}, Info: info, Opcodes: ops}
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
	g := emit.New()
	if err := w.decodeCase(g, api); err != nil {
		return log.Errf(ctx, err, "Decoding %v", name)
	}
	w.cases = append(w.cases, commands.Case{Feature: w.feature, Text: g.String()})
	return nil
}

func (w *Wrapper) decodeCase(g *emit.CodeGen, api *types.APIInfo) error {
	custom, isCustom := Customs[api.OrigName]
	global := commands.IsGlobalState(api)
	params := api.Parameters
	raw := append([]string{}, custom.Boxed...)
	var dispatch *types.VulkanType
	if len(params) > 0 && params[0].DispatchHandle {
		dispatch = params[0]
		raw = append(raw, dispatch.ParamName)
	}
	created := commands.CreatedHandle(w.Info, api)
	if created != nil {
		raw = append(raw, created.ParamName)
	}
	destroyed := commands.DestroyedHandle(w.Info, api)
	if destroyed != nil && destroyed != dispatch {
		raw = append(raw, destroyed.ParamName)
	} else {
		destroyed = nil
	}
	delayed := destroyed != nil && commands.DelayedDestroy[api.OrigName]
	outputs := commands.Outputs(api)
	if isCustom && custom.NoOutputs {
		outputs = nil
	}

	g.SwitchCase("OP_%s", api.Name)
	g.Stmt(`android::base::beginTrace("%s decode")`, api.Name)
	commands.Declare(g, params)
	if err := commands.Stream(w.Info, g, readStyle, api, params, commands.Options{Raw: raw}); err != nil {
		return err
	}
	subst := map[string]string{}
	for k, v := range custom.Subst {
		subst[k] = v
	}
	snapshotSubst := map[string]string{}
	if destroyed != nil {
		preserve := "boxed_" + destroyed.ParamName + "_preserve"
		g.Stmt("%s %s = %s", destroyed.TypeName, preserve, destroyed.ParamName)
		g.Stmt("%s = unbox_%s(%s)", destroyed.ParamName, destroyed.TypeName, destroyed.ParamName)
		snapshotSubst[destroyed.ParamName] = preserve
	}
	unboxed := ""
	if dispatch != nil && (!global || delayed) {
		unboxed = "unboxed_" + dispatch.ParamName
		g.Stmt("auto %s = unbox_%s(%s)", unboxed, dispatch.TypeName, dispatch.ParamName)
	}
	if err := commands.Transform(w.Info, g, transform.ToHost, state, api, inputs(params)); err != nil {
		return err
	}
	commands.DeviceMemory(g, transform.ToHost, state, api)
	g.BeginIf("m_logCalls")
	g.Stmt(`fprintf(stderr, "stream %%p: call %s\n", ioStream)`, api.Name)
	g.EndIf()
	if commands.Relaxed[api.OrigName] {
		g.BeginIf(qswc)
		g.Stmt(seqnoInc)
		g.EndIf()
	}

	commands.ReturnDecl(g, api)
	switch {
	case global || isCustom:
		args := append([]string{"&m_pool"}, commands.Args(params, subst)...)
		commands.Call(g, api, state+"->on_"+api.Name, append(args, custom.Extra...)...)
	case dispatch != nil:
		g.Stmt("auto vk = dispatch_%s(%s)", dispatch.TypeName, dispatch.ParamName)
		subst[dispatch.ParamName] = unboxed
		commands.Call(g, api, "vk->"+api.Name, commands.Args(params, subst)...)
	default:
		commands.Call(g, api, "m_vk->"+api.Name, commands.Args(params, subst)...)
	}
	if api.RetType.TypeName == "VkResult" {
		g.BeginIf("(%s) == VK_ERROR_DEVICE_LOST", api.RetVarExpr())
		g.Stmt("%s->on_DeviceLost()", state)
		g.EndIf()
		g.Stmt("%s->on_CheckOutOfMemory(%s, opcode, context)", state, api.RetVarExpr())
	}

	g.Stmt("vkStream->unsetHandleMapping()")
	if created != nil {
		g.Stmt("vkStream->setHandleMapping(&m_boxedHandleCreateMapping)")
	}
	if err := commands.Transform(w.Info, g, transform.FromHost, state, api, outputs); err != nil {
		return err
	}
	if err := commands.Stream(w.Info, g, writeStyle, api, outputs, commands.Options{}); err != nil {
		return err
	}
	if !api.ReturnsVoid() {
		n := w.Info.PrimEncodingSize(api.RetType.TypeName)
		if n == 0 {
			return errors.Wrapf(types.ErrUnsupported, "%v returns %v", api.Name, api.RetType.TypeName)
		}
		writeStyle.StreamOps().Primitive(g, n, api.RetVarExpr())
	}
	g.Stmt("vkStream->commitWrite()")

	g.Stmt("vkReadStream->setReadPos((uintptr_t)(*%s) - (uintptr_t)snapshotTraceBegin)", cursor)
	g.Stmt("size_t snapshotTraceBytes = vkReadStream->endTrace()")
	g.BeginIf("%s->snapshotsEnabled()", state)
	args := []string{"snapshotTraceBegin", "snapshotTraceBytes", "&m_pool"}
	if !api.ReturnsVoid() {
		args = append(args, api.RetVarExpr())
	}
	g.FuncCall("", state+"->snapshot()->"+api.Name, append(args, commands.Args(params, snapshotSubst)...)...)
	g.EndIf()

	if destroyed != nil {
		preserve := snapshotSubst[destroyed.ParamName]
		if delayed {
			g.Stmt("delayed_delete_%s(%s, %s, []() {})", destroyed.TypeName, preserve, unboxed)
		} else {
			g.Stmt("delete_%s(%s)", destroyed.TypeName, preserve)
		}
	}
	if !commands.Relaxed[api.OrigName] {
		g.BeginIf(qswc)
		g.Stmt(seqnoInc)
		g.EndIf()
	}
	g.Stmt("vkReadStream->clearPool()")
	g.Stmt("android::base::endTrace()")
	g.SwitchCaseEnd()
	return nil
}

// inputs returns the parameters the callee only reads.
func inputs(params []*types.VulkanType) []*types.VulkanType {
	out := []*types.VulkanType{}
	for _, p := range params {
		if !commands.IsOutput(p) {
			out = append(out, p)
		}
	}
	return out
}

// header reads one 32-bit big-endian field of the packet header at src.
func header(g *emit.CodeGen, name, src string) {
	g.Stmt("uint32_t %s", name)
	g.Stmt("memcpy(&%s, %s, sizeof(uint32_t))", name, src)
	g.Stmt("android::base::Stream::fromBe32((uint8_t*)&%s)", name)
}

func (w *Wrapper) decode(g *emit.CodeGen) {
	g.BeginFuncDef(decodeProto)
	g.BeginIf("len < 8")
	g.Stmt("return 0")
	g.EndIf()
	g.Stmt("bool %s = feature_is_enabled(kFeature_VulkanQueueSubmitWithCommands)", qswc)
	g.Stmt("auto& metricsLogger = *context.metricsLogger")
	g.Stmt("std::atomic<uint32_t>* seqnoPtr = processResources->getSequenceNumberPtr()")
	g.Stmt("unsigned char* ptr = (unsigned char*)buf")
	g.Stmt("const unsigned char* const end = (const unsigned char*)buf + len")
	g.BeginWhile("end - ptr >= 8")
	header(g, "opcode", "ptr")
	header(g, "packetLen", "ptr + 4")
	g.BeginIf("packetLen < 8 || packetLen > MAX_PACKET_LENGTH")
	g.Stmt(`WARN("Bad packet length %d detected, decode may fail", packetLen)`)
	g.Stmt("metricsLogger.logMetricEvent(MetricEventBadPacketLength{.len = packetLen})")
	g.Stmt("packetLen = std::min<uint32_t>(std::max<uint32_t>(packetLen, 8), (uint32_t)(end - ptr))")
	g.EndIf()
	g.BeginIf("end - ptr < packetLen")
	g.Stmt("return ptr - (unsigned char*)buf")
	g.EndIf()
	g.Stmt("stream()->setStream(ioStream)")
	g.Stmt("VulkanStream* vkStream = stream()")
	g.Stmt("VulkanMemReadingStream* vkReadStream = readStream()")
	g.Stmt("vkReadStream->setBuf((uint8_t*)(ptr + 8))")
	g.Stmt("uint8_t* readStreamPtr = vkReadStream->getBuf()")
	g.Stmt("uint8_t** %s = &readStreamPtr", cursor)
	g.Stmt("uint8_t* snapshotTraceBegin = vkReadStream->beginTrace()")
	g.Stmt("vkReadStream->setHandleMapping(&m_boxedHandleUnwrapMapping)")
	g.BeginIf("%s && ((opcode >= OP_vkFirst && opcode < OP_vkLast) || (opcode >= OP_vkFirst_old && opcode < OP_vkLast_old))", qswc)
	g.Stmt("uint32_t seqno")
	readStyle.StreamOps().Primitive(g, 4, "seqno")
	g.BeginIf("m_prevSeqno && seqno == m_prevSeqno.value()")
	g.Stmt(`WARN("Seqno %d is the same as previously processed. It might be a duplicate command.", seqno)`)
	g.Stmt("metricsLogger.logMetricEvent(MetricEventDuplicateSequenceNumber{.opcode = opcode})")
	g.EndIf()
	g.BeginIf("seqnoPtr && !m_forSnapshotLoad")
	g.BeginWhile("seqno - seqnoPtr->load(std::memory_order_seq_cst) != 1")
	g.Directive("#if (defined(__x86_64__) || defined(__i386__))")
	g.Stmt("_mm_pause()")
	g.Directive("#endif")
	g.EndWhile()
	g.Stmt("m_prevSeqno = seqno")
	g.EndIf()
	g.EndIf()
	g.BeginSwitch("opcode")
	commands.Cases(g, w.cases)
	g.SwitchDefault()
	g.Stmt("m_pool.freeAll()")
	g.Stmt("return ptr - (unsigned char*)buf")
	g.EndBlock()
	g.EndSwitch()
	g.Stmt("ptr += packetLen")
	g.EndWhile()
	g.Stmt("m_pool.freeAll()")
	g.Stmt("return ptr - (unsigned char*)buf")
	g.EndFuncDef()
}

const classDecl = `class VkDecoder {
   public:
    VkDecoder();
    ~VkDecoder();
    void setForSnapshotLoad(bool forSnapshotLoad);
    size_t decode(
        void* buf,
        size_t bufsize,
        IOStream* stream,
        const ProcessResources* processResources,
        const VkDecoderContext& context);

   private:
    class Impl;
    std::unique_ptr<Impl> mImpl;
};
`

func (w *Wrapper) OnEnd(ctx context.Context) error {
	w.Module.EndFeature()
	w.Module.AppendHeader(classDecl)
	g := emit.New()
	g.Directive(fmt.Sprintf("#define MAX_PACKET_LENGTH %d", commands.MaxPacketLength))
	g.Blank()
	w.decode(g)
	w.Module.AppendImpl(g.Swap())
	w.Module.AddFunction()
	log.D(ctx, "Decoder of %d commands", len(w.cases))
	return nil
}
