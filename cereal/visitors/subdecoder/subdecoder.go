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

// Package subdecoder emits the decoder of the command buffer streams that
// travel inside vkQueueFlushCommandsGOOGLE. The streams are recorded
// against one command buffer, so every packet omits it.
package subdecoder

import (
	"context"
	"fmt"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/commands"
	"github.com/google/gfxcodegen/cereal/visitors/decoder"
	"github.com/google/gfxcodegen/cereal/visitors/marshaling"
	"github.com/google/gfxcodegen/cereal/visitors/transform"
	"github.com/google/gfxcodegen/core/log"
)

const (
	globalState = "globalstate"
	// PoolInterval is the number of commands decoded between clears of the
	// arena.
	PoolInterval = 1000

	subDecodeProto = "size_t subDecode(VulkanMemReadingStream* readStream, VulkanDispatch* vk, " +
		"void* boxed_dispatchHandle, void* dispatchHandle, VkDeviceSize subDecodeDataSize, " +
		"const void* pSubDecodeData, const VkDecoderContext& context)"
)

var readStyle = marshaling.ReservedUnmarshal

func init() {
	readStyle.Stream.Name = "readStream"
	readStyle.Cursor = &emit.Param{Type: "uint8_t**", Name: "readStreamPtrPtr"}
}

// Wrapper collects a case per command buffer command.
type Wrapper struct {
	emit.BaseWrapper
	Info    *types.Info
	Opcodes *opcodes.Assignment

	feature string
	cases   []commands.Case
}

// New returns a wrapper emitting the sub-decoder into m.
func New(info *types.Info, m *emit.Module, ops *opcodes.Assignment) *Wrapper {
	return &Wrapper{BaseWrapper: emit.BaseWrapper{Module: m}, Info: info, Opcodes: ops}
}

func (w *Wrapper) OnBeginFeature(ctx context.Context, name string, enabled bool) error {
	w.feature = name
	return w.BaseWrapper.OnBeginFeature(ctx, name, enabled)
}

func (w *Wrapper) OnGenCmd(ctx context.Context, api *types.APIInfo, name, alias string) error {
	if !w.Emit || !commands.IsSubDecoded(api) {
		return nil
	}
	if _, ok := w.Opcodes.Opcode(name); !ok {
		return log.Errf(ctx, opcodes.ErrRange, "No opcode assigned to %v", name)
	}
	g := emit.New()
	if err := w.subDecodeCase(g, api); err != nil {
		return log.Errf(ctx, err, "Sub-decoding %v", name)
	}
	w.cases = append(w.cases, commands.Case{Feature: w.feature, Text: g.String()})
	return nil
}

func (w *Wrapper) subDecodeCase(g *emit.CodeGen, api *types.APIInfo) error {
	cmdBuf := api.Parameters[0]
	params := api.Parameters[1:]
	g.SwitchCase("OP_%s", api.Name)
	g.Stmt(`android::base::beginTrace("%s subdecode")`, api.Name)
	commands.Declare(g, params)
	if err := commands.Stream(w.Info, g, readStyle, api, params, commands.Options{}); err != nil {
		return err
	}
	if err := commands.Transform(w.Info, g, transform.ToHost, globalState, api, params); err != nil {
		return err
	}
	commands.ReturnDecl(g, api)
	args := commands.Args(params, nil)
	if commands.IsGlobalState(api) {
		self := "(" + cmdBuf.TypeName + ")(boxed_dispatchHandle)"
		args = append([]string{"pool", self}, args...)
		args = append(args, decoder.Customs[api.OrigName].Extra...)
		commands.Call(g, api, globalState+"->on_"+api.Name, args...)
	} else {
		self := "(" + cmdBuf.TypeName + ")dispatchHandle"
		commands.Call(g, api, "vk->"+api.Name, append([]string{self}, args...)...)
	}
	if api.RetType.TypeName == "VkResult" {
		g.BeginIf("(%s) == VK_ERROR_DEVICE_LOST", api.RetVarExpr())
		g.Stmt("%s->on_DeviceLost()", globalState)
		g.EndIf()
		g.Stmt("%s->on_CheckOutOfMemory(%s, opcode, context)", globalState, api.RetVarExpr())
	}
	g.Stmt("android::base::endTrace()")
	g.SwitchCaseEnd()
	return nil
}

func (w *Wrapper) subDecode(g *emit.CodeGen) {
	g.BeginFuncDef(subDecodeProto)
	g.Stmt("auto& metricsLogger = *context.metricsLogger")
	g.Stmt("uint32_t count = 0")
	g.Stmt("unsigned char* buf = (unsigned char*)pSubDecodeData")
	g.Stmt("android::base::BumpPool* pool = readStream->pool()")
	g.Stmt("unsigned char* ptr = (unsigned char*)pSubDecodeData")
	g.Stmt("const unsigned char* const end = (const unsigned char*)buf + subDecodeDataSize")
	g.Stmt("VkDecoderGlobalState* %s = VkDecoderGlobalState::get()", globalState)
	g.BeginWhile("end - ptr >= 8")
	for _, f := range [][2]string{{"opcode", "ptr"}, {"packetLen", "ptr + 4"}} {
		g.Stmt("uint32_t %s", f[0])
		g.Stmt("memcpy(&%s, %s, sizeof(uint32_t))", f[0], f[1])
		g.Stmt("android::base::Stream::fromBe32((uint8_t*)&%s)", f[0])
	}
	g.BeginIf("packetLen < 8 || packetLen > MAX_PACKET_LENGTH")
	g.Stmt(`WARN("Bad packet length %d detected, subdecode may fail", packetLen)`)
	g.Stmt("metricsLogger.logMetricEvent(MetricEventBadPacketLength{.len = packetLen})")
	g.Stmt("packetLen = std::min<uint32_t>(std::max<uint32_t>(packetLen, 8), (uint32_t)(end - ptr))")
	g.EndIf()
	g.BeginIf("end - ptr < packetLen")
	g.Stmt("return ptr - (unsigned char*)buf")
	g.EndIf()
	g.Stmt("readStream->setBuf((uint8_t*)(ptr + 8))")
	g.Stmt("uint8_t* readStreamPtr = readStream->getBuf()")
	g.Stmt("uint8_t** readStreamPtrPtr = &readStreamPtr")
	g.BeginSwitch("opcode")
	commands.Cases(g, w.cases)
	g.SwitchDefault()
	g.Stmt(`GFXSTREAM_ABORT(::emugl::FatalError(::emugl::ABORT_REASON_OTHER)) << "Unrecognized opcode " << opcode`)
	g.EndBlock()
	g.EndSwitch()
	g.Stmt("++count")
	g.BeginIf("count %% %d == 0", PoolInterval)
	g.Stmt("pool->freeAll()")
	g.EndIf()
	g.Stmt("ptr += packetLen")
	g.EndWhile()
	g.Stmt("pool->freeAll()")
	g.Stmt("return ptr - (unsigned char*)buf")
	g.EndFuncDef()
}

func (w *Wrapper) OnEnd(ctx context.Context) error {
	w.Module.EndFeature()
	g := emit.New()
	g.Directive(fmt.Sprintf("#define MAX_PACKET_LENGTH %d", commands.MaxPacketLength))
	g.Blank()
	w.subDecode(g)
	w.Module.AppendImpl(g.Swap())
	w.Module.AddFunction()
	log.D(ctx, "Sub-decoder of %d commands", len(w.cases))
	return nil
}
