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

// Package encoder emits VkEncoder, the guest side of the protocol. Each
// command is counted, framed into a reserved buffer, marshaled in place and
// its outputs read back from the host.
package encoder

import (
	"context"
	"strings"

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
	qswc    = "queueSubmitWithCommandsEnabled"
	tracker = "sResourceTracker"
)

// The styles of the encoder's locals.
var (
	countStyle    = marshaling.Count
	reservedStyle = marshaling.ReservedMarshal
	readStyle     = marshaling.Unmarshal
)

func init() {
	countStyle.Stream.Name = "sFeatureBits"
	countStyle.Cursor = &emit.Param{Type: "size_t*", Name: "countPtr"}
	reservedStyle.Stream.Name = "stream"
	reservedStyle.Cursor = &emit.Param{Type: "uint8_t**", Name: "streamPtrPtr"}
	reservedStyle.FeatureBits = "sFeatureBits"
	readStyle.Stream.Name = "stream"
	readStyle.FeatureBits = "sFeatureBits"
}

// Wrapper emits one VkEncoder method per command.
type Wrapper struct {
	emit.BaseWrapper
	Info    *types.Info
	Opcodes *opcodes.Assignment
}

// New returns a wrapper emitting the encoder into m.
func New(info *types.Info, m *emit.Module, ops *opcodes.Assignment) *Wrapper {
	return &Wrapper{BaseWrapper: emit.BaseWrapper{Module: m}, Info: info, Opcodes: ops}
}

// Proto returns the prototype of the method encoding api. The class name
// qualifies the definition and is empty for the declaration.
func Proto(api *types.APIInfo, class string) string {
	params := append(emit.ParamsOf(api.Parameters), emit.Param{Type: "uint32_t", Name: "doLock"})
	return emit.FuncProto(api.RetType.TypeName, class+api.Name, params...)
}

func indent(text string) string {
	return "    " + strings.ReplaceAll(text, "\n", "\n    ")
}

func (w *Wrapper) OnBegin(ctx context.Context) error {
	w.Module.AppendHeader("class VkEncoder {\n   public:\n" +
		"    VkEncoder(IOStream* stream);\n" +
		"    ~VkEncoder();\n\n")
	return nil
}

func (w *Wrapper) OnGenCmd(ctx context.Context, api *types.APIInfo, name, alias string) error {
	if !w.Emit {
		return nil
	}
	if _, ok := w.Opcodes.Opcode(name); !ok {
		return log.Errf(ctx, opcodes.ErrRange, "No opcode assigned to %v", name)
	}
	w.Module.AppendHeader(indent(Proto(api, "")) + ";\n")
	g := emit.New()
	if err := w.method(g, api); err != nil {
		return log.Errf(ctx, err, "Encoding %v", name)
	}
	w.Module.AppendImpl(g.Swap())
	w.Module.AddFunction()
	return nil
}

// header writes one 32-bit big-endian field of the packet header.
func header(g *emit.CodeGen, v string) {
	g.Stmt("memcpy(streamPtr, &%s, sizeof(uint32_t))", v)
	g.Stmt("android::base::Stream::toBe32((uint8_t*)streamPtr)")
	g.Stmt("streamPtr += sizeof(uint32_t)")
}

func (w *Wrapper) method(g *emit.CodeGen, api *types.APIInfo) error {
	onCommandBuffer := commands.UsesCommandBuffer(api)
	g.BeginFuncDef(Proto(api, "VkEncoder::"))
	g.Stmt("(void)doLock")
	g.Stmt("bool %s = sFeatureBits & %s", qswc, types.StreamFeatureMacro("QUEUE_SUBMIT_WITH_COMMANDS"))
	g.Stmt("if (!%s && doLock) this->lock()", qswc)
	g.Stmt("auto stream = mImpl->stream()")
	g.Stmt("auto pool = mImpl->pool()")

	g.Stmt("size_t count = 0")
	g.Stmt("size_t* countPtr = &count")
	g.BeginBlock()
	if err := commands.Stream(w.Info, g, countStyle, api, api.Parameters, commands.Options{}); err != nil {
		return err
	}
	g.EndBlock()

	size := "packetSize_" + api.Name
	g.Stmt("uint32_t %s = 4 + 4 + count", size)
	g.BeginIf(qswc)
	if onCommandBuffer {
		g.Stmt("%s -= 8", size)
	} else {
		g.Stmt("%s += 4", size)
	}
	g.EndIf()
	g.Stmt("uint8_t* streamPtr = stream->reserve(%s)", size)
	g.Stmt("uint8_t** streamPtrPtr = &streamPtr")
	op := "opcode_" + api.Name
	g.Stmt("uint32_t %s = OP_%s", op, api.Name)
	header(g, op)
	header(g, size)
	if !onCommandBuffer {
		g.BeginIf(qswc)
		g.Stmt("uint32_t seqno = ResourceTracker::nextSeqno()")
		header(g, "seqno")
		g.EndIf()
	}

	params := api.Parameters
	if onCommandBuffer {
		g.BeginIf("!%s", qswc)
		if err := commands.Stream(w.Info, g, reservedStyle, api, params[:1], commands.Options{}); err != nil {
			return err
		}
		g.EndIf()
		params = params[1:]
	}
	if err := commands.Stream(w.Info, g, reservedStyle, api, params, commands.Options{}); err != nil {
		return err
	}

	outputs := commands.Outputs(api)
	created := commands.CreatedHandle(w.Info, api) != nil
	if created {
		g.Stmt("stream->setHandleMapping(%s->createMapping())", tracker)
	}
	if err := commands.Stream(w.Info, g, readStyle, api, outputs, commands.Options{Static: true}); err != nil {
		return err
	}
	if created {
		g.Stmt("stream->unsetHandleMapping()")
	}
	if err := commands.Transform(w.Info, g, transform.FromHost, tracker, api, outputs); err != nil {
		return err
	}
	if !api.ReturnsVoid() {
		n := w.Info.PrimEncodingSize(api.RetType.TypeName)
		if n == 0 {
			return errors.Wrapf(types.ErrUnsupported, "%v returns %v", api.Name, api.RetType.TypeName)
		}
		commands.ReturnDecl(g, api)
		readStyle.StreamOps().Primitive(g, n, api.RetVarExpr())
	}
	g.Stmt("++encodeCount")
	g.BeginIf("0 == encodeCount % POOL_CLEAR_INTERVAL")
	g.Stmt("pool->freeAll()")
	g.Stmt("stream->clearPool()")
	g.EndIf()
	g.Stmt("if (!%s && doLock) this->unlock()", qswc)
	if !api.ReturnsVoid() {
		g.Stmt("return %s", api.RetVarExpr())
	}
	g.EndFuncDef()
	return nil
}

func (w *Wrapper) OnEnd(ctx context.Context) error {
	w.Module.EndFeature()
	w.Module.AppendHeader("\n   private:\n    class Impl;\n    std::unique_ptr<Impl> mImpl;\n};\n")
	log.D(ctx, "Encoder of %d commands", w.Module.Functions())
	return nil
}
