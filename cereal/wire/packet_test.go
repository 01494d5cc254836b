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

package wire_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/wire"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/fault"
	"github.com/google/gfxcodegen/core/log"
)

var commandNames = []string{
	"vkCreateInstance",
	"vkCreateBuffer",
	"vkCmdDraw",
	"vkQueueFlushCommandsGOOGLE",
	"vkDeviceWaitIdle",
	"vkWaitForFences",
}

func newOpcodes(ctx context.Context, t *testing.T) *opcodes.Assignment {
	table, err := opcodes.Default()
	if !assert.For(ctx, "table").ThatError(err).Succeeded() {
		t.FailNow()
	}
	ops, err := table.Assign(ctx, commandNames)
	if !assert.For(ctx, "assign").ThatError(err).Succeeded() {
		t.FailNow()
	}
	return ops
}

func encode(ctx context.Context, e *wire.Encoder, name string, params *wire.Struct) []byte {
	pkt, err := e.Encode(name, params)
	assert.For(ctx, "encode %v", name).ThatError(err).Succeeded()
	return pkt
}

func TestCreateBuffer(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	ops := newOpcodes(ctx, t)
	enc := wire.NewEncoder(c, ops)

	params := wire.NewStruct("vkCreateBuffer", map[string]interface{}{
		"device":      wire.Handle(1),
		"pCreateInfo": bufferCreateInfo(nil),
	})
	pkt := encode(ctx, enc, "vkCreateBuffer", params)
	assert.For(ctx, "opcode").ThatSlice(pkt[:4]).Equals(u32(20050))
	assert.For(ctx, "length").ThatSlice(pkt[4:8]).Equals(u32(uint32(len(pkt))))

	buffers := &wire.SlotTable[*wire.Struct]{}
	dec := wire.NewDecoder(c, ops, func(ctx context.Context, api *types.APIInfo, p *wire.Struct) (uint64, error) {
		info, _ := p.Get("pCreateInfo").(*wire.Struct)
		assert.For(ctx, "size").That(info.Get("size")).Equals(uint64(1024))
		p.Set("pBuffer", buffers.Add(info))
		return 0, nil
	})
	reply := &bytes.Buffer{}
	n, err := dec.Decode(ctx, pkt, reply)
	assert.For(ctx, "decode").ThatError(err).Succeeded()
	assert.For(ctx, "consumed").That(n).Equals(len(pkt))
	assert.For(ctx, "reply size").That(reply.Len()).Equals(12)
	assert.For(ctx, "commands").That(dec.Stats.Commands.Load()).Equals(uint64(1))

	ret, err := enc.Reply(reply, "vkCreateBuffer", params)
	assert.For(ctx, "reply").ThatError(err).Succeeded()
	assert.For(ctx, "result").That(ret).Equals(uint64(0))
	id, _ := params.Get("pBuffer").(wire.Handle)
	info, ok := buffers.Lookup(id)
	assert.For(ctx, "boxed").That(ok).Equals(true)
	assert.For(ctx, "boxed info").ThatError(c.Equal(bufferCreateInfo(nil), info)).Succeeded()
}

func TestFlushCommands(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, wire.QueueSubmitWithCommands)
	ops := newOpcodes(ctx, t)
	enc := wire.NewEncoder(c, ops)

	draw := encode(ctx, enc, "vkCmdDraw", wire.NewStruct("vkCmdDraw", map[string]interface{}{
		"commandBuffer": wire.Handle(42),
		"vertexCount":   uint32(3),
		"instanceCount": uint32(1),
	}))
	assert.For(ctx, "draw size").That(len(draw)).Equals(wire.HeaderSize + 16)

	flush := encode(ctx, enc, wire.FlushCommand, wire.NewStruct(wire.FlushCommand, map[string]interface{}{
		"queue":         wire.Handle(7),
		"commandBuffer": wire.Handle(42),
		"dataSize":      uint64(len(draw)),
		"pData":         draw,
	}))
	assert.For(ctx, "seqno").ThatSlice(flush[8:12]).Equals(u32(1))

	var got []string
	dec := wire.NewDecoder(c, ops, func(ctx context.Context, api *types.APIInfo, p *wire.Struct) (uint64, error) {
		got = append(got, api.Name)
		assert.For(ctx, "commandBuffer").That(p.Get("commandBuffer")).Equals(wire.Handle(42))
		assert.For(ctx, "vertexCount").That(p.Get("vertexCount")).Equals(uint64(3))
		return 0, nil
	})
	dec.Sequencer = wire.NewSequencer()
	reply := &bytes.Buffer{}
	n, err := dec.Decode(ctx, flush, reply)
	assert.For(ctx, "decode").ThatError(err).Succeeded()
	assert.For(ctx, "consumed").That(n).Equals(len(flush))
	assert.For(ctx, "handled").ThatSlice(got).Equals([]string{"vkCmdDraw"})
	assert.For(ctx, "no reply").That(reply.Len()).Equals(0)
	assert.For(ctx, "sequence").That(dec.Sequencer.Last()).Equals(uint32(1))
	assert.For(ctx, "commands").That(dec.Stats.Commands.Load()).Equals(uint64(2))
}

func TestBadPacketLength(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	ops := newOpcodes(ctx, t)
	pkt := encode(ctx, wire.NewEncoder(c, ops), "vkDeviceWaitIdle", wire.NewStruct("vkDeviceWaitIdle", map[string]interface{}{
		"device": wire.Handle(1),
	}))
	copy(pkt[4:8], u32(0xFFFFFFFF))

	dec := wire.NewDecoder(c, ops, nil)
	reply := &bytes.Buffer{}
	n, err := dec.Decode(ctx, pkt, reply)
	assert.For(ctx, "decode").ThatError(err).Succeeded()
	assert.For(ctx, "consumed").That(n).Equals(len(pkt))
	assert.For(ctx, "bad length").That(dec.Stats.BadPacketLength.Load()).Equals(uint64(1))
	assert.For(ctx, "reply").ThatSlice(reply.Bytes()).Equals(u32(0))
}

func TestIncompleteInput(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	ops := newOpcodes(ctx, t)
	pkt := encode(ctx, wire.NewEncoder(c, ops), "vkDeviceWaitIdle", wire.NewStruct("vkDeviceWaitIdle", map[string]interface{}{
		"device": wire.Handle(1),
	}))
	called := 0
	dec := wire.NewDecoder(c, ops, func(context.Context, *types.APIInfo, *wire.Struct) (uint64, error) {
		called++
		return 0, nil
	})

	n, err := dec.Decode(ctx, pkt[:len(pkt)-2], nil)
	assert.For(ctx, "partial").ThatError(err).Succeeded()
	assert.For(ctx, "partial consumed").That(n).Equals(0)

	unknown := append(u32(1), pkt[4:]...)
	n, err = dec.Decode(ctx, unknown, nil)
	assert.For(ctx, "unknown").ThatError(err).Succeeded()
	assert.For(ctx, "unknown consumed").That(n).Equals(0)

	n, err = dec.Decode(ctx, append(pkt, unknown...), nil)
	assert.For(ctx, "mixed").ThatError(err).Succeeded()
	assert.For(ctx, "mixed consumed").That(n).Equals(len(pkt))
	assert.For(ctx, "called").That(called).Equals(1)
}

func TestDuplicateSeqno(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, wire.QueueSubmitWithCommands)
	ops := newOpcodes(ctx, t)
	pkt := encode(ctx, wire.NewEncoder(c, ops), "vkDeviceWaitIdle", wire.NewStruct("vkDeviceWaitIdle", map[string]interface{}{
		"device": wire.Handle(1),
	}))
	dec := wire.NewDecoder(c, ops, nil)
	for i := 0; i < 2; i++ {
		_, err := dec.Decode(ctx, pkt, nil)
		assert.For(ctx, "decode %d", i).ThatError(err).Succeeded()
	}
	assert.For(ctx, "duplicates").That(dec.Stats.DuplicateSeqno.Load()).Equals(uint64(1))
	assert.For(ctx, "commands").That(dec.Stats.Commands.Load()).Equals(uint64(2))
}

func TestRelaxedCommands(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, wire.QueueSubmitWithCommands)
	ops := newOpcodes(ctx, t)
	enc := wire.NewEncoder(c, ops)
	stream := cat(
		encode(ctx, enc, "vkCreateBuffer", wire.NewStruct("vkCreateBuffer", map[string]interface{}{
			"device":      wire.Handle(1),
			"pCreateInfo": bufferCreateInfo(nil),
		})),
		encode(ctx, enc, "vkWaitForFences", wire.NewStruct("vkWaitForFences", map[string]interface{}{
			"device":     wire.Handle(1),
			"fenceCount": uint32(1),
			"pFences":    []wire.Handle{5},
		})),
	)

	dec := wire.NewDecoder(c, ops, nil)
	dec.Sequencer = wire.NewSequencer()
	seen := map[string]uint32{}
	dec.Handler = func(ctx context.Context, api *types.APIInfo, p *wire.Struct) (uint64, error) {
		seen[api.Name] = dec.Sequencer.Last()
		return 0, nil
	}
	n, err := dec.Decode(ctx, stream, &bytes.Buffer{})
	assert.For(ctx, "decode").ThatError(err).Succeeded()
	assert.For(ctx, "consumed").That(n).Equals(len(stream))
	assert.For(ctx, "ordered").That(seen["vkCreateBuffer"]).Equals(uint32(0))
	assert.For(ctx, "relaxed").That(seen["vkWaitForFences"]).Equals(uint32(2))
	assert.For(ctx, "last").That(dec.Sequencer.Last()).Equals(uint32(2))
}

func TestSequencer(t *testing.T) {
	ctx := log.Testing(t)
	s := wire.NewSequencer()

	var mu sync.Mutex
	order := []uint32{}
	run := func(seqno uint32) {
		if err := s.Wait(ctx, seqno); err != nil {
			return
		}
		mu.Lock()
		order = append(order, seqno)
		mu.Unlock()
		s.Advance()
	}
	wg := sync.WaitGroup{}
	for _, seqno := range []uint32{3, 2} {
		seqno := seqno
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(seqno)
		}()
	}
	time.Sleep(10 * time.Millisecond)
	run(1)
	wg.Wait()
	assert.For(ctx, "order").ThatSlice(order).Equals([]uint32{1, 2, 3})

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err := s.Wait(cancelled, 10)
	assert.For(ctx, "cancelled").ThatError(err).HasCause(context.Canceled)
}

func TestArenaResetOnError(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	ops := newOpcodes(ctx, t)
	pkt := encode(ctx, wire.NewEncoder(c, ops), "vkDeviceWaitIdle", wire.NewStruct("vkDeviceWaitIdle", map[string]interface{}{
		"device": wire.Handle(1),
	}))
	var dec *wire.Decoder
	allocs := 0
	dec = wire.NewDecoder(c, ops, func(context.Context, *types.APIInfo, *wire.Struct) (uint64, error) {
		dec.Arena.Allocate(64, 8)
		allocs = dec.Arena.Stats().NumAllocations
		return 0, errDeviceLost
	})
	_, err := dec.Decode(ctx, pkt, nil)
	assert.For(ctx, "decode").ThatError(err).HasCause(errDeviceLost)
	assert.For(ctx, "allocated").That(allocs > 0).Equals(true)
	assert.For(ctx, "reset").That(dec.Arena.Stats().NumAllocations).Equals(0)
}

const errDeviceLost = fault.Const("device lost")
