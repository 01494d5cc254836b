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

package wire

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/commands"
	"github.com/google/gfxcodegen/core/data/endian"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/core/memory/arena"
	"github.com/pkg/errors"
)

// HeaderSize is the size of the opcode and length words of a packet.
const HeaderSize = 8

// FlushCommand carries the commands recorded into a command buffer.
const FlushCommand = "vkQueueFlushCommandsGOOGLE"

// Encoder builds command packets, as the guest does.
type Encoder struct {
	Codec   *Codec
	Opcodes *opcodes.Assignment
	seqno   atomic.Uint32
}

// NewEncoder returns an encoder of the commands ops numbers.
func NewEncoder(c *Codec, ops *opcodes.Assignment) *Encoder {
	return &Encoder{Codec: c, Opcodes: ops}
}

// Encode returns the packet of a call to the named command.
//
// With QueueSubmitWithCommands negotiated, commands recorded into a command
// buffer travel in that buffer's stream: their packets drop the
// commandBuffer parameter and carry no sequence number. Every other packet
// carries the next sequence number after its header.
func (e *Encoder) Encode(name string, params *Struct) ([]byte, error) {
	api, err := e.Codec.Command(name)
	if err != nil {
		return nil, err
	}
	op, ok := e.Opcodes.Opcode(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknown, "no opcode for %v", name)
	}
	qswc := e.Codec.Features.Has(QueueSubmitWithCommands)
	list := api.Parameters
	if qswc && commands.UsesCommandBuffer(api) {
		list = list[1:]
	}
	body := &countSink{}
	if err := e.Codec.encodeParams(body, api, params, list); err != nil {
		return nil, err
	}
	size := HeaderSize + body.n
	withSeqno := qswc && !commands.UsesCommandBuffer(api)
	if withSeqno {
		size += 4
	}
	out := &reservedSink{buf: make([]byte, size)}
	out.value(4, uint64(op))
	out.value(4, uint64(size))
	if withSeqno {
		out.value(4, uint64(e.seqno.Add(1)))
	}
	if err := e.Codec.encodeParams(out, api, params, list); err != nil {
		return nil, err
	}
	return out.buf, out.err()
}

// Reply reads the reply to a call of the named command: the output
// parameters, which are stored into params, then the return value.
func (e *Encoder) Reply(r io.Reader, name string, params *Struct) (uint64, error) {
	api, err := e.Codec.Command(name)
	if err != nil {
		return 0, err
	}
	in := readerSource{endian.Reader(r, endian.Big)}
	d := &decoder{c: e.Codec, in: in, chain: in}
	if err := d.params(api, params, commands.Outputs(api)); err != nil {
		return 0, err
	}
	if api.ReturnsVoid() {
		return 0, nil
	}
	ret := in.value(e.Codec.Info.PrimEncodingSize(api.RetType.TypeName))
	return ret, errors.Wrapf(in.err(), "%v return", name)
}

func (c *Codec) encodeParams(out sink, api *types.APIInfo, params *Struct, list []*types.VulkanType) error {
	e := &encoder{c: c, out: out}
	if err := e.params(api, params, list); err != nil {
		return err
	}
	return out.err()
}

// Handler runs a decoded command. It may store output parameters into
// params. The result is the command's return value.
type Handler func(ctx context.Context, api *types.APIInfo, params *Struct) (uint64, error)

// Stats count the anomalies a Decoder recovered from.
type Stats struct {
	Commands        atomic.Uint64
	BadPacketLength atomic.Uint64
	DuplicateSeqno  atomic.Uint64
}

// Decoder runs the packets of one guest stream, as the host does.
type Decoder struct {
	Codec   *Codec
	Opcodes *opcodes.Assignment
	Handler Handler
	// Sequencer orders the commands of concurrent streams when
	// QueueSubmitWithCommands is negotiated. It may be nil.
	Sequencer *Sequencer
	Stats     Stats
	// Arena holds the values decoded by one Decode call. It is reset when
	// the call returns.
	Arena *arena.Arena

	prevSeqno uint32
	hasPrev   bool
}

// NewDecoder returns a decoder that runs commands with h.
func NewDecoder(c *Codec, ops *opcodes.Assignment, h Handler) *Decoder {
	return &Decoder{Codec: c, Opcodes: ops, Handler: h, Arena: arena.New()}
}

// Decode runs the complete packets at the start of buf, writing replies to
// reply, and returns the number of bytes consumed. A trailing partial
// packet is left for the next call. An unknown opcode stops decoding.
func (d *Decoder) Decode(ctx context.Context, buf []byte, reply io.Writer) (int, error) {
	ctx = log.Enter(ctx, "Decode")
	defer d.Arena.Reset()
	qswc := d.Codec.Features.Has(QueueSubmitWithCommands)
	pos := 0
	for len(buf)-pos >= HeaderSize {
		opcode := uint32(getUint(buf[pos:], 4))
		length := d.packetLength(ctx, opcode, buf[pos:])
		if len(buf)-pos < length {
			break
		}
		name, ok := d.Opcodes.Name(opcode)
		if !ok {
			log.W(ctx, "Unknown opcode %d", opcode)
			break
		}
		in := &sliceSource{buf: buf[pos+HeaderSize : pos+length], arena: d.Arena}
		if err := d.packet(ctx, name, in, qswc, reply); err != nil {
			return pos, err
		}
		pos += length
	}
	return pos, nil
}

// packetLength returns the length of the packet at the start of buf. A bad
// length is clamped so that decoding can carry on.
func (d *Decoder) packetLength(ctx context.Context, opcode uint32, buf []byte) int {
	length := getUint(buf[4:], 4)
	if length >= HeaderSize && length <= commands.MaxPacketLength {
		return int(length)
	}
	log.W(ctx, "Bad packet length %d of opcode %d, decode may fail", length, opcode)
	d.Stats.BadPacketLength.Add(1)
	if length < HeaderSize {
		length = HeaderSize
	}
	if length > uint64(len(buf)) {
		length = uint64(len(buf))
	}
	return int(length)
}

func (d *Decoder) packet(ctx context.Context, name string, in *sliceSource, qswc bool, reply io.Writer) error {
	api, err := d.Codec.Command(name)
	if err != nil {
		return err
	}
	ctx = log.V{"command": name}.Bind(ctx)
	ordered := qswc && d.Sequencer != nil
	if qswc {
		seqno := uint32(in.value(4))
		if d.hasPrev && seqno == d.prevSeqno {
			log.W(ctx, "Sequence number %d is the same as previously processed, it might be a duplicate command", seqno)
			d.Stats.DuplicateSeqno.Add(1)
		}
		if ordered {
			if err := d.Sequencer.Wait(ctx, seqno); err != nil {
				return err
			}
		}
		d.prevSeqno, d.hasPrev = seqno, true
	}
	params := NewStruct(name, nil)
	dec := &decoder{c: d.Codec, in: in, chain: in, arena: d.Arena}
	if err := dec.params(api, params, api.Parameters); err != nil {
		return log.Err(ctx, err, "Decoding parameters")
	}
	relaxed := commands.Relaxed[api.OrigName]
	if ordered && relaxed {
		d.Sequencer.Advance()
	}
	ret, err := d.run(ctx, api, params)
	if err != nil {
		return err
	}
	if err := d.reply(api, params, ret, reply); err != nil {
		return err
	}
	if ordered && !relaxed {
		d.Sequencer.Advance()
	}
	d.Stats.Commands.Add(1)
	return nil
}

func (d *Decoder) run(ctx context.Context, api *types.APIInfo, params *Struct) (uint64, error) {
	if api.OrigName == FlushCommand {
		cb, _ := params.Get("commandBuffer").(Handle)
		data, _ := params.Get("pData").([]byte)
		_, err := d.SubDecode(ctx, cb, data)
		return 0, err
	}
	if d.Handler == nil {
		return 0, nil
	}
	return d.Handler(ctx, api, params)
}

func (d *Decoder) reply(api *types.APIInfo, params *Struct, ret uint64, reply io.Writer) error {
	outputs := commands.Outputs(api)
	if reply == nil || (len(outputs) == 0 && api.ReturnsVoid()) {
		return nil
	}
	w := endian.Writer(reply, endian.Big)
	out := writerSink{w}
	if err := d.Codec.encodeParams(out, api, params, outputs); err != nil {
		return err
	}
	if !api.ReturnsVoid() {
		out.value(d.Codec.Info.PrimEncodingSize(api.RetType.TypeName), ret)
	}
	return out.err()
}

// SubDecode runs the packets recorded into the command buffer cb. They
// carry no sequence number and no commandBuffer parameter, and produce no
// reply. It returns the number of bytes consumed.
func (d *Decoder) SubDecode(ctx context.Context, cb Handle, buf []byte) (int, error) {
	ctx = log.V{"commandBuffer": cb}.Bind(log.Enter(ctx, "SubDecode"))
	pos := 0
	for len(buf)-pos >= HeaderSize {
		opcode := uint32(getUint(buf[pos:], 4))
		length := d.packetLength(ctx, opcode, buf[pos:])
		if len(buf)-pos < length {
			break
		}
		name, ok := d.Opcodes.Name(opcode)
		if !ok {
			log.W(ctx, "Unknown opcode %d", opcode)
			break
		}
		api, err := d.Codec.Command(name)
		if err != nil {
			return pos, err
		}
		if !commands.IsSubDecoded(api) {
			log.W(ctx, "%v cannot be recorded into a command buffer", name)
			break
		}
		params := NewStruct(name, map[string]interface{}{api.Parameters[0].ParamName: cb})
		in := &sliceSource{buf: buf[pos+HeaderSize : pos+length], arena: d.Arena}
		dec := &decoder{c: d.Codec, in: in, chain: in, arena: d.Arena}
		if err := dec.params(api, params, api.Parameters[1:]); err != nil {
			return pos, log.Err(ctx, err, "Decoding parameters")
		}
		if d.Handler != nil {
			if _, err := d.Handler(ctx, api, params); err != nil {
				return pos, err
			}
		}
		d.Stats.Commands.Add(1)
		pos += length
	}
	return pos, nil
}

// Sequencer releases commands in sequence number order across streams.
// Sequence numbers start at one.
type Sequencer struct {
	mu   sync.Mutex
	last uint32
	wake chan struct{}
}

// NewSequencer returns a sequencer waiting for sequence number one.
func NewSequencer() *Sequencer { return &Sequencer{wake: make(chan struct{})} }

// Wait blocks until seqno is the next sequence number to run.
func (s *Sequencer) Wait(ctx context.Context, seqno uint32) error {
	for {
		s.mu.Lock()
		next, wake := seqno-s.last == 1, s.wake
		s.mu.Unlock()
		if next {
			return nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return log.Errf(ctx, ctx.Err(), "Waiting for sequence number %d", seqno)
		}
	}
}

// Advance marks the current sequence number as run.
func (s *Sequencer) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	close(s.wake)
	s.wake = make(chan struct{})
}

// Last returns the last sequence number run.
func (s *Sequencer) Last() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
