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
	eb "encoding/binary"

	"github.com/google/gfxcodegen/core/data/binary"
	"github.com/google/gfxcodegen/core/memory/arena"
	"github.com/pkg/errors"
)

// sink receives the big-endian encoding of a value.
type sink interface {
	value(size int, v uint64)
	bytes(p []byte)
	err() error
}

// source yields the values a sink received.
type source interface {
	value(size int) uint64
	// bytes returns the next n bytes. The result may alias the input.
	bytes(n int) []byte
	err() error
}

// writerSink streams through a binary.Writer.
type writerSink struct{ w binary.Writer }

func (s writerSink) value(size int, v uint64) { binary.WriteUint(s.w, int32(size*8), v) }
func (s writerSink) bytes(p []byte)          { s.w.Data(p) }
func (s writerSink) err() error              { return s.w.Error() }

// readerSource streams from a binary.Reader.
type readerSource struct{ r binary.Reader }

func (s readerSource) value(size int) uint64 { return binary.ReadUint(s.r, int32(size*8)) }
func (s readerSource) err() error           { return s.r.Error() }
func (s readerSource) bytes(n int) []byte {
	if n < 0 {
		s.r.SetError(errors.Wrapf(ErrCorrupt, "Negative length %d", n))
		return nil
	}
	out := make([]byte, n)
	s.r.Data(out)
	return out
}

// countSink adds up the bytes it is given.
type countSink struct{ n int }

func (s *countSink) value(size int, v uint64) { s.n += size }
func (s *countSink) bytes(p []byte)          { s.n += len(p) }
func (s *countSink) err() error              { return nil }

// reservedSink writes into a caller owned buffer through a cursor that only
// moves forward.
type reservedSink struct {
	buf    []byte
	cursor int
	failed error
}

func (s *reservedSink) reserve(n int) []byte {
	if s.failed != nil {
		return nil
	}
	if s.cursor+n > len(s.buf) {
		s.failed = errors.Wrapf(ErrOverflow, "%d bytes at offset %d of %d", n, s.cursor, len(s.buf))
		return nil
	}
	out := s.buf[s.cursor : s.cursor+n]
	s.cursor += n
	return out
}

func (s *reservedSink) value(size int, v uint64) {
	p := s.reserve(size)
	if p == nil {
		return
	}
	putUint(p, size, v)
}

func (s *reservedSink) bytes(p []byte) {
	if out := s.reserve(len(p)); out != nil {
		copy(out, p)
	}
}

func (s *reservedSink) err() error { return s.failed }

// sliceSource reads a received buffer through a cursor. Blobs are copied
// into the arena when one is given.
type sliceSource struct {
	buf    []byte
	cursor int
	arena  *arena.Arena
	failed error
}

func (s *sliceSource) take(n int) []byte {
	if s.failed != nil {
		return nil
	}
	if n < 0 || s.cursor+n > len(s.buf) {
		s.failed = errors.Wrapf(ErrCorrupt, "Reading %d bytes at offset %d of %d", n, s.cursor, len(s.buf))
		return nil
	}
	out := s.buf[s.cursor : s.cursor+n : s.cursor+n]
	s.cursor += n
	return out
}

func (s *sliceSource) value(size int) uint64 {
	p := s.take(size)
	if p == nil {
		return 0
	}
	return getUint(p, size)
}

func (s *sliceSource) bytes(n int) []byte {
	p := s.take(n)
	if p == nil || s.arena == nil {
		return p
	}
	return s.arena.Copy(p)
}

func (s *sliceSource) err() error { return s.failed }

// replaySource yields head, which was already taken from src, before
// reading on from src.
type replaySource struct {
	head []byte
	src  source
}

func (s *replaySource) value(size int) uint64 {
	if len(s.head) == 0 {
		return s.src.value(size)
	}
	p := s.bytes(size)
	if len(p) < size {
		return 0
	}
	return getUint(p, size)
}

func (s *replaySource) bytes(n int) []byte {
	if len(s.head) == 0 {
		return s.src.bytes(n)
	}
	if n <= len(s.head) {
		out := s.head[:n:n]
		s.head = s.head[n:]
		return out
	}
	out := append(append([]byte{}, s.head...), s.src.bytes(n-len(s.head))...)
	s.head = nil
	return out
}

func (s *replaySource) err() error { return s.src.err() }

func putUint(p []byte, size int, v uint64) {
	switch size {
	case 1:
		p[0] = byte(v)
	case 2:
		eb.BigEndian.PutUint16(p, uint16(v))
	case 4:
		eb.BigEndian.PutUint32(p, uint32(v))
	default:
		eb.BigEndian.PutUint64(p, v)
	}
}

func getUint(p []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(p[0])
	case 2:
		return uint64(eb.BigEndian.Uint16(p))
	case 4:
		return uint64(eb.BigEndian.Uint32(p))
	default:
		return eb.BigEndian.Uint64(p)
	}
}
