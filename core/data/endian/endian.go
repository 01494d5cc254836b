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

// Package endian provides binary.Reader and binary.Writer implementations
// over io streams in a chosen byte order.
package endian

import (
	eb "encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/google/gfxcodegen/core/data/binary"
)

// Order selects the byte order of multi-byte values.
type Order int

const (
	// Big orders the most significant byte first. This is the stream order.
	Big Order = iota
	// Little orders the least significant byte first.
	Little
)

func (o Order) byteOrder() eb.ByteOrder {
	if o == Little {
		return eb.LittleEndian
	}
	return eb.BigEndian
}

// MaxStringLength bounds the length prefix accepted by String reads.
const MaxStringLength = 1 << 28

// Reader creates a binary.Reader that reads from the provided io.Reader, with
// the specified byte order.
func Reader(r io.Reader, o Order) binary.Reader {
	return &reader{reader: r, order: o.byteOrder()}
}

// Writer creates a binary.Writer that writes to the supplied stream, with the
// specified byte order.
func Writer(w io.Writer, o Order) binary.Writer {
	return &writer{writer: w, order: o.byteOrder()}
}

type reader struct {
	reader io.Reader
	tmp    [8]byte
	order  eb.ByteOrder
	offset uint64
	err    error
}

type writer struct {
	writer io.Writer
	tmp    [8]byte
	order  eb.ByteOrder
	err    error
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.offset += uint64(n)
	return n, err
}

func (r *reader) Offset() uint64 { return r.offset }

func (r *reader) Data(p []byte) {
	if r.err != nil {
		return
	}
	n, err := io.ReadFull(r.reader, p)
	r.offset += uint64(n)
	if err != nil {
		r.err = fmt.Errorf("%v after reading %d of %d bytes", err, n, len(p))
	}
}

func (r *reader) fill(size int) []byte {
	b := r.tmp[:size]
	if r.err != nil {
		for i := range b {
			b[i] = 0
		}
		return b
	}
	r.Data(b)
	if r.err != nil {
		for i := range b {
			b[i] = 0
		}
	}
	return b
}

func (w *writer) Data(data []byte) {
	if w.err != nil {
		return
	}
	n, err := w.writer.Write(data)
	if err != nil {
		w.err = err
	} else if n != len(data) {
		w.err = io.ErrShortWrite
	}
}

func (r *reader) Bool() bool { return r.Uint8() != 0 }

func (w *writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

func (r *reader) Int8() int8    { return int8(r.Uint8()) }
func (w *writer) Int8(v int8)   { w.Uint8(uint8(v)) }
func (r *reader) Uint8() uint8  { return r.fill(1)[0] }
func (w *writer) Uint8(v uint8) { w.tmp[0] = v; w.Data(w.tmp[:1]) }

func (r *reader) Int16() int16   { return int16(r.Uint16()) }
func (w *writer) Int16(v int16)  { w.Uint16(uint16(v)) }
func (r *reader) Uint16() uint16 { return r.order.Uint16(r.fill(2)) }
func (w *writer) Uint16(v uint16) {
	w.order.PutUint16(w.tmp[:2], v)
	w.Data(w.tmp[:2])
}

func (r *reader) Int32() int32   { return int32(r.Uint32()) }
func (w *writer) Int32(v int32)  { w.Uint32(uint32(v)) }
func (r *reader) Uint32() uint32 { return r.order.Uint32(r.fill(4)) }
func (w *writer) Uint32(v uint32) {
	w.order.PutUint32(w.tmp[:4], v)
	w.Data(w.tmp[:4])
}

func (r *reader) Int64() int64   { return int64(r.Uint64()) }
func (w *writer) Int64(v int64)  { w.Uint64(uint64(v)) }
func (r *reader) Uint64() uint64 { return r.order.Uint64(r.fill(8)) }
func (w *writer) Uint64(v uint64) {
	w.order.PutUint64(w.tmp[:8], v)
	w.Data(w.tmp[:8])
}

func (r *reader) Float32() float32  { return math.Float32frombits(r.Uint32()) }
func (w *writer) Float32(v float32) { w.Uint32(math.Float32bits(v)) }
func (r *reader) Float64() float64  { return math.Float64frombits(r.Uint64()) }
func (w *writer) Float64(v float64) { w.Uint64(math.Float64bits(v)) }

func (r *reader) String() string {
	size := r.Uint32()
	if r.err != nil {
		return ""
	}
	if size > MaxStringLength {
		r.err = fmt.Errorf("String length %d exceeds limit", size)
		return ""
	}
	buf := make([]byte, size)
	r.Data(buf)
	if r.err != nil {
		return ""
	}
	return string(buf)
}

func (w *writer) String(v string) {
	w.Uint32(uint32(len(v)))
	w.Data([]byte(v))
}

func (w *writer) Error() error { return w.err }
func (r *reader) Error() error { return r.err }

func (r *reader) SetError(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (w *writer) SetError(err error) {
	if w.err == nil {
		w.err = err
	}
}
