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

package binary

// BitStream provides methods for reading and writing bits to a slice of bytes.
// Bits are packed in a least-significant-bit to most-significant-bit order.
type BitStream struct {
	Data     []byte // The byte slice containing the bits
	ReadPos  uint32 // The current read offset from the start of the Data slice (in bits)
	WritePos uint32 // The current write offset from the start of the Data slice (in bits)
}

// ReadBit reads a single bit from the BitStream, incrementing ReadPos by one.
func (s *BitStream) ReadBit() uint64 {
	pos := s.ReadPos
	s.ReadPos++
	return (uint64(s.Data[pos/8]) >> (pos % 8)) & 1
}

// WriteBit writes a single bit to the BitStream, incrementing WritePos by one.
func (s *BitStream) WriteBit(bit uint64) {
	s.Write(bit, 1)
}

// CanRead returns true if there's enough data to call Read(count).
func (s *BitStream) CanRead(count uint32) bool {
	return int(s.ReadPos+count) <= len(s.Data)*8
}

// Read reads count bits from the BitStream, incrementing ReadPos by count and
// returning the bits packed LSB first into a uint64.
func (s *BitStream) Read(count uint32) uint64 {
	val := uint64(0)
	for done := uint32(0); done < count; {
		byteIdx, bitIdx := s.ReadPos/8, s.ReadPos%8
		n := 8 - bitIdx
		if n > count-done {
			n = count - done
		}
		chunk := (uint64(s.Data[byteIdx]) >> bitIdx) & ((1 << n) - 1)
		val |= chunk << done
		done += n
		s.ReadPos += n
	}
	return val
}

// Write writes the low count bits of bits to the BitStream, LSB first,
// incrementing WritePos by count.
func (s *BitStream) Write(bits uint64, count uint32) {
	if reqBytes := (int(s.WritePos) + int(count) + 7) / 8; reqBytes > len(s.Data) {
		if reqBytes <= cap(s.Data) {
			s.Data = s.Data[:reqBytes]
		} else {
			buf := make([]byte, reqBytes, reqBytes*2)
			copy(buf, s.Data)
			s.Data = buf
		}
	}
	for count > 0 {
		byteIdx, bitIdx := s.WritePos/8, s.WritePos%8
		n := 8 - bitIdx
		if n > count {
			n = count
		}
		mask := byte(((1 << n) - 1) << bitIdx)
		s.Data[byteIdx] = (s.Data[byteIdx] &^ mask) | (byte(bits<<bitIdx) & mask)
		s.WritePos += n
		count -= n
		bits >>= n
	}
}

// Field returns the count bits starting at bit offset in data, without
// moving the stream positions.
func (s *BitStream) Field(offset, count uint32) uint64 {
	r := BitStream{Data: s.Data, ReadPos: offset}
	return r.Read(count)
}

// SetField overwrites the count bits starting at bit offset with the low bits
// of v, without moving the stream positions.
func (s *BitStream) SetField(offset, count uint32, v uint64) {
	w := BitStream{Data: s.Data, WritePos: offset}
	w.Write(v, count)
	s.Data = w.Data
}
