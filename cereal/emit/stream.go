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

package emit

import "fmt"

// Direction is the way a visitor moves primitives across the wire.
type Direction int

const (
	// Write puts values through a VulkanStream.
	Write Direction = iota
	// Read gets values from a VulkanStream.
	Read
	// ReservedWrite writes into a preallocated buffer through a cursor.
	ReservedWrite
	// ReservedRead reads from a received buffer through a cursor.
	ReservedRead
	// Count accumulates the number of bytes Write would produce.
	Count
)

// Stream streams primitives in one direction. Multi-byte values are always
// big-endian on the wire.
type Stream struct {
	Dir Direction
	// Var is the stream, cursor or counter pointer.
	Var string
	// Alloc is the object providing alloc() for variable length reads.
	Alloc string
}

// IsRead returns true for the decoding directions.
func (s Stream) IsRead() bool { return s.Dir == Read || s.Dir == ReservedRead }

// UintType returns the unsigned C type of the given size.
func UintType(size int) string { return fmt.Sprintf("uint%d_t", size*8) }

func suffix(size int) string {
	if size == 1 {
		return "Byte"
	}
	return fmt.Sprintf("Be%d", size*8)
}

// Primitive streams the lvalue of the given wire size.
func (s Stream) Primitive(g *CodeGen, size int, lvalue string) {
	ut := UintType(size)
	switch s.Dir {
	case Write:
		g.Stmt("%s->put%s(*(const %s*)&%s)", s.Var, suffix(size), ut, lvalue)
	case Read:
		g.Stmt("*(%s*)&%s = (%s)%s->get%s()", ut, lvalue, ut, s.Var, suffix(size))
	case ReservedWrite:
		g.Stmt("memcpy(*%s, (const %s*)&%s, %d)", s.Var, ut, lvalue, size)
		if size > 1 {
			g.Stmt("android::base::Stream::toBe%d((uint8_t*)*%s)", size*8, s.Var)
		}
		g.Stmt("*%s += %d", s.Var, size)
	case ReservedRead:
		g.Stmt("memcpy((%s*)&%s, *%s, %d)", ut, lvalue, s.Var, size)
		if size > 1 {
			g.Stmt("android::base::Stream::fromBe%d((uint8_t*)&%s)", size*8, lvalue)
		}
		g.Stmt("*%s += %d", s.Var, size)
	case Count:
		g.Stmt("*%s += %d", s.Var, size)
	}
}

// Temp declares an unsigned temporary of the given size, initialized from
// init when writing, and returns its name.
func (s Stream) Temp(g *CodeGen, size int, init string) string {
	v := g.Var()
	if s.IsRead() || init == "" {
		g.Stmt("%s %s", UintType(size), v)
	} else {
		g.Stmt("%s %s = (%s)%s", UintType(size), v, UintType(size), init)
	}
	return v
}

// Value writes or reads a computed value through a temporary and returns the
// temporary's name. Counting only adds the size.
func (s Stream) Value(g *CodeGen, size int, init string) string {
	if s.Dir == Count {
		s.Primitive(g, size, "")
		return ""
	}
	v := s.Temp(g, size, init)
	s.Primitive(g, size, v)
	return v
}

// Bytes streams n raw bytes at ptr.
func (s Stream) Bytes(g *CodeGen, ptr, n string) {
	switch s.Dir {
	case Write:
		g.Stmt("%s->write((const void*)%s, %s)", s.Var, ptr, n)
	case Read:
		g.Stmt("%s->read((void*)%s, %s)", s.Var, ptr, n)
	case ReservedWrite:
		g.Stmt("memcpy(*%s, (const void*)%s, %s)", s.Var, ptr, n)
		g.Stmt("*%s += %s", s.Var, n)
	case ReservedRead:
		g.Stmt("memcpy((void*)%s, *%s, %s)", ptr, s.Var, n)
		g.Stmt("*%s += %s", s.Var, n)
	case Count:
		g.Stmt("*%s += %s", s.Var, n)
	}
}

// Allocate reserves n bytes for the pointer lvalue in the read directions.
func (s Stream) Allocate(g *CodeGen, lvalue, n string) {
	if s.IsRead() {
		g.Stmt("%s->alloc((void**)&%s, %s)", s.Alloc, lvalue, n)
	}
}

// String streams a null-terminated string as a 32-bit length and its bytes.
func (s Stream) String(g *CodeGen, lvalue string) {
	switch s.Dir {
	case Write:
		g.Stmt("%s->putString(%s)", s.Var, lvalue)
	case Read:
		g.Stmt("%s->loadStringInPlace((char**)&%s)", s.Var, lvalue)
	case ReservedWrite:
		v := s.Temp(g, 4, "strlen("+lvalue+")")
		s.Primitive(g, 4, v)
		s.Bytes(g, lvalue, v)
	case ReservedRead:
		g.Stmt("%s->loadStringInPlaceWithStreamPtr((char**)&%s, %s)", s.Alloc, lvalue, s.Var)
	case Count:
		g.Stmt("*%s += sizeof(uint32_t) + (%s ? strlen(%s) : 0)", s.Var, lvalue, lvalue)
	}
}

// StringArray streams count strings as a 32-bit count and each string.
func (s Stream) StringArray(g *CodeGen, lvalue, count string) {
	switch s.Dir {
	case Write:
		g.Stmt("saveStringArray(%s, %s, %s)", s.Var, lvalue, count)
	case Read:
		g.Stmt("%s->loadStringArrayInPlace((char***)&%s)", s.Var, lvalue)
	case ReservedWrite:
		n := s.Temp(g, 4, count)
		s.Primitive(g, 4, n)
		idx := g.VarWithPrefix("i")
		g.BeginLoop(idx, n)
		s.String(g, fmt.Sprintf("%s[%s]", lvalue, idx))
		g.EndFor()
	case ReservedRead:
		g.Stmt("%s->loadStringArrayInPlaceWithStreamPtr((char***)&%s, %s)", s.Alloc, lvalue, s.Var)
	case Count:
		g.Stmt("*%s += sizeof(uint32_t)", s.Var)
		idx := g.VarWithPrefix("i")
		g.BeginLoop(idx, count)
		g.Stmt("*%s += sizeof(uint32_t) + (%s[%s] ? strlen(%s[%s]) : 0)", s.Var, lvalue, idx, lvalue, idx)
		g.EndFor()
	}
}
