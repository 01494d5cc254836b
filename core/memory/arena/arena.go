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

// Package arena implements a resettable bump allocator for byte blocks.
//
// Blocks handed out by an Arena stay valid until the next call to Reset, after
// which the backing chunks are reused. This matches the lifetime of values
// decoded for a single command.
package arena

import (
	"context"
	"fmt"
)

const defaultChunkSize = 4096

// Arena is a bump allocator that owns each of the blocks returned by
// Allocate.
type Arena struct {
	chunks    [][]byte
	current   int
	used      int
	numAllocs int
	numBytes  int
}

// New constructs a new, empty arena.
func New() *Arena { return &Arena{} }

// Allocate returns a zeroed block of size bytes whose start offset within its
// chunk is a multiple of alignment. alignment must be a power of two.
func (a *Arena) Allocate(size, alignment int) []byte {
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		panic(fmt.Sprintf("invalid alignment %d", alignment))
	}
	for {
		if a.current < len(a.chunks) {
			chunk := a.chunks[a.current]
			start := (a.used + alignment - 1) &^ (alignment - 1)
			if start+size <= len(chunk) {
				a.used = start + size
				a.numAllocs++
				a.numBytes += size
				out := chunk[start : start+size : start+size]
				for i := range out {
					out[i] = 0
				}
				return out
			}
			if a.current+1 < len(a.chunks) && size <= len(a.chunks[a.current+1]) {
				a.current, a.used = a.current+1, 0
				continue
			}
		}
		chunkSize := defaultChunkSize
		if size+alignment > chunkSize {
			chunkSize = size + alignment
		}
		a.chunks = append(a.chunks, make([]byte, chunkSize))
		a.current, a.used = len(a.chunks)-1, 0
	}
}

// Copy returns an arena-owned copy of data.
func (a *Arena) Copy(data []byte) []byte {
	out := a.Allocate(len(data), 1)
	copy(out, data)
	return out
}

// Reset releases every block, keeping the chunks for reuse.
func (a *Arena) Reset() {
	a.current, a.used = 0, 0
	a.numAllocs, a.numBytes = 0, 0
}

// Stats holds statistics of an Arena.
type Stats struct {
	NumAllocations    int
	NumBytesAllocated int
	NumChunks         int
}

func (s Stats) String() string {
	return fmt.Sprintf("{allocs: %v, bytes: %v, chunks: %v}", s.NumAllocations, s.NumBytesAllocated, s.NumChunks)
}

// Stats returns statistics of the current state of the Arena.
func (a *Arena) Stats() Stats {
	return Stats{a.numAllocs, a.numBytes, len(a.chunks)}
}

type arenaKeyTy string

const arenaKey = arenaKeyTy("arena")

// Get returns the Arena attached to the given context, or nil.
func Get(ctx context.Context) *Arena {
	if val := ctx.Value(arenaKey); val != nil {
		return val.(*Arena)
	}
	return nil
}

// Put amends a Context by attaching an Arena reference.
func Put(ctx context.Context, a *Arena) context.Context {
	return context.WithValue(ctx, arenaKey, a)
}
