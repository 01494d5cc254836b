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

import "sync"

// SlotTable holds the objects behind boxed handles. The id of an entry is
// its slot generation in the high 32 bits and its slot index in the low 32
// bits. Freed slots are reused with the next generation, so the ids of
// removed entries stop resolving. Zero is never a valid id.
type SlotTable[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
	live  int
}

type slot[T any] struct {
	gen  uint32
	used bool
	v    T
}

func split(id Handle) (gen, index uint32) { return uint32(id >> 32), uint32(id) }

// Add stores v and returns its id.
func (t *SlotTable[T]) Add(v T) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	var index uint32
	if n := len(t.free); n > 0 {
		index, t.free = t.free[n-1], t.free[:n-1]
	} else {
		index = uint32(len(t.slots))
		t.slots = append(t.slots, slot[T]{})
	}
	s := &t.slots[index]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.used, s.v = true, v
	t.live++
	return Handle(uint64(s.gen)<<32 | uint64(index))
}

func (t *SlotTable[T]) get(id Handle) *slot[T] {
	gen, index := split(id)
	if int(index) >= len(t.slots) {
		return nil
	}
	s := &t.slots[index]
	if !s.used || s.gen != gen {
		return nil
	}
	return s
}

// Lookup returns the value of id.
func (t *SlotTable[T]) Lookup(id Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s := t.get(id); s != nil {
		return s.v, true
	}
	var zero T
	return zero, false
}

// Update replaces the value of id.
func (t *SlotTable[T]) Update(id Handle, v T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(id)
	if s == nil {
		return false
	}
	s.v = v
	return true
}

// Remove frees the slot of id.
func (t *SlotTable[T]) Remove(id Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(id)
	if s == nil {
		return false
	}
	var zero T
	s.used, s.v = false, zero
	_, index := split(id)
	t.free = append(t.free, index)
	t.live--
	return true
}

// Len returns the number of live entries.
func (t *SlotTable[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}
