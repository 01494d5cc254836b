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

package arena_test

import (
	"context"
	"testing"

	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/core/memory/arena"
)

func TestArenaStats(t *testing.T) {
	ctx := log.Testing(t)
	a := arena.New()

	assert.For(ctx, "empty arena").That(a.Stats()).Equals(arena.Stats{})

	a.Allocate(10, 4)
	assert.For(ctx, "num alloc").ThatInteger(int64(a.Stats().NumAllocations)).Equals(1)
	assert.For(ctx, "bytes alloc").ThatInteger(int64(a.Stats().NumBytesAllocated)).IsAtLeast(10)

	a.Reset()
	assert.For(ctx, "reset").ThatInteger(int64(a.Stats().NumAllocations)).Equals(0)
	assert.For(ctx, "chunks kept").ThatInteger(int64(a.Stats().NumChunks)).Equals(1)
}

func TestArenaBlocks(t *testing.T) {
	assert := assert.To(t)
	a := arena.New()
	first := a.Copy([]byte("vkCreateBuffer"))
	second := a.Allocate(3, 8)
	second[0] = 0xff
	big := a.Allocate(10000, 16)
	assert.For("first").ThatString(string(first)).Equals("vkCreateBuffer")
	assert.For("big").ThatSlice(big).IsLength(10000)
	assert.For("chunks").ThatInteger(int64(a.Stats().NumChunks)).Equals(2)

	a.Reset()
	again := a.Allocate(3, 8)
	assert.For("zeroed").ThatSlice(again).Equals([]byte{0, 0, 0})
}

func TestContext(t *testing.T) {
	a := arena.New()
	ctx := arena.Put(context.Background(), a)
	assert.For(t, "get").That(arena.Get(ctx) == a).Equals(true)
	assert.For(t, "missing").That(arena.Get(context.Background()) == nil).Equals(true)
}
