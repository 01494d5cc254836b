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
	"testing"

	"github.com/google/gfxcodegen/cereal/wire"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
)

func TestSlotTable(t *testing.T) {
	ctx := log.Testing(t)
	table := wire.SlotTable[string]{}

	a, b := table.Add("a"), table.Add("b")
	assert.For(ctx, "ids").That(a != b).Equals(true)
	assert.For(ctx, "non-zero").That(a != 0 && b != 0).Equals(true)
	assert.For(ctx, "len").That(table.Len()).Equals(2)

	v, ok := table.Lookup(a)
	assert.For(ctx, "lookup ok").That(ok).Equals(true)
	assert.For(ctx, "lookup").That(v).Equals("a")
	_, ok = table.Lookup(0)
	assert.For(ctx, "zero").That(ok).Equals(false)

	assert.For(ctx, "update").That(table.Update(b, "B")).Equals(true)
	v, _ = table.Lookup(b)
	assert.For(ctx, "updated").That(v).Equals("B")

	assert.For(ctx, "remove").That(table.Remove(a)).Equals(true)
	assert.For(ctx, "remove twice").That(table.Remove(a)).Equals(false)
	_, ok = table.Lookup(a)
	assert.For(ctx, "stale").That(ok).Equals(false)
	assert.For(ctx, "len after remove").That(table.Len()).Equals(1)

	c := table.Add("c")
	assert.For(ctx, "same slot").That(uint32(c)).Equals(uint32(a))
	assert.For(ctx, "new generation").That(c != a).Equals(true)
	_, ok = table.Lookup(a)
	assert.For(ctx, "stale after reuse").That(ok).Equals(false)
	assert.For(ctx, "stale update").That(table.Update(a, "x")).Equals(false)
	v, _ = table.Lookup(c)
	assert.For(ctx, "reused").That(v).Equals("c")
}
