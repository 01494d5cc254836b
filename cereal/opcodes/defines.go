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

package opcodes

import (
	"fmt"

	"github.com/google/gfxcodegen/cereal/emit"
)

// Define returns the OP_ define of an assigned command.
func (a *Assignment) Define(name string) string {
	return fmt.Sprintf("#define OP_%s %d", name, a.opcodes[name])
}

// WriteDefines emits an OP_ define for every assigned command followed by
// the range sentinels.
func (a *Assignment) WriteDefines(g *emit.CodeGen) {
	for _, name := range a.Names {
		g.Line(a.Define(name))
	}
	WriteSentinels(g)
}

// WriteSentinels emits the bounds of the legacy and hashed opcode ranges.
func WriteSentinels(g *emit.CodeGen) {
	g.Line(fmt.Sprintf("#define OP_vkFirst_old %d", FirstOld))
	g.Line(fmt.Sprintf("#define OP_vkLast_old %d", LastOld))
	g.Line(fmt.Sprintf("#define OP_vkFirst %d", First))
	g.Line(fmt.Sprintf("#define OP_vkLast %d", Last))
}
