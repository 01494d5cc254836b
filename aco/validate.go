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

package aco

import (
	"context"

	"github.com/google/gfxcodegen/core/fault"
	"github.com/google/gfxcodegen/core/log"
	"github.com/pkg/errors"
)

// sharedOpcodes are the instruction pairs that may share an opcode on the
// listed generations.
var sharedOpcodes = []struct {
	gens []Gen
	a, b string
}{
	{[]Gen{GFX8, GFX9, GFX11}, "v_mul_lo_i32", "v_mul_lo_u32"},
	// GFX10.3 replaced the legacy mad and mac with fma and fmac.
	{[]Gen{GFX10}, "v_mad_legacy_f32", "v_fma_legacy_f32"},
	{[]Gen{GFX10}, "v_mac_legacy_f32", "v_fmac_legacy_f32"},
}

// Shared returns true if a and b may share an opcode on g.
func Shared(g Gen, a, b string) bool {
	for _, s := range sharedOpcodes {
		if (s.a != a || s.b != b) && (s.a != b || s.b != a) {
			continue
		}
		for _, sg := range s.gens {
			if sg == g {
				return true
			}
		}
	}
	return false
}

type slot struct {
	format Format
	op     int
}

// Validate checks that on every generation the pair of format and opcode
// identifies a single instruction. Every collision is reported.
func (c *Catalogue) Validate(ctx context.Context) error {
	ctx = log.Enter(ctx, "aco.Validate")
	errs := fault.List{}
	for g := Gen(0); g < NumGens; g++ {
		owner := map[slot]string{}
		for _, i := range c.Instructions {
			op := i.Op[g]
			if i.Format.IsPseudo() || op == Absent {
				continue
			}
			if op < Absent {
				errs.Collect(errors.Wrapf(ErrCatalogue, "%v has opcode %d on %v", i.Name, op, g))
				continue
			}
			key := slot{i.Format, op}
			prev, taken := owner[key]
			if !taken {
				owner[key] = i.Name
				continue
			}
			if Shared(g, prev, i.Name) {
				log.D(ctx, "%v and %v share %v opcode 0x%x on %v", prev, i.Name, i.Format, op, g)
				continue
			}
			errs.Collect(errors.Wrapf(ErrCollision, "%v and %v share the same %v opcode number (0x%x) on %v",
				prev, i.Name, i.Format, op, g))
		}
	}
	return errs.Err()
}

// Validate checks the catalogue compiled into the generator.
func Validate(ctx context.Context) error {
	c, err := Default()
	if err != nil {
		return err
	}
	return c.Validate(ctx)
}
