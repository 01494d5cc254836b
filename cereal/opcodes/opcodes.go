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

// Package opcodes assigns the wire opcode of every Vulkan command.
//
// Commands that shipped before hashed assignment keep the numbers recorded in
// legacy.yaml. Every other command is given the leading 32 bits of the
// SHA-256 of its name, reduced into [First, Last). A hashed opcode that lands
// on an opcode already in use is moved to the next free value and reported,
// so that the new number can be pinned in the table before it ships.
package opcodes

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/google/gfxcodegen/core/fault"
	"github.com/google/gfxcodegen/core/log"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

const (
	// First is the lowest opcode handed out by hashing.
	First = 200000000
	// Last is one past the highest opcode handed out by hashing.
	Last = 300000000
	// FirstOld is the lowest legacy opcode.
	FirstOld = 20000
	// LastOld is one past the legacy opcode block.
	LastOld = 30000
	// LegacyMax is the highest legacy opcode actually assigned.
	LegacyMax = 20342
)

const (
	ErrDuplicate = fault.Const("Duplicate opcode")
	ErrRange     = fault.Const("Opcode out of range")
	ErrCollision = fault.Const("Hashed opcode collision")
)

//go:embed legacy.yaml
var legacyYAML []byte

// Table holds the hard-coded opcodes.
type Table struct {
	// Legacy opcodes, all in [FirstOld, LegacyMax].
	Legacy map[string]uint32 `yaml:"legacy"`
	// Pinned opcodes of hashed commands that collided, all in [First, Last).
	Pinned map[string]uint32 `yaml:"pinned"`
}

// Default returns the table compiled into the generator.
func Default() (*Table, error) {
	return Load(legacyYAML)
}

// Load parses and validates a YAML opcode table.
func Load(data []byte) (*Table, error) {
	t := &Table{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, errors.Wrap(err, "Parsing opcode table")
	}
	if t.Legacy == nil {
		t.Legacy = map[string]uint32{}
	}
	if t.Pinned == nil {
		t.Pinned = map[string]uint32{}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that every hard-coded opcode is in its range and that no
// two commands share one.
func (t *Table) Validate() error {
	errs := fault.List{}
	seen := map[uint32]string{}
	check := func(m map[string]uint32, lo, hi uint32, what string) {
		for _, name := range sortedKeys(m) {
			op := m[name]
			if op < lo || op > hi {
				errs.Collect(errors.Wrapf(ErrRange, "%s opcode %d of %s not in [%d, %d]", what, op, name, lo, hi))
				continue
			}
			if other, dup := seen[op]; dup {
				errs.Collect(errors.Wrapf(ErrDuplicate, "%s and %s both use %d", other, name, op))
				continue
			}
			seen[op] = name
		}
	}
	check(t.Legacy, FirstOld, LegacyMax, "legacy")
	check(t.Pinned, First, Last-1, "pinned")
	for name := range t.Pinned {
		if _, ok := t.Legacy[name]; ok {
			errs.Collect(errors.Wrapf(ErrDuplicate, "%s is both legacy and pinned", name))
		}
	}
	return errs.Err()
}

// Hash returns the hashed opcode of name before any collision is resolved.
func Hash(name string) uint32 {
	sum := sha256.Sum256([]byte(name))
	return binary.BigEndian.Uint32(sum[:4])%(Last-First) + First
}

// Assignment is the opcode of every command of one generation run.
type Assignment struct {
	// Names lists the commands in the order they were assigned.
	Names   []string
	opcodes map[string]uint32
	names   map[uint32]string
	// Fixups holds one pasteable pinned-table line per command moved off its hashed opcode.
	Fixups []string
}

// Opcode returns the opcode assigned to the command name.
func (a *Assignment) Opcode(name string) (uint32, bool) {
	op, ok := a.opcodes[name]
	return op, ok
}

// Name returns the command that was assigned op.
func (a *Assignment) Name(op uint32) (string, bool) {
	name, ok := a.names[op]
	return name, ok
}

// IsLegacy returns true if op lies in the legacy block.
func IsLegacy(op uint32) bool { return op >= FirstOld && op < LastOld }

// Assign gives every command in names an opcode. Names are processed in
// order, so the result is reproducible for a given command list. If any
// hashed opcode was taken the assignment is still returned in full,
// together with an error listing the fix-up lines.
func (t *Table) Assign(ctx context.Context, names []string) (*Assignment, error) {
	a := &Assignment{
		opcodes: map[string]uint32{},
		names:   map[uint32]string{},
	}
	// Reserve every hard-coded opcode up front, whether or not the command
	// takes part in this run.
	for name, op := range t.Legacy {
		a.names[op] = name
	}
	for name, op := range t.Pinned {
		a.names[op] = name
	}
	errs := fault.List{}
	for _, name := range names {
		if _, done := a.opcodes[name]; done {
			continue
		}
		a.Names = append(a.Names, name)
		if op, ok := t.Legacy[name]; ok {
			a.opcodes[name] = op
			continue
		}
		if op, ok := t.Pinned[name]; ok {
			a.opcodes[name] = op
			continue
		}
		op := Hash(name)
		moved := false
		for {
			if _, used := a.names[op]; !used {
				break
			}
			moved = true
			if op++; op == Last {
				op = First
			}
		}
		a.opcodes[name] = op
		a.names[op] = name
		if moved {
			fix := fmt.Sprintf("  %s: %d", name, op)
			a.Fixups = append(a.Fixups, fix)
			log.W(ctx, "Opcode of %s collides with %s. Pin it with:\n%s", name, a.names[Hash(name)], fix)
			errs.Collect(errors.Wrapf(ErrCollision, "%s hashes to %d", name, Hash(name)))
		}
	}
	return a, errs.Err()
}

func sortedKeys(m map[string]uint32) []string {
	out := maps.Keys(m)
	slices.Sort(out)
	return out
}
