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

// Package aco holds the instruction catalogue of the ACO shader compiler
// and generates the aco_opcodes tables from it.
//
// Every instruction has an opcode per hardware generation. Within one
// generation no two instructions of the same encoding format may share an
// opcode, bar a handful of pairs where the hardware really does alias them.
package aco

import (
	_ "embed"
	"fmt"

	"github.com/google/gfxcodegen/core/fault"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ErrCollision = fault.Const("ACO opcode collision")
	ErrCatalogue = fault.Const("Bad ACO catalogue")
)

//go:embed opcodes.yaml
var opcodesYAML []byte

// Gen is a hardware generation.
type Gen int

const (
	GFX6 Gen = iota
	GFX7
	GFX8
	GFX9
	GFX10
	GFX11
	NumGens
)

var genNames = [NumGens]string{"gfx6", "gfx7", "gfx8", "gfx9", "gfx10", "gfx11"}

func (g Gen) String() string {
	if g < 0 || g >= NumGens {
		return fmt.Sprintf("gfx?%d", int(g))
	}
	return genNames[g]
}

func genByName(name string) (Gen, bool) {
	for i, n := range genNames {
		if n == name {
			return Gen(i), true
		}
	}
	return 0, false
}

// Opcode is the opcode of an instruction on every generation, -1 where the
// instruction does not exist.
type Opcode [NumGens]int

// Absent is the opcode of a generation lacking the instruction.
const Absent = -1

// UnmarshalYAML accepts either a single opcode for every generation or a
// map of generation to opcode. Missing generations inherit the opcode of
// the previous one, the first defaults to Absent.
func (o *Opcode) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		var v int
		if err := n.Decode(&v); err != nil {
			return err
		}
		for g := range o {
			o[g] = v
		}
		return nil
	}
	byGen := map[string]int{}
	if err := n.Decode(&byGen); err != nil {
		return err
	}
	var set [NumGens]bool
	for name, v := range byGen {
		g, ok := genByName(name)
		if !ok {
			return errors.Wrapf(ErrCatalogue, "line %d: unknown generation %q", n.Line, name)
		}
		o[g], set[g] = v, true
	}
	for g := range o {
		switch {
		case set[g]:
		case g == 0:
			o[g] = Absent
		default:
			o[g] = o[g-1]
		}
	}
	return nil
}

// Instruction is one entry of the catalogue.
type Instruction struct {
	Name   string
	Format Format
	Op     Opcode
	// Defs and Ops are the number of definitions and operands.
	Defs, Ops int
	// InMod is set for instructions taking neg and abs, OutMod for those
	// taking clamp and omod.
	InMod, OutMod bool
	Atomic        bool
	Class         string
}

// entry is an instruction as written in the YAML catalogue. Unset counts
// and classes take the default of the format.
type entry struct {
	Name   string  `yaml:"name"`
	Op     *Opcode `yaml:"op"`
	Defs   *int    `yaml:"defs"`
	Ops    *int    `yaml:"ops"`
	Mods   bool    `yaml:"mods"`
	InMod  bool    `yaml:"in_mod"`
	OutMod bool    `yaml:"out_mod"`
	Atomic bool    `yaml:"atomic"`
	Class  string  `yaml:"cls"`
}

type group struct {
	Format       string   `yaml:"format"`
	Instructions []*entry `yaml:"instructions"`
}

func (e *entry) instruction(f Format) (*Instruction, error) {
	if e.Name == "" {
		return nil, errors.Wrapf(ErrCatalogue, "unnamed %v instruction", f)
	}
	def := f.info()
	i := &Instruction{
		Name:   e.Name,
		Format: f,
		Defs:   def.defs,
		Ops:    def.ops,
		InMod:  e.Mods || e.InMod,
		OutMod: e.Mods || e.OutMod,
		Atomic: e.Atomic,
		Class:  def.class,
	}
	switch {
	case e.Op != nil:
		i.Op = *e.Op
	case f.IsPseudo():
		i.Op = Opcode{Absent, Absent, Absent, Absent, Absent, Absent}
	default:
		return nil, errors.Wrapf(ErrCatalogue, "%v has no opcode", e.Name)
	}
	if e.Defs != nil {
		i.Defs = *e.Defs
	}
	if e.Ops != nil {
		i.Ops = *e.Ops
	}
	if e.Class != "" {
		i.Class = e.Class
	}
	if _, ok := classValues[i.Class]; !ok {
		return nil, errors.Wrapf(ErrCatalogue, "%v has unknown class %q", e.Name, i.Class)
	}
	return i, nil
}

// Catalogue is the set of instructions in declaration order.
type Catalogue struct {
	Instructions []*Instruction
	byName       map[string]*Instruction
}

// Default returns the catalogue compiled into the generator.
func Default() (*Catalogue, error) { return Load(opcodesYAML) }

// Load parses a YAML catalogue. It does not check for collisions, see
// Validate.
func Load(data []byte) (*Catalogue, error) {
	groups := []group{}
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, errors.Wrap(err, "Parsing ACO catalogue")
	}
	c := &Catalogue{byName: map[string]*Instruction{}}
	for _, grp := range groups {
		f, ok := FormatByName(grp.Format)
		if !ok {
			return nil, errors.Wrapf(ErrCatalogue, "unknown format %q", grp.Format)
		}
		for _, e := range grp.Instructions {
			i, err := e.instruction(f)
			if err != nil {
				return nil, err
			}
			if _, dup := c.byName[i.Name]; dup {
				return nil, errors.Wrapf(ErrCatalogue, "%v declared twice", i.Name)
			}
			c.Instructions = append(c.Instructions, i)
			c.byName[i.Name] = i
		}
	}
	return c, nil
}

// Instruction returns the named instruction, or nil.
func (c *Catalogue) Instruction(name string) *Instruction { return c.byName[name] }
