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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/gfxcodegen/cereal"
	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/core/app"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/registry"
)

func init() {
	app.AddVerb(&app.Verb{
		Name:      "opcodes",
		ShortHelp: "Prints the command opcode table, or checks it for hash collisions",
		Action:    &opcodesVerb{},
	})
}

type opcodesVerb struct {
	GeneratorFlags
	Check bool `help:"only check for collisions, printing the lines to pin"`
}

func (v *opcodesVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	cfg, err := v.resolve(ctx, flags)
	if err != nil {
		return err
	}
	opts := cfg.Options()
	api := opts.Registry.API
	if api == "" {
		api = "vulkan"
	}
	reg := registry.New(api)
	for _, path := range opts.Registries {
		if err := reg.LoadFile(ctx, path); err != nil {
			return err
		}
	}
	names, err := cereal.Commands(ctx, reg, opts.Registry)
	if err != nil {
		return err
	}
	table, err := opcodes.Default()
	if err != nil {
		return err
	}
	a, err := table.Assign(ctx, names)
	if v.Check {
		if err != nil {
			fmt.Fprintln(os.Stdout, "pinned:")
			for _, fix := range a.Fixups {
				fmt.Fprintln(os.Stdout, fix)
			}
			return err
		}
		log.I(ctx, "%d opcodes, no collisions", len(a.Names))
		return nil
	}
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 1, 4, 1, ' ', 0)
	for _, name := range a.Names {
		op, _ := a.Opcode(name)
		kind := "hashed"
		if opcodes.IsLegacy(op) {
			kind = "legacy"
		}
		fmt.Fprintf(w, "OP_%s\t%d\t%s\n", name, op, kind)
	}
	return w.Flush()
}
