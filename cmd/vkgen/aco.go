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

	"github.com/google/gfxcodegen/aco"
	"github.com/google/gfxcodegen/core/app"
	"github.com/google/gfxcodegen/core/log"
)

func init() {
	app.AddVerb(&app.Verb{
		Name:      "aco",
		ShortHelp: "Generates the ACO opcode table",
		Action:    &acoVerb{Out: "."},
	})
}

type acoVerb struct {
	Out   string `help:"output directory"`
	Year  string `help:"_copyright year stamped into the files"`
	Check bool   `help:"only check the catalogue for opcode collisions"`
}

func (v *acoVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	if v.Check {
		if err := aco.Validate(ctx); err != nil {
			return err
		}
		log.I(ctx, "ACO catalogue has no collisions")
		return nil
	}
	m, err := aco.Generate(ctx, stamp(v.Year, "opcodes.yaml"))
	if err != nil {
		return err
	}
	return writeModule(ctx, v.Out, m)
}
