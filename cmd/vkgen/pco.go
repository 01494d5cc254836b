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
	"os"
	"path/filepath"

	"github.com/google/gfxcodegen/core/app"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/pco"
)

func init() {
	app.AddVerb(&app.Verb{
		Name:       "pco",
		ShortHelp:  "Generates the PCO instruction encoders",
		ShortUsage: "[isa.yaml]",
		Action:     &pcoVerb{Out: "."},
	})
}

type pcoVerb struct {
	Out   string `help:"output directory"`
	Year  string `help:"_copyright year stamped into the files"`
	Check bool   `help:"only validate the ISA definition"`
}

func (v *pcoVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	isa, source, err := loadISA(ctx, flags.Arg(0))
	if err != nil {
		return err
	}
	if v.Check {
		log.I(ctx, "ISA %v is valid", isa.Name)
		return nil
	}
	m, err := isa.Generate(ctx, stamp(v.Year, source))
	if err != nil {
		return err
	}
	return writeModule(ctx, v.Out, m)
}

// loadISA loads the ISA at path, or the built-in one if path is empty.
func loadISA(ctx context.Context, path string) (*pco.ISA, string, error) {
	if path == "" {
		isa, err := pco.Default(ctx)
		return isa, "isa.yaml", err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", log.Errf(ctx, err, "Opening %v", path)
	}
	defer f.Close()
	isa, err := pco.Load(ctx, f)
	return isa, filepath.Base(path), err
}
