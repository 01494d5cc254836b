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
	"path/filepath"

	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/google/gfxcodegen/cereal"
	"github.com/google/gfxcodegen/cereal/manifest"
	"github.com/google/gfxcodegen/core/app"
	"github.com/google/gfxcodegen/core/fault"
	"github.com/google/gfxcodegen/core/log"
	"github.com/pkg/errors"
)

// ErrIncompatible is returned when a protocol change renumbers commands.
const ErrIncompatible = fault.Const("Protocol change is not backwards compatible")

func init() {
	app.AddVerb(&app.Verb{
		Name:       "manifest",
		ShortHelp:  "Writes the manifest of a generation run, or compares it against an older one",
		ShortUsage: "[old manifest]",
		Action:     &manifestVerb{},
	})
}

type manifestVerb struct {
	GeneratorFlags
	Output string `help:"file to write the manifest to (.pb for binary proto, JSON otherwise)"`
}

func (v *manifestVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	cfg, err := v.resolve(ctx, flags)
	if err != nil {
		return err
	}
	res, err := cereal.Generate(ctx, cfg.Options())
	if err != nil {
		return err
	}
	if v.Output != "" {
		if err := writeManifest(ctx, v.Output, res); err != nil {
			return err
		}
	}
	if flags.NArg() == 0 {
		if v.Output == "" {
			return manifest.WriteJSON(os.Stdout, manifest.Build(res))
		}
		return nil
	}
	old, err := readManifest(ctx, flags.Arg(0))
	if err != nil {
		return err
	}
	before, err := manifest.Opcodes(old)
	if err != nil {
		return err
	}
	after, err := manifest.Opcodes(manifest.Build(res))
	if err != nil {
		return err
	}
	changes := manifest.Diff(before, after)
	renumbered := 0
	for _, c := range changes {
		fmt.Fprintln(os.Stdout, c)
		if c[0] == '!' {
			renumbered++
		}
	}
	log.I(ctx, "%d protocol changes", len(changes))
	if renumbered > 0 {
		return errors.Wrapf(ErrIncompatible, "%d commands renumbered", renumbered)
	}
	return nil
}

func readManifest(ctx context.Context, path string) (*structpb.Struct, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, log.Errf(ctx, err, "Opening manifest %v", path)
	}
	defer f.Close()
	if filepath.Ext(path) == ".pb" {
		return manifest.ReadProto(f)
	}
	return manifest.ReadJSON(f)
}
