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

	"github.com/google/gfxcodegen/cereal"
	"github.com/google/gfxcodegen/cereal/manifest"
	"github.com/google/gfxcodegen/core/app"
	"github.com/google/gfxcodegen/core/log"
)

func init() {
	app.AddVerb(&app.Verb{
		Name:      "cereal",
		ShortHelp: "Generates the Vulkan stream codecs from the registry",
		Action:    &cerealVerb{},
	})
}

type cerealVerb struct {
	GeneratorFlags
	Manifest string `help:"also write the JSON manifest of the run to this file"`
}

func (v *cerealVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	cfg, err := v.resolve(ctx, flags)
	if err != nil {
		return err
	}
	res, err := cereal.Generate(ctx, cfg.Options())
	if err != nil {
		return err
	}
	if err := cereal.Write(ctx, cfg.Directory, res); err != nil {
		return err
	}
	if v.Manifest == "" {
		return nil
	}
	return writeManifest(ctx, v.Manifest, res)
}

// writeManifest writes the manifest of res to path, as binary proto if the
// path ends in .pb and as JSON otherwise.
func writeManifest(ctx context.Context, path string, res *cereal.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return log.Errf(ctx, err, "Creating manifest %v", path)
	}
	defer f.Close()
	m := manifest.Build(res)
	if filepath.Ext(path) == ".pb" {
		err = manifest.WriteProto(f, m)
	} else {
		err = manifest.WriteJSON(f, m)
	}
	if err != nil {
		return log.Errf(ctx, err, "Writing manifest %v", path)
	}
	log.I(ctx, "Wrote manifest %v", path)
	return nil
}
