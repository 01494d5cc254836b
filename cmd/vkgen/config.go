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

	"github.com/google/gfxcodegen/cereal"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/registry"
	"github.com/pelletier/go-toml/v2"
)

// Config is the TOML form of the generator options. Every key may also be
// given as a flag, which takes precedence over the file.
type Config struct {
	API              string   `toml:"api"`
	Versions         string   `toml:"versions"`
	EmitVersions     string   `toml:"emit_versions"`
	AddExtensions    string   `toml:"add_extensions"`
	RemoveExtensions string   `toml:"remove_extensions"`
	EmitExtensions   string   `toml:"emit_extensions"`
	Directory        string   `toml:"directory"`
	Variant          string   `toml:"variant"`
	Registries       []string `toml:"registries"`
	Modules          []string `toml:"modules"`
	CopyrightYear    string   `toml:"copyright_year"`
}

// loadConfig reads the TOML file at path. Unknown keys are an error.
func loadConfig(ctx context.Context, path string) (Config, error) {
	cfg := Config{}
	f, err := os.Open(path)
	if err != nil {
		return cfg, log.Errf(ctx, err, "Opening config %v", path)
	}
	defer f.Close()
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
		return cfg, log.Errf(ctx, err, "Parsing config %v", path)
	}
	return cfg, nil
}

// GeneratorFlags are the flags shared by the verbs that read the registry.
type GeneratorFlags struct {
	Config           string         `help:"TOML file holding the generator options"`
	API              string         `help:"api attribute to generate for (default vulkan)"`
	Versions         string         `help:"regexp selecting the <feature> versions to include"`
	EmitVersions     string         `name:"emit-versions" help:"regexp selecting the included versions to emit"`
	AddExtensions    string         `name:"add-extensions" help:"regexp of extensions to add regardless of api"`
	RemoveExtensions string         `name:"remove-extensions" help:"regexp of extensions to leave out"`
	EmitExtensions   string         `name:"emit-extensions" help:"regexp selecting the included extensions to emit"`
	Out              string         `help:"output directory"`
	Variant          cereal.Variant `help:"side of the protocol to generate"`
	Registry         []string       `help:"registry XML file, may be repeated; later files extend earlier ones"`
	Module           []string       `help:"_module to generate, may be repeated (default all)"`
	Year             string         `help:"_copyright year stamped into the headers"`
}

// resolve merges the config file with the flags visited in set.
func (f *GeneratorFlags) resolve(ctx context.Context, set flag.FlagSet) (Config, error) {
	cfg := Config{}
	if f.Config != "" {
		var err error
		if cfg, err = loadConfig(ctx, f.Config); err != nil {
			return cfg, err
		}
	}
	set.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "api":
			cfg.API = f.API
		case "versions":
			cfg.Versions = f.Versions
		case "emit-versions":
			cfg.EmitVersions = f.EmitVersions
		case "add-extensions":
			cfg.AddExtensions = f.AddExtensions
		case "remove-extensions":
			cfg.RemoveExtensions = f.RemoveExtensions
		case "emit-extensions":
			cfg.EmitExtensions = f.EmitExtensions
		case "out":
			cfg.Directory = f.Out
		case "variant":
			cfg.Variant = string(f.Variant)
		case "registry":
			cfg.Registries = f.Registry
		case "module":
			cfg.Modules = f.Module
		case "year":
			cfg.CopyrightYear = f.Year
		}
	})
	if cfg.Variant == "" {
		cfg.Variant = string(cereal.Guest)
	}
	if cfg.Directory == "" {
		cfg.Directory = "."
	}
	return cfg, nil
}

// Options returns the cereal generator options of c.
func (c Config) Options() cereal.Options {
	return cereal.Options{
		Registry: registry.Options{
			API:              c.API,
			Versions:         c.Versions,
			EmitVersions:     c.EmitVersions,
			AddExtensions:    c.AddExtensions,
			RemoveExtensions: c.RemoveExtensions,
			EmitExtensions:   c.EmitExtensions,
		},
		Registries:    c.Registries,
		Variant:       cereal.Variant(c.Variant),
		Modules:       c.Modules,
		CopyrightYear: c.CopyrightYear,
		Version:       version,
	}
}
