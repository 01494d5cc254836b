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

// Package cereal is the driver of the Vulkan serialization code generator.
// It loads the registries, assigns an opcode to every selected command and
// then walks the registry once more with the visitor modules of the
// requested variant.
package cereal

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/core/fault"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/core/text/copyright"
	"github.com/google/gfxcodegen/registry"
	"github.com/pkg/errors"
)

// Tool is the generator name stamped into every file.
const Tool = "vkgen"

// Options configures a generation run.
type Options struct {
	// Registry selects the features to generate for.
	Registry registry.Options
	// Registries are the XML files to load, in order.
	Registries []string
	// Variant is the side of the protocol to generate.
	Variant Variant
	// Modules names the modules to emit. Empty emits every module of the
	// variant.
	Modules []string
	// CopyrightYear is stamped into the headers. Defaults to the current year.
	CopyrightYear string
	// Version is the generator version stamped into the headers.
	Version string
}

// Output is one generated file.
type Output struct {
	emit.File
	// Module is the name of the module that produced the file.
	Module string
	// Functions is the number of functions the module generated.
	Functions int
}

// Result is the output of a generation run.
type Result struct {
	Variant Variant
	Files   []Output
	Opcodes *opcodes.Assignment
}

// Generate runs the generator described by opts.
func Generate(ctx context.Context, opts Options) (*Result, error) {
	ctx = log.Enter(ctx, "cereal.Generate")
	ctx = log.V{"variant": opts.Variant}.Bind(ctx)

	if err := opts.Variant.Validate(); err != nil {
		return nil, err
	}
	if len(opts.Registries) == 0 {
		return nil, log.Err(ctx, registry.ErrConfig, "No registry given")
	}
	api := opts.Registry.API
	if api == "" {
		api = "vulkan"
	}
	reg := registry.New(api)
	for _, path := range opts.Registries {
		log.D(ctx, "Loading %v", path)
		if err := reg.LoadFile(ctx, path); err != nil {
			return nil, err
		}
	}
	info, err := types.New(ctx, reg)
	if err != nil {
		return nil, err
	}

	// Pass one: opcodes depend on the complete list of selected commands.
	names, err := Commands(ctx, reg, opts.Registry)
	if err != nil {
		return nil, err
	}
	table, err := opcodes.Default()
	if err != nil {
		return nil, err
	}
	ops, err := table.Assign(ctx, names)
	if err != nil {
		return nil, log.Errf(ctx, err, "Assigning opcodes to %d commands", len(names))
	}
	log.I(ctx, "Assigned %d opcodes", len(ops.Names))

	// Pass two: emit.
	env := &Env{Info: info, Opcodes: ops, Variant: opts.Variant}
	wrappers, err := opts.wrappers(ctx, env)
	if err != nil {
		return nil, err
	}
	if err := reg.APIGen(ctx, emit.NewGenerator(info, wrappers...), opts.Registry); err != nil {
		return nil, err
	}

	res := &Result{Variant: opts.Variant, Opcodes: ops}
	stamp := copyright.Info{
		Year:    opts.CopyrightYear,
		Tool:    Tool,
		Version: opts.Version,
		Source:  sources(opts.Registries),
		Suffix:  string(opts.Variant),
	}
	for _, w := range wrappers {
		for _, m := range w.Modules() {
			addPreambles(m, stamp)
			for _, f := range m.Files() {
				res.Files = append(res.Files, Output{File: f, Module: m.Name, Functions: m.Functions()})
			}
		}
	}
	return res, nil
}

func addPreambles(m *emit.Module, stamp copyright.Info) {
	stamp.Module = m.Name
	m.Stamp(copyright.Build("generated_c", stamp))
}

func sources(paths []string) string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return strings.Join(names, ", ")
}

// wrappers builds the wrappers of the selected modules, in registration
// order.
func (o Options) wrappers(ctx context.Context, env *Env) ([]emit.Wrapper, error) {
	selected := map[string]bool{}
	errs := fault.List{}
	for _, name := range o.Modules {
		m, ok := modules.find(name)
		switch {
		case !ok:
			errs.Collect(errors.Wrapf(registry.ErrConfig, "Unknown module %q", name))
		case !m.supports(env.Variant):
			errs.Collect(errors.Wrapf(registry.ErrConfig, "Module %q is not generated for the %v variant", name, env.Variant))
		default:
			selected[name] = true
		}
	}
	if err := errs.Err(); err != nil {
		return nil, log.Err(ctx, err, "Bad module selection")
	}
	out := []emit.Wrapper{}
	for _, m := range modules.list {
		if !m.supports(env.Variant) || (len(selected) > 0 && !selected[m.name]) {
			continue
		}
		log.D(ctx, "Module %v", m.name)
		out = append(out, m.factory(env))
	}
	return out, nil
}

// Commands returns the names of every command APIGen selects with opts, in
// generation order.
func Commands(ctx context.Context, reg *registry.Registry, opts registry.Options) ([]string, error) {
	c := &collector{}
	if err := reg.APIGen(ctx, c, opts); err != nil {
		return nil, err
	}
	return c.names, nil
}

// collector is the registry.Generator of the opcode pass.
type collector struct {
	names []string
}

var _ registry.Generator = (*collector)(nil)

func (c *collector) BeginFile(ctx context.Context) error { return nil }
func (c *collector) BeginFeature(ctx context.Context, f *registry.FeatureInfo, emit bool) error {
	return nil
}
func (c *collector) GenType(ctx context.Context, t *registry.TypeInfo, name, alias string) error {
	return nil
}
func (c *collector) GenGroup(ctx context.Context, g *registry.GroupInfo, name, alias string) error {
	return nil
}
func (c *collector) GenEnum(ctx context.Context, e *registry.EnumInfo, name, alias string) error {
	return nil
}
func (c *collector) GenCmd(ctx context.Context, cmd *registry.CmdInfo, name, alias string) error {
	c.names = append(c.names, name)
	return nil
}
func (c *collector) EndFeature(ctx context.Context) error { return nil }
func (c *collector) EndFile(ctx context.Context) error    { return nil }
