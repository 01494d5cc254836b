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

package registry

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/gfxcodegen/core/log"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Options selects the features that APIGen walks.
// Every field except API is a regular expression matched against the whole
// feature name.
type Options struct {
	// API is the api attribute value to generate for. Defaults to the API the
	// registry was created with.
	API string
	// Versions selects the <feature> versions to include. Defaults to all.
	Versions string
	// EmitVersions selects the included versions that are emitted. Defaults to
	// Versions.
	EmitVersions string
	// AddExtensions includes extensions even when they do not list API as
	// supported.
	AddExtensions string
	// RemoveExtensions excludes extensions that would otherwise be included.
	RemoveExtensions string
	// EmitExtensions selects the included extensions that are emitted.
	// Defaults to all.
	EmitExtensions string
}

// Generator receives the selected interface in dependency order.
// Gen methods are called for every selected feature; generators decide what
// to do for features that are included but not emitted.
type Generator interface {
	BeginFile(ctx context.Context) error
	BeginFeature(ctx context.Context, f *FeatureInfo, emit bool) error
	GenType(ctx context.Context, t *TypeInfo, name, alias string) error
	GenGroup(ctx context.Context, g *GroupInfo, name, alias string) error
	GenEnum(ctx context.Context, e *EnumInfo, name, alias string) error
	GenCmd(ctx context.Context, c *CmdInfo, name, alias string) error
	EndFeature(ctx context.Context) error
	EndFile(ctx context.Context) error
}

type selection struct {
	feature *FeatureInfo
	emit    bool
	sets    []*InterfaceSet
}

func matcher(expr, def string) (*regexp.Regexp, error) {
	if expr == "" {
		expr = def
	}
	re, err := regexp.Compile("^(" + expr + ")$")
	if err != nil {
		return nil, errors.Wrapf(ErrConfig, "Bad pattern %q: %v", expr, err)
	}
	return re, nil
}

// Select returns the features chosen by opts, in generation order.
func (r *Registry) Select(ctx context.Context, opts Options) ([]*FeatureInfo, error) {
	sel, err := r.selectFeatures(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*FeatureInfo, len(sel))
	for i, s := range sel {
		out[i] = s.feature
	}
	return out, nil
}

func (r *Registry) selectFeatures(ctx context.Context, opts Options) ([]*selection, error) {
	api := opts.API
	if api == "" {
		api = r.API
	}
	if !r.apis[api] {
		return nil, errors.Wrapf(ErrConfig, "API %q is not defined by any feature", api)
	}
	versions, err := matcher(opts.Versions, ".*")
	if err != nil {
		return nil, err
	}
	emitVersionsExpr := opts.EmitVersions
	if emitVersionsExpr == "" {
		emitVersionsExpr = opts.Versions
	}
	emitVersions, err := matcher(emitVersionsExpr, ".*")
	if err != nil {
		return nil, err
	}
	addExts, err := matcher(opts.AddExtensions, "")
	if err != nil {
		return nil, err
	}
	removeExts, err := matcher(opts.RemoveExtensions, "")
	if err != nil {
		return nil, err
	}
	emitExts, err := matcher(opts.EmitExtensions, ".*")
	if err != nil {
		return nil, err
	}

	out := []*selection{}
	for _, name := range r.FeatureOrder {
		f := r.Features[name]
		if !f.IsExtension {
			if !apiListed(f.API, api) || !versions.MatchString(name) {
				continue
			}
			out = append(out, &selection{feature: f, emit: emitVersions.MatchString(name)})
			continue
		}
		supported := false
		for _, s := range f.Supported {
			supported = supported || s == api
		}
		if opts.AddExtensions != "" && addExts.MatchString(name) {
			supported = true
		}
		if opts.RemoveExtensions != "" && removeExts.MatchString(name) {
			log.D(ctx, "Removing extension %v", name)
			supported = false
		}
		if !supported {
			continue
		}
		out = append(out, &selection{feature: f, emit: emitExts.MatchString(name)})
	}
	slices.SortStableFunc(out, func(a, b *selection) int {
		switch {
		case featureLess(a.feature, b.feature):
			return -1
		case featureLess(b.feature, a.feature):
			return 1
		}
		return 0
	})
	return out, nil
}

// featureLess orders versions before extensions, then by sortorder, number
// and name.
func featureLess(a, b *FeatureInfo) bool {
	if a.IsExtension != b.IsExtension {
		return !a.IsExtension
	}
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	if a.IsExtension {
		if a.ExtNumber != b.ExtNumber {
			return a.ExtNumber < b.ExtNumber
		}
	} else if c := a.Version.Compare(b.Version); c != 0 {
		return c < 0
	}
	return a.Name < b.Name
}

func apiListed(attr, api string) bool {
	if attr == "" {
		return true
	}
	for _, a := range strings.Split(attr, ",") {
		if a == api {
			return true
		}
	}
	return false
}

// APIGen tags everything required by the features selected with opts and
// then replays them through gen. Types and commands are emitted after the
// types they depend on.
func (r *Registry) APIGen(ctx context.Context, gen Generator, opts Options) error {
	sel, err := r.selectFeatures(ctx, opts)
	if err != nil {
		return err
	}
	r.reset()
	selected := map[string]bool{}
	for _, s := range sel {
		selected[s.feature.Name] = true
	}
	has := func(name string) bool { return selected[name] }
	api := opts.API
	if api == "" {
		api = r.API
	}

	for _, s := range sel {
		ctx := log.Enter(ctx, s.feature.Name)
		for _, set := range s.feature.Requires {
			ok, err := r.applies(set, api, has)
			if err != nil {
				return errors.Wrapf(err, "In %v", s.feature.Name)
			}
			if !ok {
				continue
			}
			s.sets = append(s.sets, set)
			for _, n := range set.Types {
				r.requireType(ctx, n, s.feature.Name)
			}
			for _, n := range set.Enums {
				r.requireEnum(ctx, n)
			}
			for _, n := range set.Commands {
				r.requireCmd(ctx, n, s.feature.Name)
			}
		}
		for _, set := range s.feature.Removes {
			ok, err := r.applies(set, api, has)
			if err != nil {
				return errors.Wrapf(err, "In %v", s.feature.Name)
			}
			if ok {
				r.remove(ctx, set)
			}
		}
	}

	if err := gen.BeginFile(ctx); err != nil {
		return err
	}
	for _, s := range sel {
		ctx := log.Enter(ctx, s.feature.Name)
		log.D(ctx, "Generating feature (emit: %v)", s.emit)
		if err := gen.BeginFeature(ctx, s.feature, s.emit); err != nil {
			return err
		}
		for _, set := range s.sets {
			for _, n := range set.Types {
				if err := r.emitType(ctx, gen, n); err != nil {
					return err
				}
			}
			for _, n := range set.Enums {
				if err := r.emitEnum(ctx, gen, n); err != nil {
					return err
				}
			}
			for _, n := range set.Commands {
				if err := r.emitCmd(ctx, gen, n); err != nil {
					return err
				}
			}
		}
		if err := gen.EndFeature(ctx); err != nil {
			return err
		}
	}
	return gen.EndFile(ctx)
}

// reset clears the selection of any earlier traversal.
func (r *Registry) reset() {
	for _, t := range r.Types {
		t.Required, t.Declared, t.RequiredBy = false, false, ""
	}
	for _, e := range r.Enums {
		e.Required, e.Declared = false, false
	}
	for _, c := range r.Commands {
		c.Required, c.Declared, c.RequiredBy = false, false, ""
	}
}

func (r *Registry) applies(set *InterfaceSet, api string, has func(string) bool) (bool, error) {
	if !apiListed(set.API, api) {
		return false, nil
	}
	return evalDepends(set.Depends, has)
}

func (r *Registry) requireType(ctx context.Context, name, by string) {
	t, ok := r.Types[name]
	if !ok {
		if _, isGroup := r.Groups[name]; !isGroup {
			log.W(ctx, "Required type %v is not defined", name)
		}
		return
	}
	if t.Required {
		return
	}
	t.Required, t.RequiredBy = true, by
	for _, d := range t.Deps {
		r.requireType(ctx, d, by)
	}
	for _, e := range t.EnumDeps {
		r.requireEnum(ctx, e)
	}
	if t.Category == Enum {
		if g, ok := r.Groups[name]; ok {
			for _, e := range g.Enums {
				if e.inBlock {
					e.Required = true
				}
			}
		}
	}
}

func (r *Registry) requireEnum(ctx context.Context, name string) {
	e, ok := r.Enums[name]
	if !ok {
		log.W(ctx, "Required enum %v is not defined", name)
		return
	}
	e.Required = true
	if e.Alias != "" {
		if a, ok := r.Enums[e.Alias]; ok {
			a.Required = true
		}
	}
}

func (r *Registry) requireCmd(ctx context.Context, name, by string) {
	c, ok := r.Commands[name]
	if !ok {
		log.W(ctx, "Required command %v is not defined", name)
		return
	}
	if c.Required {
		return
	}
	c.Required, c.RequiredBy = true, by
	for _, d := range c.Deps() {
		r.requireType(ctx, d, by)
	}
	if c.Alias != "" {
		r.requireCmd(ctx, c.Alias, by)
	}
}

func (r *Registry) remove(ctx context.Context, set *InterfaceSet) {
	for _, n := range set.Types {
		if t, ok := r.Types[n]; ok {
			log.D(ctx, "Removing type %v", n)
			t.Required = false
		}
	}
	for _, n := range set.Enums {
		if e, ok := r.Enums[n]; ok {
			e.Required = false
		}
	}
	for _, n := range set.Commands {
		if c, ok := r.Commands[n]; ok {
			log.D(ctx, "Removing command %v", n)
			c.Required = false
		}
	}
}

func (r *Registry) emitType(ctx context.Context, gen Generator, name string) error {
	t, ok := r.Types[name]
	if !ok || !t.Required || t.Declared {
		return nil
	}
	t.Declared = true
	for _, d := range t.Deps {
		if err := r.emitType(ctx, gen, d); err != nil {
			return err
		}
	}
	for _, e := range t.EnumDeps {
		if err := r.emitEnum(ctx, gen, e); err != nil {
			return err
		}
	}
	if t.Category == Enum {
		if g, ok := r.Groups[name]; ok {
			return gen.GenGroup(ctx, g, name, t.Alias)
		}
		if t.Alias == "" {
			log.D(ctx, "Enum type %v has no values", name)
		}
	}
	return gen.GenType(ctx, t, name, t.Alias)
}

// emitEnum emits API constants. Enumerants of groups are emitted with their
// group.
func (r *Registry) emitEnum(ctx context.Context, gen Generator, name string) error {
	e, ok := r.Enums[name]
	if !ok || !e.Required || e.Declared || e.Group != "" {
		return nil
	}
	e.Declared = true
	return gen.GenEnum(ctx, e, name, e.Alias)
}

func (r *Registry) emitCmd(ctx context.Context, gen Generator, name string) error {
	c, ok := r.Commands[name]
	if !ok || !c.Required || c.Declared {
		return nil
	}
	c.Declared = true
	for _, d := range c.Deps() {
		if err := r.emitType(ctx, gen, d); err != nil {
			return err
		}
	}
	return gen.GenCmd(ctx, c, name, c.Alias)
}

// ExtensionValue returns the enumerant value for an extension block offset.
func ExtensionValue(extNumber, offset int) int64 {
	return int64(extBase + (extNumber-1)*extBlockSize + offset)
}
