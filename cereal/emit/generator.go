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

package emit

import (
	"context"

	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/registry"
)

// Generator is the registry.Generator that forwards the traversal to a set
// of wrappers, in order.
type Generator struct {
	Info     *types.Info
	Wrappers []Wrapper
}

var _ registry.Generator = (*Generator)(nil)

// NewGenerator returns a Generator driving wrappers over info.
func NewGenerator(info *types.Info, wrappers ...Wrapper) *Generator {
	return &Generator{Info: info, Wrappers: wrappers}
}

func (g *Generator) each(f func(w Wrapper) error) error {
	for _, w := range g.Wrappers {
		if err := f(w); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) BeginFile(ctx context.Context) error {
	return g.each(func(w Wrapper) error { return w.OnBegin(ctx) })
}

func (g *Generator) BeginFeature(ctx context.Context, f *registry.FeatureInfo, emit bool) error {
	log.D(ctx, "Feature %v (emit: %v)", f.Name, emit)
	return g.each(func(w Wrapper) error { return w.OnBeginFeature(ctx, f.Name, emit) })
}

func (g *Generator) GenType(ctx context.Context, t *registry.TypeInfo, name, alias string) error {
	return g.each(func(w Wrapper) error { return w.OnGenType(ctx, t, name, alias) })
}

func (g *Generator) GenGroup(ctx context.Context, gr *registry.GroupInfo, name, alias string) error {
	return nil
}

func (g *Generator) GenEnum(ctx context.Context, e *registry.EnumInfo, name, alias string) error {
	return nil
}

func (g *Generator) GenCmd(ctx context.Context, c *registry.CmdInfo, name, alias string) error {
	api := g.Info.Command(name)
	if api == nil {
		return log.Errf(ctx, types.ErrUnknownType, "No prototype for command %v", name)
	}
	return g.each(func(w Wrapper) error { return w.OnGenCmd(ctx, api, name, alias) })
}

func (g *Generator) EndFeature(ctx context.Context) error {
	return g.each(func(w Wrapper) error { return w.OnEndFeature(ctx) })
}

func (g *Generator) EndFile(ctx context.Context) error {
	return g.each(func(w Wrapper) error { return w.OnEnd(ctx) })
}
