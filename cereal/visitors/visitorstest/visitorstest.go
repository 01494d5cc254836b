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

// Package visitorstest runs visitor modules over the test registry.
package visitorstest

import (
	"context"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/registry"
	"github.com/google/gfxcodegen/registry/registrytest"
)

// Info returns the type model of a freshly loaded test registry.
func Info(ctx context.Context) (*types.Info, error) {
	reg, err := registrytest.Load(ctx)
	if err != nil {
		return nil, err
	}
	return types.New(ctx, reg)
}

// Opcodes assigns opcodes to every command of the test registry.
func Opcodes(ctx context.Context, info *types.Info) (*opcodes.Assignment, error) {
	table, err := opcodes.Default()
	if err != nil {
		return nil, err
	}
	return table.Assign(ctx, info.Registry.CommandOrder)
}

// Generate drives the wrappers over every feature of info's registry.
func Generate(ctx context.Context, info *types.Info, wrappers ...emit.Wrapper) error {
	return info.Registry.APIGen(ctx, emit.NewGenerator(info, wrappers...), registry.Options{})
}

// Run loads the test registry, builds the wrappers with make and drives
// them. It returns the header and implementation text of the first module.
func Run(ctx context.Context, make func(*types.Info) emit.Wrapper) (header, impl string, err error) {
	info, err := Info(ctx)
	if err != nil {
		return "", "", err
	}
	w := make(info)
	if err := Generate(ctx, info, w); err != nil {
		return "", "", err
	}
	m := w.Modules()[0]
	return m.HeaderText(), m.ImplText(), nil
}
