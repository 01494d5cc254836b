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

// Package registrytest provides a small annotated registry for tests of the
// registry consumers.
package registrytest

import (
	"bytes"
	"context"
	_ "embed"

	"github.com/google/gfxcodegen/registry"
)

// Bytes is the content of the test registry.
//
//go:embed vk.xml
var Bytes []byte

// Load returns a freshly parsed copy of the test registry filtered to the
// vulkan API. Each call returns a new registry, as generation mutates the
// required and declared state.
func Load(ctx context.Context) (*registry.Registry, error) {
	r := registry.New("vulkan")
	if err := r.LoadReader(ctx, bytes.NewReader(Bytes)); err != nil {
		return nil, err
	}
	return r, nil
}
