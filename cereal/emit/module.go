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
	"os"
	"path/filepath"
	"strings"

	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/registry"
)

// Module is a generated header and implementation pair. Text appended while
// a feature is active is wrapped in an #ifdef of that feature, opened lazily
// so features that contribute nothing leave no trace.
type Module struct {
	// Name is the file base name, without extension.
	Name string
	// Directory is the output directory, relative to the driver's root.
	Directory string
	// HeaderPreamble and ImplPreamble follow the license header.
	HeaderPreamble string
	ImplPreamble   string
	// HeaderOnly suppresses the implementation file.
	HeaderOnly bool
	// ImplExt is the implementation file extension, ".cpp" by default.
	ImplExt string

	header, impl   strings.Builder
	feature        string
	headerGuarded  bool
	implGuarded    bool
	functionsCount int
}

// NewModule returns a module writing name.h and name.cpp into directory.
func NewModule(directory, name string) *Module {
	return &Module{Name: name, Directory: directory, ImplExt: ".cpp"}
}

// BeginFeature sets the feature guarding subsequent text.
func (m *Module) BeginFeature(name string) {
	m.EndFeature()
	m.feature = name
}

// EndFeature closes any open feature guard.
func (m *Module) EndFeature() {
	if m.headerGuarded {
		m.header.WriteString("#endif\n")
	}
	if m.implGuarded {
		m.impl.WriteString("#endif\n")
	}
	m.feature, m.headerGuarded, m.implGuarded = "", false, false
}

func guard(sb *strings.Builder, feature string, guarded *bool) {
	if feature != "" && !*guarded {
		sb.WriteString("#ifdef " + feature + "\n")
		*guarded = true
	}
}

// AppendHeader appends text to the header.
func (m *Module) AppendHeader(text string) {
	if text == "" {
		return
	}
	guard(&m.header, m.feature, &m.headerGuarded)
	m.header.WriteString(text)
}

// AppendImpl appends text to the implementation.
func (m *Module) AppendImpl(text string) {
	if text == "" {
		return
	}
	guard(&m.impl, m.feature, &m.implGuarded)
	m.impl.WriteString(text)
}

// AddFunction records a generated function for the driver's summary.
func (m *Module) AddFunction() { m.functionsCount++ }

// Functions returns the number of generated functions.
func (m *Module) Functions() int { return m.functionsCount }

// HeaderText returns the header body after the preamble.
func (m *Module) HeaderText() string { return m.HeaderPreamble + m.header.String() }

// ImplText returns the implementation body after the preamble.
func (m *Module) ImplText() string { return m.ImplPreamble + m.impl.String() }

// Stamp puts license in front of both files, the include guard in front of
// the header and the header include in front of the implementation.
func (m *Module) Stamp(license string) {
	m.HeaderPreamble = license + "#pragma once\n" + m.HeaderPreamble
	m.ImplPreamble = license + "#include \"" + m.Name + ".h\"\n" + m.ImplPreamble
}

// File is a generated output file.
type File struct {
	Path    string
	Content string
}

// Write writes f below dir, creating directories as needed.
func (f File) Write(dir string) error {
	path := filepath.Join(dir, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(f.Content), 0644)
}

// Files returns the module's files, relative to the output root.
func (m *Module) Files() []File {
	dir := m.Directory
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	out := []File{{Path: dir + m.Name + ".h", Content: m.HeaderText()}}
	if !m.HeaderOnly {
		out = append(out, File{Path: dir + m.Name + m.ImplExt, Content: m.ImplText()})
	}
	return out
}

// Wrapper receives the registry traversal and emits into its modules.
type Wrapper interface {
	// Modules returns the modules the wrapper writes.
	Modules() []*Module
	OnBegin(ctx context.Context) error
	OnBeginFeature(ctx context.Context, name string, emit bool) error
	OnGenType(ctx context.Context, t *registry.TypeInfo, name, alias string) error
	OnGenCmd(ctx context.Context, api *types.APIInfo, name, alias string) error
	OnEndFeature(ctx context.Context) error
	OnEnd(ctx context.Context) error
}

// BaseWrapper is a Wrapper over a single module that ignores every event.
// Wrappers embed it and override what they need. Feature guards are
// maintained on the module.
type BaseWrapper struct {
	Module *Module
	Emit   bool
}

// Modules returns the single wrapped module.
func (w *BaseWrapper) Modules() []*Module { return []*Module{w.Module} }

// OnBegin is a no-op.
func (w *BaseWrapper) OnBegin(ctx context.Context) error { return nil }

// OnBeginFeature opens the feature's guard.
func (w *BaseWrapper) OnBeginFeature(ctx context.Context, name string, emit bool) error {
	w.Emit = emit
	w.Module.BeginFeature(name)
	return nil
}

// OnGenType is a no-op.
func (w *BaseWrapper) OnGenType(ctx context.Context, t *registry.TypeInfo, name, alias string) error {
	return nil
}

// OnGenCmd is a no-op.
func (w *BaseWrapper) OnGenCmd(ctx context.Context, api *types.APIInfo, name, alias string) error {
	return nil
}

// OnEndFeature closes the feature's guard.
func (w *BaseWrapper) OnEndFeature(ctx context.Context) error {
	w.Module.EndFeature()
	return nil
}

// OnEnd is a no-op.
func (w *BaseWrapper) OnEnd(ctx context.Context) error { return nil }
