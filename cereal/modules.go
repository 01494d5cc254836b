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

package cereal

import (
	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/counting"
	"github.com/google/gfxcodegen/cereal/visitors/decoder"
	"github.com/google/gfxcodegen/cereal/visitors/deepcopy"
	"github.com/google/gfxcodegen/cereal/visitors/dispatch"
	"github.com/google/gfxcodegen/cereal/visitors/encoder"
	"github.com/google/gfxcodegen/cereal/visitors/equality"
	"github.com/google/gfxcodegen/cereal/visitors/extensionstructs"
	"github.com/google/gfxcodegen/cereal/visitors/handlemap"
	"github.com/google/gfxcodegen/cereal/visitors/marshaling"
	"github.com/google/gfxcodegen/cereal/visitors/reservedmarshaling"
	"github.com/google/gfxcodegen/cereal/visitors/snapshot"
	"github.com/google/gfxcodegen/cereal/visitors/subdecoder"
	"github.com/google/gfxcodegen/cereal/visitors/transform"
	"github.com/google/gfxcodegen/core/app/flags"
	"github.com/google/gfxcodegen/core/fault"
	"github.com/pkg/errors"
)

// ErrVariant is returned for a variant other than Guest or Host.
const ErrVariant = fault.Const("Unknown variant")

// Variant is the side of the protocol a run generates for.
type Variant string

const (
	// Guest generates the encoder side.
	Guest = Variant("guest")
	// Host generates the decoder side.
	Host = Variant("host")
)

// Variants lists every variant.
var Variants = []Variant{Guest, Host}

func (v Variant) String() string { return string(v) }

// Validate returns ErrVariant if v is not a known variant.
func (v Variant) Validate() error {
	for _, o := range Variants {
		if v == o {
			return nil
		}
	}
	return errors.Wrapf(ErrVariant, "%q", string(v))
}

// Choose sets v to the chosen variant.
func (v *Variant) Choose(c interface{}) { *v = c.(Variant) }

// Chooser binds v as an enumerated flag.
func (v *Variant) Chooser() flags.Chooser {
	c := flags.Chooser{Value: v}
	for _, o := range Variants {
		c.Choices = append(c.Choices, o)
	}
	return c
}

// Env is what a module factory builds its wrapper from.
type Env struct {
	Info    *types.Info
	Opcodes *opcodes.Assignment
	Variant Variant
}

// Module returns a module named name. The guest copies of the shared modules
// carry a _guest suffix so both sides can be built into one tree.
func (e *Env) Module(name string, includes ...string) *emit.Module {
	if e.Variant == Guest {
		name += "_guest"
	}
	return e.Plain(name, includes...)
}

// Plain returns a module named name whatever the variant.
func (e *Env) Plain(name string, includes ...string) *emit.Module {
	m := emit.NewModule("", name)
	for _, inc := range includes {
		m.HeaderPreamble += "#include \"" + inc + "\"\n"
	}
	return m
}

// Factory builds the wrapper of one module.
type Factory func(env *Env) emit.Wrapper

type module struct {
	name     string
	factory  Factory
	variants []Variant
}

func (m module) supports(v Variant) bool {
	for _, o := range m.variants {
		if o == v {
			return true
		}
	}
	return false
}

type moduleList struct {
	list []module
}

func (l *moduleList) find(name string) (module, bool) {
	for _, m := range l.list {
		if m.name == name {
			return m, true
		}
	}
	return module{}, false
}

var modules moduleList

// Register adds a module generated for the given variants, or for both when
// none are given. Registering a name twice replaces the earlier factory but
// keeps its position.
func Register(name string, factory Factory, variants ...Variant) {
	if len(variants) == 0 {
		variants = Variants
	}
	m := module{name: name, factory: factory, variants: variants}
	for i := range modules.list {
		if modules.list[i].name == name {
			modules.list[i] = m
			return
		}
	}
	modules.list = append(modules.list, m)
}

// Modules returns the names of the modules generated for v, in emission
// order.
func Modules(v Variant) []string {
	out := []string{}
	for _, m := range modules.list {
		if m.supports(v) {
			out = append(out, m.name)
		}
	}
	return out
}

const (
	compat     = "vk_platform_compat.h"
	privDefs   = "goldfish_vk_private_defs.h"
	stream     = "VulkanStream.h"
	boxedDecls = "VulkanBoxedHandles.h"
)

func init() {
	Register("marshaling", func(env *Env) emit.Wrapper {
		m := env.Module("goldfish_vk_marshaling", compat, privDefs, stream)
		return marshaling.New(env.Info, m, env.Opcodes, marshaling.Marshal, marshaling.Unmarshal)
	})
	Register("reservedmarshaling", func(env *Env) emit.Wrapper {
		m := env.Module("goldfish_vk_reserved_marshaling", compat, privDefs, stream)
		styles := reservedmarshaling.Host
		if env.Variant == Guest {
			styles = reservedmarshaling.Guest
		}
		return reservedmarshaling.New(env.Info, m, styles)
	})
	Register("counting", func(env *Env) emit.Wrapper {
		return counting.New(env.Info, env.Module("goldfish_vk_counting", compat, privDefs))
	}, Guest)
	Register("deepcopy", func(env *Env) emit.Wrapper {
		return deepcopy.New(env.Info, env.Module("goldfish_vk_deepcopy", compat, privDefs, "BumpPool.h"))
	})
	Register("handlemap", func(env *Env) emit.Wrapper {
		return handlemap.New(env.Info, env.Module("goldfish_vk_handlemap", compat, privDefs, "VulkanHandleMapping.h"))
	})
	Register("transform", func(env *Env) emit.Wrapper {
		tracker := transform.HostTracker
		if env.Variant == Guest {
			tracker = transform.GuestTracker
		}
		return transform.New(env.Info, env.Module("goldfish_vk_transform", compat, privDefs), tracker)
	})
	Register("testing", func(env *Env) emit.Wrapper {
		return equality.New(env.Info, env.Module("goldfish_vk_testing", compat, privDefs))
	})
	Register("extensionstructs", func(env *Env) emit.Wrapper {
		return extensionstructs.New(env.Info, env.Module("goldfish_vk_extension_structs", compat, privDefs))
	})
	Register("dispatch", func(env *Env) emit.Wrapper {
		return dispatch.New(env.Plain("goldfish_vk_dispatch", compat), env.Opcodes)
	}, Host)
	Register("encoder", func(env *Env) emit.Wrapper {
		return encoder.New(env.Info, env.Plain("VkEncoder", compat, privDefs), env.Opcodes)
	}, Guest)
	Register("decoder", func(env *Env) emit.Wrapper {
		return decoder.New(env.Info, env.Plain("VkDecoder", compat, boxedDecls), env.Opcodes)
	}, Host)
	Register("subdecoder", func(env *Env) emit.Wrapper {
		return subdecoder.New(env.Info, env.Plain("VkSubDecoder", compat, boxedDecls), env.Opcodes)
	}, Host)
	Register("snapshot", func(env *Env) emit.Wrapper {
		return snapshot.New(env.Info, env.Plain("VkDecoderSnapshot", compat, "VkSnapshotApiCall.h"), env.Opcodes)
	}, Host)
}
