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

package cereal_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/gfxcodegen/cereal"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/registry"
	"github.com/google/gfxcodegen/registry/registrytest"
)

func registryFile(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "vk.xml")
	if err := os.WriteFile(path, registrytest.Bytes, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func generate(ctx context.Context, t *testing.T, v cereal.Variant, modules ...string) (*cereal.Result, error) {
	return cereal.Generate(ctx, cereal.Options{
		Registries:    []string{registryFile(t)},
		Variant:       v,
		Modules:       modules,
		CopyrightYear: "2023",
		Version:       "1.0",
	})
}

func paths(r *cereal.Result) []string {
	out := make([]string, len(r.Files))
	for i, f := range r.Files {
		out[i] = f.Path
	}
	return out
}

func TestModules(t *testing.T) {
	ctx := log.Testing(t)
	assert.For(ctx, "guest").ThatSlice(cereal.Modules(cereal.Guest)).Equals([]string{
		"marshaling", "reservedmarshaling", "counting", "deepcopy", "handlemap",
		"transform", "testing", "extensionstructs", "encoder",
	})
	assert.For(ctx, "host").ThatSlice(cereal.Modules(cereal.Host)).Equals([]string{
		"marshaling", "reservedmarshaling", "deepcopy", "handlemap", "transform",
		"testing", "extensionstructs", "dispatch", "decoder", "subdecoder", "snapshot",
	})
}

func TestGuest(t *testing.T) {
	ctx := log.Testing(t)
	res, err := generate(ctx, t, cereal.Guest)
	if !assert.For(ctx, "generate").ThatError(err).Succeeded() {
		return
	}
	got := paths(res)
	for _, want := range []string{
		"goldfish_vk_marshaling_guest.h",
		"goldfish_vk_marshaling_guest.cpp",
		"goldfish_vk_reserved_marshaling_guest.cpp",
		"goldfish_vk_counting_guest.cpp",
		"goldfish_vk_extension_structs_guest.cpp",
		"VkEncoder.h",
		"VkEncoder.cpp",
	} {
		assert.For(ctx, "files").ThatSlice(got).Contains(want)
	}
	assert.For(ctx, "files").ThatSlice(got).DoesNotContain("VkDecoder.cpp")

	header := res.File("VkEncoder.h").Content
	assert.For(ctx, "license").ThatString(header).HasPrefix("// Copyright (C) 2023 The Android Open Source Project\n")
	assert.For(ctx, "module").ThatString(header).Contains("// Autogenerated module VkEncoder\n")
	assert.For(ctx, "suffix").ThatString(header).Contains("// (guest) source\n")
	assert.For(ctx, "source").ThatString(header).Contains("// Module source: vk.xml\n")
	assert.For(ctx, "tool").ThatString(header).Contains("// Generated by vkgen 1.0.")
	assert.For(ctx, "pragma").ThatString(header).Contains("#pragma once\n#include \"vk_platform_compat.h\"\n")

	impl := res.File("VkEncoder.cpp").Content
	assert.For(ctx, "self include").ThatString(impl).Contains("#include \"VkEncoder.h\"\n")
	assert.For(ctx, "no pragma").ThatString(impl).DoesNotContain("#pragma once")

	op, ok := res.Opcodes.Opcode("vkCreateInstance")
	assert.For(ctx, "legacy opcode").That(ok).Equals(true)
	assert.For(ctx, "legacy opcode").That(op).Equals(uint32(20000))
	marshaling := res.File("goldfish_vk_marshaling_guest.h").Content
	assert.For(ctx, "define").ThatString(marshaling).Contains(res.Opcodes.Define("vkCreateBuffer") + "\n")
}

func TestHost(t *testing.T) {
	ctx := log.Testing(t)
	res, err := generate(ctx, t, cereal.Host)
	if !assert.For(ctx, "generate").ThatError(err).Succeeded() {
		return
	}
	got := paths(res)
	for _, want := range []string{
		"goldfish_vk_marshaling.cpp",
		"goldfish_vk_dispatch.h",
		"goldfish_vk_testing.cpp",
		"VkDecoder.cpp",
		"VkSubDecoder.cpp",
		"VkDecoderSnapshot.h",
	} {
		assert.For(ctx, "files").ThatSlice(got).Contains(want)
	}
	for _, absent := range []string{"VkEncoder.cpp", "goldfish_vk_counting.cpp", "goldfish_vk_marshaling_guest.cpp"} {
		assert.For(ctx, "files").ThatSlice(got).DoesNotContain(absent)
	}
	decoder := res.File("VkDecoder.cpp")
	assert.For(ctx, "functions").That(decoder.Functions > 0).Equals(true)
	assert.For(ctx, "suffix").ThatString(decoder.Content).Contains("// (host) source\n")
}

func TestSelection(t *testing.T) {
	ctx := log.Testing(t)
	res, err := generate(ctx, t, cereal.Host, "decoder")
	if assert.For(ctx, "decoder only").ThatError(err).Succeeded() {
		assert.For(ctx, "files").ThatSlice(paths(res)).Equals([]string{"VkDecoder.h", "VkDecoder.cpp"})
	}

	_, err = generate(ctx, t, cereal.Host, "encoder")
	assert.For(ctx, "wrong variant").ThatError(err).HasCause(registry.ErrConfig)
	_, err = generate(ctx, t, cereal.Guest, "bogus")
	assert.For(ctx, "unknown").ThatError(err).HasCause(registry.ErrConfig)
	_, err = generate(ctx, t, cereal.Variant("both"))
	assert.For(ctx, "variant").ThatError(err).HasCause(cereal.ErrVariant)
	_, err = cereal.Generate(ctx, cereal.Options{Variant: cereal.Guest})
	assert.For(ctx, "no registry").ThatError(err).HasCause(registry.ErrConfig)
}

func TestCommands(t *testing.T) {
	ctx := log.Testing(t)
	reg, err := registrytest.Load(ctx)
	if !assert.For(ctx, "load").ThatError(err).Succeeded() {
		return
	}
	all, err := cereal.Commands(ctx, reg, registry.Options{})
	assert.For(ctx, "all").ThatError(err).Succeeded()
	assert.For(ctx, "all").ThatSlice(all).Contains("vkGetPhysicalDeviceFeatures2")
	assert.For(ctx, "all").ThatSlice(all).Contains("vkQueueFlushCommandsGOOGLE")

	core, err := cereal.Commands(ctx, reg, registry.Options{Versions: "VK_VERSION_1_0"})
	assert.For(ctx, "1.0").ThatError(err).Succeeded()
	assert.For(ctx, "1.0").ThatSlice(core).Contains("vkCreateInstance")
	assert.For(ctx, "1.0").ThatSlice(core).DoesNotContain("vkGetPhysicalDeviceFeatures2")
}

func TestWrite(t *testing.T) {
	ctx := log.Testing(t)
	res, err := generate(ctx, t, cereal.Host, "dispatch")
	if !assert.For(ctx, "generate").ThatError(err).Succeeded() {
		return
	}
	dir := t.TempDir()
	assert.For(ctx, "write").ThatError(cereal.Write(ctx, dir, res)).Succeeded()
	data, err := os.ReadFile(filepath.Join(dir, "goldfish_vk_dispatch.h"))
	assert.For(ctx, "read").ThatError(err).Succeeded()
	assert.For(ctx, "content").That(string(data)).Equals(res.File("goldfish_vk_dispatch.h").Content)
	assert.For(ctx, "header").That(strings.Count(string(data), "#pragma once")).Equals(1)
}
