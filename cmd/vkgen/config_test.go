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
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/gfxcodegen/cereal"
	"github.com/google/gfxcodegen/core/app/flags"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
)

const testConfig = `
api = "vulkan"
versions = "VK_VERSION_1_[0-2]"
emit_extensions = "VK_KHR_.*"
directory = "out"
variant = "guest"
registries = ["vk.xml"]
modules = ["goldfish_vk_marshaling"]
copyright_year = "2023"
`

func writeConfig(t *testing.T, text string) string {
	path := filepath.Join(t.TempDir(), "vkgen.toml")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func parse(t *testing.T, v *cerealVerb, args ...string) *flags.Set {
	set := &flags.Set{}
	set.Raw.Init("cereal", flag.ContinueOnError)
	set.Bind("", v, "")
	if err := set.Raw.Parse(args); err != nil {
		t.Fatal(err)
	}
	return set
}

func TestConfigFile(t *testing.T) {
	ctx := log.Testing(t)
	path := writeConfig(t, testConfig)
	v := &cerealVerb{}
	set := parse(t, v, "--config", path)
	cfg, err := v.resolve(ctx, set.Raw)
	if !assert.For(ctx, "resolve").ThatError(err).Succeeded() {
		return
	}
	opts := cfg.Options()
	assert.For(ctx, "versions").That(opts.Registry.Versions).Equals("VK_VERSION_1_[0-2]")
	assert.For(ctx, "emit extensions").That(opts.Registry.EmitExtensions).Equals("VK_KHR_.*")
	assert.For(ctx, "variant").That(opts.Variant).Equals(cereal.Guest)
	assert.For(ctx, "registries").ThatSlice(opts.Registries).Equals([]string{"vk.xml"})
	assert.For(ctx, "modules").ThatSlice(opts.Modules).Equals([]string{"goldfish_vk_marshaling"})
	assert.For(ctx, "year").That(opts.CopyrightYear).Equals("2023")
	assert.For(ctx, "directory").That(cfg.Directory).Equals("out")
}

func TestFlagsOverrideConfig(t *testing.T) {
	ctx := log.Testing(t)
	path := writeConfig(t, testConfig)
	v := &cerealVerb{}
	set := parse(t, v, "--config", path, "--variant", "host", "--registry", "a.xml", "--registry", "b.xml", "--out", "gen")
	cfg, err := v.resolve(ctx, set.Raw)
	if !assert.For(ctx, "resolve").ThatError(err).Succeeded() {
		return
	}
	assert.For(ctx, "variant").That(cfg.Variant).Equals("host")
	assert.For(ctx, "registries").ThatSlice(cfg.Registries).Equals([]string{"a.xml", "b.xml"})
	assert.For(ctx, "directory").That(cfg.Directory).Equals("gen")
	assert.For(ctx, "untouched").That(cfg.Versions).Equals("VK_VERSION_1_[0-2]")
}

func TestDefaults(t *testing.T) {
	ctx := log.Testing(t)
	v := &cerealVerb{}
	set := parse(t, v, "--registry", "vk.xml")
	cfg, err := v.resolve(ctx, set.Raw)
	if !assert.For(ctx, "resolve").ThatError(err).Succeeded() {
		return
	}
	assert.For(ctx, "variant").That(cfg.Variant).Equals("guest")
	assert.For(ctx, "directory").That(cfg.Directory).Equals(".")
}

func TestBadConfig(t *testing.T) {
	ctx := log.Testing(t)
	v := &cerealVerb{}
	set := parse(t, v, "--config", writeConfig(t, testConfig+"bogus = 1\n"))
	_, err := v.resolve(ctx, set.Raw)
	assert.For(ctx, "unknown key").ThatError(err).Failed()

	v = &cerealVerb{}
	set = parse(t, v, "--config", filepath.Join(t.TempDir(), "missing.toml"))
	_, err = v.resolve(ctx, set.Raw)
	assert.For(ctx, "missing file").ThatError(err).Failed()
}

func TestSharedFlagsBound(t *testing.T) {
	ctx := log.Testing(t)
	for _, action := range []interface{}{&cerealVerb{}, &manifestVerb{}, &opcodesVerb{}} {
		set := &flags.Set{}
		set.Raw.Init("verb", flag.ContinueOnError)
		set.Bind("", action, "")
		for _, name := range []string{
			"config", "api", "versions", "emit-versions", "add-extensions",
			"remove-extensions", "emit-extensions", "out", "variant",
			"registry", "module", "year",
		} {
			assert.For(ctx, "%T --%v", action, name).That(set.Raw.Lookup(name) != nil).Equals(true)
		}
	}
}
