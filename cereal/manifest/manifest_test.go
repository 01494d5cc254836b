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

package manifest_test

import (
	"bytes"
	"testing"

	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/google/gfxcodegen/cereal"
	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/manifest"
	"github.com/google/gfxcodegen/cereal/opcodes"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
)

func TestManifest(t *testing.T) {
	ctx := log.Testing(t)
	table, err := opcodes.Default()
	if !assert.For(ctx, "table").ThatError(err).Succeeded() {
		return
	}
	ops, err := table.Assign(ctx, []string{"vkCreateInstance", "vkCreateBuffer"})
	if !assert.For(ctx, "assign").ThatError(err).Succeeded() {
		return
	}
	res := &cereal.Result{
		Variant: cereal.Host,
		Opcodes: ops,
		Files: []cereal.Output{
			{File: emit.File{Path: "VkDecoder.cpp", Content: "int x;\n"}, Module: "VkDecoder", Functions: 3},
		},
	}
	m := manifest.Build(res)
	assert.For(ctx, "variant").That(m.Fields["variant"].GetStringValue()).Equals("host")
	files := m.Fields["files"].GetListValue().GetValues()
	if assert.For(ctx, "files").That(len(files)).Equals(1) {
		f := files[0].GetStructValue().Fields
		assert.For(ctx, "path").That(f["path"].GetStringValue()).Equals("VkDecoder.cpp")
		assert.For(ctx, "functions").That(f["functions"].GetNumberValue()).Equals(3.0)
		assert.For(ctx, "bytes").That(f["bytes"].GetNumberValue()).Equals(7.0)
	}

	bufferOp, _ := ops.Opcode("vkCreateBuffer")
	want := map[string]uint32{"vkCreateInstance": 20000, "vkCreateBuffer": bufferOp}

	buf := &bytes.Buffer{}
	assert.For(ctx, "write json").ThatError(manifest.WriteJSON(buf, m)).Succeeded()
	assert.For(ctx, "json").ThatString(buf.String()).Contains(`"vkCreateInstance":`)
	fromJSON, err := manifest.ReadJSON(buf)
	if assert.For(ctx, "read json").ThatError(err).Succeeded() {
		got, err := manifest.Opcodes(fromJSON)
		assert.For(ctx, "json opcodes").ThatError(err).Succeeded()
		assert.For(ctx, "json opcodes").That(got).DeepEquals(want)
	}

	buf.Reset()
	assert.For(ctx, "write proto").ThatError(manifest.WriteProto(buf, m)).Succeeded()
	fromProto, err := manifest.ReadProto(buf)
	if assert.For(ctx, "read proto").ThatError(err).Succeeded() {
		got, err := manifest.Opcodes(fromProto)
		assert.For(ctx, "proto opcodes").ThatError(err).Succeeded()
		assert.For(ctx, "proto opcodes").That(got).DeepEquals(want)
	}
}

func TestMalformed(t *testing.T) {
	ctx := log.Testing(t)
	_, err := manifest.Opcodes(&structpb.Struct{Fields: map[string]*structpb.Value{}})
	assert.For(ctx, "missing").ThatError(err).HasCause(manifest.ErrManifest)
}

func TestDiff(t *testing.T) {
	ctx := log.Testing(t)
	before := map[string]uint32{"vkA": 1, "vkB": 2, "vkC": 3}
	after := map[string]uint32{"vkB": 2, "vkC": 4, "vkD": 5}
	assert.For(ctx, "diff").ThatSlice(manifest.Diff(before, after)).Equals([]string{
		"- vkA 1",
		"! vkC 3 -> 4",
		"+ vkD 5",
	})
	assert.For(ctx, "same").ThatSlice(manifest.Diff(before, before)).IsEmpty()
}
