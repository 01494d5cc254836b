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

package emit_test

import (
	"testing"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
)

func TestBlocks(t *testing.T) {
	ctx := log.Testing(t)
	g := emit.New()
	g.BeginFuncDef(emit.FuncProto("void", "f", emit.Param{Type: "uint32_t", Name: "n"}, emit.Param{Type: "const char*", Name: "s"}))
	idx := g.VarWithPrefix("i")
	g.BeginLoop(idx, "n")
	g.BeginIf("%s == 2", idx)
	g.Stmt("g(%s)", idx)
	g.BeginElse()
	g.BeginSwitch("s[0]")
	g.SwitchCase("'a'")
	g.SwitchCaseEnd()
	g.SwitchCaseReturn("'b'", "1")
	g.EndSwitch()
	g.EndIf()
	g.EndFor()
	g.EndFuncDef()
	assert.For(ctx, "output").ThatString(g.Swap()).Equals(`void f(
    uint32_t n,
    const char* s)
{
    for (uint32_t i_0 = 0; i_0 < (uint32_t)n; ++i_0)
    {
        if (i_0 == 2)
        {
            g(i_0);
        }
        else
        {
            switch (s[0])
            {
                case 'a':
                {
                    break;
                }
                case 'b': return 1;
            }
        }
    }
}

`)
	assert.For(ctx, "swap resets").ThatString(g.String()).Equals("")
	assert.For(ctx, "var counter survives swap").ThatString(g.Var()).Equals("cgen_var_1")
}

func TestIfdef(t *testing.T) {
	ctx := log.Testing(t)
	g := emit.New()
	g.BeginBlock()
	g.BeginIfdef("VK_VERSION_1_0")
	g.Stmt("a()")
	g.EndIfdef()
	g.EndBlock()
	assert.For(ctx, "output").ThatString(g.String()).Equals("{\n#ifdef VK_VERSION_1_0\n    a();\n#endif\n}\n")
}

func TestStreams(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		stream emit.Stream
		expect string
	}{
		{
			emit.Stream{Dir: emit.Write, Var: "vkStream"},
			"vkStream->putBe32(*(const uint32_t*)&forMarshaling->size);\n",
		}, {
			emit.Stream{Dir: emit.Read, Var: "vkStream"},
			"*(uint32_t*)&forMarshaling->size = (uint32_t)vkStream->getBe32();\n",
		}, {
			emit.Stream{Dir: emit.ReservedWrite, Var: "ptr"},
			"memcpy(*ptr, (const uint32_t*)&forMarshaling->size, 4);\n" +
				"android::base::Stream::toBe32((uint8_t*)*ptr);\n" +
				"*ptr += 4;\n",
		}, {
			emit.Stream{Dir: emit.ReservedRead, Var: "readStreamPtrPtr"},
			"memcpy((uint32_t*)&forMarshaling->size, *readStreamPtrPtr, 4);\n" +
				"android::base::Stream::fromBe32((uint8_t*)&forMarshaling->size);\n" +
				"*readStreamPtrPtr += 4;\n",
		}, {
			emit.Stream{Dir: emit.Count, Var: "count"},
			"*count += 4;\n",
		},
	} {
		g := emit.New()
		test.stream.Primitive(g, 4, "forMarshaling->size")
		assert.For(ctx, "direction %v", test.stream.Dir).ThatString(g.String()).Equals(test.expect)
	}

	g := emit.New()
	emit.Stream{Dir: emit.Write, Var: "vkStream"}.Primitive(g, 1, "x")
	assert.For(ctx, "byte").ThatString(g.String()).Equals("vkStream->putByte(*(const uint8_t*)&x);\n")

	g = emit.New()
	v := emit.Stream{Dir: emit.Write, Var: "vkStream"}.Value(g, 8, "handle")
	assert.For(ctx, "value var").ThatString(v).Equals("cgen_var_0")
	assert.For(ctx, "value").ThatString(g.String()).Equals(
		"uint64_t cgen_var_0 = (uint64_t)handle;\nvkStream->putBe64(*(const uint64_t*)&cgen_var_0);\n")
}

func TestLengthAccess(t *testing.T) {
	ctx := log.Testing(t)
	scope := emit.Scope{
		Var: "forMarshaling",
		Members: []*types.VulkanType{
			{TypeName: "size_t", ParamName: "codeSize"},
			{TypeName: "uint32_t", ParamName: "count"},
			{TypeName: "VkSampleCountFlagBits", ParamName: "rasterizationSamples"},
			{TypeName: "size_t", ParamName: "pDataSize", PointerIndirectionLevels: 1},
			{TypeName: "VkAllocateInfo", ParamName: "pAllocateInfo", PointerIndirectionLevels: 1, IsConst: true},
		},
	}
	for _, test := range []struct {
		len    string
		expect string
		guard  string
	}{
		{"", "", ""},
		{"count", "(forMarshaling->count)", ""},
		{"pDataSize", "(*(forMarshaling->pDataSize))", "forMarshaling->pDataSize"},
		{"pAllocateInfo->descriptorSetCount", "forMarshaling->pAllocateInfo->descriptorSetCount", "forMarshaling->pAllocateInfo"},
		{"4", "4", ""},
		{"VK_UUID_SIZE", "VK_UUID_SIZE", ""},
		{`latexmath:[\textrm{codeSize} \over 4]`, "((forMarshaling->codeSize) / 4)", ""},
		{`latexmath:[\lceil{\mathit{rasterizationSamples} \over 32}\rceil]`, "(((forMarshaling->rasterizationSamples) + 31) / 32)", ""},
		{`latexmath:[2 \times \mathtt{VK\_UUID\_SIZE}]`, "(2 * VK_UUID_SIZE)", ""},
		{"null-terminated", "strlen(forMarshaling->pName)", ""},
	} {
		member := &types.VulkanType{TypeName: "uint32_t", ParamName: "pName", LenExpr: test.len}
		got, err := emit.LengthAccess(member, scope)
		if assert.For(ctx, "len %v", test.len).ThatError(err).Succeeded() {
			assert.For(ctx, "len %v", test.len).ThatString(got).Equals(test.expect)
		}
		assert.For(ctx, "guard %v", test.len).ThatString(emit.LengthGuard(member, scope)).Equals(test.guard)
	}
	for _, bad := range []string{"missing", `latexmath:[\sqrt{codeSize}]`, "other->field", "vkThing"} {
		_, err := emit.LengthAccess(&types.VulkanType{ParamName: "p", LenExpr: bad}, scope)
		assert.For(ctx, "len %v", bad).ThatError(err).HasCause(emit.ErrLengthExpr)
	}
}

func TestModuleFeatureGuards(t *testing.T) {
	ctx := log.Testing(t)
	m := emit.NewModule("guest", "goldfish_vk_test")
	m.HeaderPreamble = "#pragma once\n"
	m.BeginFeature("VK_VERSION_1_0")
	m.AppendHeader("void a();\n")
	m.BeginFeature("VK_KHR_empty")
	m.BeginFeature("VK_GOOGLE_gfxstream")
	m.AppendImpl("void b() {}\n")
	m.EndFeature()
	files := m.Files()
	assert.For(ctx, "files").ThatSlice(files).IsLength(2)
	assert.For(ctx, "header path").ThatString(files[0].Path).Equals("guest/goldfish_vk_test.h")
	assert.For(ctx, "header").ThatString(files[0].Content).Equals("#pragma once\n#ifdef VK_VERSION_1_0\nvoid a();\n#endif\n")
	assert.For(ctx, "impl path").ThatString(files[1].Path).Equals("guest/goldfish_vk_test.cpp")
	assert.For(ctx, "impl").ThatString(files[1].Content).Equals("#ifdef VK_GOOGLE_gfxstream\nvoid b() {}\n#endif\n")
}

func TestAddressOf(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		expr   string
		expect string
	}{
		{"device", "&device"},
		{"forMarshaling->limits", "&forMarshaling->limits"},
		{"(*(pBuffer))", "pBuffer"},
		{"(*(forMarshaling->pImage))", "forMarshaling->pImage"},
		{"(*(p + i_0))", "(p + i_0)"},
	} {
		assert.For(ctx, test.expr).ThatString(emit.AddressOf(test.expr)).Equals(test.expect)
	}
}
