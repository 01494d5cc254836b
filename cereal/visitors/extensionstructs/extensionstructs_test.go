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

package extensionstructs_test

import (
	"strings"
	"testing"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/extensionstructs"
	"github.com/google/gfxcodegen/cereal/visitors/visitorstest"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
)

func TestSizeTables(t *testing.T) {
	ctx := log.Testing(t)
	header, impl, err := visitorstest.Run(ctx, func(info *types.Info) emit.Wrapper {
		return extensionstructs.New(info, emit.NewModule("", "goldfish_vk_extension_structs"))
	})
	assert.For(ctx, "generate").ThatError(err).Succeeded()
	assert.For(ctx, "decl").ThatString(header).Contains(
		"uint32_t goldfish_vk_struct_type(\n    const void* structExtension);")
	assert.For(ctx, "case").ThatString(impl).Contains(
		"#ifdef VK_VERSION_1_1\n" +
			"        case VK_STRUCTURE_TYPE_EXTERNAL_MEMORY_BUFFER_CREATE_INFO:\n" +
			"        {\n" +
			"            return sizeof(VkExternalMemoryBufferCreateInfo);\n")
	assert.For(ctx, "root override").ThatString(impl).Contains(
		"            switch (rootType)\n" +
			"            {\n" +
			"#ifdef VK_GOOGLE_gfxstream\n" +
			"                case VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO:\n" +
			"                {\n" +
			"                    return sizeof(VkImportColorBufferGOOGLE);\n")
	assert.For(ctx, "default").ThatString(impl).Contains(
		"default:\n        {\n            return (size_t)0;")
	assert.For(ctx, "both tables").That(strings.Count(impl, "return sizeof(VkExternalMemoryBufferCreateInfo);")).Equals(2)
	assert.For(ctx, "root structs excluded").That(strings.Contains(impl, "sizeof(VkBufferCreateInfo)")).Equals(false)
}
