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

package reservedmarshaling_test

import (
	"testing"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/marshaling"
	"github.com/google/gfxcodegen/cereal/visitors/reservedmarshaling"
	"github.com/google/gfxcodegen/cereal/visitors/visitorstest"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
)

func run(t *testing.T, styles []marshaling.Style) (string, string) {
	ctx := log.Testing(t)
	header, impl, err := visitorstest.Run(ctx, func(info *types.Info) emit.Wrapper {
		return reservedmarshaling.New(info, emit.NewModule("", "goldfish_vk_reserved_marshaling"), styles)
	})
	assert.For(ctx, "generate").ThatError(err).Succeeded()
	return header, impl
}

func TestGuest(t *testing.T) {
	ctx := log.Testing(t)
	header, impl := run(t, reservedmarshaling.Guest)
	assert.For(ctx, "proto").ThatString(header).Contains(`void reservedmarshal_VkBufferCreateInfo(
    VulkanStreamGuest* vkStream,
    VkStructureType rootType,
    const VkBufferCreateInfo* forMarshaling,
    uint8_t** ptr);`)
	assert.For(ctx, "sType").ThatString(impl).Contains(
		"    memcpy(*ptr, (const uint32_t*)&forMarshaling->sType, 4);\n" +
			"    android::base::Stream::toBe32((uint8_t*)*ptr);\n" +
			"    *ptr += 4;\n")
	assert.For(ctx, "handle").ThatString(impl).Contains(
		"uint64_t cgen_var_2 = (uint64_t)get_host_u64_VkSemaphore(forMarshaling->pWaitSemaphores[i_1]);")
	assert.For(ctx, "chain").ThatString(impl).Contains(
		"reservedmarshal_extension_struct(vkStream, rootType, forMarshaling->pNext, ptr);")
	assert.For(ctx, "bytes").ThatString(impl).Contains(
		"memcpy(*ptr, (const void*)forMarshaling->deviceName, VK_MAX_PHYSICAL_DEVICE_NAME_SIZE * sizeof(char));")
}

func TestHost(t *testing.T) {
	ctx := log.Testing(t)
	_, impl := run(t, reservedmarshaling.Host)
	assert.For(ctx, "unbox").ThatString(impl).Contains(
		"*(VkSemaphore*)&forUnmarshaling->pWaitSemaphores[i_1] = (VkSemaphore)unbox_VkSemaphore((VkSemaphore)cgen_var_2);")
	assert.For(ctx, "string").ThatString(impl).Contains(
		"vkStream->loadStringInPlaceWithStreamPtr((char**)&forUnmarshaling->pApplicationName, ptr);")
	assert.For(ctx, "peek").ThatString(impl).Contains(
		"memcpy(&structType, *ptr, sizeof(uint32_t));\n    android::base::Stream::fromBe32((uint8_t*)&structType);")
	assert.For(ctx, "skip").ThatString(impl).Contains("*ptr += currExtSize;")
}
