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

package deepcopy_test

import (
	"testing"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/deepcopy"
	"github.com/google/gfxcodegen/cereal/visitors/visitorstest"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
)

func TestDeepcopy(t *testing.T) {
	ctx := log.Testing(t)
	header, impl, err := visitorstest.Run(ctx, func(info *types.Info) emit.Wrapper {
		return deepcopy.New(info, emit.NewModule("common", "goldfish_vk_deepcopy"))
	})
	assert.For(ctx, "generate").ThatError(err).Succeeded()

	assert.For(ctx, "buffer").ThatString(impl).Contains(`void deepcopy_VkBufferCreateInfo(
    Allocator* alloc,
    VkStructureType rootType,
    const VkBufferCreateInfo* from,
    VkBufferCreateInfo* to)
{
    (void)alloc;
    (void)rootType;
    *to = *from;
    if (rootType == VK_STRUCTURE_TYPE_MAX_ENUM)
    {
        rootType = from->sType;
    }
    to->pQueueFamilyIndices = nullptr;
    if (from->pQueueFamilyIndices)
    {
        to->pQueueFamilyIndices = (const uint32_t*)alloc->dupArray(from->pQueueFamilyIndices, (from->queueFamilyIndexCount) * sizeof(const uint32_t));
    }
    const void* from_pNext = from;
    size_t pNext_size = 0u;
    while (!pNext_size && from_pNext)
    {
        from_pNext = reinterpret_cast<const VkBaseInStructure*>(from_pNext)->pNext;
        pNext_size = goldfish_vk_extension_struct_size(rootType, from_pNext);
    }
    to->pNext = nullptr;
    if (pNext_size)
    {
        to->pNext = (void*)alloc->alloc(pNext_size);
        deepcopy_extension_struct(alloc, rootType, from_pNext, (void*)(to->pNext));
    }
}
`)
	assert.For(ctx, "nested").ThatString(impl).Contains(`    to->pApplicationInfo = nullptr;
    if (from->pApplicationInfo)
    {
        to->pApplicationInfo = (VkApplicationInfo*)alloc->alloc(1 * sizeof(const VkApplicationInfo));
        deepcopy_VkApplicationInfo(alloc, rootType, from->pApplicationInfo, (VkApplicationInfo*)(to->pApplicationInfo));
    }`)
	assert.For(ctx, "strings").ThatString(impl).Contains(`    to->ppEnabledLayerNames = nullptr;
    if (from->ppEnabledLayerNames && (from->enabledLayerCount))
    {
        to->ppEnabledLayerNames = alloc->strDupArray(from->ppEnabledLayerNames, (from->enabledLayerCount));
    }`)
	assert.For(ctx, "string").ThatString(impl).Contains(`    to->pApplicationName = nullptr;
    if (from->pApplicationName)
    {
        to->pApplicationName = alloc->strDup(from->pApplicationName);
    }
    to->pEngineName = nullptr;`)
	assert.For(ctx, "static").ThatString(impl).Contains(
		"memcpy(to->deviceName, from->deviceName, VK_MAX_PHYSICAL_DEVICE_NAME_SIZE * sizeof(char));")
	assert.For(ctx, "value").ThatString(impl).Contains(
		"deepcopy_VkPhysicalDeviceLimits(alloc, rootType, &from->limits, (VkPhysicalDeviceLimits*)(&to->limits));")
	assert.For(ctx, "array").ThatString(impl).Contains("< (uint32_t)(from->descriptorCount); ++i_")
	assert.For(ctx, "element").ThatString(impl).Contains(
		"deepcopy_VkDescriptorImageInfo(alloc, rootType, from->pImageInfo + i_")
	assert.For(ctx, "chain").ThatString(impl).Contains(`        case VK_STRUCTURE_TYPE_EXTERNAL_MEMORY_BUFFER_CREATE_INFO:
        {
            deepcopy_VkExternalMemoryBufferCreateInfo(alloc, rootType, reinterpret_cast<const VkExternalMemoryBufferCreateInfo*>(structExtension), reinterpret_cast<VkExternalMemoryBufferCreateInfo*>(structExtension_out));
            break;
        }`)
	assert.For(ctx, "alias").ThatString(header).Contains(
		"#define deepcopy_VkExternalMemoryBufferCreateInfoKHR deepcopy_VkExternalMemoryBufferCreateInfo\n")
}
