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

package encoder_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/encoder"
	"github.com/google/gfxcodegen/cereal/visitors/visitorstest"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
)

func generate(ctx context.Context) (string, string) {
	header, impl, err := visitorstest.Run(ctx, func(info *types.Info) emit.Wrapper {
		ops, err := visitorstest.Opcodes(ctx, info)
		assert.For(ctx, "opcodes").ThatError(err).Succeeded()
		return encoder.New(info, emit.NewModule("guest", "VkEncoder"), ops)
	})
	assert.For(ctx, "generate").ThatError(err).Succeeded()
	return header, impl
}

// method returns the definition of the named encoder method.
func method(impl, name string) string {
	start := strings.Index(impl, " VkEncoder::"+name+"(\n")
	if start < 0 {
		return ""
	}
	end := strings.Index(impl[start:], "\n}\n")
	return impl[start : start+end]
}

func TestClass(t *testing.T) {
	ctx := log.Testing(t)
	header, _ := generate(ctx)
	assert.For(ctx, "open").ThatString(header).Contains("class VkEncoder {\n   public:\n")
	assert.For(ctx, "decl").ThatString(header).Contains(
		"    VkResult vkCreateBuffer(\n        VkDevice device,\n        const VkBufferCreateInfo* pCreateInfo,\n" +
			"        const VkAllocationCallbacks* pAllocator,\n        VkBuffer* pBuffer,\n        uint32_t doLock);\n")
	assert.For(ctx, "close").ThatString(header).Contains("    std::unique_ptr<Impl> mImpl;\n};\n")
}

func TestCreateBuffer(t *testing.T) {
	ctx := log.Testing(t)
	_, impl := generate(ctx)
	m := method(impl, "vkCreateBuffer")
	for _, want := range []string{
		"count_VkBufferCreateInfo(sFeatureBits, VK_STRUCTURE_TYPE_MAX_ENUM, (const VkBufferCreateInfo*)(pCreateInfo), countPtr);",
		"uint32_t packetSize_vkCreateBuffer = 4 + 4 + count;",
		"    if (queueSubmitWithCommandsEnabled)\n    {\n        packetSize_vkCreateBuffer += 4;\n    }\n",
		"uint8_t* streamPtr = stream->reserve(packetSize_vkCreateBuffer);",
		"uint32_t opcode_vkCreateBuffer = OP_vkCreateBuffer;",
		"memcpy(streamPtr, &opcode_vkCreateBuffer, sizeof(uint32_t));\n    android::base::Stream::toBe32((uint8_t*)streamPtr);",
		"uint32_t seqno = ResourceTracker::nextSeqno();",
		"reservedmarshal_VkBufferCreateInfo(stream, VK_STRUCTURE_TYPE_MAX_ENUM, (const VkBufferCreateInfo*)(pCreateInfo), streamPtrPtr);",
		"stream->setHandleMapping(sResourceTracker->createMapping());",
		"(uint64_t)stream->getBe64();",
		", (VkBuffer*)pBuffer, 1);",
		"stream->unsetHandleMapping();",
		"VkResult vkCreateBuffer_VkResult_return = (VkResult)0;",
		"*(uint32_t*)&vkCreateBuffer_VkResult_return = (uint32_t)stream->getBe32();",
		"    return vkCreateBuffer_VkResult_return;",
	} {
		assert.For(ctx, "create buffer").ThatString(m).Contains(want)
	}
	assert.For(ctx, "order").That(
		strings.Index(m, "reservedmarshal_VkBufferCreateInfo") < strings.Index(m, "setHandleMapping")).Equals(true)
}

func TestCommandBufferSkipped(t *testing.T) {
	ctx := log.Testing(t)
	_, impl := generate(ctx)
	m := method(impl, "vkCmdDraw")
	assert.For(ctx, "shrunk").ThatString(m).Contains(
		"    if (queueSubmitWithCommandsEnabled)\n    {\n        packetSize_vkCmdDraw -= 8;\n    }\n")
	assert.For(ctx, "skipped").ThatString(m).Contains(
		"    if (!queueSubmitWithCommandsEnabled)\n    {\n        uint64_t cgen_var_")
	assert.For(ctx, "boxed").ThatString(m).Contains("= (uint64_t)get_host_u64_VkCommandBuffer(commandBuffer);")
	assert.For(ctx, "no seqno").That(strings.Contains(m, "nextSeqno")).Equals(false)
	assert.For(ctx, "no mapping").That(strings.Contains(m, "HandleMapping(")).Equals(false)
	assert.For(ctx, "void").That(strings.Contains(m, "return ")).Equals(false)
}

func TestOutputs(t *testing.T) {
	ctx := log.Testing(t)
	_, impl := generate(ctx)
	m := method(impl, "vkGetPhysicalDeviceExternalBufferProperties")
	assert.For(ctx, "read in place").ThatString(m).Contains(
		"unmarshal_VkExternalBufferProperties(stream, VK_STRUCTURE_TYPE_MAX_ENUM, (VkExternalBufferProperties*)(pExternalBufferProperties));")
	assert.For(ctx, "fromhost").ThatString(m).Contains(
		"transform_fromhost_VkExternalBufferProperties(sResourceTracker, VK_STRUCTURE_TYPE_MAX_ENUM, (VkExternalBufferProperties*)(pExternalBufferProperties));")
	assert.For(ctx, "no alloc").That(strings.Contains(m, "stream->alloc((void**)&pExternalBufferProperties")).Equals(false)

	alias := method(impl, "vkGetPhysicalDeviceExternalBufferPropertiesKHR")
	assert.For(ctx, "alias opcode").ThatString(alias).Contains(
		"uint32_t opcode_vkGetPhysicalDeviceExternalBufferPropertiesKHR = OP_vkGetPhysicalDeviceExternalBufferPropertiesKHR;")
}
