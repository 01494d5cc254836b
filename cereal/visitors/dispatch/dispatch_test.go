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

package dispatch_test

import (
	"strings"
	"testing"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/dispatch"
	"github.com/google/gfxcodegen/cereal/visitors/visitorstest"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
)

func TestDispatch(t *testing.T) {
	ctx := log.Testing(t)
	header, impl, err := visitorstest.Run(ctx, func(info *types.Info) emit.Wrapper {
		ops, err := visitorstest.Opcodes(ctx, info)
		assert.For(ctx, "opcodes").ThatError(err).Succeeded()
		return dispatch.New(emit.NewModule("host", "goldfish_vk_dispatch"), ops)
	})
	assert.For(ctx, "generate").ThatError(err).Succeeded()

	assert.For(ctx, "table").ThatString(header).Contains(`struct VulkanDispatch
{
#ifdef VK_VERSION_1_0
    PFN_vkCreateInstance vkCreateInstance;
    PFN_vkDestroyInstance vkDestroyInstance;
`)
	assert.For(ctx, "alias").ThatString(header).Contains(
		"    PFN_vkGetPhysicalDeviceExternalBufferPropertiesKHR vkGetPhysicalDeviceExternalBufferPropertiesKHR;\n")
	assert.For(ctx, "loader").ThatString(impl).Contains(
		`    out->vkCreateBuffer = (PFN_vkCreateBuffer)dlSymFunc(lib, "vkCreateBuffer");`)
	assert.For(ctx, "instance").ThatString(impl).Contains(
		`    out->vkEnumeratePhysicalDevices = (PFN_vkEnumeratePhysicalDevices)vk->vkGetInstanceProcAddr(instance, "vkEnumeratePhysicalDevices");`)
	assert.For(ctx, "device").ThatString(impl).Contains(
		`    out->vkCmdDraw = (PFN_vkCmdDraw)vk->vkGetDeviceProcAddr(device, "vkCmdDraw");`)
	assert.For(ctx, "global via device").That(strings.Contains(impl,
		`vk->vkGetDeviceProcAddr(device, "vkCreateInstance")`)).Equals(false)
	assert.For(ctx, "instance via device").That(strings.Contains(impl,
		`vk->vkGetDeviceProcAddr(device, "vkEnumeratePhysicalDevices")`)).Equals(false)
	assert.For(ctx, "lookup").ThatString(impl).Contains(
		"        case OP_vkCreateBuffer: return (PFN_vkVoidFunction)vk->vkCreateBuffer;")
	assert.For(ctx, "hashed").ThatString(impl).Contains(
		"        case OP_vkQueueFlushCommandsGOOGLE: return (PFN_vkVoidFunction)vk->vkQueueFlushCommandsGOOGLE;")
	assert.For(ctx, "default").ThatString(impl).Contains("        default: return nullptr;")
}

func TestLevelOf(t *testing.T) {
	ctx := log.Testing(t)
	info, err := visitorstest.Info(ctx)
	assert.For(ctx, "info").ThatError(err).Succeeded()
	for _, test := range []struct {
		cmd   string
		level dispatch.Level
	}{
		{"vkCreateInstance", dispatch.Global},
		{"vkEnumeratePhysicalDevices", dispatch.Instance},
		{"vkGetPhysicalDeviceProperties", dispatch.Instance},
		{"vkCreateBuffer", dispatch.Device},
		{"vkQueueSubmit", dispatch.Device},
		{"vkCmdDraw", dispatch.Device},
	} {
		assert.For(ctx, test.cmd).That(dispatch.LevelOf(info.Command(test.cmd))).Equals(test.level)
	}
}
