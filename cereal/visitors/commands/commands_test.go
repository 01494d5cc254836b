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

package commands_test

import (
	"testing"

	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/commands"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
)

func TestGlobalState(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		name, orig string
		global     bool
	}{
		{"vkCreateSampler", "vkCreateSampler", true},
		{"vkCreateGraphicsPipelines", "vkCreateGraphicsPipelines", true},
		{"vkCreateComputePipelines", "vkCreateComputePipelines", true},
		{"vkCreateDescriptorSetLayout", "vkCreateDescriptorSetLayout", true},
		{"vkAllocateDescriptorSets", "vkAllocateDescriptorSets", true},
		{"vkCreateDescriptorPool", "vkCreateDescriptorPool", true},
		{"vkMapMemory", "vkMapMemory", true},
		{"vkAcquireImageANDROID", "vkAcquireImageANDROID", true},
		{"vkQueueSignalReleaseImageANDROID", "vkQueueSignalReleaseImageANDROID", true},
		{"vkMapMemoryIntoAddressSpaceGOOGLE", "vkMapMemoryIntoAddressSpaceGOOGLE", true},
		{"vkRegisterImageColorBufferGOOGLE", "vkRegisterImageColorBufferGOOGLE", true},
		{"vkRegisterBufferColorBufferGOOGLE", "vkRegisterBufferColorBufferGOOGLE", true},
		{"vkGetMemoryHostAddressInfoGOOGLE", "vkGetMemoryHostAddressInfoGOOGLE", true},
		{"vkQueueCommitDescriptorSetUpdatesGOOGLE", "vkQueueCommitDescriptorSetUpdatesGOOGLE", true},
		{"vkGetPhysicalDeviceProperties2KHR", "vkGetPhysicalDeviceProperties2", true},
		{"vkCmdDraw", "vkCmdDraw", false},
		{"vkDeviceWaitIdle", "vkDeviceWaitIdle", false},
		{"vkFlushMappedMemoryRanges", "vkFlushMappedMemoryRanges", false},
	} {
		api := &types.APIInfo{Name: test.name, OrigName: test.orig}
		assert.For(ctx, test.name).That(commands.IsGlobalState(api)).Equals(test.global)
	}
}
