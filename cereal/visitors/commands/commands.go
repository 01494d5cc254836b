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

// Package commands holds what the command level modules share: the tables
// of commands with special handling and the streaming of parameters.
package commands

import (
	"fmt"
	"strings"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors"
	"github.com/google/gfxcodegen/cereal/visitors/marshaling"
	"github.com/google/gfxcodegen/cereal/visitors/transform"
	"github.com/pkg/errors"
)

// Root is the rootType of the structs passed as parameters.
const Root = visitors.MaxEnumRoot

// MaxPacketLength is the largest packet the decoders accept without
// complaint.
const MaxPacketLength = 400 * 1024 * 1024

func set(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

var (
	// GlobalState commands are handled by the host's global state tracker
	// instead of the driver. Every GOOGLE entry point is too, see
	// IsGlobalState.
	GlobalState = set(
		// Instances, physical devices and devices.
		"vkCreateInstance",
		"vkDestroyInstance",
		"vkEnumerateInstanceVersion",
		"vkEnumerateInstanceExtensionProperties",
		"vkEnumeratePhysicalDevices",
		"vkEnumerateDeviceExtensionProperties",
		"vkGetPhysicalDeviceFeatures",
		"vkGetPhysicalDeviceFeatures2",
		"vkGetPhysicalDeviceProperties",
		"vkGetPhysicalDeviceProperties2",
		"vkGetPhysicalDeviceMemoryProperties",
		"vkGetPhysicalDeviceMemoryProperties2",
		"vkGetPhysicalDeviceFormatProperties",
		"vkGetPhysicalDeviceFormatProperties2",
		"vkGetPhysicalDeviceImageFormatProperties",
		"vkGetPhysicalDeviceImageFormatProperties2",
		"vkGetPhysicalDeviceExternalBufferProperties",
		"vkGetPhysicalDeviceExternalSemaphoreProperties",
		"vkGetPhysicalDeviceExternalFenceProperties",
		"vkCreateDevice",
		"vkDestroyDevice",
		"vkGetDeviceQueue",
		"vkGetDeviceQueue2",

		// Queues.
		"vkQueueSubmit",
		"vkQueueSubmit2",
		"vkQueueWaitIdle",
		"vkQueueBindSparse",

		// Memory and its mapping.
		"vkAllocateMemory",
		"vkFreeMemory",
		"vkMapMemory",
		"vkUnmapMemory",
		"vkGetBufferMemoryRequirements",
		"vkGetBufferMemoryRequirements2",
		"vkGetImageMemoryRequirements",
		"vkGetImageMemoryRequirements2",
		"vkBindBufferMemory",
		"vkBindBufferMemory2",
		"vkBindImageMemory",
		"vkBindImageMemory2",

		// Buffers, images, views and samplers.
		"vkCreateBuffer",
		"vkDestroyBuffer",
		"vkCreateBufferView",
		"vkDestroyBufferView",
		"vkCreateImage",
		"vkDestroyImage",
		"vkCreateImageView",
		"vkDestroyImageView",
		"vkCreateSampler",
		"vkDestroySampler",
		"vkCreateSamplerYcbcrConversion",
		"vkDestroySamplerYcbcrConversion",

		// Descriptor sets.
		"vkCreateDescriptorSetLayout",
		"vkDestroyDescriptorSetLayout",
		"vkCreateDescriptorPool",
		"vkDestroyDescriptorPool",
		"vkResetDescriptorPool",
		"vkAllocateDescriptorSets",
		"vkFreeDescriptorSets",
		"vkUpdateDescriptorSets",
		"vkCreateDescriptorUpdateTemplate",
		"vkDestroyDescriptorUpdateTemplate",
		"vkUpdateDescriptorSetWithTemplate",

		// Shaders and pipelines.
		"vkCreateShaderModule",
		"vkDestroyShaderModule",
		"vkCreatePipelineCache",
		"vkDestroyPipelineCache",
		"vkCreateGraphicsPipelines",
		"vkCreateComputePipelines",
		"vkDestroyPipeline",

		// Render passes and framebuffers.
		"vkCreateRenderPass",
		"vkCreateRenderPass2",
		"vkDestroyRenderPass",
		"vkCreateFramebuffer",
		"vkDestroyFramebuffer",

		// Command pools and buffers.
		"vkCreateCommandPool",
		"vkDestroyCommandPool",
		"vkResetCommandPool",
		"vkAllocateCommandBuffers",
		"vkFreeCommandBuffers",
		"vkBeginCommandBuffer",
		"vkEndCommandBuffer",
		"vkResetCommandBuffer",
		"vkCmdPipelineBarrier",
		"vkCmdBindPipeline",
		"vkCmdBindDescriptorSets",
		"vkCmdCopyBufferToImage",
		"vkCmdCopyImageToBuffer",
		"vkCmdCopyImage",

		// Synchronization.
		"vkCreateSemaphore",
		"vkDestroySemaphore",
		"vkGetSemaphoreFdKHR",
		"vkImportSemaphoreFdKHR",
		"vkCreateFence",
		"vkDestroyFence",
		"vkResetFences",

		// Swapchain images.
		"vkAcquireImageANDROID",
		"vkQueueSignalReleaseImageANDROID",
		"vkGetSwapchainGrallocUsageANDROID",
		"vkGetSwapchainGrallocUsage2ANDROID",
	)

	// Relaxed commands release the sequence barrier before they run so that
	// commands queued behind them are not held up.
	Relaxed = set(
		"vkWaitForFences",
		"vkQueueWaitIdle",
		"vkDeviceWaitIdle",
		"vkFlushMappedMemoryRanges",
		"vkAcquireImageANDROID",
	)

	// DelayedDestroy commands hand the boxed handle to a callback instead of
	// deleting it during decode.
	DelayedDestroy = set(
		"vkDestroyShaderModule",
		"vkDestroyPipelineLayout",
	)
)

// IsGlobalState returns true if the command, or the command it aliases, is
// handled by the global state tracker.
func IsGlobalState(api *types.APIInfo) bool {
	return GlobalState[api.Name] || GlobalState[api.OrigName] || strings.HasSuffix(api.OrigName, "GOOGLE")
}

// UsesCommandBuffer returns true for commands recorded into a command
// buffer, which may travel in a command buffer's own stream.
func UsesCommandBuffer(api *types.APIInfo) bool {
	return len(api.Parameters) > 0 && api.Parameters[0].TypeName == "VkCommandBuffer" &&
		!api.Parameters[0].IsPointer()
}

// IsSubDecoded returns true for the commands carried by the command buffer
// streams.
func IsSubDecoded(api *types.APIInfo) bool {
	if !UsesCommandBuffer(api) {
		return false
	}
	switch api.OrigName {
	case "vkBeginCommandBuffer", "vkEndCommandBuffer", "vkResetCommandBuffer":
		return true
	}
	return strings.HasPrefix(api.OrigName, "vkCmd")
}

// IsOutput returns true for parameters the callee writes through.
func IsOutput(t *types.VulkanType) bool {
	return t.IsPointer() && !t.IsConst && !t.IsString()
}

// Outputs returns the output parameters of the command.
func Outputs(api *types.APIInfo) []*types.VulkanType {
	out := []*types.VulkanType{}
	for _, p := range api.Parameters {
		if IsOutput(p) {
			out = append(out, p)
		}
	}
	return out
}

// CreatedHandle returns the output parameter receiving the handles the
// command creates, or nil.
func CreatedHandle(info *types.Info, api *types.APIInfo) *types.VulkanType {
	for _, p := range Outputs(api) {
		if !info.IsHandleType(p.TypeName) {
			continue
		}
		for _, c := range types.HandleInfoFor(info.Resolve(p.TypeName)).Create {
			if c == api.OrigName {
				return p
			}
		}
	}
	return nil
}

// DestroyedHandle returns the parameter holding the handle the command
// destroys, or nil.
func DestroyedHandle(info *types.Info, api *types.APIInfo) *types.VulkanType {
	for _, p := range api.Parameters {
		if p.IsPointer() || !info.IsHandleType(p.TypeName) {
			continue
		}
		for _, c := range types.HandleInfoFor(info.Resolve(p.TypeName)).Destroy {
			if c == api.OrigName {
				return p
			}
		}
	}
	return nil
}

// Scope returns the scope of the command's parameters, which are locals.
func Scope(api *types.APIInfo) emit.Scope { return emit.Scope{Members: api.Parameters} }

// Declare declares a local for each parameter.
func Declare(g *emit.CodeGen, params []*types.VulkanType) {
	for _, p := range params {
		g.Stmt("%s", emit.TypeDecl(p, p.ParamName))
	}
}

// Without returns params minus the named ones.
func Without(params []*types.VulkanType, names ...string) []*types.VulkanType {
	skip := set(names...)
	out := make([]*types.VulkanType, 0, len(params))
	for _, p := range params {
		if !skip[p.ParamName] {
			out = append(out, p)
		}
	}
	return out
}

// Options tune the streaming of parameters.
type Options struct {
	// Static readers fill the storage the caller passed instead of
	// allocating.
	Static bool
	// Raw names the handle parameters read without unboxing.
	Raw []string
}

// Stream streams params of api in the direction of style.
func Stream(info *types.Info, g *emit.CodeGen, style marshaling.Style, api *types.APIInfo, params []*types.VulkanType, opts Options) error {
	c := marshaling.NewCodec(style, info, g, Scope(api), nil)
	c.Root = Root
	c.Static = opts.Static
	c.Raw = set(opts.Raw...)
	for _, p := range params {
		if err := c.Member(p); err != nil {
			return errors.Wrapf(err, "%v", api.Name)
		}
	}
	return nil
}

// Args returns the arguments forwarding the parameters, with the
// replacements of subst.
func Args(params []*types.VulkanType, subst map[string]string) []string {
	out := make([]string, len(params))
	for i, p := range params {
		if s, ok := subst[p.ParamName]; ok {
			out[i] = s
		} else {
			out[i] = p.ParamName
		}
	}
	return out
}

// Transform emits the transforms of the struct parameters among params.
func Transform(info *types.Info, g *emit.CodeGen, d transform.Direction, tracker string, api *types.APIInfo, params []*types.VulkanType) error {
	scope := Scope(api)
	for _, p := range params {
		if !info.IsCompoundType(p.TypeName) {
			continue
		}
		name := info.Resolve(p.TypeName)
		err := visitors.EachElement(g, p, scope, func(ptr string) {
			g.FuncCall("", transform.FuncName(d, name), tracker, Root, fmt.Sprintf("(%s*)(%s)", name, ptr))
		})
		if err != nil {
			return errors.Wrapf(err, "%v.%v", api.Name, p.ParamName)
		}
	}
	return nil
}

// DeviceMemory emits the remap of the command's device memory parameters,
// if it has any.
func DeviceMemory(g *emit.CodeGen, d transform.Direction, tracker string, api *types.APIInfo) {
	if dm, ok := api.DeviceMemory(); ok {
		transform.DeviceMemory(g, d, tracker, dm, emit.AddressOf)
	}
}

// ReturnDecl declares and zeroes the local holding the return value.
func ReturnDecl(g *emit.CodeGen, api *types.APIInfo) {
	if api.ReturnsVoid() {
		return
	}
	g.Stmt("%s %s = (%s)0", api.RetType.TypeName, api.RetVarExpr(), api.RetType.TypeName)
}

// Call emits the call of fn with args, assigning the return value.
func Call(g *emit.CodeGen, api *types.APIInfo, fn string, args ...string) {
	lhs := ""
	if !api.ReturnsVoid() {
		lhs = api.RetVarExpr()
	}
	g.FuncCall(lhs, fn, args...)
}

// Case is the text of one switch case, guarded by the feature declaring
// its command.
type Case struct {
	Feature string
	Text    string
}

// Cases writes cases, opening a feature guard around each run of cases of
// the same feature.
func Cases(g *emit.CodeGen, cases []Case) {
	open := ""
	for _, c := range cases {
		if c.Feature != open {
			if open != "" {
				g.EndIfdef()
			}
			if c.Feature != "" {
				g.BeginIfdef(c.Feature)
			}
			open = c.Feature
		}
		g.Text(c.Text)
	}
	if open != "" {
		g.EndIfdef()
	}
}
