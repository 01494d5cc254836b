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

package types

// Stream feature bits negotiated between guest and host. The values match
// the runtime's feature enum.
const (
	FeatureNullOptionalStrings     = uint32(1 << 0)
	FeatureIgnoredHandles          = uint32(1 << 1)
	FeatureShaderFloat16Int8       = uint32(1 << 2)
	FeatureQueueSubmitWithCommands = uint32(1 << 3)
)

// StreamFeatures maps the streamFeature attribute names to their bits.
var StreamFeatures = map[string]uint32{
	"NULL_OPTIONAL_STRINGS":      FeatureNullOptionalStrings,
	"IGNORED_HANDLES":            FeatureIgnoredHandles,
	"SHADER_FLOAT16_INT8":        FeatureShaderFloat16Int8,
	"QUEUE_SUBMIT_WITH_COMMANDS": FeatureQueueSubmitWithCommands,
}

// StreamFeatureMacro returns the C macro for a stream feature name.
func StreamFeatureMacro(name string) string {
	return "VULKAN_STREAM_FEATURE_" + name + "_BIT"
}

// StructStreamFeatures lists extension structs that are only sent when the
// named stream feature is negotiated.
var StructStreamFeatures = map[string]string{
	"VkPhysicalDeviceShaderFloat16Int8Features":    "SHADER_FLOAT16_INT8",
	"VkPhysicalDeviceShaderFloat16Int8FeaturesKHR": "SHADER_FLOAT16_INT8",
	"VkPhysicalDeviceFloat16Int8FeaturesKHR":       "SHADER_FLOAT16_INT8",
}

// forceOptional lists members that older guests send as null even though
// the registry does not mark them optional.
var forceOptional = map[string][]string{
	"VkSubmitInfo": {
		"pWaitSemaphores",
		"pWaitDstStageMask",
		"pCommandBuffers",
		"pSignalSemaphores",
	},
	"VkPipelineViewportStateCreateInfo": {"pViewports", "pScissors"},
	"VkGraphicsPipelineCreateInfo": {
		"pVertexInputState",
		"pInputAssemblyState",
		"pTessellationState",
		"pViewportState",
		"pMultisampleState",
		"pDepthStencilState",
		"pColorBlendState",
		"pDynamicState",
	},
}

// IsForceOptional returns true if member of parent is always treated as
// optional on the wire.
func IsForceOptional(parent, member string) bool {
	for _, m := range forceOptional[parent] {
		if m == member {
			return true
		}
	}
	return false
}

// TrivialTransformedTypes need host/guest remapping of plain fields only.
var TrivialTransformedTypes = []string{
	"VkPhysicalDeviceExternalImageFormatInfo",
	"VkPhysicalDeviceExternalBufferInfo",
	"VkExternalMemoryImageCreateInfo",
	"VkExternalMemoryBufferCreateInfo",
	"VkExportMemoryAllocateInfo",
	"VkExternalImageFormatProperties",
	"VkExternalBufferProperties",
}

// NonTrivialTransformedTypes need hand written transforms.
var NonTrivialTransformedTypes = []string{
	"VkExternalMemoryProperties",
	"VkImageCreateInfo",
}

// IsTransformedType returns true for types with transform hooks.
func IsTransformedType(name string) bool {
	for _, list := range [][]string{TrivialTransformedTypes, NonTrivialTransformedTypes} {
		for _, t := range list {
			if t == name {
				return true
			}
		}
	}
	return false
}

// DeviceMemoryInfo names the members or parameters that carry device memory
// attributes. Empty fields are absent.
type DeviceMemoryInfo struct {
	Handle    string
	Offset    string
	Size      string
	TypeIndex string
	TypeBits  string
}

// Fields returns the attribute names in a fixed order, with the member that
// carries each one. Absent attributes are skipped.
func (d DeviceMemoryInfo) Fields() [][2]string {
	out := [][2]string{}
	for _, f := range [][2]string{
		{"handle", d.Handle},
		{"offset", d.Offset},
		{"size", d.Size},
		{"typeIndex", d.TypeIndex},
		{"typeBits", d.TypeBits},
	} {
		if f[1] != "" {
			out = append(out, f)
		}
	}
	return out
}

// DeviceMemoryStructs are the structs with device memory attributes.
var DeviceMemoryStructs = map[string]DeviceMemoryInfo{
	"VkMappedMemoryRange":     {Handle: "memory", Offset: "offset", Size: "size"},
	"VkMemoryAllocateInfo":    {Size: "allocationSize", TypeIndex: "memoryTypeIndex"},
	"VkMemoryRequirements":    {Size: "size", TypeBits: "memoryTypeBits"},
	"VkBindBufferMemoryInfo":  {Handle: "memory", Offset: "memoryOffset"},
	"VkBindImageMemoryInfo":   {Handle: "memory", Offset: "memoryOffset"},
	"VkSparseMemoryBind":      {Handle: "memory", Offset: "memoryOffset", Size: "size"},
	"VkSparseImageMemoryBind": {Handle: "memory", Offset: "memoryOffset"},
}

// DeviceMemoryCommands are the commands with device memory parameters.
var DeviceMemoryCommands = map[string]DeviceMemoryInfo{
	"vkFreeMemory":                {Handle: "memory"},
	"vkMapMemory":                 {Handle: "memory", Offset: "offset", Size: "size"},
	"vkUnmapMemory":               {Handle: "memory"},
	"vkBindBufferMemory":          {Handle: "memory", Offset: "memoryOffset"},
	"vkBindImageMemory":           {Handle: "memory", Offset: "memoryOffset"},
	"vkGetDeviceMemoryCommitment": {Handle: "memory"},
}

// HandleInfo lists the commands that create and destroy a handle type.
type HandleInfo struct {
	Name    string
	Create  []string
	Destroy []string
}

// handleOverrides are the handles whose lifetime commands do not follow the
// vkCreate/vkDestroy naming.
var handleOverrides = map[string]HandleInfo{
	"VkPhysicalDevice": {Create: []string{"vkEnumeratePhysicalDevices"}},
	"VkQueue":          {Create: []string{"vkGetDeviceQueue", "vkGetDeviceQueue2"}},
	"VkDeviceMemory": {
		Create:  []string{"vkAllocateMemory"},
		Destroy: []string{"vkFreeMemory"},
	},
	"VkCommandBuffer": {
		Create:  []string{"vkAllocateCommandBuffers"},
		Destroy: []string{"vkFreeCommandBuffers"},
	},
	"VkDescriptorSet": {
		Create:  []string{"vkAllocateDescriptorSets"},
		Destroy: []string{"vkFreeDescriptorSets"},
	},
	"VkPipeline": {
		Create:  []string{"vkCreateGraphicsPipelines", "vkCreateComputePipelines"},
		Destroy: []string{"vkDestroyPipeline"},
	},
	"VkSwapchainKHR": {
		Create:  []string{"vkCreateSwapchainKHR", "vkCreateSharedSwapchainsKHR"},
		Destroy: []string{"vkDestroySwapchainKHR"},
	},
}

// HandleInfoFor returns the lifetime commands of a handle type.
func HandleInfoFor(handle string) HandleInfo {
	if info, ok := handleOverrides[handle]; ok {
		info.Name = handle
		return info
	}
	base := handle[len("Vk"):]
	return HandleInfo{
		Name:    handle,
		Create:  []string{"vkCreate" + base},
		Destroy: []string{"vkDestroy" + base},
	}
}

// primitiveSizes are the wire sizes of the C primitives. void stands in for
// an opaque pointer.
var primitiveSizes = map[string]int{
	"void":     8,
	"char":     1,
	"uint8_t":  1,
	"int8_t":   1,
	"uint16_t": 2,
	"int16_t":  2,
	"uint32_t": 4,
	"int32_t":  4,
	"float":    4,
	"VkBool32": 4,
	"uint64_t": 8,
	"int64_t":  8,
	"size_t":   8,
	"double":   8,
}

// nonAbiPortable are primitives whose size differs between guest and host.
var nonAbiPortable = map[string]bool{"size_t": true}

// rootTypeOverride selects the struct an sType denotes when the sType value
// is shared between unrelated extension structs.
type rootTypeOverride struct {
	RootType string
	Struct   string
}

// RootTypeOverrides are keyed by the structure type constant of the default
// struct.
var RootTypeOverrides = map[string][]rootTypeOverride{
	"VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_FRAGMENT_DENSITY_MAP_FEATURES_EXT": {
		{RootType: "VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO", Struct: "VkImportColorBufferGOOGLE"},
	},
	"VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_FRAGMENT_DENSITY_MAP_PROPERTIES_EXT": {
		{RootType: "VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO", Struct: "VkImportPhysicalAddressGOOGLE"},
	},
	"VK_STRUCTURE_TYPE_RENDER_PASS_FRAGMENT_DENSITY_MAP_CREATE_INFO_EXT": {
		{RootType: "VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO", Struct: "VkImportBufferGOOGLE"},
		{RootType: "VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO", Struct: "VkImportBufferGOOGLE"},
	},
}
