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

package types_test

import (
	"context"
	"testing"

	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/registry"
	"github.com/google/gfxcodegen/registry/registrytest"
)

func newInfo(ctx context.Context) *types.Info {
	reg, err := registrytest.Load(ctx)
	if err != nil {
		panic(err)
	}
	info, err := types.New(ctx, reg)
	if err != nil {
		panic(err)
	}
	return info
}

func TestStructLayout(t *testing.T) {
	ctx := log.Testing(t)
	info := newInfo(ctx)

	buf := info.Struct("VkBufferCreateInfo")
	assert.For(ctx, "members").ThatSlice(buf.Members).IsLength(8)
	assert.For(ctx, "sType").That(buf.StructEnumExpr).Equals("VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO")
	assert.For(ctx, "pNext").That(buf.HasPNext()).Equals(true)
	indices := buf.Member("pQueueFamilyIndices")
	assert.For(ctx, "len").That(indices.LenExpr).Equals("queueFamilyIndexCount")
	assert.For(ctx, "decl").That(indices.String()).Equals("const uint32_t* pQueueFamilyIndices")
	assert.For(ctx, "value access").That(indices.ForValueAccess().Decl(false)).Equals("const uint32_t")

	alias := info.Struct("VkExternalMemoryBufferCreateInfoKHR")
	assert.For(ctx, "alias").That(alias.Name).Equals("VkExternalMemoryBufferCreateInfo")
	assert.For(ctx, "transformed").That(alias.Member("handleTypes").IsTransformed).Equals(false)

	submit := info.Struct("VkSubmitInfo")
	wait := submit.Member("pWaitSemaphores")
	assert.For(ctx, "force optional").That(wait.IsForceOptional).Equals(true)
	assert.For(ctx, "optional pointer").That(wait.IsOptionalPointer()).Equals(true)

	inst := info.Struct("VkInstanceCreateInfo")
	layers := inst.Member("ppEnabledLayerNames")
	assert.For(ctx, "string array").That(layers.IsArrayOfStrings()).Equals(true)
	assert.For(ctx, "inner len").That(layers.InnerLenExpr).Equals("null-terminated")
	assert.For(ctx, "string array decl").That(layers.String()).Equals("const char* const* ppEnabledLayerNames")

	app := info.Struct("VkApplicationInfo").Member("pApplicationName")
	assert.For(ctx, "string").That(app.IsString()).Equals(true)
	assert.For(ctx, "null optional").That(app.HasNullOptionalStringFeature()).Equals(true)

	props := info.Struct("VkPhysicalDeviceProperties").Member("deviceName")
	assert.For(ctx, "static count").That(props.StaticArrCount).Equals(256)
	assert.For(ctx, "static decl").That(props.String()).Equals("char deviceName[VK_MAX_PHYSICAL_DEVICE_NAME_SIZE]")
	addr := props.ForAddressAccess()
	assert.For(ctx, "address access").That(addr.PointerIndirectionLevels).Equals(1)
	assert.For(ctx, "address len").That(addr.LenExpr).Equals("VK_MAX_PHYSICAL_DEVICE_NAME_SIZE")

	gfx := info.Struct("VkGraphicsPipelineCreateInfo")
	assert.For(ctx, "lets").ThatSlice(gfx.Lets()).IsLength(1)
	assert.For(ctx, "env member").That(gfx.Env["pRasterizationState"].StructMember).Equals(true)
	assert.For(ctx, "free vars").ThatSlice(gfx.FreeVars()).IsEmpty()

	assert.For(ctx, "union").That(info.Struct("VkClearValue").IsUnion).Equals(true)
}

func TestPrimitiveSizes(t *testing.T) {
	ctx := log.Testing(t)
	info := newInfo(ctx)
	for _, test := range []struct {
		name string
		size int
	}{
		{"uint8_t", 1},
		{"char", 1},
		{"float", 4},
		{"VkBool32", 4},
		{"VkDeviceSize", 8},
		{"VkBufferUsageFlags", 4},
		{"VkExternalMemoryHandleTypeFlagsKHR", 4},
		{"VkSharingMode", 4},
		{"VkBuffer", 8},
		{"VkDevice", 8},
		{"PFN_vkFreeFunction", 8},
		{"size_t", 8},
		{"void", 8},
		{"VkBufferCreateInfo", 0},
	} {
		assert.For(ctx, test.name).That(info.PrimEncodingSize(test.name)).Equals(test.size)
	}
	assert.For(ctx, "size_t").That(info.IsNonAbiPortableType("size_t")).Equals(true)
	assert.For(ctx, "handle").That(info.IsNonAbiPortableType("VkBuffer")).Equals(true)
	assert.For(ctx, "uint32_t").That(info.IsNonAbiPortableType("uint32_t")).Equals(false)
	assert.For(ctx, "compound").That(info.IsCompoundType("VkClearValue")).Equals(true)
	assert.For(ctx, "dispatchable").That(info.IsDispatchableHandleType("VkCommandBuffer")).Equals(true)
	assert.For(ctx, "non dispatchable").That(info.IsNonDispatchableHandleType("VkFence")).Equals(true)
}

func TestHandleRoles(t *testing.T) {
	ctx := log.Testing(t)
	info := newInfo(ctx)

	create := info.Command("vkCreateBuffer")
	assert.For(ctx, "dispatch").That(create.Param("device").DispatchHandle).Equals(true)
	assert.For(ctx, "create").That(create.Param("pBuffer").NonDispatchableHandleCreate).Equals(true)
	assert.For(ctx, "ret var").That(create.RetVarExpr()).Equals("vkCreateBuffer_VkResult_return")

	destroy := info.Command("vkDestroyBuffer")
	assert.For(ctx, "destroy").That(destroy.Param("buffer").NonDispatchableHandleDestroy).Equals(true)
	assert.For(ctx, "void").That(destroy.ReturnsVoid()).Equals(true)

	free := info.Command("vkFreeMemory")
	assert.For(ctx, "free").That(free.Param("memory").NonDispatchableHandleDestroy).Equals(true)
	mem, ok := free.DeviceMemory()
	assert.For(ctx, "device memory").That(ok).Equals(true)
	assert.For(ctx, "device memory handle").That(mem.Handle).Equals("memory")

	enum := info.Command("vkEnumeratePhysicalDevices")
	assert.For(ctx, "dispatchable out").That(enum.Param("pPhysicalDevices").NonDispatchableHandleCreate).Equals(false)

	alias := info.Command("vkGetPhysicalDeviceExternalBufferPropertiesKHR")
	assert.For(ctx, "orig").That(alias.OrigName).Equals("vkGetPhysicalDeviceExternalBufferProperties")

	assert.For(ctx, "handle info").ThatSlice(types.HandleInfoFor("VkShaderModule").Destroy).Equals([]string{"vkDestroyShaderModule"})
	assert.For(ctx, "handle override").ThatSlice(types.HandleInfoFor("VkQueue").Destroy).IsEmpty()
}

func TestStructForSType(t *testing.T) {
	ctx := log.Testing(t)
	info := newInfo(ctx)
	const shared = int64(1000218000)
	s, ok := info.StructForSType(5, shared)
	assert.For(ctx, "memory allocate root").That(ok).Equals(true)
	assert.For(ctx, "color buffer").That(s.Name).Equals("VkImportColorBufferGOOGLE")
	s, _ = info.StructForSType(1000059000, shared)
	assert.For(ctx, "features root").That(s.Name).Equals("VkPhysicalDeviceFragmentDensityMapFeaturesEXT")
	s, _ = info.StructForSType(0, shared)
	assert.For(ctx, "default").That(s.Name).Equals("VkPhysicalDeviceFragmentDensityMapFeaturesEXT")
	s, _ = info.StructForSType(12, 1000072001)
	assert.For(ctx, "unique").That(s.Name).Equals("VkExternalMemoryBufferCreateInfo")
	_, ok = info.StructForSType(12, 777)
	assert.For(ctx, "unknown").That(ok).Equals(false)
}

func TestDerivedSType(t *testing.T) {
	ctx := log.Testing(t)
	reg, err := registrytest.Load(ctx)
	if !assert.For(ctx, "load").ThatError(err).Succeeded() {
		return
	}
	info, err := types.New(ctx, reg)
	if !assert.For(ctx, "types").ThatError(err).Succeeded() {
		return
	}
	assert.For(ctx, "not defined").That(info.Struct("VkBaseOutStructure").StructEnumExpr).Equals("")

	const name = "VK_STRUCTURE_TYPE_BASE_OUT_STRUCTURE"
	reg.Enums[name] = &registry.EnumInfo{Name: name, Value: "1000999000", Bitpos: -1, Offset: -1}
	info, err = types.New(ctx, reg)
	if !assert.For(ctx, "types").ThatError(err).Succeeded() {
		return
	}
	assert.For(ctx, "derived").That(info.Struct("VkBaseOutStructure").StructEnumExpr).Equals(name)
}
