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

package iterate_test

import (
	"context"
	"testing"

	"github.com/google/gfxcodegen/cereal/iterate"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/registry/registrytest"
)

type recorder struct {
	calls []string
}

func (r *recorder) add(name string) error {
	r.calls = append(r.calls, name)
	return nil
}

func (r *recorder) OnCheck(t *types.VulkanType) error  { return r.add("OnCheck") }
func (r *recorder) EndCheck(t *types.VulkanType) error { return r.add("EndCheck") }
func (r *recorder) OnCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	return r.add("OnCheckNull")
}
func (r *recorder) EndCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	return r.add("EndCheckNull")
}
func (r *recorder) FinalCheckWithNullOptionalStringFeature(t *types.VulkanType) error {
	return r.add("FinalCheckNull")
}
func (r *recorder) OnCompoundType(t *types.VulkanType) error    { return r.add("OnCompoundType") }
func (r *recorder) OnString(t *types.VulkanType) error          { return r.add("OnString") }
func (r *recorder) OnStringArray(t *types.VulkanType) error     { return r.add("OnStringArray") }
func (r *recorder) OnStaticArr(t *types.VulkanType) error       { return r.add("OnStaticArr") }
func (r *recorder) OnStructExtension(t *types.VulkanType) error { return r.add("OnStructExtension") }
func (r *recorder) OnPointer(t *types.VulkanType) error         { return r.add("OnPointer") }
func (r *recorder) OnValue(t *types.VulkanType) error           { return r.add("OnValue") }

func newInfo(ctx context.Context, t *testing.T) *types.Info {
	reg, err := registrytest.Load(ctx)
	assert.For(ctx, "load").ThatError(err).Succeeded()
	info, err := types.New(ctx, reg)
	assert.For(ctx, "types").ThatError(err).Succeeded()
	return info
}

func TestIterate(t *testing.T) {
	ctx := log.Testing(t)
	info := newInfo(ctx, t)
	for _, test := range []struct {
		structName string
		member     string
		kind       iterate.Kind
		calls      []string
	}{
		{"VkApplicationInfo", "pApplicationName", iterate.String,
			[]string{"OnCheckNull", "OnString", "EndCheckNull", "OnString", "FinalCheckNull"}},
		{"VkApplicationInfo", "applicationVersion", iterate.Value, []string{"OnValue"}},
		{"VkInstanceCreateInfo", "pApplicationInfo", iterate.Compound,
			[]string{"OnCheck", "OnCompoundType", "EndCheck"}},
		{"VkInstanceCreateInfo", "ppEnabledLayerNames", iterate.StringArray, []string{"OnStringArray"}},
		{"VkInstanceCreateInfo", "pNext", iterate.StructExtension, []string{"OnStructExtension"}},
		{"VkBufferCreateInfo", "pQueueFamilyIndices", iterate.Pointer, []string{"OnPointer"}},
		{"VkSubmitInfo", "pWaitSemaphores", iterate.Pointer, []string{"OnCheck", "OnPointer", "EndCheck"}},
		{"VkPhysicalDeviceProperties", "deviceName", iterate.StaticArr, []string{"OnStaticArr"}},
		{"VkPhysicalDeviceProperties", "limits", iterate.Compound, []string{"OnCompoundType"}},
		{"VkClearValue", "color", iterate.Compound, []string{"OnCompoundType"}},
		{"VkClearColorValue", "float32", iterate.StaticArr, []string{"OnStaticArr"}},
		{"VkAllocationCallbacks", "pUserData", iterate.Pointer, []string{"OnCheck", "OnPointer", "EndCheck"}},
		{"VkAllocationCallbacks", "pfnFree", iterate.Value, []string{"OnValue"}},
	} {
		m := info.Struct(test.structName).Member(test.member)
		assert.For(ctx, "%v kind", test.member).That(iterate.Classify(info, m)).Equals(test.kind)
		r := &recorder{}
		ok, err := iterate.Iterate(info, m, r)
		assert.For(ctx, "%v iterated", test.member).That(ok).Equals(true)
		assert.For(ctx, "%v error", test.member).ThatError(err).Succeeded()
		assert.For(ctx, "%v calls", test.member).ThatSlice(r.calls).Equals(test.calls)
	}

	refused := &types.VulkanType{
		TypeName:                 "VkAccelerationStructureBuildRangeInfoKHR",
		ParamName:                "ppBuildRangeInfos",
		IsConst:                  true,
		PointerIndirectionLevels: 2,
		PointerToConstPointer:    true,
	}
	r := &recorder{}
	ok, err := iterate.Iterate(info, refused, r)
	assert.For(ctx, "refused").That(ok).Equals(false)
	assert.For(ctx, "refused error").ThatError(err).HasCause(types.ErrUnsupported)
	assert.For(ctx, "refused calls").ThatSlice(r.calls).IsEmpty()
	assert.For(ctx, "kind name").ThatString(iterate.Refused.String()).Equals("Refused")
}

func TestPredicates(t *testing.T) {
	ctx := log.Testing(t)
	info := newInfo(ctx, t)

	write := iterate.Env{Struct: info.Struct("VkWriteDescriptorSet"), Var: "forMarshaling"}
	pred, err := write.Predicate(write.Struct.Member("pTexelBufferView"), "featureBits")
	assert.For(ctx, "filterVals error").ThatError(err).Succeeded()
	assert.For(ctx, "filterVals").ThatString(pred).Equals(
		"!(featureBits & VULKAN_STREAM_FEATURE_IGNORED_HANDLES_BIT) || " +
			"((forMarshaling->descriptorType == VK_DESCRIPTOR_TYPE_UNIFORM_TEXEL_BUFFER) || " +
			"(forMarshaling->descriptorType == VK_DESCRIPTOR_TYPE_STORAGE_TEXEL_BUFFER))")
	pred, _ = write.Predicate(write.Struct.Member("descriptorCount"), "featureBits")
	assert.For(ctx, "unfiltered").ThatString(pred).Equals("")

	gfx := iterate.Env{Struct: info.Struct("VkGraphicsPipelineCreateInfo"), Var: "forMarshaling"}
	pred, err = gfx.Predicate(gfx.Struct.Member("pViewportState"), "featureBits")
	assert.For(ctx, "filterFunc error").ThatError(err).Succeeded()
	assert.For(ctx, "filterFunc").ThatString(pred).Equals(
		"!(featureBits & VULKAN_STREAM_FEATURE_IGNORED_HANDLES_BIT) || (((hasRasterization) == (1)))")
	lets, err := gfx.Lets()
	assert.For(ctx, "lets error").ThatError(err).Succeeded()
	assert.For(ctx, "lets").ThatSlice(lets).Equals([]iterate.Let{{
		Name: "hasRasterization",
		Type: "uint32_t",
		Expr: "((forMarshaling->pRasterizationState) ? ((((forMarshaling->pRasterizationState)->rasterizerDiscardEnable) == (0))) : (1))",
	}})
	assert.For(ctx, "free params").ThatSlice(iterate.FreeParams(gfx.Struct)).IsEmpty()

	app := info.Struct("VkApplicationInfo").Member("pApplicationName")
	assert.For(ctx, "null optional guard").ThatString(iterate.FeatureGuard(app, "featureBits")).Equals("")
	guarded := &types.VulkanType{TypeName: "uint32_t", ParamName: "x", StreamFeature: "SHADER_FLOAT16_INT8"}
	assert.For(ctx, "feature guard").ThatString(iterate.FeatureGuard(guarded, "featureBits")).Equals(
		"featureBits & VULKAN_STREAM_FEATURE_SHADER_FLOAT16_INT8_BIT")
}
