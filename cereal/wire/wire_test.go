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

package wire_test

import (
	"bytes"
	"context"
	eb "encoding/binary"
	"testing"

	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/wire"
	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/data/endian"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/core/memory/arena"
	"github.com/google/gfxcodegen/registry/registrytest"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func newCodec(ctx context.Context, t *testing.T, fs wire.Features) *wire.Codec {
	reg, err := registrytest.Load(ctx)
	if !assert.For(ctx, "load").ThatError(err).Succeeded() {
		t.FailNow()
	}
	info, err := types.New(ctx, reg)
	if !assert.For(ctx, "types").ThatError(err).Succeeded() {
		t.FailNow()
	}
	return wire.New(info, fs)
}

func enumValue(ctx context.Context, c *wire.Codec, name string) uint32 {
	v, err := c.Info.Registry.EnumValue(name)
	assert.For(ctx, "enum %v", name).ThatError(err).Succeeded()
	return uint32(v)
}

func u32(v uint32) []byte { return eb.BigEndian.AppendUint32(nil, v) }
func u64(v uint64) []byte { return eb.BigEndian.AppendUint64(nil, v) }

func cat(parts ...[]byte) []byte { return bytes.Join(parts, nil) }

func marshal(ctx context.Context, c *wire.Codec, s *wire.Struct) []byte {
	buf := &bytes.Buffer{}
	err := c.Marshal(endian.Writer(buf, endian.Big), s)
	assert.For(ctx, "marshal %v", s.Type).ThatError(err).Succeeded()
	n, err := c.Count(s)
	assert.For(ctx, "count %v", s.Type).ThatError(err).Succeeded()
	assert.For(ctx, "count %v", s.Type).That(n).Equals(buf.Len())
	return buf.Bytes()
}

func unmarshal(ctx context.Context, c *wire.Codec, data []byte, typ string) *wire.Struct {
	s, err := c.Unmarshal(endian.Reader(bytes.NewReader(data), endian.Big), typ)
	assert.For(ctx, "unmarshal %v", typ).ThatError(err).Succeeded()
	return s
}

func bufferCreateInfo(next *wire.Struct) *wire.Struct {
	return wire.NewStruct("VkBufferCreateInfo", map[string]interface{}{
		"size":        uint64(1024),
		"usage":       uint64(0x10),
		"sharingMode": uint64(0),
		"pNext":       next,
	})
}

func TestExtensionChain(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	external := enumValue(ctx, c, "VK_STRUCTURE_TYPE_EXTERNAL_MEMORY_BUFFER_CREATE_INFO")
	in := bufferCreateInfo(wire.NewStruct("VkExternalMemoryBufferCreateInfo", map[string]interface{}{
		"handleTypes": uint64(enumValue(ctx, c, "VK_EXTERNAL_MEMORY_HANDLE_TYPE_OPAQUE_FD_BIT")),
	}))

	data := marshal(ctx, c, in)
	want := cat(
		u32(enumValue(ctx, c, "VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO")),
		u32(0),    // flags
		u64(1024), // size
		u32(0x10), // usage
		u32(0),    // sharingMode
		u32(0),    // queueFamilyIndexCount
		u32(24),   // sizeof(VkExternalMemoryBufferCreateInfo)
		u32(external),
		u32(1), // handleTypes
		u32(0), // end of chain
	)
	assert.For(ctx, "bytes").ThatSlice(data).Equals(want)

	out := unmarshal(ctx, c, data, "VkBufferCreateInfo")
	assert.For(ctx, "equal").ThatError(c.Equal(in, out)).Succeeded()
	if next := out.Next(); assert.For(ctx, "next").That(next != nil).Equals(true) {
		assert.For(ctx, "next type").That(next.Type).Equals("VkExternalMemoryBufferCreateInfo")
		assert.For(ctx, "handleTypes").That(next.Get("handleTypes")).Equals(uint64(1))
	}
}

func TestUnknownExtensionSkipped(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	external := enumValue(ctx, c, "VK_STRUCTURE_TYPE_EXTERNAL_MEMORY_BUFFER_CREATE_INFO")
	data := cat(
		u32(enumValue(ctx, c, "VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO")),
		u32(0), u64(64), u32(1), u32(0), u32(0),
		u32(12), u32(0x7777), u64(0xdeadbeef), // a link nobody knows
		u32(24), u32(external), u32(2),
		u32(0),
	)
	check := func(what string, out *wire.Struct) {
		assert.For(ctx, "%v size", what).That(out.Get("size")).Equals(uint64(64))
		if next := out.Next(); assert.For(ctx, "%v next", what).That(next != nil).Equals(true) {
			assert.For(ctx, "%v next type", what).That(next.Type).Equals("VkExternalMemoryBufferCreateInfo")
			assert.For(ctx, "%v handleTypes", what).That(next.Get("handleTypes")).Equals(uint64(2))
			assert.For(ctx, "%v end", what).That(next.Next() == nil).Equals(true)
		}
	}
	check("stream", unmarshal(ctx, c, data, "VkBufferCreateInfo"))

	out, n, err := c.ReservedUnmarshal(data, "VkBufferCreateInfo", arena.New())
	if assert.For(ctx, "reserved").ThatError(err).Succeeded() {
		assert.For(ctx, "reserved read").That(n).Equals(len(data))
		check("reserved", out)
	}
}

func TestExtensionSizeIsCSize(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	for _, test := range []struct {
		name string
		size int
	}{
		{"VkExternalMemoryBufferCreateInfo", 24},
		{"VkBufferCreateInfo", 56},
		{"VkApplicationInfo", 48},
	} {
		size, err := c.Info.CSize(test.name)
		assert.For(ctx, "%v", test.name).ThatError(err).Succeeded()
		assert.For(ctx, "sizeof(%v)", test.name).That(size).Equals(test.size)
	}

	data := marshal(ctx, c, bufferCreateInfo(wire.NewStruct("VkExternalMemoryBufferCreateInfo", map[string]interface{}{
		"handleTypes": uint64(1),
	})))
	link := data[len(data)-16:]
	assert.For(ctx, "extSize").ThatSlice(link[:4]).Equals(u32(24))
}

func TestChainDropsStructsThatDoNotTravel(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	in := bufferCreateInfo(wire.NewStruct("VkApplicationInfo", nil))
	data := marshal(ctx, c, in)
	assert.For(ctx, "end of chain").ThatSlice(data[len(data)-4:]).Equals(u32(0))
	assert.For(ctx, "size").That(len(data)).Equals(32)
}

func TestForceOptionalNull(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	in := wire.NewStruct("VkSubmitInfo", map[string]interface{}{
		"commandBufferCount": uint32(1),
		"pCommandBuffers":    []wire.Handle{9},
	})
	data := marshal(ctx, c, in)
	assert.For(ctx, "pWaitSemaphores").ThatSlice(data[8:16]).Equals(u64(0))
	assert.For(ctx, "pWaitDstStageMask").ThatSlice(data[16:24]).Equals(u64(0))
	assert.For(ctx, "pCommandBuffers").ThatSlice(data[28:36]).Equals(u64(^uint64(0)))
	assert.For(ctx, "handle").ThatSlice(data[36:44]).Equals(u64(9))

	out := unmarshal(ctx, c, data, "VkSubmitInfo")
	assert.For(ctx, "null").That(out.Get("pWaitSemaphores") == nil).Equals(true)
	assert.For(ctx, "handles").ThatSlice(out.Get("pCommandBuffers")).Equals([]wire.Handle{9})
	assert.For(ctx, "equal").ThatError(c.Equal(in, out)).Succeeded()
}

func TestNullOptionalStrings(t *testing.T) {
	app := func() *wire.Struct {
		return wire.NewStruct("VkApplicationInfo", map[string]interface{}{
			"pEngineName": "e",
			"apiVersion":  uint32(1 << 22),
		})
	}
	for _, test := range []struct {
		name     string
		features wire.Features
		size     int
		appName  interface{}
	}{
		{"negotiated", wire.NullOptionalStrings, 41, nil},
		{"legacy", 0, 29, ""},
	} {
		t.Run(test.name, func(t *testing.T) {
			ctx := log.Testing(t)
			c := newCodec(ctx, t, test.features)
			data := marshal(ctx, c, app())
			assert.For(ctx, "size").That(len(data)).Equals(test.size)
			out := unmarshal(ctx, c, data, "VkApplicationInfo")
			assert.For(ctx, "pApplicationName").That(out.Get("pApplicationName")).Equals(test.appName)
			assert.For(ctx, "pEngineName").That(out.Get("pEngineName")).Equals("e")
			assert.For(ctx, "equal").ThatError(c.Equal(app(), out)).Succeeded()
		})
	}
}

func TestStringArrays(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, wire.NullOptionalStrings)
	in := wire.NewStruct("VkInstanceCreateInfo", map[string]interface{}{
		"pApplicationInfo": wire.NewStruct("VkApplicationInfo", map[string]interface{}{
			"pApplicationName": "app",
		}),
		"enabledLayerCount":   uint32(2),
		"ppEnabledLayerNames": []string{"one", "two"},
	})
	out := unmarshal(ctx, c, marshal(ctx, c, in), "VkInstanceCreateInfo")
	assert.For(ctx, "layers").ThatSlice(out.Get("ppEnabledLayerNames")).Equals([]string{"one", "two"})
	assert.For(ctx, "extensions").ThatSlice(out.Get("ppEnabledExtensionNames")).IsEmpty()
	app, _ := out.Get("pApplicationInfo").(*wire.Struct)
	assert.For(ctx, "app name").That(app.Get("pApplicationName")).Equals("app")
	assert.For(ctx, "equal").ThatError(c.Equal(in, out)).Succeeded()

	in.Set("enabledLayerCount", uint32(3))
	_, err := c.Count(in)
	assert.For(ctx, "count mismatch").ThatError(err).HasCause(wire.ErrValue)
}

func TestLatexLength(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	in := wire.NewStruct("VkShaderModuleCreateInfo", map[string]interface{}{
		"codeSize": uint64(8),
		"pCode":    []uint64{0x07230203, 0x00010000},
	})
	data := marshal(ctx, c, in)
	assert.For(ctx, "size").That(len(data)).Equals(28)
	assert.For(ctx, "code").ThatSlice(data[16:24]).Equals(cat(u32(0x07230203), u32(0x00010000)))
	out := unmarshal(ctx, c, data, "VkShaderModuleCreateInfo")
	assert.For(ctx, "pCode").ThatSlice(out.Get("pCode")).Equals([]uint64{0x07230203, 0x00010000})
}

func pipeline(discard uint32) *wire.Struct {
	return wire.NewStruct("VkGraphicsPipelineCreateInfo", map[string]interface{}{
		"stageCount": uint32(2),
		"pRasterizationState": wire.NewStruct("VkPipelineRasterizationStateCreateInfo", map[string]interface{}{
			"rasterizerDiscardEnable": discard,
			"lineWidth":               float32(1),
		}),
	})
}

func TestLetFilters(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, wire.IgnoredHandles)
	rasterized, err := c.Count(pipeline(0))
	assert.For(ctx, "rasterized").ThatError(err).Succeeded()
	discarded, err := c.Count(pipeline(1))
	assert.For(ctx, "discarded").ThatError(err).Succeeded()
	assert.For(ctx, "filtered markers").That(rasterized - discarded).Equals(16)

	data := marshal(ctx, c, pipeline(1))
	assert.For(ctx, "let").ThatSlice(data[:4]).Equals(u32(0))
	out := unmarshal(ctx, c, data, "VkGraphicsPipelineCreateInfo")
	raster, _ := out.Get("pRasterizationState").(*wire.Struct)
	assert.For(ctx, "lineWidth").That(raster.Get("lineWidth")).Equals(float32(1))
	assert.For(ctx, "subpass").That(out.Get("subpass")).Equals(uint64(0))

	legacy := newCodec(ctx, t, 0)
	all, err := legacy.Count(pipeline(1))
	assert.For(ctx, "legacy").ThatError(err).Succeeded()
	assert.For(ctx, "no lets, no filters").That(all).Equals(discarded - 4 + 16)
}

func TestMemberFilters(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, wire.IgnoredHandles)
	in := wire.NewStruct("VkWriteDescriptorSet", map[string]interface{}{
		"dstSet":          wire.Handle(3),
		"descriptorCount": uint32(1),
		"descriptorType":  uint64(enumValue(ctx, c, "VK_DESCRIPTOR_TYPE_SAMPLER")),
		"pImageInfo": []*wire.Struct{
			wire.NewStruct("VkDescriptorImageInfo", map[string]interface{}{"sampler": wire.Handle(5)}),
		},
	})
	out := unmarshal(ctx, c, marshal(ctx, c, in), "VkWriteDescriptorSet")
	assert.For(ctx, "buffer info").That(out.Get("pBufferInfo") == nil).Equals(true)
	images, _ := out.Get("pImageInfo").([]*wire.Struct)
	if assert.For(ctx, "images").That(len(images)).Equals(1) {
		assert.For(ctx, "sampler").That(images[0].Get("sampler")).Equals(wire.Handle(5))
	}
	assert.For(ctx, "equal").ThatError(c.Equal(in, out)).Succeeded()

	_, err := newCodec(ctx, t, 0).Count(in)
	assert.For(ctx, "unfiltered").ThatError(err).HasCause(wire.ErrValue)
}

func TestReserved(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	in := bufferCreateInfo(nil)
	in.Set("queueFamilyIndexCount", uint32(2))
	in.Set("pQueueFamilyIndices", []uint32{0, 1})
	size, err := c.Count(in)
	assert.For(ctx, "count").ThatError(err).Succeeded()

	buf := make([]byte, size)
	n, err := c.ReservedMarshal(buf, in)
	assert.For(ctx, "marshal").ThatError(err).Succeeded()
	assert.For(ctx, "written").That(n).Equals(size)
	assert.For(ctx, "same bytes").ThatSlice(buf).Equals(marshal(ctx, c, in))

	a := arena.New()
	out, read, err := c.ReservedUnmarshal(buf, "VkBufferCreateInfo", a)
	assert.For(ctx, "unmarshal").ThatError(err).Succeeded()
	assert.For(ctx, "read").That(read).Equals(size)
	assert.For(ctx, "indices").ThatSlice(out.Get("pQueueFamilyIndices")).Equals([]uint64{0, 1})
	assert.For(ctx, "equal").ThatError(c.Equal(in, out)).Succeeded()

	_, err = c.ReservedMarshal(buf[:size-1], in)
	assert.For(ctx, "overflow").ThatError(err).HasCause(wire.ErrOverflow)
	_, _, err = c.ReservedUnmarshal(buf[:size-1], "VkBufferCreateInfo", a)
	assert.For(ctx, "truncated").ThatError(err).HasCause(wire.ErrCorrupt)
}

func TestEqual(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	a, b := bufferCreateInfo(nil), bufferCreateInfo(nil)
	assert.For(ctx, "same").ThatError(c.Equal(a, b)).Succeeded()
	b.Set("size", uint64(2048))
	err := c.Equal(a, b)
	assert.For(ctx, "size").ThatError(err).HasCause(wire.ErrNotEqual)
	assert.For(ctx, "message").ThatString(err.Error()).Contains("VkBufferCreateInfo.size")

	b = bufferCreateInfo(wire.NewStruct("VkExternalMemoryBufferCreateInfo", nil))
	assert.For(ctx, "chain").ThatError(c.Equal(a, b)).HasCause(wire.ErrNotEqual)
}

func TestEveryStructRoundTrips(t *testing.T) {
	all := wire.NullOptionalStrings | wire.IgnoredHandles | wire.ShaderFloat16Int8 | wire.QueueSubmitWithCommands
	for _, test := range []struct {
		name     string
		features wire.Features
	}{
		{"legacy", 0},
		{"all features", all},
	} {
		t.Run(test.name, func(t *testing.T) {
			ctx := log.Testing(t)
			c := newCodec(ctx, t, test.features)
			names := maps.Keys(c.Info.Structs)
			slices.Sort(names)
			for _, name := range names {
				name = c.Info.Structs[name].Name
				in := wire.NewStruct(name, nil)
				data := marshal(ctx, c, in)
				out := unmarshal(ctx, c, data, name)
				assert.For(ctx, "%v stream", name).ThatError(c.Equal(in, out)).Succeeded()

				buf := make([]byte, len(data))
				n, err := c.ReservedMarshal(buf, in)
				assert.For(ctx, "%v reserved marshal", name).ThatError(err).Succeeded()
				assert.For(ctx, "%v reserved written", name).That(n).Equals(len(data))
				out, n, err = c.ReservedUnmarshal(buf, name, arena.New())
				assert.For(ctx, "%v reserved unmarshal", name).ThatError(err).Succeeded()
				assert.For(ctx, "%v reserved read", name).That(n).Equals(len(data))
				assert.For(ctx, "%v reserved", name).ThatError(c.Equal(in, out)).Succeeded()
			}
		})
	}
}

func TestEqualUnsetIsZero(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	props := wire.NewStruct("VkPhysicalDeviceProperties", nil)
	zero := wire.NewStruct("VkPhysicalDeviceProperties", map[string]interface{}{
		"deviceName":        make([]byte, 256),
		"pipelineCacheUUID": make([]byte, 16),
		"limits": wire.NewStruct("VkPhysicalDeviceLimits", map[string]interface{}{
			"maxComputeWorkGroupCount": []uint64{0, 0, 0},
		}),
	})
	assert.For(ctx, "zero").ThatError(c.Equal(props, zero)).Succeeded()

	named := wire.NewStruct("VkPhysicalDeviceProperties", map[string]interface{}{"deviceName": "gpu"})
	padded := wire.NewStruct("VkPhysicalDeviceProperties", map[string]interface{}{
		"deviceName": append([]byte("gpu"), make([]byte, 253)...),
	})
	assert.For(ctx, "padded name").ThatError(c.Equal(named, padded)).Succeeded()
	assert.For(ctx, "name").ThatError(c.Equal(props, padded)).HasCause(wire.ErrNotEqual)

	counts := wire.NewStruct("VkPhysicalDeviceProperties", map[string]interface{}{
		"limits": wire.NewStruct("VkPhysicalDeviceLimits", map[string]interface{}{
			"maxComputeWorkGroupCount": []uint64{0, 0, 1},
		}),
	})
	assert.For(ctx, "counts").ThatError(c.Equal(props, counts)).HasCause(wire.ErrNotEqual)
}

func TestUnknownType(t *testing.T) {
	ctx := log.Testing(t)
	c := newCodec(ctx, t, 0)
	_, err := c.Count(wire.NewStruct("VkNothing", nil))
	assert.For(ctx, "count").ThatError(err).HasCause(wire.ErrUnknown)
	_, err = c.Command("vkNothing")
	assert.For(ctx, "command").ThatError(err).HasCause(wire.ErrUnknown)
}
