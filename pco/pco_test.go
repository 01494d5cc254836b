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

package pco_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/pco"
)

func header(ctx context.Context, t *testing.T) *pco.BitSet {
	isa, err := pco.Default(ctx)
	if !assert.For(ctx, "load").ThatError(err).Succeeded() {
		t.FailNow()
	}
	s := isa.BitSet("igrp_hdr")
	if !assert.For(ctx, "bit set").That(s != nil).Equals(true) {
		t.FailNow()
	}
	return s
}

func controlValues() pco.Values {
	return pco.Values{
		"da": 0, "length": 2, "oporg": 0, "opcnt": 1, "olchk": 0,
		"wr_hi": 1, "wr_lo": 0, "cc": 1, "ctrlop": 8,
		"end": 1, "atom": 0, "rpt": 3, "align": 4,
	}
}

func TestDefaultISA(t *testing.T) {
	ctx := log.Testing(t)
	isa, err := pco.Default(ctx)
	if !assert.For(ctx, "load").ThatError(err).Succeeded() {
		return
	}
	assert.For(ctx, "name").That(isa.Name).Equals("pco")
	assert.For(ctx, "revalidate").ThatError(isa.Validate(ctx)).Succeeded()
	e := isa.Enum("opcnt")
	assert.For(ctx, "bitset").That(e.Bitset).Equals(true)
	el, ok := e.Lookup("third")
	assert.For(ctx, "third").That(ok && el.Value == 4).Equals(true)

	s := isa.BitSet("igrp_hdr")
	for _, test := range []struct {
		name  string
		bytes uint32
	}{
		{"igrp_hdr_short", 2},
		{"igrp_hdr_main", 4},
		{"igrp_hdr_control", 4},
	} {
		assert.For(ctx, "%v bytes", test.name).That(s.Struct(test.name).Bytes).Equals(test.bytes)
	}
	assert.For(ctx, "members").ThatSlice(s.Struct("igrp_hdr_short").Members()).Equals(
		[]string{"da", "length", "oporg", "opcnt", "olchk"})
	assert.For(ctx, "renamed").ThatSlice(s.Struct("igrp_hdr_main").Members()).Contains("wr_hi")
	assert.For(ctx, "reserved hidden").ThatSlice(s.Struct("igrp_hdr_main").Members()).DoesNotContain("rsvd_ctrl")
}

func TestEncodeShort(t *testing.T) {
	ctx := log.Testing(t)
	s := header(ctx, t)
	short := s.Struct("igrp_hdr_short")
	in := pco.Values{"da": 3, "length": 16, "oporg": 3, "opcnt": 3, "olchk": 1}
	got, err := short.Encode(in)
	if !assert.For(ctx, "encode").ThatError(err).Succeeded() {
		return
	}
	// length 16 wraps to 0.
	assert.For(ctx, "bytes").ThatSlice(got).Equals([]byte{0x30, 0x37})

	bs, out, err := s.Decode(got)
	assert.For(ctx, "decode").ThatError(err).Succeeded()
	assert.For(ctx, "variant").That(bs).Equals(short)
	assert.For(ctx, "values").That(out).DeepEquals(in)
}

func TestEncodeSplitField(t *testing.T) {
	ctx := log.Testing(t)
	s := header(ctx, t)
	control := s.Struct("igrp_hdr_control")
	got, err := control.Encode(controlValues())
	if !assert.For(ctx, "encode").ThatError(err).Succeeded() {
		return
	}
	// ctrlop 0b1000 is split over byte 2 bits 1:0 and byte 3 bits 1:0.
	assert.For(ctx, "bytes").ThatSlice(got).Equals([]byte{0x02, 0x82, 0x9a, 0xa8})

	bs, out, err := s.Decode(append(got, 0xff))
	assert.For(ctx, "decode").ThatError(err).Succeeded()
	assert.For(ctx, "variant").That(bs).Equals(control)
	assert.For(ctx, "consumed").That(bs.Bytes).Equals(uint32(4))
	assert.For(ctx, "values").That(out).DeepEquals(controlValues())
}

func TestReservedChecked(t *testing.T) {
	ctx := log.Testing(t)
	s := header(ctx, t)
	v := controlValues()
	delete(v, "ctrlop")
	got, err := s.Struct("igrp_hdr_main").Encode(v)
	if !assert.For(ctx, "encode").ThatError(err).Succeeded() {
		return
	}
	assert.For(ctx, "bytes").ThatSlice(got).Equals([]byte{0x02, 0x82, 0x90, 0xa8})
	got[3] |= 0x01
	_, _, err = s.Decode(got)
	assert.For(ctx, "reserved").ThatError(err).HasCause(pco.ErrReserved)
}

func TestDecodeErrors(t *testing.T) {
	ctx := log.Testing(t)
	s := header(ctx, t)
	for _, test := range []struct {
		name string
		data []byte
		err  error
	}{
		{"extended header cut short", []byte{0x02, 0x82}, pco.ErrShort},
		{"bitwise alu has no variant", []byte{0x02, 0x82, 0x94, 0xa8}, pco.ErrVariant},
		{"undefined oporg", []byte{0x02, 0x70}, pco.ErrRange},
	} {
		_, _, err := s.Decode(test.data)
		assert.For(ctx, test.name).ThatError(err).HasCause(test.err)
	}
	_, err := s.Struct("igrp_hdr_main").Decode([]byte{0x02, 0x02, 0x00, 0x00})
	assert.For(ctx, "pinned mismatch").ThatError(err).HasCause(pco.ErrVariant)
}

func TestEncodeErrors(t *testing.T) {
	ctx := log.Testing(t)
	s := header(ctx, t)
	control := s.Struct("igrp_hdr_control")
	for _, test := range []struct {
		name  string
		key   string
		value uint64
		err   error
	}{
		{"length too large", "length", 17, pco.ErrRange},
		{"length zero", "length", 0, pco.ErrRange},
		{"repeat too large", "rpt", 5, pco.ErrRange},
		{"align not a power of two", "align", 3, pco.ErrRange},
		{"align too large", "align", 16, pco.ErrRange},
		{"undefined flag", "opcnt", 8, pco.ErrRange},
		{"undefined element", "ctrlop", 15, pco.ErrRange},
		{"delay too wide", "da", 16, pco.ErrRange},
		{"unknown member", "bogus", 1, pco.ErrMember},
	} {
		v := controlValues()
		v[test.key] = test.value
		_, err := control.Encode(v)
		assert.For(ctx, test.name).ThatError(err).HasCause(test.err)
	}
	v := controlValues()
	delete(v, "cc")
	_, err := control.Encode(v)
	assert.For(ctx, "missing member").ThatError(err).HasCause(pco.ErrMember)
}

const base = `
name: test
enums:
  - {name: kind, bits: 1, elems: {alu: 0, mem: 1}}
types:
  - {name: nibble, bits: 4}
bit_sets:
  - name: op
    pieces:
      - {name: kind, byte: 0, hi: 7}
      - {name: body, byte: 0, hi: 3, lo: 0}
    fields:
      - {name: kind, type: kind}
      - {name: body, type: nibble}
    structs:
%s
`

func TestInvalidISA(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		name    string
		structs string
		message string
	}{
		{"indistinct", `
      - {name: a, fields: [kind, body]}
      - {name: b, fields: [body]}`, "a and b cannot be told apart"},
		{"same pin", `
      - {name: a, fields: [{field: kind, value: alu}, body]}
      - {name: b, fields: [{field: kind, value: 0}]}`, "cannot be told apart"},
		{"unknown element", `
      - {name: a, fields: [{field: kind, value: vec}]}`, "kind has no element vec"},
		{"unknown field", `
      - {name: a, fields: [kind, size]}`, "maps unknown field size"},
		{"duplicate member", `
      - {name: a, fields: [kind, {name: kind, field: body}]}`, "two members called kind"},
		{"set name", `
      - {name: op, fields: [kind]}`, "has the name of its bit set"},
	} {
		yaml := strings.Replace(base, "%s", test.structs, 1)
		_, err := pco.Load(ctx, strings.NewReader(yaml))
		if assert.For(ctx, test.name).ThatError(err).HasCause(pco.ErrISA) {
			assert.For(ctx, test.name).ThatError(err).HasMessage(test.message)
		}
	}

	for _, test := range []struct {
		name string
		from string
		to   string
	}{
		{"width mismatch", "{name: body, type: nibble}", "{name: body, type: kind}"},
		{"bad range", "hi: 3, lo: 0", "hi: 3, lo: 4"},
		{"unknown type", "type: nibble}", "type: byte}"},
		{"bad transform", "bits: 4}", "bits: 4, transform: square}"},
		{"enum overflow", "mem: 1", "mem: 2"},
	} {
		yaml := strings.Replace(base, "%s", "      - {name: a, fields: [kind, body]}", 1)
		yaml = strings.Replace(yaml, test.from, test.to, 1)
		_, err := pco.Load(ctx, strings.NewReader(yaml))
		assert.For(ctx, test.name).ThatError(err).HasCause(pco.ErrISA)
	}
}

func TestOverlap(t *testing.T) {
	ctx := log.Testing(t)
	isa, err := pco.Default(ctx)
	if !assert.For(ctx, "load").ThatError(err).Succeeded() {
		return
	}
	main := isa.BitSet("igrp_hdr").Struct("igrp_hdr_main")
	main.Mappings = append(main.Mappings, &pco.Mapping{Field: "ctrlop"})
	err = isa.Validate(ctx)
	assert.For(ctx, "overlap").ThatError(err).HasCause(pco.ErrISA)
	assert.For(ctx, "message").ThatError(err).HasMessage("field ctrlop overlaps another field in byte 2")
}
