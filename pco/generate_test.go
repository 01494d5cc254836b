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
	"testing"

	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/core/text/copyright"
	"github.com/google/gfxcodegen/pco"
)

func TestGenerate(t *testing.T) {
	ctx := log.Testing(t)
	m, err := pco.Generate(ctx, copyright.Info{Year: "2024", Tool: "vkgen", Source: "isa.yaml"})
	if !assert.For(ctx, "generate").ThatError(err).Succeeded() {
		return
	}
	files := m.Files()
	if !assert.For(ctx, "files").That(len(files)).Equals(1) {
		return
	}
	h := files[0]
	assert.For(ctx, "path").That(h.Path).Equals("pco_isa.h")
	for _, want := range []string{
		"Autogenerated module pco_isa",
		"#pragma once",
		"enum pco_cc\n{\n    PCO_CC_ALWAYS = 0,",
		"    PCO_OPCNT_THIRD = 0x4,",
		"    PCO_IGRP_HDR_NONE = 0,\n    PCO_IGRP_HDR_SHORT,",
		"struct pco_igrp_hdr_main\n{\n    unsigned da;",
		"    enum pco_oporg oporg;",
		"    unsigned wr_hi;",
		"#define PCO_IGRP_HDR_CONTROL_BYTES 4",
		"static inline unsigned pco_igrp_hdr_short_encode(uint8_t *bin, const struct pco_igrp_hdr_short *s)",
		"    assert(s->length >= 1 && s->length <= 16);",
		"    v = s->length & 0xf;",
		"    v = s->rpt - 1;",
		"    v = __builtin_ctz(s->align);",
		"    assert(!(s->opcnt & ~0x7));",
		"    bin[0] = (bin[0] & 0x0f) | (((v >> 0) & 0xf) << 4);",
		"    bin[2] = (bin[2] & 0xfc) | (((v >> 2) & 0x3) << 0);",
		"    v = ((uint64_t)((bin[2] >> 0) & 0x3) << 2) | ((bin[3] >> 0) & 0x3);",
		"    s->length = v ? v : 16;",
		"    s->cc = (enum pco_cc)v;",
		"    s->align = 1u << v;",
		"if (len >= PCO_IGRP_HDR_CONTROL_BYTES && (((bin[1] >> 7) & 0x1)) == 0x1 && (((bin[2] >> 2) & 0x3)) == 0x2)",
		"        case PCO_IGRP_HDR_MAIN: return pco_igrp_hdr_main_encode(bin, &s->igrp_hdr_main);",
		"static inline unsigned pco_igrp_hdr_decode(const uint8_t *bin, unsigned len, struct pco_igrp_hdr *s)",
	} {
		assert.For(ctx, "header").ThatString(h.Content).Contains(want)
	}
	assert.For(ctx, "reserved not a member").ThatString(h.Content).DoesNotContain("rsvd_ctrl;")
	assert.For(ctx, "functions").That(m.Functions()).Equals(9)
}
