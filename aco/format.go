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

package aco

// Format is an instruction encoding. The values match aco::Format, where
// the VALU encodings are flags that combine with VOP3, DPP and SDWA.
type Format uint32

const (
	PSEUDO           Format = 0
	SOP1             Format = 1
	SOP2             Format = 2
	SOPK             Format = 3
	SOPP             Format = 4
	SOPC             Format = 5
	SMEM             Format = 6
	DS               Format = 8
	LDSDIR           Format = 9
	MTBUF            Format = 10
	MUBUF            Format = 11
	MIMG             Format = 12
	EXP              Format = 13
	FLAT             Format = 14
	GLOBAL           Format = 15
	SCRATCH          Format = 16
	PSEUDO_BRANCH    Format = 17
	PSEUDO_BARRIER   Format = 18
	PSEUDO_REDUCTION Format = 19
	VOP1             Format = 1 << 8
	VOP2             Format = 1 << 9
	VOPC             Format = 1 << 10
	VOP3             Format = 1 << 11
	VINTRP           Format = 1 << 12
	VOP3P            Format = 1 << 15
)

type formatInfo struct {
	name      string
	defs, ops int
	class     string
}

var formats = map[Format]formatInfo{
	PSEUDO:           {"PSEUDO", 1, 1, "pseudo"},
	SOP1:             {"SOP1", 1, 1, "salu"},
	SOP2:             {"SOP2", 2, 2, "salu"},
	SOPK:             {"SOPK", 1, 1, "salu"},
	SOPP:             {"SOPP", 0, 0, "salu"},
	SOPC:             {"SOPC", 1, 2, "salu"},
	SMEM:             {"SMEM", 1, 2, "smem"},
	DS:               {"DS", 1, 2, "ds"},
	LDSDIR:           {"LDSDIR", 1, 1, "vmem"},
	MTBUF:            {"MTBUF", 1, 3, "vmem"},
	MUBUF:            {"MUBUF", 1, 3, "vmem"},
	MIMG:             {"MIMG", 1, 3, "vmem"},
	EXP:              {"EXP", 0, 4, "exp"},
	FLAT:             {"FLAT", 1, 2, "vmem"},
	GLOBAL:           {"GLOBAL", 1, 2, "vmem"},
	SCRATCH:          {"SCRATCH", 1, 2, "vmem"},
	PSEUDO_BRANCH:    {"PSEUDO_BRANCH", 0, 1, "pseudo"},
	PSEUDO_BARRIER:   {"PSEUDO_BARRIER", 0, 0, "pseudo"},
	PSEUDO_REDUCTION: {"PSEUDO_REDUCTION", 1, 1, "pseudo"},
	VOP1:             {"VOP1", 1, 1, "valu32"},
	VOP2:             {"VOP2", 1, 2, "valu32"},
	VOPC:             {"VOPC", 1, 2, "valu32"},
	VOP3:             {"VOP3", 1, 3, "valu32"},
	VINTRP:           {"VINTRP", 1, 2, "valu32"},
	VOP3P:            {"VOP3P", 1, 3, "valu32"},
}

func (f Format) info() formatInfo { return formats[f] }

func (f Format) String() string {
	if i, ok := formats[f]; ok {
		return i.name
	}
	return "Format(?)"
}

// IsPseudo returns true for the formats of compiler internal instructions,
// which have no encoding.
func (f Format) IsPseudo() bool {
	switch f {
	case PSEUDO, PSEUDO_BRANCH, PSEUDO_BARRIER, PSEUDO_REDUCTION:
		return true
	}
	return false
}

// FormatByName returns the format with the given name.
func FormatByName(name string) (Format, bool) {
	for f, i := range formats {
		if i.name == name {
			return f, true
		}
	}
	return 0, false
}

// classes are the instruction classes of instr_class, in declaration order.
var classes = []string{
	"valu32",
	"valu_convert32",
	"valu64",
	"valu_quarter_rate32",
	"valu_fma",
	"valu_transcendental32",
	"valu_double",
	"salu",
	"smem",
	"barrier",
	"branch",
	"sendmsg",
	"ds",
	"exp",
	"vmem",
	"waitcnt",
	"pseudo",
	"other",
}

var classValues = func() map[string]int {
	out := make(map[string]int, len(classes))
	for i, c := range classes {
		out[c] = i
	}
	return out
}()
