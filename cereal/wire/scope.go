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

package wire

import (
	"strconv"
	"strings"

	"github.com/google/gfxcodegen/cereal/filter"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/pkg/errors"
)

// scope resolves filter variables and lengths inside one struct or command.
type scope struct {
	c       *Codec
	s       *Struct
	members []*types.VulkanType
	vars    filter.Vars
}

func (c *Codec) scope(s *Struct, members []*types.VulkanType, free filter.Vars) *scope {
	vars := filter.Vars{}
	for k, v := range free {
		vars[k] = v
	}
	return &scope{c: c, s: s, members: members, vars: vars}
}

func (sc *scope) member(name string) *types.VulkanType {
	for _, m := range sc.members {
		if m.ParamName == name {
			return m
		}
	}
	return nil
}

// Lookup implements filter.Scope. Unset members read as null, API constants
// as their value.
func (sc *scope) Lookup(name string) (interface{}, bool) {
	if v, ok := sc.vars[name]; ok {
		return v, true
	}
	if sc.member(name) != nil {
		return scalar(sc.s.Get(name)), true
	}
	if v, err := sc.c.Info.Registry.EnumValue(name); err == nil {
		return uint64(v), true
	}
	return nil, false
}

// scalar converts the numeric member representations to what the filter
// evaluator understands. Null reads as zero.
func scalar(v interface{}) interface{} {
	switch v := v.(type) {
	case nil:
		return uint64(0)
	case *Struct:
		if v == nil {
			return uint64(0)
		}
	case Handle:
		return uint64(v)
	case uint32:
		return uint64(v)
	case int:
		return uint64(v)
	}
	return v
}

// present returns true if member t is on the wire.
func (sc *scope) present(t *types.VulkanType) (bool, error) {
	fs := sc.c.Features
	if t.StreamFeature != "" && !t.HasNullOptionalStringFeature() {
		if !fs.Has(Features(types.StreamFeatures[t.StreamFeature])) {
			return false, nil
		}
	}
	if !t.HasFilter() || !fs.Has(IgnoredHandles) {
		return true, nil
	}
	return sc.filter(t)
}

// filter evaluates the filter of t alone.
func (sc *scope) filter(t *types.VulkanType) (bool, error) {
	if t.FilterFunc != "" {
		n, err := filter.Parse(t.FilterFunc)
		if err != nil {
			return false, errors.Wrapf(err, "%v.%v", t.Parent, t.ParamName)
		}
		ok, err := filter.Truthy(n, sc)
		return ok, errors.Wrapf(err, "%v.%v", t.Parent, t.ParamName)
	}
	v, ok := sc.Lookup(t.FilterVar)
	if !ok {
		return false, errors.Wrapf(ErrUnknown, "%v.%v filters on %v", t.Parent, t.ParamName, t.FilterVar)
	}
	if len(t.FilterVals) == 0 {
		return filter.IsTrue(v), nil
	}
	got, _ := filter.ToInt(v)
	for _, name := range t.FilterVals {
		want, err := sc.c.Info.Registry.EnumValue(name)
		if err != nil {
			return false, err
		}
		if got == uint64(want) {
			return true, nil
		}
	}
	return false, nil
}

// memberFilter evaluates the filter of t when it only reads siblings. Other
// filters hold.
func (sc *scope) memberFilter(t *types.VulkanType) (bool, error) {
	if !t.HasFilter() || t.FilterFunc != "" || sc.member(t.FilterVar) == nil {
		return true, nil
	}
	return sc.filter(t)
}

// let evaluates the body of a let variable. Writers compute lets, readers
// take the value the writer sent.
func (sc *scope) let(v *types.EnvVar) (uint64, error) {
	n, err := filter.Parse(v.Body)
	if err != nil {
		return 0, err
	}
	out, err := filter.Eval(n, sc)
	if err != nil {
		return 0, errors.Wrapf(err, "let %v", v.Name)
	}
	i, ok := filter.ToInt(out)
	if !ok {
		if filter.IsTrue(out) {
			return 1, nil
		}
		return 0, nil
	}
	return i, nil
}

// binds evaluates the free variables of the struct member t.
func (sc *scope) binds(t *types.VulkanType) (filter.Vars, error) {
	inner := sc.c.Info.Struct(t.TypeName)
	out := filter.Vars{}
	if inner == nil {
		return out, nil
	}
	for _, v := range inner.FreeVars() {
		src, ok := t.Binds[v.Name]
		if !ok {
			src = v.Name
		}
		n, err := filter.Parse(src)
		if err != nil {
			return nil, err
		}
		val, err := filter.Eval(n, sc)
		if err != nil {
			return nil, errors.Wrapf(err, "%v.%v binds %v", t.Parent, t.ParamName, v.Name)
		}
		out[v.Name] = val
	}
	return out, nil
}

// latexLengths evaluate the latexmath lengths of the registry. Keys have
// their whitespace removed.
var latexLengths = map[string]struct {
	vars []string
	eval func(args ...uint64) uint64
}{
	`\textrm{codeSize}\over4`:                            {[]string{"codeSize"}, func(a ...uint64) uint64 { return a[0] / 4 }},
	`\lceil{\mathit{rasterizationSamples}\over32}\rceil`: {[]string{"rasterizationSamples"}, func(a ...uint64) uint64 { return (a[0] + 31) / 32 }},
	`\lceil{\mathit{samples}\over32}\rceil`:              {[]string{"samples"}, func(a ...uint64) uint64 { return (a[0] + 31) / 32 }},
	`\mathit{samples}\over32`:                            {[]string{"samples"}, func(a ...uint64) uint64 { return a[0] / 32 }},
	`2\times\mathtt{VK\_UUID\_SIZE}`:                     {nil, func(a ...uint64) uint64 { return 2 * uuidSize }},
	`2*VK_UUID_SIZE`:                                     {nil, func(a ...uint64) uint64 { return 2 * uuidSize }},
}

const uuidSize = 16

// length returns the outer length of t. ok is false when t has no length,
// or when the length is read through a null pointer and t is skipped.
func (sc *scope) length(t *types.VulkanType) (n int, ok bool, err error) {
	expr := t.LenExpr
	switch {
	case expr == "" || expr == "null-terminated":
		return 0, false, nil
	case strings.HasPrefix(expr, "latexmath:"):
		key := strings.Join(strings.Fields(strings.TrimSuffix(strings.TrimPrefix(expr, "latexmath:["), "]")), "")
		l, found := latexLengths[key]
		if !found && t.AltLen != "" {
			l, found = latexLengths[strings.ReplaceAll(t.AltLen, " ", "")]
		}
		if !found {
			return 0, false, errors.Wrapf(ErrUnknown, "%v.%v: length %v", t.Parent, t.ParamName, expr)
		}
		args := make([]uint64, len(l.vars))
		for i, v := range l.vars {
			args[i], _ = filter.ToInt(scalar(sc.s.Get(v)))
		}
		return int(l.eval(args...)), true, nil
	}
	if i, err := strconv.ParseInt(expr, 0, 64); err == nil {
		return int(i), true, nil
	}
	if root, field, found := strings.Cut(expr, "->"); found {
		parent, _ := sc.s.Get(root).(*Struct)
		if parent == nil {
			return 0, false, nil
		}
		i, _ := filter.ToInt(scalar(parent.Get(field)))
		return int(i), true, nil
	}
	if m := sc.member(expr); m != nil {
		v := sc.s.Get(expr)
		if v == nil && m.IsPointer() {
			return 0, false, nil
		}
		i, _ := filter.ToInt(scalar(v))
		return int(i), true, nil
	}
	if v, err := sc.c.Info.Registry.EnumValue(expr); err == nil {
		return int(v), true, nil
	}
	return 0, false, errors.Wrapf(ErrUnknown, "%v.%v: length %v", t.Parent, t.ParamName, expr)
}
