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

package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/core/fault"
	"github.com/pkg/errors"
)

// ErrLengthExpr is returned for length expressions that do not resolve to a
// sibling, a literal, an API constant or a known latexmath form.
const ErrLengthExpr = fault.Const("Unsupported length expression")

// NullTerminated is the length of C strings.
const NullTerminated = "null-terminated"

// Scope resolves the siblings of a member or parameter.
type Scope struct {
	// Var is the pointer to the enclosing struct, or empty for command
	// parameters which are locals.
	Var     string
	Members []*types.VulkanType
}

// Sibling returns the sibling with the given name.
func (s Scope) Sibling(name string) *types.VulkanType {
	for _, m := range s.Members {
		if m.ParamName == name {
			return m
		}
	}
	return nil
}

// Access returns the expression of a sibling.
func (s Scope) Access(name string) string { return Access(s.Var, name) }

// latexLengths maps the latexmath lengths found in the registry to C. Keys
// have their whitespace removed.
var latexLengths = map[string]struct {
	vars   []string
	format string
}{
	`\textrm{codeSize}\over4`:                            {[]string{"codeSize"}, "%s / 4"},
	`\lceil{\mathit{rasterizationSamples}\over32}\rceil`: {[]string{"rasterizationSamples"}, "(%s + 31) / 32"},
	`\lceil{\mathit{samples}\over32}\rceil`:              {[]string{"samples"}, "(%s + 31) / 32"},
	`\mathit{samples}\over32`:                            {[]string{"samples"}, "%s / 32"},
	`2\times\mathtt{VK\_UUID\_SIZE}`:                     {nil, "2 * VK_UUID_SIZE"},
	`2*VK_UUID_SIZE`:                                     {nil, "2 * VK_UUID_SIZE"},
}

// LengthAccess returns the C expression for the outer length of t, or the
// empty string when t has no length. A sibling that is itself a pointer is
// dereferenced; LengthGuard returns the check that makes that safe.
func LengthAccess(t *types.VulkanType, s Scope) (string, error) {
	expr := t.LenExpr
	switch {
	case expr == "":
		return "", nil
	case expr == NullTerminated:
		return fmt.Sprintf("strlen(%s)", s.Access(t.ParamName)), nil
	case strings.HasPrefix(expr, "latexmath:"):
		return latexAccess(t, s)
	}
	if _, err := strconv.ParseInt(expr, 0, 64); err == nil {
		return expr, nil
	}
	if root, field, ok := strings.Cut(expr, "->"); ok {
		sib := s.Sibling(root)
		if sib == nil {
			return "", errors.Wrapf(ErrLengthExpr, "%v.%v: %v", t.Parent, t.ParamName, expr)
		}
		return fmt.Sprintf("%s->%s", s.Access(root), field), nil
	}
	if sib := s.Sibling(expr); sib != nil {
		if sib.IsPointer() {
			return fmt.Sprintf("(*(%s))", s.Access(expr)), nil
		}
		return fmt.Sprintf("(%s)", s.Access(expr)), nil
	}
	if isConstant(expr) {
		return expr, nil
	}
	return "", errors.Wrapf(ErrLengthExpr, "%v.%v: %v", t.Parent, t.ParamName, expr)
}

// LengthGuard returns the null check needed before evaluating the length of
// t, or the empty string.
func LengthGuard(t *types.VulkanType, s Scope) string {
	if sib := s.Sibling(t.LenExpr); sib != nil && sib.IsPointer() {
		return s.Access(t.LenExpr)
	}
	if root, _, ok := strings.Cut(t.LenExpr, "->"); ok && s.Sibling(root) != nil {
		return s.Access(root)
	}
	return ""
}

func latexAccess(t *types.VulkanType, s Scope) (string, error) {
	key := strings.Join(strings.Fields(strings.TrimSuffix(strings.TrimPrefix(t.LenExpr, "latexmath:["), "]")), "")
	l, ok := latexLengths[key]
	if !ok && t.AltLen != "" {
		l, ok = latexLengths[strings.ReplaceAll(t.AltLen, " ", "")]
	}
	if !ok {
		return "", errors.Wrapf(ErrLengthExpr, "%v.%v: %v", t.Parent, t.ParamName, t.LenExpr)
	}
	args := make([]interface{}, len(l.vars))
	for i, v := range l.vars {
		if s.Sibling(v) == nil {
			return "", errors.Wrapf(ErrLengthExpr, "%v.%v: %v has no %v", t.Parent, t.ParamName, t.LenExpr, v)
		}
		args[i] = fmt.Sprintf("(%s)", s.Access(v))
	}
	return "(" + fmt.Sprintf(l.format, args...) + ")", nil
}

func isConstant(expr string) bool {
	if !strings.HasPrefix(expr, "VK_") {
		return false
	}
	for _, c := range expr {
		if !(c == '_' || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// ElementCount returns the number of elements addressed by t: the length
// expression, the static array size, or "1".
func ElementCount(t *types.VulkanType, s Scope) (string, error) {
	if t.StaticArrExpr != "" {
		return t.StaticArrLen(), nil
	}
	l, err := LengthAccess(t, s)
	if err != nil || l != "" {
		return l, err
	}
	return "1", nil
}
