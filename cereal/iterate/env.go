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

package iterate

import (
	"fmt"
	"strings"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/filter"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/pkg/errors"
)

// IgnoredHandlesBit is the feature macro that enables filtered members.
var IgnoredHandlesBit = types.StreamFeatureMacro("IGNORED_HANDLES")

// Env resolves the filter variables of a struct to C expressions inside a
// generated function whose struct pointer is Var.
type Env struct {
	Struct *types.StructInfo
	Var    string
}

// Resolve maps a variable of the struct environment to C. Members are
// accessed through the struct pointer; lets and free variables are locals
// or parameters of the same name.
func (e Env) Resolve(name string) string {
	if e.Struct == nil {
		return ""
	}
	if v, ok := e.Struct.Env[name]; ok && v.StructMember {
		return emit.Access(e.Var, name)
	}
	return ""
}

// Predicate returns the C condition under which t is on the wire, or the
// empty string when it always is.
func (e Env) Predicate(t *types.VulkanType, featureBits string) (string, error) {
	if !t.HasFilter() {
		return "", nil
	}
	pred, err := e.FilterExpr(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("!(%s & %s) || (%s)", featureBits, IgnoredHandlesBit, pred), nil
}

// FilterExpr returns the C expression of t's filter alone.
func (e Env) FilterExpr(t *types.VulkanType) (string, error) {
	if t.FilterFunc != "" {
		out, err := filter.CompileString(t.FilterFunc, e.Resolve)
		return out, errors.Wrapf(err, "%v.%v", t.Parent, t.ParamName)
	}
	v := e.Resolve(t.FilterVar)
	if v == "" {
		v = t.FilterVar
	}
	if len(t.FilterVals) == 0 {
		return v, nil
	}
	terms := make([]string, len(t.FilterVals))
	for i, val := range t.FilterVals {
		terms[i] = fmt.Sprintf("(%s == %s)", v, val)
	}
	return strings.Join(terms, " || "), nil
}

// Let is a let-bound variable materialized at the top of a function.
type Let struct {
	Name string
	Type string
	// Expr is the C expression of the let body.
	Expr string
}

// Lets compiles the let variables of the struct.
func (e Env) Lets() ([]Let, error) {
	out := []Let{}
	for _, v := range e.Struct.Lets() {
		expr, err := filter.CompileString(v.Body, e.Resolve)
		if err != nil {
			return nil, errors.Wrapf(err, "%v let %v", e.Struct.Name, v.Name)
		}
		out = append(out, Let{Name: v.Name, Type: v.Type, Expr: expr})
	}
	return out, nil
}

// FreeParams returns the extra parameters of the struct's generated
// functions, one per free variable.
func FreeParams(s *types.StructInfo) []emit.Param {
	out := []emit.Param{}
	if s == nil {
		return out
	}
	for _, v := range s.FreeVars() {
		out = append(out, emit.Param{Type: v.Type, Name: v.Name})
	}
	return out
}

// BindArgs returns the arguments passed for the free variables of the struct
// of member t, resolved in the enclosing environment.
func (e Env) BindArgs(info *types.Info, t *types.VulkanType) ([]string, error) {
	inner := info.Struct(t.TypeName)
	out := []string{}
	if inner == nil {
		return out, nil
	}
	for _, v := range inner.FreeVars() {
		src, ok := t.Binds[v.Name]
		if !ok {
			src = v.Name
		}
		expr, err := filter.CompileString(src, e.Resolve)
		if err != nil {
			return nil, errors.Wrapf(err, "%v.%v binds %v", t.Parent, t.ParamName, v.Name)
		}
		out = append(out, expr)
	}
	return out, nil
}

// FeatureGuard returns the condition guarding a member with a stream
// feature other than NULL_OPTIONAL_STRINGS, or the empty string.
func FeatureGuard(t *types.VulkanType, featureBits string) string {
	if t.StreamFeature == "" || t.HasNullOptionalStringFeature() {
		return ""
	}
	return fmt.Sprintf("%s & %s", featureBits, types.StreamFeatureMacro(t.StreamFeature))
}

// MemberFilter returns t's filter when it only reads sibling members, so
// that it can be evaluated without the lets and free variables of the
// marshaling functions. It returns the empty string otherwise.
func (e Env) MemberFilter(t *types.VulkanType) (string, error) {
	if !t.HasFilter() || t.FilterFunc != "" || e.Resolve(t.FilterVar) == "" {
		return "", nil
	}
	return e.FilterExpr(t)
}
