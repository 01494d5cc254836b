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

// Package visitors holds the pieces shared by the visitor modules: tracking
// of the extension structs seen during generation and the sType dispatch
// switch every chain-walking function is built around.
package visitors

import (
	"fmt"

	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/types"
)

// MaxEnumRoot is the rootType passed by callers that do not know the root of
// the extension chain.
const MaxEnumRoot = "VK_STRUCTURE_TYPE_MAX_ENUM"

// ExtStruct is an extension struct and the feature that declared it.
type ExtStruct struct {
	Struct  *types.StructInfo
	Feature string
}

// Extensions records extension structs in generation order.
type Extensions struct {
	List []ExtStruct
	seen map[string]bool
}

// Add records s if it can appear in a pNext chain.
func (e *Extensions) Add(s *types.StructInfo, feature string) {
	if s == nil || len(s.StructExtendsExpr) == 0 || s.StructEnumExpr == "" {
		return
	}
	if e.seen == nil {
		e.seen = map[string]bool{}
	}
	if e.seen[s.Name] {
		return
	}
	e.seen[s.Name] = true
	e.List = append(e.List, ExtStruct{Struct: s, Feature: feature})
}

// find returns the recorded entry for the named struct.
func (e *Extensions) find(name string) (ExtStruct, bool) {
	for _, x := range e.List {
		if x.Struct.Name == name {
			return x, true
		}
	}
	return ExtStruct{}, false
}

// overridden returns true if s is only reachable through the rootType
// override of another recorded struct sharing its sType value.
func (e *Extensions) overridden(s *types.StructInfo) bool {
	for owner, list := range types.RootTypeOverrides {
		for _, o := range list {
			if o.Struct != s.Name {
				continue
			}
			for _, x := range e.List {
				if x.Struct.StructEnumExpr == owner {
					return true
				}
			}
		}
	}
	return false
}

// Switch emits a switch over the sType expression calling body for each
// recorded extension struct. Structs that share an sType value are told
// apart by a nested switch on rootExpr. body emits the statements of one
// case, without the trailing break. def emits the default case and may be
// nil.
func (e *Extensions) Switch(g *emit.CodeGen, sTypeExpr, rootExpr string, body func(s *types.StructInfo), def func()) {
	g.BeginSwitch(sTypeExpr)
	for _, x := range e.List {
		if e.overridden(x.Struct) {
			continue
		}
		emitFeature(g, x.Feature, func() {
			g.SwitchCase(x.Struct.StructEnumExpr)
			overrides := types.RootTypeOverrides[x.Struct.StructEnumExpr]
			if len(overrides) == 0 {
				body(x.Struct)
				g.SwitchCaseEnd()
				return
			}
			g.BeginSwitch(rootExpr)
			for _, o := range overrides {
				target, ok := e.find(o.Struct)
				if !ok {
					continue
				}
				emitFeature(g, target.Feature, func() {
					g.SwitchCase(o.RootType)
					body(target.Struct)
					g.SwitchCaseEnd()
				})
			}
			g.SwitchDefault()
			body(x.Struct)
			g.SwitchCaseEnd()
			g.EndSwitch()
			g.SwitchCaseEnd()
		})
	}
	if def != nil {
		g.SwitchDefault()
		def()
		g.SwitchCaseEnd()
	}
	g.EndSwitch()
}

func emitFeature(g *emit.CodeGen, feature string, f func()) {
	if feature == "" {
		f()
		return
	}
	g.BeginIfdef(feature)
	f()
	g.EndIfdef()
}

// AliasDefine returns the define forwarding the prefixed function of an
// alias to the prefixed function of the aliased type.
func AliasDefine(prefix, name, alias string) string {
	return fmt.Sprintf("#define %s_%s %s_%s\n", prefix, name, prefix, alias)
}

// ExtensionCast returns the cast of the chain pointer to the struct s.
func ExtensionCast(s *types.StructInfo, ptr string, isConst bool) string {
	to := s.Name + "*"
	if isConst {
		to = "const " + to
	}
	return emit.ReinterpretCast(to, ptr)
}

// EachElement calls call with a pointer to each element of the compound
// member t of scope: once for a value, per element for a static array, and
// for a pointer only when it is non-null.
func EachElement(g *emit.CodeGen, t *types.VulkanType, scope emit.Scope, call func(ptr string)) error {
	lv := scope.Access(t.ParamName)
	switch {
	case t.IsStaticArray():
		idx := g.VarWithPrefix("i")
		g.BeginLoop(idx, t.StaticArrLen())
		call(fmt.Sprintf("%s + %s", lv, idx))
		g.EndFor()
	case t.IsPointer():
		n, err := emit.LengthAccess(t, scope)
		if err != nil {
			return err
		}
		g.BeginIf("%s", lv)
		if n == "" {
			call(lv)
		} else {
			idx := g.VarWithPrefix("i")
			g.BeginLoop(idx, n)
			call(fmt.Sprintf("%s + %s", lv, idx))
			g.EndFor()
		}
		g.EndIf()
	default:
		call(emit.AddressOf(lv))
	}
	return nil
}
