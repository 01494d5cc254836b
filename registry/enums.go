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

package registry

import (
	"context"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/google/gfxcodegen/core/log"
	"github.com/pkg/errors"
)

// extBase is the first value reserved for extension enumerants.
const extBase = 1000000000

// extBlockSize is the number of values reserved per extension.
const extBlockSize = 1000

// EnumInfo describes an enumerant or an API constant.
type EnumInfo struct {
	Name      string
	Group     string // The <enums> group, or the extended type.
	Type      string // The C type of API constants.
	Value     string
	Bitpos    int // -1 if unset.
	Offset    int // -1 if unset.
	Dir       string
	ExtNumber int
	Extends   string
	Alias     string
	API       string

	// ExtName and Supported record the extension that added the enumerant.
	ExtName   string
	Supported string

	Required bool
	Declared bool

	// inBlock is set for enumerants defined directly in their <enums> group.
	inBlock bool
}

// Int returns the numeric value of the enumerant. Aliases must be resolved
// through Registry.EnumValue.
func (e *EnumInfo) Int() (int64, error) {
	switch {
	case e.Bitpos >= 0:
		return int64(1) << uint(e.Bitpos), nil
	case e.Offset >= 0:
		v := ExtensionValue(e.ExtNumber, e.Offset)
		if e.Dir == "-" {
			v = -v
		}
		return v, nil
	case e.Value != "":
		return parseCValue(e.Value)
	}
	return 0, errors.Wrapf(ErrSchema, "Enum %v has no value", e.Name)
}

// sameDefinition reports whether two definitions of an enumerant agree on
// every field that affects its value.
func (e *EnumInfo) sameDefinition(o *EnumInfo) bool {
	if e.Extends != o.Extends || e.Alias != o.Alias {
		return false
	}
	if e.Value != "" || o.Value != "" {
		return e.Value == o.Value
	}
	if e.Bitpos >= 0 || o.Bitpos >= 0 {
		return e.Bitpos == o.Bitpos
	}
	return e.Offset == o.Offset && e.Dir == o.Dir && e.ExtNumber == o.ExtNumber
}

// parseCValue evaluates the C literal forms used by API constants.
func parseCValue(s string) (int64, error) {
	v := strings.TrimSpace(s)
	for strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	neg := false
	if strings.HasPrefix(v, "~") {
		neg, v = true, v[1:]
	}
	v = strings.TrimRight(v, "UuLl")
	if strings.Contains(v, ".") {
		return 0, errors.Wrapf(ErrSchema, "Non integer constant %q", s)
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrSchema, "Unparsable constant %q", s)
	}
	if neg {
		if strings.Contains(strings.ToUpper(s), "ULL") {
			return int64(^uint64(n)), nil
		}
		return int64(^uint32(n)), nil
	}
	return n, nil
}

// EnumValue resolves an enumerant or constant name to its numeric value,
// following aliases.
func (r *Registry) EnumValue(name string) (int64, error) {
	for i := 0; i < 16; i++ {
		e, ok := r.Enums[name]
		if !ok {
			return 0, errors.Wrapf(ErrSchema, "Unknown enum %v", name)
		}
		if e.Alias == "" {
			return e.Int()
		}
		name = e.Alias
	}
	return 0, errors.Wrapf(ErrSchema, "Alias loop resolving %v", name)
}

func parseEnum(n *xmlquery.Node) *EnumInfo {
	e := &EnumInfo{
		Name:    n.SelectAttr("name"),
		Type:    n.SelectAttr("type"),
		Value:   n.SelectAttr("value"),
		Bitpos:  -1,
		Offset:  -1,
		Dir:     n.SelectAttr("dir"),
		Extends: n.SelectAttr("extends"),
		Alias:   n.SelectAttr("alias"),
		API:     n.SelectAttr("api"),
	}
	if s := n.SelectAttr("bitpos"); s != "" {
		e.Bitpos, _ = strconv.Atoi(s)
	}
	if s := n.SelectAttr("offset"); s != "" {
		e.Offset, _ = strconv.Atoi(s)
	}
	if s := n.SelectAttr("extnumber"); s != "" {
		e.ExtNumber, _ = strconv.Atoi(s)
	}
	return e
}

// isReference returns true for <enum> elements inside <require> that only
// name an existing enumerant.
func (e *EnumInfo) isReference() bool {
	return e.Value == "" && e.Bitpos < 0 && e.Offset < 0 && e.Alias == ""
}

func (r *Registry) addEnums(ctx context.Context, n *xmlquery.Node) error {
	name := n.SelectAttr("name")
	typ := n.SelectAttr("type")
	var group *GroupInfo
	if typ == "enum" || typ == "bitmask" {
		group = &GroupInfo{Name: name, Type: typ, BitWidth: 32}
		if bw := n.SelectAttr("bitwidth"); bw != "" {
			group.BitWidth, _ = strconv.Atoi(bw)
		}
		if _, dup := r.Groups[name]; dup {
			return errors.Wrapf(ErrSchema, "Redefinition of enum group %v", name)
		}
		r.Groups[name] = group
		r.GroupOrder = append(r.GroupOrder, name)
	}
	for _, c := range n.SelectElements("enum") {
		if !r.apiMatches(c.SelectAttr("api")) {
			continue
		}
		e := parseEnum(c)
		if group != nil {
			e.Group = name
			e.inBlock = true
		}
		if err := r.addEnum(ctx, e); err != nil {
			return err
		}
		if group != nil {
			group.Enums = append(group.Enums, e)
		}
	}
	return nil
}

// addEnum records e, tolerating a redefinition that agrees with the first.
func (r *Registry) addEnum(ctx context.Context, e *EnumInfo) error {
	if e.Name == "" {
		return errors.Wrap(ErrSchema, "Enum with no name")
	}
	if prev, ok := r.Enums[e.Name]; ok {
		if !prev.sameDefinition(e) {
			return errors.Wrapf(ErrSchema, "Inconsistent redefinition of enum %v", e.Name)
		}
		log.D(ctx, "Ignoring compatible redefinition of %v", e.Name)
		return nil
	}
	r.Enums[e.Name] = e
	return nil
}

// addExtensionEnum folds an enumerant declared inside a <require> into its
// extended group, tagging the extension that introduced it.
func (r *Registry) addExtensionEnum(ctx context.Context, e *EnumInfo, f *FeatureInfo) error {
	if e.Offset >= 0 && e.ExtNumber == 0 {
		if !f.IsExtension {
			return errors.Wrapf(ErrSchema, "Enum %v in %v has an offset but no extnumber", e.Name, f.Name)
		}
		e.ExtNumber = f.ExtNumber
	}
	if f.IsExtension {
		e.ExtName = f.Name
		e.Supported = strings.Join(f.Supported, ",")
	}
	if e.Extends == "" {
		return r.addEnum(ctx, e)
	}
	e.Group = e.Extends
	if prev, ok := r.Enums[e.Name]; ok {
		if !prev.sameDefinition(e) {
			return errors.Wrapf(ErrSchema, "Inconsistent redefinition of enum %v", e.Name)
		}
		return nil
	}
	r.Enums[e.Name] = e
	if g, ok := r.Groups[e.Extends]; ok {
		g.Enums = append(g.Enums, e)
	} else {
		log.W(ctx, "Enum %v extends unknown group %v", e.Name, e.Extends)
	}
	return nil
}
