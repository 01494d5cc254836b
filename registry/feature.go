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

	"github.com/Masterminds/semver/v3"
	"github.com/antchfx/xmlquery"
	"github.com/pkg/errors"
)

func (r *Registry) addFeature(ctx context.Context, n *xmlquery.Node, isExtension bool) error {
	f := &FeatureInfo{
		Name:        n.SelectAttr("name"),
		API:         n.SelectAttr("api"),
		IsExtension: isExtension,
		Number:      n.SelectAttr("number"),
		Type:        n.SelectAttr("type"),
		Depends:     n.SelectAttr("depends"),
		PromotedTo:  n.SelectAttr("promotedto"),
		Platform:    n.SelectAttr("platform"),
	}
	if f.Name == "" {
		return errors.Wrap(ErrSchema, "Feature with no name")
	}
	if f.Depends == "" {
		f.Depends = n.SelectAttr("requires")
	}
	if isExtension {
		if s := n.SelectAttr("supported"); s != "" {
			f.Supported = strings.Split(s, ",")
		}
		num, err := strconv.Atoi(f.Number)
		if err != nil {
			return errors.Wrapf(ErrSchema, "Extension %v has bad number %q", f.Name, f.Number)
		}
		f.ExtNumber = num
		if s := n.SelectAttr("sortorder"); s != "" {
			f.SortOrder, _ = strconv.Atoi(s)
		}
	} else {
		for _, a := range strings.Split(f.API, ",") {
			r.apis[a] = true
		}
		if !r.apiMatches(f.API) {
			return nil
		}
		v, err := semver.NewVersion(f.Number)
		if err != nil {
			return errors.Wrapf(ErrSchema, "Feature %v has bad version %q", f.Name, f.Number)
		}
		f.Version = v
	}
	for _, s := range f.Supported {
		r.apis[s] = r.apis[s] || s != "disabled"
	}
	if _, dup := r.Features[f.Name]; dup {
		return errors.Wrapf(ErrSchema, "Redefinition of feature %v", f.Name)
	}

	for _, c := range n.SelectElements("require") {
		set, err := r.parseInterfaceSet(ctx, c, f, true)
		if err != nil {
			return err
		}
		f.Requires = append(f.Requires, set)
	}
	for _, c := range n.SelectElements("remove") {
		set, err := r.parseInterfaceSet(ctx, c, f, false)
		if err != nil {
			return err
		}
		f.Removes = append(f.Removes, set)
	}
	r.Features[f.Name] = f
	r.FeatureOrder = append(r.FeatureOrder, f.Name)
	return nil
}

func (r *Registry) parseInterfaceSet(ctx context.Context, n *xmlquery.Node, f *FeatureInfo, require bool) (*InterfaceSet, error) {
	set := &InterfaceSet{
		Comment: n.SelectAttr("comment"),
		API:     n.SelectAttr("api"),
		Depends: n.SelectAttr("depends"),
	}
	// Older registries spell dependencies as feature or extension attributes.
	for _, attr := range []string{"feature", "extension"} {
		if v := n.SelectAttr(attr); v != "" {
			if set.Depends != "" {
				set.Depends += "+"
			}
			set.Depends += v
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		name := c.SelectAttr("name")
		switch c.Data {
		case "type":
			set.Types = append(set.Types, name)
		case "command":
			set.Commands = append(set.Commands, name)
		case "enum":
			set.Enums = append(set.Enums, name)
			if !require || !r.apiMatches(c.SelectAttr("api")) {
				continue
			}
			if e := parseEnum(c); !e.isReference() {
				if err := r.addExtensionEnum(ctx, e, f); err != nil {
					return nil, err
				}
			}
		}
	}
	return set, nil
}
