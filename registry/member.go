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
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/pkg/errors"
)

// Member is a struct member or command parameter as written in the registry,
// before any generator specific interpretation.
type Member struct {
	Name     string
	TypeName string
	// IsConst is set when the declaration starts with const.
	IsConst bool
	// PointerLevels is the number of pointer indirections.
	PointerLevels int
	// PointerToConstPointer is set for "T* const*" declarations.
	PointerToConstPointer bool
	// StaticArr is the static array size, either a literal or an API
	// constant name when StaticArrEnum is set.
	StaticArr     string
	StaticArrEnum bool

	Len            string
	AltLen         string
	Optional       []bool
	NoAutoValidity bool
	Values         string
	Selector       string
	Selection      string
	ExternSync     string
	API            string

	// Filter annotations. A member with a FilterVar is only streamed when its
	// predicate holds.
	FilterVar       string
	FilterVals      []string
	FilterFunc      string
	FilterOtherwise string
	// Binds maps variables of the member's struct environment to
	// expressions of the enclosing scope.
	Binds map[string]string
	// StreamFeature names the stream feature that guards this member.
	StreamFeature string

	// Text is the flattened declaration, e.g. "const char* const* ppNames".
	Text string
}

// IsOptional returns true if the outermost level may be null or zero.
func (m *Member) IsOptional() bool {
	for _, o := range m.Optional {
		if o {
			return true
		}
	}
	return false
}

// LenParts returns the comma separated length expressions. The first entry
// applies to the outermost pointer level.
func (m *Member) LenParts() []string {
	if m.Len == "" {
		return nil
	}
	return strings.Split(m.Len, ",")
}

// Clone returns a deep copy of m.
func (m *Member) Clone() *Member {
	out := *m
	out.Optional = append([]bool(nil), m.Optional...)
	out.FilterVals = append([]string(nil), m.FilterVals...)
	if m.Binds != nil {
		out.Binds = make(map[string]string, len(m.Binds))
		for k, v := range m.Binds {
			out.Binds[k] = v
		}
	}
	return &out
}

func parseMember(n *xmlquery.Node) (*Member, error) {
	m := &Member{
		Len:             n.SelectAttr("len"),
		AltLen:          n.SelectAttr("altlen"),
		NoAutoValidity:  n.SelectAttr("noautovalidity") == "true",
		Values:          n.SelectAttr("values"),
		Selector:        n.SelectAttr("selector"),
		Selection:       n.SelectAttr("selection"),
		ExternSync:      n.SelectAttr("externsync"),
		API:             n.SelectAttr("api"),
		FilterVar:       n.SelectAttr("filterVar"),
		FilterFunc:      n.SelectAttr("filterFunc"),
		FilterOtherwise: n.SelectAttr("filterOtherwise"),
		StreamFeature:   n.SelectAttr("streamFeature"),
	}
	if opt := n.SelectAttr("optional"); opt != "" {
		for _, o := range strings.Split(opt, ",") {
			m.Optional = append(m.Optional, o == "true")
		}
	}
	if vals := n.SelectAttr("filterVals"); vals != "" {
		m.FilterVals = strings.Split(vals, ",")
	}
	if binds := n.SelectAttr("binds"); binds != "" {
		m.Binds = map[string]string{}
		for _, b := range strings.Split(binds, ",") {
			child, parent, ok := strings.Cut(b, ":")
			if !ok {
				return nil, errors.Wrapf(ErrSchema, "Malformed binds entry %q", b)
			}
			m.Binds[strings.TrimSpace(child)] = strings.TrimSpace(parent)
		}
	}

	// Walk the mixed content: [prefix] <type> [stars] <name> [array].
	const (
		beforeType = iota
		beforeName
		afterName
	)
	state := beforeType
	between, after := "", ""
	text := strings.Builder{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			text.WriteString(c.Data)
			switch state {
			case beforeType:
				if strings.Contains(c.Data, "const") {
					m.IsConst = true
				}
			case beforeName:
				between += c.Data
			case afterName:
				after += c.Data
			}
		case xmlquery.ElementNode:
			switch c.Data {
			case "type":
				m.TypeName = c.InnerText()
				state = beforeName
			case "name":
				m.Name = c.InnerText()
				state = afterName
			case "enum":
				m.StaticArr = c.InnerText()
				m.StaticArrEnum = true
				after += c.InnerText()
			case "comment":
				continue
			}
			text.WriteString(c.InnerText())
		}
	}
	m.Text = strings.Join(strings.Fields(text.String()), " ")
	if m.Name == "" || m.TypeName == "" {
		return nil, errors.Wrapf(ErrSchema, "Member declaration %q has no <type> or <name>", m.Text)
	}
	m.PointerLevels = strings.Count(between, "*")
	if first := strings.Index(between, "*"); first >= 0 && strings.Contains(between[first:], "const") {
		m.PointerToConstPointer = true
	}
	if !m.StaticArrEnum {
		if open := strings.Index(after, "["); open >= 0 {
			if end := strings.Index(after[open:], "]"); end > 0 {
				m.StaticArr = strings.TrimSpace(after[open+1 : open+end])
			}
		}
	}
	return m, nil
}
