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

// Package registry parses Khronos style API registries into catalogues of
// types, enums, commands and features, and replays the selected features
// through a Generator in dependency order.
package registry

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/antchfx/xmlquery"
	"github.com/google/gfxcodegen/core/fault"
	"github.com/google/gfxcodegen/core/log"
	"github.com/pkg/errors"
)

const (
	// ErrSchema is returned when the registry violates the registry grammar.
	ErrSchema = fault.Const("Registry schema violation")
	// ErrConfig is returned when the generator options do not match the
	// registry.
	ErrConfig = fault.Const("Invalid generator configuration")
)

// Category is the category attribute of a registry type.
type Category string

// The type categories found in the registry. Types with no category attribute
// are primitives.
const (
	Primitive   Category = ""
	Include     Category = "include"
	Define      Category = "define"
	BaseType    Category = "basetype"
	Bitmask     Category = "bitmask"
	Handle      Category = "handle"
	Enum        Category = "enum"
	FuncPointer Category = "funcpointer"
	Struct      Category = "struct"
	Union       Category = "union"
)

// Registry holds the catalogues built from one or more registry files.
type Registry struct {
	// API is the API name elements are filtered by, e.g. "vulkan".
	API string

	Types    map[string]*TypeInfo
	Groups   map[string]*GroupInfo
	Enums    map[string]*EnumInfo
	Commands map[string]*CmdInfo
	Features map[string]*FeatureInfo

	// Insertion orders, used for deterministic traversal.
	TypeOrder    []string
	CommandOrder []string
	FeatureOrder []string
	GroupOrder   []string

	apis map[string]bool
}

// TypeInfo describes a <type> element.
type TypeInfo struct {
	Name          string
	Category      Category
	Requires      string
	BitValues     string
	Alias         string
	Parent        string
	ObjTypeEnum   string
	API           string
	ReturnedOnly  bool
	StructExtends []string
	// Underlying is the referenced type of a basetype, bitmask or handle
	// definition, e.g. VkFlags or VK_DEFINE_HANDLE.
	Underlying string
	// Text is the flattened C text of the element.
	Text    string
	Members []*Member
	Env     []*EnvEntry
	// Deps are every type name referenced from the definition.
	Deps []string
	// EnumDeps are constants referenced from the definition, such as static
	// array sizes.
	EnumDeps []string

	Required   bool
	Declared   bool
	RequiredBy string
}

// IsUnion returns true for union types.
func (t *TypeInfo) IsUnion() bool { return t.Category == Union }

// IsCompound returns true for struct and union types.
func (t *TypeInfo) IsCompound() bool { return t.Category == Struct || t.Category == Union }

// IsDispatchableHandle returns true for handles defined by VK_DEFINE_HANDLE.
func (t *TypeInfo) IsDispatchableHandle() bool {
	return t.Category == Handle && t.Underlying == "VK_DEFINE_HANDLE"
}

// Member looks up a member by name.
func (t *TypeInfo) Member(name string) *Member {
	for _, m := range t.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// StructureType returns the sType value constant of a chained struct, or the
// empty string.
func (t *TypeInfo) StructureType() string {
	for _, m := range t.Members {
		if m.Name == "sType" && m.Values != "" {
			return m.Values
		}
	}
	return ""
}

// EnvEntry is a variable in a struct environment. Free variables are bound
// by the parent through a member's Binds; let variables carry a body.
type EnvEntry struct {
	Name string
	Type string
	Body string
	Let  bool
}

// GroupInfo describes an <enums> element with a type attribute.
type GroupInfo struct {
	Name     string
	Type     string // "enum" or "bitmask"
	BitWidth int
	Enums    []*EnumInfo
}

// Find returns the enumerant with the given name.
func (g *GroupInfo) Find(name string) *EnumInfo {
	for _, e := range g.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// CmdInfo describes a <command> element.
type CmdInfo struct {
	Name         string
	Alias        string
	ReturnType   string
	Params       []*Member
	SuccessCodes []string
	ErrorCodes   []string
	Queues       string
	API          string

	Required   bool
	Declared   bool
	RequiredBy string
}

// Param looks up a parameter by name.
func (c *CmdInfo) Param(name string) *Member {
	for _, p := range c.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// FeatureInfo describes a <feature> or an <extension>.
type FeatureInfo struct {
	Name        string
	API         string
	IsExtension bool
	// Number is the version for features, the extension number otherwise.
	Number     string
	Version    *semver.Version
	ExtNumber  int
	SortOrder  int
	Type       string
	Supported  []string
	Depends    string
	PromotedTo string
	Platform   string
	Requires   []*InterfaceSet
	Removes    []*InterfaceSet
}

// InterfaceSet is the content of a <require> or <remove> element.
type InterfaceSet struct {
	Comment  string
	API      string
	Depends  string
	Types    []string
	Enums    []string
	Commands []string
}

// New returns an empty registry filtered to the given API name.
func New(api string) *Registry {
	return &Registry{
		API:      api,
		Types:    map[string]*TypeInfo{},
		Groups:   map[string]*GroupInfo{},
		Enums:    map[string]*EnumInfo{},
		Commands: map[string]*CmdInfo{},
		Features: map[string]*FeatureInfo{},
		apis:     map[string]bool{},
	}
}

// LoadFile parses the registry file at path into r.
func (r *Registry) LoadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "Opening registry %v", path)
	}
	defer f.Close()
	ctx = log.Enter(ctx, path)
	return r.LoadReader(ctx, f)
}

// LoadReader parses a registry document from in into r. Multiple documents
// may be loaded into the same registry; later documents may alias and extend
// entities of earlier ones.
func (r *Registry) LoadReader(ctx context.Context, in io.Reader) error {
	doc, err := xmlquery.Parse(in)
	if err != nil {
		return errors.Wrap(err, "Parsing registry XML")
	}
	root := xmlquery.FindOne(doc, "/registry")
	if root == nil {
		return errors.Wrap(ErrSchema, "Document has no <registry> root")
	}
	for _, n := range xmlquery.Find(root, "types/type") {
		if !r.apiMatches(n.SelectAttr("api")) {
			continue
		}
		if err := r.addType(n); err != nil {
			return err
		}
	}
	for _, n := range xmlquery.Find(root, "enums") {
		if err := r.addEnums(ctx, n); err != nil {
			return err
		}
	}
	var aliases []*xmlquery.Node
	for _, n := range xmlquery.Find(root, "commands/command") {
		if !r.apiMatches(n.SelectAttr("api")) {
			continue
		}
		if n.SelectAttr("alias") != "" {
			aliases = append(aliases, n)
			continue
		}
		if err := r.addCommand(n); err != nil {
			return err
		}
	}
	for _, n := range aliases {
		if err := r.addCommandAlias(n); err != nil {
			return err
		}
	}
	for _, n := range xmlquery.Find(root, "feature") {
		if err := r.addFeature(ctx, n, false); err != nil {
			return err
		}
	}
	for _, n := range xmlquery.Find(root, "extensions/extension") {
		if err := r.addFeature(ctx, n, true); err != nil {
			return err
		}
	}
	log.D(ctx, "Registry holds %d types, %d commands, %d features",
		len(r.Types), len(r.Commands), len(r.Features))
	return nil
}

// apiMatches returns true if a comma separated api attribute admits r.API.
// An empty attribute admits every API.
func (r *Registry) apiMatches(attr string) bool {
	if attr == "" || r.API == "" {
		return true
	}
	for _, a := range strings.Split(attr, ",") {
		if a == r.API {
			return true
		}
	}
	return false
}

func (r *Registry) addType(n *xmlquery.Node) error {
	t := &TypeInfo{
		Name:         n.SelectAttr("name"),
		Category:     Category(n.SelectAttr("category")),
		Requires:     n.SelectAttr("requires"),
		BitValues:    n.SelectAttr("bitvalues"),
		Alias:        n.SelectAttr("alias"),
		Parent:       n.SelectAttr("parent"),
		ObjTypeEnum:  n.SelectAttr("objtypeenum"),
		API:          n.SelectAttr("api"),
		ReturnedOnly: n.SelectAttr("returnedonly") == "true",
		Text:         strings.TrimSpace(n.InnerText()),
	}
	if ext := n.SelectAttr("structextends"); ext != "" {
		t.StructExtends = strings.Split(ext, ",")
	}
	if t.Name == "" {
		if name := n.SelectElement("name"); name != nil {
			t.Name = name.InnerText()
		}
	}
	if t.Name == "" {
		return errors.Wrapf(ErrSchema, "Type with no name: %q", t.Text)
	}
	if _, dup := r.Types[t.Name]; dup {
		return errors.Wrapf(ErrSchema, "Redefinition of type %v", t.Name)
	}
	switch t.Category {
	case Struct, Union:
		for _, c := range n.SelectElements("member") {
			if !r.apiMatches(c.SelectAttr("api")) {
				continue
			}
			m, err := parseMember(c)
			if err != nil {
				return errors.Wrapf(err, "In %v", t.Name)
			}
			t.Members = append(t.Members, m)
			t.Deps = appendUnique(t.Deps, m.TypeName)
			if m.StaticArrEnum {
				t.EnumDeps = appendUnique(t.EnumDeps, m.StaticArr)
			}
		}
		for _, c := range n.SelectElements("env") {
			t.Env = append(t.Env, &EnvEntry{Name: c.SelectAttr("name"), Type: c.SelectAttr("type")})
		}
		for _, c := range n.SelectElements("let") {
			t.Env = append(t.Env, &EnvEntry{
				Name: c.SelectAttr("name"),
				Type: c.SelectAttr("type"),
				Body: c.SelectAttr("body"),
				Let:  true,
			})
		}
	default:
		for _, c := range n.SelectElements("type") {
			ref := c.InnerText()
			if t.Underlying == "" {
				t.Underlying = ref
			}
			if ref != t.Name && !strings.HasPrefix(ref, "VK_DEFINE") {
				t.Deps = appendUnique(t.Deps, ref)
			}
		}
	}
	for _, dep := range []string{t.Requires, t.BitValues, t.Alias} {
		if dep != "" {
			t.Deps = appendUnique(t.Deps, dep)
		}
	}
	r.Types[t.Name] = t
	r.TypeOrder = append(r.TypeOrder, t.Name)
	return nil
}

func (r *Registry) addCommand(n *xmlquery.Node) error {
	proto := n.SelectElement("proto")
	if proto == nil || proto.SelectElement("name") == nil {
		return errors.Wrap(ErrSchema, "Command with no <proto><name>")
	}
	c := &CmdInfo{
		Name:   proto.SelectElement("name").InnerText(),
		API:    n.SelectAttr("api"),
		Queues: n.SelectAttr("queues"),
	}
	if t := proto.SelectElement("type"); t != nil {
		c.ReturnType = t.InnerText()
	}
	if s := n.SelectAttr("successcodes"); s != "" {
		c.SuccessCodes = strings.Split(s, ",")
	}
	if s := n.SelectAttr("errorcodes"); s != "" {
		c.ErrorCodes = strings.Split(s, ",")
	}
	for _, p := range n.SelectElements("param") {
		if !r.apiMatches(p.SelectAttr("api")) {
			continue
		}
		m, err := parseMember(p)
		if err != nil {
			return errors.Wrapf(err, "In %v", c.Name)
		}
		c.Params = append(c.Params, m)
	}
	if _, dup := r.Commands[c.Name]; dup {
		return errors.Wrapf(ErrSchema, "Redefinition of command %v", c.Name)
	}
	r.Commands[c.Name] = c
	r.CommandOrder = append(r.CommandOrder, c.Name)
	return nil
}

// addCommandAlias adds a deep copy of the aliased command under the new name.
func (r *Registry) addCommandAlias(n *xmlquery.Node) error {
	name, target := n.SelectAttr("name"), n.SelectAttr("alias")
	base, ok := r.Commands[target]
	if !ok {
		return errors.Wrapf(ErrSchema, "Command %v aliases unknown command %v", name, target)
	}
	if _, dup := r.Commands[name]; dup {
		return errors.Wrapf(ErrSchema, "Redefinition of command %v", name)
	}
	c := *base
	c.Name, c.Alias = name, target
	c.Required, c.Declared, c.RequiredBy = false, false, ""
	c.Params = make([]*Member, len(base.Params))
	for i, p := range base.Params {
		c.Params[i] = p.Clone()
	}
	c.SuccessCodes = append([]string(nil), base.SuccessCodes...)
	c.ErrorCodes = append([]string(nil), base.ErrorCodes...)
	r.Commands[name] = &c
	r.CommandOrder = append(r.CommandOrder, name)
	return nil
}

// Deps returns every type referenced by the command's prototype.
func (c *CmdInfo) Deps() []string {
	deps := []string{}
	if c.ReturnType != "" {
		deps = append(deps, c.ReturnType)
	}
	for _, p := range c.Params {
		deps = appendUnique(deps, p.TypeName)
	}
	return deps
}

func appendUnique(list []string, s string) []string {
	for _, e := range list {
		if e == s {
			return list
		}
	}
	return append(list, s)
}
