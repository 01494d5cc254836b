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

// Package iterate walks a member or parameter of the Vulkan type graph and
// dispatches on its leaf kind.
package iterate

import (
	"fmt"

	"github.com/google/gfxcodegen/cereal/types"
	"github.com/pkg/errors"
)

// Kind is the leaf category of a member.
type Kind int

const (
	// Refused is a declaration the visitors cannot stream.
	Refused Kind = iota
	Compound
	String
	StringArray
	StaticArr
	StructExtension
	Pointer
	Value
)

var kindNames = map[Kind]string{
	Refused:         "Refused",
	Compound:        "Compound",
	String:          "String",
	StringArray:     "StringArray",
	StaticArr:       "StaticArr",
	StructExtension: "StructExtension",
	Pointer:         "Pointer",
	Value:           "Value",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Visitor receives the callbacks of Iterate. Each callback emits the code
// for one member and returns an error to abort the walk.
type Visitor interface {
	// OnCheck and EndCheck bracket an optional pointer with a null guard.
	OnCheck(t *types.VulkanType) error
	EndCheck(t *types.VulkanType) error

	// The three NullOptionalStringFeature callbacks bracket a string whose
	// nullability depends on the negotiated stream features. OnString is
	// called once between the first two and once between the last two.
	OnCheckWithNullOptionalStringFeature(t *types.VulkanType) error
	EndCheckWithNullOptionalStringFeature(t *types.VulkanType) error
	FinalCheckWithNullOptionalStringFeature(t *types.VulkanType) error

	OnCompoundType(t *types.VulkanType) error
	OnString(t *types.VulkanType) error
	OnStringArray(t *types.VulkanType) error
	OnStaticArr(t *types.VulkanType) error
	OnStructExtension(t *types.VulkanType) error
	OnPointer(t *types.VulkanType) error
	OnValue(t *types.VulkanType) error
}

// Classify returns the leaf kind of t.
func Classify(info *types.Info, t *types.VulkanType) Kind {
	switch {
	case t.PointerToConstPointer && !t.IsArrayOfStrings():
		return Refused
	case info.IsCompoundType(t.TypeName) && !t.IsNextPointer():
		return Compound
	case t.IsString():
		return String
	case t.IsArrayOfStrings():
		return StringArray
	case t.IsStaticArray():
		return StaticArr
	case t.IsNextPointer():
		return StructExtension
	case t.IsPointer():
		return Pointer
	}
	return Value
}

// Iterate dispatches t to v. It returns false if the declaration was
// refused, along with an error naming it.
func Iterate(info *types.Info, t *types.VulkanType, v Visitor) (bool, error) {
	kind := Classify(info, t)
	if kind == Refused {
		return false, errors.Wrapf(types.ErrUnsupported, "%v.%v: pointer to const pointer of %v", t.Parent, t.ParamName, t.TypeName)
	}
	check := t.IsOptionalPointer()
	wrap := func(call func(*types.VulkanType) error) error {
		if !check {
			return call(t)
		}
		if err := v.OnCheck(t); err != nil {
			return err
		}
		if err := call(t); err != nil {
			return err
		}
		return v.EndCheck(t)
	}
	var err error
	switch kind {
	case Compound:
		err = wrap(v.OnCompoundType)
	case String:
		if check && t.HasNullOptionalStringFeature() {
			err = first(
				func() error { return v.OnCheckWithNullOptionalStringFeature(t) },
				func() error { return v.OnString(t) },
				func() error { return v.EndCheckWithNullOptionalStringFeature(t) },
				func() error { return v.OnString(t) },
				func() error { return v.FinalCheckWithNullOptionalStringFeature(t) },
			)
		} else {
			err = wrap(v.OnString)
		}
	case StringArray:
		err = v.OnStringArray(t)
	case StaticArr:
		err = v.OnStaticArr(t)
	case StructExtension:
		err = v.OnStructExtension(t)
	case Pointer:
		err = wrap(v.OnPointer)
	default:
		err = v.OnValue(t)
	}
	return err == nil, err
}

func first(calls ...func() error) error {
	for _, c := range calls {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}

// Base implements every Visitor callback as a no-op.
type Base struct{}

func (Base) OnCheck(t *types.VulkanType) error                                 { return nil }
func (Base) EndCheck(t *types.VulkanType) error                                { return nil }
func (Base) OnCheckWithNullOptionalStringFeature(t *types.VulkanType) error    { return nil }
func (Base) EndCheckWithNullOptionalStringFeature(t *types.VulkanType) error   { return nil }
func (Base) FinalCheckWithNullOptionalStringFeature(t *types.VulkanType) error { return nil }
func (Base) OnCompoundType(t *types.VulkanType) error                          { return nil }
func (Base) OnString(t *types.VulkanType) error                                { return nil }
func (Base) OnStringArray(t *types.VulkanType) error                           { return nil }
func (Base) OnStaticArr(t *types.VulkanType) error                             { return nil }
func (Base) OnStructExtension(t *types.VulkanType) error                       { return nil }
func (Base) OnPointer(t *types.VulkanType) error                               { return nil }
func (Base) OnValue(t *types.VulkanType) error                                 { return nil }
