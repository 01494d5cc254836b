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

// Package compare provides deep comparison of values with a description of
// every difference found.
package compare

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

// Missing is the placeholder printed when one side lacks an element.
const Missing = missing("<missing>")

type missing string

func (m missing) String() string { return string(m) }

// Difference is a single mismatch located by its path from the root.
type Difference struct {
	Path      Path
	Reference interface{}
	Value     interface{}
}

func (d Difference) String() string {
	return fmt.Sprintf("%v: %v != %v", d.Path, d.Reference, d.Value)
}

// Path is the location of a value within the compared structure.
type Path []string

func (p Path) String() string {
	if len(p) == 0 {
		return "⊤"
	}
	return strings.Join(p, "")
}

func (p Path) with(s string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = s
	return out
}

// Comparator walks two values and reports differences to Handler.
type Comparator struct {
	Path    Path
	Handler func(Difference)
	seen    map[seenKey]bool
}

type seenKey struct {
	typ        reflect.Type
	addr1, ptr uintptr
}

// Compare walks reference and value, reporting every difference.
func (c Comparator) Compare(reference, value interface{}) {
	if c.seen == nil {
		c.seen = map[seenKey]bool{}
	}
	switch {
	case reference == nil && value == nil:
		return
	case reference == nil || value == nil:
		c.Handler(Difference{c.Path, reference, value})
		return
	}
	c.compare(reflect.ValueOf(reference), reflect.ValueOf(value))
}

func (c Comparator) at(s string) Comparator {
	c.Path = c.Path.with(s)
	return c
}

func (c Comparator) diff(v1, v2 interface{}) {
	c.Handler(Difference{c.Path, v1, v2})
}

func value(v reflect.Value) interface{} {
	if v.IsValid() && v.CanInterface() {
		return v.Interface()
	}
	return v
}

func (c Comparator) compare(v1, v2 reflect.Value) {
	if v1.Type() != v2.Type() {
		c.diff(v1.Type(), v2.Type())
		return
	}
	switch v1.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		switch {
		case v1.IsNil() && v2.IsNil():
			return
		case v1.IsNil() || v2.IsNil():
			c.diff(value(v1), value(v2))
			return
		}
	}
	switch v1.Kind() {
	case reflect.Ptr:
		key := seenKey{v1.Type(), v1.Pointer(), v2.Pointer()}
		if c.seen[key] {
			return
		}
		c.seen[key] = true
		c.compare(v1.Elem(), v2.Elem())
	case reflect.Interface:
		c.compare(v1.Elem(), v2.Elem())
	case reflect.Array, reflect.Slice:
		n := v1.Len()
		if v2.Len() < n {
			n = v2.Len()
		}
		for i := 0; i < n; i++ {
			c.at(fmt.Sprintf("[%d]", i)).compare(v1.Index(i), v2.Index(i))
		}
		for i := n; i < v1.Len(); i++ {
			c.at(fmt.Sprintf("[%d]", i)).diff(value(v1.Index(i)), Missing)
		}
		for i := n; i < v2.Len(); i++ {
			c.at(fmt.Sprintf("[%d]", i)).diff(Missing, value(v2.Index(i)))
		}
	case reflect.Map:
		for _, k := range v1.MapKeys() {
			e2 := v2.MapIndex(k)
			p := c.at(fmt.Sprintf("[%v]", k))
			if !e2.IsValid() {
				p.diff(value(v1.MapIndex(k)), Missing)
				continue
			}
			p.compare(v1.MapIndex(k), e2)
		}
		for _, k := range v2.MapKeys() {
			if !v1.MapIndex(k).IsValid() {
				c.at(fmt.Sprintf("[%v]", k)).diff(Missing, value(v2.MapIndex(k)))
			}
		}
	case reflect.Struct:
		t := v1.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				c.at("."+f.Name).compare(exposed(v1, i), exposed(v2, i))
				continue
			}
			c.at("."+f.Name).compare(v1.Field(i), v2.Field(i))
		}
	case reflect.Func:
		if v1.Pointer() != v2.Pointer() {
			c.diff(value(v1), value(v2))
		}
	default:
		if !reflect.DeepEqual(value(v1), value(v2)) {
			c.diff(value(v1), value(v2))
		}
	}
}

// exposed returns the i'th field of the struct v, readable even when the
// field is unexported.
func exposed(v reflect.Value, i int) reflect.Value {
	if !v.CanAddr() {
		cp := reflect.New(v.Type()).Elem()
		cp.Set(v)
		v = cp
	}
	f := v.Field(i)
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
}

// DeepEqual returns true if reference and value are deeply equal.
func DeepEqual(reference, value interface{}) bool {
	equal := true
	Comparator{Handler: func(Difference) { equal = false }}.Compare(reference, value)
	return equal
}

// Diff returns up to limit differences between reference and value.
func Diff(reference, value interface{}, limit int) []Difference {
	out := []Difference{}
	func() {
		defer func() {
			if r := recover(); r != nil && r != errLimit {
				panic(r)
			}
		}()
		Comparator{Handler: func(d Difference) {
			out = append(out, d)
			if len(out) >= limit {
				panic(errLimit)
			}
		}}.Compare(reference, value)
	}()
	return out
}

var errLimit = fmt.Errorf("difference limit reached")
