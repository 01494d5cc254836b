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

// Package flags binds command line flags to tagged struct fields.
//
// Every exported field of a bound struct becomes a flag named after the field
// in lower case, unless overridden with a `name:"..."` tag. The `help:"..."`
// tag supplies the usage string; usage strings starting with '_' are hidden
// unless full help is requested.
package flags

import (
	"flag"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// FullHelpFlag is the name of the flag that shows hidden flags in usage.
const FullHelpFlag = "fullhelp"

// Set is a set of bound flags.
type Set struct {
	Raw flag.FlagSet
}

// Bind adds value to the flag set. Pointers to basic types, flag.Value,
// Choosable, Enum and slices are bound as one flag named name; pointers to
// structs bind every exported field with name as the prefix.
func (s *Set) Bind(name string, value interface{}, help string) {
	switch val := value.(type) {
	case *bool:
		s.Raw.BoolVar(val, name, *val, help)
	case *int:
		s.Raw.IntVar(val, name, *val, help)
	case *int64:
		s.Raw.Int64Var(val, name, *val, help)
	case *uint:
		s.Raw.UintVar(val, name, *val, help)
	case *uint64:
		s.Raw.Uint64Var(val, name, *val, help)
	case *float64:
		s.Raw.Float64Var(val, name, *val, help)
	case *string:
		s.Raw.StringVar(val, name, *val, help)
	case *time.Duration:
		s.Raw.DurationVar(val, name, *val, help)
	case Choosable:
		chooser := val.Chooser()
		s.Raw.Var(chooser, name, fmt.Sprintf("%s [one of: %s]", help, chooser.Choices))
	case Enum:
		chooser := ForEnum(val)
		s.Raw.Var(chooser, name, fmt.Sprintf("%s [one of: %s]", help, chooser.Choices))
	case flag.Value:
		s.Raw.Var(val, name, help)
	default:
		s.bindReflect(name, reflect.ValueOf(value), help)
	}
}

func (s *Set) bindReflect(name string, rv reflect.Value, help string) {
	if rv.Kind() != reflect.Ptr {
		panic(fmt.Sprintf("Flag value not a pointer: %v", rv.Type()))
	}
	switch e := rv.Elem(); e.Kind() {
	case reflect.Slice:
		s.Raw.Var(newRepeatedFlag(e), name, help)
	case reflect.Struct:
		t := e.Type()
		for i := 0; i < e.NumField(); i++ {
			tf := t.Field(i)
			if tf.PkgPath != "" {
				continue
			}
			fname := strings.ToLower(tf.Name)
			if tf.Anonymous {
				fname = ""
			}
			if partial := tf.Tag.Get("name"); partial != "" {
				fname = partial
			}
			full := tf.Tag.Get("fullname")
			switch {
			case full != "":
			case fname == "":
				full = name
			case name == "":
				full = fname
			default:
				full = name + "-" + fname
			}
			s.Bind(full, e.Field(i).Addr().Interface(), tf.Tag.Get("help"))
		}
	default:
		panic(fmt.Sprintf("Unhandled flag type: %v", rv.Type()))
	}
}

// Parse parses args, registering the full help flag if fullHelp is not nil.
func (s *Set) Parse(fullHelp *bool, args ...string) error {
	if fullHelp != nil && s.Raw.Lookup(FullHelpFlag) == nil {
		s.Raw.BoolVar(fullHelp, FullHelpFlag, *fullHelp, "")
	}
	return s.Raw.Parse(args)
}

// Args returns the non-flag arguments left after parsing.
func (s *Set) Args() []string { return s.Raw.Args() }

// Visited reports whether the named flag was set on the command line.
func (s *Set) Visited(name string) bool {
	found := false
	s.Raw.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// HasVisibleFlags returns true if any flag would be listed by Usage.
func (s *Set) HasVisibleFlags(verbose bool) bool {
	result := false
	s.Raw.VisitAll(func(f *flag.Flag) {
		if _, _, hidden := flagUsage(f, verbose); !hidden {
			result = true
		}
	})
	return result
}

func flagUsage(f *flag.Flag, verbose bool) (string, string, bool) {
	name, usage := flag.UnquoteUsage(f)
	hide := f.Name == FullHelpFlag
	if !strings.HasPrefix(usage, "_") {
		return name, usage, hide
	}
	return name, usage[1:], hide || !verbose
}

// Usage returns the formatted list of visible flags.
func (s *Set) Usage(verbose bool) string {
	lines := []string{}
	s.Raw.VisitAll(func(fl *flag.Flag) {
		name, usage, hidden := flagUsage(fl, verbose)
		if hidden {
			return
		}
		line := fmt.Sprintf("  -%s %s\n\t%s", fl.Name, name, usage)
		switch fl.DefValue {
		case "", "false", "0", "[]":
		default:
			line += fmt.Sprintf(" (default %v)", fl.DefValue)
		}
		lines = append(lines, line)
	})
	return strings.Join(lines, "\n")
}
