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

package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/google/gfxcodegen/core/app/flags"
)

// Verb holds information about a runnable command.
type Verb struct {
	Name       string    // The name of the command
	Action     Action    // The action for the command; its fields are bound as flags
	ShortHelp  string    // Help for the purpose of the command
	ShortUsage string    // Help for how to use the command
	Flags      flags.Set // The command line flags it accepts
	verbs      []*Verb
	selected   *Verb
}

// Action is the interface implemented by verb actions.
type Action interface {
	// Run performs the verb with the remaining non-flag arguments in flags.
	Run(ctx context.Context, flags flag.FlagSet) error
}

var globalVerbs Verb

// Add adds a new child verb, it will panic if a duplicate name is
// encountered.
func (v *Verb) Add(child *Verb) {
	if child.Action != nil {
		child.Flags.Raw.Init(child.Name, flag.ContinueOnError)
		child.Flags.Raw.Usage = func() {}
		child.Flags.Raw.SetOutput(io.Discard)
		child.Flags.Bind("", child.Action, "")
	}
	for _, existing := range v.verbs {
		if existing.Name == child.Name {
			panic(fmt.Errorf("Duplicate verb name %s", child.Name))
		}
	}
	v.verbs = append(v.verbs, child)
}

// Filter returns the verbs whose names start with prefix. An exact name
// match always wins over prefix matches.
func (v *Verb) Filter(prefix string) (result []*Verb) {
	for _, child := range v.verbs {
		if child.Name == prefix {
			return []*Verb{child}
		}
		if strings.HasPrefix(child.Name, prefix) {
			result = append(result, child)
		}
	}
	return result
}

// Invoke runs a verb, handing it the command line arguments it should process.
func (v *Verb) Invoke(ctx context.Context, args []string) error {
	if len(args) < 1 {
		Usage(ctx, "Must supply a verb to %s", v.Name)
		return nil
	}
	verb := args[0]
	matches := v.Filter(verb)
	switch len(matches) {
	case 1:
		v.selected = matches[0]
		fullHelp := false
		if err := v.selected.Flags.Parse(&fullHelp, args[1:]...); err != nil {
			if err == flag.ErrHelp {
				usage(ctx, "", fullHelp)
				panic(SuccessExit)
			}
			Usage(ctx, "%v", err)
		}
		if v.selected.Action == nil {
			return v.selected.Invoke(ctx, v.selected.Flags.Args())
		}
		return v.selected.Action.Run(ctx, v.selected.Flags.Raw)
	case 0:
		if verb == "help" {
			autoHelp(ctx, args[1:]...)
		} else {
			Usage(ctx, "Verb '%s' is unknown", verb)
		}
	default:
		Usage(ctx, "Verb '%s' is ambiguous", verb)
	}
	return nil
}

// AddVerb adds a new verb to the application, it will panic if a
// duplicate name is encountered.
func AddVerb(v *Verb) {
	globalVerbs.Add(v)
}

// FilterVerbs returns the application verbs whose names match the
// specified prefix.
func FilterVerbs(prefix string) []*Verb {
	return globalVerbs.Filter(prefix)
}

// VerbMain is a task that can be handed to Run to invoke the verb handling
// system.
func VerbMain(ctx context.Context) error {
	return globalVerbs.Invoke(ctx, globalVerbs.Flags.Args())
}
