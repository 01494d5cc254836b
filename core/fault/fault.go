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

// Package fault provides sentinel error values and error collections.
package fault

import (
	"fmt"
	"strings"
)

// Const is the type for constant error values.
type Const string

// Error implements error for Const returning the string value of the const.
func (e Const) Error() string { return string(e) }

// List collects every error reported to it. Generators report all
// diagnostics of a pass before failing, so a List is usually built up and
// then returned through Err.
type List []error

// Collect adds an error to the list. nil errors are ignored.
func (l *List) Collect(err error) {
	if err != nil {
		*l = append(*l, err)
	}
}

// First returns the first error added to the list.
func (l List) First() error {
	if len(l) == 0 {
		return nil
	}
	return l[0]
}

// Err returns nil for an empty list, the sole error for a list of one, and the
// list itself otherwise.
func (l List) Err() error {
	switch len(l) {
	case 0:
		return nil
	case 1:
		return l[0]
	default:
		return l
	}
}

func (l List) Error() string {
	parts := make([]string, len(l))
	for i, err := range l {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%d errors:\n  %s", len(l), strings.Join(parts, "\n  "))
}

// Cause returns the first error, so errors.Cause on a list reaches the first
// sentinel.
func (l List) Cause() error { return l.First() }

// One collects only the first error reported to it.
type One struct{ err error }

// Collect records err if no error has been recorded yet.
func (o *One) Collect(err error) {
	if o.err == nil {
		o.err = err
	}
}

// First returns the first error added to it.
func (o *One) First() error { return o.err }
