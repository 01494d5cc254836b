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

package filter

import (
	"github.com/pkg/errors"
)

// Scope resolves the free variables of an expression during evaluation.
type Scope interface {
	Lookup(name string) (interface{}, bool)
}

// Fielder is implemented by values that support getfield.
type Fielder interface {
	Field(name string) (interface{}, bool)
}

// Func is a callable value. Lambdas evaluate to a Func.
type Func func(args ...interface{}) (interface{}, error)

// Vars is a Scope backed by a map.
type Vars map[string]interface{}

// Lookup implements Scope.
func (v Vars) Lookup(name string) (interface{}, bool) {
	out, ok := v[name]
	return out, ok
}

type chain struct {
	inner Vars
	outer Scope
}

func (c chain) Lookup(name string) (interface{}, bool) {
	if v, ok := c.inner[name]; ok {
		return v, true
	}
	return c.outer.Lookup(name)
}

// Eval evaluates n in scope. Integers evaluate to uint64, comparisons to 0
// or 1.
func Eval(n Node, scope Scope) (interface{}, error) {
	switch n := n.(type) {
	case Literal:
		return uint64(n), nil
	case Atom:
		v, ok := scope.Lookup(string(n))
		if !ok {
			return nil, errors.Errorf("Undefined variable %v", n)
		}
		return v, nil
	case *Lambda:
		return Func(func(args ...interface{}) (interface{}, error) {
			if len(args) != len(n.Params) {
				return nil, errors.Errorf("Lambda expects %d arguments, got %d", len(n.Params), len(args))
			}
			locals := Vars{}
			for i, p := range n.Params {
				locals[p] = args[i]
			}
			return Eval(n.Body, chain{locals, scope})
		}), nil
	case *Call:
		return evalCall(n, scope)
	}
	return nil, errors.Errorf("Unexpected node %T", n)
}

// Truthy evaluates n and reports whether the result is non-zero.
func Truthy(n Node, scope Scope) (bool, error) {
	v, err := Eval(n, scope)
	if err != nil {
		return false, err
	}
	return IsTrue(v), nil
}

// IsTrue returns the truth value of an evaluated value. Null pointers and
// zero are false.
func IsTrue(v interface{}) bool {
	if v == nil {
		return false
	}
	if i, ok := ToInt(v); ok {
		return i != 0
	}
	return true
}

// ToInt converts an evaluated value to an integer.
func ToInt(v interface{}) (uint64, bool) {
	switch v := v.(type) {
	case uint64:
		return v, true
	case uint32:
		return uint64(v), true
	case int64:
		return uint64(v), true
	case int:
		return uint64(v), true
	case bool:
		return boolean(v), true
	}
	return 0, false
}

func boolean(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func evalCall(n *Call, scope Scope) (interface{}, error) {
	switch n.Op {
	case "if":
		if err := arity(n, 3); err != nil {
			return nil, err
		}
		cond, err := Truthy(n.Args[0], scope)
		if err != nil {
			return nil, err
		}
		if cond {
			return Eval(n.Args[1], scope)
		}
		return Eval(n.Args[2], scope)
	case "and", "or":
		want := n.Op == "or"
		for _, a := range n.Args {
			t, err := Truthy(a, scope)
			if err != nil {
				return nil, err
			}
			if t == want {
				return boolean(want), nil
			}
		}
		return boolean(!want), nil
	case "getfield":
		if err := arity(n, 2); err != nil {
			return nil, err
		}
		field, ok := n.Args[1].(Atom)
		if !ok {
			return nil, errors.Wrapf(ErrSyntax, "getfield expects a field name, got %v", n.Args[1])
		}
		base, err := Eval(n.Args[0], scope)
		if err != nil {
			return nil, err
		}
		f, ok := base.(Fielder)
		if !ok {
			return nil, errors.Errorf("getfield %v on non-struct value %v", field, base)
		}
		v, ok := f.Field(string(field))
		if !ok {
			return nil, errors.Errorf("No field %v", field)
		}
		return v, nil
	}

	args := make([]interface{}, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, scope)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	ints := func(want int) ([]uint64, error) {
		if err := arity(n, want); err != nil {
			return nil, err
		}
		out := make([]uint64, want)
		for i, a := range args {
			v, ok := ToInt(a)
			if !ok {
				return nil, errors.Errorf("%v expects integers, got %v", n.Op, a)
			}
			out[i] = v
		}
		return out, nil
	}
	switch n.Op {
	case "not":
		if err := arity(n, 1); err != nil {
			return nil, err
		}
		return boolean(!IsTrue(args[0])), nil
	case "eq":
		v, err := ints(2)
		if err != nil {
			return nil, err
		}
		return boolean(v[0] == v[1]), nil
	case "bitwise_and":
		v, err := ints(2)
		if err != nil {
			return nil, err
		}
		return v[0] & v[1], nil
	}
	fn, ok := scope.Lookup(n.Op)
	if !ok {
		return nil, errors.Errorf("Undefined function %v", n.Op)
	}
	f, ok := fn.(Func)
	if !ok {
		return nil, errors.Errorf("%v is not callable", n.Op)
	}
	return f(args...)
}
