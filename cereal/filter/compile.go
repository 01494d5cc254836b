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
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Resolver maps a free variable to its C expression.
type Resolver func(name string) string

// Compile returns the C expression for n. Free variables are rewritten by
// resolve. Lambdas become captureless C++ lambdas over uint32_t.
func Compile(n Node, resolve Resolver) (string, error) {
	c := compiler{resolve: resolve, bound: map[string]bool{}}
	return c.compile(n)
}

// CompileString parses and compiles src.
func CompileString(src string, resolve Resolver) (string, error) {
	n, err := Parse(src)
	if err != nil {
		return "", err
	}
	return Compile(n, resolve)
}

type compiler struct {
	resolve Resolver
	bound   map[string]bool
}

func (c compiler) compile(n Node) (string, error) {
	switch n := n.(type) {
	case Literal:
		return n.String(), nil
	case Atom:
		name := string(n)
		if c.bound[name] || c.resolve == nil {
			return name, nil
		}
		if expr := c.resolve(name); expr != "" {
			return expr, nil
		}
		return name, nil
	case *Lambda:
		inner := compiler{resolve: c.resolve, bound: map[string]bool{}}
		for k := range c.bound {
			inner.bound[k] = true
		}
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			inner.bound[p] = true
			params[i] = "uint32_t " + p
		}
		body, err := inner.compile(n.Body)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("[](%v) { return %v; }", strings.Join(params, ", "), body), nil
	case *Call:
		return c.call(n)
	}
	return "", errors.Wrapf(ErrSyntax, "unexpected node %T", n)
}

func (c compiler) args(n *Call) ([]string, error) {
	out := make([]string, len(n.Args))
	for i, a := range n.Args {
		s, err := c.compile(a)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func arity(n *Call, want int) error {
	if len(n.Args) != want {
		return errors.Wrapf(ErrSyntax, "%v expects %d arguments, got %d", n.Op, want, len(n.Args))
	}
	return nil
}

func (c compiler) call(n *Call) (string, error) {
	switch n.Op {
	case "getfield":
		if err := arity(n, 2); err != nil {
			return "", err
		}
		field, ok := n.Args[1].(Atom)
		if !ok {
			return "", errors.Wrapf(ErrSyntax, "getfield expects a field name, got %v", n.Args[1])
		}
		base, err := c.compile(n.Args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%v)->%v", base, field), nil
	}

	args, err := c.args(n)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "not":
		if err := arity(n, 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("(!(%v))", args[0]), nil
	case "eq":
		if err := arity(n, 2); err != nil {
			return "", err
		}
		return fmt.Sprintf("((%v) == (%v))", args[0], args[1]), nil
	case "bitwise_and":
		if err := arity(n, 2); err != nil {
			return "", err
		}
		return fmt.Sprintf("((%v) & (%v))", args[0], args[1]), nil
	case "and", "or":
		if len(args) == 0 {
			return "", errors.Wrapf(ErrSyntax, "%v expects arguments", n.Op)
		}
		op := " && "
		if n.Op == "or" {
			op = " || "
		}
		for i, a := range args {
			args[i] = "(" + a + ")"
		}
		return "(" + strings.Join(args, op) + ")", nil
	case "if":
		if err := arity(n, 3); err != nil {
			return "", err
		}
		return fmt.Sprintf("((%v) ? (%v) : (%v))", args[0], args[1], args[2]), nil
	}
	fn := n.Op
	if c.resolve != nil && !c.bound[fn] {
		if expr := c.resolve(fn); expr != "" {
			fn = expr
		}
	}
	return fmt.Sprintf("%v(%v)", fn, strings.Join(args, ", ")), nil
}
