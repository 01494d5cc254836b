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

// Package filter implements the small s-expression language used by the
// registry to decide whether a member is present on the wire.
//
// An expression is an integer literal, a variable name or a call:
//
//	(if pRasterizationState (eq (getfield pRasterizationState rasterizerDiscardEnable) 0) 1)
//
// Expressions are either compiled to C for the generated codecs or evaluated
// directly by the reference wire codec.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gfxcodegen/core/fault"
	"github.com/pkg/errors"
)

// ErrSyntax is returned for malformed expressions.
const ErrSyntax = fault.Const("Filter syntax error")

// Node is a node of a parsed expression.
type Node interface {
	fmt.Stringer
	isNode()
}

// Atom is a variable reference.
type Atom string

// Literal is an integer constant.
type Literal int64

// Call is an operator or function application.
type Call struct {
	Op   string
	Args []Node
}

// Lambda is an anonymous function of integer parameters.
type Lambda struct {
	Params []string
	Body   Node
}

func (Atom) isNode()    {}
func (Literal) isNode() {}
func (*Call) isNode()   {}
func (*Lambda) isNode() {}

func (a Atom) String() string    { return string(a) }
func (l Literal) String() string { return strconv.FormatInt(int64(l), 10) }

func (c *Call) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Op)
	for _, a := range c.Args {
		parts = append(parts, a.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (l *Lambda) String() string {
	return fmt.Sprintf("(lambda (%v) %v)", strings.Join(l.Params, " "), l.Body)
}

// Parse parses a single expression.
func Parse(src string) (Node, error) {
	p := &parser{src: src}
	p.skip()
	if p.eof() {
		return nil, errors.Wrap(ErrSyntax, "empty expression")
	}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skip()
	if !p.eof() {
		return nil, p.errorf("unexpected input %q", p.src[p.pos:])
	}
	return n, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) skip() {
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) errorf(msg string, args ...interface{}) error {
	return errors.Wrapf(ErrSyntax, "%v at offset %d in %q", fmt.Sprintf(msg, args...), p.pos, p.src)
}

func (p *parser) expr() (Node, error) {
	p.skip()
	switch {
	case p.eof():
		return nil, p.errorf("unexpected end of expression")
	case p.src[p.pos] == ')':
		return nil, p.errorf("unexpected ')'")
	case p.src[p.pos] == '(':
		return p.list()
	}
	tok := p.token()
	if v, err := strconv.ParseInt(tok, 0, 64); err == nil {
		return Literal(v), nil
	}
	if c := tok[0]; c == '-' || (c >= '0' && c <= '9') {
		return nil, p.errorf("bad number %q", tok)
	}
	return Atom(tok), nil
}

func (p *parser) token() string {
	start := p.pos
	for !p.eof() && !isSpace(p.src[p.pos]) && p.src[p.pos] != '(' && p.src[p.pos] != ')' {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) list() (Node, error) {
	p.pos++ // '('
	p.skip()
	if p.eof() || p.src[p.pos] == '(' || p.src[p.pos] == ')' {
		return nil, p.errorf("expected operator")
	}
	op := p.token()
	if op == "lambda" {
		return p.lambda()
	}
	call := &Call{Op: op}
	for {
		p.skip()
		if p.eof() {
			return nil, p.errorf("missing ')'")
		}
		if p.src[p.pos] == ')' {
			p.pos++
			return call, nil
		}
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
	}
}

func (p *parser) lambda() (Node, error) {
	p.skip()
	if p.eof() || p.src[p.pos] != '(' {
		return nil, p.errorf("expected lambda parameter list")
	}
	p.pos++
	l := &Lambda{}
	for {
		p.skip()
		if p.eof() {
			return nil, p.errorf("missing ')'")
		}
		if p.src[p.pos] == ')' {
			p.pos++
			break
		}
		if p.src[p.pos] == '(' {
			return nil, p.errorf("lambda parameters must be names")
		}
		l.Params = append(l.Params, p.token())
	}
	body, err := p.expr()
	if err != nil {
		return nil, err
	}
	l.Body = body
	p.skip()
	if p.eof() || p.src[p.pos] != ')' {
		return nil, p.errorf("missing ')'")
	}
	p.pos++
	return l, nil
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// FreeVars returns the free variables of n in first-use order.
func FreeVars(n Node) []string {
	out := []string{}
	seen := map[string]bool{}
	var walk func(n Node, bound map[string]bool)
	walk = func(n Node, bound map[string]bool) {
		switch n := n.(type) {
		case Atom:
			if name := string(n); !bound[name] && !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		case *Call:
			for i, a := range n.Args {
				if n.Op == "getfield" && i == 1 {
					continue
				}
				walk(a, bound)
			}
		case *Lambda:
			inner := map[string]bool{}
			for k := range bound {
				inner[k] = true
			}
			for _, p := range n.Params {
				inner[p] = true
			}
			walk(n.Body, inner)
		}
	}
	walk(n, map[string]bool{})
	return out
}
