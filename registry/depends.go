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

	"github.com/pkg/errors"
)

// evalDepends evaluates a dependency expression such as
// "VK_KHR_a+(VK_KHR_b,VK_VERSION_1_1)". ',' is logical or, '+' is logical
// and and binds tighter. An empty expression is satisfied.
func evalDepends(expr string, has func(string) bool) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return true, nil
	}
	p := dependsParser{src: expr, has: has}
	v, err := p.or()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.src) {
		return false, errors.Wrapf(ErrSchema, "Trailing text in depends %q", expr)
	}
	return v, nil
}

type dependsParser struct {
	src string
	pos int
	has func(string) bool
}

func (p *dependsParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *dependsParser) or() (bool, error) {
	v, err := p.and()
	for err == nil && p.peek() == ',' {
		p.pos++
		var rhs bool
		rhs, err = p.and()
		v = v || rhs
	}
	return v, err
}

func (p *dependsParser) and() (bool, error) {
	v, err := p.term()
	for err == nil && p.peek() == '+' {
		p.pos++
		var rhs bool
		rhs, err = p.term()
		v = v && rhs
	}
	return v, err
}

func (p *dependsParser) term() (bool, error) {
	if p.peek() == '(' {
		p.pos++
		v, err := p.or()
		if err != nil {
			return false, err
		}
		if p.peek() != ')' {
			return false, errors.Wrapf(ErrSchema, "Unbalanced parentheses in depends %q", p.src)
		}
		p.pos++
		return v, nil
	}
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("+,()", rune(p.src[p.pos])) {
		p.pos++
	}
	name := strings.TrimSpace(p.src[start:p.pos])
	if name == "" {
		return false, errors.Wrapf(ErrSchema, "Empty term in depends %q", p.src)
	}
	return p.has(name), nil
}
