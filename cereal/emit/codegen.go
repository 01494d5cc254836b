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

// Package emit holds the C++ text emitter shared by the cereal visitors.
package emit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/core/text/reflow"
)

// CodeGen accumulates indented C++ source. Blocks open with their brace on
// a line of its own, matching the style of the hand written runtime.
type CodeGen struct {
	buf  *bytes.Buffer
	out  *reflow.Writer
	vars int
}

// New returns an empty CodeGen.
func New() *CodeGen {
	buf := &bytes.Buffer{}
	return &CodeGen{buf: buf, out: reflow.New(buf)}
}

// Line writes a single formatted line.
func (g *CodeGen) Line(format string, args ...interface{}) {
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	g.out.Line(format)
}

// Stmt writes a formatted statement terminated by a semicolon.
func (g *CodeGen) Stmt(format string, args ...interface{}) {
	g.Line(format+";", args...)
}

// Text writes multi-line text, indenting every line.
func (g *CodeGen) Text(text string) {
	for _, l := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		g.out.Line(l)
	}
}

// Blank writes an empty line.
func (g *CodeGen) Blank() { g.out.Line("") }

// Var returns a fresh local variable name.
func (g *CodeGen) Var() string { return g.VarWithPrefix("cgen_var") }

// VarWithPrefix returns a fresh local variable name starting with prefix.
func (g *CodeGen) VarWithPrefix(prefix string) string {
	name := fmt.Sprintf("%s_%d", prefix, g.vars)
	g.vars++
	return name
}

// BeginBlock opens a brace scope.
func (g *CodeGen) BeginBlock() {
	g.out.Line("{")
	g.out.Increase()
}

// EndBlock closes a brace scope.
func (g *CodeGen) EndBlock() {
	g.out.Decrease()
	g.out.Line("}")
}

// Indent increases the indentation without opening a scope, for
// initializer lists.
func (g *CodeGen) Indent() { g.out.Increase() }

// Dedent undoes Indent.
func (g *CodeGen) Dedent() { g.out.Decrease() }

// EndBlockWith closes a brace scope followed by suffix, e.g. ";" for a
// struct.
func (g *CodeGen) EndBlockWith(suffix string) {
	g.out.Decrease()
	g.out.Line("}" + suffix)
}

// BeginIf opens an if scope on a formatted condition.
func (g *CodeGen) BeginIf(cond string, args ...interface{}) {
	g.Line("if ("+cond+")", args...)
	g.BeginBlock()
}

// BeginElseIf closes the current branch and opens an else-if scope.
func (g *CodeGen) BeginElseIf(cond string, args ...interface{}) {
	g.EndBlock()
	g.Line("else if ("+cond+")", args...)
	g.BeginBlock()
}

// BeginElse closes the current branch and opens an else scope.
func (g *CodeGen) BeginElse() {
	g.EndBlock()
	g.out.Line("else")
	g.BeginBlock()
}

// EndIf closes an if or else scope.
func (g *CodeGen) EndIf() { g.EndBlock() }

// BeginFor opens a for scope.
func (g *CodeGen) BeginFor(init, cond, step string) {
	g.Line("for (%s; %s; %s)", init, cond, step)
	g.BeginBlock()
}

// BeginLoop opens a counted for loop over idx in [0, count).
func (g *CodeGen) BeginLoop(idx, count string) {
	g.BeginFor(
		fmt.Sprintf("uint32_t %s = 0", idx),
		fmt.Sprintf("%s < (uint32_t)%s", idx, count),
		"++"+idx)
}

// EndFor closes a for scope.
func (g *CodeGen) EndFor() { g.EndBlock() }

// BeginWhile opens a while scope.
func (g *CodeGen) BeginWhile(cond string, args ...interface{}) {
	g.Line("while ("+cond+")", args...)
	g.BeginBlock()
}

// EndWhile closes a while scope.
func (g *CodeGen) EndWhile() { g.EndBlock() }

// BeginSwitch opens a switch scope.
func (g *CodeGen) BeginSwitch(expr string, args ...interface{}) {
	g.Line("switch ("+expr+")", args...)
	g.BeginBlock()
}

// SwitchCase opens a case label. Cases are closed with SwitchCaseEnd.
func (g *CodeGen) SwitchCase(label string, args ...interface{}) {
	g.Line("case "+label+":", args...)
	g.BeginBlock()
}

// SwitchCaseEnd closes a case opened with SwitchCase, ending it with break.
func (g *CodeGen) SwitchCaseEnd() {
	g.Stmt("break")
	g.EndBlock()
}

// SwitchCaseReturn writes a single line case returning value.
func (g *CodeGen) SwitchCaseReturn(label, value string) {
	g.Line("case %s: return %s;", label, value)
}

// SwitchDefault opens the default label.
func (g *CodeGen) SwitchDefault() {
	g.out.Line("default:")
	g.BeginBlock()
}

// EndSwitch closes a switch scope.
func (g *CodeGen) EndSwitch() { g.EndBlock() }

// Directive writes a preprocessor line at column zero.
func (g *CodeGen) Directive(text string) {
	depth := g.out.Depth
	g.out.Depth = 0
	g.out.Line(text)
	g.out.Depth = depth
}

// BeginIfdef opens a preprocessor conditional.
func (g *CodeGen) BeginIfdef(macro string) { g.Directive("#ifdef " + macro) }

// EndIfdef closes a preprocessor conditional.
func (g *CodeGen) EndIfdef() { g.Directive("#endif") }

// FuncDecl writes a function prototype followed by a semicolon.
func (g *CodeGen) FuncDecl(proto string) {
	g.Text(proto + ";")
	g.Blank()
}

// BeginFuncDef opens the body of a function.
func (g *CodeGen) BeginFuncDef(proto string) {
	g.Text(proto)
	g.BeginBlock()
}

// EndFuncDef closes the body of a function.
func (g *CodeGen) EndFuncDef() {
	g.EndBlock()
	g.Blank()
}

// FuncCall writes a call statement, optionally assigning the result.
func (g *CodeGen) FuncCall(lhs, fn string, args ...string) {
	call := fmt.Sprintf("%s(%s)", fn, strings.Join(args, ", "))
	if lhs != "" {
		call = lhs + " = " + call
	}
	g.Stmt("%s", call)
}

// Swap returns the accumulated text and resets the generator. The variable
// counter carries on so names stay unique within a file.
func (g *CodeGen) Swap() string {
	g.out.Flush()
	out := g.buf.String()
	g.buf.Reset()
	g.out.Depth = 0
	return out
}

// String returns the accumulated text without resetting.
func (g *CodeGen) String() string {
	g.out.Flush()
	return g.buf.String()
}

// Depth returns the current indentation depth.
func (g *CodeGen) Depth() int { return g.out.Depth }

// Param is a typed function parameter.
type Param struct {
	Type string
	Name string
}

// FuncProto returns a prototype with one parameter per line.
func FuncProto(ret, name string, params ...Param) string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%s %s(", ret, name)
	for i, p := range params {
		sb.WriteString("\n    ")
		sb.WriteString(p.Type)
		if p.Name != "" {
			sb.WriteString(" " + p.Name)
		}
		if i < len(params)-1 {
			sb.WriteString(",")
		}
	}
	sb.WriteString(")")
	return sb.String()
}

// ParamsOf converts command parameters to prototype parameters.
func ParamsOf(list []*types.VulkanType) []Param {
	out := make([]Param, len(list))
	for i, p := range list {
		out[i] = Param{Type: p.Decl(false), Name: p.ParamName + staticSuffix(p)}
	}
	return out
}

func staticSuffix(t *types.VulkanType) string {
	if t.StaticArrExpr == "" {
		return ""
	}
	return "[" + t.StaticArrExpr + "]"
}

// TypeDecl returns the C declaration of a value of t with the given name.
func TypeDecl(t *types.VulkanType, name string) string {
	out := t.Decl(false)
	if name != "" {
		out += " " + name + staticSuffix(t)
	}
	return out
}

// ReinterpretCast returns reinterpret_cast<T>(expr).
func ReinterpretCast(to, expr string) string {
	return fmt.Sprintf("reinterpret_cast<%s>(%s)", to, expr)
}

// ConstCast returns a C style cast removing constness from expr of type t.
func ConstCast(t *types.VulkanType, expr string) string {
	return fmt.Sprintf("(%s)%s", t.ForNonConstAccess().Decl(false), expr)
}

// SizeofExpr returns the sizeof expression for one element of t.
func SizeofExpr(t *types.VulkanType) string {
	return fmt.Sprintf("sizeof(%s)", t.Decl(false))
}

// Access returns the expression of a member of the struct pointed to by
// parent, or the bare name for command parameters.
func Access(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "->" + name
}

// AddressOf returns the address of an expression, collapsing &(*x).
func AddressOf(expr string) string {
	if strings.HasPrefix(expr, "(*") && strings.HasSuffix(expr, ")") {
		inner := expr[2 : len(expr)-1]
		if strings.HasPrefix(inner, "(") && strings.HasSuffix(inner, ")") &&
			!strings.ContainsAny(inner[1:len(inner)-1], "() +") {
			return inner[1 : len(inner)-1]
		}
		return inner
	}
	return "&" + expr
}
