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

// Package cases contains functions for mapping identifiers between various
// cases (snake, pascal, etc).
package cases

import (
	"strings"
	"unicode"
)

// Words are a list of strings.
type Words []string

// Snake separates and returns the words in s by underscore.
func Snake(s string) Words {
	if s == "" {
		return Words{}
	}
	return Words(strings.Split(s, "_"))
}

// Pascal separates and returns the words in s, where each word begins with a
// uppercase letter.
func Pascal(s string) Words {
	out := Words{}
	sb := strings.Builder{}
	wasLetter := false
	for _, r := range s {
		if wasLetter && unicode.IsUpper(r) {
			out = append(out, sb.String())
			sb.Reset()
		}
		sb.WriteRune(r)
		wasLetter = unicode.IsLetter(r)
	}
	if sb.Len() > 0 {
		out = append(out, sb.String())
	}
	return out
}

// Vulkan separates an API identifier the way the registry derives enumerant
// names from type names: runs of capitals stay together as an acronym, a run
// of digits is its own word unless it qualifies a following "Bit".
func Vulkan(s string) Words {
	rs := []rune(s)
	out := Words{}
	start := 0
	for i := 1; i < len(rs); i++ {
		prev, r := rs[i-1], rs[i]
		split := false
		switch {
		case unicode.IsDigit(r):
			split = !unicode.IsDigit(prev)
		case unicode.IsUpper(r) && unicode.IsDigit(prev):
			split = !strings.HasPrefix(string(rs[i:]), "Bit")
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			split = true
		case unicode.IsUpper(r) && unicode.IsUpper(prev):
			split = i+1 < len(rs) && unicode.IsLower(rs[i+1])
		}
		if split {
			out = append(out, string(rs[start:i]))
			start = i
		}
	}
	if start < len(rs) {
		out = append(out, string(rs[start:]))
	}
	return out
}

// ToSnake returns all the words concatenated with an underscore.
func (w Words) ToSnake() string {
	return strings.Join([]string(w), "_")
}

// ToScreamingSnake returns all the words upper-cased and concatenated with an
// underscore.
func (w Words) ToScreamingSnake() string {
	return strings.ToUpper(w.ToSnake())
}

// ToPascal returns all the words concatenated with each word beginning with an
// uppercase letter.
func (w Words) ToPascal() string {
	sb := strings.Builder{}
	for _, word := range w {
		sb.WriteString(Title(word))
	}
	return sb.String()
}

// ToCamel returns all the words concatenated with each word beginning with
// an uppercase letter, except for the first.
func (w Words) ToCamel() string {
	sb := strings.Builder{}
	for i, word := range w {
		if i > 0 {
			word = Title(word)
		}
		sb.WriteString(word)
	}
	return sb.String()
}

// Title capitalizes the first letter of the string.
func Title(s string) string {
	for i, r := range s {
		return string(unicode.ToTitle(r)) + s[i+len(string(r)):]
	}
	return s
}

// Untitle lower-cases the first letter of the string.
func Untitle(s string) string {
	for i, r := range s {
		return string(unicode.ToLower(r)) + s[i+len(string(r)):]
	}
	return s
}
