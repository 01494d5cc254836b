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

// Package copyright builds and recognises the license headers written at the
// top of generated source files.
package copyright

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"
)

//go:embed headers/*.tmpl
var headers embed.FS

// Info holds the values substituted into a header.
type Info struct {
	Year    string
	Tool    string
	Version string
	Source  string
	Module  string
	Suffix  string
}

// Language maps file extensions to the header template they use.
type Language struct {
	Name       string
	Extensions []string
	License    string
}

var languages = []*Language{
	{
		Name:       "c",
		License:    "generated_c",
		Extensions: []string{".c", ".cc", ".cpp", ".h", ".hpp", ".inl"},
	},
	{
		Name:       "python",
		License:    "generated_py",
		Extensions: []string{".py"},
	},
}

// CurrentYear returns the year to stamp on new headers.
func CurrentYear() string { return strconv.Itoa(time.Now().Year()) }

func get(name string) string {
	data, err := headers.ReadFile(path.Join("headers", name+".tmpl"))
	if err != nil {
		panic(fmt.Errorf("Invalid header name %s", name))
	}
	return string(data)
}

func build(name string, header string, i Info) string {
	funcs := template.FuncMap{
		"Year":    func() string { return i.Year },
		"Tool":    func() string { return i.Tool },
		"Version": func() string { return i.Version },
		"Source":  func() string { return i.Source },
		"Module":  func() string { return i.Module },
		"Suffix":  func() string { return i.Suffix },
	}
	t := template.Must(template.New(name).
		Delims("«", "»").
		Funcs(funcs).
		Parse(header))
	b := &bytes.Buffer{}
	if err := t.Execute(b, i); err != nil {
		panic(fmt.Errorf("Error building %s: %s", name, err))
	}
	return b.String()
}

// Build returns the named header with i substituted.
func Build(name string, i Info) string {
	if i.Year == "" {
		i.Year = CurrentYear()
	}
	return build(name, get(name), i)
}

// Regexp returns an expression matching the named header for any values of
// the fields left empty in i.
func Regexp(name string, i Info) *regexp.Regexp {
	field := func(s string) string {
		if s == "" {
			return `(.*)`
		}
		return regexp.QuoteMeta(s)
	}
	i = Info{field(i.Year), field(i.Tool), field(i.Version), field(i.Source), field(i.Module), field(i.Suffix)}
	header := `^\s*` + quoteOutsideDelims(strings.TrimSpace(get(name))) + `\s*`
	return regexp.MustCompile(build(name, header, i))
}

// quoteOutsideDelims escapes the regexp metacharacters of a template while
// leaving the «» actions intact.
func quoteOutsideDelims(s string) string {
	sb := strings.Builder{}
	for {
		start := strings.Index(s, "«")
		if start < 0 {
			sb.WriteString(regexp.QuoteMeta(s))
			return sb.String()
		}
		end := strings.Index(s[start:], "»")
		if end < 0 {
			sb.WriteString(regexp.QuoteMeta(s))
			return sb.String()
		}
		end += start + len("»")
		sb.WriteString(regexp.QuoteMeta(s[:start]))
		sb.WriteString(s[start:end])
		s = s[end:]
	}
}

// FindLanguage returns the language with the given name.
func FindLanguage(name string) *Language {
	for _, l := range languages {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// FindExtension returns the language used for files ending with ext.
func FindExtension(ext string) *Language {
	for _, l := range languages {
		for _, e := range l.Extensions {
			if strings.HasSuffix(ext, e) {
				return l
			}
		}
	}
	return nil
}

// Header returns the generated header for a file of language l.
func (l *Language) Header(i Info) string { return Build(l.License, i) }

// MatchGenerated returns the length of the generated header at the start of
// file, or 0 if file does not start with one.
func (l *Language) MatchGenerated(file []byte) int {
	return len(Regexp(l.License, Info{}).Find(file))
}
