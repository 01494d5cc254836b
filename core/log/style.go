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

package log

import (
	"fmt"
	"strings"
	"time"
)

// Style provides customization for printing messages.
type Style struct {
	Name      string        // Name of the style.
	Timestamp bool          // If true, the timestamp will be printed if part of the message.
	Tag       bool          // If true, the tag will be printed if part of the message.
	Trace     bool          // If true, the trace will be printed if part of the message.
	Severity  SeverityStyle // How the severity of the message will be printed.
	Values    ValueStyle    // How the values of the message will be printed.
}

// SeverityStyle is an enumerator of ways that severities can be printed.
type SeverityStyle int

const (
	// NoSeverity is the option to disable the printing of the severity.
	NoSeverity = SeverityStyle(iota)
	// SeverityShort is the option to display the severity as a single character.
	SeverityShort
	// SeverityLong is the option to display the severity in its full name.
	SeverityLong
)

// ValueStyle is an enumerator of ways that values can be printed.
type ValueStyle int

const (
	// NoValues is the option to disable the printing of values.
	NoValues = ValueStyle(iota)
	// ValuesSingleLine is the option to display all values on a single line.
	ValuesSingleLine
	// ValuesMultiLine is the option to display each value on a separate line.
	ValuesMultiLine
)

var (
	// Raw is a style that only prints the text of the message.
	Raw = Style{Name: "raw"}

	// Brief is a style that only prints the text and short severity of the
	// message.
	Brief = Style{Name: "brief", Severity: SeverityShort}

	// Normal is a style that prints the timestamp, tag, trace, short severity
	// and the values on a single line.
	Normal = Style{
		Name:      "normal",
		Timestamp: true,
		Tag:       true,
		Trace:     true,
		Severity:  SeverityShort,
		Values:    ValuesSingleLine,
	}

	// Detailed is a style that prints everything, with multi-line values.
	Detailed = Style{
		Name:      "detailed",
		Timestamp: true,
		Tag:       true,
		Trace:     true,
		Severity:  SeverityLong,
		Values:    ValuesMultiLine,
	}

	// Styles is the list of styles selectable by name.
	Styles = []Style{Raw, Brief, Normal, Detailed}
)

func (s Style) String() string { return s.Name }

// StyleByName returns the registered style with the given name.
func StyleByName(name string) (Style, bool) {
	for _, s := range Styles {
		if s.Name == name {
			return s, true
		}
	}
	return Normal, false
}

// Handler returns a new Handler that writes messages formatted with the style
// to w.
func (s Style) Handler(w Writer) Handler {
	return handler{handle: func(m *Message) { w(s.Print(m), m.Severity) }}
}

// Print returns the message msg printed with the style s.
func (s Style) Print(msg *Message) string {
	parts := make([]string, 0, 6)
	if s.Timestamp && !msg.Time.IsZero() {
		parts = append(parts, HHMMSSsss(msg.Time))
	}
	switch s.Severity {
	case SeverityShort:
		parts = append(parts, msg.Severity.Short()+":")
	case SeverityLong:
		parts = append(parts, msg.Severity.String()+":")
	}
	if s.Trace && len(msg.Trace) > 0 {
		trace := make([]string, len(msg.Trace))
		for i, t := range msg.Trace {
			trace[len(trace)-1-i] = t
		}
		parts = append(parts, fmt.Sprintf("[%s]", strings.Join(trace, "->")))
	}
	if s.Tag && msg.Tag != "" {
		parts = append(parts, fmt.Sprintf("<%s>", msg.Tag))
	}
	parts = append(parts, msg.Text)
	if len(msg.Values) > 0 {
		switch s.Values {
		case ValuesSingleLine:
			t := make([]string, len(msg.Values))
			for i, v := range msg.Values {
				t[i] = fmt.Sprintf("%v: %v", v.Name, v.Value)
			}
			parts = append(parts, fmt.Sprintf("(%v)", strings.Join(t, ", ")))
		case ValuesMultiLine:
			sb := strings.Builder{}
			for _, v := range msg.Values {
				fmt.Fprintf(&sb, "\n  %v: %v", v.Name, v.Value)
			}
			parts[len(parts)-1] += sb.String()
		}
	}
	return strings.Join(parts, " ")
}

// HHMMSSsss prints the time as a HH:MM:SS.sss
func HHMMSSsss(t time.Time) string {
	return fmt.Sprintf("%.2d:%.2d:%.2d.%.3d", t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6)
}
