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

// Package reflow provides an indenting line writer for generated source.
//
// Lines pushed through a Writer are prefixed with the current indentation.
// Adjacent lines that contain the Column marker are aligned into columns.
package reflow

import (
	"io"
	"strings"
	"text/tabwriter"
)

// Column is the marker used to line up text across adjacent lines.
const Column = '║'

// Writer is an io.Writer that indents and aligns the lines passing through
// it. Partial lines are buffered until the newline arrives.
type Writer struct {
	Depth   int    // The current indentation depth.
	Indent  string // The string to repeat as the indentation.
	To      io.Writer
	tabs    *tabwriter.Writer
	pending strings.Builder
	aligned bool
}

// New constructs a new reflow Writer with the default indent of 4 spaces.
func New(to io.Writer) *Writer {
	return &Writer{
		To:     to,
		Indent: "    ",
		tabs:   tabwriter.NewWriter(to, 1, 4, 1, ' ', 0),
	}
}

// Increase the indent level of the reflow.
func (w *Writer) Increase() { w.Depth++ }

// Decrease the indent level of the reflow.
func (w *Writer) Decrease() {
	if w.Depth > 0 {
		w.Depth--
	}
}

// Write implements io.Writer with the reflow logic.
func (w *Writer) Write(data []byte) (int, error) {
	w.pending.Write(data)
	text := w.pending.String()
	w.pending.Reset()
	for {
		line, rest, found := strings.Cut(text, "\n")
		if !found {
			w.pending.WriteString(line)
			return len(data), nil
		}
		if err := w.Line(line); err != nil {
			return len(data), err
		}
		text = rest
	}
}

// Line writes a single line, indented to the current depth. Empty lines are
// written without indentation.
func (w *Writer) Line(line string) error {
	line = strings.TrimRight(line, " \t")
	columns := strings.ContainsRune(line, Column)
	if w.aligned && !columns {
		if err := w.tabs.Flush(); err != nil {
			return err
		}
	}
	w.aligned = columns
	if line != "" {
		line = strings.Repeat(w.Indent, w.Depth) + line
	}
	if columns {
		_, err := io.WriteString(w.tabs, strings.ReplaceAll(line, string(Column), "\t")+"\n")
		return err
	}
	_, err := io.WriteString(w.To, line+"\n")
	return err
}

// Flush writes out any partial line and aligned block.
func (w *Writer) Flush() error {
	if w.pending.Len() > 0 {
		line := w.pending.String()
		w.pending.Reset()
		if err := w.Line(line); err != nil {
			return err
		}
	}
	w.aligned = false
	return w.tabs.Flush()
}
