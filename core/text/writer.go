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

// Package text holds small helpers for line oriented text.
package text

import (
	"io"
	"strings"
)

// Writer returns a io writer that collects lines out of a stream and hands
// them to the supplied function.
func Writer(to func(string) error) io.WriteCloser {
	return &lineWriter{to: to}
}

type lineWriter struct {
	to      func(string) error
	pending strings.Builder
}

// Write splits the input into lines, gathering partial lines across calls.
func (w *lineWriter) Write(p []byte) (int, error) {
	s := string(p)
	for {
		line, rest, found := strings.Cut(s, "\n")
		if !found {
			w.pending.WriteString(line)
			return len(p), nil
		}
		w.pending.WriteString(line)
		err := w.to(w.pending.String())
		w.pending.Reset()
		if err != nil {
			return 0, err
		}
		s = rest
	}
}

// Close flushes any partial line.
func (w *lineWriter) Close() error {
	if w.pending.Len() == 0 {
		return nil
	}
	line := w.pending.String()
	w.pending.Reset()
	return w.to(line)
}
