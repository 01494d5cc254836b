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

package app

import (
	"os"
	"time"

	"github.com/google/gfxcodegen/core/log"
	"github.com/pkg/errors"
)

// LogFlags holds the command line flags that control logging.
type LogFlags struct {
	Level log.Severity `help:"The severity to enable logs at"`
	Style string       `help:"The style of log messages, one of raw, brief, normal or detailed"`
	File  string       `help:"The file to write logs to, stdout if empty"`
	Clock bool         `help:"_print timestamps"`
}

func (f LogFlags) handler() (log.Handler, func(), error) {
	style, ok := log.StyleByName(f.Style)
	if !ok {
		return nil, nil, errors.Errorf("Unknown log style %q", f.Style)
	}
	if f.File == "" {
		h := wrapHandler(style.Handler(log.Std()))
		return log.Synchronized(h), func() {}, nil
	}
	file, err := os.Create(f.File)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "Opening log file %v", f.File)
	}
	h := wrapHandler(style.Handler(func(text string, _ log.Severity) {
		file.WriteString(text)
		file.WriteString("\n")
	}))
	return log.Synchronized(h), func() { file.Close() }, nil
}

func (f LogFlags) clock() log.Clock {
	if f.Clock {
		return wallClock{}
	}
	return log.NoClock
}

type wallClock struct{}

func (wallClock) Time() time.Time { return time.Now() }

// wrapHandler turns stop-process messages into a FatalExit panic, which Run
// converts to the process exit code.
func wrapHandler(to log.Handler) log.Handler {
	return log.NewHandler(func(m *log.Message) {
		to.Handle(m)
		if m.StopProcess {
			panic(FatalExit)
		}
	}, to.Close)
}
