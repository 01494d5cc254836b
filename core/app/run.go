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

// Package app provides a command line application skeleton with verbs,
// flags and logging set up from the command line.
package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/gfxcodegen/core/log"
)

var (
	// Name is the full name of the application.
	Name string
	// ShortHelp should be set to add a help message to the usage text.
	ShortHelp = ""
	// ShortUsage is usage text for the additional non-flag arguments.
	ShortUsage = ""
	// UsageFooter is printed at the bottom of the usage text.
	UsageFooter = ""
	// Version is the version of the application, printed by the version flag.
	Version = ""
	// ExitFuncForTesting can be set to change the behaviour when there is a
	// command line parsing failure.
	ExitFuncForTesting = os.Exit
)

// Task is the signature of an application main function.
type Task func(ctx context.Context) error

// Run performs all the work needed to start up an application.
// It parses the main command line arguments, installs the logging handler
// and then calls main with a context carrying the handler. It does not
// return; the process exits with the code implied by main's result.
func Run(main Task) {
	ExitFuncForTesting(int(run(main, os.Args[1:])))
}

func run(main Task, args []string) (code ExitCode) {
	ctx := log.PutHandler(context.Background(), log.Raw.Handler(log.Stderr()))
	globals := &struct {
		Log         LogFlags
		FullHelp    bool `help:"_print all flags"`
		VersionFlag bool `name:"version" help:"print the version and exit"`
	}{Log: LogFlags{Level: log.Info, Style: "normal"}}
	globalVerbs.Name = Name
	globalVerbs.ShortHelp = ShortHelp
	globalVerbs.ShortUsage = ShortUsage
	set := &globalVerbs.Flags
	set.Raw.Init(Name, flag.ContinueOnError)
	set.Raw.Usage = func() {}
	set.Raw.SetOutput(io.Discard)
	set.Bind("", globals, "")

	defer func() {
		if r := recover(); r != nil {
			if ec, ok := r.(ExitCode); ok {
				code = ec
				return
			}
			panic(r)
		}
	}()

	if err := set.Parse(&globals.FullHelp, args...); err != nil {
		if err == flag.ErrHelp {
			usage(ctx, "", globals.FullHelp)
			return SuccessExit
		}
		Usage(ctx, "%v", err)
	}
	if globals.VersionFlag {
		fmt.Fprintf(os.Stdout, "%s version %s\n", Name, Version)
		return SuccessExit
	}

	handler, closeLog, err := globals.Log.handler()
	if err != nil {
		Usage(ctx, "%v", err)
	}
	defer closeLog()
	ctx = log.PutHandler(ctx, handler)
	ctx = log.PutFilter(ctx, log.SeverityFilter(globals.Log.Level))
	ctx = log.PutClock(ctx, globals.Log.clock())

	if err := main(ctx); err != nil {
		log.E(ctx, "Main failed: %v", err)
		return FatalExit
	}
	return SuccessExit
}
