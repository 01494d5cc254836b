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
	"context"
	"fmt"
	"io"

	"github.com/google/gfxcodegen/core/log"
)

// Usage prints message with the formatting args, followed by the command
// usage information, and terminates the program with UsageExit.
func Usage(ctx context.Context, message string, args ...interface{}) {
	usage(ctx, fmt.Sprintf(message, args...), false)
	panic(UsageExit)
}

func usage(ctx context.Context, message string, verbose bool) {
	level := log.Info
	if message != "" {
		level = log.Error
	}
	raw := log.From(ctx).Writer(level)
	defer raw.Close()
	if message != "" {
		fmt.Fprintln(raw)
		fmt.Fprintln(raw, message)
		fmt.Fprintln(raw)
	}
	verbShorthelp(raw, &globalVerbs)
	fmt.Fprint(raw, "Usage:")
	verbUsage(raw, &globalVerbs, verbose)
	verbHelp(raw, &globalVerbs, verbose)
	if UsageFooter != "" {
		fmt.Fprintln(raw, UsageFooter)
	}
}

func autoHelp(ctx context.Context, args ...string) {
	if len(args) == 0 {
		usage(ctx, "", false)
		panic(SuccessExit)
	}
	if matches := globalVerbs.Filter(args[0]); len(matches) == 1 {
		globalVerbs.selected = matches[0]
	}
	usage(ctx, "", true)
	panic(SuccessExit)
}

func verbShorthelp(raw io.Writer, v *Verb) {
	if v.ShortHelp != "" {
		fmt.Fprintf(raw, "%s: %s\n", v.Name, v.ShortHelp)
	}
	if v.selected != nil {
		verbShorthelp(raw, v.selected)
	}
}

func verbUsage(raw io.Writer, v *Verb, verbose bool) {
	fmt.Fprintf(raw, " %s", v.Name)
	if v.Flags.HasVisibleFlags(verbose) {
		fmt.Fprintf(raw, " [%s-flags]", v.Name)
	}
	switch {
	case v.selected != nil:
		verbUsage(raw, v.selected, verbose)
	case v.ShortUsage != "":
		fmt.Fprintf(raw, " %s\n", v.ShortUsage)
	case len(v.verbs) > 0:
		fmt.Fprintln(raw, " verb [args]")
	default:
		fmt.Fprintln(raw)
	}
}

func verbHelp(raw io.Writer, v *Verb, verbose bool) {
	if v.Flags.HasVisibleFlags(verbose) {
		fmt.Fprintf(raw, "%s-flags:\n%s\n", v.Name, v.Flags.Usage(verbose))
	}
	if v.selected != nil {
		verbHelp(raw, v.selected, verbose)
		return
	}
	if len(v.verbs) == 0 {
		return
	}
	fmt.Fprintf(raw, "%s verbs:\n", v.Name)
	longest := 0
	for _, child := range v.verbs {
		if longest < len(child.Name) {
			longest = len(child.Name)
		}
	}
	format := fmt.Sprintf("    %%-%ds - %%s\n", longest)
	for _, child := range v.verbs {
		fmt.Fprintf(raw, format, child.Name, child.ShortHelp)
	}
}
