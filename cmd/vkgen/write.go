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

package main

import (
	"context"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/core/app"
	"github.com/google/gfxcodegen/core/log"
	"github.com/google/gfxcodegen/core/text/copyright"
)

// stamp returns the header stamp for files generated from source.
func stamp(year, source string) copyright.Info {
	if year == "" {
		year = strconv.Itoa(time.Now().Year())
	}
	return copyright.Info{Year: year, Tool: app.Name, Version: version, Source: source}
}

// writeModule writes the files of m below dir.
func writeModule(ctx context.Context, dir string, m *emit.Module) error {
	for _, f := range m.Files() {
		if err := f.Write(dir); err != nil {
			return log.Errf(ctx, err, "Writing %v", f.Path)
		}
		log.I(ctx, "Wrote %v: %v", f.Path, units.HumanSize(float64(len(f.Content))))
	}
	return nil
}
