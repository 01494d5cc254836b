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

package cereal

import (
	"context"

	"github.com/docker/go-units"
	"github.com/google/gfxcodegen/core/log"
)

// Write writes every file of r below dir, creating directories as needed.
func Write(ctx context.Context, dir string, r *Result) error {
	total := 0
	for _, f := range r.Files {
		if err := f.File.Write(dir); err != nil {
			return log.Errf(ctx, err, "Writing %v", f.Path)
		}
		total += len(f.Content)
		log.I(ctx, "Wrote %v: %v, %d functions", f.Path, units.HumanSize(float64(len(f.Content))), f.Functions)
	}
	log.I(ctx, "Generated %d files (%v) for the %v variant", len(r.Files), units.HumanSize(float64(total)), r.Variant)
	return nil
}

// File returns the output with the given path, or nil.
func (r *Result) File(path string) *Output {
	for i := range r.Files {
		if r.Files[i].Path == path {
			return &r.Files[i]
		}
	}
	return nil
}
