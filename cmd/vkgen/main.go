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

// The vkgen command generates the Vulkan stream codecs, the ACO opcode table
// and the PCO instruction encoders.
package main

import (
	"github.com/google/gfxcodegen/cereal"
	"github.com/google/gfxcodegen/core/app"
)

// version is stamped into every generated header.
const version = "1.4"

func main() {
	app.Name = cereal.Tool
	app.ShortHelp = "vkgen generates guest and host Vulkan stream codecs and GPU ISA tables."
	app.Version = version
	app.Run(app.VerbMain)
}
