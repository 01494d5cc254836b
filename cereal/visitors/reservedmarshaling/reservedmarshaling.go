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

// Package reservedmarshaling emits the zero-copy encoders that write
// straight into a buffer sized by the counting functions, and the matching
// decoders over a received buffer.
package reservedmarshaling

import (
	"github.com/google/gfxcodegen/cereal/emit"
	"github.com/google/gfxcodegen/cereal/types"
	"github.com/google/gfxcodegen/cereal/visitors/marshaling"
)

// Guest writes reserved buffers only; the host reads them.
var (
	Guest = []marshaling.Style{marshaling.ReservedMarshal}
	Host  = []marshaling.Style{marshaling.ReservedUnmarshal}
)

// New returns the wrapper emitting styles into m.
func New(info *types.Info, m *emit.Module, styles []marshaling.Style) *marshaling.Wrapper {
	return marshaling.New(info, m, nil, styles...)
}
