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

package text_test

import (
	"fmt"
	"testing"

	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/text"
)

func TestWriterSplitsLines(t *testing.T) {
	assert := assert.To(t)
	got := []string{}
	w := text.Writer(func(s string) error {
		got = append(got, s)
		return nil
	})
	fmt.Fprint(w, "one\ntw")
	fmt.Fprint(w, "o\nthree")
	assert.For("before close").ThatSlice(got).Equals([]string{"one", "two"})
	w.Close()
	assert.For("after close").ThatSlice(got).Equals([]string{"one", "two", "three"})
}
