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

package fault_test

import (
	"testing"

	"github.com/google/gfxcodegen/core/assert"
	"github.com/google/gfxcodegen/core/fault"
	"github.com/pkg/errors"
)

const errDup = fault.Const("duplicate opcode")

func TestList(t *testing.T) {
	assert := assert.To(t)
	l := fault.List{}
	assert.For("empty").ThatError(l.Err()).Succeeded()
	l.Collect(nil)
	l.Collect(errors.Wrap(errDup, "vkFoo"))
	assert.For("single").ThatError(l.Err()).HasCause(errDup)
	l.Collect(errors.Wrap(errDup, "vkBar"))
	assert.For("many").ThatError(l.Err()).HasMessage("2 errors")
	assert.For("many cause").ThatError(l.Err()).HasCause(errDup)
}

func TestOne(t *testing.T) {
	o := fault.One{}
	o.Collect(errDup)
	o.Collect(fault.Const("other"))
	assert.For(t, "first").That(o.First()).Equals(error(errDup))
}
