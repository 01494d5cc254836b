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


package types

import (
	"github.com/google/gfxcodegen/registry"
	"github.com/pkg/errors"
)

// layout is the size and alignment of a type in memory.
type layout struct{ size, align int }

// CSize returns sizeof the named type as compiled for a 64-bit host. This is
// the extSize the chain functions put in front of every link.
func (i *Info) CSize(name string) (int, error) {
	l, err := i.cLayout(name)
	return l.size, err
}

func (i *Info) cLayout(name string) (layout, error) {
	name = i.Resolve(name)
	if l, ok := i.layouts[name]; ok {
		return l, nil
	}
	var l layout
	if s := i.Structs[name]; s != nil {
		var err error
		if l, err = i.structLayout(s); err != nil {
			return l, err
		}
	} else {
		switch size := i.PrimEncodingSize(name); {
		case name == "void":
			return l, errors.Wrap(ErrUnsupported, "sizeof(void)")
		case size == 0:
			return l, errors.Wrapf(ErrUnsupported, "No size for %v", name)
		default:
			l = layout{size, size}
		}
	}
	if i.layouts == nil {
		i.layouts = map[string]layout{}
	}
	i.layouts[name] = l
	return l, nil
}

func (i *Info) memberLayout(m *VulkanType) (layout, error) {
	l := layout{8, 8}
	if !m.IsPointer() && i.Category(m.TypeName) != registry.FuncPointer {
		var err error
		if l, err = i.cLayout(m.TypeName); err != nil {
			return l, errors.Wrapf(err, "%v.%v", m.Parent, m.ParamName)
		}
	}
	if m.IsStaticArray() {
		l.size *= m.StaticArrCount
	}
	return l, nil
}

// structLayout follows the natural alignment rules of the C ABIs: each
// member starts at a multiple of its alignment and the struct is padded to
// a multiple of its widest member. Union members all start at zero.
func (i *Info) structLayout(s *StructInfo) (layout, error) {
	out := layout{0, 1}
	for _, m := range s.Members {
		l, err := i.memberLayout(m)
		if err != nil {
			return out, err
		}
		if l.align > out.align {
			out.align = l.align
		}
		if s.IsUnion {
			if l.size > out.size {
				out.size = l.size
			}
			continue
		}
		out.size = alignUp(out.size, l.align) + l.size
	}
	out.size = alignUp(out.size, out.align)
	return out, nil
}

func alignUp(n, align int) int { return (n + align - 1) / align * align }
