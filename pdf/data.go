// seehuhn.de/go/pdffix - a library for repairing fonts in PDF files
// Copyright (C) 2025  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdf

import "io"

// Data is an in-memory object store implementing [Getter] and [Putter].
// It serves as the seam between this library and the document graph
// owned by the caller, and is used as the document stand-in in tests.
type Data struct {
	objects map[Reference]Object
	lastRef uint32
}

// NewData creates a new, empty object store.
func NewData() *Data {
	return &Data{
		objects: map[Reference]Object{},
	}
}

// Alloc allocates a new object number for an indirect object.
func (d *Data) Alloc() Reference {
	for {
		d.lastRef++
		ref := NewReference(d.lastRef, 0)
		if _, ok := d.objects[ref]; !ok {
			return ref
		}
	}
}

// Get returns the object stored under the given reference, or nil if
// there is none.  Stream readers are rewound so that the data can be
// read repeatedly.
func (d *Data) Get(ref Reference) (Object, error) {
	obj := d.objects[ref]
	if s, ok := obj.(*Stream); ok {
		if ss, ok := s.R.(io.Seeker); ok {
			_, err := ss.Seek(0, io.SeekStart)
			if err != nil {
				return nil, err
			}
		}
	}
	return obj, nil
}

// Put stores an object under the given reference.  Storing nil removes
// the object.
func (d *Data) Put(ref Reference, obj Object) error {
	if obj == nil {
		delete(d.objects, ref)
	} else {
		d.objects[ref] = obj
	}
	return nil
}
