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

import (
	"errors"
	"fmt"
	"io"
)

// Getter provides read access to the indirect objects of a document.
type Getter interface {
	Get(Reference) (Object, error)
}

// Putter provides write access to the indirect objects of a document.
type Putter interface {
	Getter
	Alloc() Reference
	Put(ref Reference, obj Object) error
}

// Resolve resolves references to indirect objects.
//
// If obj is a [Reference], the function reads the corresponding object
// from the document and returns the result.  If obj is not a [Reference],
// it is returned unchanged.  The function recursively follows chains of
// references until it resolves to a non-reference object.
//
// If a reference loop is encountered, the function returns an error of
// type [MalformedFileError].
func Resolve(r Getter, obj Object) (Object, error) {
	origObj := obj

	count := 0
	for {
		ref, isReference := obj.(Reference)
		if !isReference {
			break
		}
		count++
		if count > 16 {
			return nil, &MalformedFileError{
				Err: errors.New("too many levels of indirection"),
				Loc: []string{"object " + origObj.(Reference).String()},
			}
		}

		var err error
		obj, err = r.Get(ref)
		if err != nil {
			return nil, err
		}
	}

	return obj, nil
}

func resolveAndCast[T Object](r Getter, obj Object) (x T, err error) {
	obj, err = Resolve(r, obj)
	if err != nil {
		return x, err
	}

	if obj == nil {
		return x, nil
	}

	var isCorrectType bool
	x, isCorrectType = obj.(T)
	if isCorrectType {
		return x, nil
	}

	return x, &MalformedFileError{
		Err: fmt.Errorf("expected %T but got %T", x, obj),
	}
}

// Helper functions for getting objects of a specific type.  Each of these
// functions calls Resolve on the object before attempting to convert it
// to the desired type.  If the object is `null`, a zero object is
// returned without error.  If the object is of the wrong type, an error
// is returned.
//
// The signature of these functions is
//
//	func GetT(r Getter, obj Object) (x T, err error)
//
// where T is the type of the object to be returned.
var (
	GetArray  = resolveAndCast[Array]
	GetBool   = resolveAndCast[Bool]
	GetDict   = resolveAndCast[Dict]
	GetInt    = resolveAndCast[Integer]
	GetName   = resolveAndCast[Name]
	GetReal   = resolveAndCast[Real]
	GetStream = resolveAndCast[*Stream]
	GetString = resolveAndCast[String]
)

// CheckDictType checks that the "Type" entry of a dictionary, if present,
// has the given value.
func CheckDictType(r Getter, dict Dict, wantType Name) error {
	haveType, err := GetName(r, dict["Type"])
	if err != nil {
		return Wrap(err, "Type")
	}
	if haveType != "" && haveType != wantType {
		return &MalformedFileError{
			Err: fmt.Errorf("expected dict type %q but got %q", wantType, haveType),
		}
	}
	return nil
}

// GetDictTyped resolves obj to a dictionary and checks that the "Type"
// entry, if present, has the given value.
func GetDictTyped(r Getter, obj Object, wantType Name) (Dict, error) {
	dict, err := GetDict(r, obj)
	if err != nil {
		return nil, err
	}
	if dict == nil {
		return nil, nil
	}
	err = CheckDictType(r, dict, wantType)
	if err != nil {
		return nil, err
	}
	return dict, nil
}

// Number is a helper type which can hold either an [Integer] or a [Real].
type Number float64

// PDF implements the [Object] interface.
func (x Number) PDF(w io.Writer) error {
	if i := Integer(x); Number(i) == x {
		return i.PDF(w)
	}
	return Real(x).PDF(w)
}

// GetNumber resolves obj and returns it as a [Number].
// Integers and real numbers are accepted.
func GetNumber(r Getter, obj Object) (Number, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return 0, err
	}
	switch x := obj.(type) {
	case nil:
		return 0, nil
	case Integer:
		return Number(x), nil
	case Real:
		return Number(x), nil
	case Number:
		return x, nil
	default:
		return 0, &MalformedFileError{
			Err: fmt.Errorf("expected number but got %T", obj),
		}
	}
}

// Rectangle represents a PDF rectangle.
type Rectangle struct {
	LLx, LLy, URx, URy float64
}

// GetRectangle resolves obj and returns it as a [Rectangle].
func GetRectangle(r Getter, obj Object) (*Rectangle, error) {
	a, err := GetArray(r, obj)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	if len(a) != 4 {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("expected array of length 4 but got %d", len(a)),
		}
	}
	var coords [4]float64
	for i, obj := range a {
		x, err := GetNumber(r, obj)
		if err != nil {
			return nil, err
		}
		coords[i] = float64(x)
	}
	rect := &Rectangle{LLx: coords[0], LLy: coords[1], URx: coords[2], URy: coords[3]}
	if rect.LLx > rect.URx {
		rect.LLx, rect.URx = rect.URx, rect.LLx
	}
	if rect.LLy > rect.URy {
		rect.LLy, rect.URy = rect.URy, rect.LLy
	}
	return rect, nil
}

// IsZero checks whether the rectangle is the zero rectangle.
func (rect Rectangle) IsZero() bool {
	return rect == Rectangle{}
}

// PDF implements the [Object] interface.
func (rect *Rectangle) PDF(w io.Writer) error {
	a := Array{Number(rect.LLx), Number(rect.LLy), Number(rect.URx), Number(rect.URy)}
	return a.PDF(w)
}

// GetStreamBytes resolves obj to a stream and reads the complete stream
// data.
func GetStreamBytes(r Getter, obj Object) ([]byte, error) {
	stm, err := GetStream(r, obj)
	if err != nil {
		return nil, err
	}
	if stm == nil {
		return nil, nil
	}
	return io.ReadAll(stm.R)
}
