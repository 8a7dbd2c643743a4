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

import "strings"

// MalformedFileError indicates that a PDF object does not have the
// structure required by the PDF specification.
type MalformedFileError struct {
	Err error

	// Loc gives the location of the error, starting with the outermost
	// context.
	Loc []string
}

func (err *MalformedFileError) Error() string {
	parts := []string{"malformed PDF"}
	if len(err.Loc) > 0 {
		parts = append(parts, strings.Join(err.Loc, ": "))
	}
	if err.Err != nil {
		parts = append(parts, err.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (err *MalformedFileError) Unwrap() error {
	return err.Err
}

// Wrap adds location information to an error.  If err already is a
// [MalformedFileError], loc is prepended to the location list; otherwise
// err is wrapped in a new MalformedFileError.
func Wrap(err error, loc string) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*MalformedFileError); ok {
		e2 := &MalformedFileError{
			Err: e.Err,
			Loc: append([]string{loc}, e.Loc...),
		}
		return e2
	}
	return &MalformedFileError{Err: err, Loc: []string{loc}}
}
