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

package type1

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var charstringsCountRegexp = regexp.MustCompile(`(/CharStrings\s+)(\d+)`)

// EnsureNames adds empty glyphs for the given glyph names where
// missing.  New entries are inserted ahead of the keyword closing the
// CharStrings dictionary, and the dictionary size in the program text
// is adjusted.  The number of glyphs added is returned.
//
// Each inserted charstring is "0 width hsbw endchar".  The hsbw
// operator takes the left side bearing first and the advance width
// second, so the width must be the second operand.
func (f *Font) EnsureNames(names []string, width func(name string) float64) (int, error) {
	glyphs, endPos, err := f.scanCharstrings()
	if err != nil {
		return 0, err
	}

	var insert []byte
	added := 0
	for _, name := range names {
		if _, ok := glyphs[name]; ok {
			continue
		}

		var plain []byte
		plain = appendT1Int(plain, 0)
		plain = appendT1Int(plain, int32(math.Round(width(name))))
		plain = append(plain, t1HsbW, t1EndChar)
		cipher := encryptCharstring(plain, f.lenIV)

		insert = append(insert,
			fmt.Sprintf("/%s %d %s ", name, len(cipher), f.rd)...)
		insert = append(insert, cipher...)
		insert = append(insert, ' ')
		insert = append(insert, f.nd...)
		insert = append(insert, '\n')

		glyphs[name] = nil
		added++
	}
	if added == 0 {
		return 0, nil
	}

	private := make([]byte, 0, len(f.private)+len(insert))
	private = append(private, f.private[:endPos]...)
	private = append(private, insert...)
	private = append(private, f.private[endPos:]...)

	// adjust the declared dictionary size
	if m := charstringsCountRegexp.FindSubmatchIndex(private); m != nil {
		count, err := strconv.Atoi(string(private[m[4]:m[5]]))
		if err == nil {
			var out []byte
			out = append(out, private[:m[4]]...)
			out = append(out, strconv.Itoa(count+added)...)
			out = append(out, private[m[5]:]...)
			private = out
		}
	}

	f.private = private
	return added, nil
}

// HasNotdef reports whether the font contains a .notdef glyph.
func (f *Font) HasNotdef() bool {
	return f.HasGlyph(".notdef")
}

// InsertNotdef adds an empty zero-width .notdef glyph if missing.  It
// reports whether the font was changed.
func (f *Font) InsertNotdef() bool {
	added, err := f.EnsureNames([]string{".notdef"},
		func(string) float64 { return 0 })
	return err == nil && added > 0
}

// BuiltinEncoding returns the font's encoding vector from the
// cleartext part of the program.  StandardEncoding is reported as an
// empty table with ok set to false.
func (f *Font) BuiltinEncoding() ([256]string, bool) {
	var enc [256]string
	if bytes.Contains(f.clear, []byte("/Encoding StandardEncoding def")) {
		return enc, false
	}
	for _, m := range encodingEntryRegexp.FindAllSubmatch(f.clear, -1) {
		code, err := strconv.Atoi(string(m[1]))
		if err != nil || code < 0 || code > 255 {
			continue
		}
		enc[code] = string(m[2])
	}
	return enc, true
}

var encodingEntryRegexp = regexp.MustCompile(`dup\s+(\d+)\s*/([^\s/]+)\s+put`)
