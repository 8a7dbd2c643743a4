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

package encoding

import (
	"seehuhn.de/go/postscript/type1/names"
)

// IsForbiddenRune reports whether r must not appear as a destination in a
// ToUnicode mapping.  These values break text extraction in common PDF
// viewers and are replaced with Private Use Area code points before a
// ToUnicode CMap is written.
func IsForbiddenRune(r rune) bool {
	switch {
	case r == 0x0000, r == 0xFEFF, r == 0xFFFE:
		return true
	case r >= 0xD800 && r <= 0xDFFF:
		return true
	}
	return false
}

// ToUnicode returns the Unicode text corresponding to a glyph name,
// following the Adobe Glyph List algorithm: the name is split at the first
// period, components are resolved via the AGL (or the ZapfDingbats list when
// dingbats is true), and the uniXXXX and uXXXX[XX] numeric conventions are
// honoured.  Forbidden code points are rejected.
//
// The result is nil if the name carries no usable Unicode meaning.
func ToUnicode(glyphName string, dingbats bool) []rune {
	fontName := ""
	if dingbats {
		fontName = "ZapfDingbats"
	}
	rr := []rune(names.ToUnicode(glyphName, fontName))
	if len(rr) == 0 {
		return nil
	}
	for _, r := range rr {
		if IsForbiddenRune(r) {
			return nil
		}
	}
	return rr
}

// IsKnownGlyphName reports whether glyphName resolves to Unicode text.
func IsKnownGlyphName(glyphName string) bool {
	return ToUnicode(glyphName, false) != nil
}
