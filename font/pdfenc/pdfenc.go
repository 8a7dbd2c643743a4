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

// Package pdfenc provides the base character encodings used in PDF font
// dictionaries.  The tables follow Appendix D of PDF 32000-1:2008.
package pdfenc

// An Encoding is a mapping from single byte codes to glyph names.
// Unused codes map to ".notdef".
type Encoding struct {
	Encoding [256]string
	Has      map[string]bool
}

func makeEncoding(table [256]string) Encoding {
	has := make(map[string]bool)
	for _, name := range table {
		if name != ".notdef" {
			has[name] = true
		}
	}
	return Encoding{Encoding: table, Has: has}
}

// Standard is the Adobe Standard Encoding for Latin text.
var Standard = makeEncoding(standardEncoding)

// WinAnsi is the PDF version of the standard Microsoft Windows specific
// encoding for Latin text in Western writing systems.
var WinAnsi = makeEncoding(winAnsiEncoding)

// MacRoman is the PDF version of the MacOS standard encoding for Latin
// text in Western writing systems.
var MacRoman = makeEncoding(macRomanEncoding)

// Symbol is the built-in encoding for the Symbol font.
var Symbol = makeEncoding(symbolEncoding)

// ZapfDingbats is the built-in encoding of the ZapfDingbats font.
var ZapfDingbats = makeEncoding(zapfDingbatsEncoding)

// IsStandardLatin is the set of glyph names in the Adobe standard Latin
// character set.
var IsStandardLatin = func() map[string]bool {
	res := make(map[string]bool)
	for _, enc := range []*Encoding{&Standard, &WinAnsi, &MacRoman} {
		for name := range enc.Has {
			res[name] = true
		}
	}
	return res
}()

// IsNonSymbolic returns true if all glyphs are in the Adobe standard
// Latin character set.
func IsNonSymbolic(glyphNames []string) bool {
	for _, name := range glyphNames {
		if name != ".notdef" && !IsStandardLatin[name] {
			return false
		}
	}
	return true
}
