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

// Package encoding resolves the character encodings of simple fonts and the
// CID to GID mapping of composite fonts.
package encoding

import (
	"seehuhn.de/go/pdffix/font/pdfenc"
	"seehuhn.de/go/pdffix/pdf"
)

// Simple gives the glyph name for each code of a simple font.
// The empty string indicates unused codes.
// The special value [UseBuiltin] indicates that the corresponding glyph from
// the font's built-in character map should be used.
type Simple func(code byte) string

// UseBuiltin is returned by a [Simple] encoding for codes which resolve
// through the font program's built-in character map.
const UseBuiltin = "@"

var (
	Builtin Simple = func(code byte) string {
		return UseBuiltin
	}
	Standard Simple = func(code byte) string {
		return pdfenc.Standard.Encoding[code]
	}
	WinAnsi Simple = func(code byte) string {
		return pdfenc.WinAnsi.Encoding[code]
	}
	MacRoman Simple = func(code byte) string {
		return pdfenc.MacRoman.Encoding[code]
	}
	Symbol Simple = func(code byte) string {
		return pdfenc.Symbol.Encoding[code]
	}
	ZapfDingbats Simple = func(code byte) string {
		return pdfenc.ZapfDingbats.Encoding[code]
	}
)

// Extract resolves the /Encoding entry of a simple font dictionary.
//
// The argument nonSymbolic indicates that the font descriptor has the
// non-symbolic flag set.  Non-symbolic fonts default to the standard
// encoding when no base encoding is given; symbolic fonts fall back to the
// font program's built-in character map instead.
func Extract(r pdf.Getter, obj pdf.Object, nonSymbolic bool) (Simple, error) {
	obj, err := pdf.Resolve(r, obj)
	if err != nil {
		return nil, err
	}

	var dflt Simple
	if nonSymbolic {
		dflt = Standard
	} else {
		dflt = Builtin
	}

	if name, ok := obj.(pdf.Name); ok {
		if enc := byName(name); enc != nil {
			return enc, nil
		}
		return dflt, nil
	}

	dict, _ := obj.(pdf.Dict)
	if dict == nil {
		return dflt, nil
	}

	baseEnc := dflt
	if baseEncName, _ := pdf.GetName(r, dict["BaseEncoding"]); baseEncName != "" {
		if enc := byName(baseEncName); enc != nil {
			baseEnc = enc
		}
	}

	// Each integer in the Differences array sets the current code, each
	// name assigns a glyph to the current code and increments it.
	differences := make(map[byte]string)
	if diffArray, _ := pdf.GetArray(r, dict["Differences"]); diffArray != nil {
		currentCode := pdf.Integer(-1)
		for _, item := range diffArray {
			item, err = pdf.Resolve(r, item)
			if err != nil {
				return nil, err
			}

			switch item := item.(type) {
			case pdf.Integer:
				currentCode = item
			case pdf.Name:
				if currentCode >= 0 && currentCode < 256 {
					differences[byte(currentCode)] = string(item)
					currentCode++
				}
			}
		}
	}
	if len(differences) == 0 {
		return baseEnc, nil
	}

	return func(code byte) string {
		if glyphName, ok := differences[code]; ok {
			return glyphName
		}
		return baseEnc(code)
	}, nil
}

func byName(name pdf.Name) Simple {
	switch name {
	case "StandardEncoding":
		return Standard
	case "WinAnsiEncoding":
		return WinAnsi
	case "MacRomanEncoding":
		return MacRoman
	}
	return nil
}
