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

package replace

import (
	"seehuhn.de/go/pdffix/font"
	"seehuhn.de/go/pdffix/font/encoding"
	"seehuhn.de/go/pdffix/font/sfnt"
	"seehuhn.de/go/pdffix/font/tounicode"
	"seehuhn.de/go/pdffix/font/widths"
	"seehuhn.de/go/pdffix/pdf"
)

// Builder constructs replacement fonts from the programs in a Store.
type Builder struct {
	store *Store
}

// NewBuilder returns a Builder drawing on the given store.
func NewBuilder(store *Store) *Builder {
	return &Builder{store: store}
}

// Simple is a complete replacement for a non-embedded simple font: the
// font dictionary entries, the descriptor, the font program and the
// ToUnicode mapping.
type Simple struct {
	FontDict   pdf.Dict
	Descriptor *font.Descriptor
	Program    []byte
	ToUnicode  *tounicode.Info

	// Exact is false if the requested name was unknown and the default
	// replacement was used instead.
	Exact bool
}

// Simple builds a TrueType replacement for a non-embedded simple font.
// The enc argument is the font's resolved encoding; for the two symbol
// fonts it is overridden by the font's own special table.
func (b *Builder) Simple(postScriptName string, enc encoding.Simple) (*Simple, error) {
	symbolic := postScriptName == "Symbol" || postScriptName == "ZapfDingbats"

	var program []byte
	exact := true
	if symbolic {
		var err error
		program, err = b.store.Symbolic(postScriptName)
		if err != nil {
			return nil, err
		}
		if postScriptName == "Symbol" {
			enc = encoding.Symbol
		} else {
			enc = encoding.ZapfDingbats
		}
	} else {
		program, exact = b.store.Latin(postScriptName)
		if enc == nil {
			enc = encoding.Standard
		}
	}

	f, err := sfnt.Parse(program)
	if err != nil {
		return nil, err
	}
	uni, err := unicodeMap(f)
	if err != nil {
		return nil, err
	}
	ww, err := scaledWidths(f)
	if err != nil {
		return nil, err
	}
	if len(ww) == 0 {
		return nil, &font.RepairError{
			Kind: font.FontProgramCorrupt,
			Font: postScriptName,
		}
	}
	notdefWidth := ww[0]

	dingbats := postScriptName == "ZapfDingbats"
	codeWidths := make([]float64, 256)
	uniMap := make(map[uint16]string)
	for code := 0; code < 256; code++ {
		codeWidths[code] = notdefWidth

		name := enc(byte(code))
		if name == "" || name == encoding.UseBuiltin {
			continue
		}
		rr := encoding.ToUnicode(name, dingbats)
		if len(rr) == 0 {
			continue
		}
		uniMap[uint16(code)] = string(rr)
		if gid, ok := uni[uint32(rr[0])]; ok && int(gid) < len(ww) {
			codeWidths[code] = ww[gid]
		}
	}

	desc, err := deriveDescriptor(f, postScriptName, symbolic)
	if err != nil {
		return nil, err
	}

	info := widths.EncodeSimple(codeWidths)
	desc.MissingWidth = pdf.Number(info.MissingWidth)

	fontDict := pdf.Dict{
		"Type":      pdf.Name("Font"),
		"Subtype":   pdf.Name("TrueType"),
		"BaseFont":  pdf.Name(postScriptName),
		"FirstChar": info.FirstChar,
		"LastChar":  info.LastChar,
		"Widths":    info.Widths,
	}

	return &Simple{
		FontDict:   fontDict,
		Descriptor: desc,
		Program:    f.Encode(),
		ToUnicode:  tounicode.New(false, uniMap),
		Exact:      exact,
	}, nil
}
