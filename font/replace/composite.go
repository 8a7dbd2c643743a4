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
	"seehuhn.de/go/pdffix/font/sfnt"
	"seehuhn.de/go/pdffix/font/tounicode"
	"seehuhn.de/go/pdffix/font/widths"
	"seehuhn.de/go/pdffix/pdf"
)

// Composite is a complete replacement for a composite font: the Type0
// and CIDFont dictionary entries, the descriptor, the font program and
// the ToUnicode mapping.  The replacement always uses the Identity
// CID ordering with CID equal to GID.
type Composite struct {
	FontDict    pdf.Dict
	CIDFontDict pdf.Dict
	Descriptor  *font.Descriptor
	Program     []byte
	ToUnicode   *tounicode.Info
}

// Composite builds a CIDFontType2 replacement for a composite font with
// the given CID ordering.  The writing direction of the original
// Encoding entry is preserved.
func (b *Builder) Composite(baseFont, ordering string, vertical bool) (*Composite, error) {
	program, err := b.store.CJK(ordering)
	if err != nil {
		return nil, err
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
			Font: baseFont,
		}
	}
	dw := ww[0]

	wMap := make(map[uint32]float64)
	for gid, w := range ww {
		if w != dw {
			wMap[uint32(gid)] = w
		}
	}

	// reverse character map: GID (= CID) to Unicode
	uniMap := make(map[uint16]string)
	for r, gid := range uni {
		if gid == 0 || gid > 0xFFFF || r > 0x10FFFF {
			continue
		}
		s := string(rune(r))
		if old, ok := uniMap[uint16(gid)]; !ok || s < old {
			uniMap[uint16(gid)] = s
		}
	}

	desc, err := deriveDescriptor(f, baseFont, true)
	if err != nil {
		return nil, err
	}

	encName := pdf.Name("Identity-H")
	if vertical {
		encName = "Identity-V"
	}

	cidFontDict := pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("CIDFontType2"),
		"BaseFont": pdf.Name(baseFont),
		"CIDSystemInfo": pdf.Dict{
			"Registry":   pdf.String("Adobe"),
			"Ordering":   pdf.String("Identity"),
			"Supplement": pdf.Integer(0),
		},
		"DW":          pdf.Number(dw),
		"CIDToGIDMap": pdf.Name("Identity"),
	}
	if w := widths.EncodeComposite(wMap); len(w) > 0 {
		cidFontDict["W"] = w
	}

	fontDict := pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("Type0"),
		"BaseFont": pdf.Name(baseFont),
		"Encoding": encName,
	}

	return &Composite{
		FontDict:    fontDict,
		CIDFontDict: cidFontDict,
		Descriptor:  desc,
		Program:     f.Encode(),
		ToUnicode:   tounicode.New(true, uniMap),
	}, nil
}
