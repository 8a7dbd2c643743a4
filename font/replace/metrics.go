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
	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/pdffix/font"
	"seehuhn.de/go/pdffix/font/sfnt"
	"seehuhn.de/go/pdffix/pdf"
)

func i16(data []byte, pos int) int16 {
	return int16(uint16(data[pos])<<8 | uint16(data[pos+1]))
}

func u16At(data []byte, pos int) uint16 {
	return uint16(data[pos])<<8 | uint16(data[pos+1])
}

// deriveDescriptor computes a font descriptor from the tables of a
// replacement font program, with all metrics scaled to 1000 units per
// em.
func deriveDescriptor(f *sfnt.Font, fontName string, symbolic bool) (*font.Descriptor, error) {
	upem, err := f.UnitsPerEm()
	if err != nil {
		return nil, err
	}
	q := 1000 / float64(upem)

	d := &font.Descriptor{
		FontName:   fontName,
		IsSymbolic: symbolic,
	}

	if head := f.Tables["head"]; len(head) >= 54 {
		d.FontBBox = &pdf.Rectangle{
			LLx: float64(i16(head, 36)) * q,
			LLy: float64(i16(head, 38)) * q,
			URx: float64(i16(head, 40)) * q,
			URy: float64(i16(head, 42)) * q,
		}
	}

	if hhea := f.Tables["hhea"]; len(hhea) >= 8 {
		d.Ascent = float64(i16(hhea, 4)) * q
		d.Descent = float64(i16(hhea, 6)) * q
	}

	weight := 400.0
	if os2 := f.Tables["OS/2"]; len(os2) >= 64 {
		weight = float64(u16At(os2, 4))

		// the high byte of sFamilyClass gives the IBM class
		class := os2[30]
		d.IsSerif = class >= 1 && class <= 7
		d.IsScript = class == 10

		const fsSelItalic = 0x0001
		d.IsItalic = u16At(os2, 62)&fsSelItalic != 0

		if len(os2) >= 90 && u16At(os2, 0) >= 2 {
			d.CapHeight = float64(i16(os2, 88)) * q
		}
	}
	if d.CapHeight == 0 {
		d.CapHeight = d.Ascent
	}

	if post := f.Tables["post"]; len(post) >= 16 {
		angle := float64(int32(uint32(post[4])<<24|uint32(post[5])<<16|
			uint32(post[6])<<8|uint32(post[7]))) / 65536
		d.ItalicAngle = angle
		if angle != 0 {
			d.IsItalic = true
		}
		isFixed := uint32(post[12])<<24 | uint32(post[13])<<16 |
			uint32(post[14])<<8 | uint32(post[15])
		d.IsFixedPitch = isFixed != 0
	}

	// stem width estimated from the weight class
	d.StemV = 10 + 220*(weight/1000)*(weight/1000)

	return d, nil
}

// unicodeMap returns the best Unicode character map of the font.
func unicodeMap(f *sfnt.Font) (map[uint32]glyph.ID, error) {
	subtables, err := f.GetCmap()
	if err != nil {
		return nil, err
	}

	for _, key := range []sfnt.CmapKey{
		{PlatformID: 3, EncodingID: 10},
		{PlatformID: 3, EncodingID: 1},
		{PlatformID: 0, EncodingID: 4},
		{PlatformID: 0, EncodingID: 3},
	} {
		if data, ok := subtables[key]; ok {
			return sfnt.DecodeSubtable(data)
		}
	}
	return nil, &font.RepairError{
		Kind: font.EncodingUnresolvable,
		Err:  &font.InvalidFontError{SubSystem: "replace", Reason: "no Unicode cmap"},
	}
}

// scaledWidths returns all advance widths in glyph space units, indexed
// by glyph.
func scaledWidths(f *sfnt.Font) ([]float64, error) {
	upem, err := f.UnitsPerEm()
	if err != nil {
		return nil, err
	}
	q := 1000 / float64(upem)

	metrics, err := f.GetMetrics()
	if err != nil {
		return nil, err
	}
	ww := make([]float64, len(metrics.Widths))
	for i, w := range metrics.Widths {
		ww[i] = float64(w) * q
	}
	return ww, nil
}
