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

package sfnt

import (
	"encoding/binary"
)

// Metrics holds per-glyph horizontal metrics in font design units.
type Metrics struct {
	Widths       []uint16
	LeftSideBear []int16
}

// GetMetrics decodes the hmtx table.  Glyphs beyond the last long
// metric repeat the last advance width, as the format prescribes.
func (f *Font) GetMetrics() (*Metrics, error) {
	numGlyphs, err := f.NumGlyphs()
	if err != nil {
		return nil, err
	}
	hhea := f.Tables["hhea"]
	if len(hhea) < 36 {
		return nil, invalid("missing hhea table")
	}
	numLong := int(binary.BigEndian.Uint16(hhea[34:]))
	if numLong > numGlyphs {
		numLong = numGlyphs
	}
	hmtx := f.Tables["hmtx"]

	m := &Metrics{
		Widths:       make([]uint16, numGlyphs),
		LeftSideBear: make([]int16, numGlyphs),
	}
	var lastWidth uint16
	for i := 0; i < numGlyphs; i++ {
		if i < numLong {
			if len(hmtx) >= 4*i+4 {
				lastWidth = binary.BigEndian.Uint16(hmtx[4*i:])
				m.LeftSideBear[i] = int16(binary.BigEndian.Uint16(hmtx[4*i+2:]))
			}
			m.Widths[i] = lastWidth
		} else {
			m.Widths[i] = lastWidth
			pos := 4*numLong + 2*(i-numLong)
			if len(hmtx) >= pos+2 {
				m.LeftSideBear[i] = int16(binary.BigEndian.Uint16(hmtx[pos:]))
			}
		}
	}
	return m, nil
}

// SetMetrics rebuilds the hmtx table and patches the long metric count
// in the hhea table.  Trailing glyphs with equal advance width share the
// short entry form.
func (f *Font) SetMetrics(m *Metrics) error {
	numGlyphs := len(m.Widths)
	if len(m.LeftSideBear) != numGlyphs {
		return invalid("metrics length mismatch")
	}
	hhea := f.Tables["hhea"]
	if len(hhea) < 36 {
		return invalid("missing hhea table")
	}

	numLong := numGlyphs
	for numLong > 1 && m.Widths[numLong-1] == m.Widths[numLong-2] {
		numLong--
	}

	hmtx := make([]byte, 4*numLong+2*(numGlyphs-numLong))
	for i := 0; i < numLong; i++ {
		binary.BigEndian.PutUint16(hmtx[4*i:], m.Widths[i])
		binary.BigEndian.PutUint16(hmtx[4*i+2:], uint16(m.LeftSideBear[i]))
	}
	for i := numLong; i < numGlyphs; i++ {
		pos := 4*numLong + 2*(i-numLong)
		binary.BigEndian.PutUint16(hmtx[pos:], uint16(m.LeftSideBear[i]))
	}

	f.Tables["hmtx"] = hmtx
	binary.BigEndian.PutUint16(hhea[34:], uint16(numLong))
	return nil
}
