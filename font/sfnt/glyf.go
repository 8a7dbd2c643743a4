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

// Outlines holds the glyph outline data of a TrueType font, split into
// per-glyph segments.  A nil entry is an empty glyph.
type Outlines struct {
	Glyphs [][]byte
}

// GetOutlines splits the glyf table into per-glyph segments using the
// loca table.
func (f *Font) GetOutlines() (*Outlines, error) {
	numGlyphs, err := f.NumGlyphs()
	if err != nil {
		return nil, err
	}
	head := f.Tables["head"]
	if len(head) < 54 {
		return nil, invalid("missing head table")
	}
	longFormat := binary.BigEndian.Uint16(head[50:]) != 0

	loca := f.Tables["loca"]
	glyf := f.Tables["glyf"]

	offset := func(i int) (uint32, error) {
		if longFormat {
			if len(loca) < 4*i+4 {
				return 0, invalid("loca table too short")
			}
			return binary.BigEndian.Uint32(loca[4*i:]), nil
		}
		if len(loca) < 2*i+2 {
			return 0, invalid("loca table too short")
		}
		return 2 * uint32(binary.BigEndian.Uint16(loca[2*i:])), nil
	}

	glyphs := make([][]byte, numGlyphs)
	for i := 0; i < numGlyphs; i++ {
		start, err := offset(i)
		if err != nil {
			return nil, err
		}
		end, err := offset(i + 1)
		if err != nil {
			return nil, err
		}
		if start > end || uint64(end) > uint64(len(glyf)) {
			return nil, invalid("glyph %d extends beyond end of glyf table", i)
		}
		if start < end {
			glyphs[i] = glyf[start:end]
		}
	}
	return &Outlines{Glyphs: glyphs}, nil
}

// SetOutlines rebuilds the glyf and loca tables and patches the glyph
// count and the loca format flag.
func (f *Font) SetOutlines(outlines *Outlines) error {
	numGlyphs := len(outlines.Glyphs)
	if err := f.setNumGlyphs(numGlyphs); err != nil {
		return err
	}

	total := 0
	for _, g := range outlines.Glyphs {
		total += (len(g) + 1) &^ 1
	}
	longFormat := total >= 1<<17

	glyf := make([]byte, 0, total)
	var loca []byte
	put := func(offs uint32) {
		if longFormat {
			loca = binary.BigEndian.AppendUint32(loca, offs)
		} else {
			loca = binary.BigEndian.AppendUint16(loca, uint16(offs/2))
		}
	}
	for _, g := range outlines.Glyphs {
		put(uint32(len(glyf)))
		glyf = append(glyf, g...)
		if len(g)%2 != 0 {
			glyf = append(glyf, 0)
		}
	}
	put(uint32(len(glyf)))

	f.Tables["glyf"] = glyf
	f.Tables["loca"] = loca
	head := f.Tables["head"]
	if len(head) < 54 {
		return invalid("missing head table")
	}
	if longFormat {
		binary.BigEndian.PutUint16(head[50:], 1)
	} else {
		binary.BigEndian.PutUint16(head[50:], 0)
	}
	return nil
}

// Flag bits in composite glyph component records.
const (
	flagArg1And2AreWords = 0x0001
	flagWeHaveAScale     = 0x0008
	flagMoreComponents   = 0x0020
	flagWeHaveXYScale    = 0x0040
	flagWeHave2x2        = 0x0080
)

// ShiftReferences adds delta to every component glyph index in composite
// glyphs.  This is needed when glyphs are inserted at the start of the
// glyph order.
func (o *Outlines) ShiftReferences(delta int) error {
	for i, g := range o.Glyphs {
		if len(g) < 10 {
			continue
		}
		numContours := int16(binary.BigEndian.Uint16(g))
		if numContours >= 0 {
			continue
		}

		g = append([]byte{}, g...)
		pos := 10
		for {
			if len(g) < pos+4 {
				return invalid("composite glyph %d truncated", i)
			}
			flags := binary.BigEndian.Uint16(g[pos:])
			gid := int(binary.BigEndian.Uint16(g[pos+2:])) + delta
			if gid < 0 || gid > 0xFFFF {
				return invalid("component index out of range in glyph %d", i)
			}
			binary.BigEndian.PutUint16(g[pos+2:], uint16(gid))

			pos += 4
			if flags&flagArg1And2AreWords != 0 {
				pos += 4
			} else {
				pos += 2
			}
			switch {
			case flags&flagWeHaveAScale != 0:
				pos += 2
			case flags&flagWeHaveXYScale != 0:
				pos += 4
			case flags&flagWeHave2x2 != 0:
				pos += 8
			}
			if flags&flagMoreComponents == 0 {
				break
			}
		}
		o.Glyphs[i] = g
	}
	return nil
}
