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

package cff

// readFDSelect decodes the FDSelect structure into one Font DICT index
// per glyph.
func readFDSelect(c *cursor, nGlyphs, nFonts int) ([]uint8, error) {
	format, err := c.u8()
	if err != nil {
		return nil, err
	}

	res := make([]uint8, nGlyphs)
	switch format {
	case 0:
		for i := 0; i < nGlyphs; i++ {
			fd, err := c.u8()
			if err != nil {
				return nil, err
			}
			if int(fd) >= nFonts {
				return nil, invalid("FDSelect out of range")
			}
			res[i] = fd
		}
	case 3:
		nRanges, err := c.u16()
		if err != nil {
			return nil, err
		}
		if nGlyphs > 0 && nRanges == 0 {
			return nil, invalid("no FDSelect data found")
		}
		prev := -1
		prevFD := uint8(0)
		for i := 0; i < int(nRanges); i++ {
			first, err := c.u16()
			if err != nil {
				return nil, err
			}
			if int(first) <= prev || (i == 0 && first != 0) {
				return nil, invalid("FDSelect ranges out of order")
			}
			fd, err := c.u8()
			if err != nil {
				return nil, err
			}
			if int(fd) >= nFonts {
				return nil, invalid("FDSelect out of range")
			}
			if prev >= 0 {
				for g := prev; g < int(first) && g < nGlyphs; g++ {
					res[g] = prevFD
				}
			}
			prev = int(first)
			prevFD = fd
		}
		sentinel, err := c.u16()
		if err != nil {
			return nil, err
		}
		if int(sentinel) != nGlyphs {
			return nil, invalid("wrong FDSelect sentinel")
		}
		for g := prev; g < nGlyphs; g++ {
			res[g] = prevFD
		}
	default:
		return nil, unsupported("FDSelect format %d", format)
	}
	return res, nil
}

// encodeFDSelect picks format 3 unless the plain format 0 array is
// shorter.
func encodeFDSelect(fdSelect []uint8) []byte {
	nGlyphs := len(fdSelect)
	format0Length := nGlyphs + 1

	buf := []byte{3, 0, 0}
	var currentFD uint8
	nSeg := 0
	for i := 0; i < nGlyphs; i++ {
		fd := fdSelect[i]
		if i > 0 && fd == currentFD {
			continue
		}
		if len(buf)+3+2 >= format0Length {
			buf = make([]byte, nGlyphs+1)
			copy(buf[1:], fdSelect)
			return buf
		}
		buf = append(buf, byte(i>>8), byte(i), fd)
		nSeg++
		currentFD = fd
	}
	buf = append(buf, byte(nGlyphs>>8), byte(nGlyphs))
	buf[1], buf[2] = byte(nSeg>>8), byte(nSeg)
	return buf
}
