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

// readCharset decodes a charset into one SID (or CID) per glyph.
// Glyph 0 is always SID 0, and is not stored in the file.
func readCharset(c *cursor, nGlyphs int) ([]int32, error) {
	format, err := c.u8()
	if err != nil {
		return nil, err
	}

	charset := make([]int32, 0, nGlyphs)
	charset = append(charset, 0)
	switch format {
	case 0:
		for len(charset) < nGlyphs {
			sid, err := c.u16()
			if err != nil {
				return nil, err
			}
			charset = append(charset, int32(sid))
		}
	case 1:
		for len(charset) < nGlyphs {
			first, err := c.u16()
			if err != nil {
				return nil, err
			}
			nLeft, err := c.u8()
			if err != nil {
				return nil, err
			}
			for i := 0; i <= int(nLeft); i++ {
				charset = append(charset, int32(int(first)+i))
			}
		}
	case 2:
		for len(charset) < nGlyphs {
			first, err := c.u16()
			if err != nil {
				return nil, err
			}
			nLeft, err := c.u16()
			if err != nil {
				return nil, err
			}
			for i := 0; i <= int(nLeft); i++ {
				charset = append(charset, int32(int(first)+i))
			}
		}
	default:
		return nil, unsupported("charset format %d", format)
	}
	if len(charset) > nGlyphs {
		charset = charset[:nGlyphs]
	}
	return charset, nil
}

// encodeCharset picks the shortest of the three charset formats.
func encodeCharset(names []int32) ([]byte, error) {
	if len(names) == 0 || names[0] != 0 {
		return nil, invalid("invalid charset")
	}
	names = names[1:]

	// find runs of consecutive values
	var runs []int
	for i := 0; i < len(names); i++ {
		if i == 0 || names[i] != names[i-1]+1 {
			runs = append(runs, i)
		}
	}
	runs = append(runs, len(names))

	length0 := 1 + 2*len(names)

	length1 := 1 + 3*(len(runs)-1)
	for i := 0; i < len(runs)-1; i++ {
		d := runs[i+1] - runs[i]
		for d > 256 {
			length1 += 3
			d -= 256
		}
	}

	length2 := 1 + 4*(len(runs)-1)

	var buf []byte
	if length0 <= length1 && length0 <= length2 {
		buf = make([]byte, length0)
		buf[0] = 0
		for i, name := range names {
			buf[2*i+1] = byte(name >> 8)
			buf[2*i+2] = byte(name)
		}
	} else if length1 < length2 {
		buf = make([]byte, 0, length1)
		buf = append(buf, 1)
		for i := 0; i < len(runs)-1; i++ {
			name := names[runs[i]]
			dd := runs[i+1] - runs[i]
			for dd > 0 {
				d := dd - 1
				if d > 255 {
					d = 255
				}
				buf = append(buf, byte(name>>8), byte(name), byte(d))
				name += int32(d + 1)
				dd -= d + 1
			}
		}
	} else {
		buf = make([]byte, 0, length2)
		buf = append(buf, 2)
		for i := 0; i < len(runs)-1; i++ {
			name := names[runs[i]]
			d := runs[i+1] - runs[i] - 1
			buf = append(buf, byte(name>>8), byte(name), byte(d>>8), byte(d))
		}
	}
	return buf, nil
}
