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

package tounicode

import (
	"bytes"
	"fmt"
	"unicode/utf16"

	"seehuhn.de/go/postscript"

	"seehuhn.de/go/pdffix/font"
)

// Read parses a ToUnicode CMap.  The data is structurally validated first;
// invalid structure is a hard error and yields no mapping.
//
// Both bfchar blocks and bfrange blocks are understood, the latter in both
// destination forms (an incrementing start value, or an array with one
// value per code).
func Read(data []byte) (*Info, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	raw, err := postscript.ReadCMap(bytes.NewReader(data))
	if err != nil {
		return nil, &font.RepairError{Kind: font.CMapStructureInvalid, Err: err}
	}
	codeMap, ok := raw["CodeMap"].(*postscript.CMapInfo)
	if !ok {
		return nil, &font.RepairError{
			Kind: font.CMapStructureInvalid,
			Err:  fmt.Errorf("unsupported CMap format"),
		}
	}

	info := &Info{}

	codeLen := 1
	if len(codeMap.CodeSpaceRanges) > 0 {
		codeLen = len(codeMap.CodeSpaceRanges[0].Low)
	}
	if codeLen == 2 {
		info.TwoByte = true
	}

	// codes outside the declared codespace width are invalid and skipped
	m := make(map[uint16]string)
	for _, entry := range codeMap.BfRanges {
		if len(entry.Low) != codeLen || len(entry.High) != codeLen {
			continue
		}
		low := code(entry.Low)
		high := code(entry.High)
		if high < low {
			continue
		}

		switch dst := entry.Dst.(type) {
		case postscript.String:
			s, err := toString(dst)
			if err != nil {
				continue
			}
			rr := []rune(s)
			for c := int(low); c <= int(high); c++ {
				m[uint16(c)] = string(rr)
				if len(rr) > 0 {
					rr[len(rr)-1]++
				}
			}
		case postscript.Array:
			for i, v := range dst {
				if int(low)+i > int(high) {
					break
				}
				s, err := toString(v)
				if err != nil {
					continue
				}
				m[low+uint16(i)] = s
			}
		}
	}
	for _, entry := range codeMap.BfChars {
		if len(entry.Src) != codeLen {
			continue
		}
		s, err := toString(entry.Dst)
		if err != nil {
			continue
		}
		m[code(entry.Src)] = s
	}

	info.Singles = New(info.TwoByte, m).Singles
	return info, nil
}

func code(b []byte) uint16 {
	var c uint16
	for _, x := range b {
		c = c<<8 | uint16(x)
	}
	return c
}

// toString decodes a UTF-16BE destination string.
func toString(obj postscript.Object) (string, error) {
	dst, ok := obj.(postscript.String)
	if !ok || len(dst)%2 != 0 {
		return "", fmt.Errorf("invalid ToUnicode destination")
	}
	buf := make([]uint16, 0, len(dst)/2)
	for i := 0; i < len(dst); i += 2 {
		buf = append(buf, uint16(dst[i])<<8|uint16(dst[i+1]))
	}
	return string(utf16.Decode(buf)), nil
}
