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

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// cffDict holds the decoded key/value pairs of a Top DICT, Font DICT or
// Private DICT.  Values are int32 or float64; string-valued operators
// keep their SID as int32.
type cffDict map[dictOp][]interface{}

func decodeDict(buf []byte) (cffDict, error) {
	res := cffDict{}
	var stack []interface{}

	flush := func(op dictOp) {
		res[op] = stack
		stack = nil
	}

	for len(buf) > 0 {
		b0 := buf[0]
		switch {
		case b0 == 12:
			if len(buf) < 2 {
				return nil, errCorruptDict
			}
			flush(dictOp(b0)<<8 + dictOp(buf[1]))
			buf = buf[2:]
		case b0 <= 21:
			flush(dictOp(b0))
			buf = buf[1:]
		case b0 <= 27: // values 22-27, 31, and 255 are reserved
			return nil, errCorruptDict
		case b0 == 28:
			if len(buf) < 3 {
				return nil, errCorruptDict
			}
			stack = append(stack, int32(int16(uint16(buf[1])<<8|uint16(buf[2]))))
			buf = buf[3:]
		case b0 == 29:
			if len(buf) < 5 {
				return nil, errCorruptDict
			}
			stack = append(stack, int32(uint32(buf[1])<<24|uint32(buf[2])<<16|
				uint32(buf[3])<<8|uint32(buf[4])))
			buf = buf[5:]
		case b0 == 30:
			tmp, x, err := decodeDictFloat(buf[1:])
			if err != nil {
				return nil, err
			}
			stack = append(stack, x)
			buf = tmp
		case b0 == 31:
			return nil, errCorruptDict
		case b0 <= 246:
			stack = append(stack, int32(b0)-139)
			buf = buf[1:]
		case b0 <= 250:
			if len(buf) < 2 {
				return nil, errCorruptDict
			}
			stack = append(stack, int32(b0)*256+int32(buf[1])+(108-247*256))
			buf = buf[2:]
		case b0 <= 254:
			if len(buf) < 2 {
				return nil, errCorruptDict
			}
			stack = append(stack, -int32(b0)*256-int32(buf[1])-(108-251*256))
			buf = buf[2:]
		default:
			return nil, errCorruptDict
		}
	}
	if len(stack) > 0 {
		return nil, errCorruptDict
	}
	return res, nil
}

// decodeDictFloat decodes a real number, without the leading 0x1e.
func decodeDictFloat(buf []byte) ([]byte, float64, error) {
	var s []byte

	first := true
	var next byte
	for {
		var nibble byte
		if first {
			if len(buf) == 0 {
				return nil, 0, invalid("incomplete real number")
			}
			next, buf = buf[0], buf[1:]
			nibble = next >> 4
			next = next & 15
			first = false
		} else {
			nibble = next
			first = true
		}

		switch nibble {
		case 0x0a:
			s = append(s, '.')
		case 0x0b:
			s = append(s, 'e')
		case 0x0c:
			s = append(s, 'e', '-')
		case 0x0d:
			return nil, 0, invalid("unsupported real number format")
		case 0x0e:
			s = append(s, '-')
		case 0x0f:
			x, err := strconv.ParseFloat(string(s), 64)
			return buf, x, err
		default:
			s = append(s, '0'+nibble)
		}
	}
}

func (d cffDict) getInt(op dictOp, defVal int32) int32 {
	if len(d[op]) != 1 {
		return defVal
	}
	if x, ok := d[op][0].(int32); ok {
		return x
	}
	if x, ok := d[op][0].(float64); ok {
		return int32(x)
	}
	return defVal
}

func (d cffDict) getFloat(op dictOp, defVal float64) float64 {
	if len(d[op]) != 1 {
		return defVal
	}
	switch x := d[op][0].(type) {
	case int32:
		return float64(x)
	case float64:
		return x
	}
	return defVal
}

func (d cffDict) getPair(op dictOp) (int32, int32, bool) {
	xy := d[op]
	if len(xy) != 2 {
		return 0, 0, false
	}
	x, ok := xy[0].(int32)
	if !ok {
		return 0, 0, false
	}
	y, ok := xy[1].(int32)
	if !ok {
		return 0, 0, false
	}
	return x, y, true
}

func (d cffDict) setInt(op dictOp, x int32) {
	d[op] = []interface{}{x}
}

var defaultFontMatrix = [6]float64{0.001, 0, 0, 0.001, 0, 0}

func (d cffDict) getFontMatrix() [6]float64 {
	res := defaultFontMatrix
	xx, ok := d[opFontMatrix]
	if !ok || len(xx) != 6 {
		return res
	}
	for i, x := range xx {
		switch xi := x.(type) {
		case float64:
			res[i] = xi
		case int32:
			res[i] = float64(xi)
		default:
			return defaultFontMatrix
		}
	}
	return res
}

func (d cffDict) keys() []dictOp {
	keys := make([]dictOp, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	// ROS must come first in a Top DICT
	conv := func(op dictOp) int {
		if op == opROS {
			return -1
		} else if op == opSyntheticBase {
			return -2
		}
		return int(op)
	}
	sort.Slice(keys, func(i, j int) bool {
		return conv(keys[i]) < conv(keys[j])
	})
	return keys
}

func (d cffDict) encode() []byte {
	keys := d.keys()

	res := &bytes.Buffer{}
	for _, op := range keys {
		for _, arg := range d[op] {
			switch a := arg.(type) {
			case int32:
				switch {
				case a >= -107 && a <= 107:
					res.WriteByte(byte(a + 139))
				case a >= 108 && a <= 1131:
					a -= 108
					b1 := byte(a)
					a >>= 8
					res.Write([]byte{byte(a + 247), b1})
				case a >= -1131 && a <= -108:
					a = -108 - a
					b1 := byte(a)
					a >>= 8
					res.Write([]byte{byte(a + 251), b1})
				case a >= -32768 && a <= 32767:
					a16 := uint16(a)
					res.Write([]byte{28, byte(a16 >> 8), byte(a16)})
				default:
					a32 := uint32(a)
					res.Write([]byte{29, byte(a32 >> 24), byte(a32 >> 16),
						byte(a32 >> 8), byte(a32)})
				}
			case float64:
				res.WriteByte(0x1e)
				s := fmt.Sprintf("%g::", a)
				first := true
				var tmp byte
				for i := 0; i < len(s); i++ {
					var nibble byte
					c := s[i]
					switch {
					case c >= '0' && c <= '9':
						nibble = c - '0'
					case c == '.':
						nibble = 0x0a
					case c == 'e':
						if s[i+1] != '-' {
							nibble = 0x0b
						} else {
							i++
							nibble = 0x0c
						}
					case i == 0 && c == '-':
						nibble = 0x0e
					case c == ':':
						nibble = 0x0f
					}
					if first {
						tmp = nibble << 4
					} else {
						res.WriteByte(tmp | nibble)
					}
					first = !first
				}
			}
		}
		if op > 255 {
			res.WriteByte(12)
		}
		res.WriteByte(byte(op))
	}
	return res.Bytes()
}

type dictOp uint16

const (
	// Top DICT operators
	opVersion           dictOp = 0x0000
	opNotice            dictOp = 0x0001
	opFullName          dictOp = 0x0002
	opFamilyName        dictOp = 0x0003
	opWeight            dictOp = 0x0004
	opFontBBox          dictOp = 0x0005
	opCharset           dictOp = 0x000F
	opEncoding          dictOp = 0x0010
	opCharStrings       dictOp = 0x0011
	opPrivate           dictOp = 0x0012
	opCopyright         dictOp = 0x0C00
	opIsFixedPitch      dictOp = 0x0C01
	opItalicAngle       dictOp = 0x0C02
	opUnderlinePosition dictOp = 0x0C03
	opPaintType         dictOp = 0x0C05
	opCharstringType    dictOp = 0x0C06
	opFontMatrix        dictOp = 0x0C07
	opSyntheticBase     dictOp = 0x0C14
	opPostScript        dictOp = 0x0C15
	opBaseFontName      dictOp = 0x0C16
	opROS               dictOp = 0x0C1E
	opCIDFontVersion    dictOp = 0x0C1F
	opCIDCount          dictOp = 0x0C22
	opFDArray           dictOp = 0x0C24
	opFDSelect          dictOp = 0x0C25
	opFontName          dictOp = 0x0C26

	// Private DICT operators
	opSubrs         dictOp = 0x0013
	opDefaultWidthX dictOp = 0x0014
	opNominalWidthX dictOp = 0x0015
)

var errCorruptDict = invalid("invalid DICT")
