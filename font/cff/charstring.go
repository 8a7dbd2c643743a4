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
	"math"
)

// Type 2 charstring operators used by the width scanner.
const (
	t2HStem     = 0x01
	t2VStem     = 0x03
	t2VMoveTo   = 0x04
	t2CallSubr  = 0x0a
	t2Return    = 0x0b
	t2EndChar   = 0x0e
	t2HStemHM   = 0x12
	t2HintMask  = 0x13
	t2CntrMask  = 0x14
	t2RMoveTo   = 0x15
	t2HMoveTo   = 0x16
	t2VStemHM   = 0x17
	t2CallGSubr = 0x1d
)

// appendT2Int appends the Type 2 charstring encoding of an integer.
func appendT2Int(buf []byte, x int32) []byte {
	switch {
	case x >= -107 && x <= 107:
		return append(buf, byte(x+139))
	case x >= 108 && x <= 1131:
		x -= 108
		return append(buf, byte(x>>8+247), byte(x))
	case x >= -1131 && x <= -108:
		x = -108 - x
		return append(buf, byte(x>>8+251), byte(x))
	case x >= -32768 && x <= 32767:
		return append(buf, 28, byte(x>>8), byte(x))
	default:
		// 16.16 fixed point with zero fraction
		return append(buf, 255, byte(x>>8), byte(x), 0, 0)
	}
}

// emptyCharstring returns a blank glyph with the given advance width.
// The leading width operand is omitted when the width equals
// defaultWidthX.
func emptyCharstring(width, defaultWidthX, nominalWidthX float64) []byte {
	var buf []byte
	if width != defaultWidthX {
		buf = appendT2Int(buf, int32(math.Round(width-nominalWidthX)))
	}
	buf = appendT2Int(buf, 0)
	buf = append(buf, t2HMoveTo, t2EndChar)
	return buf
}

// widthScanner extracts the advance width of a Type 2 charstring.  The
// width, when present, is the first operand before the first
// stack-clearing operator; whether it is present follows from the
// operand count relative to the operator's canonical arity.
type widthScanner struct {
	lsubrs [][]byte
	gsubrs [][]byte
	stack  []float64

	found bool
	width float64
	done  bool
}

func subrBias(n int) int {
	if n < 1240 {
		return 107
	}
	if n < 33900 {
		return 1131
	}
	return 32768
}

func (s *widthScanner) run(code []byte, depth int) error {
	if depth > 10 {
		return invalid("charstring subroutine nesting too deep")
	}
	for len(code) > 0 && !s.done {
		b0 := code[0]
		switch {
		case b0 == 28:
			if len(code) < 3 {
				return invalid("truncated charstring")
			}
			s.stack = append(s.stack, float64(int16(uint16(code[1])<<8|uint16(code[2]))))
			code = code[3:]
		case b0 == 255:
			if len(code) < 5 {
				return invalid("truncated charstring")
			}
			v := int32(uint32(code[1])<<24 | uint32(code[2])<<16 |
				uint32(code[3])<<8 | uint32(code[4]))
			s.stack = append(s.stack, float64(v)/65536)
			code = code[5:]
		case b0 >= 32 && b0 <= 246:
			s.stack = append(s.stack, float64(int32(b0)-139))
			code = code[1:]
		case b0 >= 247 && b0 <= 250:
			if len(code) < 2 {
				return invalid("truncated charstring")
			}
			s.stack = append(s.stack, float64(int32(b0)*256+int32(code[1])+(108-247*256)))
			code = code[2:]
		case b0 >= 251 && b0 <= 254:
			if len(code) < 2 {
				return invalid("truncated charstring")
			}
			s.stack = append(s.stack, float64(-int32(b0)*256-int32(code[1])-(108-251*256)))
			code = code[2:]
		case b0 == t2CallSubr || b0 == t2CallGSubr:
			subrs := s.lsubrs
			if b0 == t2CallGSubr {
				subrs = s.gsubrs
			}
			if len(s.stack) == 0 {
				return invalid("charstring subroutine call without index")
			}
			idx := int(s.stack[len(s.stack)-1]) + subrBias(len(subrs))
			s.stack = s.stack[:len(s.stack)-1]
			if idx < 0 || idx >= len(subrs) {
				return invalid("charstring subroutine index out of range")
			}
			err := s.run(subrs[idx], depth+1)
			if err != nil {
				return err
			}
			code = code[1:]
		case b0 == t2Return:
			return nil
		default:
			s.operator(b0)
			return nil
		}
	}
	return nil
}

// operator decides the width question at the first stack-clearing
// operator and stops the scan.
func (s *widthScanner) operator(op byte) {
	n := len(s.stack)
	hasWidth := false
	switch op {
	case t2HStem, t2VStem, t2HStemHM, t2VStemHM, t2HintMask, t2CntrMask:
		hasWidth = n%2 == 1
	case t2RMoveTo:
		hasWidth = n == 3
	case t2HMoveTo, t2VMoveTo:
		hasWidth = n == 2
	case t2EndChar:
		hasWidth = n == 1 || n == 5
	}
	if hasWidth && n > 0 {
		s.found = true
		s.width = s.stack[0]
	}
	s.done = true
}

// charstringWidth returns the advance width stored in a charstring, or
// defaultWidthX if the charstring carries no width operand.
func charstringWidth(code []byte, defaultWidthX, nominalWidthX float64, lsubrs, gsubrs [][]byte) (float64, error) {
	s := &widthScanner{lsubrs: lsubrs, gsubrs: gsubrs}
	err := s.run(code, 0)
	if err != nil {
		return 0, err
	}
	if s.found {
		return nominalWidthX + s.width, nil
	}
	return defaultWidthX, nil
}
