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

package type1

// The Type 1 stream cipher.  The same XOR-feedback scheme is used for
// the eexec section and for individual charstrings, with different
// seeds.
const (
	c1 = 52845
	c2 = 22719

	eexecSeed      = 55665
	charstringSeed = 4330
)

func encrypt(plain []byte, r uint16) []byte {
	out := make([]byte, len(plain))
	for i, b := range plain {
		c := b ^ byte(r>>8)
		out[i] = c
		r = (uint16(c)+r)*c1 + c2
	}
	return out
}

func decrypt(cipher []byte, r uint16) []byte {
	out := make([]byte, len(cipher))
	for i, b := range cipher {
		out[i] = b ^ byte(r>>8)
		r = (uint16(b)+r)*c1 + c2
	}
	return out
}

// decryptCharstring strips the lenIV leading filler bytes.
func decryptCharstring(cipher []byte, lenIV int) []byte {
	plain := decrypt(cipher, charstringSeed)
	if lenIV < 0 || lenIV > len(plain) {
		return nil
	}
	return plain[lenIV:]
}

func encryptCharstring(plain []byte, lenIV int) []byte {
	padded := make([]byte, lenIV, lenIV+len(plain))
	padded = append(padded, plain...)
	return encrypt(padded, charstringSeed)
}

// Type 1 charstring operators used when building glyphs.
const (
	t1HsbW    = 13
	t1EndChar = 14
)

// appendT1Int appends the Type 1 charstring encoding of an integer.
func appendT1Int(buf []byte, x int32) []byte {
	switch {
	case x >= -107 && x <= 107:
		return append(buf, byte(x+139))
	case x >= 108 && x <= 1131:
		x -= 108
		return append(buf, byte(x>>8+247), byte(x))
	case x >= -1131 && x <= -108:
		x = -108 - x
		return append(buf, byte(x>>8+251), byte(x))
	default:
		return append(buf, 255,
			byte(x>>24), byte(x>>16), byte(x>>8), byte(x))
	}
}
