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

// Package type1 edits Type 1 font programs.  The eexec section is
// decrypted on parse and re-encrypted on encode, so that charstrings
// can be added without disturbing the rest of the program.
package type1

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"seehuhn.de/go/pdffix/font"
)

// Font is a decoded Type 1 font program.
type Font struct {
	// clear is the cleartext part of the program, up to and including
	// the whitespace after the "eexec" keyword.
	clear []byte

	// private is the decrypted eexec section, including its leading
	// random bytes.
	private []byte

	// trailer is the cleartext part after the encrypted section,
	// normally 512 zeros and a "cleartomark".
	trailer []byte

	lenIV  int
	rd, nd string
}

func invalid(format string, a ...interface{}) error {
	return &font.InvalidFontError{
		SubSystem: "type1",
		Reason:    fmt.Sprintf(format, a...),
	}
}

var lenIVRegexp = regexp.MustCompile(`/lenIV\s+(\d+)\s`)

// Parse decodes a Type 1 font program, in raw, PFB or hex-eexec form.
func Parse(data []byte) (*Font, error) {
	if len(data) >= 2 && data[0] == 0x80 {
		var err error
		data, err = unwrapPFB(data)
		if err != nil {
			return nil, err
		}
	}

	eexecIdx := bytes.Index(data, []byte("eexec"))
	if eexecIdx < 0 {
		return nil, invalid("missing eexec section")
	}
	encStart := eexecIdx + 5
	for encStart < len(data) && isSpace(data[encStart]) {
		encStart++
	}

	trailerStart := findTrailer(data, encStart)

	encrypted := data[encStart:trailerStart]
	if isHex(encrypted) {
		var err error
		encrypted, err = decodeHex(encrypted)
		if err != nil {
			return nil, err
		}
	}

	f := &Font{
		clear:   data[:encStart],
		private: decrypt(encrypted, eexecSeed),
		trailer: data[trailerStart:],
		lenIV:   4,
		rd:      "RD",
		nd:      "ND",
	}
	if !bytes.Contains(f.private, []byte("/Private")) {
		return nil, invalid("eexec decryption failed")
	}
	if m := lenIVRegexp.FindSubmatch(f.private); m != nil {
		x, err := strconv.Atoi(string(m[1]))
		if err == nil && x >= 0 && x < 16 {
			f.lenIV = x
		}
	}
	if bytes.Contains(f.private, []byte(" -| ")) {
		f.rd, f.nd = "-|", "|-"
	}

	// fail early on fonts we cannot edit
	_, _, err := f.scanCharstrings()
	if err != nil {
		return nil, err
	}
	return f, nil
}

// unwrapPFB concatenates the segments of a PFB file.
func unwrapPFB(data []byte) ([]byte, error) {
	var out []byte
	pos := 0
	for pos+2 <= len(data) {
		if data[pos] != 0x80 {
			return nil, invalid("malformed PFB segment header")
		}
		segType := data[pos+1]
		if segType == 3 { // end of file
			break
		}
		if segType != 1 && segType != 2 {
			return nil, invalid("unknown PFB segment type %d", segType)
		}
		if pos+6 > len(data) {
			return nil, invalid("truncated PFB segment header")
		}
		length := int(data[pos+2]) | int(data[pos+3])<<8 |
			int(data[pos+4])<<16 | int(data[pos+5])<<24
		pos += 6
		if length < 0 || pos+length > len(data) {
			return nil, invalid("PFB segment length out of range")
		}
		out = append(out, data[pos:pos+length]...)
		pos += length
	}
	return out, nil
}

// findTrailer locates the start of the cleartext trailer: the trailing
// run of zeros (and whitespace), plus an optional "cleartomark".
func findTrailer(data []byte, min int) int {
	end := len(data)
	for end > min && isSpace(data[end-1]) {
		end--
	}
	haveMark := false
	if end >= min+11 && string(data[end-11:end]) == "cleartomark" {
		end -= 11
		haveMark = true
	}
	start := end
	zeros := 0
	for start > min && (data[start-1] == '0' || isSpace(data[start-1])) {
		if data[start-1] == '0' {
			zeros++
		}
		start--
	}
	// a short run of zero bytes may just be ciphertext
	if zeros >= 16 {
		return start
	}
	if haveMark {
		return end
	}
	return len(data)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func isHex(data []byte) bool {
	n := 4
	if len(data) < n {
		return false
	}
	for _, b := range data[:n] {
		switch {
		case b >= '0' && b <= '9':
		case b >= 'a' && b <= 'f':
		case b >= 'A' && b <= 'F':
		case isSpace(b):
		default:
			return false
		}
	}
	return true
}

func decodeHex(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	haveHi := false
	for _, b := range data {
		var nibble byte
		switch {
		case b >= '0' && b <= '9':
			nibble = b - '0'
		case b >= 'a' && b <= 'f':
			nibble = b - 'a' + 10
		case b >= 'A' && b <= 'F':
			nibble = b - 'A' + 10
		case isSpace(b):
			continue
		default:
			return nil, invalid("invalid hex digit %q", b)
		}
		if haveHi {
			out = append(out, hi<<4|nibble)
			haveHi = false
		} else {
			hi = nibble
			haveHi = true
		}
	}
	return out, nil
}

// Encode re-serializes the font with a freshly encrypted eexec section.
func (f *Font) Encode() []byte {
	out := make([]byte, 0, len(f.clear)+len(f.private)+len(f.trailer))
	out = append(out, f.clear...)
	out = append(out, encrypt(f.private, eexecSeed)...)
	out = append(out, f.trailer...)
	return out
}

// Lengths returns the clear, encrypted and trailer byte counts of the
// encoded program, as declared in a FontFile stream dictionary.
func (f *Font) Lengths() (int, int, int) {
	return len(f.clear), len(f.private), len(f.trailer)
}

// scanCharstrings decodes the CharStrings dictionary.  It returns the
// decrypted charstrings by glyph name and the offset in f.private of
// the "end" keyword closing the dictionary.
func (f *Font) scanCharstrings() (map[string][]byte, int, error) {
	idx := bytes.Index(f.private, []byte("/CharStrings"))
	if idx < 0 {
		return nil, 0, invalid("missing CharStrings dictionary")
	}
	rel := bytes.Index(f.private[idx:], []byte("begin"))
	if rel < 0 {
		return nil, 0, invalid("malformed CharStrings dictionary")
	}
	pos := idx + rel + 5

	res := make(map[string][]byte)
	for {
		for pos < len(f.private) && isSpace(f.private[pos]) {
			pos++
		}
		if pos >= len(f.private) {
			return nil, 0, invalid("unterminated CharStrings dictionary")
		}
		if bytes.HasPrefix(f.private[pos:], []byte("end")) {
			return res, pos, nil
		}
		if f.private[pos] != '/' {
			return nil, 0, invalid("unexpected token in CharStrings")
		}

		name, next := token(f.private, pos+1)
		lengthTok, next := token(f.private, next)
		length, err := strconv.Atoi(lengthTok)
		if err != nil || length < 0 {
			return nil, 0, invalid("malformed CharStrings entry /%s", name)
		}
		rdTok, next := token(f.private, next)
		if rdTok != f.rd && rdTok != "RD" && rdTok != "-|" {
			return nil, 0, invalid("malformed CharStrings entry /%s", name)
		}
		pos = next + 1 // single space before the binary data
		if pos+length > len(f.private) {
			return nil, 0, invalid("truncated charstring /%s", name)
		}
		res[name] = decryptCharstring(f.private[pos:pos+length], f.lenIV)
		pos += length
		_, pos = token(f.private, pos)
	}
}

// token reads the next whitespace-delimited token starting at or after
// pos.  It returns the token and the position just past it.
func token(data []byte, pos int) (string, int) {
	for pos < len(data) && isSpace(data[pos]) {
		pos++
	}
	start := pos
	for pos < len(data) && !isSpace(data[pos]) {
		pos++
	}
	return string(data[start:pos]), pos
}

// GlyphNames returns the names of all glyphs in the font.
func (f *Font) GlyphNames() ([]string, error) {
	glyphs, _, err := f.scanCharstrings()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(glyphs))
	for name := range glyphs {
		names = append(names, name)
	}
	return names, nil
}

// HasGlyph reports whether the font contains a glyph with this name.
func (f *Font) HasGlyph(name string) bool {
	glyphs, _, err := f.scanCharstrings()
	if err != nil {
		return false
	}
	_, ok := glyphs[name]
	return ok
}

// GlyphWidth returns the advance width of a glyph in font design
// units, read from the hsbw or sbw operator of its charstring.
func (f *Font) GlyphWidth(name string) (float64, error) {
	glyphs, _, err := f.scanCharstrings()
	if err != nil {
		return 0, err
	}
	code, ok := glyphs[name]
	if !ok {
		return 0, invalid("no glyph /%s", name)
	}

	var stack []int32
	for len(code) > 0 {
		b0 := code[0]
		switch {
		case b0 >= 32 && b0 <= 246:
			stack = append(stack, int32(b0)-139)
			code = code[1:]
		case b0 >= 247 && b0 <= 250:
			if len(code) < 2 {
				return 0, invalid("truncated charstring /%s", name)
			}
			stack = append(stack, int32(b0)*256+int32(code[1])+(108-247*256))
			code = code[2:]
		case b0 >= 251 && b0 <= 254:
			if len(code) < 2 {
				return 0, invalid("truncated charstring /%s", name)
			}
			stack = append(stack, -int32(b0)*256-int32(code[1])-(108-251*256))
			code = code[2:]
		case b0 == 255:
			if len(code) < 5 {
				return 0, invalid("truncated charstring /%s", name)
			}
			stack = append(stack, int32(uint32(code[1])<<24|uint32(code[2])<<16|
				uint32(code[3])<<8|uint32(code[4])))
			code = code[5:]
		case b0 == t1HsbW:
			if len(stack) < 2 {
				return 0, invalid("malformed hsbw in /%s", name)
			}
			return float64(stack[1]), nil
		case b0 == 12:
			if len(code) >= 2 && code[1] == 7 { // sbw
				if len(stack) < 3 {
					return 0, invalid("malformed sbw in /%s", name)
				}
				return float64(stack[2]), nil
			}
			return 0, invalid("no width in charstring /%s", name)
		default:
			return 0, invalid("no width in charstring /%s", name)
		}
	}
	return 0, invalid("no width in charstring /%s", name)
}
