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

// Package cff edits Compact Font Format font programs: glyph insertion,
// .notdef repair, charstring width extraction and re-serialization,
// for both name-keyed and CID-keyed fonts.
package cff

import (
	"fmt"

	"seehuhn.de/go/pdffix/font"
	"seehuhn.de/go/pdffix/font/pdfenc"
)

// Font is a decoded CFF font program.  Charstrings are kept as opaque
// Type 2 byte strings; only the container structures are interpreted.
type Font struct {
	FontName string

	// Charstrings holds one Type 2 charstring per glyph.
	Charstrings [][]byte

	// IsCID is set for CID-keyed fonts.
	IsCID bool

	topDict cffDict
	strings *cffStrings
	gsubrs  [][]byte

	// charset holds one SID (name-keyed) or CID (CID-keyed) per glyph.
	charset []int32

	// glyphCode holds the encoding code of each glyph, or -1.  Only
	// used for name-keyed fonts with a custom encoding.
	glyphCode   []int32
	stdEncoding bool

	// Each Font DICT of a CID-keyed font has its own Private DICT and
	// local subroutines.  Name-keyed fonts use a single entry.
	fontDicts    []cffDict
	privateDicts []cffDict
	localSubrs   [][][]byte
	fdSelect     []uint8 // per glyph, CID-keyed only
}

func invalid(format string, a ...interface{}) error {
	return &font.InvalidFontError{
		SubSystem: "cff",
		Reason:    fmt.Sprintf(format, a...),
	}
}

func unsupported(format string, a ...interface{}) error {
	return &font.NotSupportedError{
		SubSystem: "cff",
		Feature:   fmt.Sprintf(format, a...),
	}
}

// Parse decodes a bare CFF font program.
func Parse(data []byte) (*Font, error) {
	c := &cursor{data: data}

	if len(data) < 4 {
		return nil, invalid("font data too short")
	}
	major := data[0]
	hdrSize := int(data[2])
	offSize := data[3]
	if major == 2 {
		return nil, unsupported("CFF version 2")
	}
	if major != 1 || hdrSize < 4 || offSize < 1 || offSize > 4 {
		return nil, invalid("not a CFF font")
	}

	c.pos = hdrSize
	fontNames, err := readIndex(c)
	if err != nil {
		return nil, err
	}
	if len(fontNames) != 1 {
		return nil, unsupported("CFF with %d fonts", len(fontNames))
	}

	topDictIndex, err := readIndex(c)
	if err != nil {
		return nil, err
	}
	if len(topDictIndex) != 1 {
		return nil, invalid("malformed Top DICT INDEX")
	}
	topDict, err := decodeDict(topDictIndex[0])
	if err != nil {
		return nil, err
	}
	if topDict.getInt(opCharstringType, 2) != 2 {
		return nil, unsupported("charstring type %d",
			topDict.getInt(opCharstringType, 2))
	}

	stringIndex, err := readIndex(c)
	if err != nil {
		return nil, err
	}
	ss := &cffStrings{data: make([]string, len(stringIndex))}
	for i, s := range stringIndex {
		ss.data[i] = string(s)
	}

	gsubrs, err := readIndex(c)
	if err != nil {
		return nil, err
	}

	f := &Font{
		FontName: string(fontNames[0]),
		topDict:  topDict,
		strings:  ss,
		gsubrs:   gsubrs,
	}

	charStringsOffs := topDict.getInt(opCharStrings, 0)
	if charStringsOffs <= 0 || int(charStringsOffs) >= len(data) {
		return nil, invalid("missing CharStrings INDEX")
	}
	c.pos = int(charStringsOffs)
	f.Charstrings, err = readIndex(c)
	if err != nil {
		return nil, err
	}
	nGlyphs := len(f.Charstrings)
	if nGlyphs == 0 {
		return nil, invalid("font has no glyphs")
	}

	_, f.IsCID = topDict[opROS]

	// charset
	charsetOffs := topDict.getInt(opCharset, 0)
	switch charsetOffs {
	case 0, 1, 2: // predefined charsets use the identity mapping
		f.charset = make([]int32, nGlyphs)
		for i := range f.charset {
			f.charset[i] = int32(i)
		}
	default:
		if int(charsetOffs) >= len(data) {
			return nil, invalid("charset offset out of range")
		}
		c.pos = int(charsetOffs)
		f.charset, err = readCharset(c, nGlyphs)
		if err != nil {
			return nil, err
		}
	}

	if f.IsCID {
		err = f.parseCIDStructures(c, data, nGlyphs)
	} else {
		err = f.parseSimpleStructures(c, data, nGlyphs)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Font) parseSimpleStructures(c *cursor, data []byte, nGlyphs int) error {
	pd, subrs, err := readPrivate(c, data, f.topDict)
	if err != nil {
		return err
	}
	f.privateDicts = []cffDict{pd}
	f.localSubrs = [][][]byte{subrs}

	encodingOffs := f.topDict.getInt(opEncoding, 0)
	switch encodingOffs {
	case 0, 1: // standard and expert encodings
		f.stdEncoding = true
	default:
		if int(encodingOffs) >= len(data) {
			return invalid("encoding offset out of range")
		}
		c.pos = int(encodingOffs)
		err = f.readEncoding(c, nGlyphs)
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *Font) parseCIDStructures(c *cursor, data []byte, nGlyphs int) error {
	fdArrayOffs := f.topDict.getInt(opFDArray, 0)
	if fdArrayOffs <= 0 || int(fdArrayOffs) >= len(data) {
		return invalid("missing FDArray")
	}
	c.pos = int(fdArrayOffs)
	fdIndex, err := readIndex(c)
	if err != nil {
		return err
	}
	if len(fdIndex) == 0 || len(fdIndex) > 256 {
		return invalid("invalid FDArray")
	}
	for _, blob := range fdIndex {
		fontDict, err := decodeDict(blob)
		if err != nil {
			return err
		}
		pd, subrs, err := readPrivate(c, data, fontDict)
		if err != nil {
			return err
		}
		f.fontDicts = append(f.fontDicts, fontDict)
		f.privateDicts = append(f.privateDicts, pd)
		f.localSubrs = append(f.localSubrs, subrs)
	}

	fdSelectOffs := f.topDict.getInt(opFDSelect, 0)
	if fdSelectOffs > 0 && int(fdSelectOffs) < len(data) {
		c.pos = int(fdSelectOffs)
		f.fdSelect, err = readFDSelect(c, nGlyphs, len(f.fontDicts))
		if err != nil {
			return err
		}
	} else {
		f.fdSelect = make([]uint8, nGlyphs)
	}
	return nil
}

func readPrivate(c *cursor, data []byte, d cffDict) (cffDict, [][]byte, error) {
	size, offs, ok := d.getPair(opPrivate)
	if !ok {
		return cffDict{}, nil, nil
	}
	if offs < 0 || size < 0 || int(offs)+int(size) > len(data) {
		return nil, nil, invalid("Private DICT out of range")
	}
	pd, err := decodeDict(data[offs : offs+size])
	if err != nil {
		return nil, nil, err
	}

	var subrs [][]byte
	if subrsOffs := pd.getInt(opSubrs, 0); subrsOffs > 0 {
		pos := int(offs) + int(subrsOffs)
		if pos >= len(data) {
			return nil, nil, invalid("local Subrs out of range")
		}
		c.pos = pos
		subrs, err = readIndex(c)
		if err != nil {
			return nil, nil, err
		}
	}
	return pd, subrs, nil
}

// readEncoding decodes a custom encoding into per-glyph codes.
func (f *Font) readEncoding(c *cursor, nGlyphs int) error {
	format, err := c.u8()
	if err != nil {
		return err
	}

	f.glyphCode = make([]int32, nGlyphs)
	for i := range f.glyphCode {
		f.glyphCode[i] = -1
	}

	switch format & 0x7F {
	case 0:
		nCodes, err := c.u8()
		if err != nil {
			return err
		}
		for i := 1; i <= int(nCodes) && i < nGlyphs; i++ {
			code, err := c.u8()
			if err != nil {
				return err
			}
			f.glyphCode[i] = int32(code)
		}
	case 1:
		nRanges, err := c.u8()
		if err != nil {
			return err
		}
		gid := 1
		for i := 0; i < int(nRanges); i++ {
			first, err := c.u8()
			if err != nil {
				return err
			}
			nLeft, err := c.u8()
			if err != nil {
				return err
			}
			for j := 0; j <= int(nLeft) && gid < nGlyphs; j++ {
				f.glyphCode[gid] = int32(first) + int32(j)
				gid++
			}
		}
	default:
		return unsupported("encoding format %d", format&0x7F)
	}

	if format&0x80 != 0 {
		nSups, err := c.u8()
		if err != nil {
			return err
		}
		for i := 0; i < int(nSups); i++ {
			code, err := c.u8()
			if err != nil {
				return err
			}
			sid, err := c.u16()
			if err != nil {
				return err
			}
			for gid, s := range f.charset {
				if s == int32(sid) {
					f.glyphCode[gid] = int32(code)
					break
				}
			}
		}
	}
	return nil
}

// encodeEncoding rebuilds the encoding section as a format 0 table.
func (f *Font) encodeEncoding() []byte {
	if len(f.glyphCode) == 0 {
		return []byte{0, 0}
	}
	nCodes := len(f.glyphCode) - 1
	if nCodes > 255 {
		nCodes = 255
	}
	buf := make([]byte, 2+nCodes)
	buf[0] = 0
	buf[1] = byte(nCodes)
	for i := 1; i <= nCodes; i++ {
		if f.glyphCode[i] >= 0 {
			buf[1+i] = byte(f.glyphCode[i])
		}
	}
	return buf
}

// NumGlyphs returns the number of glyphs in the font.
func (f *Font) NumGlyphs() int {
	return len(f.Charstrings)
}

// GlyphName returns the PostScript name of a glyph.  For CID-keyed
// fonts the conventional "cidNNNNN" form is used.
func (f *Font) GlyphName(gid int) string {
	if gid < 0 || gid >= len(f.charset) {
		return ""
	}
	if f.IsCID {
		return fmt.Sprintf("cid%05d", f.charset[gid])
	}
	return f.strings.get(f.charset[gid])
}

// CID returns the character identifier of a glyph.  For name-keyed
// fonts whose charset uses the "cidNNNNN" naming convention, the number
// is parsed from the glyph name.
func (f *Font) CID(gid int) (uint32, bool) {
	if gid < 0 || gid >= len(f.charset) {
		return 0, false
	}
	if f.IsCID {
		return uint32(f.charset[gid]), true
	}
	return cidFromName(f.strings.get(f.charset[gid]))
}

func cidFromName(name string) (uint32, bool) {
	if len(name) != 8 || name[:3] != "cid" {
		return 0, false
	}
	var cid uint32
	for i := 3; i < 8; i++ {
		if name[i] < '0' || name[i] > '9' {
			return 0, false
		}
		cid = cid*10 + uint32(name[i]-'0')
	}
	return cid, true
}

// GIDForCID returns the glyph index for a CID, or -1.
func (f *Font) GIDForCID(cid uint32) int {
	for gid := range f.charset {
		if c, ok := f.CID(gid); ok && c == cid {
			return gid
		}
	}
	return -1
}

// GIDForName returns the glyph index for a glyph name, or -1.
func (f *Font) GIDForName(name string) int {
	if f.IsCID {
		return -1
	}
	for gid, sid := range f.charset {
		if f.strings.get(sid) == name {
			return gid
		}
	}
	return -1
}

// FontMatrix returns the font matrix from the Top DICT.
func (f *Font) FontMatrix() [6]float64 {
	return f.topDict.getFontMatrix()
}

// fdFor returns the Private DICT index responsible for a glyph.
func (f *Font) fdFor(gid int) int {
	if f.fdSelect == nil || gid >= len(f.fdSelect) {
		return 0
	}
	return int(f.fdSelect[gid])
}

// widthParams returns defaultWidthX and nominalWidthX for a glyph.
func (f *Font) widthParams(gid int) (float64, float64) {
	fd := f.fdFor(gid)
	if fd >= len(f.privateDicts) {
		return 0, 0
	}
	pd := f.privateDicts[fd]
	return pd.getFloat(opDefaultWidthX, 0), pd.getFloat(opNominalWidthX, 0)
}

// GlyphWidth returns the advance width of a glyph in font design units.
func (f *Font) GlyphWidth(gid int) (float64, error) {
	if gid < 0 || gid >= len(f.Charstrings) {
		return 0, invalid("glyph %d out of range", gid)
	}
	defWidth, nomWidth := f.widthParams(gid)
	fd := f.fdFor(gid)
	var lsubrs [][]byte
	if fd < len(f.localSubrs) {
		lsubrs = f.localSubrs[fd]
	}
	return charstringWidth(f.Charstrings[gid], defWidth, nomWidth, lsubrs, f.gsubrs)
}

// BuiltinEncoding returns the font's own code to glyph name mapping.
// CID-keyed fonts have no built-in encoding.
func (f *Font) BuiltinEncoding() [256]string {
	var enc [256]string
	if f.IsCID {
		return enc
	}
	if f.stdEncoding || f.glyphCode == nil {
		return pdfenc.Standard.Encoding
	}
	for gid, code := range f.glyphCode {
		if code >= 0 && code < 256 {
			enc[code] = f.strings.get(f.charset[gid])
		}
	}
	return enc
}

// Encode serializes the font.  Section offsets are recomputed until
// they reach a fixed point.
func (f *Font) Encode() ([]byte, error) {
	if f.IsCID {
		return f.encodeCID()
	}
	return f.encodeSimple()
}

func (f *Font) encodeSimple() ([]byte, error) {
	const (
		secHeader = iota
		secNameIndex
		secTopDictIndex
		secStringIndex
		secGsubrsIndex
		secEncoding
		secCharsets
		secCharStringsIndex
		secPrivateDict
		secSubrsIndex

		numSections
	)

	blobs := make([][]byte, numSections)
	var err error

	blobs[secHeader] = []byte{1, 0, 4, 4}
	blobs[secNameIndex], err = encodeIndex([][]byte{[]byte(f.FontName)})
	if err != nil {
		return nil, err
	}
	blobs[secGsubrsIndex], err = encodeIndex(f.gsubrs)
	if err != nil {
		return nil, err
	}
	if !f.stdEncoding {
		blobs[secEncoding] = f.encodeEncoding()
	}
	blobs[secCharsets], err = encodeCharset(f.charset)
	if err != nil {
		return nil, err
	}
	blobs[secCharStringsIndex], err = encodeIndex(f.Charstrings)
	if err != nil {
		return nil, err
	}
	blobs[secSubrsIndex], err = encodeIndex(f.localSubrs[0])
	if err != nil {
		return nil, err
	}

	topDict := f.topDict
	privateDict := f.privateDicts[0]

	cumsum := func() []int32 {
		res := make([]int32, numSections+1)
		for i := 0; i < numSections; i++ {
			res[i+1] = res[i] + int32(len(blobs[i]))
		}
		return res
	}

	offs := cumsum()
	for {
		// the loop terminates because offsets grow monotonically

		privateDict.setInt(opSubrs, offs[secSubrsIndex]-offs[secPrivateDict])
		blobs[secPrivateDict] = privateDict.encode()

		topDict[opPrivate] = []interface{}{
			int32(len(blobs[secPrivateDict])), offs[secPrivateDict],
		}
		topDict.setInt(opCharset, offs[secCharsets])
		if !f.stdEncoding {
			topDict.setInt(opEncoding, offs[secEncoding])
		} else {
			delete(topDict, opEncoding)
		}
		topDict.setInt(opCharStrings, offs[secCharStringsIndex])
		blobs[secTopDictIndex], err = encodeIndex([][]byte{topDict.encode()})
		if err != nil {
			return nil, err
		}

		blobs[secStringIndex], err = f.strings.encode()
		if err != nil {
			return nil, err
		}

		newOffs := cumsum()
		if offsetsEqual(offs, newOffs) {
			break
		}
		offs = newOffs
	}

	return joinBlobs(blobs), nil
}

func (f *Font) encodeCID() ([]byte, error) {
	nFD := len(f.fontDicts)
	// fixed sections, then one Private DICT and one Subrs INDEX per
	// Font DICT
	const (
		secHeader = iota
		secNameIndex
		secTopDictIndex
		secStringIndex
		secGsubrsIndex
		secCharsets
		secFDSelect
		secCharStringsIndex
		secFDArray

		numFixed
	)
	numSections := numFixed + 2*nFD
	secPrivate := func(i int) int { return numFixed + 2*i }
	secSubrs := func(i int) int { return numFixed + 2*i + 1 }

	blobs := make([][]byte, numSections)
	var err error

	blobs[secHeader] = []byte{1, 0, 4, 4}
	blobs[secNameIndex], err = encodeIndex([][]byte{[]byte(f.FontName)})
	if err != nil {
		return nil, err
	}
	blobs[secGsubrsIndex], err = encodeIndex(f.gsubrs)
	if err != nil {
		return nil, err
	}
	blobs[secCharsets], err = encodeCharset(f.charset)
	if err != nil {
		return nil, err
	}
	blobs[secFDSelect] = encodeFDSelect(f.fdSelect)
	blobs[secCharStringsIndex], err = encodeIndex(f.Charstrings)
	if err != nil {
		return nil, err
	}
	for i := 0; i < nFD; i++ {
		blobs[secSubrs(i)], err = encodeIndex(f.localSubrs[i])
		if err != nil {
			return nil, err
		}
	}

	topDict := f.topDict

	cumsum := func() []int32 {
		res := make([]int32, numSections+1)
		for i := 0; i < numSections; i++ {
			res[i+1] = res[i] + int32(len(blobs[i]))
		}
		return res
	}

	offs := cumsum()
	for {
		fdIndex := make([][]byte, nFD)
		for i := 0; i < nFD; i++ {
			f.privateDicts[i].setInt(opSubrs, offs[secSubrs(i)]-offs[secPrivate(i)])
			blobs[secPrivate(i)] = f.privateDicts[i].encode()

			f.fontDicts[i][opPrivate] = []interface{}{
				int32(len(blobs[secPrivate(i)])), offs[secPrivate(i)],
			}
			fdIndex[i] = f.fontDicts[i].encode()
		}
		blobs[secFDArray], err = encodeIndex(fdIndex)
		if err != nil {
			return nil, err
		}

		topDict.setInt(opCharset, offs[secCharsets])
		delete(topDict, opEncoding)
		topDict.setInt(opCharStrings, offs[secCharStringsIndex])
		topDict.setInt(opFDArray, offs[secFDArray])
		topDict.setInt(opFDSelect, offs[secFDSelect])
		topDict.setInt(opCIDCount, int32(len(f.Charstrings)))
		blobs[secTopDictIndex], err = encodeIndex([][]byte{topDict.encode()})
		if err != nil {
			return nil, err
		}

		blobs[secStringIndex], err = f.strings.encode()
		if err != nil {
			return nil, err
		}

		newOffs := cumsum()
		if offsetsEqual(offs, newOffs) {
			break
		}
		offs = newOffs
	}

	return joinBlobs(blobs), nil
}

func offsetsEqual(a, b []int32) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinBlobs(blobs [][]byte) []byte {
	total := 0
	for _, b := range blobs {
		total += len(b)
	}
	out := make([]byte, 0, total)
	for _, b := range blobs {
		out = append(out, b...)
	}
	return out
}
