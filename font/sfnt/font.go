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

// Package sfnt edits TrueType font programs at the table level: glyph
// insertion, .notdef repair, cmap synthesis and metrics updates.
package sfnt

import (
	"encoding/binary"
	"fmt"

	"seehuhn.de/go/pdffix/font"
)

// The allowed values for the scaler type field of an sfnt file header.
const (
	ScalerTypeTrueType = 0x00010000
	ScalerTypeCFF      = 0x4F54544F // "OTTO"
	ScalerTypeApple    = 0x74727565 // "true"
)

// Font is a TrueType or OpenType font program, held as its set of raw
// tables.  Mutating methods operate on the table blobs; Encode
// re-serializes the font with fresh checksums.
type Font struct {
	ScalerType uint32
	Tables     map[string][]byte
}

// Parse reads the table directory of an sfnt font file.
func Parse(data []byte) (*Font, error) {
	if len(data) < 12 {
		return nil, invalid("font file too short")
	}
	scalerType := binary.BigEndian.Uint32(data)
	if scalerType != ScalerTypeTrueType &&
		scalerType != ScalerTypeCFF &&
		scalerType != ScalerTypeApple {
		return nil, &font.NotSupportedError{
			SubSystem: "sfnt",
			Feature:   fmt.Sprintf("scaler type 0x%08x", scalerType),
		}
	}
	numTables := int(binary.BigEndian.Uint16(data[4:]))
	if numTables > 280 {
		return nil, invalid("too many tables")
	}
	if len(data) < 12+16*numTables {
		return nil, invalid("truncated table directory")
	}

	f := &Font{
		ScalerType: scalerType,
		Tables:     make(map[string][]byte),
	}
	for i := 0; i < numTables; i++ {
		rec := data[12+16*i:]
		name := string(rec[:4])
		offset := binary.BigEndian.Uint32(rec[8:])
		length := binary.BigEndian.Uint32(rec[12:])
		if offset < uint32(12+16*numTables) ||
			uint64(offset)+uint64(length) > uint64(len(data)) {
			return nil, invalid("table %q extends beyond end of file", name)
		}
		body := make([]byte, length)
		copy(body, data[offset:offset+length])
		f.Tables[name] = body
	}
	if len(f.Tables) == 0 {
		return nil, invalid("no tables found")
	}
	return f, nil
}

// Optimized table ordering for the font file body.
// https://learn.microsoft.com/en-us/typography/opentype/spec/recom
var tableOrder = []string{
	"head", "hhea", "maxp", "OS/2", "hmtx", "LTSH", "VDMX", "hdmx", "cmap",
	"fpgm", "prep", "cvt ", "loca", "glyf", "CFF ", "kern", "name", "post",
	"gasp",
}

// Encode serializes the font.  Table checksums and the checksum adjustment
// in the head table are recomputed.
func (f *Font) Encode() []byte {
	names := f.tableNames()
	numTables := len(names)

	sel := 0
	for 1<<(sel+1) <= numTables {
		sel++
	}

	size := 12 + 16*numTables
	for _, name := range names {
		size += (len(f.Tables[name]) + 3) &^ 3
	}
	out := make([]byte, size)

	binary.BigEndian.PutUint32(out, f.ScalerType)
	binary.BigEndian.PutUint16(out[4:], uint16(numTables))
	binary.BigEndian.PutUint16(out[6:], uint16(16<<sel))
	binary.BigEndian.PutUint16(out[8:], uint16(sel))
	binary.BigEndian.PutUint16(out[10:], uint16(16*(numTables-1<<sel)))

	// head.checkSumAdjustment must be zero while summing
	if head, ok := f.Tables["head"]; ok && len(head) >= 12 {
		binary.BigEndian.PutUint32(head[8:], 0)
	}

	// tags in the directory are sorted, bodies use the optimized order
	sorted := make([]string, len(names))
	copy(sorted, names)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	offsets := make(map[string]uint32)
	offset := uint32(12 + 16*numTables)
	for _, name := range names {
		offsets[name] = offset
		body := f.Tables[name]
		copy(out[offset:], body)
		offset += uint32((len(body) + 3) &^ 3)
	}
	for i, name := range sorted {
		rec := out[12+16*i:]
		copy(rec[:4], name)
		body := f.Tables[name]
		binary.BigEndian.PutUint32(rec[4:], Checksum(body))
		binary.BigEndian.PutUint32(rec[8:], offsets[name])
		binary.BigEndian.PutUint32(rec[12:], uint32(len(body)))
	}

	if head, ok := f.Tables["head"]; ok && len(head) >= 12 {
		adjustment := 0xB1B0AFBA - Checksum(out)
		binary.BigEndian.PutUint32(head[8:], adjustment)
		binary.BigEndian.PutUint32(out[offsets["head"]+8:], adjustment)
	}

	return out
}

func (f *Font) tableNames() []string {
	var names []string
	done := make(map[string]bool)
	for _, name := range tableOrder {
		done[name] = true
		if f.Tables[name] != nil {
			names = append(names, name)
		}
	}
	// signatures are invalid after re-arranging the tables
	done["DSIG"] = true

	var extra []string
	for name := range f.Tables {
		if !done[name] {
			extra = append(extra, name)
		}
	}
	for i := 1; i < len(extra); i++ {
		for j := i; j > 0 && extra[j] < extra[j-1]; j-- {
			extra[j], extra[j-1] = extra[j-1], extra[j]
		}
	}
	return append(names, extra...)
}

// Checksum computes the sfnt table checksum, the big-endian uint32 sum
// over the data padded to a multiple of four bytes.
func Checksum(data []byte) uint32 {
	var sum uint32
	n := len(data) &^ 3
	for i := 0; i < n; i += 4 {
		sum += binary.BigEndian.Uint32(data[i:])
	}
	if n < len(data) {
		var tail [4]byte
		copy(tail[:], data[n:])
		sum += binary.BigEndian.Uint32(tail[:])
	}
	return sum
}

// NumGlyphs returns the glyph count from the maxp table.
func (f *Font) NumGlyphs() (int, error) {
	maxp := f.Tables["maxp"]
	if len(maxp) < 6 {
		return 0, invalid("missing maxp table")
	}
	return int(binary.BigEndian.Uint16(maxp[4:])), nil
}

// setNumGlyphs patches the glyph count in the maxp table in place, keeping
// all remaining fields of both the 0.5 and 1.0 table versions.
func (f *Font) setNumGlyphs(n int) error {
	if n > 0xFFFF {
		return invalid("too many glyphs (%d)", n)
	}
	maxp := f.Tables["maxp"]
	if len(maxp) < 6 {
		return invalid("missing maxp table")
	}
	binary.BigEndian.PutUint16(maxp[4:], uint16(n))
	return nil
}

// UnitsPerEm returns the design grid size from the head table.
func (f *Font) UnitsPerEm() (uint16, error) {
	head := f.Tables["head"]
	if len(head) < 54 {
		return 0, invalid("missing head table")
	}
	return binary.BigEndian.Uint16(head[18:]), nil
}

func invalid(format string, a ...interface{}) error {
	return &font.InvalidFontError{
		SubSystem: "sfnt",
		Reason:    fmt.Sprintf(format, a...),
	}
}
