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

	"seehuhn.de/go/sfnt/glyph"
)

// HasNotdef reports whether glyph 0 is the .notdef glyph.  Only a
// version 2.0 post table can contradict this; fonts without glyph names
// are taken at their word.
func (f *Font) HasNotdef() (bool, error) {
	post := f.Tables["post"]
	if len(post) < 32 {
		return true, nil
	}
	if binary.BigEndian.Uint32(post) != 0x00020000 {
		return true, nil
	}
	if len(post) < 36 {
		return false, invalid("post table too short")
	}
	numGlyphs := int(binary.BigEndian.Uint16(post[32:]))
	if numGlyphs == 0 {
		return true, nil
	}
	if len(post) < 34+2*numGlyphs {
		return false, invalid("post table too short")
	}
	idx := binary.BigEndian.Uint16(post[34:])
	if idx < 258 {
		return idx == 0, nil
	}
	name, err := postString(post, numGlyphs, int(idx)-258)
	if err != nil {
		return false, err
	}
	return name == ".notdef", nil
}

// postString returns the k-th custom name string of a version 2.0 post
// table.
func postString(post []byte, numGlyphs, k int) (string, error) {
	pos := 34 + 2*numGlyphs
	for i := 0; ; i++ {
		if pos >= len(post) {
			return "", invalid("post name %d missing", k)
		}
		n := int(post[pos])
		pos++
		if pos+n > len(post) {
			return "", invalid("post name %d truncated", k)
		}
		if i == k {
			return string(post[pos : pos+n]), nil
		}
		pos += n
	}
}

// InsertNotdef makes sure that glyph 0 is .notdef.  If it is not, an
// empty glyph with zero advance width is inserted at index 0 and every
// existing glyph index moves up by one.  The returned flag indicates
// whether the font was changed; callers must then rewrite all GID
// references held outside the font program.
func (f *Font) InsertNotdef() (bool, error) {
	ok, err := f.HasNotdef()
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	outlines, err := f.GetOutlines()
	if err != nil {
		return false, err
	}
	metrics, err := f.GetMetrics()
	if err != nil {
		return false, err
	}

	err = outlines.ShiftReferences(1)
	if err != nil {
		return false, err
	}
	outlines.Glyphs = append([][]byte{nil}, outlines.Glyphs...)
	metrics.Widths = append([]uint16{0}, metrics.Widths...)
	metrics.LeftSideBear = append([]int16{0}, metrics.LeftSideBear...)

	err = f.SetOutlines(outlines)
	if err != nil {
		return false, err
	}
	err = f.SetMetrics(metrics)
	if err != nil {
		return false, err
	}
	err = f.insertPostName()
	if err != nil {
		return false, err
	}
	err = f.shiftCmap(1)
	if err != nil {
		return false, err
	}

	// per-glyph auxiliary tables are stale after the shift
	delete(f.Tables, "hdmx")
	delete(f.Tables, "LTSH")
	delete(f.Tables, "kern")

	return true, nil
}

// insertPostName prepends the standard name index for .notdef to the
// glyph name array of a version 2.0 post table.
func (f *Font) insertPostName() error {
	post := f.Tables["post"]
	numGlyphs := int(binary.BigEndian.Uint16(post[32:]))
	if numGlyphs+1 > 0xFFFF {
		return invalid("too many glyph names")
	}

	out := make([]byte, 0, len(post)+2)
	out = append(out, post[:32]...)
	out = binary.BigEndian.AppendUint16(out, uint16(numGlyphs+1))
	out = binary.BigEndian.AppendUint16(out, 0) // .notdef
	out = append(out, post[34:]...)

	f.Tables["post"] = out
	return nil
}

// shiftCmap adds delta to every glyph index in every cmap subtable.
func (f *Font) shiftCmap(delta int) error {
	if f.Tables["cmap"] == nil {
		return nil
	}
	subtables, err := f.GetCmap()
	if err != nil {
		return err
	}
	for key, data := range subtables {
		mapping, err := DecodeSubtable(data)
		if err != nil {
			return err
		}
		shifted := make(map[uint32]glyph.ID, len(mapping))
		for code, gid := range mapping {
			g := int(gid) + delta
			if g < 1 || g > 0xFFFF {
				return invalid("glyph index out of range after shift")
			}
			shifted[code] = glyph.ID(g)
		}
		newData, err := EncodeSubtable(shifted)
		if err != nil {
			return err
		}
		subtables[key] = newData
	}
	return f.SetCmap(subtables)
}
