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
)

// EnsureGlyphs extends the glyph set so that the font has at least count
// glyphs.  New slots get an empty outline and the advance width of
// glyph 0.  The return value is the number of glyphs added.
func (f *Font) EnsureGlyphs(count int) (int, error) {
	numGlyphs, err := f.NumGlyphs()
	if err != nil {
		return 0, err
	}
	if count <= numGlyphs {
		return 0, nil
	}
	if count > 0x10000 {
		return 0, invalid("glyph count %d exceeds the format limit", count)
	}

	outlines, err := f.GetOutlines()
	if err != nil {
		return 0, err
	}
	metrics, err := f.GetMetrics()
	if err != nil {
		return 0, err
	}

	notdefWidth := uint16(0)
	if len(metrics.Widths) > 0 {
		notdefWidth = metrics.Widths[0]
	}

	added := count - numGlyphs
	for i := 0; i < added; i++ {
		outlines.Glyphs = append(outlines.Glyphs, nil)
		metrics.Widths = append(metrics.Widths, notdefWidth)
		metrics.LeftSideBear = append(metrics.LeftSideBear, 0)
	}

	err = f.SetOutlines(outlines)
	if err != nil {
		return 0, err
	}
	err = f.SetMetrics(metrics)
	if err != nil {
		return 0, err
	}
	err = f.padPostNames(count)
	if err != nil {
		return 0, err
	}
	return added, nil
}

// padPostNames extends the glyph name array of a version 2.0 post table
// to the new glyph count, so that name-based lookups keep working.
func (f *Font) padPostNames(count int) error {
	post := f.Tables["post"]
	if len(post) < 36 || binary.BigEndian.Uint32(post) != 0x00020000 {
		return nil
	}
	numGlyphs := int(binary.BigEndian.Uint16(post[32:]))
	if numGlyphs >= count {
		return nil
	}
	if len(post) < 34+2*numGlyphs {
		return invalid("post table too short")
	}

	out := make([]byte, 0, len(post)+2*(count-numGlyphs))
	out = append(out, post[:32]...)
	out = binary.BigEndian.AppendUint16(out, uint16(count))
	out = append(out, post[34:34+2*numGlyphs]...)
	for i := numGlyphs; i < count; i++ {
		out = binary.BigEndian.AppendUint16(out, 0) // .notdef
	}
	out = append(out, post[34+2*numGlyphs:]...)

	f.Tables["post"] = out
	return nil
}
