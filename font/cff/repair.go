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
	"fmt"
)

// HasNotdef reports whether glyph 0 serves as the .notdef glyph.  The
// charset format forces SID 0 for glyph 0, so the only way a font can
// misuse the slot is by mapping an encoding code to it.
func (f *Font) HasNotdef() bool {
	if len(f.Charstrings) == 0 {
		return false
	}
	if f.glyphCode != nil && f.glyphCode[0] >= 0 {
		return false
	}
	return true
}

// InsertNotdef inserts an empty .notdef glyph at index 0, shifting all
// existing glyphs up by one.  It reports whether the font was changed.
func (f *Font) InsertNotdef() bool {
	if f.HasNotdef() {
		return false
	}

	notdef := []byte(nil)
	notdef = appendT2Int(notdef, 0)
	notdef = append(notdef, t2HMoveTo, t2EndChar)

	f.Charstrings = append([][]byte{notdef}, f.Charstrings...)

	// The displaced glyph cannot keep SID/CID 0.
	old := f.charset
	f.charset = make([]int32, 0, len(old)+1)
	f.charset = append(f.charset, 0)
	f.charset = append(f.charset, old...)
	if len(old) > 0 && old[0] == 0 {
		if f.IsCID {
			max := int32(0)
			for _, cid := range old {
				if cid > max {
					max = cid
				}
			}
			f.charset[1] = max + 1
		} else {
			f.charset[1] = f.strings.lookup("glyph00001")
		}
	}

	if f.fdSelect != nil {
		f.fdSelect = append([]uint8{0}, f.fdSelect...)
	}
	if f.glyphCode != nil {
		f.glyphCode = append([]int32{-1}, f.glyphCode...)
	}
	return true
}

// EnsureCIDs appends empty glyphs for the given CIDs where missing.
// The advance width of each new glyph is taken from the width callback.
// New glyphs use the Private DICT of glyph 0.  The number of glyphs
// added is returned.
func (f *Font) EnsureCIDs(cids []uint32, width func(cid uint32) float64) (int, error) {
	have := make(map[uint32]bool)
	for gid := range f.charset {
		if cid, ok := f.CID(gid); ok {
			have[cid] = true
		}
	}

	fd := f.fdFor(0)
	defWidth, nomWidth := f.widthParams(0)

	added := 0
	for _, cid := range cids {
		if have[cid] {
			continue
		}
		if cid > 65534 {
			return added, invalid("CID %d out of range", cid)
		}
		f.Charstrings = append(f.Charstrings,
			emptyCharstring(width(cid), defWidth, nomWidth))
		if f.IsCID {
			f.charset = append(f.charset, int32(cid))
			f.fdSelect = append(f.fdSelect, uint8(fd))
		} else {
			name := fmt.Sprintf("cid%05d", cid)
			f.charset = append(f.charset, f.strings.lookup(name))
			if f.glyphCode != nil {
				f.glyphCode = append(f.glyphCode, -1)
			}
		}
		have[cid] = true
		added++
	}
	return added, nil
}

// EnsureNames appends empty glyphs for the given glyph names where
// missing.  Only name-keyed fonts carry glyph names.
func (f *Font) EnsureNames(names []string, width func(name string) float64) (int, error) {
	if f.IsCID {
		return 0, unsupported("glyph names in a CID-keyed font")
	}

	have := make(map[string]bool)
	for _, sid := range f.charset {
		have[f.strings.get(sid)] = true
	}

	defWidth, nomWidth := f.widthParams(0)

	added := 0
	for _, name := range names {
		if have[name] {
			continue
		}
		f.Charstrings = append(f.Charstrings,
			emptyCharstring(width(name), defWidth, nomWidth))
		f.charset = append(f.charset, f.strings.lookup(name))
		if f.glyphCode != nil {
			f.glyphCode = append(f.glyphCode, -1)
		}
		have[name] = true
		added++
	}
	return added, nil
}
