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
	"sort"

	"seehuhn.de/go/sfnt/glyph"
)

// Well-known cmap subtable slots.
var (
	keyMacRoman  = CmapKey{PlatformID: 1, EncodingID: 0}
	keyMSSymbol  = CmapKey{PlatformID: 3, EncodingID: 0}
	keyMSUnicode = CmapKey{PlatformID: 3, EncodingID: 1}
)

// NormalizeCmap adjusts the cmap subtables for use in a PDF file.
//
// Non-symbolic fonts need a subtable outside the Microsoft symbol slot:
// if every subtable is (3,0), a (3,1) subtable is synthesized by
// stripping the 0xF000 symbol-range offset.
//
// Symbolic fonts with more than one subtable need a non-empty (3,0)
// subtable: one is synthesized from the best available source, with all
// codes folded into the range 0xF000-0xF0FF.  An existing but empty
// (3,0) subtable is repaired in place.
//
// The returned flag indicates whether the font was changed.
func (f *Font) NormalizeCmap(symbolic bool) (bool, error) {
	if f.Tables["cmap"] == nil {
		return false, nil
	}
	subtables, err := f.GetCmap()
	if err != nil {
		return false, err
	}

	if symbolic {
		return f.normalizeSymbolic(subtables)
	}
	return f.normalizeNonSymbolic(subtables)
}

func (f *Font) normalizeNonSymbolic(subtables map[CmapKey][]byte) (bool, error) {
	if len(subtables) == 0 {
		return false, nil
	}
	for key := range subtables {
		if key != keyMSSymbol {
			return false, nil
		}
	}

	mapping, err := DecodeSubtable(subtables[keyMSSymbol])
	if err != nil {
		return false, err
	}
	stripped := make(map[uint32]glyph.ID, len(mapping))
	for code, gid := range mapping {
		if code&0xFF00 == 0xF000 {
			code &= 0x00FF
		}
		stripped[code] = gid
	}
	data, err := EncodeSubtable(stripped)
	if err != nil {
		return false, err
	}
	subtables[keyMSUnicode] = data
	return true, f.SetCmap(subtables)
}

func (f *Font) normalizeSymbolic(subtables map[CmapKey][]byte) (bool, error) {
	if len(subtables) <= 1 {
		return false, nil
	}
	if data, ok := subtables[keyMSSymbol]; ok {
		mapping, err := DecodeSubtable(data)
		if err != nil {
			return false, err
		}
		if len(mapping) > 0 {
			return false, nil
		}
	}

	source, err := f.bestSymbolSource(subtables)
	if err != nil {
		return false, err
	}
	if len(source) == 0 {
		return false, nil
	}

	// lower codes win when folding collides
	codes := make([]uint32, 0, len(source))
	for code := range source {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	folded := make(map[uint32]glyph.ID)
	for _, code := range codes {
		target := 0xF000 | (code & 0x00FF)
		if _, ok := folded[target]; !ok {
			folded[target] = source[code]
		}
	}
	data, err := EncodeSubtable(folded)
	if err != nil {
		return false, err
	}
	subtables[keyMSSymbol] = data
	return true, f.SetCmap(subtables)
}

// bestSymbolSource picks the subtable a symbol cmap is synthesized
// from: (1,0) Mac-Roman, then (3,1) Microsoft-Unicode, then any
// non-empty subtable.
func (f *Font) bestSymbolSource(subtables map[CmapKey][]byte) (map[uint32]glyph.ID, error) {
	for _, key := range []CmapKey{keyMacRoman, keyMSUnicode} {
		if data, ok := subtables[key]; ok {
			mapping, err := DecodeSubtable(data)
			if err != nil {
				continue
			}
			if len(mapping) > 0 {
				return mapping, nil
			}
		}
	}

	keys := make([]CmapKey, 0, len(subtables))
	for key := range subtables {
		if key != keyMSSymbol {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PlatformID != keys[j].PlatformID {
			return keys[i].PlatformID < keys[j].PlatformID
		}
		return keys[i].EncodingID < keys[j].EncodingID
	})
	for _, key := range keys {
		mapping, err := DecodeSubtable(subtables[key])
		if err != nil {
			continue
		}
		if len(mapping) > 0 {
			return mapping, nil
		}
	}
	return nil, nil
}

// BuiltinLookup returns the font's own code-to-glyph mapping for
// single-byte codes, as used by symbolic simple fonts.  The (3,0)
// symbol subtable is consulted first, both directly and through the
// 0xF000 offset, then (1,0) Mac-Roman, then (3,1).
func (f *Font) BuiltinLookup() (func(code byte) glyph.ID, error) {
	subtables, err := f.GetCmap()
	if err != nil {
		return nil, err
	}

	if data, ok := subtables[keyMSSymbol]; ok {
		mapping, err := DecodeSubtable(data)
		if err == nil && len(mapping) > 0 {
			return func(code byte) glyph.ID {
				if gid := mapping[0xF000|uint32(code)]; gid != 0 {
					return gid
				}
				return mapping[uint32(code)]
			}, nil
		}
	}
	for _, key := range []CmapKey{keyMacRoman, keyMSUnicode} {
		if data, ok := subtables[key]; ok {
			mapping, err := DecodeSubtable(data)
			if err == nil && len(mapping) > 0 {
				return func(code byte) glyph.ID {
					return mapping[uint32(code)]
				}, nil
			}
		}
	}
	return nil, invalid("no usable cmap subtable")
}
