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

package pdffix

import (
	"bytes"
	"fmt"

	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/pdffix/font"
	"seehuhn.de/go/pdffix/font/encoding"
	"seehuhn.de/go/pdffix/font/sfnt"
	"seehuhn.de/go/pdffix/font/tounicode"
	"seehuhn.de/go/pdffix/pdf"
)

// addSimpleToUnicode attaches a ToUnicode stream to a simple font
// dictionary, derived from the glyph names of the resolved encoding.
// Codes whose names cannot be mapped are omitted.  The returned flag
// indicates whether the dictionary was changed.
func (f *Fixer) addSimpleToUnicode(e *edit, fontDict pdf.Dict, nameFor func(code byte) string, fontName string, rep *Report) (bool, error) {
	dingbats := fontName == "ZapfDingbats"
	m := make(map[uint16]string)
	for code := 0; code < 256; code++ {
		glyphName := nameFor(byte(code))
		if glyphName == "" || glyphName == encoding.UseBuiltin {
			continue
		}
		rr := encoding.ToUnicode(glyphName, dingbats)
		if len(rr) == 0 {
			continue
		}
		m[uint16(code)] = string(rr)
	}
	return f.putToUnicode(e, fontDict, tounicode.New(false, m), fontName, rep)
}

// putToUnicode validates and stores a ToUnicode mapping and links it
// into the font dictionary.  A mapping which fails its structural
// validation is an error; no stream is written in that case.
func (f *Fixer) putToUnicode(e *edit, fontDict pdf.Dict, info *tounicode.Info, fontName string, rep *Report) (bool, error) {
	if info.IsEmpty() {
		return false, nil
	}

	for _, s := range info.SubstituteForbidden() {
		rep.warn(e.ref, fontName,
			fmt.Errorf("ToUnicode code %d: forbidden value U+%04X moved to U+%04X",
				s.Code, s.Old, s.New))
	}

	buf := &bytes.Buffer{}
	if err := info.Write(buf); err != nil {
		return false, err
	}
	if err := tounicode.Validate(buf.Bytes()); err != nil {
		return false, &font.RepairError{
			Kind: font.CMapStructureInvalid,
			Font: fontName,
			Err:  err,
		}
	}

	ref := e.x.Alloc()
	e.put(ref, pdf.NewStream(nil, buf.Bytes()))
	fontDict["ToUnicode"] = ref
	return true, nil
}

// unicodeCmap returns the best Unicode subtable of a TrueType font.
func unicodeCmap(f *sfnt.Font) (map[uint32]glyph.ID, error) {
	subtables, err := f.GetCmap()
	if err != nil {
		return nil, err
	}
	for _, key := range []sfnt.CmapKey{
		{PlatformID: 3, EncodingID: 10},
		{PlatformID: 3, EncodingID: 1},
		{PlatformID: 0, EncodingID: 4},
		{PlatformID: 0, EncodingID: 3},
	} {
		if data, ok := subtables[key]; ok {
			return sfnt.DecodeSubtable(data)
		}
	}
	return nil, &font.InvalidFontError{
		SubSystem: "sfnt",
		Reason:    "no Unicode cmap subtable",
	}
}
