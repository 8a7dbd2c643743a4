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

package font

import (
	"bytes"
	"strings"

	"seehuhn.de/go/pdffix/font/encoding"
	"seehuhn.de/go/pdffix/pdf"
)

// ProgramFormat identifies the binary format of an embedded font program.
type ProgramFormat int

// The recognized font program formats.
const (
	FormatUnknown ProgramFormat = iota
	FormatTrueType
	FormatOpenType
	FormatType1
	FormatCFF
)

func (f ProgramFormat) String() string {
	switch f {
	case FormatTrueType:
		return "TrueType"
	case FormatOpenType:
		return "OpenType"
	case FormatType1:
		return "Type 1"
	case FormatCFF:
		return "CFF"
	default:
		return "unknown"
	}
}

// SniffProgram identifies a font program from its leading bytes.
func SniffProgram(data []byte) ProgramFormat {
	if len(data) < 4 {
		return FormatUnknown
	}
	switch {
	case bytes.HasPrefix(data, []byte{0x00, 0x01, 0x00, 0x00}),
		bytes.HasPrefix(data, []byte("true")),
		bytes.HasPrefix(data, []byte("ttcf")):
		return FormatTrueType
	case bytes.HasPrefix(data, []byte("OTTO")):
		return FormatOpenType
	case bytes.HasPrefix(data, []byte("%!")), data[0] == 0x80:
		return FormatType1
	case data[0] == 1 && data[2] >= 4:
		return FormatCFF
	default:
		return FormatUnknown
	}
}

// Record is the result of classifying one font dictionary.
type Record struct {
	*Dicts

	// Embedded is true if the font carries a usable embedded font
	// program.  Type 3 fonts count as embedded, the 14 standard fonts
	// without a descriptor never do.
	Embedded bool

	// Format is the sniffed format of the embedded font program, or
	// FormatUnknown if there is none.
	Format ProgramFormat

	// HasUnicode is true if text using this font can be mapped to
	// Unicode, either through an explicit ToUnicode stream or because
	// the mapping is derivable from the encoding.
	HasUnicode bool
}

// Classify reads a font dictionary and derives its subtype, embedding
// status and Unicode-mapping status.
func Classify(r pdf.Getter, fontDictRef pdf.Object) (*Record, error) {
	dicts, err := ExtractDicts(r, fontDictRef)
	if err != nil {
		return nil, err
	}

	rec := &Record{Dicts: dicts}

	if dicts.FontProgram != nil {
		head, err := pdf.GetStreamBytes(r, dicts.FontProgram)
		if err != nil {
			return nil, pdf.Wrap(err, "font program")
		}
		rec.Format = SniffProgram(head)
	}

	rec.Embedded = isEmbedded(dicts, rec.Format)
	rec.HasUnicode = hasUnicodeMapping(r, dicts, rec.Embedded)

	return rec, nil
}

func isEmbedded(dicts *Dicts, format ProgramFormat) bool {
	if dicts.Type == Type3 {
		// glyphs are procedural, nothing external is needed
		return true
	}

	if dicts.FontProgram != nil {
		return format != FormatUnknown
	}

	if dicts.Type.IsComposite() || dicts.FontDescriptor != nil {
		return false
	}
	return !IsStandard[string(dicts.PostScriptName)]
}

func hasUnicodeMapping(r pdf.Getter, dicts *Dicts, embedded bool) bool {
	if stm, _ := pdf.GetStream(r, dicts.FontDict["ToUnicode"]); stm != nil {
		return true
	}

	if dicts.Type.IsComposite() {
		encName, _ := pdf.GetName(r, dicts.FontDict["Encoding"])
		if isUnicodeCMapName(encName) {
			return true
		}
		cid2gid, _ := pdf.Resolve(r, dicts.CIDFontDict["CIDToGIDMap"])
		identity := cid2gid == nil || cid2gid == pdf.Name("Identity")
		return identity && embedded
	}

	encObj, _ := pdf.Resolve(r, dicts.FontDict["Encoding"])
	switch enc := encObj.(type) {
	case pdf.Name:
		return enc == "StandardEncoding" || enc == "WinAnsiEncoding" || enc == "MacRomanEncoding"
	case pdf.Dict:
		diff, _ := pdf.GetArray(r, enc["Differences"])
		for _, obj := range diff {
			obj, _ = pdf.Resolve(r, obj)
			if name, ok := obj.(pdf.Name); ok {
				if !encoding.IsKnownGlyphName(string(name)) {
					return false
				}
			}
		}
		return true
	}
	return false
}

// isUnicodeCMapName reports whether the named encoding CMap maps codes
// directly to Unicode (UCS-2 or UTF-16 based CMaps).
func isUnicodeCMapName(name pdf.Name) bool {
	s := string(name)
	return strings.Contains(s, "UCS2") || strings.Contains(s, "UTF16")
}
