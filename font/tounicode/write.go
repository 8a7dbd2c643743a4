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

package tounicode

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"
	"unicode/utf16"
)

// Write renders the CMap in the ToUnicode wire format.  The output is
// structurally validated before anything is written; a validation failure
// means no output is produced.
//
// Forbidden destination values must have been removed beforehand, see
// [Info.SubstituteForbidden].
func (info *Info) Write(w io.Writer) error {
	buf := &bytes.Buffer{}
	err := toUnicodeTmpl.Execute(buf, templateData{info})
	if err != nil {
		return fmt.Errorf("writing ToUnicode cmap: %w", err)
	}
	if err := Validate(buf.Bytes()); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

type templateData struct {
	*Info
}

func (d templateData) Codespace() string {
	if d.TwoByte {
		return "<0000> <FFFF>"
	}
	return "<00> <FF>"
}

func (d templateData) Chunks() [][]Single {
	return chunks(d.Singles)
}

func (d templateData) Entry(s Single) string {
	if d.TwoByte {
		return fmt.Sprintf("<%04X> %s", s.Code, hexString(s.Value))
	}
	return fmt.Sprintf("<%02X> %s", s.Code, hexString(s.Value))
}

// hexString encodes a destination as UTF-16BE hex.  Values above U+FFFF
// become surrogate pairs.
func hexString(s string) string {
	val := utf16.Encode([]rune(s))
	parts := make([]string, len(val))
	for i, v := range val {
		parts[i] = fmt.Sprintf("%04X", v)
	}
	return "<" + strings.Join(parts, "") + ">"
}

// Each bfchar block holds at most 100 entries.
const chunkSize = 100

func chunks[T any](x []T) [][]T {
	var res [][]T
	for len(x) >= chunkSize {
		res = append(res, x[:chunkSize])
		x = x[chunkSize:]
	}
	if len(x) > 0 {
		res = append(res, x)
	}
	return res
}

var toUnicodeTmpl = template.Must(template.New("tounicode").Parse(
	`/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo <</Registry (Adobe) /Ordering (UCS) /Supplement 0>> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
{{.Codespace}}
endcodespacerange
{{range .Chunks -}}
{{len .}} beginbfchar
{{range . -}}
{{$.Entry .}}
{{end -}}
endbfchar
{{end -}}
endcmap
CMapName currentdict /CMap defineresource pop
end
end
`))
