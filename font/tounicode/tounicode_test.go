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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/pdffix/font"
)

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		twoByte bool
		m       map[uint16]string
	}{
		{
			name:    "one byte",
			twoByte: false,
			m: map[uint16]string{
				0x41: "A",
				0xE9: "é",
				0xFB: "ffi", // ligature, multi-rune destination
			},
		},
		{
			name:    "two byte",
			twoByte: true,
			m: map[uint16]string{
				0x0003: " ",
				0x0234: "中",
				0xFFFE: "x",
			},
		},
		{
			name:    "surrogate pair",
			twoByte: true,
			m: map[uint16]string{
				0x0001: "\U0001D11E", // musical G clef, above the BMP
			},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			info := New(test.twoByte, test.m)

			buf := &bytes.Buffer{}
			if err := info.Write(buf); err != nil {
				t.Fatal(err)
			}

			info2, err := Read(buf.Bytes())
			if err != nil {
				t.Fatal(err)
			}
			if info2.TwoByte != test.twoByte {
				t.Errorf("code width changed: got twoByte=%t", info2.TwoByte)
			}
			if d := cmp.Diff(info.Singles, info2.Singles); d != "" {
				t.Error(d)
			}
		})
	}
}

func TestSurrogateEncoding(t *testing.T) {
	info := New(true, map[uint16]string{0x0001: "\U0001D11E"})
	buf := &bytes.Buffer{}
	if err := info.Write(buf); err != nil {
		t.Fatal(err)
	}
	// 0x1D11E - 0x10000 = 0xD11E; high = 0xD800+(0xD11E>>10) = 0xD834,
	// low = 0xDC00+(0xD11E&0x3FF) = 0xDD1E
	if !strings.Contains(buf.String(), "<0001> <D834DD1E>") {
		t.Errorf("missing surrogate pair entry in:\n%s", buf.String())
	}
}

func TestChunking(t *testing.T) {
	m := make(map[uint16]string)
	for i := 0; i < 150; i++ {
		m[uint16(i)] = string(rune('A' + i%26))
	}
	info := New(false, m)

	buf := &bytes.Buffer{}
	if err := info.Write(buf); err != nil {
		t.Fatal(err)
	}

	body := buf.String()
	if !strings.Contains(body, "100 beginbfchar") {
		t.Error("missing full chunk")
	}
	if !strings.Contains(body, "50 beginbfchar") {
		t.Error("missing remainder chunk")
	}
	if got := strings.Count(body, "beginbfchar"); got != 2 {
		t.Errorf("got %d bfchar blocks, want 2", got)
	}

	info2, err := Read(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(info2.Singles) != 150 {
		t.Errorf("got %d entries, want 150", len(info2.Singles))
	}
}

func TestSubstituteForbidden(t *testing.T) {
	info := New(false, map[uint16]string{
		0x01: "\u0000",
		0x02: "\uFEFF",
		0x03: "\uE000", // pre-existing PUA use must not be collided with
		0x04: "ok",
	})

	subs := info.SubstituteForbidden()
	if len(subs) != 2 {
		t.Fatalf("got %d substitutions, want 2", len(subs))
	}

	v1, _ := info.Lookup(0x01)
	v2, _ := info.Lookup(0x02)
	if v1 != "\uE001" {
		t.Errorf("code 1: got %04X", []rune(v1))
	}
	if v2 != "\uE002" {
		t.Errorf("code 2: got %04X", []rune(v2))
	}

	v3, _ := info.Lookup(0x03)
	v4, _ := info.Lookup(0x04)
	if v3 != "\uE000" || v4 != "ok" {
		t.Error("untouched values changed")
	}

	// a second pass finds nothing left to substitute
	if subs := info.SubstituteForbidden(); len(subs) != 0 {
		t.Errorf("second pass made %d substitutions", len(subs))
	}
}

func TestPUAOverflow(t *testing.T) {
	// exhaust the BMP Private Use Area, then allocation continues at
	// U+F0000
	m := make(map[uint16]string)
	var sb strings.Builder
	for r := rune(puaBMPFirst); r <= puaBMPLast; r++ {
		sb.WriteRune(r)
	}
	m[0x00] = sb.String()
	m[0x01] = "\uFFFE"

	info := New(false, m)
	subs := info.SubstituteForbidden()
	if len(subs) != 1 {
		t.Fatalf("got %d substitutions, want 1", len(subs))
	}
	if subs[0].New != 0xF0000 {
		t.Errorf("overflow slot: got %05X, want F0000", subs[0].New)
	}
}

func TestBfRangeForms(t *testing.T) {
	body := `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<00> <FF>
endcodespacerange
2 beginbfrange
<41> <43> <0061>
<50> <51> [<0078> <0079>]
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end
`
	info, err := Read([]byte(body))
	if err != nil {
		t.Fatal(err)
	}

	want := []Single{
		{0x41, "a"}, // incrementing destination form
		{0x42, "b"},
		{0x43, "c"},
		{0x50, "x"}, // array destination form
		{0x51, "y"},
	}
	if d := cmp.Diff(want, info.Singles); d != "" {
		t.Error(d)
	}
}

func TestLargeBfRange(t *testing.T) {
	// only bfchar blocks are capped at 100 entries; bfrange blocks of
	// any size must be accepted
	var sb strings.Builder
	sb.WriteString("/CIDInit /ProcSet findresource begin\n")
	sb.WriteString("12 dict begin\nbegincmap\n")
	sb.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	fmt.Fprintf(&sb, "101 beginbfrange\n")
	for i := 0; i < 101; i++ {
		fmt.Fprintf(&sb, "<%04X> <%04X> <%04X>\n", 2*i, 2*i+1, 0x0041+i)
	}
	sb.WriteString("endbfrange\nendcmap\n")
	sb.WriteString("CMapName currentdict /CMap defineresource pop\nend\nend\n")

	data := []byte(sb.String())
	if err := Validate(data); err != nil {
		t.Fatalf("valid CMap rejected: %v", err)
	}
	info, err := Read(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Singles) != 202 {
		t.Errorf("got %d entries, want 202", len(info.Singles))
	}
}

func TestValidate(t *testing.T) {
	good := &bytes.Buffer{}
	err := New(false, map[uint16]string{0x41: "A", 0x42: "B"}).Write(good)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		mangle func(string) string
	}{
		{
			name: "unbalanced bfchar",
			mangle: func(s string) string {
				return strings.Replace(s, "endbfchar", "", 1)
			},
		},
		{
			name: "wrong bfchar count",
			mangle: func(s string) string {
				return strings.Replace(s, "2 beginbfchar", "3 beginbfchar", 1)
			},
		},
		{
			name: "wrong codespace count",
			mangle: func(s string) string {
				return strings.Replace(s, "1 begincodespacerange", "2 begincodespacerange", 1)
			},
		},
		{
			name: "missing begincmap",
			mangle: func(s string) string {
				return strings.Replace(s, "begincmap", "", 1)
			},
		},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			data := []byte(test.mangle(good.String()))
			_, err := Read(data)
			if !font.IsKind(err, font.CMapStructureInvalid) {
				t.Errorf("got %v, want CMapStructureInvalid", err)
			}
		})
	}

	t.Run("oversized block", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("begincmap\n1 begincodespacerange\n<00> <FF>\nendcodespacerange\n")
		fmt.Fprintf(&sb, "101 beginbfchar\n")
		for i := 0; i < 101; i++ {
			fmt.Fprintf(&sb, "<%02X> <0041>\n", i)
		}
		sb.WriteString("endbfchar\nendcmap\nCMapName currentdict /CMap defineresource pop\n")
		if err := Validate([]byte(sb.String())); err == nil {
			t.Error("oversized bfchar block not rejected")
		}
	})
}
