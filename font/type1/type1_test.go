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

package type1

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func widthCharstring(width int32) []byte {
	var plain []byte
	plain = appendT1Int(plain, 0)
	plain = appendT1Int(plain, width)
	plain = append(plain, t1HsbW, t1EndChar)
	return encryptCharstring(plain, 4)
}

type buildOptions struct {
	rd, nd string
	hexEnc bool
}

func buildTestFont(opt buildOptions) []byte {
	rd, nd := opt.rd, opt.nd
	if rd == "" {
		rd, nd = "RD", "ND"
	}

	var private bytes.Buffer
	// the first plaintext byte is chosen so that the first ciphertext
	// byte cannot be mistaken for a hex digit
	private.Write([]byte{0x26, 'X', 'X', 'X'})
	private.WriteString("dup /Private 8 dict dup begin\n")
	private.WriteString("/lenIV 4 def\n")
	private.WriteString("end\n")
	private.WriteString("/CharStrings 2 dict dup begin\n")
	for _, g := range []struct {
		name  string
		width int32
	}{
		{".notdef", 500},
		{"A", 600},
	} {
		cs := widthCharstring(g.width)
		fmt.Fprintf(&private, "/%s %d %s ", g.name, len(cs), rd)
		private.Write(cs)
		private.WriteString(" " + nd + "\n")
	}
	private.WriteString("end\n")
	private.WriteString("end\nmark currentfile closefile\n")

	encrypted := encrypt(private.Bytes(), eexecSeed)
	if opt.hexEnc {
		encrypted = []byte(hex.EncodeToString(encrypted) + "\n")
	}

	var out bytes.Buffer
	out.WriteString("%!PS-AdobeFont-1.0: Test 001.001\n")
	out.WriteString("/FontName /Test def\n")
	out.WriteString("/Encoding 256 array\n")
	out.WriteString("0 1 255 {1 index exch /.notdef put} for\n")
	out.WriteString("dup 65 /A put\n")
	out.WriteString("readonly def\n")
	out.WriteString("currentfile eexec\n")
	out.Write(encrypted)
	out.WriteString("\n")
	for i := 0; i < 8; i++ {
		out.WriteString(strings.Repeat("0", 64) + "\n")
	}
	out.WriteString("cleartomark\n")
	return out.Bytes()
}

func TestCipherRoundTrip(t *testing.T) {
	plain := []byte("some not very secret text")
	for _, seed := range []uint16{eexecSeed, charstringSeed} {
		got := decrypt(encrypt(plain, seed), seed)
		if !bytes.Equal(got, plain) {
			t.Errorf("seed %d: round trip failed", seed)
		}
	}

	cs := encryptCharstring(plain, 4)
	if got := decryptCharstring(cs, 4); !bytes.Equal(got, plain) {
		t.Error("charstring round trip failed")
	}
}

func TestParseEncodeRoundTrip(t *testing.T) {
	data := buildTestFont(buildOptions{})
	f, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	out := f.Encode()
	if !bytes.Equal(data, out) {
		t.Error("encoding changed an unmodified font")
	}

	l1, l2, l3 := f.Lengths()
	if l1+l2+l3 != len(out) {
		t.Errorf("lengths %d+%d+%d != %d", l1, l2, l3, len(out))
	}
}

func TestGlyphs(t *testing.T) {
	f, err := Parse(buildTestFont(buildOptions{}))
	if err != nil {
		t.Fatal(err)
	}

	names, err := f.GlyphNames()
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(names)
	if diff := cmp.Diff([]string{".notdef", "A"}, names); diff != "" {
		t.Errorf("glyph names differ (-want +got):\n%s", diff)
	}

	if !f.HasGlyph("A") || f.HasGlyph("B") {
		t.Error("HasGlyph is wrong")
	}

	for name, want := range map[string]float64{".notdef": 500, "A": 600} {
		w, err := f.GlyphWidth(name)
		if err != nil {
			t.Fatal(err)
		}
		if w != want {
			t.Errorf("width of %s: got %g, want %g", name, w, want)
		}
	}
}

func TestEnsureNames(t *testing.T) {
	f, err := Parse(buildTestFont(buildOptions{}))
	if err != nil {
		t.Fatal(err)
	}

	widths := map[string]float64{"eacute": 450, "wide": 2000}
	width := func(name string) float64 { return widths[name] }

	added, err := f.EnsureNames([]string{"A", "eacute", "wide"}, width)
	if err != nil {
		t.Fatal(err)
	}
	if added != 2 {
		t.Fatalf("added %d glyphs, want 2", added)
	}

	// the repair must survive a full encode/parse cycle
	g, err := Parse(f.Encode())
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range widths {
		w, err := g.GlyphWidth(name)
		if err != nil {
			t.Fatal(err)
		}
		if w != want {
			t.Errorf("width of %s: got %g, want %g", name, w, want)
		}
	}
	if !bytes.Contains(g.private, []byte("/CharStrings 4 dict")) {
		t.Error("dictionary size not adjusted")
	}

	added, err = g.EnsureNames([]string{"eacute", "wide"}, width)
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Errorf("second run added %d glyphs", added)
	}
}

func TestAlternateAliases(t *testing.T) {
	data := buildTestFont(buildOptions{rd: "-|", nd: "|-"})
	f, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.rd != "-|" || f.nd != "|-" {
		t.Fatalf("aliases not detected: %q %q", f.rd, f.nd)
	}

	added, err := f.EnsureNames([]string{"eacute"},
		func(string) float64 { return 450 })
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 {
		t.Fatal("glyph not added")
	}
	// new entries must use the font's own aliases
	if !bytes.Contains(f.private, []byte("/eacute 9 -| ")) {
		t.Error("inserted entry does not use the -| alias")
	}
}

func TestHexEexec(t *testing.T) {
	data := buildTestFont(buildOptions{hexEnc: true})
	f, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if !f.HasGlyph("A") {
		t.Error("glyph A missing")
	}
}

func TestPFB(t *testing.T) {
	data := buildTestFont(buildOptions{})
	eexecIdx := bytes.Index(data, []byte("eexec")) + 6

	segment := func(segType byte, body []byte) []byte {
		n := len(body)
		head := []byte{0x80, segType,
			byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
		return append(head, body...)
	}
	var pfb []byte
	pfb = append(pfb, segment(1, data[:eexecIdx])...)
	pfb = append(pfb, segment(2, data[eexecIdx:len(data)-532])...)
	pfb = append(pfb, segment(1, data[len(data)-532:])...)
	pfb = append(pfb, 0x80, 3)

	f, err := Parse(pfb)
	if err != nil {
		t.Fatal(err)
	}
	if !f.HasGlyph("A") || !f.HasGlyph(".notdef") {
		t.Error("glyphs missing after PFB unwrap")
	}
}

func TestBuiltinEncoding(t *testing.T) {
	f, err := Parse(buildTestFont(buildOptions{}))
	if err != nil {
		t.Fatal(err)
	}
	enc, ok := f.BuiltinEncoding()
	if !ok {
		t.Fatal("no builtin encoding found")
	}
	if enc[65] != "A" {
		t.Errorf("code 65: got %q, want A", enc[65])
	}
}
