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

package encoding

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/pdffix/pdf"
)

func TestExtractNamed(t *testing.T) {
	r := pdf.NewData()

	cases := []struct {
		obj  pdf.Object
		code byte
		want string
	}{
		{pdf.Name("WinAnsiEncoding"), 0xE9, "eacute"},
		{pdf.Name("MacRomanEncoding"), 0x8E, "eacute"},
		{pdf.Name("StandardEncoding"), 0x27, "quoteright"},
	}
	for _, test := range cases {
		enc, err := Extract(r, test.obj, false)
		if err != nil {
			t.Fatal(err)
		}
		if got := enc(test.code); got != test.want {
			t.Errorf("%s[%d]: got %q, want %q",
				test.obj, test.code, got, test.want)
		}
	}
}

func TestExtractDefault(t *testing.T) {
	r := pdf.NewData()

	enc, err := Extract(r, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if got := enc(0x61); got != "a" {
		t.Errorf("non-symbolic default: got %q, want %q", got, "a")
	}

	enc, err = Extract(r, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := enc(0x61); got != UseBuiltin {
		t.Errorf("symbolic default: got %q, want %q", got, UseBuiltin)
	}
}

func TestExtractDifferences(t *testing.T) {
	r := pdf.NewData()

	obj := pdf.Dict{
		"Type":         pdf.Name("Encoding"),
		"BaseEncoding": pdf.Name("WinAnsiEncoding"),
		"Differences": pdf.Array{
			pdf.Integer(65),
			pdf.Name("alpha"),
			pdf.Name("beta"),
			pdf.Integer(200),
			pdf.Name("gamma"),
		},
	}
	enc, err := Extract(r, obj, false)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		code byte
		want string
	}{
		{65, "alpha"},
		{66, "beta"}, // cursor increments after each name
		{67, "C"},    // base encoding shows through
		{200, "gamma"},
		{0xE9, "eacute"},
	}
	for _, test := range cases {
		if got := enc(test.code); got != test.want {
			t.Errorf("code %d: got %q, want %q", test.code, got, test.want)
		}
	}
}

func TestToUnicode(t *testing.T) {
	cases := []struct {
		glyphName string
		dingbats  bool
		want      []rune
	}{
		{"eacute", false, []rune{0x00E9}},
		{"uni20AC", false, []rune{0x20AC}},
		{"u1040C", false, []rune{0x1040C}},
		{"a9", true, []rune{0x2720}},
		{"g.alt", false, []rune{'g'}},

		// names with no usable Unicode meaning
		{".notdef", false, nil},
		{"foo", false, nil},
		{"uniD800DC0C", false, nil}, // surrogates are rejected
		{"uniFEFF", false, nil},     // forbidden destination
		{"uni0000", false, nil},
	}
	for _, test := range cases {
		got := ToUnicode(test.glyphName, test.dingbats)
		if d := cmp.Diff(test.want, got); d != "" {
			t.Errorf("%q: %s", test.glyphName, d)
		}
	}
}

func TestCIDToGIDRoundTrip(t *testing.T) {
	m := &CIDToGID{GID: []glyph.ID{0, 3, 1, 0xFFFF}}

	stm := pdf.NewStream(pdf.Dict{}, m.Bytes())
	m2, err := ExtractCIDToGID(pdf.NewData(), stm)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(m.GID, m2.GID); d != "" {
		t.Error(d)
	}
}

func TestCIDToGIDShift(t *testing.T) {
	// identity becomes an explicit array with every entry shifted
	m := &CIDToGID{}
	shifted, overflow := m.Shift(4)
	if len(overflow) != 0 {
		t.Errorf("unexpected overflow: %v", overflow)
	}
	want := []glyph.ID{1, 2, 3, 4}
	if d := cmp.Diff(want, shifted.GID); d != "" {
		t.Error(d)
	}

	// explicit arrays are shifted in place, clamping at the 16-bit ceiling
	m = &CIDToGID{GID: []glyph.ID{5, 0xFFFF, 7}}
	shifted, overflow = m.Shift(3)
	want = []glyph.ID{6, 0xFFFF, 8}
	if d := cmp.Diff(want, shifted.GID); d != "" {
		t.Error(d)
	}
	if d := cmp.Diff([]uint32{1}, overflow); d != "" {
		t.Error(d)
	}

	for cid, old := range m.GID {
		if old >= 0xFFFF {
			continue
		}
		if got := shifted.Lookup(uint32(cid)); got != old+1 {
			t.Errorf("cid %d: got %d, want %d", cid, got, old+1)
		}
	}
}

func TestCIDToGIDIdentity(t *testing.T) {
	m, err := ExtractCIDToGID(pdf.NewData(), pdf.Name("Identity"))
	if err != nil {
		t.Fatal(err)
	}
	if !m.Identity() {
		t.Error("expected identity mapping")
	}
	if got := m.Lookup(1234); got != 1234 {
		t.Errorf("identity lookup: got %d, want 1234", got)
	}
	if m.Bytes() != nil {
		t.Error("identity mapping must not serialize")
	}
}
