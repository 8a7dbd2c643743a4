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

package usage

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/pdffix/pdf"
)

func TestSimpleCodes(t *testing.T) {
	c := NewCollector()
	ref := pdf.NewReference(7, 0)

	c.AddText(ref, false, pdf.String("Hello"))
	c.AddText(ref, false, pdf.String("He"))

	want := []uint16{'H', 'e', 'l', 'o'}
	if d := cmp.Diff(want, c.Codes(ref)); d != "" {
		t.Error(d)
	}
}

func TestCompositeCodes(t *testing.T) {
	c := NewCollector()
	ref := pdf.NewReference(9, 0)

	c.AddText(ref, true, pdf.String{0x00, 0x41, 0x30, 0x42})

	want := []uint16{0x0041, 0x3042}
	if d := cmp.Diff(want, c.Codes(ref)); d != "" {
		t.Error(d)
	}
}

func TestOddLength(t *testing.T) {
	c := NewCollector()
	ref := pdf.NewReference(3, 0)

	// the trailing byte is dropped and the integrity problem is counted
	c.AddText(ref, true, pdf.String{0x00, 0x41, 0x30})

	want := []uint16{0x0041}
	if d := cmp.Diff(want, c.Codes(ref)); d != "" {
		t.Error(d)
	}
	if c.OddStrings[ref] != 1 {
		t.Errorf("OddStrings = %d, want 1", c.OddStrings[ref])
	}
}

func TestFonts(t *testing.T) {
	c := NewCollector()
	a := pdf.NewReference(2, 0)
	b := pdf.NewReference(1, 0)

	c.AddText(a, false, pdf.String("x"))
	c.AddText(b, false, pdf.String("y"))

	want := []pdf.Reference{b, a}
	if d := cmp.Diff(want, c.Fonts()); d != "" {
		t.Error(d)
	}
}
