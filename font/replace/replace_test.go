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

package replace

import (
	"math"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"seehuhn.de/go/pdffix/font"
	"seehuhn.de/go/pdffix/font/encoding"
	"seehuhn.de/go/pdffix/pdf"
)

func TestStoreLatin(t *testing.T) {
	s := NewStore()

	for _, name := range []string{
		"Helvetica", "Helvetica-BoldOblique",
		"Courier-Bold", "Times-Roman", "Times-BoldItalic",
	} {
		data, exact := s.Latin(name)
		if data == nil || !exact {
			t.Errorf("%s: no exact replacement", name)
		}
	}

	data, exact := s.Latin("Garamond")
	if data == nil || exact {
		t.Error("unknown name must fall back to the default")
	}
}

func TestFaceForOrdering(t *testing.T) {
	cases := map[string]int{
		"Japan1":   FaceJapanese,
		"GB1":      FaceSimplified,
		"CNS1":     FaceTraditional,
		"Korea1":   FaceKorean,
		"Unknown1": FaceSimplified,
	}
	for ordering, want := range cases {
		if got := FaceForOrdering(ordering); got != want {
			t.Errorf("%s: got %d, want %d", ordering, got, want)
		}
	}
}

func TestStoreCJKUnregistered(t *testing.T) {
	s := NewStore()
	_, err := s.CJK("Japan1")
	if !font.IsKind(err, font.ReplacementUnavailable) {
		t.Errorf("got %v", err)
	}
}

func TestSimpleReplacement(t *testing.T) {
	b := NewBuilder(NewStore())

	r, err := b.Simple("Helvetica", encoding.WinAnsi)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Exact {
		t.Error("Helvetica should have a bundled replacement")
	}
	if r.FontDict["Subtype"] != pdf.Name("TrueType") {
		t.Errorf("Subtype = %v", r.FontDict["Subtype"])
	}

	firstChar := r.FontDict["FirstChar"].(pdf.Integer)
	lastChar := r.FontDict["LastChar"].(pdf.Integer)
	ww := r.FontDict["Widths"].(pdf.Array)
	if len(ww) != int(lastChar-firstChar+1) {
		t.Errorf("len(Widths) = %d, want %d", len(ww), lastChar-firstChar+1)
	}

	if s, ok := r.ToUnicode.Lookup('A'); !ok || s != "A" {
		t.Errorf("ToUnicode of 'A': %q, %v", s, ok)
	}

	// Go Regular has weight class 400
	if math.Abs(r.Descriptor.StemV-45.2) > 0.01 {
		t.Errorf("StemV = %g", r.Descriptor.StemV)
	}
	if r.Descriptor.IsSymbolic {
		t.Error("Latin replacement must not be symbolic")
	}
	if r.Descriptor.FontBBox == nil || r.Descriptor.Ascent <= 0 {
		t.Error("incomplete descriptor metrics")
	}

	if len(r.Program) == 0 {
		t.Error("missing font program")
	}
}

func TestSimpleUnknownName(t *testing.T) {
	b := NewBuilder(NewStore())
	r, err := b.Simple("Garamond", encoding.Standard)
	if err != nil {
		t.Fatal(err)
	}
	if r.Exact {
		t.Error("unknown name must be reported as inexact")
	}
}

func TestSymbolUnregistered(t *testing.T) {
	b := NewBuilder(NewStore())
	_, err := b.Simple("Symbol", nil)
	if !font.IsKind(err, font.ReplacementUnavailable) {
		t.Errorf("got %v", err)
	}
}

func TestSymbolRegistered(t *testing.T) {
	s := NewStore()
	s.Register("Symbol", goregular.TTF)
	b := NewBuilder(s)

	r, err := b.Simple("Symbol", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Descriptor.IsSymbolic {
		t.Error("Symbol replacement must be symbolic")
	}
}

func TestComposite(t *testing.T) {
	s := NewStore()
	err := s.RegisterCJKFace(FaceSimplified, goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(s)

	r, err := b.Composite("TestFont", "GB1", false)
	if err != nil {
		t.Fatal(err)
	}
	if r.FontDict["Encoding"] != pdf.Name("Identity-H") {
		t.Errorf("Encoding = %v", r.FontDict["Encoding"])
	}
	if r.CIDFontDict["CIDToGIDMap"] != pdf.Name("Identity") {
		t.Errorf("CIDToGIDMap = %v", r.CIDFontDict["CIDToGIDMap"])
	}
	csi := r.CIDFontDict["CIDSystemInfo"].(pdf.Dict)
	if string(csi["Registry"].(pdf.String)) != "Adobe" ||
		string(csi["Ordering"].(pdf.String)) != "Identity" {
		t.Errorf("CIDSystemInfo = %v", csi)
	}
	if _, ok := r.CIDFontDict["DW"].(pdf.Number); !ok {
		t.Error("missing DW")
	}
	if r.ToUnicode.IsEmpty() {
		t.Error("empty ToUnicode")
	}

	rv, err := b.Composite("TestFont", "GB1", true)
	if err != nil {
		t.Fatal(err)
	}
	if rv.FontDict["Encoding"] != pdf.Name("Identity-V") {
		t.Errorf("vertical Encoding = %v", rv.FontDict["Encoding"])
	}
}
