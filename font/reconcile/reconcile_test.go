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

package reconcile

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/pdffix/font/widths"
	"seehuhn.de/go/pdffix/pdf"
)

func TestSimpleMismatch(t *testing.T) {
	data := pdf.NewData()
	fontDict := pdf.Dict{
		"FirstChar": pdf.Integer(65),
		"LastChar":  pdf.Integer(67),
		"Widths":    pdf.Array{pdf.Number(500), pdf.Number(510), pdf.Number(540)},
	}
	fontWidth := func(code byte) (float64, bool) {
		switch code {
		case 65, 66:
			return 500, true
		case 67:
			return 540, true
		}
		return 0, false
	}

	res, err := Simple(data, fontDict, fontWidth, 250, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mismatches != 1 || !res.Changed {
		t.Fatalf("got %+v", res)
	}
	want := pdf.Array{pdf.Number(500), pdf.Number(500), pdf.Number(540)}
	if diff := cmp.Diff(want, fontDict["Widths"]); diff != "" {
		t.Errorf("Widths differ (-want +got):\n%s", diff)
	}
}

func TestSimpleTolerance(t *testing.T) {
	data := pdf.NewData()
	fontDict := pdf.Dict{
		"FirstChar": pdf.Integer(65),
		"LastChar":  pdf.Integer(65),
		"Widths":    pdf.Array{pdf.Number(500.8)},
	}
	fontWidth := func(code byte) (float64, bool) { return 500, true }

	res, err := Simple(data, fontDict, fontWidth, 250, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mismatches != 0 || res.Changed {
		t.Errorf("got %+v", res)
	}
}

func TestSimpleNotdefFallback(t *testing.T) {
	data := pdf.NewData()
	fontDict := pdf.Dict{
		"FirstChar": pdf.Integer(65),
		"LastChar":  pdf.Integer(66),
		"Widths":    pdf.Array{pdf.Number(500), pdf.Number(999)},
	}
	// code 66 has no glyph, its width becomes the .notdef advance
	fontWidth := func(code byte) (float64, bool) {
		if code == 65 {
			return 500, true
		}
		return 0, false
	}

	res, err := Simple(data, fontDict, fontWidth, 250, 777)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mismatches != 1 {
		t.Fatalf("got %+v", res)
	}
	want := pdf.Array{pdf.Number(500), pdf.Number(250)}
	if diff := cmp.Diff(want, fontDict["Widths"]); diff != "" {
		t.Errorf("Widths differ (-want +got):\n%s", diff)
	}
}

func TestSimpleMissingWidthLastResort(t *testing.T) {
	data := pdf.NewData()
	fontDict := pdf.Dict{
		"FirstChar": pdf.Integer(65),
		"LastChar":  pdf.Integer(65),
		"Widths":    pdf.Array{pdf.Number(500)},
	}
	fontWidth := func(code byte) (float64, bool) { return 0, false }

	// no .notdef advance available, MissingWidth steps in
	res, err := Simple(data, fontDict, fontWidth, math.NaN(), 600)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mismatches != 1 {
		t.Fatalf("got %+v", res)
	}
	want := pdf.Array{pdf.Number(600)}
	if diff := cmp.Diff(want, fontDict["Widths"]); diff != "" {
		t.Errorf("Widths differ (-want +got):\n%s", diff)
	}
}

func TestSimpleCreatesWidths(t *testing.T) {
	data := pdf.NewData()
	fontDict := pdf.Dict{}
	fontWidth := func(code byte) (float64, bool) {
		if code >= 'A' && code <= 'Z' {
			return 600, true
		}
		return 0, false
	}

	res, err := Simple(data, fontDict, fontWidth, 250, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed {
		t.Fatal("dictionary not updated")
	}

	firstChar := fontDict["FirstChar"].(pdf.Integer)
	lastChar := fontDict["LastChar"].(pdf.Integer)
	arr := fontDict["Widths"].(pdf.Array)
	if len(arr) != int(lastChar-firstChar+1) {
		t.Errorf("len(Widths) = %d, want %d", len(arr), lastChar-firstChar+1)
	}
}

func TestCompositeRebuild(t *testing.T) {
	data := pdf.NewData()
	cidFontDict := pdf.Dict{
		"W": pdf.Array{
			pdf.Integer(1), pdf.Array{pdf.Number(600), pdf.Number(710)},
		},
		"DW": pdf.Number(1000),
	}
	fontWidth := func(cid uint32) (float64, bool) {
		switch cid {
		case 1:
			return 600, true
		case 2:
			return 700, true
		}
		return 0, false
	}

	res, err := Composite(data, cidFontDict, fontWidth, 500, []uint32{1, 2, 9})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed {
		t.Fatal("dictionary not updated")
	}
	// CID 2 was off by 10, CID 9 fell back from DW 1000 to 500
	if res.Mismatches != 2 {
		t.Errorf("mismatches = %d, want 2", res.Mismatches)
	}

	got, dw, err := widths.DecodeComposite(data, cidFontDict["W"], cidFontDict["DW"])
	if err != nil {
		t.Fatal(err)
	}
	if dw != 500 {
		t.Errorf("DW = %g, want 500", dw)
	}
	want := map[uint32]float64{1: 600, 2: 700}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("widths differ (-want +got):\n%s", diff)
	}
}

func TestCompositeNoChange(t *testing.T) {
	data := pdf.NewData()
	cidFontDict := pdf.Dict{
		"W":  pdf.Array{pdf.Integer(1), pdf.Array{pdf.Number(600)}},
		"DW": pdf.Number(500),
	}
	fontWidth := func(cid uint32) (float64, bool) {
		if cid == 1 {
			return 600, true
		}
		return 0, false
	}

	res, err := Composite(data, cidFontDict, fontWidth, 500, []uint32{1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed || res.Mismatches != 0 {
		t.Errorf("got %+v", res)
	}
}

func TestUnitScale(t *testing.T) {
	if s := UnitScale([6]float64{0.001, 0, 0, 0.001, 0, 0}); s != 1 {
		t.Errorf("standard matrix: got %g", s)
	}
	if s := UnitScale([6]float64{0.002, 0, 0, 0.002, 0, 0}); s != 2 {
		t.Errorf("scaled matrix: got %g", s)
	}
}
