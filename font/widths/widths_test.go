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

package widths

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/pdffix/pdf"
)

func TestEncodeCompositeRuns(t *testing.T) {
	cases := []struct {
		name   string
		widths map[uint32]float64
		want   pdf.Array
	}{
		{
			name: "four equal widths become a range",
			widths: map[uint32]float64{
				10: 500, 11: 500, 12: 500, 13: 500,
			},
			want: pdf.Array{
				pdf.Integer(10), pdf.Integer(13), pdf.Number(500),
			},
		},
		{
			name: "three equal widths stay a list",
			widths: map[uint32]float64{
				10: 500, 11: 500, 12: 500,
			},
			want: pdf.Array{
				pdf.Integer(10),
				pdf.Array{pdf.Number(500), pdf.Number(500), pdf.Number(500)},
			},
		},
		{
			name: "list before and after an embedded range",
			widths: map[uint32]float64{
				0: 600, 1: 600,
				2: 500, 3: 500, 4: 500, 5: 500,
				6: 700,
			},
			want: pdf.Array{
				pdf.Integer(0),
				pdf.Array{pdf.Number(600), pdf.Number(600)},
				pdf.Integer(2), pdf.Integer(5), pdf.Number(500),
				pdf.Integer(6),
				pdf.Array{pdf.Number(700)},
			},
		},
		{
			name: "gap in CIDs splits runs",
			widths: map[uint32]float64{
				1: 500, 2: 500, 3: 500, 5: 500, 6: 500, 7: 500,
			},
			want: pdf.Array{
				pdf.Integer(1),
				pdf.Array{pdf.Number(500), pdf.Number(500), pdf.Number(500)},
				pdf.Integer(5),
				pdf.Array{pdf.Number(500), pdf.Number(500), pdf.Number(500)},
			},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			got := EncodeComposite(test.widths)
			if d := cmp.Diff(test.want, got); d != "" {
				t.Error(d)
			}
		})
	}
}

func TestCompositeRoundTrip(t *testing.T) {
	widths := map[uint32]float64{
		0: 1000,
		3: 500, 4: 500, 5: 500, 6: 500, 7: 510,
		100: 250, 101: 260, 102: 270,
		1000: 999,
	}

	arr := EncodeComposite(widths)

	r := pdf.NewData()
	got, dw, err := DecodeComposite(r, arr, nil)
	if err != nil {
		t.Fatal(err)
	}
	if dw != 1000 {
		t.Errorf("default width: got %g, want 1000", dw)
	}
	if d := cmp.Diff(widths, got); d != "" {
		t.Error(d)
	}
}

func TestEncodeSimpleInvariant(t *testing.T) {
	ww := make([]float64, 256)
	for i := range ww {
		ww[i] = 600
	}
	ww[65] = 722
	ww[66] = 667

	info := EncodeSimple(ww)
	if got, want := len(info.Widths), int(info.LastChar-info.FirstChar+1); got != want {
		t.Errorf("len(Widths) = %d, want %d", got, want)
	}
	if info.FirstChar > 65 || info.LastChar < 66 {
		t.Errorf("range [%d,%d] does not cover the non-default widths",
			info.FirstChar, info.LastChar)
	}
	if info.MissingWidth != 600 {
		t.Errorf("MissingWidth = %g, want 600", info.MissingWidth)
	}
}

func TestExtractSimple(t *testing.T) {
	r := pdf.NewData()
	fontDict := pdf.Dict{
		"FirstChar": pdf.Integer(65),
		"LastChar":  pdf.Integer(67),
		"Widths": pdf.Array{
			pdf.Number(722), pdf.Number(667), pdf.Number(700),
		},
	}

	ww, err := ExtractSimple(r, fontDict, 500)
	if err != nil {
		t.Fatal(err)
	}
	if ww[64] != 500 || ww[65] != 722 || ww[66] != 667 || ww[67] != 700 || ww[68] != 500 {
		t.Errorf("unexpected widths: %v", ww[64:69])
	}
}
