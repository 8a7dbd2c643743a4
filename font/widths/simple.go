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

// Package widths encodes and decodes the glyph width tables of PDF font
// dictionaries: the dense Widths array of simple fonts and the sparse W
// array of CIDFonts.
package widths

import (
	"seehuhn.de/go/pdffix/pdf"
)

// Info contains the FirstChar, LastChar and Widths entries of a simple
// font dictionary, together with the MissingWidth value for the
// descriptor.  The Widths array always has LastChar-FirstChar+1 entries.
type Info struct {
	FirstChar    pdf.Integer
	LastChar     pdf.Integer
	Widths       pdf.Array
	MissingWidth float64
}

// EncodeSimple encodes the width information for a simple font.  The
// slice ww must have length 256 and is indexed by character code.  Runs
// of equal widths at either end of the code range are trimmed into the
// MissingWidth value.
func EncodeSimple(ww []float64) *Info {
	cand := make(map[float64]bool)
	cand[ww[0]] = true
	cand[ww[255]] = true
	bestGain := 0
	firstChar := 0
	lastChar := 255
	var missingWidth float64
	for w := range cand {
		b := 255
		for b > 0 && ww[b] == w {
			b--
		}
		a := 0
		for a < b && ww[a] == w {
			a++
		}
		gain := (255 - b + a) * 4
		if w != 0 {
			gain -= 15
		}
		if gain > bestGain {
			bestGain = gain
			firstChar = a
			lastChar = b
			missingWidth = w
		}
	}

	widths := make(pdf.Array, lastChar-firstChar+1)
	for i := range widths {
		widths[i] = pdf.Number(ww[firstChar+i])
	}

	return &Info{
		FirstChar:    pdf.Integer(firstChar),
		LastChar:     pdf.Integer(lastChar),
		Widths:       widths,
		MissingWidth: missingWidth,
	}
}

// ExtractSimple reads the width information of a simple font dictionary.
// The returned slice has length 256 and is indexed by character code;
// codes outside the FirstChar..LastChar range get missingWidth.
func ExtractSimple(r pdf.Getter, fontDict pdf.Dict, missingWidth float64) ([]float64, error) {
	res := make([]float64, 256)
	for c := range res {
		res[c] = missingWidth
	}

	firstChar, err := pdf.GetInt(r, fontDict["FirstChar"])
	if err != nil {
		return nil, err
	}
	widths, err := pdf.GetArray(r, fontDict["Widths"])
	if err != nil {
		return nil, err
	}

	for firstChar < 0 && len(widths) > 0 {
		firstChar++
		widths = widths[1:]
	}

	code := firstChar
	for code < 256 && len(widths) > 0 {
		width, err := pdf.GetNumber(r, widths[0])
		if err == nil {
			res[code] = float64(width)
		}
		code++
		widths = widths[1:]
	}

	return res, nil
}
