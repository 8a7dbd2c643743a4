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

// Package reconcile compares the glyph widths declared in font
// dictionaries with the widths stored in the font program, and corrects
// the dictionaries where the two disagree.
package reconcile

import (
	"math"

	"seehuhn.de/go/pdffix/font/widths"
	"seehuhn.de/go/pdffix/pdf"
)

// Widths within this distance of the declared value are left alone.
// The tolerance matches the precision used by standard validators.
const tolerance = 1.0

// Result describes the outcome of one reconciliation pass.
type Result struct {
	// Changed is set if the font dictionary was modified.
	Changed bool

	// Mismatches is the number of width entries which were outside the
	// tolerance.
	Mismatches int
}

// UnitScale returns the factor converting font design units to PDF
// glyph space units.  A font matrix other than the standard
// [0.001 0 0 0.001 0 0] rescales all widths.
func UnitScale(fontMatrix [6]float64) float64 {
	return fontMatrix[0] * 1000
}

// Simple checks the Widths array of a simple font dictionary against
// the font program.  The fontWidth callback returns the width of a
// character code in glyph space units, or false if the code does not
// resolve to a glyph; such codes fall back to the .notdef advance.  The
// descriptor's MissingWidth is consulted only if notdefWidth is NaN.
//
// The FirstChar/LastChar range of the dictionary is preserved where it
// exists; a missing Widths array is created from scratch.
func Simple(r pdf.Getter, fontDict pdf.Dict, fontWidth func(code byte) (float64, bool), notdefWidth, missingWidth float64) (*Result, error) {
	fallback := notdefWidth
	if math.IsNaN(fallback) {
		fallback = missingWidth
	}

	expected := make([]float64, 256)
	for code := range expected {
		w, ok := fontWidth(byte(code))
		if !ok {
			w = fallback
		}
		expected[code] = w
	}

	res := &Result{}

	if _, ok := fontDict["Widths"]; !ok {
		info := widths.EncodeSimple(expected)
		fontDict["FirstChar"] = info.FirstChar
		fontDict["LastChar"] = info.LastChar
		fontDict["Widths"] = info.Widths
		res.Changed = true
		return res, nil
	}

	declared, err := widths.ExtractSimple(r, fontDict, fallback)
	if err != nil {
		return nil, err
	}

	firstChar, err := pdf.GetInt(r, fontDict["FirstChar"])
	if err != nil {
		return nil, err
	}
	lastChar, err := pdf.GetInt(r, fontDict["LastChar"])
	if err != nil {
		return nil, err
	}
	if firstChar < 0 {
		firstChar = 0
	}
	if lastChar > 255 {
		lastChar = 255
	}
	if lastChar < firstChar {
		lastChar = firstChar
	}

	for code := firstChar; code <= lastChar; code++ {
		if math.Abs(declared[code]-expected[code]) > tolerance {
			res.Mismatches++
		}
	}

	arr := make(pdf.Array, lastChar-firstChar+1)
	rebuilt := false
	for i := range arr {
		code := int(firstChar) + i
		w := declared[code]
		if math.Abs(w-expected[code]) > tolerance {
			w = expected[code]
			rebuilt = true
		}
		arr[i] = pdf.Number(w)
	}

	oldArr, err := pdf.GetArray(r, fontDict["Widths"])
	if err != nil {
		return nil, err
	}
	if rebuilt || len(oldArr) != len(arr) {
		fontDict["FirstChar"] = firstChar
		fontDict["LastChar"] = lastChar
		fontDict["Widths"] = arr
		res.Changed = true
	}
	return res, nil
}

// Composite rebuilds the W and DW entries of a CIDFont dictionary from
// the font program.  The width of every CID in cids and every CID
// listed in the existing W array is recomputed through the fontWidth
// callback; CIDs which do not resolve to a glyph use the .notdef
// advance.  DW is reset to the .notdef advance.
func Composite(r pdf.Getter, cidFontDict pdf.Dict, fontWidth func(cid uint32) (float64, bool), notdefWidth float64, cids []uint32) (*Result, error) {
	declared, oldDW, err := widths.DecodeComposite(r,
		cidFontDict["W"], cidFontDict["DW"])
	if err != nil {
		return nil, err
	}

	all := make(map[uint32]bool, len(declared)+len(cids))
	for cid := range declared {
		all[cid] = true
	}
	for _, cid := range cids {
		all[cid] = true
	}

	res := &Result{}

	expected := make(map[uint32]float64, len(all))
	for cid := range all {
		w, ok := fontWidth(cid)
		if !ok {
			w = notdefWidth
		}
		expected[cid] = w

		old, ok := declared[cid]
		if !ok {
			old = oldDW
		}
		if math.Abs(old-w) > tolerance {
			res.Mismatches++
		}
	}

	// CIDs at the default width stay out of the array
	for cid, w := range expected {
		if w == notdefWidth {
			delete(expected, cid)
		}
	}

	newW := widths.EncodeComposite(expected)

	if res.Mismatches > 0 || oldDW != notdefWidth {
		if len(newW) > 0 {
			cidFontDict["W"] = newW
		} else {
			delete(cidFontDict, "W")
		}
		cidFontDict["DW"] = pdf.Number(notdefWidth)
		res.Changed = true
	}
	return res, nil
}
