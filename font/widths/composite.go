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
	"errors"
	"sort"

	"golang.org/x/exp/maps"

	"seehuhn.de/go/pdffix/pdf"
)

// Runs of at least this many consecutive equal widths are encoded as a
// `first last width` range.  The threshold is fixed by the wire format
// expected by PDF/A validators and must not be tuned.
const rangeRun = 4

// EncodeComposite constructs the W array of a CIDFont dictionary.  The
// entries are encoded in CID order; within each run of consecutive CIDs,
// sub-runs of at least four equal widths become a range triple and all
// remaining entries are grouped into individual-width lists.
func EncodeComposite(widths map[uint32]float64) pdf.Array {
	cids := maps.Keys(widths)
	sort.Slice(cids, func(i, j int) bool { return cids[i] < cids[j] })

	var res pdf.Array
	for start := 0; start < len(cids); {
		// maximal run of consecutive CIDs
		end := start + 1
		for end < len(cids) && cids[end] == cids[end-1]+1 {
			end++
		}

		pos := start
		for pos < end {
			eq := pos + 1
			for eq < end && widths[cids[eq]] == widths[cids[pos]] {
				eq++
			}
			if eq-pos >= rangeRun {
				res = append(res,
					pdf.Integer(cids[pos]),
					pdf.Integer(cids[eq-1]),
					pdf.Number(widths[cids[pos]]))
				pos = eq
				continue
			}

			// group everything up to the next long equal run into one list
			listEnd := eq
			for listEnd < end {
				eq2 := listEnd + 1
				for eq2 < end && widths[cids[eq2]] == widths[cids[listEnd]] {
					eq2++
				}
				if eq2-listEnd >= rangeRun {
					break
				}
				listEnd = eq2
			}

			var wi pdf.Array
			for i := pos; i < listEnd; i++ {
				wi = append(wi, pdf.Number(widths[cids[i]]))
			}
			res = append(res, pdf.Integer(cids[pos]), wi)
			pos = listEnd
		}

		start = end
	}
	return res
}

// DecodeComposite reads the W and DW entries of a CIDFont dictionary.
// Both destination forms of W entries are accepted.  The default width
// applies to all CIDs not listed in the returned map.
func DecodeComposite(r pdf.Getter, wObj, dwObj pdf.Object) (map[uint32]float64, float64, error) {
	w, err := pdf.GetArray(r, wObj)
	if err != nil {
		return nil, 0, err
	}

	dw := 1000.0
	if dwNum, err := pdf.GetNumber(r, dwObj); err == nil && dwObj != nil {
		dw = float64(dwNum)
	}

	res := make(map[uint32]float64)
	for len(w) > 1 {
		c0, err := pdf.GetInt(r, w[0])
		if err != nil {
			return nil, 0, err
		}
		obj1, err := pdf.Resolve(r, w[1])
		if err != nil {
			return nil, 0, err
		}
		if c1, ok := obj1.(pdf.Integer); ok {
			if len(w) < 3 || c0 < 0 || c1 < c0 || c1-c0 > 65536 {
				return nil, 0, &pdf.MalformedFileError{
					Err: errors.New("invalid W entry in CIDFont dictionary"),
				}
			}
			wi, err := pdf.GetNumber(r, w[2])
			if err != nil {
				return nil, 0, err
			}
			for c := c0; c <= c1; c++ {
				res[uint32(c)] = float64(wi)
			}
			w = w[3:]
		} else {
			wi, ok := obj1.(pdf.Array)
			if !ok || c0 < 0 {
				return nil, 0, &pdf.MalformedFileError{
					Err: errors.New("invalid W entry in CIDFont dictionary"),
				}
			}
			for _, wiObj := range wi {
				width, err := pdf.GetNumber(r, wiObj)
				if err != nil {
					return nil, 0, err
				}
				res[uint32(c0)] = float64(width)
				c0++
			}
			w = w[2:]
		}
	}
	if len(w) != 0 {
		return nil, 0, &pdf.MalformedFileError{
			Err: errors.New("invalid W entry in CIDFont dictionary"),
		}
	}

	return res, dw, nil
}
