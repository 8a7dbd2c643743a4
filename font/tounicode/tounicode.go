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

// Package tounicode reads and writes ToUnicode CMaps, the PDF side-channel
// which maps character codes to Unicode text for extraction.
package tounicode

import (
	"sort"

	"golang.org/x/exp/maps"
)

// Info holds the contents of a ToUnicode CMap: a mapping from character
// codes to Unicode strings, together with the code width of the font's
// codespace.
type Info struct {
	// TwoByte selects the two-byte codespace <0000> <FFFF>.  Otherwise
	// the one-byte codespace <00> <FF> is used.
	TwoByte bool

	// Singles lists the mapped codes, sorted by code.
	Singles []Single
}

// Single maps one character code to a Unicode string.
type Single struct {
	Code  uint16
	Value string
}

// New creates an Info object from a code-to-text mapping.
func New(twoByte bool, m map[uint16]string) *Info {
	codes := maps.Keys(m)
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	info := &Info{TwoByte: twoByte}
	for _, code := range codes {
		info.Singles = append(info.Singles, Single{Code: code, Value: m[code]})
	}
	return info
}

// IsEmpty reports whether the CMap contains no mappings.
func (info *Info) IsEmpty() bool {
	return info == nil || len(info.Singles) == 0
}

// Lookup returns the Unicode string for a character code.
func (info *Info) Lookup(code uint16) (string, bool) {
	if info == nil {
		return "", false
	}
	idx := sort.Search(len(info.Singles), func(i int) bool {
		return info.Singles[i].Code >= code
	})
	if idx < len(info.Singles) && info.Singles[idx].Code == code {
		return info.Singles[idx].Value, true
	}
	return "", false
}
