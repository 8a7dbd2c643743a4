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

// Package usage collects, per font, the character codes referenced by
// text-showing operations.  The raw strings are supplied by the content
// stream iterator of the surrounding document graph, covering page
// content, form XObjects, tiling patterns, annotation appearance streams
// and Type3 glyph procedures.
package usage

import (
	"sort"

	"golang.org/x/exp/maps"

	"seehuhn.de/go/pdffix/pdf"
)

// Collector accumulates the codes used by each font.  Fonts are
// identified by the reference of their font dictionary.
type Collector struct {
	used map[pdf.Reference]map[uint16]bool

	// OddStrings counts composite-font show strings with an odd number
	// of bytes.  The trailing byte of such a string is dropped.
	OddStrings map[pdf.Reference]int
}

// NewCollector allocates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		used:       make(map[pdf.Reference]map[uint16]bool),
		OddStrings: make(map[pdf.Reference]int),
	}
}

// AddText records the codes of one text-showing operation.  For composite
// fonts adjacent byte pairs form one 16-bit code; simple fonts use single
// bytes.
func (c *Collector) AddText(font pdf.Reference, composite bool, s pdf.String) {
	set := c.used[font]
	if set == nil {
		set = make(map[uint16]bool)
		c.used[font] = set
	}

	if !composite {
		for _, b := range s {
			set[uint16(b)] = true
		}
		return
	}

	if len(s)%2 != 0 {
		c.OddStrings[font]++
		s = s[:len(s)-1]
	}
	for i := 0; i+1 < len(s); i += 2 {
		set[uint16(s[i])<<8|uint16(s[i+1])] = true
	}
}

// Codes returns the codes recorded for a font, sorted.
func (c *Collector) Codes(font pdf.Reference) []uint16 {
	set := c.used[font]
	if len(set) == 0 {
		return nil
	}
	codes := maps.Keys(set)
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Fonts returns the references of all fonts with recorded usage, sorted.
func (c *Collector) Fonts() []pdf.Reference {
	ff := maps.Keys(c.used)
	sort.Slice(ff, func(i, j int) bool { return ff[i] < ff[j] })
	return ff
}
