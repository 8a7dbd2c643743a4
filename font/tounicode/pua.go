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

package tounicode

import (
	"seehuhn.de/go/pdffix/font/encoding"
)

// Private Use Area allocation for forbidden destinations: the BMP range
// U+E000 to U+F8FF is used first, then allocation continues in plane 15
// at U+F0000.
const (
	puaBMPFirst  = 0xE000
	puaBMPLast   = 0xF8FF
	puaPlaneLast = 0xFFFFD
)

// Substitution records that the destination of a code was changed from a
// forbidden value to a Private Use Area code point.
type Substitution struct {
	Code uint16
	Old  rune
	New  rune
}

// SubstituteForbidden replaces forbidden destination values (U+0000,
// U+FEFF, U+FFFE and the surrogate range) with Private Use Area code
// points.  Each substitution takes the lowest PUA code point which is not
// already used by any destination, so that pre-existing PUA mappings are
// never collided with.  The substitutions made are returned.
func (info *Info) SubstituteForbidden() []Substitution {
	used := make(map[rune]bool)
	for _, s := range info.Singles {
		for _, r := range s.Value {
			if isPUA(r) {
				used[r] = true
			}
		}
	}

	next := rune(puaBMPFirst)
	alloc := func() rune {
		for next <= puaPlaneLast {
			r := next
			if next == puaBMPLast {
				next = 0xF0000
			} else {
				next++
			}
			if !used[r] {
				used[r] = true
				return r
			}
		}
		return 0xFFFD // PUA exhausted, not reachable with 16-bit codes
	}

	var subs []Substitution
	for i, s := range info.Singles {
		rr := []rune(s.Value)
		changed := false
		for j, r := range rr {
			if !encoding.IsForbiddenRune(r) {
				continue
			}
			repl := alloc()
			subs = append(subs, Substitution{Code: s.Code, Old: r, New: repl})
			rr[j] = repl
			changed = true
		}
		if changed {
			info.Singles[i].Value = string(rr)
		}
	}
	return subs
}

func isPUA(r rune) bool {
	return r >= puaBMPFirst && r <= puaBMPLast ||
		r >= 0xF0000 && r <= puaPlaneLast
}
