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

// Package replace builds substitute fonts for non-embedded fonts.  The
// replacement programs come from a Store which bundles the Go fonts for
// the standard Latin faces; symbol and CJK replacements can be
// registered by the caller.
package replace

import (
	"fmt"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"

	"seehuhn.de/go/pdffix/font"
)

// DefaultName is the replacement used for unknown non-embedded fonts.
const DefaultName = "Helvetica"

// Store holds replacement font programs by logical name, plus one
// multi-face CJK collection.  The zero value is not usable, use
// [NewStore].
type Store struct {
	mu       sync.RWMutex
	programs map[string][]byte
	cjkFaces [4][]byte
}

// NewStore returns a Store with the bundled Latin replacements.  The
// serif faces reuse the sans programs, since the bundled collection has
// no serif family.
func NewStore() *Store {
	sans := [4][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF}
	mono := [4][]byte{gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF}

	s := &Store{programs: make(map[string][]byte)}
	for i, suffix := range []string{"", "-Bold", "-Oblique", "-BoldOblique"} {
		s.programs["Helvetica"+suffix] = sans[i]
		s.programs["Courier"+suffix] = mono[i]
	}
	for i, suffix := range []string{"-Roman", "-Bold", "-Italic", "-BoldItalic"} {
		s.programs["Times"+suffix] = sans[i]
	}
	return s
}

// Register adds (or replaces) the replacement program for a logical
// font name.  This is how Symbol and ZapfDingbats replacements are
// supplied.
func (s *Store) Register(name string, program []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[name] = program
}

// The face indices of the CJK collection.
const (
	FaceJapanese = iota
	FaceSimplified
	FaceTraditional
	FaceKorean
)

// RegisterCJKFace adds one face of the CJK replacement collection.
func (s *Store) RegisterCJKFace(face int, program []byte) error {
	if face < 0 || face >= len(s.cjkFaces) {
		return fmt.Errorf("invalid CJK face index %d", face)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cjkFaces[face] = program
	return nil
}

// Latin returns the replacement program for a simple font and reports
// whether the name was known.  Unknown names fall back to the default
// replacement.
func (s *Store) Latin(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if data, ok := s.programs[name]; ok {
		return data, true
	}
	return s.programs[DefaultName], false
}

// Symbolic returns the replacement program registered for one of the
// two standard symbol fonts.
func (s *Store) Symbolic(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if data, ok := s.programs[name]; ok {
		return data, nil
	}
	return nil, &font.RepairError{
		Kind: font.ReplacementUnavailable,
		Font: name,
	}
}

// FaceForOrdering maps a CID ordering to a face of the CJK collection.
// Unknown orderings use the Simplified face.
func FaceForOrdering(ordering string) int {
	switch ordering {
	case "Japan1":
		return FaceJapanese
	case "GB1":
		return FaceSimplified
	case "CNS1":
		return FaceTraditional
	case "Korea1":
		return FaceKorean
	default:
		return FaceSimplified
	}
}

// CJK returns the replacement program for a composite font with the
// given CID ordering.
func (s *Store) CJK(ordering string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data := s.cjkFaces[FaceForOrdering(ordering)]
	if data == nil {
		return nil, &font.RepairError{
			Kind: font.ReplacementUnavailable,
			Font: "Adobe-" + ordering,
		}
	}
	return data, nil
}
