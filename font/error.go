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

package font

import "errors"

// Kind classifies the ways a font repair operation can fail.
type Kind int

// The possible failure classes.
const (
	// UnsupportedFontFormat indicates that the embedded font program
	// could not be identified at all.
	UnsupportedFontFormat Kind = iota + 1

	// FontProgramCorrupt indicates a recognized container with an
	// invalid required table or field.
	FontProgramCorrupt

	// EncodingUnresolvable indicates that no viable code-to-glyph
	// mapping could be constructed.
	EncodingUnresolvable

	// EmbeddingRestricted indicates that the font program forbids
	// embedding.
	EmbeddingRestricted

	// SubsettingRestricted indicates that the font program forbids
	// subsetting.
	SubsettingRestricted

	// CMapStructureInvalid indicates that a ToUnicode CMap failed its
	// structural validation.
	CMapStructureInvalid

	// ReplacementUnavailable indicates that no bundled replacement
	// exists for a standard font name or CID ordering.
	ReplacementUnavailable
)

func (k Kind) String() string {
	switch k {
	case UnsupportedFontFormat:
		return "unsupported font format"
	case FontProgramCorrupt:
		return "font program corrupt"
	case EncodingUnresolvable:
		return "encoding unresolvable"
	case EmbeddingRestricted:
		return "embedding restricted"
	case SubsettingRestricted:
		return "subsetting restricted"
	case CMapStructureInvalid:
		return "CMap structure invalid"
	case ReplacementUnavailable:
		return "replacement unavailable"
	default:
		return "unknown error"
	}
}

// RepairError describes the failure of a repair operation for one font.
// Failures are scoped to a single font; the remaining fonts of a
// document are unaffected.
type RepairError struct {
	Kind Kind
	Font string // PostScript name, if known
	Err  error
}

func (e *RepairError) Error() string {
	msg := e.Kind.String()
	if e.Font != "" {
		msg = e.Font + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RepairError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a [RepairError] of the given kind.
func IsKind(err error, k Kind) bool {
	var rErr *RepairError
	if errors.As(err, &rErr) {
		return rErr.Kind == k
	}
	return false
}

// InvalidFontError indicates a problem with font data.
type InvalidFontError struct {
	SubSystem string
	Reason    string
}

func (err *InvalidFontError) Error() string {
	return err.SubSystem + ": " + err.Reason
}

// NotSupportedError indicates that a font file seems valid but uses a
// feature which is not supported by this library.
type NotSupportedError struct {
	SubSystem string
	Feature   string
}

func (err *NotSupportedError) Error() string {
	return err.SubSystem + ": " + err.Feature + " not supported"
}

// IsUnsupported returns true if the error is a NotSupportedError.
func IsUnsupported(err error) bool {
	var nErr *NotSupportedError
	return errors.As(err, &nErr)
}
