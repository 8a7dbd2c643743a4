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

// Package pdffix repairs the fonts of a PDF document so that every font
// is embedded, has correct glyph coverage and widths, and carries a
// Unicode mapping for text extraction.
//
// Embedded font programs are edited in place: a missing .notdef glyph
// is inserted (shifting all glyph references), glyphs for used but
// missing codes are added as empty outlines, TrueType cmap tables are
// normalized, and the declared widths are reconciled with the program.
// Non-embedded fonts are replaced by substitute programs from a
// [replace.Store].
//
// All repairs are scoped to one font at a time.  Either all edits for a
// font are committed to the document, or the font is left untouched.
package pdffix

import (
	"errors"

	"seehuhn.de/go/pdffix/font"
	"seehuhn.de/go/pdffix/font/replace"
	"seehuhn.de/go/pdffix/font/usage"
	"seehuhn.de/go/pdffix/pdf"
)

// Options configures a [Fixer].  The zero value is usable.
type Options struct {
	// Store provides the replacement font programs.  If nil, a store
	// with the bundled Latin replacements is used.
	Store *replace.Store
}

// Warning records a non-fatal condition encountered while repairing a
// font.
type Warning struct {
	Ref  pdf.Reference
	Font string // PostScript name, if known
	Err  error
}

// Report summarizes one repair run.
type Report struct {
	Repaired int // fonts with their embedded program repaired
	Replaced int // fonts replaced by a substitute program
	Skipped  int // fonts skipped due to embedding restrictions
	Failed   int // fonts left unmodified after an error

	Warnings []Warning
}

func (rep *Report) warn(ref pdf.Reference, fontName string, err error) {
	rep.Warnings = append(rep.Warnings, Warning{Ref: ref, Font: fontName, Err: err})
}

// Fixer repairs the fonts of PDF documents.  A Fixer can be reused
// across documents; it holds no per-document state.
type Fixer struct {
	store   *replace.Store
	builder *replace.Builder
}

// New creates a Fixer.  A nil opts selects the defaults.
func New(opts *Options) *Fixer {
	var store *replace.Store
	if opts != nil {
		store = opts.Store
	}
	if store == nil {
		store = replace.NewStore()
	}
	return &Fixer{
		store:   store,
		builder: replace.NewBuilder(store),
	}
}

// Run repairs every font with recorded usage.  A failure for one font
// is recorded in the report and does not affect the remaining fonts.
func (f *Fixer) Run(x pdf.Putter, used *usage.Collector) *Report {
	rep := &Report{}
	for _, ref := range used.Fonts() {
		err := f.FixFont(x, ref, used.Codes(ref), rep)
		if err != nil {
			rep.Failed++
			rep.warn(ref, "", err)
		}
	}
	return rep
}

// FixFont runs the repair pipeline for a single font dictionary.  The
// codes are the character codes recorded for the font by the usage
// collector: single bytes for simple fonts, 16-bit values for composite
// fonts.
//
// All edits are prepared on copies first and committed together; when
// an error is returned the document is unchanged.
func (f *Fixer) FixFont(x pdf.Putter, ref pdf.Reference, codes []uint16, rep *Report) error {
	rec, err := font.Classify(x, ref)
	if err != nil {
		return err
	}
	fontName := string(rec.PostScriptName)

	e := &edit{x: x, ref: ref, pending: make(map[pdf.Reference]pdf.Object)}

	var replaced bool
	switch {
	case rec.Dicts.Type == font.Type3:
		err = f.fixType3(e, rec, rep)
	case rec.Dicts.Type == font.MMType1:
		err = &font.RepairError{Kind: font.UnsupportedFontFormat, Font: fontName}
	case rec.Embedded && rec.FontProgram != nil:
		err = f.fixEmbedded(e, rec, codes, rep)
	case rec.Dicts.Type.IsComposite():
		replaced = true
		err = f.replaceComposite(e, rec, rep)
	default:
		replaced = true
		err = f.replaceSimple(e, rec, rep)
	}
	if err != nil {
		if font.IsKind(err, font.EmbeddingRestricted) ||
			font.IsKind(err, font.SubsettingRestricted) {
			rep.Skipped++
			rep.warn(ref, fontName, err)
			return nil
		}
		return err
	}

	if err := e.commit(); err != nil {
		return err
	}
	if replaced {
		rep.Replaced++
	} else {
		rep.Repaired++
	}
	return nil
}

func (f *Fixer) fixEmbedded(e *edit, rec *font.Record, codes []uint16, rep *Report) error {
	switch rec.Dicts.Type {
	case font.TrueTypeSimple, font.OpenTypeGlyfSimple:
		return f.fixGlyfSimple(e, rec, codes, rep)
	case font.CFFSimple, font.OpenTypeCFFSimple:
		return f.fixCFFSimple(e, rec, codes, rep)
	case font.Type1:
		return f.fixType1(e, rec, codes, rep)
	case font.TrueTypeComposite, font.OpenTypeGlyfComposite:
		return f.fixGlyfComposite(e, rec, codes, rep)
	case font.CFFComposite, font.OpenTypeCFFComposite:
		return f.fixCFFComposite(e, rec, codes, rep)
	default:
		return &font.RepairError{
			Kind: font.UnsupportedFontFormat,
			Font: string(rec.PostScriptName),
		}
	}
}

// edit collects the object changes for one font, so that they can be
// committed in one go after the whole pipeline has succeeded.
type edit struct {
	x       pdf.Putter
	ref     pdf.Reference // the font dictionary
	pending map[pdf.Reference]pdf.Object
}

func (e *edit) put(ref pdf.Reference, obj pdf.Object) {
	e.pending[ref] = obj
}

// putStream replaces the content of a stream object.  Filter entries of
// the old stream refer to the stored (encoded) data and are dropped;
// extra entries override the remaining dictionary entries.
func (e *edit) putStream(ref pdf.Reference, orig *pdf.Stream, data []byte, extra pdf.Dict) {
	dict := pdf.Dict{}
	if orig != nil {
		for key, val := range orig.Dict {
			switch key {
			case "Filter", "DecodeParms", "Length", "Length1", "Length2", "Length3":
				// stale after re-encoding
			default:
				dict[key] = val
			}
		}
	}
	for key, val := range extra {
		dict[key] = val
	}
	e.put(ref, pdf.NewStream(dict, data))
}

func (e *edit) commit() error {
	for ref, obj := range e.pending {
		if err := e.x.Put(ref, obj); err != nil {
			return err
		}
	}
	return nil
}

func cloneDict(d pdf.Dict) pdf.Dict {
	res := make(pdf.Dict, len(d))
	for key, val := range d {
		res[key] = val
	}
	return res
}

// corrupt wraps a font program parsing or editing error.  Unsupported
// features are reported as UnsupportedFontFormat, everything else as
// FontProgramCorrupt.
func corrupt(fontName string, err error) error {
	var rErr *font.RepairError
	if errors.As(err, &rErr) {
		return named(err, fontName)
	}
	kind := font.FontProgramCorrupt
	if font.IsUnsupported(err) {
		kind = font.UnsupportedFontFormat
	}
	return &font.RepairError{Kind: kind, Font: fontName, Err: err}
}

// named fills in the font name of a RepairError which lacks one.
func named(err error, fontName string) error {
	var rErr *font.RepairError
	if errors.As(err, &rErr) && rErr.Font == "" {
		rErr.Font = fontName
	}
	return err
}
