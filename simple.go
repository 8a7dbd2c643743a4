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

package pdffix

import (
	"errors"
	"math"

	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/pdffix/font"
	"seehuhn.de/go/pdffix/font/cff"
	"seehuhn.de/go/pdffix/font/encoding"
	"seehuhn.de/go/pdffix/font/reconcile"
	"seehuhn.de/go/pdffix/font/replace"
	"seehuhn.de/go/pdffix/font/sfnt"
	"seehuhn.de/go/pdffix/font/type1"
	"seehuhn.de/go/pdffix/pdf"
)

func (f *Fixer) fixGlyfSimple(e *edit, rec *font.Record, codes []uint16, rep *Report) error {
	fontName := string(rec.PostScriptName)

	data, err := pdf.GetStreamBytes(e.x, rec.FontProgram)
	if err != nil {
		return pdf.Wrap(err, "font program")
	}
	sf, err := sfnt.Parse(data)
	if err != nil {
		return corrupt(fontName, err)
	}
	if err := sf.CheckPermissions(false); err != nil {
		return named(err, fontName)
	}

	symbolic := rec.FontDescriptor != nil && rec.FontDescriptor.IsSymbolic

	changed, err := sf.InsertNotdef()
	if err != nil {
		return corrupt(fontName, err)
	}
	cmapFixed, err := sf.NormalizeCmap(symbolic)
	if err != nil {
		return corrupt(fontName, err)
	}
	changed = changed || cmapFixed

	enc, err := encoding.Extract(e.x, rec.FontDict["Encoding"], !symbolic)
	if err != nil {
		return err
	}
	lookup, err := glyfCodeLookup(sf, enc, symbolic)
	if err != nil {
		return &font.RepairError{
			Kind: font.EncodingUnresolvable,
			Font: fontName,
			Err:  err,
		}
	}

	numGlyphs, err := sf.NumGlyphs()
	if err != nil {
		return corrupt(fontName, err)
	}
	maxGID := 0
	for _, code := range codes {
		if gid := int(lookup(byte(code))); gid > maxGID {
			maxGID = gid
		}
	}
	if maxGID >= numGlyphs {
		added, err := sf.EnsureGlyphs(maxGID + 1)
		if err != nil {
			return corrupt(fontName, err)
		}
		changed = changed || added > 0
	}

	metrics, err := sf.GetMetrics()
	if err != nil {
		return corrupt(fontName, err)
	}
	upem, err := sf.UnitsPerEm()
	if err != nil {
		return corrupt(fontName, err)
	}
	q := 1000 / float64(upem)

	notdefWidth := math.NaN()
	if len(metrics.Widths) > 0 {
		notdefWidth = float64(metrics.Widths[0]) * q
	}
	fontWidth := func(code byte) (float64, bool) {
		gid := lookup(code)
		if gid == 0 || int(gid) >= len(metrics.Widths) {
			return 0, false
		}
		return float64(metrics.Widths[gid]) * q, true
	}
	missingWidth := 0.0
	if rec.FontDescriptor != nil {
		missingWidth = float64(rec.FontDescriptor.MissingWidth)
	}

	fontDict := cloneDict(rec.FontDict)
	res, err := reconcile.Simple(e.x, fontDict, fontWidth, notdefWidth, missingWidth)
	if err != nil {
		return err
	}

	dictChanged := res.Changed
	hasUnicode := rec.HasUnicode
	if symbolic {
		// Symbolic fonts must not carry an Encoding entry; their code
		// to glyph mapping comes from the font program alone.
		if _, ok := fontDict["Encoding"]; ok {
			delete(fontDict, "Encoding")
			dictChanged = true
			// the deleted entry may have been the only Unicode source
			if _, ok := rec.FontDict["ToUnicode"]; !ok {
				hasUnicode = false
			}
		}
		descFixed, err := e.fixSymbolicFlags(fontDict)
		if err != nil {
			return err
		}
		dictChanged = dictChanged || descFixed
	}
	if !hasUnicode {
		added, err := f.addSimpleToUnicode(e, fontDict,
			func(code byte) string { return enc(code) }, fontName, rep)
		if err != nil {
			return err
		}
		dictChanged = dictChanged || added
	}

	if changed {
		out := sf.Encode()
		e.putStream(rec.FontProgramRef, rec.FontProgram, out,
			pdf.Dict{"Length1": pdf.Integer(len(out))})
	}
	if dictChanged {
		e.put(e.ref, fontDict)
	}
	return nil
}

// Descriptor flag bits for the symbolic/nonsymbolic pair.
const (
	flagSymbolic    pdf.Integer = 1 << 2
	flagNonsymbolic pdf.Integer = 1 << 5
)

// fixSymbolicFlags rewrites the descriptor flags of a symbolic font so
// that the Symbolic bit is set and the Nonsymbolic bit is clear.  The
// returned flag reports whether fontDict itself was modified.
func (e *edit) fixSymbolicFlags(fontDict pdf.Dict) (bool, error) {
	obj := fontDict["FontDescriptor"]
	descDict, err := pdf.GetDictTyped(e.x, obj, "FontDescriptor")
	if err != nil {
		return false, err
	}
	if descDict == nil {
		return false, nil
	}
	flags, err := pdf.GetInt(e.x, descDict["Flags"])
	if err != nil {
		return false, err
	}
	want := (flags | flagSymbolic) &^ flagNonsymbolic
	if want == flags {
		return false, nil
	}
	descDict = cloneDict(descDict)
	descDict["Flags"] = want
	if ref, ok := obj.(pdf.Reference); ok {
		e.put(ref, descDict)
		return false, nil
	}
	fontDict["FontDescriptor"] = descDict
	return true, nil
}

// glyfCodeLookup gives the code to glyph mapping of a simple TrueType
// font.  Symbolic fonts use the program's own character map directly;
// non-symbolic fonts go through the glyph names of the resolved
// encoding and the program's Unicode subtable.
func glyfCodeLookup(sf *sfnt.Font, enc encoding.Simple, symbolic bool) (func(code byte) glyph.ID, error) {
	if symbolic {
		return sf.BuiltinLookup()
	}

	uni, err := unicodeCmap(sf)
	if err != nil {
		return sf.BuiltinLookup()
	}
	builtin, _ := sf.BuiltinLookup()

	return func(code byte) glyph.ID {
		glyphName := enc(code)
		switch glyphName {
		case "":
			return 0
		case encoding.UseBuiltin:
			if builtin != nil {
				return builtin(code)
			}
			return 0
		}
		rr := encoding.ToUnicode(glyphName, false)
		if len(rr) == 0 {
			return 0
		}
		return uni[uint32(rr[0])]
	}, nil
}

func (f *Fixer) fixCFFSimple(e *edit, rec *font.Record, codes []uint16, rep *Report) error {
	fontName := string(rec.PostScriptName)

	data, err := pdf.GetStreamBytes(e.x, rec.FontProgram)
	if err != nil {
		return pdf.Wrap(err, "font program")
	}

	// FontFile3/OpenType wraps the CFF data in an sfnt container
	var container *sfnt.Font
	cffData := data
	if rec.Dicts.Type == font.OpenTypeCFFSimple {
		container, err = sfnt.Parse(data)
		if err != nil {
			return corrupt(fontName, err)
		}
		if err := container.CheckPermissions(false); err != nil {
			return named(err, fontName)
		}
		cffData = container.Tables["CFF "]
		if cffData == nil {
			return corrupt(fontName, errors.New("missing CFF table"))
		}
	}

	cf, err := cff.Parse(cffData)
	if err != nil {
		return corrupt(fontName, err)
	}
	changed := cf.InsertNotdef()

	symbolic := rec.FontDescriptor != nil && rec.FontDescriptor.IsSymbolic
	enc, err := encoding.Extract(e.x, rec.FontDict["Encoding"], !symbolic)
	if err != nil {
		return err
	}
	builtin := cf.BuiltinEncoding()
	nameFor := func(code byte) string {
		glyphName := enc(code)
		if glyphName == encoding.UseBuiltin {
			return builtin[code]
		}
		return glyphName
	}

	notdefWidth, err := cf.GlyphWidth(0)
	if err != nil {
		return corrupt(fontName, err)
	}

	// used codes whose glyphs are missing get an empty outline with the
	// .notdef advance
	seen := make(map[string]bool)
	var missing []string
	for _, code := range codes {
		glyphName := nameFor(byte(code))
		if glyphName == "" || seen[glyphName] {
			continue
		}
		seen[glyphName] = true
		if cf.GIDForName(glyphName) < 0 {
			missing = append(missing, glyphName)
		}
	}
	if len(missing) > 0 {
		added, err := cf.EnsureNames(missing,
			func(string) float64 { return notdefWidth })
		if err != nil {
			return corrupt(fontName, err)
		}
		changed = changed || added > 0
	}

	scale := reconcile.UnitScale(cf.FontMatrix())
	fontWidth := func(code byte) (float64, bool) {
		glyphName := nameFor(code)
		if glyphName == "" {
			return 0, false
		}
		gid := cf.GIDForName(glyphName)
		if gid < 0 {
			return 0, false
		}
		w, err := cf.GlyphWidth(gid)
		if err != nil {
			return 0, false
		}
		return w * scale, true
	}
	missingWidth := 0.0
	if rec.FontDescriptor != nil {
		missingWidth = float64(rec.FontDescriptor.MissingWidth)
	}

	fontDict := cloneDict(rec.FontDict)
	res, err := reconcile.Simple(e.x, fontDict, fontWidth, notdefWidth*scale, missingWidth)
	if err != nil {
		return err
	}

	dictChanged := res.Changed
	if !rec.HasUnicode {
		added, err := f.addSimpleToUnicode(e, fontDict, nameFor, fontName, rep)
		if err != nil {
			return err
		}
		dictChanged = dictChanged || added
	}

	if changed {
		out, err := cf.Encode()
		if err != nil {
			return corrupt(fontName, err)
		}
		if container != nil {
			container.Tables["CFF "] = out
			out = container.Encode()
		}
		e.putStream(rec.FontProgramRef, rec.FontProgram, out, nil)
	}
	if dictChanged {
		e.put(e.ref, fontDict)
	}
	return nil
}

func (f *Fixer) fixType1(e *edit, rec *font.Record, codes []uint16, rep *Report) error {
	fontName := string(rec.PostScriptName)

	data, err := pdf.GetStreamBytes(e.x, rec.FontProgram)
	if err != nil {
		return pdf.Wrap(err, "font program")
	}
	t1, err := type1.Parse(data)
	if err != nil {
		return corrupt(fontName, err)
	}

	changed := false
	if !t1.HasNotdef() {
		changed = t1.InsertNotdef()
	}

	symbolic := rec.FontDescriptor != nil && rec.FontDescriptor.IsSymbolic
	enc, err := encoding.Extract(e.x, rec.FontDict["Encoding"], !symbolic)
	if err != nil {
		return err
	}
	builtin, haveBuiltin := t1.BuiltinEncoding()
	nameFor := func(code byte) string {
		glyphName := enc(code)
		if glyphName == encoding.UseBuiltin {
			if haveBuiltin {
				return builtin[code]
			}
			return encoding.Standard(code)
		}
		return glyphName
	}

	notdefWidth, err := t1.GlyphWidth(".notdef")
	if err != nil {
		return corrupt(fontName, err)
	}

	seen := make(map[string]bool)
	var missing []string
	for _, code := range codes {
		glyphName := nameFor(byte(code))
		if glyphName == "" || seen[glyphName] {
			continue
		}
		seen[glyphName] = true
		if !t1.HasGlyph(glyphName) {
			missing = append(missing, glyphName)
		}
	}
	if len(missing) > 0 {
		added, err := t1.EnsureNames(missing,
			func(string) float64 { return notdefWidth })
		if err != nil {
			return corrupt(fontName, err)
		}
		changed = changed || added > 0
	}

	fontWidth := func(code byte) (float64, bool) {
		glyphName := nameFor(code)
		if glyphName == "" || !t1.HasGlyph(glyphName) {
			return 0, false
		}
		w, err := t1.GlyphWidth(glyphName)
		if err != nil {
			return 0, false
		}
		return w, true
	}
	missingWidth := 0.0
	if rec.FontDescriptor != nil {
		missingWidth = float64(rec.FontDescriptor.MissingWidth)
	}

	fontDict := cloneDict(rec.FontDict)
	res, err := reconcile.Simple(e.x, fontDict, fontWidth, notdefWidth, missingWidth)
	if err != nil {
		return err
	}

	dictChanged := res.Changed
	if !rec.HasUnicode {
		added, err := f.addSimpleToUnicode(e, fontDict, nameFor, fontName, rep)
		if err != nil {
			return err
		}
		dictChanged = dictChanged || added
	}

	if changed {
		out := t1.Encode()
		l1, l2, l3 := t1.Lengths()
		e.putStream(rec.FontProgramRef, rec.FontProgram, out, pdf.Dict{
			"Length1": pdf.Integer(l1),
			"Length2": pdf.Integer(l2),
			"Length3": pdf.Integer(l3),
		})
	}
	if dictChanged {
		e.put(e.ref, fontDict)
	}
	return nil
}

// fixType3 only fills in a missing Unicode mapping.  Type 3 glyphs are
// procedural and their widths live in glyph space of the font's own
// matrix, so program and width repairs do not apply.
func (f *Fixer) fixType3(e *edit, rec *font.Record, rep *Report) error {
	if rec.HasUnicode {
		return nil
	}
	fontName := string(rec.PostScriptName)

	enc, err := encoding.Extract(e.x, rec.FontDict["Encoding"], true)
	if err != nil {
		return err
	}

	fontDict := cloneDict(rec.FontDict)
	changed, err := f.addSimpleToUnicode(e, fontDict,
		func(code byte) string { return enc(code) }, fontName, rep)
	if err != nil {
		return err
	}
	if changed {
		e.put(e.ref, fontDict)
	}
	return nil
}

func (f *Fixer) replaceSimple(e *edit, rec *font.Record, rep *Report) error {
	fontName := string(rec.PostScriptName)
	if fontName == "" {
		fontName = replace.DefaultName
	}

	nonSymbolic := font.IsStandardNonSymbolic[fontName]
	if rec.FontDescriptor != nil {
		nonSymbolic = !rec.FontDescriptor.IsSymbolic
	}
	enc, err := encoding.Extract(e.x, rec.FontDict["Encoding"], nonSymbolic)
	if err != nil {
		return err
	}

	r, err := f.builder.Simple(fontName, enc)
	if err != nil {
		return err
	}
	if !r.Exact {
		rep.warn(e.ref, fontName,
			errors.New("no replacement for "+fontName+", substituting "+replace.DefaultName))
	}

	progRef := e.x.Alloc()
	e.putStream(progRef, nil, r.Program,
		pdf.Dict{"Length1": pdf.Integer(len(r.Program))})

	descDict := r.Descriptor.AsDict()
	descDict["FontFile2"] = progRef
	descRef := e.x.Alloc()
	e.put(descRef, descDict)

	fontDict := cloneDict(rec.FontDict)
	for key, val := range r.FontDict {
		fontDict[key] = val
	}
	fontDict["FontDescriptor"] = descRef

	if _, err := f.putToUnicode(e, fontDict, r.ToUnicode, fontName, rep); err != nil {
		return err
	}

	e.put(e.ref, fontDict)
	return nil
}
