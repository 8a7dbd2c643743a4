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
	"fmt"
	"strings"

	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/pdffix/font"
	"seehuhn.de/go/pdffix/font/cff"
	"seehuhn.de/go/pdffix/font/encoding"
	"seehuhn.de/go/pdffix/font/reconcile"
	"seehuhn.de/go/pdffix/font/sfnt"
	"seehuhn.de/go/pdffix/font/tounicode"
	"seehuhn.de/go/pdffix/font/widths"
	"seehuhn.de/go/pdffix/pdf"
)

// identityCodes reports whether the encoding CMap of a composite font
// maps codes to CIDs one-to-one, and converts the used codes to CIDs in
// that case.  For other CMaps the code to CID mapping is unknown here
// and coverage repair is skipped.
func identityCodes(r pdf.Getter, fontDict pdf.Dict, codes []uint16) ([]uint32, bool) {
	encName, _ := pdf.GetName(r, fontDict["Encoding"])
	if encName != "Identity-H" && encName != "Identity-V" {
		return nil, false
	}
	cids := make([]uint32, len(codes))
	for i, code := range codes {
		cids[i] = uint32(code)
	}
	return cids, true
}

// descendantRef returns the reference holding the CIDFont dictionary,
// or 0 if the dictionary is stored inline.
func descendantRef(r pdf.Getter, fontDict pdf.Dict) pdf.Reference {
	arr, err := pdf.GetArray(r, fontDict["DescendantFonts"])
	if err != nil || len(arr) != 1 {
		return 0
	}
	ref, _ := arr[0].(pdf.Reference)
	return ref
}

func (f *Fixer) fixGlyfComposite(e *edit, rec *font.Record, codes []uint16, rep *Report) error {
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

	cid2gid, err := encoding.ExtractCIDToGID(e.x, rec.CIDFontDict["CIDToGIDMap"])
	if err != nil {
		return err
	}

	cids, identity := identityCodes(e.x, rec.FontDict, codes)

	changed, err := sf.InsertNotdef()
	if err != nil {
		return corrupt(fontName, err)
	}
	mapChanged := false
	if changed {
		numGlyphs, err := sf.NumGlyphs()
		if err != nil {
			return corrupt(fontName, err)
		}
		// the old CID range, before the shift added a glyph
		numCIDs := numGlyphs - 1
		for _, cid := range cids {
			if int(cid)+1 > numCIDs {
				numCIDs = int(cid) + 1
			}
		}
		var overflow []uint32
		cid2gid, overflow = cid2gid.Shift(numCIDs)
		mapChanged = true
		for _, cid := range overflow {
			rep.warn(e.ref, fontName,
				fmt.Errorf("CID %d: glyph index clamped to 0xFFFF", cid))
		}
	}

	numGlyphs, err := sf.NumGlyphs()
	if err != nil {
		return corrupt(fontName, err)
	}
	maxGID := 0
	for _, cid := range cids {
		if gid := int(cid2gid.Lookup(cid)); gid > maxGID {
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

	notdefWidth := 0.0
	if len(metrics.Widths) > 0 {
		notdefWidth = float64(metrics.Widths[0]) * q
	}
	fontWidth := func(cid uint32) (float64, bool) {
		gid := cid2gid.Lookup(cid)
		if int(gid) >= len(metrics.Widths) {
			return 0, false
		}
		return float64(metrics.Widths[gid]) * q, true
	}

	cidFontDict := cloneDict(rec.CIDFontDict)
	res, err := reconcile.Composite(e.x, cidFontDict, fontWidth, notdefWidth, cids)
	if err != nil {
		return err
	}
	descChanged := res.Changed

	if mapChanged {
		if b := cid2gid.Bytes(); b != nil {
			mapRef := e.x.Alloc()
			e.put(mapRef, pdf.NewStream(nil, b))
			cidFontDict["CIDToGIDMap"] = mapRef
		} else {
			cidFontDict["CIDToGIDMap"] = pdf.Name("Identity")
		}
		descChanged = true
	}

	fontDict := cloneDict(rec.FontDict)
	dictChanged := false
	if !rec.HasUnicode && identity {
		added, err := f.addCompositeToUnicode(e, fontDict, sf, cid2gid, cids, fontName, rep)
		if err != nil {
			return err
		}
		dictChanged = added
	}

	if changed {
		out := sf.Encode()
		e.putStream(rec.FontProgramRef, rec.FontProgram, out,
			pdf.Dict{"Length1": pdf.Integer(len(out))})
	}
	if descChanged {
		if ref := descendantRef(e.x, rec.FontDict); ref != 0 {
			e.put(ref, cidFontDict)
		} else {
			fontDict["DescendantFonts"] = pdf.Array{cidFontDict}
			dictChanged = true
		}
	}
	if dictChanged {
		e.put(e.ref, fontDict)
	}
	return nil
}

// addCompositeToUnicode derives a ToUnicode mapping for an
// Identity-encoded composite font by inverting the program's Unicode
// character map.  Glyphs reachable from several characters map to the
// smallest one.
func (f *Fixer) addCompositeToUnicode(e *edit, fontDict pdf.Dict, sf *sfnt.Font, cid2gid *encoding.CIDToGID, cids []uint32, fontName string, rep *Report) (bool, error) {
	uni, err := unicodeCmap(sf)
	if err != nil {
		rep.warn(e.ref, fontName,
			errors.New("cannot derive ToUnicode: "+err.Error()))
		return false, nil
	}

	rev := make(map[glyph.ID]rune)
	for r, gid := range uni {
		if gid == 0 || r > 0x10FFFF {
			continue
		}
		if old, ok := rev[gid]; !ok || rune(r) < old {
			rev[gid] = rune(r)
		}
	}

	m := make(map[uint16]string)
	for _, cid := range cids {
		if cid > 0xFFFF {
			continue
		}
		gid := cid2gid.Lookup(cid)
		if r, ok := rev[gid]; ok {
			m[uint16(cid)] = string(r)
		}
	}
	return f.putToUnicode(e, fontDict, tounicode.New(true, m), fontName, rep)
}

func (f *Fixer) fixCFFComposite(e *edit, rec *font.Record, codes []uint16, rep *Report) error {
	fontName := string(rec.PostScriptName)

	data, err := pdf.GetStreamBytes(e.x, rec.FontProgram)
	if err != nil {
		return pdf.Wrap(err, "font program")
	}

	var container *sfnt.Font
	cffData := data
	if rec.Dicts.Type == font.OpenTypeCFFComposite {
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

	scale := reconcile.UnitScale(cf.FontMatrix())
	if scale == 0 {
		scale = 1
	}

	cids, _ := identityCodes(e.x, rec.FontDict, codes)
	if len(cids) > 0 {
		declared, dw, err := widths.DecodeComposite(e.x,
			rec.CIDFontDict["W"], rec.CIDFontDict["DW"])
		if err != nil {
			return err
		}
		var missing []uint32
		for _, cid := range cids {
			if cf.GIDForCID(cid) < 0 {
				missing = append(missing, cid)
			}
		}
		if len(missing) > 0 {
			added, err := cf.EnsureCIDs(missing, func(cid uint32) float64 {
				if w, ok := declared[cid]; ok {
					return w / scale
				}
				return dw / scale
			})
			if err != nil {
				return corrupt(fontName, err)
			}
			changed = changed || added > 0
		}
	}

	notdefWidth, err := cf.GlyphWidth(0)
	if err != nil {
		return corrupt(fontName, err)
	}
	fontWidth := func(cid uint32) (float64, bool) {
		gid := cf.GIDForCID(cid)
		if gid < 0 {
			return 0, false
		}
		w, err := cf.GlyphWidth(gid)
		if err != nil {
			return 0, false
		}
		return w * scale, true
	}

	cidFontDict := cloneDict(rec.CIDFontDict)
	res, err := reconcile.Composite(e.x, cidFontDict, fontWidth, notdefWidth*scale, cids)
	if err != nil {
		return err
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
	if res.Changed {
		if ref := descendantRef(e.x, rec.FontDict); ref != 0 {
			e.put(ref, cidFontDict)
		} else {
			fontDict := cloneDict(rec.FontDict)
			fontDict["DescendantFonts"] = pdf.Array{cidFontDict}
			e.put(e.ref, fontDict)
		}
	}
	return nil
}

func (f *Fixer) replaceComposite(e *edit, rec *font.Record, rep *Report) error {
	fontName := string(rec.PostScriptName)

	ordering := ""
	if csi, _ := pdf.GetDict(e.x, rec.CIDFontDict["CIDSystemInfo"]); csi != nil {
		if s, _ := pdf.GetString(e.x, csi["Ordering"]); s != nil {
			ordering = string(s)
		}
	}
	encName, _ := pdf.GetName(e.x, rec.FontDict["Encoding"])
	vertical := strings.HasSuffix(string(encName), "-V")

	r, err := f.builder.Composite(fontName, ordering, vertical)
	if err != nil {
		return err
	}

	progRef := e.x.Alloc()
	e.putStream(progRef, nil, r.Program,
		pdf.Dict{"Length1": pdf.Integer(len(r.Program))})

	descDict := r.Descriptor.AsDict()
	descDict["FontFile2"] = progRef
	descRef := e.x.Alloc()
	e.put(descRef, descDict)

	cidFontDict := r.CIDFontDict
	cidFontDict["FontDescriptor"] = descRef
	cidRef := descendantRef(e.x, rec.FontDict)
	if cidRef == 0 {
		cidRef = e.x.Alloc()
	}
	e.put(cidRef, cidFontDict)

	fontDict := cloneDict(rec.FontDict)
	for key, val := range r.FontDict {
		fontDict[key] = val
	}
	fontDict["DescendantFonts"] = pdf.Array{cidRef}

	if _, err := f.putToUnicode(e, fontDict, r.ToUnicode, fontName, rep); err != nil {
		return err
	}

	e.put(e.ref, fontDict)
	return nil
}
