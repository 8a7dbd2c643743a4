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
	"math"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"seehuhn.de/go/pdffix/font"
	"seehuhn.de/go/pdffix/font/replace"
	"seehuhn.de/go/pdffix/font/sfnt"
	"seehuhn.de/go/pdffix/font/tounicode"
	"seehuhn.de/go/pdffix/font/usage"
	"seehuhn.de/go/pdffix/font/widths"
	"seehuhn.de/go/pdffix/pdf"
)

// embedSimpleTrueType stores a simple TrueType font in x and returns
// the reference of its font dictionary.
func embedSimpleTrueType(t *testing.T, x *pdf.Data, program []byte) pdf.Reference {
	t.Helper()

	progRef := x.Alloc()
	err := x.Put(progRef, pdf.NewStream(
		pdf.Dict{"Length1": pdf.Integer(len(program))}, program))
	if err != nil {
		t.Fatal(err)
	}

	descRef := x.Alloc()
	err = x.Put(descRef, pdf.Dict{
		"Type":      pdf.Name("FontDescriptor"),
		"FontName":  pdf.Name("Test"),
		"Flags":     pdf.Integer(32),
		"FontFile2": progRef,
	})
	if err != nil {
		t.Fatal(err)
	}

	fontRef := x.Alloc()
	err = x.Put(fontRef, pdf.Dict{
		"Type":           pdf.Name("Font"),
		"Subtype":        pdf.Name("TrueType"),
		"BaseFont":       pdf.Name("Test"),
		"Encoding":       pdf.Name("WinAnsiEncoding"),
		"FontDescriptor": descRef,
	})
	if err != nil {
		t.Fatal(err)
	}
	return fontRef
}

func bytesOf(s string) []uint16 {
	var codes []uint16
	for _, b := range []byte(s) {
		codes = append(codes, uint16(b))
	}
	return codes
}

func TestRepairSimpleTrueType(t *testing.T) {
	x := pdf.NewData()
	fontRef := embedSimpleTrueType(t, x, goregular.TTF)

	f := New(nil)
	rep := &Report{}
	err := f.FixFont(x, fontRef, bytesOf("Hello World"), rep)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Repaired != 1 {
		t.Errorf("Repaired = %d", rep.Repaired)
	}

	fontDict, err := pdf.GetDict(x, fontRef)
	if err != nil {
		t.Fatal(err)
	}
	firstChar, _ := pdf.GetInt(x, fontDict["FirstChar"])
	lastChar, _ := pdf.GetInt(x, fontDict["LastChar"])
	ww, _ := pdf.GetArray(x, fontDict["Widths"])
	if len(ww) != int(lastChar-firstChar+1) {
		t.Errorf("len(Widths) = %d, want %d", len(ww), lastChar-firstChar+1)
	}

	// the width of "A" must come from the font program
	sf, err := sfnt.Parse(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	uni, err := unicodeCmap(sf)
	if err != nil {
		t.Fatal(err)
	}
	metrics, err := sf.GetMetrics()
	if err != nil {
		t.Fatal(err)
	}
	upem, _ := sf.UnitsPerEm()
	want := float64(metrics.Widths[uni['A']]) * 1000 / float64(upem)

	if int(firstChar) > 'A' || int(lastChar) < 'A' {
		t.Fatalf("code 65 outside range %d..%d", firstChar, lastChar)
	}
	got, _ := pdf.GetNumber(x, ww['A'-firstChar])
	if math.Abs(float64(got)-want) > 0.01 {
		t.Errorf("width of A: got %f, want %f", float64(got), want)
	}
}

func TestSymbolicTrueTypeEncoding(t *testing.T) {
	x := pdf.NewData()

	progRef := x.Alloc()
	err := x.Put(progRef, pdf.NewStream(
		pdf.Dict{"Length1": pdf.Integer(len(goregular.TTF))}, goregular.TTF))
	if err != nil {
		t.Fatal(err)
	}
	descRef := x.Alloc()
	err = x.Put(descRef, pdf.Dict{
		"Type":     pdf.Name("FontDescriptor"),
		"FontName": pdf.Name("Test"),
		// Symbolic and Nonsymbolic both set
		"Flags":     pdf.Integer(4 | 32),
		"FontFile2": progRef,
	})
	if err != nil {
		t.Fatal(err)
	}
	fontRef := x.Alloc()
	err = x.Put(fontRef, pdf.Dict{
		"Type":           pdf.Name("Font"),
		"Subtype":        pdf.Name("TrueType"),
		"BaseFont":       pdf.Name("Test"),
		"Encoding":       pdf.Name("WinAnsiEncoding"),
		"FontDescriptor": descRef,
	})
	if err != nil {
		t.Fatal(err)
	}

	f := New(nil)
	rep := &Report{}
	err = f.FixFont(x, fontRef, bytesOf("AB"), rep)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Repaired != 1 {
		t.Errorf("Repaired = %d", rep.Repaired)
	}

	fontDict, err := pdf.GetDict(x, fontRef)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fontDict["Encoding"]; ok {
		t.Error("Encoding entry kept on a symbolic font")
	}

	descDict, err := pdf.GetDict(x, fontDict["FontDescriptor"])
	if err != nil || descDict == nil {
		t.Fatal("missing font descriptor")
	}
	flags, err := pdf.GetInt(x, descDict["Flags"])
	if err != nil {
		t.Fatal(err)
	}
	if flags&4 == 0 {
		t.Errorf("Flags = %d, Symbolic bit not set", flags)
	}
	if flags&32 != 0 {
		t.Errorf("Flags = %d, Nonsymbolic bit still set", flags)
	}

	// the deleted Encoding entry must survive as a ToUnicode mapping
	tuData, err := pdf.GetStreamBytes(x, fontDict["ToUnicode"])
	if err != nil {
		t.Fatal(err)
	}
	info, err := tounicode.Read(tuData)
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := info.Lookup('A'); !ok || s != "A" {
		t.Errorf("ToUnicode of 'A': %q, %v", s, ok)
	}
}

func TestReplaceStandardFont(t *testing.T) {
	x := pdf.NewData()
	fontRef := x.Alloc()
	err := x.Put(fontRef, pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("Type1"),
		"BaseFont": pdf.Name("Helvetica"),
	})
	if err != nil {
		t.Fatal(err)
	}

	f := New(nil)
	rep := &Report{}
	err = f.FixFont(x, fontRef, bytesOf("Hello"), rep)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Replaced != 1 {
		t.Errorf("Replaced = %d", rep.Replaced)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", rep.Warnings)
	}

	fontDict, err := pdf.GetDict(x, fontRef)
	if err != nil {
		t.Fatal(err)
	}
	if name, _ := pdf.GetName(x, fontDict["Subtype"]); name != "TrueType" {
		t.Errorf("Subtype = %q", name)
	}

	descDict, err := pdf.GetDict(x, fontDict["FontDescriptor"])
	if err != nil || descDict == nil {
		t.Fatal("missing font descriptor")
	}
	program, err := pdf.GetStreamBytes(x, descDict["FontFile2"])
	if err != nil || len(program) == 0 {
		t.Error("missing replacement font program")
	}

	tuData, err := pdf.GetStreamBytes(x, fontDict["ToUnicode"])
	if err != nil {
		t.Fatal(err)
	}
	if err := tounicode.Validate(tuData); err != nil {
		t.Errorf("invalid ToUnicode stream: %v", err)
	}
	info, err := tounicode.Read(tuData)
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := info.Lookup('H'); !ok || s != "H" {
		t.Errorf("ToUnicode of 'H': %q, %v", s, ok)
	}

	firstChar, _ := pdf.GetInt(x, fontDict["FirstChar"])
	lastChar, _ := pdf.GetInt(x, fontDict["LastChar"])
	ww, _ := pdf.GetArray(x, fontDict["Widths"])
	if len(ww) != int(lastChar-firstChar+1) {
		t.Errorf("len(Widths) = %d, want %d", len(ww), lastChar-firstChar+1)
	}
}

func TestReplaceUnknownFont(t *testing.T) {
	x := pdf.NewData()
	fontRef := x.Alloc()
	err := x.Put(fontRef, pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("Type1"),
		"BaseFont": pdf.Name("Garamond"),
	})
	if err != nil {
		t.Fatal(err)
	}

	f := New(nil)
	rep := &Report{}
	err = f.FixFont(x, fontRef, bytesOf("x"), rep)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Replaced != 1 {
		t.Errorf("Replaced = %d", rep.Replaced)
	}
	if len(rep.Warnings) == 0 {
		t.Error("missing fallback warning")
	}
}

func TestCompositeWidths(t *testing.T) {
	sf, err := sfnt.Parse(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	uni, err := unicodeCmap(sf)
	if err != nil {
		t.Fatal(err)
	}
	metrics, err := sf.GetMetrics()
	if err != nil {
		t.Fatal(err)
	}
	upem, _ := sf.UnitsPerEm()
	q := 1000 / float64(upem)
	cidA := uint32(uni['A']) // identity encoding, CID equals GID
	wantA := float64(metrics.Widths[cidA]) * q
	wantDW := float64(metrics.Widths[0]) * q

	x := pdf.NewData()
	progRef := x.Alloc()
	err = x.Put(progRef, pdf.NewStream(
		pdf.Dict{"Length1": pdf.Integer(len(goregular.TTF))}, goregular.TTF))
	if err != nil {
		t.Fatal(err)
	}
	descRef := x.Alloc()
	err = x.Put(descRef, pdf.Dict{
		"Type":      pdf.Name("FontDescriptor"),
		"FontName":  pdf.Name("Test"),
		"Flags":     pdf.Integer(4),
		"FontFile2": progRef,
	})
	if err != nil {
		t.Fatal(err)
	}
	cidRef := x.Alloc()
	err = x.Put(cidRef, pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("CIDFontType2"),
		"BaseFont": pdf.Name("Test"),
		"CIDSystemInfo": pdf.Dict{
			"Registry":   pdf.String("Adobe"),
			"Ordering":   pdf.String("Identity"),
			"Supplement": pdf.Integer(0),
		},
		"FontDescriptor": descRef,
		"CIDToGIDMap":    pdf.Name("Identity"),
		"DW":             pdf.Number(123),
		"W": pdf.Array{
			pdf.Integer(cidA), pdf.Array{pdf.Integer(9999)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	fontRef := x.Alloc()
	err = x.Put(fontRef, pdf.Dict{
		"Type":            pdf.Name("Font"),
		"Subtype":         pdf.Name("Type0"),
		"BaseFont":        pdf.Name("Test"),
		"Encoding":        pdf.Name("Identity-H"),
		"DescendantFonts": pdf.Array{cidRef},
	})
	if err != nil {
		t.Fatal(err)
	}

	f := New(nil)
	rep := &Report{}
	err = f.FixFont(x, fontRef, []uint16{uint16(cidA)}, rep)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Repaired != 1 {
		t.Errorf("Repaired = %d", rep.Repaired)
	}

	cidFontDict, err := pdf.GetDict(x, cidRef)
	if err != nil {
		t.Fatal(err)
	}
	declared, dw, err := widths.DecodeComposite(x,
		cidFontDict["W"], cidFontDict["DW"])
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(dw-wantDW) > 0.01 {
		t.Errorf("DW = %f, want %f", dw, wantDW)
	}
	if w, ok := declared[cidA]; !ok || math.Abs(w-wantA) > 0.01 {
		t.Errorf("W[%d] = %f, want %f", cidA, w, wantA)
	}
}

func TestEmbeddingRestricted(t *testing.T) {
	sf, err := sfnt.Parse(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	os2 := append([]byte(nil), sf.Tables["OS/2"]...)
	os2[8] = 0x00
	os2[9] = 0x02
	sf.Tables["OS/2"] = os2
	program := sf.Encode()

	x := pdf.NewData()
	fontRef := embedSimpleTrueType(t, x, program)

	f := New(nil)
	rep := &Report{}
	err = f.FixFont(x, fontRef, bytesOf("abc"), rep)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Skipped != 1 {
		t.Errorf("Skipped = %d", rep.Skipped)
	}
	if len(rep.Warnings) != 1 ||
		!font.IsKind(rep.Warnings[0].Err, font.EmbeddingRestricted) {
		t.Errorf("warnings = %v", rep.Warnings)
	}

	// the font dictionary must be untouched
	fontDict, err := pdf.GetDict(x, fontRef)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fontDict["Widths"]; ok {
		t.Error("restricted font was modified")
	}
}

func TestReplaceCompositeCJK(t *testing.T) {
	x := pdf.NewData()
	cidRef := x.Alloc()
	err := x.Put(cidRef, pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("CIDFontType0"),
		"BaseFont": pdf.Name("Ryumin-Light"),
		"CIDSystemInfo": pdf.Dict{
			"Registry":   pdf.String("Adobe"),
			"Ordering":   pdf.String("Japan1"),
			"Supplement": pdf.Integer(6),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	fontRef := x.Alloc()
	err = x.Put(fontRef, pdf.Dict{
		"Type":            pdf.Name("Font"),
		"Subtype":         pdf.Name("Type0"),
		"BaseFont":        pdf.Name("Ryumin-Light"),
		"Encoding":        pdf.Name("Identity-V"),
		"DescendantFonts": pdf.Array{cidRef},
	})
	if err != nil {
		t.Fatal(err)
	}

	store := replace.NewStore()
	err = store.RegisterCJKFace(replace.FaceJapanese, goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	f := New(&Options{Store: store})
	rep := &Report{}
	err = f.FixFont(x, fontRef, []uint16{3, 4, 5}, rep)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Replaced != 1 {
		t.Errorf("Replaced = %d", rep.Replaced)
	}

	fontDict, err := pdf.GetDict(x, fontRef)
	if err != nil {
		t.Fatal(err)
	}
	if name, _ := pdf.GetName(x, fontDict["Encoding"]); name != "Identity-V" {
		t.Errorf("Encoding = %q", name)
	}

	cidFontDict, err := pdf.GetDict(x, cidRef)
	if err != nil {
		t.Fatal(err)
	}
	if name, _ := pdf.GetName(x, cidFontDict["Subtype"]); name != "CIDFontType2" {
		t.Errorf("descendant Subtype = %q", name)
	}
	descDict, err := pdf.GetDict(x, cidFontDict["FontDescriptor"])
	if err != nil || descDict == nil {
		t.Fatal("missing font descriptor")
	}
	program, err := pdf.GetStreamBytes(x, descDict["FontFile2"])
	if err != nil || len(program) == 0 {
		t.Error("missing replacement font program")
	}

	tuData, err := pdf.GetStreamBytes(x, fontDict["ToUnicode"])
	if err != nil {
		t.Fatal(err)
	}
	if err := tounicode.Validate(tuData); err != nil {
		t.Errorf("invalid ToUnicode stream: %v", err)
	}
}

func TestFailureIsolation(t *testing.T) {
	x := pdf.NewData()

	badRef := x.Alloc()
	err := x.Put(badRef, pdf.Integer(5))
	if err != nil {
		t.Fatal(err)
	}
	goodRef := x.Alloc()
	err = x.Put(goodRef, pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("Type1"),
		"BaseFont": pdf.Name("Courier"),
	})
	if err != nil {
		t.Fatal(err)
	}

	used := usage.NewCollector()
	used.AddText(badRef, false, pdf.String("x"))
	used.AddText(goodRef, false, pdf.String("y"))

	f := New(nil)
	rep := f.Run(x, used)
	if rep.Failed != 1 {
		t.Errorf("Failed = %d", rep.Failed)
	}
	if rep.Replaced != 1 {
		t.Errorf("Replaced = %d", rep.Replaced)
	}
}
