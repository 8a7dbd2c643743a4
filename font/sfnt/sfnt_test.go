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

package sfnt

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/pdffix/font"
)

// testFont builds a minimal TrueType font for the editor tests.
// nameIdx, if non-nil, becomes the glyph name index array of a
// version 2.0 post table.
func testFont(t *testing.T, glyphs [][]byte, widths []uint16, nameIdx []uint16) *Font {
	t.Helper()

	head := make([]byte, 54)
	binary.BigEndian.PutUint32(head, 0x00010000)
	binary.BigEndian.PutUint32(head[12:], 0x5F0F3CF5)
	binary.BigEndian.PutUint16(head[18:], 1000)
	hhea := make([]byte, 36)
	binary.BigEndian.PutUint32(hhea, 0x00010000)
	maxp := make([]byte, 6)
	binary.BigEndian.PutUint32(maxp, 0x00005000)
	binary.BigEndian.PutUint16(maxp[4:], uint16(len(glyphs)))

	f := &Font{
		ScalerType: ScalerTypeTrueType,
		Tables: map[string][]byte{
			"head": head,
			"hhea": hhea,
			"maxp": maxp,
		},
	}
	if err := f.SetOutlines(&Outlines{Glyphs: glyphs}); err != nil {
		t.Fatal(err)
	}
	lsb := make([]int16, len(widths))
	if err := f.SetMetrics(&Metrics{Widths: widths, LeftSideBear: lsb}); err != nil {
		t.Fatal(err)
	}

	if nameIdx != nil {
		post := make([]byte, 32)
		binary.BigEndian.PutUint32(post, 0x00020000)
		post = binary.BigEndian.AppendUint16(post, uint16(len(nameIdx)))
		for _, ix := range nameIdx {
			post = binary.BigEndian.AppendUint16(post, ix)
		}
		f.Tables["post"] = post
	}
	return f
}

func simpleGlyph() []byte {
	g := make([]byte, 12)
	binary.BigEndian.PutUint16(g, 1) // numberOfContours
	return g
}

func TestEncodeParseRoundTrip(t *testing.T) {
	f := testFont(t,
		[][]byte{nil, simpleGlyph()},
		[]uint16{500, 300},
		[]uint16{0, 3})

	blob := f.Encode()
	if got := Checksum(blob); got != 0xB1B0AFBA {
		t.Errorf("file checksum = %#x, want 0xB1B0AFBA", got)
	}

	g, err := Parse(blob)
	if err != nil {
		t.Fatal(err)
	}
	if g.ScalerType != ScalerTypeTrueType {
		t.Errorf("scaler type = %#x", g.ScalerType)
	}
	if d := cmp.Diff(f.Tables, g.Tables); d != "" {
		t.Error(d)
	}
}

func TestInsertNotdef(t *testing.T) {
	// glyph 0 is named "space", not ".notdef"
	f := testFont(t,
		[][]byte{simpleGlyph(), simpleGlyph()},
		[]uint16{500, 300},
		[]uint16{3, 4})
	cmapData, err := EncodeSubtable(map[uint32]glyph.ID{0x41: 1})
	if err != nil {
		t.Fatal(err)
	}
	err = f.SetCmap(map[CmapKey][]byte{keyMSUnicode: cmapData})
	if err != nil {
		t.Fatal(err)
	}

	changed, err := f.InsertNotdef()
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected an insertion")
	}

	n, err := f.NumGlyphs()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("NumGlyphs = %d, want 3", n)
	}

	m, err := f.GetMetrics()
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]uint16{0, 500, 300}, m.Widths); d != "" {
		t.Error(d)
	}

	// every glyph reference moved up by one
	subtables, err := f.GetCmap()
	if err != nil {
		t.Fatal(err)
	}
	mapping, err := DecodeSubtable(subtables[keyMSUnicode])
	if err != nil {
		t.Fatal(err)
	}
	if mapping[0x41] != 2 {
		t.Errorf("cmap GID = %d, want 2", mapping[0x41])
	}

	ok, err := f.HasNotdef()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("glyph 0 is still not .notdef")
	}

	changed, err = f.InsertNotdef()
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("second run changed the font again")
	}
}

func TestShiftReferences(t *testing.T) {
	comp := make([]byte, 18)
	binary.BigEndian.PutUint16(comp, 0xFFFF) // numberOfContours = -1
	binary.BigEndian.PutUint16(comp[10:], flagArg1And2AreWords)
	binary.BigEndian.PutUint16(comp[12:], 2) // component glyph index

	o := &Outlines{Glyphs: [][]byte{nil, comp}}
	if err := o.ShiftReferences(1); err != nil {
		t.Fatal(err)
	}
	if got := binary.BigEndian.Uint16(o.Glyphs[1][12:]); got != 3 {
		t.Errorf("component index = %d, want 3", got)
	}
}

func TestEnsureGlyphs(t *testing.T) {
	f := testFont(t,
		[][]byte{nil, simpleGlyph()},
		[]uint16{450, 300},
		[]uint16{0, 3})

	added, err := f.EnsureGlyphs(5)
	if err != nil {
		t.Fatal(err)
	}
	if added != 3 {
		t.Errorf("added = %d, want 3", added)
	}
	n, err := f.NumGlyphs()
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("NumGlyphs = %d, want 5", n)
	}

	// new slots carry the .notdef advance
	m, err := f.GetMetrics()
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]uint16{450, 300, 450, 450, 450}, m.Widths); d != "" {
		t.Error(d)
	}

	added, err = f.EnsureGlyphs(5)
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Errorf("second run added %d glyphs", added)
	}
}

func TestMetricsRoundTrip(t *testing.T) {
	f := testFont(t,
		[][]byte{nil, nil, nil, nil},
		[]uint16{500, 400, 400, 400},
		nil)

	hhea := f.Tables["hhea"]
	if got := binary.BigEndian.Uint16(hhea[34:]); got != 2 {
		t.Errorf("numOfLongHorMetrics = %d, want 2", got)
	}

	m, err := f.GetMetrics()
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]uint16{500, 400, 400, 400}, m.Widths); d != "" {
		t.Error(d)
	}
}

func TestFormat4RoundTrip(t *testing.T) {
	cases := []map[uint32]glyph.ID{
		{0x41: 1, 0x42: 2, 0x43: 3, 0x44: 4}, // delta run
		{10: 5, 11: 17, 12: 3, 13: 9},        // explicit values
		{0x20: 1, 0x100: 2, 0xF000: 3},
	}
	for _, mapping := range cases {
		data, err := encodeFormat4(mapping)
		if err != nil {
			t.Fatal(err)
		}
		got, err := decodeFormat4(data)
		if err != nil {
			t.Fatal(err)
		}
		if d := cmp.Diff(mapping, got); d != "" {
			t.Error(d)
		}
	}
}

func TestFormat12RoundTrip(t *testing.T) {
	mapping := map[uint32]glyph.ID{
		0x41:    1,
		0x42:    2,
		0x1F600: 7,
	}
	data, err := EncodeSubtable(mapping)
	if err != nil {
		t.Fatal(err)
	}
	if binary.BigEndian.Uint16(data) != 12 {
		t.Fatalf("format = %d, want 12", binary.BigEndian.Uint16(data))
	}
	got, err := DecodeSubtable(data)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(mapping, got); d != "" {
		t.Error(d)
	}
}

func TestNormalizeNonSymbolic(t *testing.T) {
	f := testFont(t, [][]byte{nil, nil, nil}, []uint16{0, 500, 500}, nil)
	data, err := EncodeSubtable(map[uint32]glyph.ID{0xF041: 1, 0xF042: 2})
	if err != nil {
		t.Fatal(err)
	}
	err = f.SetCmap(map[CmapKey][]byte{keyMSSymbol: data})
	if err != nil {
		t.Fatal(err)
	}

	changed, err := f.NormalizeCmap(false)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a synthesized subtable")
	}

	subtables, err := f.GetCmap()
	if err != nil {
		t.Fatal(err)
	}
	mapping, err := DecodeSubtable(subtables[keyMSUnicode])
	if err != nil {
		t.Fatal(err)
	}
	want := map[uint32]glyph.ID{0x41: 1, 0x42: 2}
	if d := cmp.Diff(want, mapping); d != "" {
		t.Error(d)
	}

	changed, err = f.NormalizeCmap(false)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("second run changed the font again")
	}
}

func TestNormalizeSymbolic(t *testing.T) {
	f := testFont(t, [][]byte{nil, nil, nil}, []uint16{0, 500, 500}, nil)
	mac, err := EncodeSubtable(map[uint32]glyph.ID{0x41: 1})
	if err != nil {
		t.Fatal(err)
	}
	uni, err := EncodeSubtable(map[uint32]glyph.ID{0x41: 2})
	if err != nil {
		t.Fatal(err)
	}
	err = f.SetCmap(map[CmapKey][]byte{keyMacRoman: mac, keyMSUnicode: uni})
	if err != nil {
		t.Fatal(err)
	}

	changed, err := f.NormalizeCmap(true)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a synthesized subtable")
	}

	// the Mac-Roman table wins as the source, codes move to 0xF0xx
	subtables, err := f.GetCmap()
	if err != nil {
		t.Fatal(err)
	}
	mapping, err := DecodeSubtable(subtables[keyMSSymbol])
	if err != nil {
		t.Fatal(err)
	}
	want := map[uint32]glyph.ID{0xF041: 1}
	if d := cmp.Diff(want, mapping); d != "" {
		t.Error(d)
	}

	changed, err = f.NormalizeCmap(true)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("second run changed the font again")
	}
}

func TestBuiltinLookup(t *testing.T) {
	f := testFont(t, [][]byte{nil, nil, nil}, []uint16{0, 500, 500}, nil)
	data, err := EncodeSubtable(map[uint32]glyph.ID{0xF041: 1, 0x42: 2})
	if err != nil {
		t.Fatal(err)
	}
	err = f.SetCmap(map[CmapKey][]byte{keyMSSymbol: data})
	if err != nil {
		t.Fatal(err)
	}

	lookup, err := f.BuiltinLookup()
	if err != nil {
		t.Fatal(err)
	}
	if got := lookup(0x41); got != 1 {
		t.Errorf("lookup(0x41) = %d, want 1", got)
	}
	if got := lookup(0x42); got != 2 {
		t.Errorf("lookup(0x42) = %d, want 2", got)
	}
}

func TestCheckPermissions(t *testing.T) {
	cases := []struct {
		fsType uint16
		subset bool
		kind   font.Kind
	}{
		{fsType: 0x0000, subset: true, kind: 0},
		{fsType: 0x0002, subset: false, kind: font.EmbeddingRestricted},
		{fsType: 0x0006, subset: false, kind: 0}, // preview bit overrides
		{fsType: 0x0100, subset: true, kind: font.SubsettingRestricted},
		{fsType: 0x0100, subset: false, kind: 0},
	}
	for _, test := range cases {
		f := testFont(t, [][]byte{nil}, []uint16{500}, nil)
		os2 := make([]byte, 78)
		binary.BigEndian.PutUint16(os2[8:], test.fsType)
		f.Tables["OS/2"] = os2

		err := f.CheckPermissions(test.subset)
		if test.kind == 0 {
			if err != nil {
				t.Errorf("fsType %#04x: unexpected error %v", test.fsType, err)
			}
		} else if !font.IsKind(err, test.kind) {
			t.Errorf("fsType %#04x: got %v, want kind %v", test.fsType, err, test.kind)
		}
	}
}
