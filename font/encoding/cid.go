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

package encoding

import (
	"fmt"

	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/pdffix/pdf"
)

// CIDToGID is the mapping from CID values to glyph indices of a
// CIDFontType2 font.  A nil GID slice denotes the identity mapping.
type CIDToGID struct {
	GID []glyph.ID
}

// Identity reports whether the mapping is the identity mapping.
func (m *CIDToGID) Identity() bool {
	return m == nil || m.GID == nil
}

// Lookup returns the glyph index for a CID.  CIDs outside an explicit
// mapping resolve to glyph 0.
func (m *CIDToGID) Lookup(cid uint32) glyph.ID {
	if m.Identity() {
		if cid > 0xFFFF {
			return 0
		}
		return glyph.ID(cid)
	}
	if int(cid) >= len(m.GID) {
		return 0
	}
	return m.GID[cid]
}

// ExtractCIDToGID reads the /CIDToGIDMap entry of a CIDFontType2 font
// dictionary.  The entry is either the name "Identity" or a stream of
// big-endian 16-bit glyph indices, indexed by CID.
func ExtractCIDToGID(r pdf.Getter, obj pdf.Object) (*CIDToGID, error) {
	obj, err := pdf.Resolve(r, obj)
	if err != nil {
		return nil, err
	}

	switch obj := obj.(type) {
	case nil:
		return &CIDToGID{}, nil
	case pdf.Name:
		if obj != "Identity" {
			return nil, &pdf.MalformedFileError{
				Err: fmt.Errorf("unknown CIDToGIDMap name %q", obj),
				Loc: []string{"CIDToGIDMap"},
			}
		}
		return &CIDToGID{}, nil
	case *pdf.Stream:
		data, err := pdf.GetStreamBytes(r, obj)
		if err != nil {
			return nil, err
		}
		gid := make([]glyph.ID, len(data)/2)
		for i := range gid {
			gid[i] = glyph.ID(data[2*i])<<8 | glyph.ID(data[2*i+1])
		}
		return &CIDToGID{GID: gid}, nil
	default:
		return nil, &pdf.MalformedFileError{
			Err: fmt.Errorf("invalid CIDToGIDMap entry %T", obj),
			Loc: []string{"CIDToGIDMap"},
		}
	}
}

// Shift rewrites the mapping after a .notdef glyph has been inserted at
// index 0 of the font program, so that every CID which previously resolved
// to a glyph now resolves to the same glyph at its shifted index.  An
// identity mapping becomes an explicit array covering numCIDs entries.
//
// Glyph indices which would exceed the 16-bit ceiling are clamped to 0xFFFF;
// the affected CIDs are returned so that the caller can report them.
func (m *CIDToGID) Shift(numCIDs int) (*CIDToGID, []uint32) {
	var overflow []uint32

	if m.Identity() {
		if numCIDs > 0x10000 {
			numCIDs = 0x10000
		}
		gid := make([]glyph.ID, numCIDs)
		for cid := range gid {
			if cid+1 > 0xFFFF {
				gid[cid] = 0xFFFF
				overflow = append(overflow, uint32(cid))
				continue
			}
			gid[cid] = glyph.ID(cid + 1)
		}
		return &CIDToGID{GID: gid}, overflow
	}

	gid := make([]glyph.ID, len(m.GID))
	for cid, g := range m.GID {
		if g >= 0xFFFF {
			gid[cid] = 0xFFFF
			overflow = append(overflow, uint32(cid))
			continue
		}
		gid[cid] = g + 1
	}
	return &CIDToGID{GID: gid}, overflow
}

// Bytes returns the stream content for an explicit mapping, a flat array of
// big-endian 16-bit glyph indices.  The result is nil for the identity
// mapping.
func (m *CIDToGID) Bytes() []byte {
	if m.Identity() {
		return nil
	}
	buf := make([]byte, 2*len(m.GID))
	for i, g := range m.GID {
		buf[2*i] = byte(g >> 8)
		buf[2*i+1] = byte(g)
	}
	return buf
}
