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

	"seehuhn.de/go/pdffix/font"
)

// fsType bits in the OS/2 table.
const (
	permRestricted = 0x0002
	permNoSubset   = 0x0100
)

// CheckPermissions verifies that the OS/2 embedding permissions allow the
// font to be embedded and, if subset is set, subsetted.  Fonts without an
// OS/2 table are unrestricted.
func (f *Font) CheckPermissions(subset bool) error {
	os2 := f.Tables["OS/2"]
	if len(os2) < 10 {
		return nil
	}
	fsType := binary.BigEndian.Uint16(os2[8:])

	// more permissive bits override the restricted-license bit
	if fsType&0x000E == permRestricted {
		return &font.RepairError{Kind: font.EmbeddingRestricted}
	}
	if subset && fsType&permNoSubset != 0 {
		return &font.RepairError{Kind: font.SubsettingRestricted}
	}
	return nil
}
