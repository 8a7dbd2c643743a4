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

package cff

// cursor is a position in the raw CFF data.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) avail(n int) bool {
	return c.pos >= 0 && c.pos+n <= len(c.data)
}

func (c *cursor) u8() (byte, error) {
	if !c.avail(1) {
		return 0, invalid("unexpected end of data")
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) u16() (uint16, error) {
	if !c.avail(2) {
		return 0, invalid("unexpected end of data")
	}
	x := uint16(c.data[c.pos])<<8 | uint16(c.data[c.pos+1])
	c.pos += 2
	return x, nil
}

// readIndex decodes a CFF INDEX structure at the cursor position.
func readIndex(c *cursor) ([][]byte, error) {
	count, err := c.u16()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	offSize, err := c.u8()
	if err != nil {
		return nil, err
	}
	if offSize < 1 || offSize > 4 {
		return nil, invalid("invalid INDEX offset size %d", offSize)
	}

	offsets := make([]uint32, count+1)
	prev := uint32(1)
	for i := range offsets {
		var offs uint32
		for j := 0; j < int(offSize); j++ {
			b, err := c.u8()
			if err != nil {
				return nil, err
			}
			offs = offs<<8 | uint32(b)
		}
		if offs < prev || int(offs)-1 > len(c.data)-c.pos {
			return nil, invalid("invalid INDEX offset")
		}
		offsets[i] = offs - 1
		prev = offs
	}

	base := c.pos
	end := base + int(offsets[count])
	if end > len(c.data) {
		return nil, invalid("INDEX data out of range")
	}
	res := make([][]byte, count)
	for i := 0; i < int(count); i++ {
		res[i] = c.data[base+int(offsets[i]) : base+int(offsets[i+1])]
	}
	c.pos = end
	return res, nil
}

// encodeIndex serializes a CFF INDEX structure.
func encodeIndex(data [][]byte) ([]byte, error) {
	count := len(data)
	if count >= 1<<16 {
		return nil, invalid("too many items for CFF INDEX")
	}
	if count == 0 {
		return []byte{0, 0}, nil
	}

	bodyLength := 0
	for _, blob := range data {
		bodyLength += len(blob)
	}

	offSize := 1
	for bodyLength+1 >= 1<<(8*offSize) {
		offSize++
	}
	if offSize > 4 {
		return nil, invalid("too much data for CFF INDEX")
	}

	out := make([]byte, 0, 3+(count+1)*offSize+bodyLength)
	out = append(out, byte(count>>8), byte(count), byte(offSize))

	pos := uint32(1)
	for i := 0; i <= count; i++ {
		for j := offSize - 1; j >= 0; j-- {
			out = append(out, byte(pos>>(8*j)))
		}
		if i < count {
			pos += uint32(len(data[i]))
		}
	}
	for _, blob := range data {
		out = append(out, blob...)
	}
	return out, nil
}
