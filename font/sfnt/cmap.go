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
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"
	"sort"

	"seehuhn.de/go/dijkstra"
	"seehuhn.de/go/sfnt/glyph"

	"seehuhn.de/go/pdffix/font"
)

// CmapKey identifies a cmap subtable by platform and encoding.
type CmapKey struct {
	PlatformID uint16 // 0 = Unicode, 1 = Macintosh, 3 = Microsoft
	EncodingID uint16
}

// GetCmap splits the cmap table into its subtables.
func (f *Font) GetCmap() (map[CmapKey][]byte, error) {
	cmap := f.Tables["cmap"]
	if len(cmap) < 4 {
		return nil, invalid("missing cmap table")
	}
	numTables := int(binary.BigEndian.Uint16(cmap[2:]))
	if len(cmap) < 4+8*numTables {
		return nil, invalid("cmap directory truncated")
	}

	res := make(map[CmapKey][]byte)
	for i := 0; i < numTables; i++ {
		rec := cmap[4+8*i:]
		key := CmapKey{
			PlatformID: binary.BigEndian.Uint16(rec),
			EncodingID: binary.BigEndian.Uint16(rec[2:]),
		}
		offset := binary.BigEndian.Uint32(rec[4:])
		if uint64(offset)+4 > uint64(len(cmap)) {
			return nil, invalid("cmap subtable %d out of range", i)
		}
		length, err := subtableLength(cmap[offset:])
		if err != nil {
			return nil, err
		}
		body := make([]byte, length)
		copy(body, cmap[offset:int(offset)+length])
		res[key] = body
	}
	return res, nil
}

// SetCmap rebuilds the cmap table from subtables.  Identical subtable
// bodies are stored only once.
func (f *Font) SetCmap(subtables map[CmapKey][]byte) error {
	keys := make([]CmapKey, 0, len(subtables))
	for key := range subtables {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PlatformID != keys[j].PlatformID {
			return keys[i].PlatformID < keys[j].PlatformID
		}
		return keys[i].EncodingID < keys[j].EncodingID
	})

	buf := make([]byte, 4+8*len(keys))
	binary.BigEndian.PutUint16(buf[2:], uint16(len(keys)))
	seen := make(map[string]uint32)
	for i, key := range keys {
		body := subtables[key]
		offset, ok := seen[string(body)]
		if !ok {
			offset = uint32(len(buf))
			buf = append(buf, body...)
			seen[string(body)] = offset
		}
		rec := buf[4+8*i:]
		binary.BigEndian.PutUint16(rec, key.PlatformID)
		binary.BigEndian.PutUint16(rec[2:], key.EncodingID)
		binary.BigEndian.PutUint32(rec[4:], offset)
	}
	f.Tables["cmap"] = buf
	return nil
}

func subtableLength(data []byte) (int, error) {
	format := binary.BigEndian.Uint16(data)
	var length int
	switch format {
	case 0, 2, 4, 6:
		if len(data) < 4 {
			return 0, invalid("cmap subtable truncated")
		}
		length = int(binary.BigEndian.Uint16(data[2:]))
	case 8, 10, 12, 13:
		if len(data) < 8 {
			return 0, invalid("cmap subtable truncated")
		}
		length = int(binary.BigEndian.Uint32(data[4:]))
	case 14:
		if len(data) < 6 {
			return 0, invalid("cmap subtable truncated")
		}
		length = int(binary.BigEndian.Uint32(data[2:]))
	default:
		return 0, &font.NotSupportedError{
			SubSystem: "sfnt/cmap",
			Feature:   fmt.Sprintf("subtable format %d", format),
		}
	}
	if length < 4 || length > len(data) {
		return 0, invalid("cmap subtable length out of range")
	}
	return length, nil
}

// DecodeSubtable extracts the code-to-glyph mapping of a cmap subtable.
// Mappings to glyph 0 are omitted.  Formats 0, 4, 6 and 12 are
// supported.
func DecodeSubtable(data []byte) (map[uint32]glyph.ID, error) {
	if len(data) < 4 {
		return nil, invalid("cmap subtable truncated")
	}
	format := binary.BigEndian.Uint16(data)
	switch format {
	case 0:
		return decodeFormat0(data)
	case 4:
		return decodeFormat4(data)
	case 6:
		return decodeFormat6(data)
	case 12:
		return decodeFormat12(data)
	}
	return nil, &font.NotSupportedError{
		SubSystem: "sfnt/cmap",
		Feature:   fmt.Sprintf("subtable format %d", format),
	}
}

// EncodeSubtable stores a mapping in the most compact of the supported
// subtable formats: format 4 when all codes fit into 16 bits, format 12
// otherwise.
func EncodeSubtable(mapping map[uint32]glyph.ID) ([]byte, error) {
	needWide := false
	for code := range mapping {
		if code > 0xFFFF {
			needWide = true
			break
		}
	}
	if needWide {
		return encodeFormat12(mapping), nil
	}
	return encodeFormat4(mapping)
}

func decodeFormat0(data []byte) (map[uint32]glyph.ID, error) {
	if len(data) < 6+256 {
		return nil, invalid("format 0 subtable truncated")
	}
	res := make(map[uint32]glyph.ID)
	for code, gid := range data[6 : 6+256] {
		if gid != 0 {
			res[uint32(code)] = glyph.ID(gid)
		}
	}
	return res, nil
}

func decodeFormat6(data []byte) (map[uint32]glyph.ID, error) {
	if len(data) < 10 {
		return nil, invalid("format 6 subtable truncated")
	}
	firstCode := uint32(binary.BigEndian.Uint16(data[6:]))
	count := int(binary.BigEndian.Uint16(data[8:]))
	if len(data) < 10+2*count {
		return nil, invalid("format 6 subtable truncated")
	}
	res := make(map[uint32]glyph.ID)
	for i := 0; i < count; i++ {
		gid := binary.BigEndian.Uint16(data[10+2*i:])
		if gid != 0 {
			res[firstCode+uint32(i)] = glyph.ID(gid)
		}
	}
	return res, nil
}

func decodeFormat4(data []byte) (map[uint32]glyph.ID, error) {
	if len(data)%2 != 0 || len(data) < 16 {
		return nil, invalid("format 4 subtable truncated")
	}
	segCountX2 := int(binary.BigEndian.Uint16(data[6:]))
	if segCountX2%2 != 0 || 4*segCountX2+16 > len(data) {
		return nil, invalid("format 4 segment count invalid")
	}
	segCount := segCountX2 / 2

	words := make([]uint16, 0, (len(data)-14)/2)
	for i := 14; i < len(data); i += 2 {
		words = append(words, binary.BigEndian.Uint16(data[i:]))
	}
	endCode := words[:segCount]
	// reservedPad omitted
	startCode := words[segCount+1 : 2*segCount+1]
	idDelta := words[2*segCount+1 : 3*segCount+1]
	idRangeOffset := words[3*segCount+1 : 4*segCount+1]
	glyphIDArray := words[4*segCount+1:]

	res := make(map[uint32]glyph.ID)
	prevEnd := uint32(0)
	for k := 0; k < segCount; k++ {
		start := uint32(startCode[k])
		end := uint32(endCode[k]) + 1
		if start < prevEnd || end <= start {
			return nil, invalid("format 4 segments out of order")
		}
		prevEnd = end

		if idRangeOffset[k] == 0 {
			delta := idDelta[k]
			for code := start; code < end; code++ {
				gid := uint16(code) + delta
				if gid != 0 {
					res[code] = glyph.ID(gid)
				}
			}
		} else {
			d := int(idRangeOffset[k])/2 - (segCount - k)
			if d < 0 || d+int(end-start) > len(glyphIDArray) {
				if start == 0xFFFF {
					// some fonts carry garbage in the final segment
					continue
				}
				return nil, invalid("format 4 range offset out of bounds")
			}
			for code := start; code < end; code++ {
				gid := glyphIDArray[d+int(code-start)]
				if gid != 0 {
					res[code] = glyph.ID(gid)
				}
			}
		}
	}
	return res, nil
}

func decodeFormat12(data []byte) (map[uint32]glyph.ID, error) {
	if len(data) < 16 {
		return nil, invalid("format 12 subtable truncated")
	}
	numGroups := int(binary.BigEndian.Uint32(data[12:]))
	if len(data) < 16+12*numGroups {
		return nil, invalid("format 12 subtable truncated")
	}
	res := make(map[uint32]glyph.ID)
	for i := 0; i < numGroups; i++ {
		group := data[16+12*i:]
		start := binary.BigEndian.Uint32(group)
		end := binary.BigEndian.Uint32(group[4:])
		firstGID := binary.BigEndian.Uint32(group[8:])
		if end < start || end-start > 0x10000 {
			return nil, invalid("format 12 group out of range")
		}
		for code := start; code <= end; code++ {
			gid := firstGID + (code - start)
			if gid != 0 && gid <= 0xFFFF {
				res[code] = glyph.ID(gid)
			}
		}
	}
	return res, nil
}

// encodeFormat4 stores a mapping with 16-bit codes as a format 4
// subtable.  The segmentation is chosen by finding a shortest path
// through the possible segment boundaries.
func encodeFormat4(mapping map[uint32]glyph.ID) ([]byte, error) {
	for code := range mapping {
		if code > 0xFFFF {
			return nil, invalid("code %d too large for format 4", code)
		}
	}

	g := segmenter(mapping)
	segments, err := dijkstra.ShortestPath[uint32, *segment, int](g, 0, 0x10000)
	if err != nil {
		return nil, invalid("format 4 segmentation failed: %s", err)
	}

	var startCode, endCode, idDelta, idRangeOffset, glyphIDArray []uint16
	for i, s := range segments {
		startCode = append(startCode, s.first)
		endCode = append(endCode, s.last)
		idDelta = append(idDelta, s.delta)
		if !s.useValues {
			idRangeOffset = append(idRangeOffset, 0)
		} else {
			offs := 2 * (len(segments) - i + len(glyphIDArray))
			if offs > 65535 {
				return nil, invalid("too many mappings for a format 4 subtable")
			}
			idRangeOffset = append(idRangeOffset, uint16(offs))
			for code := uint32(s.first); code <= uint32(s.last); code++ {
				glyphIDArray = append(glyphIDArray, uint16(mapping[code]))
			}
		}
	}

	segCount := len(startCode)
	sel := bits.Len(uint(segCount))

	buf := &bytes.Buffer{}
	header := []uint16{
		4, // format
		uint16(2 * (8 + 4*segCount + len(glyphIDArray))), // length
		0, // language
		uint16(2 * segCount),
		1 << sel,
		uint16(sel - 1),
	}
	header = append(header, header[3]-header[4]) // rangeShift

	endCode = append(endCode, 0) // reservedPad

	for _, x := range [][]uint16{header, endCode, startCode, idDelta, idRangeOffset, glyphIDArray} {
		_ = binary.Write(buf, binary.BigEndian, x)
	}
	return buf.Bytes(), nil
}

type segment struct {
	first     uint16
	last      uint16
	delta     uint16
	useValues bool
}

// segmenter turns a mapping into a graph over code points, where each
// edge is a candidate format 4 segment and the edge weight is the number
// of 16-bit words the segment costs.
type segmenter map[uint32]glyph.ID

func (m segmenter) Edges(v uint32) []*segment {
	if v > 0xFFFF {
		return nil
	}

	// skip leading unmapped codes
	start := v
	for start < 0xFFFF && m[start] == 0 {
		start++
	}

	delta := uint16(m[start]) - uint16(start)
	if start == 0xFFFF {
		// the last segment is required to end at 0xFFFF
		return []*segment{
			{first: 0xFFFF, last: 0xFFFF, delta: delta},
		}
	}

	// try a delta-coded segment
	end := start + 1
	for end < 0xFFFF && uint16(m[end])-uint16(end) == delta {
		end++
	}
	segs := []*segment{
		{first: uint16(start), last: uint16(end - 1), delta: delta},
	}
	if end-start >= 4 || start == 0xFFFE {
		return segs
	}

	// otherwise store glyph indices explicitly, stopping once a run of
	// equal deltas or of unmapped codes would make splitting cheaper
	prevDelta := delta
	numDelta := 1
	numNotdef := 0
	end = start + 1
	for end < 0xFFFF {
		gid := m[end]

		thisDelta := uint16(gid) - uint16(end)
		if thisDelta == prevDelta {
			numDelta++
		} else {
			prevDelta = thisDelta
			numDelta = 1 + numNotdef
		}

		if gid == 0 {
			numNotdef++
		} else {
			numNotdef = 0
		}

		if numDelta == 5 || numNotdef == 5 {
			segs = append(segs, &segment{
				first:     uint16(start),
				last:      uint16(end - 5),
				useValues: true,
			})
			return segs
		}

		end++
	}

	segs = append(segs, &segment{
		first:     uint16(start),
		last:      uint16(end - uint32(numNotdef) - 1),
		useValues: true,
	})
	return segs
}

func (m segmenter) Length(e *segment) int {
	if e.useValues {
		return 4 + int(e.last-e.first) + 1
	}
	return 4
}

func (m segmenter) To(e *segment) uint32 {
	return uint32(e.last) + 1
}

// encodeFormat12 stores a mapping as a format 12 subtable, one group per
// maximal run of consecutive codes with consecutive glyph indices.
func encodeFormat12(mapping map[uint32]glyph.ID) []byte {
	codes := make([]uint32, 0, len(mapping))
	for code, gid := range mapping {
		if gid != 0 {
			codes = append(codes, code)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	type group struct {
		start, end, firstGID uint32
	}
	var groups []group
	for _, code := range codes {
		gid := uint32(mapping[code])
		n := len(groups)
		if n > 0 && groups[n-1].end+1 == code &&
			groups[n-1].firstGID+(code-groups[n-1].start) == gid {
			groups[n-1].end = code
			continue
		}
		groups = append(groups, group{start: code, end: code, firstGID: gid})
	}

	buf := make([]byte, 16+12*len(groups))
	binary.BigEndian.PutUint16(buf, 12)
	binary.BigEndian.PutUint32(buf[4:], uint32(len(buf)))
	binary.BigEndian.PutUint32(buf[12:], uint32(len(groups)))
	for i, g := range groups {
		rec := buf[16+12*i:]
		binary.BigEndian.PutUint32(rec, g.start)
		binary.BigEndian.PutUint32(rec[4:], g.end)
		binary.BigEndian.PutUint32(rec[8:], g.firstGID)
	}
	return buf
}
