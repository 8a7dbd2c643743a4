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

package tounicode

import (
	"bytes"
	"fmt"
	"regexp"

	"seehuhn.de/go/pdffix/font"
)

var (
	codespaceBlock = regexp.MustCompile(`(?s)(\d+)\s+begincodespacerange(.*?)endcodespacerange`)
	bfCharBlock    = regexp.MustCompile(`(?s)(\d+)\s+beginbfchar(.*?)endbfchar`)
	bfRangeBlock   = regexp.MustCompile(`(?s)(\d+)\s+beginbfrange(.*?)endbfrange`)

	hexToken = regexp.MustCompile(`<[0-9a-fA-F]+>`)

	bfCharEntry  = regexp.MustCompile(`<[0-9a-fA-F]+>\s*<[0-9a-fA-F]*>`)
	bfRangeEntry = regexp.MustCompile(`<[0-9a-fA-F]+>\s*<[0-9a-fA-F]+>\s*(<[0-9a-fA-F]*>|\[[^\[\]]*\])`)
)

// Validate performs the structural checks required before a ToUnicode CMap
// may be used or emitted: the begincmap/endcmap and codespacerange keywords
// must be present and balanced, the declared entry counts must match the
// entries actually found, and no bfchar block may exceed 100 entries.
//
// A violation is reported as a [font.RepairError] with kind
// [font.CMapStructureInvalid].
func Validate(data []byte) error {
	err := validate(data)
	if err != nil {
		return &font.RepairError{Kind: font.CMapStructureInvalid, Err: err}
	}
	return nil
}

func validate(data []byte) error {
	pairs := []struct {
		begin, end string
	}{
		{"begincmap", "endcmap"},
		{"begincodespacerange", "endcodespacerange"},
		{"beginbfchar", "endbfchar"},
		{"beginbfrange", "endbfrange"},
	}
	for _, p := range pairs {
		nBegin := bytes.Count(data, []byte(p.begin))
		nEnd := bytes.Count(data, []byte(p.end))
		if nBegin != nEnd {
			return fmt.Errorf("unbalanced %s/%s (%d/%d)",
				p.begin, p.end, nBegin, nEnd)
		}
	}
	if bytes.Count(data, []byte("begincmap")) != 1 {
		return fmt.Errorf("missing begincmap")
	}

	nCodespace := bytes.Count(data, []byte("begincodespacerange"))
	if nCodespace != 1 {
		return fmt.Errorf("need one codespacerange block, found %d", nCodespace)
	}
	m := codespaceBlock.FindSubmatch(data)
	if m == nil {
		return fmt.Errorf("codespacerange block has no entry count")
	}
	declared := atoi(m[1])
	found := len(hexToken.FindAll(m[2], -1))
	if found%2 != 0 || found/2 != declared {
		return fmt.Errorf("codespacerange: %d entries declared, %d found",
			declared, found/2)
	}

	if err := checkBlocks(data, "bfchar", bfCharBlock, bfCharEntry); err != nil {
		return err
	}
	return checkBlocks(data, "bfrange", bfRangeBlock, bfRangeEntry)
}

func checkBlocks(data []byte, kind string, block, entry *regexp.Regexp) error {
	blocks := block.FindAllSubmatch(data, -1)
	if len(blocks) != bytes.Count(data, []byte("begin"+kind)) {
		return fmt.Errorf("%s block without entry count", kind)
	}
	for _, m := range blocks {
		declared := atoi(m[1])
		found := len(entry.FindAll(m[2], -1))
		if found != declared {
			return fmt.Errorf("%s: %d entries declared, %d found",
				kind, declared, found)
		}
		if kind == "bfchar" && declared > chunkSize {
			return fmt.Errorf("%s block with %d entries (max %d)",
				kind, declared, chunkSize)
		}
	}
	return nil
}

func atoi(b []byte) int {
	x := 0
	for _, c := range b {
		x = x*10 + int(c-'0')
	}
	return x
}
