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

// cffStrings maps between SID values and strings.  SIDs below
// nStdStrings refer to the standard strings, larger values index into
// the font's own String INDEX.
type cffStrings struct {
	data []string
	rev  map[string]int32
}

const nStdStrings = int32(len(stdStrings))

func (ss *cffStrings) get(sid int32) string {
	if sid >= 0 && sid < nStdStrings {
		return stdStrings[sid]
	}
	idx := int(sid - nStdStrings)
	if idx < len(ss.data) {
		return ss.data[idx]
	}
	return ""
}

// lookup returns the SID for s, adding s to the String INDEX if needed.
func (ss *cffStrings) lookup(s string) int32 {
	if sid, ok := stdStringRev[s]; ok {
		return sid
	}
	if ss.rev == nil {
		ss.rev = make(map[string]int32)
		for i, t := range ss.data {
			ss.rev[t] = int32(i) + nStdStrings
		}
	}
	if sid, ok := ss.rev[s]; ok {
		return sid
	}
	sid := int32(len(ss.data)) + nStdStrings
	ss.data = append(ss.data, s)
	ss.rev[s] = sid
	return sid
}

func (ss *cffStrings) encode() ([]byte, error) {
	index := make([][]byte, len(ss.data))
	for i, s := range ss.data {
		index[i] = []byte(s)
	}
	return encodeIndex(index)
}

var stdStringRev map[string]int32

func init() {
	stdStringRev = make(map[string]int32, len(stdStrings))
	for i, s := range stdStrings {
		if _, ok := stdStringRev[s]; !ok {
			stdStringRev[s] = int32(i)
		}
	}
}

// The 391 standard strings of the CFF format.
var stdStrings = [...]string{
	".notdef", "space", "exclam", "quotedbl", "numbersign", "dollar",
	"percent", "ampersand", "quoteright", "parenleft", "parenright",
	"asterisk", "plus", "comma", "hyphen", "period", "slash", "zero",
	"one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "colon", "semicolon", "less", "equal", "greater", "question",
	"at", "A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L",
	"M", "N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
	"bracketleft", "backslash", "bracketright", "asciicircum",
	"underscore", "quoteleft", "a", "b", "c", "d", "e", "f", "g", "h",
	"i", "j", "k", "l", "m", "n", "o", "p", "q", "r", "s", "t", "u", "v",
	"w", "x", "y", "z", "braceleft", "bar", "braceright", "asciitilde",
	"exclamdown", "cent", "sterling", "fraction", "yen", "florin",
	"section", "currency", "quotesingle", "quotedblleft",
	"guillemotleft", "guilsinglleft", "guilsinglright", "fi", "fl",
	"endash", "dagger", "daggerdbl", "periodcentered", "paragraph",
	"bullet", "quotesinglbase", "quotedblbase", "quotedblright",
	"guillemotright", "ellipsis", "perthousand", "questiondown", "grave",
	"acute", "circumflex", "tilde", "macron", "breve", "dotaccent",
	"dieresis", "ring", "cedilla", "hungarumlaut", "ogonek", "caron",
	"emdash", "AE", "ordfeminine", "Lslash", "Oslash", "OE",
	"ordmasculine", "ae", "dotlessi", "lslash", "oslash", "oe",
	"germandbls", "onesuperior", "logicalnot", "mu", "trademark", "Eth",
	"onehalf", "plusminus", "Thorn", "onequarter", "divide", "brokenbar",
	"degree", "thorn", "threequarters", "twosuperior", "registered",
	"minus", "eth", "multiply", "threesuperior", "copyright", "Aacute",
	"Acircumflex", "Adieresis", "Agrave", "Aring", "Atilde", "Ccedilla",
	"Eacute", "Ecircumflex", "Edieresis", "Egrave", "Iacute",
	"Icircumflex", "Idieresis", "Igrave", "Ntilde", "Oacute",
	"Ocircumflex", "Odieresis", "Ograve", "Otilde", "Scaron", "Uacute",
	"Ucircumflex", "Udieresis", "Ugrave", "Yacute", "Ydieresis",
	"Zcaron", "aacute", "acircumflex", "adieresis", "agrave", "aring",
	"atilde", "ccedilla", "eacute", "ecircumflex", "edieresis", "egrave",
	"iacute", "icircumflex", "idieresis", "igrave", "ntilde", "oacute",
	"ocircumflex", "odieresis", "ograve", "otilde", "scaron", "uacute",
	"ucircumflex", "udieresis", "ugrave", "yacute", "ydieresis",
	"zcaron", "exclamsmall", "Hungarumlautsmall", "dollaroldstyle",
	"dollarsuperior", "ampersandsmall", "Acutesmall",
	"parenleftsuperior", "parenrightsuperior", "twodotenleader",
	"onedotenleader", "zerooldstyle", "oneoldstyle", "twooldstyle",
	"threeoldstyle", "fouroldstyle", "fiveoldstyle", "sixoldstyle",
	"sevenoldstyle", "eightoldstyle", "nineoldstyle", "commasuperior",
	"threequartersemdash", "periodsuperior", "questionsmall",
	"asuperior", "bsuperior", "centsuperior", "dsuperior", "esuperior",
	"isuperior", "lsuperior", "msuperior", "nsuperior", "osuperior",
	"rsuperior", "ssuperior", "tsuperior", "ff", "ffi", "ffl",
	"parenleftinferior", "parenrightinferior", "Circumflexsmall",
	"hyphensuperior", "Gravesmall", "Asmall", "Bsmall", "Csmall",
	"Dsmall", "Esmall", "Fsmall", "Gsmall", "Hsmall", "Ismall", "Jsmall",
	"Ksmall", "Lsmall", "Msmall", "Nsmall", "Osmall", "Psmall", "Qsmall",
	"Rsmall", "Ssmall", "Tsmall", "Usmall", "Vsmall", "Wsmall", "Xsmall",
	"Ysmall", "Zsmall", "colonmonetary", "onefitted", "rupiah",
	"Tildesmall", "exclamdownsmall", "centoldstyle", "Lslashsmall",
	"Scaronsmall", "Zcaronsmall", "Dieresissmall", "Brevesmall",
	"Caronsmall", "Dotaccentsmall", "Macronsmall", "figuredash",
	"hypheninferior", "Ogoneksmall", "Ringsmall", "Cedillasmall",
	"questiondownsmall", "oneeighth", "threeeighths", "fiveeighths",
	"seveneighths", "onethird", "twothirds", "zerosuperior",
	"foursuperior", "fivesuperior", "sixsuperior", "sevensuperior",
	"eightsuperior", "ninesuperior", "zeroinferior", "oneinferior",
	"twoinferior", "threeinferior", "fourinferior", "fiveinferior",
	"sixinferior", "seveninferior", "eightinferior", "nineinferior",
	"centinferior", "dollarinferior", "periodinferior", "commainferior",
	"Agravesmall", "Aacutesmall", "Acircumflexsmall", "Atildesmall",
	"Adieresissmall", "Aringsmall", "AEsmall", "Ccedillasmall",
	"Egravesmall", "Eacutesmall", "Ecircumflexsmall", "Edieresissmall",
	"Igravesmall", "Iacutesmall", "Icircumflexsmall", "Idieresissmall",
	"Ethsmall", "Ntildesmall", "Ogravesmall", "Oacutesmall",
	"Ocircumflexsmall", "Otildesmall", "Odieresissmall", "OEsmall",
	"Oslashsmall", "Ugravesmall", "Uacutesmall", "Ucircumflexsmall",
	"Udieresissmall", "Yacutesmall", "Thornsmall", "Ydieresissmall",
	"001.000", "001.001", "001.002", "001.003", "Black", "Bold", "Book",
	"Light", "Medium", "Regular", "Roman", "Semibold",
}
