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

package pdfenc

var symbolEncoding = [256]string{
	// 0x00 - 0x1f
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	// 0x20 - 0x3f
	"space", "exclam", "universal", "numbersign", "existential", "percent", "ampersand", "suchthat",
	"parenleft", "parenright", "asteriskmath", "plus", "comma", "minus", "period", "slash",
	"zero", "one", "two", "three", "four", "five", "six", "seven",
	"eight", "nine", "colon", "semicolon", "less", "equal", "greater", "question",
	// 0x40 - 0x5f
	"congruent", "Alpha", "Beta", "Chi", "Delta", "Epsilon", "Phi", "Gamma",
	"Eta", "Iota", "theta1", "Kappa", "Lambda", "Mu", "Nu", "Omicron",
	"Pi", "Theta", "Rho", "Sigma", "Tau", "Upsilon", "sigma1", "Omega",
	"Xi", "Psi", "Zeta", "bracketleft", "therefore", "bracketright", "perpendicular", "underscore",
	// 0x60 - 0x7f
	"radicalex", "alpha", "beta", "chi", "delta", "epsilon", "phi", "gamma",
	"eta", "iota", "phi1", "kappa", "lambda", "mu", "nu", "omicron",
	"pi", "theta", "rho", "sigma", "tau", "upsilon", "omega1", "omega",
	"xi", "psi", "zeta", "braceleft", "bar", "braceright", "similar", ".notdef",
	// 0x80 - 0x9f
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	// 0xa0 - 0xbf
	"Euro", "Upsilon1", "minute", "lessequal", "fraction", "infinity", "florin", "club",
	"diamond", "heart", "spade", "arrowboth", "arrowleft", "arrowup", "arrowright", "arrowdown",
	"degree", "plusminus", "second", "greaterequal", "multiply", "proportional", "partialdiff", "bullet",
	"divide", "notequal", "equivalence", "approxequal", "ellipsis", "arrowvertex", "arrowhorizex", "carriagereturn",
	// 0xc0 - 0xdf
	"aleph", "Ifraktur", "Rfraktur", "weierstrass", "circlemultiply", "circleplus", "emptyset", "intersection",
	"union", "propersuperset", "reflexsuperset", "notsubset", "propersubset", "reflexsubset", "element", "notelement",
	"angle", "gradient", "registerserif", "copyrightserif", "trademarkserif", "product", "radical", "dotmath",
	"logicalnot", "logicaland", "logicalor", "arrowdblboth", "arrowdblleft", "arrowdblup", "arrowdblright", "arrowdbldown",
	// 0xe0 - 0xff
	"lozenge", "angleleft", "registersans", "copyrightsans", "trademarksans", "summation", "parenlefttp", "parenleftex",
	"parenleftbt", "bracketlefttp", "bracketleftex", "bracketleftbt", "bracelefttp", "braceleftmid", "braceleftbt", "braceex",
	".notdef", "angleright", "integral", "integraltp", "integralex", "integralbt", "parenrighttp", "parenrightex",
	"parenrightbt", "bracketrighttp", "bracketrightex", "bracketrightbt", "bracerighttp", "bracerightmid", "bracerightbt", ".notdef",
}
