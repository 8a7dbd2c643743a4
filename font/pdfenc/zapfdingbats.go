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

var zapfDingbatsEncoding = [256]string{
	// 0x00 - 0x1f
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	// 0x20 - 0x3f
	"space", "a1", "a2", "a202", "a3", "a4", "a5", "a119",
	"a118", "a117", "a11", "a12", "a13", "a14", "a15", "a16",
	"a105", "a17", "a18", "a19", "a20", "a21", "a22", "a23",
	"a24", "a25", "a26", "a27", "a28", "a6", "a7", "a8",
	// 0x40 - 0x5f
	"a9", "a10", "a29", "a30", "a31", "a32", "a33", "a34",
	"a35", "a36", "a37", "a38", "a39", "a40", "a41", "a42",
	"a43", "a44", "a45", "a46", "a47", "a48", "a49", "a50",
	"a51", "a52", "a53", "a54", "a55", "a56", "a57", "a58",
	// 0x60 - 0x7f
	"a59", "a60", "a61", "a62", "a63", "a64", "a65", "a66",
	"a67", "a68", "a69", "a70", "a71", "a72", "a73", "a74",
	"a203", "a75", "a204", "a76", "a77", "a78", "a79", "a81",
	"a82", "a83", "a84", "a97", "a98", "a99", "a100", ".notdef",
	// 0x80 - 0x9f
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef", ".notdef",
	// 0xa0 - 0xbf
	".notdef", "a101", "a102", "a103", "a104", "a106", "a107", "a108",
	"a112", "a111", "a110", "a109", "a120", "a121", "a122", "a123",
	"a124", "a125", "a126", "a127", "a128", "a129", "a130", "a131",
	"a132", "a133", "a134", "a135", "a136", "a137", "a138", "a139",
	// 0xc0 - 0xdf
	"a140", "a141", "a142", "a143", "a144", "a145", "a146", "a147",
	"a148", "a149", "a150", "a151", "a152", "a153", "a154", "a155",
	"a156", "a157", "a158", "a159", "a160", "a161", "a163", "a164",
	"a196", "a165", "a192", "a166", "a167", "a168", "a169", "a170",
	// 0xe0 - 0xff
	"a171", "a172", "a173", "a162", "a174", "a175", "a176", "a177",
	"a178", "a179", "a193", "a180", "a199", "a181", "a200", "a182",
	".notdef", "a201", "a183", "a184", "a197", "a185", "a194", "a198",
	"a186", "a195", "a187", "a188", "a189", "a190", "a191", ".notdef",
}
