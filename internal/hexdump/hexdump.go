// Package hexdump formats raw bytes for the toolchain's diagnostic dump
// commands. Layout matches vmloader's dump: an offset column followed by
// space-separated hex byte pairs, 16 bytes per line.
package hexdump

import (
	"fmt"
	"io"
)

// Width is the number of bytes printed per line.
const Width = 16

// Dump writes b to w in the toolchain's standard hex dump layout.
func Dump(w io.Writer, b []byte) {
	for off := 0; off < len(b); off += Width {
		end := off + Width
		if end > len(b) {
			end = len(b)
		}
		fmt.Fprintf(w, "%08X  ", off)
		for _, v := range b[off:end] {
			fmt.Fprintf(w, "%02X ", v)
		}
		fmt.Fprintln(w)
	}
}
