// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package byteio provides little-endian byte-packing helpers shared by the
// object-file writer, object-file reader, and linker. All integers in the
// VM toolchain's on-disk formats are little-endian.
package byteio

import "fmt"

// PutU8 appends v to buf.
func PutU8(buf []byte, v uint8) []byte {
	return append(buf, v)
}

// PutU16 appends the little-endian encoding of v to buf.
func PutU16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}

// PutU32 appends the little-endian encoding of v to buf.
func PutU32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// PutI32 appends the little-endian encoding of v to buf.
func PutI32(buf []byte, v int32) []byte {
	return PutU32(buf, uint32(v))
}

// PutBytes appends a u16 length prefix followed by b itself. Used for
// variable-length symbol and relocation names.
func PutBytes(buf []byte, b []byte) []byte {
	buf = PutU16(buf, uint16(len(b)))
	return append(buf, b...)
}

// ErrTruncated is returned by the Get* functions when the source buffer is
// too short to hold the requested field.
var ErrTruncated = fmt.Errorf("truncated")

// GetU16 reads a little-endian u16 at offset off in b.
func GetU16(b []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(b) {
		return 0, ErrTruncated
	}
	return uint16(b[off]) | uint16(b[off+1])<<8, nil
}

// GetU32 reads a little-endian u32 at offset off in b.
func GetU32(b []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(b) {
		return 0, ErrTruncated
	}
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24, nil
}

// GetI32 reads a little-endian i32 at offset off in b.
func GetI32(b []byte, off int) (int32, error) {
	v, err := GetU32(b, off)
	return int32(v), err
}

// PutU32At overwrites the 4 bytes at offset off in b with the little-endian
// encoding of v. b must have at least off+4 bytes. Used by the linker to
// patch relocations in place.
func PutU32At(b []byte, off int, v uint32) {
	b[off+0] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

// GetName reads a u16 length prefix at off followed by that many bytes,
// returning the name and the offset immediately following it.
func GetName(b []byte, off int) (name string, next int, err error) {
	n, err := GetU16(b, off)
	if err != nil {
		return "", off, err
	}
	start := off + 2
	end := start + int(n)
	if end > len(b) {
		return "", off, ErrTruncated
	}
	return string(b[start:end]), end, nil
}
