package objfile

import "github.com/vmtoolchain/vmasm/byteio"

// MagicObject identifies a .vmo object file: ASCII "VMOF".
const MagicObject uint32 = 0x564D4F46

// MagicExecutable identifies a .vmc executable: ASCII "VMCE".
const MagicExecutable uint32 = 0x564D4345

// Version is the only object/executable header version this toolchain
// produces or accepts. Version 1 (pre-.data, pre-macro) is rejected by
// the reader.
const Version uint16 = 2

// HeaderSize is the fixed size, in bytes, of the object/executable header.
const HeaderSize = 40

// entryTrailerMagic is the 4-byte tag preceding the entry-point u32 that
// the linker appends after an executable's symbol table.
const entryTrailerMagic = "ENTR"

// TrailerSize is the size, in bytes, of the executable entry-point
// trailer appended after the symbol table.
const TrailerSize = 8

// WriteTo serializes o as a .vmo object file, writing text, data, symbol
// table, and relocation table in that order after the header. Offsets in
// the header are computed from the actual section sizes.
func (o *Object) WriteTo() []byte {
	symBlob := encodeSymbols(o.Symbols)
	relBlob := encodeRelocs(o.Relocs)
	return assembleFile(MagicObject, o.Text, o.Data, symBlob, len(o.Symbols), relBlob, len(o.Relocs), nil)
}

// WriteTo serializes e as a .vmc executable: the same header and section
// layout as a .vmo, with an empty relocation table and an 8-byte trailer
// (magic "ENTR" followed by the entry point) appended after the symbol
// table.
func (e *Executable) WriteTo() []byte {
	symBlob := encodeSymbols(e.Symbols)
	var trailer []byte
	trailer = append(trailer, entryTrailerMagic...)
	trailer = byteio.PutU32(trailer, e.EntryPoint)
	return assembleFile(MagicExecutable, e.Text, e.Data, symBlob, len(e.Symbols), nil, 0, trailer)
}

// assembleFile lays out the shared header + text + data + symbols +
// relocations layout common to both .vmo and .vmc. trailer, if non-nil,
// is appended after the relocation blob (empty for objects).
func assembleFile(magic uint32, text, data, symBlob []byte, symCount int, relBlob []byte, relCount int, trailer []byte) []byte {
	textOff := uint32(HeaderSize)
	textSize := uint32(len(text))
	dataOff := textOff + textSize
	dataSize := uint32(len(data))
	symOff := dataOff + dataSize
	relOff := symOff + uint32(len(symBlob))

	var out []byte
	out = byteio.PutU32(out, magic)
	out = byteio.PutU16(out, Version)
	out = byteio.PutU16(out, 0) // flags
	out = byteio.PutU32(out, textOff)
	out = byteio.PutU32(out, textSize)
	out = byteio.PutU32(out, dataOff)
	out = byteio.PutU32(out, dataSize)
	out = byteio.PutU32(out, symOff)
	out = byteio.PutU32(out, uint32(symCount))
	out = byteio.PutU32(out, relOff)
	out = byteio.PutU32(out, uint32(relCount))

	out = append(out, text...)
	out = append(out, data...)
	out = append(out, symBlob...)
	out = append(out, relBlob...)
	out = append(out, trailer...)
	return out
}

// encodeSymbols serializes a symbol table in the on-disk record format:
// [section:u16][flags:u16][value:u32][namelen:u16][name bytes].
func encodeSymbols(syms []Symbol) []byte {
	var blob []byte
	for _, s := range syms {
		blob = byteio.PutU16(blob, uint16(s.Section))
		var flags uint16
		if s.Global {
			flags = globalFlag
		}
		blob = byteio.PutU16(blob, flags)
		blob = byteio.PutU32(blob, s.Value)
		blob = byteio.PutBytes(blob, []byte(s.Name))
	}
	return blob
}

// encodeRelocs serializes a relocation table in the on-disk record format:
// [section:u16][type:u16][offset:u32][namelen:u16][name bytes].
func encodeRelocs(rels []Reloc) []byte {
	var blob []byte
	for _, r := range rels {
		blob = byteio.PutU16(blob, uint16(r.Section))
		blob = byteio.PutU16(blob, uint16(r.Type))
		blob = byteio.PutU32(blob, r.Offset)
		blob = byteio.PutBytes(blob, []byte(r.Name))
	}
	return blob
}
