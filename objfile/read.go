package objfile

import (
	"fmt"

	"github.com/vmtoolchain/vmasm/byteio"
)

// errFormat is the sentinel wrapped by every object/executable format
// error: bad magic, unsupported version, or a truncated section, symbol,
// or relocation table.
var errFormat = fmt.Errorf("format error")

// ReadObject parses raw as a .vmo object file. path is recorded on the
// result and used only for error messages.
func ReadObject(path string, raw []byte) (*Object, error) {
	h, err := readHeader(path, raw, MagicObject)
	if err != nil {
		return nil, err
	}

	text, err := slice(path, raw, h.textOff, h.textSize, "text")
	if err != nil {
		return nil, err
	}
	data, err := slice(path, raw, h.dataOff, h.dataSize, "data")
	if err != nil {
		return nil, err
	}
	syms, err := readSymbols(path, raw, h.symOff, h.symCount)
	if err != nil {
		return nil, err
	}
	rels, err := readRelocs(path, raw, h.relOff, h.relCount)
	if err != nil {
		return nil, err
	}

	return &Object{
		Path:    path,
		Raw:     raw,
		Text:    text,
		Data:    data,
		Symbols: syms,
		Relocs:  rels,
	}, nil
}

// ReadExecutable parses raw as a .vmc executable file, including its
// trailing entry-point footer.
func ReadExecutable(path string, raw []byte) (*Executable, error) {
	h, err := readHeader(path, raw, MagicExecutable)
	if err != nil {
		return nil, err
	}

	text, err := slice(path, raw, h.textOff, h.textSize, "text")
	if err != nil {
		return nil, err
	}
	data, err := slice(path, raw, h.dataOff, h.dataSize, "data")
	if err != nil {
		return nil, err
	}
	syms, err := readSymbols(path, raw, h.symOff, h.symCount)
	if err != nil {
		return nil, err
	}

	if len(raw) < TrailerSize {
		return nil, fmt.Errorf("%w: missing entry-point trailer: %s", errFormat, path)
	}
	trailerOff := len(raw) - TrailerSize
	magic := string(raw[trailerOff : trailerOff+4])
	if magic != entryTrailerMagic {
		return nil, fmt.Errorf("%w: bad entry-point trailer magic %q: %s", errFormat, magic, path)
	}
	entry, _ := byteio.GetU32(raw, trailerOff+4)

	return &Executable{
		Path:       path,
		Raw:        raw,
		Text:       text,
		Data:       data,
		Symbols:    syms,
		EntryPoint: entry,
	}, nil
}

type header struct {
	textOff, textSize   uint32
	dataOff, dataSize   uint32
	symOff, symCount    uint32
	relOff, relCount    uint32
}

func readHeader(path string, raw []byte, wantMagic uint32) (header, error) {
	if len(raw) < HeaderSize {
		return header{}, fmt.Errorf("%w: file too small: %s", errFormat, path)
	}
	magic, _ := byteio.GetU32(raw, 0)
	if magic != wantMagic {
		return header{}, fmt.Errorf("%w: bad magic: %s", errFormat, path)
	}
	version, _ := byteio.GetU16(raw, 4)
	if version != Version {
		return header{}, fmt.Errorf("%w: unsupported version %d: %s", errFormat, version, path)
	}

	var h header
	h.textOff, _ = byteio.GetU32(raw, 8)
	h.textSize, _ = byteio.GetU32(raw, 12)
	h.dataOff, _ = byteio.GetU32(raw, 16)
	h.dataSize, _ = byteio.GetU32(raw, 20)
	h.symOff, _ = byteio.GetU32(raw, 24)
	h.symCount, _ = byteio.GetU32(raw, 28)
	h.relOff, _ = byteio.GetU32(raw, 32)
	h.relCount, _ = byteio.GetU32(raw, 36)
	return h, nil
}

// slice extracts a bounds-checked section from raw.
func slice(path string, raw []byte, off, size uint32, name string) ([]byte, error) {
	end := uint64(off) + uint64(size)
	if end > uint64(len(raw)) {
		return nil, fmt.Errorf("%w: %s section out of range: %s", errFormat, name, path)
	}
	if size == 0 {
		return []byte{}, nil
	}
	return raw[off:end], nil
}

func readSymbols(path string, raw []byte, off, count uint32) ([]Symbol, error) {
	syms := make([]Symbol, 0, count)
	p := int(off)
	for i := uint32(0); i < count; i++ {
		sec, err := byteio.GetU16(raw, p)
		if err != nil {
			return nil, fmt.Errorf("%w: symbol table truncated: %s", errFormat, path)
		}
		flags, err := byteio.GetU16(raw, p+2)
		if err != nil {
			return nil, fmt.Errorf("%w: symbol table truncated: %s", errFormat, path)
		}
		value, err := byteio.GetU32(raw, p+4)
		if err != nil {
			return nil, fmt.Errorf("%w: symbol table truncated: %s", errFormat, path)
		}
		name, next, err := byteio.GetName(raw, p+8)
		if err != nil {
			return nil, fmt.Errorf("%w: symbol name truncated: %s", errFormat, path)
		}
		syms = append(syms, Symbol{
			Name:    name,
			Section: Section(sec),
			Value:   value,
			Global:  flags&globalFlag != 0,
		})
		p = next
	}
	return syms, nil
}

func readRelocs(path string, raw []byte, off, count uint32) ([]Reloc, error) {
	rels := make([]Reloc, 0, count)
	p := int(off)
	for i := uint32(0); i < count; i++ {
		sec, err := byteio.GetU16(raw, p)
		if err != nil {
			return nil, fmt.Errorf("%w: reloc table truncated: %s", errFormat, path)
		}
		typ, err := byteio.GetU16(raw, p+2)
		if err != nil {
			return nil, fmt.Errorf("%w: reloc table truncated: %s", errFormat, path)
		}
		offset, err := byteio.GetU32(raw, p+4)
		if err != nil {
			return nil, fmt.Errorf("%w: reloc table truncated: %s", errFormat, path)
		}
		name, next, err := byteio.GetName(raw, p+8)
		if err != nil {
			return nil, fmt.Errorf("%w: reloc name truncated: %s", errFormat, path)
		}
		rels = append(rels, Reloc{
			Section: Section(sec),
			Type:    RelocType(typ),
			Offset:  offset,
			Name:    name,
		})
		p = next
	}
	return rels, nil
}
