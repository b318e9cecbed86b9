// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package objfile implements the VM toolchain's object file (.vmo) and
// executable (.vmc) formats: the shared header layout, symbol and
// relocation record encodings, and the readers/writers that move them to
// and from disk.
package objfile

import "fmt"

// Section identifies which buffer a symbol or relocation belongs to.
type Section uint16

// The two sections emitted by the assembler, plus the Undef marker used
// for external symbol references.
const (
	Undef Section = 0
	Text  Section = 1
	Data  Section = 2
)

func (s Section) String() string {
	switch s {
	case Undef:
		return "UNDEF"
	case Text:
		return "TEXT"
	case Data:
		return "DATA"
	default:
		return fmt.Sprintf("Section(%d)", uint16(s))
	}
}

// RelocType identifies the patch to apply at a relocation's offset. Only
// absolute-32 is defined.
type RelocType uint16

// Absolute32 writes a symbol's absolute address as a little-endian u32.
// It is the only relocation type this toolchain supports.
const Absolute32 RelocType = 0

// globalFlag is the single bit used in a symbol record's flags field.
const globalFlag = 1 << 0

// Symbol is one entry in an object or executable's symbol table.
type Symbol struct {
	Name    string
	Section Section
	Value   uint32 // offset within Section; 0 when Section == Undef
	Global  bool
}

// Reloc is one entry in an object file's relocation table: "at Offset
// bytes into Section, write the resolved address of Name".
type Reloc struct {
	Section Section
	Type    RelocType
	Offset  uint32
	Name    string
}

// Object is the in-memory form of a .vmo file: either freshly assembled,
// or freshly read back from disk.
type Object struct {
	Path    string // empty if not yet associated with a file
	Raw     []byte // the full file contents, once written or read
	Text    []byte
	Data    []byte
	Symbols []Symbol
	Relocs  []Reloc
}

// Executable is the in-memory form of a .vmc file: the linker's merged
// output. It carries no relocation table; EntryPoint is the absolute
// address execution should begin at.
type Executable struct {
	Path       string
	Raw        []byte
	Text       []byte
	Data       []byte
	Symbols    []Symbol
	EntryPoint uint32
}
