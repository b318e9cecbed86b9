// Package linker implements the VM toolchain's linker core: it lays out
// sections across an ordered list of object files, builds a merged global
// symbol table, checks for duplicate and undefined symbols, applies
// relocations, and produces an executable ready for objfile.Executable.WriteTo.
package linker

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vmtoolchain/vmasm/byteio"
	"github.com/vmtoolchain/vmasm/objfile"
)

// ErrDuplicateSymbol is wrapped by errors reporting that a global symbol
// is defined in more than one input object.
var ErrDuplicateSymbol = errors.New("duplicate symbol")

// ErrUndefinedSymbol is wrapped by errors reporting unresolved references
// left after all inputs have been scanned.
var ErrUndefinedSymbol = errors.New("undefined symbol")

// errReloc is wrapped by relocation-application failures: an unsupported
// type, or a write that would fall outside its target section.
var errReloc = errors.New("relocation error")

// globalSymbol is one entry in the linker's merged symbol table.
type globalSymbol struct {
	section  objfile.Section
	addr     uint32
	global   bool
	defIndex int // index into the input object list
}

// Link merges the ordered list of input objects into a single executable.
// paths must be parallel to objs and is used only to name objects in
// error messages; order matters, since it determines section layout and
// therefore every absolute address in the output.
func Link(paths []string, objs []*objfile.Object) (*objfile.Executable, error) {
	textBase, dataBase := layoutBases(objs)

	globals, err := buildGlobalTable(paths, objs, textBase, dataBase)
	if err != nil {
		return nil, err
	}

	if err := checkUndefined(objs, globals); err != nil {
		return nil, err
	}

	finalText := concatSections(objs, func(o *objfile.Object) []byte { return o.Text })
	finalData := concatSections(objs, func(o *objfile.Object) []byte { return o.Data })

	if err := applyRelocations(paths, objs, textBase, dataBase, finalText, finalData, globals); err != nil {
		return nil, err
	}

	dataFloor := uint32(len(finalText))
	entry := uint32(0)
	if g, ok := globals["main"]; ok {
		entry = g.addr
	}

	return &objfile.Executable{
		Text:       finalText,
		Data:       finalData,
		Symbols:    exportSymbols(globals, dataFloor),
		EntryPoint: entry,
	}, nil
}

// layoutBases computes each object's text and data base address in the
// merged layout. Text blocks are concatenated first, in input order;
// data blocks follow, also in input order.
func layoutBases(objs []*objfile.Object) (textBase, dataBase []uint32) {
	textBase = make([]uint32, len(objs))
	dataBase = make([]uint32, len(objs))

	base := uint32(0)
	for i, o := range objs {
		textBase[i] = base
		base += uint32(len(o.Text))
	}
	for i, o := range objs {
		dataBase[i] = base
		base += uint32(len(o.Data))
	}
	return textBase, dataBase
}

// buildGlobalTable registers every defined (non-Undef) symbol from every
// object under its absolute address, failing on the first duplicate name.
func buildGlobalTable(paths []string, objs []*objfile.Object, textBase, dataBase []uint32) (map[string]globalSymbol, error) {
	globals := map[string]globalSymbol{}
	for oi, o := range objs {
		for _, s := range o.Symbols {
			if s.Section == objfile.Undef {
				continue
			}
			addr := textBase[oi] + s.Value
			if s.Section == objfile.Data {
				addr = dataBase[oi] + s.Value
			}
			if existing, dup := globals[s.Name]; dup {
				return nil, fmt.Errorf("%w %q: defined in %s and %s",
					ErrDuplicateSymbol, s.Name, paths[existing.defIndex], paths[oi])
			}
			globals[s.Name] = globalSymbol{section: s.Section, addr: addr, global: s.Global, defIndex: oi}
		}
	}
	return globals, nil
}

// checkUndefined collects every name referenced by a relocation or an
// Undef symbol table entry across all objects, and fails listing every
// name that has no definition in the global table.
func checkUndefined(objs []*objfile.Object, globals map[string]globalSymbol) error {
	referenced := map[string]bool{}
	for _, o := range objs {
		for _, r := range o.Relocs {
			referenced[r.Name] = true
		}
		for _, s := range o.Symbols {
			if s.Section == objfile.Undef {
				referenced[s.Name] = true
			}
		}
	}

	var undef []string
	for name := range referenced {
		if _, ok := globals[name]; !ok {
			undef = append(undef, name)
		}
	}
	if len(undef) == 0 {
		return nil
	}
	sort.Strings(undef)
	return fmt.Errorf("%w: %v", ErrUndefinedSymbol, undef)
}

func concatSections(objs []*objfile.Object, section func(*objfile.Object) []byte) []byte {
	var total int
	for _, o := range objs {
		total += len(section(o))
	}
	out := make([]byte, 0, total)
	for _, o := range objs {
		out = append(out, section(o)...)
	}
	return out
}

// applyRelocations patches every relocation from every object into the
// merged text or data buffer, writing the referenced symbol's absolute
// address as a little-endian u32.
func applyRelocations(paths []string, objs []*objfile.Object, textBase, dataBase []uint32, finalText, finalData []byte, globals map[string]globalSymbol) error {
	for oi, o := range objs {
		for _, r := range o.Relocs {
			g, ok := globals[r.Name]
			if !ok {
				return fmt.Errorf("%w: relocation refers to undefined symbol %q", errReloc, r.Name)
			}
			if r.Type != objfile.Absolute32 {
				return fmt.Errorf("%w: unsupported reloc type %d in object %s", errReloc, r.Type, paths[oi])
			}

			var buf []byte
			var base uint32
			switch r.Section {
			case objfile.Text:
				buf, base = finalText, textBase[oi]
			case objfile.Data:
				// dataBase holds absolute addresses (data follows all
				// text); finalData itself is indexed from 0.
				buf, base = finalData, dataBase[oi]-uint32(len(finalText))
			default:
				return fmt.Errorf("%w: unknown relocation section %s in object %s", errReloc, r.Section, paths[oi])
			}

			writeAt := base + r.Offset
			if uint64(writeAt)+4 > uint64(len(buf)) {
				return fmt.Errorf("%w: write out of range in object %s for symbol %q", errReloc, paths[oi], r.Name)
			}
			byteio.PutU32At(buf, int(writeAt), g.addr)
		}
	}
	return nil
}

// exportSymbols builds the executable's symbol table from the global
// table: every defined symbol, marked global, with its section derived
// from its absolute address (anything at or past dataFloor is Data).
func exportSymbols(globals map[string]globalSymbol, dataFloor uint32) []objfile.Symbol {
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]objfile.Symbol, 0, len(names))
	for _, name := range names {
		g := globals[name]
		sec := objfile.Text
		if g.addr >= dataFloor {
			sec = objfile.Data
		}
		out = append(out, objfile.Symbol{Name: name, Section: sec, Value: g.addr, Global: true})
	}
	return out
}
