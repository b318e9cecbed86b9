// Package vmhost implements the loader's interactive front end: it reads
// a .vmc executable into a flat memory image, exposes the entry point and
// symbol table, and accepts a small set of inspection commands.
//
// Execution of the loaded program is out of scope; this package only
// copies bytes into memory and answers questions about what was loaded.
package vmhost

import (
	"bufio"
	"fmt"
	"io"

	"github.com/beevik/cmd"
	"github.com/vmtoolchain/vmasm/objfile"
)

// MemorySize is the fixed size, in bytes, of the loader's memory image.
const MemorySize = 65536

// Host holds one loaded executable and the state needed to answer
// interactive inspection commands about it.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool

	mem      []byte
	entry    uint32
	symbols  []objfile.Symbol
	loaded   bool
	settings *settings
}

// New creates a loader host with an empty MemorySize-byte memory image.
func New() *Host {
	return &Host{
		mem:      make([]byte, MemorySize),
		settings: newSettings(),
	}
}

// Load reads path as a .vmc executable and copies its text and data
// sections into the memory image starting at address 0, text first, then
// data immediately following — matching the layout the linker assumed
// when it resolved every absolute address.
func (h *Host) Load(path string, raw []byte) error {
	exe, err := objfile.ReadExecutable(path, raw)
	if err != nil {
		return err
	}
	if len(exe.Text)+len(exe.Data) > len(h.mem) {
		return fmt.Errorf("program too large for %d-byte memory image", len(h.mem))
	}
	copy(h.mem, exe.Text)
	copy(h.mem[len(exe.Text):], exe.Data)
	h.entry = exe.EntryPoint
	h.symbols = exe.Symbols
	h.loaded = true
	return nil
}

// Entry returns the entry point of the most recently loaded executable.
func (h *Host) Entry() uint32 {
	return h.entry
}

// RunCommands accepts host commands from r and writes results to w. If
// interactive is true, a prompt is displayed before each command.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			break
		}
		if line == "" {
			continue
		}

		node, largs, err := cmds.Lookup(line)
		switch {
		case err == cmd.ErrNotFound:
			h.println("Command not found.")
			continue
		case err == cmd.ErrAmbiguous:
			h.println("Command is ambiguous.")
			continue
		case err != nil:
			h.printf("ERROR: %v.\n", err)
			continue
		}

		sel := Selection{Command: node.(*cmd.Command), Args: largs}
		handler := sel.Command.Data.(func(*Host, Selection) error)
		if err := handler(h, sel); err != nil {
			if err == errQuit {
				break
			}
			h.printf("ERROR: %v.\n", err)
		}
	}
}

func (h *Host) print(args ...interface{}) {
	fmt.Fprint(h.output, args...)
	h.flush()
}

func (h *Host) printf(format string, args ...interface{}) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...interface{}) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.printf("vmhost> ")
	}
}

func (h *Host) displayHelpText(c *cmd.Command) {
	h.printf("Usage: %s\n", c.Usage)
	if c.Description != "" {
		h.println(c.Description)
	}
}
