package vmhost

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/cmd"
	"github.com/vmtoolchain/vmasm/internal/hexdump"
)

var cmds *cmd.Tree

// errQuit is returned by cmdQuit to unwind RunCommands' loop.
var errQuit = errors.New("quit")

// Selection holds the resolved command and its remaining arguments, mirroring
// the (Node, args, err) shape returned by cmd.Tree.Lookup.
type Selection struct {
	Command *cmd.Command
	Args    []string
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "vmhost"})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "help",
		Brief:       "Display help for a command",
		Usage:       "help [<command>]",
		Data:        (*Host).cmdHelp,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "symbols",
		Brief:       "List the executable's symbol table",
		Description: "Print every symbol the linker resolved into the loaded executable, along with its section and absolute address.",
		Usage:       "symbols",
		Data:        (*Host).cmdSymbols,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "hexdump",
		Brief:       "Dump a range of the memory image",
		Description: "Print len bytes of the memory image starting at addr, in the toolchain's standard hex dump layout.",
		Usage:       "hexdump <addr> <len>",
		Data:        (*Host).cmdHexdump,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "entry",
		Brief:       "Display the executable's entry point",
		Usage:       "entry",
		Data:        (*Host).cmdEntry,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "set",
		Brief:       "Change a loader setting",
		Description: "Store a loader setting, such as the hex dump width. Stored values do not change hexdump output or the memory image size.",
		Usage:       "set <setting> <value>",
		Data:        (*Host).cmdSet,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "quit",
		Brief: "Exit the loader",
		Usage: "quit",
		Data:  (*Host).cmdQuit,
	})
	root.AddShortcut("q", "quit")
	root.AddShortcut("x", "hexdump")
	root.AddShortcut("?", "help")

	cmds = root
}

func (h *Host) cmdHelp(c Selection) error {
	if len(c.Args) == 0 {
		h.println("Commands:")
		for _, name := range []string{"help", "symbols", "hexdump", "entry", "set", "quit"} {
			h.printf("  %s\n", name)
		}
		return nil
	}
	node, _, err := cmds.Lookup(strings.Join(c.Args, " "))
	if err != nil {
		h.printf("%v.\n", err)
		return nil
	}
	h.displayHelpText(node.(*cmd.Command))
	return nil
}

func (h *Host) cmdSymbols(c Selection) error {
	if !h.loaded {
		h.println("No executable loaded.")
		return nil
	}
	for _, s := range h.symbols {
		h.printf("%08X  %-6s %s\n", s.Value, s.Section, s.Name)
	}
	return nil
}

func (h *Host) cmdHexdump(c Selection) error {
	if !h.loaded {
		h.println("No executable loaded.")
		return nil
	}
	if len(c.Args) < 2 {
		h.displayHelpText(c.Command)
		return nil
	}
	addr, err := strconv.ParseUint(c.Args[0], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid address %q", c.Args[0])
	}
	length, err := strconv.ParseUint(c.Args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid length %q", c.Args[1])
	}
	end := addr + length
	if end > uint64(len(h.mem)) {
		return fmt.Errorf("range [%d, %d) exceeds %d-byte memory image", addr, end, len(h.mem))
	}
	hexdump.Dump(h.output, h.mem[addr:end])
	h.flush()
	return nil
}

func (h *Host) cmdEntry(c Selection) error {
	if !h.loaded {
		h.println("No executable loaded.")
		return nil
	}
	h.printf("Entry point: %08X\n", h.entry)
	return nil
}

func (h *Host) cmdSet(c Selection) error {
	if len(c.Args) < 2 {
		h.displayHelpText(c.Command)
		return nil
	}
	key, value := c.Args[0], strings.Join(c.Args[1:], " ")
	if err := h.settings.SetString(key, value); err != nil {
		return err
	}
	h.println("OK.")
	return nil
}

func (h *Host) cmdQuit(c Selection) error {
	return errQuit
}
