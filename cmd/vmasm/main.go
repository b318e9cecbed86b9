// Command vmasm assembles VM assembly source into a relocatable .vmo
// object file, and hex-dumps object or executable files for inspection.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/cmd"
	"github.com/vmtoolchain/vmasm/asm"
	"github.com/vmtoolchain/vmasm/internal/hexdump"
)

var cmds *cmd.Tree

// Selection holds the resolved command and its remaining arguments, mirroring
// the (Node, args, err) shape returned by cmd.Tree.Lookup.
type Selection struct {
	Command *cmd.Command
	Args    []string
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "vmasm"})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "assemble",
		Brief:       "Assemble a source file into a .vmo object file",
		Description: "Run the macro expander, lexer, and parser over the input file, producing a relocatable object file.",
		Usage:       "assemble <input> [-o <output>]",
		Data:        cmdAssemble,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "dump",
		Brief:       "Hex-dump a .vmo or .vmc file",
		Usage:       "dump <file>",
		Data:        cmdDump,
	})
	cmds = root
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	node, largs, err := cmds.Lookup(strings.Join(args, " "))
	switch {
	case err == cmd.ErrNotFound:
		usage()
		os.Exit(1)
	case err == cmd.ErrAmbiguous:
		fmt.Fprintln(os.Stderr, "vmasm: ambiguous command")
		os.Exit(1)
	case err != nil:
		exitOnError(err)
	}

	sel := Selection{Command: node.(*cmd.Command), Args: largs}
	handler := sel.Command.Data.(func(Selection) error)
	if err := handler(sel); err != nil {
		exitOnError(err)
	}
}

func cmdAssemble(c Selection) error {
	if len(c.Args) < 1 {
		return fmt.Errorf("usage: assemble <input> [-o <output>]")
	}
	input := c.Args[0]
	output := ""
	for i := 1; i < len(c.Args); i++ {
		if c.Args[i] == "-o" || c.Args[i] == "--output" {
			if i+1 >= len(c.Args) {
				return fmt.Errorf("missing output path after %s", c.Args[i])
			}
			output = c.Args[i+1]
			i++
		}
	}
	if output == "" {
		output = replaceExt(input, ".vmo")
	}

	src, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	obj, err := asm.Assemble(input, string(src))
	if err != nil {
		return err
	}

	blob := obj.WriteTo()
	if err := os.WriteFile(output, blob, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d bytes)\n", output, len(blob))
	return nil
}

func cmdDump(c Selection) error {
	if len(c.Args) < 1 {
		return fmt.Errorf("usage: dump <file>")
	}
	data, err := os.ReadFile(c.Args[0])
	if err != nil {
		return err
	}
	hexdump.Dump(os.Stdout, data)
	return nil
}

func replaceExt(path, ext string) string {
	dot := strings.LastIndexByte(filepath.Base(path), '.')
	if dot < 0 {
		return path + ext
	}
	base := path[:len(path)-(len(filepath.Base(path))-dot)]
	return base + ext
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n  vmasm assemble <input> [-o <output>]\n  vmasm dump <file>\n")
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "vmasm error: %v\n", err)
	os.Exit(1)
}
