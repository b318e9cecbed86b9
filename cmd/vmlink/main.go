// Command vmlink combines one or more relocatable .vmo object files into
// a single .vmc executable, resolving symbol references and relocations.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/beevik/cmd"
	"github.com/vmtoolchain/vmasm/linker"
	"github.com/vmtoolchain/vmasm/objfile"
)

var cmds *cmd.Tree

// Selection holds the resolved command and its remaining arguments, mirroring
// the (Node, args, err) shape returned by cmd.Tree.Lookup.
type Selection struct {
	Command *cmd.Command
	Args    []string
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "vmlink"})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "link",
		Brief:       "Link object files into an executable",
		Description: "Concatenate text and data sections across the given object files, resolve the global symbol table, apply relocations, and write the result as a .vmc executable.",
		Usage:       "link -o <output> <input...>",
		Data:        cmdLink,
	})
	cmds = root
}

func main() {
	args := append([]string{"link"}, os.Args[1:]...)

	node, largs, err := cmds.Lookup(strings.Join(args, " "))
	switch {
	case err == cmd.ErrNotFound:
		usage()
		os.Exit(1)
	case err == cmd.ErrAmbiguous:
		fmt.Fprintln(os.Stderr, "vmlink: ambiguous command")
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

func cmdLink(c Selection) error {
	output := ""
	var inputs []string
	for i := 0; i < len(c.Args); i++ {
		switch c.Args[i] {
		case "-o", "--output":
			if i+1 >= len(c.Args) {
				return fmt.Errorf("missing output path after %s", c.Args[i])
			}
			output = c.Args[i+1]
			i++
		default:
			inputs = append(inputs, c.Args[i])
		}
	}
	if output == "" {
		return fmt.Errorf("usage: vmlink -o <output> <input...>")
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no input object files given")
	}

	objs := make([]*objfile.Object, len(inputs))
	for i, path := range inputs {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		obj, err := objfile.ReadObject(path, raw)
		if err != nil {
			return err
		}
		objs[i] = obj
	}

	exe, err := linker.Link(inputs, objs)
	if err != nil {
		return err
	}

	blob := exe.WriteTo()
	if err := os.WriteFile(output, blob, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d bytes, entry=%08X)\n", output, len(blob), exe.EntryPoint)
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: vmlink -o <output> <input...>\n")
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "vmlink error: %v\n", err)
	os.Exit(1)
}
