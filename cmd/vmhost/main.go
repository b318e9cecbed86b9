// Command vmhost loads a .vmc executable into a flat memory image and
// reports its entry point. It optionally accepts interactive inspection
// commands afterward; it does not execute the loaded program.
package main

import (
	"fmt"
	"os"

	"github.com/vmtoolchain/vmasm/vmhost"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s FILE\n", os.Args[0])
		os.Exit(1)
	}
	path := os.Args[1]

	raw, err := os.ReadFile(path)
	if err != nil {
		exitOnError(err)
	}

	h := vmhost.New()
	if err := h.Load(path, raw); err != nil {
		exitOnError(err)
	}
	fmt.Printf("Loaded %s. Entry=%08X\n", path, h.Entry())

	h.RunCommands(os.Stdin, os.Stdout, isTerminal())
}

func isTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "vmhost error: %v\n", err)
	os.Exit(1)
}
