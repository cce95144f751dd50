// Command cppc is a single-translation-unit C++20-subset compiler
// (spec.md §6). See cmd/cppc/cmd for the subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/go-cppc/cppc/cmd/cppc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
