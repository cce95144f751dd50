// Package cmd implements the cppc CLI (spec.md §6), following the
// teacher's cmd/dwscript/cmd layout: a root command plus one file per
// subcommand, each registering itself from init().
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "cppc",
	Short: "A single-translation-unit C++20-subset compiler",
	Long: `cppc translates one C++20 translation unit into a relocatable
ELF-64 or PE/COFF-x64 object file.

It implements a deliberate subset of C++20: templates, constexpr,
virtual dispatch, exceptions, and the Itanium/MSVC name-mangling and
object-file conventions, without full conformance, optimization beyond
local register reuse, or linking.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
