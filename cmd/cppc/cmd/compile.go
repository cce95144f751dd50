package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-cppc/cppc/internal/backend"
	"github.com/go-cppc/cppc/internal/config"
	"github.com/go-cppc/cppc/internal/driver"
	"github.com/spf13/cobra"
)

var (
	outputFile       string
	targetFlag       string
	gccCompat        bool
	clangCompat      bool
	noAccessControl  bool
	eagerTemplates   bool
	logLevelFlags    []string
	disassembleFlag  bool
	dumpSectionsFlag bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a C++ translation unit to a relocatable object file",
	Long: `Compile translates one C++20 translation unit into a relocatable
ELF-64 or PE/COFF-x64 object file (spec.md §6).

Examples:
  # Compile to <input>.o
  cppc compile main.cpp

  # Compile for the PE/COFF target with GCC-compatible (Itanium) mangling
  cppc compile main.cpp --target=coff -fgcc-compat -o main.obj

  # Show the disassembled machine code after compiling
  cppc compile main.cpp --disassemble`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: <input>.o)")
	compileCmd.Flags().StringVar(&targetFlag, "target", "elf", "object format: elf or coff")
	compileCmd.Flags().BoolVar(&gccCompat, "fgcc-compat", false, "use GCC-compatible (Itanium) name mangling")
	compileCmd.Flags().BoolVar(&clangCompat, "fclang-compat", false, "use Clang-compatible (Itanium) name mangling")
	compileCmd.Flags().BoolVar(&noAccessControl, "fno-access-control", false, "disable private/protected access checking")
	compileCmd.Flags().BoolVar(&eagerTemplates, "eager-template-instantiation", false, "instantiate every template at definition instead of on first use")
	compileCmd.Flags().StringArrayVar(&logLevelFlags, "log-level", nil, "category:level diagnostic verbosity override, may be repeated")
	compileCmd.Flags().BoolVar(&disassembleFlag, "disassemble", false, "print disassembled machine code after compiling")
	compileCmd.Flags().BoolVar(&dumpSectionsFlag, "dump-sections", false, "print the object's section table after compiling")
}

func buildOptions(inputPath string) (config.Options, error) {
	opts := config.Default()
	opts.InputPath = inputPath

	target, err := config.ParseTarget(targetFlag)
	if err != nil {
		return opts, err
	}
	opts.Target = target

	switch {
	case gccCompat:
		opts.Compat = config.CompatGCC
	case clangCompat:
		opts.Compat = config.CompatClang
	default:
		opts.Compat = config.CompatMSVC
	}

	opts.NoAccessControl = noAccessControl
	opts.EagerTemplateInstantiation = eagerTemplates
	opts.Disassemble = disassembleFlag
	opts.DumpSections = dumpSectionsFlag

	for _, raw := range logLevelFlags {
		if err := opts.ParseLogLevelFlag(raw); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	filename := args[0]
	opts, err := buildOptions(filename)
	if err != nil {
		return err
	}
	if outputFile != "" {
		opts.OutputPath = outputFile
	} else {
		opts.OutputPath = defaultObjectName(filename, opts.Target)
	}

	d := driver.New(opts)
	src, err := os.ReadFile(filename)
	if err != nil {
		os.Exit(int(driver.ExitIO))
	}

	res, errs := d.Compile(string(src), filename)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Format())
		}
		os.Exit(int(driver.ExitCompile))
	}

	if err := os.WriteFile(opts.OutputPath, res.Object, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot write %s: %v\n", opts.OutputPath, err)
		os.Exit(int(driver.ExitIO))
	}

	if disassembleFlag {
		for _, fn := range res.Compiled.Functions {
			fmt.Printf("\n== %s ==\n", fn.Name)
			for _, line := range backend.Disassemble(fn.Code) {
				fmt.Println(line)
			}
		}
	}

	if dumpSectionsFlag {
		fmt.Println("\nSections:")
		for _, s := range res.Sections {
			fmt.Printf("  %-20s size=%-8d align=%d\n", s.Name, s.Size, s.Align)
		}
	}

	fmt.Printf("Compiled %s -> %s\n", filename, opts.OutputPath)
	return nil
}

func defaultObjectName(filename string, target config.Target) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	if target == config.TargetCOFF {
		return base + ".obj"
	}
	return base + ".o"
}
