package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/lexer"
	"github.com/go-cppc/cppc/internal/parser"
	"github.com/spf13/cobra"
)

var parseDumpAST bool

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a translation unit and display its declarations",
	Long: `Parse reads from a file (or stdin, if no file is given) and runs it
through internal/parser, printing either a one-line-per-declaration
summary of the resulting translation unit or, with --dump-ast, a
recursive dump of every declaration, statement and expression node.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().BoolVar(&parseDumpAST, "dump-ast", false, "recursively dump every node, not just top-level declarations")
}

func runParse(cmd *cobra.Command, args []string) error {
	var input, filename string
	if len(args) == 1 {
		filename = args[0]
		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("error reading file: %w", err)
		}
		input = string(data)
	} else {
		filename = "<stdin>"
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("error reading stdin: %w", err)
		}
		input = string(data)
	}

	lx := lexer.New(input)
	p := parser.New(lx, nil, nil, nil, nil, 0)
	tu, errs := p.ParseTranslationUnit()
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.WithSource(input).Format())
		}
		return fmt.Errorf("parsing failed with %d error(s)", len(errs))
	}

	fmt.Printf("translation unit %q: %d top-level declaration(s)\n", filename, len(tu.Decls))
	for _, d := range tu.Decls {
		if parseDumpAST {
			dumpNode(d, 1)
		} else {
			fmt.Printf("  %s\n", describeNode(d))
		}
	}
	return nil
}

// describeNode renders a single node's type and String() without
// recursing into its children.
func describeNode(n ast.Node) string {
	return fmt.Sprintf("%T %s @%d:%d", n, n.String(), n.Pos().Line, n.Pos().Column)
}

// dumpNode recursively prints a declaration and its statement/expression
// children. The AST has no generated visitor (spec.md's subset is small
// enough that this hand-written walk over the few container shapes
// suffices), so this only descends into the container fields that
// actually hold child nodes for the declaration/statement kinds that
// exist today; anything else prints as a single line.
func dumpNode(n ast.Node, indent int) {
	pad := ""
	for i := 0; i < indent; i++ {
		pad += "  "
	}
	fmt.Printf("%s%s\n", pad, describeNode(n))

	switch d := n.(type) {
	case *ast.NamespaceDecl:
		for _, child := range d.Decls {
			dumpNode(child, indent+1)
		}
	case *ast.StructDecl:
		for _, child := range d.Members {
			dumpNode(child, indent+1)
		}
	case *ast.FunctionDecl:
		if d.Body != nil {
			dumpNode(d.Body, indent+1)
		}
	case *ast.CompoundStmt:
		for _, stmt := range d.Stmts {
			dumpNode(stmt, indent+1)
		}
	}
}
