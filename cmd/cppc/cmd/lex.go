package cmd

import (
	"fmt"
	"os"

	"github.com/go-cppc/cppc/internal/lexer"
	"github.com/go-cppc/cppc/internal/token"
	"github.com/spf13/cobra"
)

var (
	lexShowPos bool
	lexEval    string
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a C++ translation unit",
	Long: `Tokenize a C++ source file (or an inline snippet via -e) and print
the resulting token stream, one token per line.

This is a debugging aid for internal/lexer and internal/token, not the
production preprocessor (spec.md §1 places the character-level lexer and
preprocessor out of scope; this boundary lexer exists only so the rest
of the pipeline has real tokens to run against).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)
	lexCmd.Flags().StringVarP(&lexEval, "eval", "e", "", "tokenize inline source instead of reading from a file")
	lexCmd.Flags().BoolVar(&lexShowPos, "show-pos", false, "show token positions (line:column)")
}

func runLex(cmd *cobra.Command, args []string) error {
	var input, filename string
	switch {
	case lexEval != "":
		input, filename = lexEval, "<eval>"
	case len(args) == 1:
		filename = args[0]
		content, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", filename, err)
		}
		input = string(content)
	default:
		return fmt.Errorf("either provide a file path or use -e for inline source")
	}

	l := lexer.New(input)
	count := 0
	for {
		tok := l.Next()
		count++
		printTok(tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	fmt.Fprintf(os.Stderr, "%d token(s)\n", count)
	return nil
}

func printTok(tok token.Token) {
	if lexShowPos {
		fmt.Printf("%-4d %q @%d:%d\n", tok.Kind, tok.Lexeme, tok.Pos.Line, tok.Pos.Column)
		return
	}
	fmt.Printf("%-4d %q\n", tok.Kind, tok.Lexeme)
}
