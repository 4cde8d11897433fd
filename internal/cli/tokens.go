package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hashward/hdsl/internal/diag"
	"github.com/hashward/hdsl/internal/lexer"
	"github.com/hashward/hdsl/internal/ui"
)

var (
	tokensScript     string
	tokensWhitespace bool
)

var tokensCmd = &cobra.Command{
	Use:   "tokens [file]",
	Short: "Print the tokens of an HDSL script",
	Long: `Tokenize a script without running it and print every token with its
position, type and source text. Column names and aliases resolve against
the database's column overrides; the allow list applies as in exec.

Examples:
  hdsl tokens -e "find where size > 10;"
  hdsl tokens --whitespace script.hdsl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokens,
}

func init() {
	tokensCmd.Flags().StringVarP(&tokensScript, "eval", "e", "", "Script text to tokenize")
	tokensCmd.Flags().BoolVar(&tokensWhitespace, "whitespace", false, "Include whitespace tokens")
	rootCmd.AddCommand(tokensCmd)
}

type tokenView struct {
	Row    int    `json:"row" yaml:"row"`
	Col    int    `json:"col" yaml:"col"`
	Type   string `json:"type" yaml:"type"`
	Family string `json:"family" yaml:"family"`
	Text   string `json:"text" yaml:"text"`
}

type tokensData struct {
	Tokens      []tokenView       `json:"tokens" yaml:"tokens"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

func runTokens(cmd *cobra.Command, args []string) error {
	source, err := readScript(cmd, tokensScript, args)
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	cat, err := eng.store.Catalog(cmd.Context())
	if err != nil {
		return handleError(ErrDatabaseError, err, "")
	}
	allow, err := getConfig().AllowList()
	if err != nil {
		return handleError(ErrConfigInvalid, err, "")
	}
	tokens, diags := lexer.Tokenize(source, lexer.Options{Catalog: cat, Allow: allow, KeepWhitespace: tokensWhitespace})

	data := tokensData{Tokens: make([]tokenView, len(tokens)), Diagnostics: diags}
	for i, tok := range tokens {
		data.Tokens[i] = tokenView{Row: tok.Row, Col: tok.Col, Type: tok.Type.String(), Family: tok.Family().String(), Text: tok.Text}
	}

	if isStructuredOutput() {
		if len(diags) > 0 {
			outputError(ErrScriptFailed, diags[0].String(), data, "")
			return errReported
		}
		outputSuccess(data, &Meta{Count: len(tokens)})
		return nil
	}

	printTokens(cmd.OutOrStdout(), data.Tokens)
	if len(diags) > 0 {
		fmt.Fprint(cmd.ErrOrStderr(), ui.RenderDiagnostics(source, diags))
		return errReported
	}
	return nil
}

var familyColors = map[string]*color.Color{
	lexer.FamilyLiteral.String():        color.New(color.FgGreen),
	lexer.FamilyKeyword.String():        color.New(color.FgMagenta, color.Bold),
	lexer.FamilyFieldReference.String(): color.New(color.FgCyan),
	lexer.FamilyAttribute.String():      color.New(color.FgYellow),
	lexer.FamilyRelative.String():       color.New(color.FgBlue),
	lexer.FamilyLogical.String():        color.New(color.FgBlue, color.Bold),
	lexer.FamilyComment.String():        color.New(color.FgHiBlack),
	lexer.FamilyMetadata.String():       color.New(color.FgHiBlack),
}

func printTokens(w io.Writer, tokens []tokenView) {
	for _, tok := range tokens {
		pos := fmt.Sprintf("%d:%d", tok.Row, tok.Col)
		kind := fmt.Sprintf("%-14s", tok.Type)
		if c, ok := familyColors[tok.Family]; ok {
			kind = c.Sprint(kind)
		}
		fmt.Fprintf(w, "%7s  %s %q\n", pos, kind, tok.Text)
	}
}
