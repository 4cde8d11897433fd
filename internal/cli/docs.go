package cli

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	builtindocs "github.com/hashward/hdsl/docs"
	"github.com/hashward/hdsl/internal/ui"
)

var (
	docsRaw bool

	docsStdoutIsTerminal = func() bool { return isatty.IsTerminal(os.Stdout.Fd()) }
	docsMarkdownRender   = ui.RenderMarkdown
)

type docsTopic struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Path  string `yaml:"path" json:"path"`
}

type docsIndex struct {
	Topics []docsTopic `yaml:"topics"`
}

var docsCmd = &cobra.Command{
	Use:   "docs [topic]",
	Short: "Read the HDSL language reference",
	Long: `Read the language reference bundled into the hdsl binary.

Without a topic, lists the available topics. In a terminal the topic is
rendered; otherwise, or with --raw, the Markdown source is printed.

Examples:
  hdsl docs
  hdsl docs statements
  hdsl docs expressions --raw`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocs,
}

func init() {
	docsCmd.Flags().BoolVar(&docsRaw, "raw", false, "Print Markdown source instead of rendering it")
	rootCmd.AddCommand(docsCmd)
}

func loadDocsIndex(fsys fs.FS) (*docsIndex, error) {
	data, err := fs.ReadFile(fsys, builtindocs.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read docs index: %w", err)
	}
	var idx docsIndex
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse docs index: %w", err)
	}
	return &idx, nil
}

func (idx *docsIndex) find(id string) (docsTopic, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, t := range idx.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return docsTopic{}, false
}

func (idx *docsIndex) ids() []string {
	ids := make([]string, len(idx.Topics))
	for i, t := range idx.Topics {
		ids[i] = t.ID
	}
	return ids
}

func runDocs(cmd *cobra.Command, args []string) error {
	idx, err := loadDocsIndex(builtindocs.FS)
	if err != nil {
		return handleError(ErrInternal, err, "")
	}
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		if isStructuredOutput() {
			outputSuccess(map[string]any{"topics": idx.Topics}, &Meta{Count: len(idx.Topics)})
			return nil
		}
		fmt.Fprintln(out, ui.Header("Topics"))
		for _, t := range idx.Topics {
			fmt.Fprintf(out, "  %s %s\n", ui.Accent.Render(fmt.Sprintf("%-12s", t.ID)), t.Title)
		}
		fmt.Fprintln(out, ui.Hint("\nRead one with: hdsl docs <topic>"))
		return nil
	}

	topic, ok := idx.find(args[0])
	if !ok {
		return handleError(ErrDocNotFound, fmt.Errorf("unknown topic %q", args[0]),
			"Topics: "+strings.Join(idx.ids(), ", "))
	}
	content, err := fs.ReadFile(builtindocs.FS, topic.Path)
	if err != nil {
		return handleError(ErrInternal, err, "")
	}

	if isStructuredOutput() {
		outputSuccess(map[string]any{"topic": topic, "content": string(content)}, nil)
		return nil
	}
	if docsRaw || !docsStdoutIsTerminal() {
		fmt.Fprint(out, string(content))
		return nil
	}
	rendered, err := docsMarkdownRender(string(content), ui.NewDisplayContext().TermWidth)
	if err != nil {
		return handleError(ErrInternal, err, "Use --raw to print the Markdown source")
	}
	fmt.Fprint(out, rendered)
	return nil
}
