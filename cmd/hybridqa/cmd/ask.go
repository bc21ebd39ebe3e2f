package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/batchio"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/clip"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/service/workflow"
)

var (
	askFormatHint string
	askID         string
	askTrace      bool
	askCopy       string
	askPretty     bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question",
	Long:  "Answer one question and print the result as JSON.",
	Example: `  hybridqa ask "How many orders were placed in 2024?" --format-hint int
  hybridqa ask "What is our returns policy?" --trace`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askFormatHint, "format-hint", "", "expected answer type (int, float, str, list[...], {...})")
	askCmd.Flags().StringVar(&askID, "id", "", "question id (default: random)")
	askCmd.Flags().BoolVar(&askTrace, "trace", false, "include the executed step trace")
	askCmd.Flags().BoolVar(&askPretty, "pretty", false, "render the result as formatted text instead of JSON")
	askCmd.Flags().StringVar(&askCopy, "copy", "", "copy the answer or sql to the clipboard (answer|sql)")
	rootCmd.AddCommand(askCmd)
}

type askOutput struct {
	Result core.Result    `json:"result"`
	Trace  workflow.Trace `json:"trace"`
}

func runAsk(c *cobra.Command, args []string) error {
	q := core.Question{
		ID:         askID,
		Question:   strings.Join(args, " "),
		FormatHint: askFormatHint,
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if err := batchio.CheckQuestion(&q); err != nil {
		return err
	}
	if askCopy != "" && askCopy != "answer" && askCopy != "sql" {
		return core.ErrValidation(core.CodeInvalidInput, fmt.Sprintf("--copy must be answer or sql, got %q", askCopy))
	}

	ctx, cancel := signalContext(c.Context())
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.Background()) }()

	res, tr := app.Runner.AnswerWithTrace(ctx, q)
	if res.Citations == nil {
		res.Citations = []string{}
	}
	if askCopy != "" {
		copyResult(c, clip.New(), res)
	}

	if askPretty {
		return renderMarkdown(c.OutOrStdout(), resultMarkdown(res))
	}

	enc := json.NewEncoder(c.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if askTrace {
		if tr == nil {
			tr = workflow.Trace{}
		}
		return enc.Encode(askOutput{Result: res, Trace: tr})
	}
	return enc.Encode(res)
}

func copyResult(c *cobra.Command, copier *clip.Copier, res core.Result) {
	text := res.FinalAnswer.String()
	if askCopy == "sql" {
		text = res.SQL
	}
	out, err := copier.Copy(text)
	switch {
	case err != nil:
		fmt.Fprintf(c.ErrOrStderr(), "Could not copy %s: %v\n", askCopy, err)
	case out.Method == clip.MethodFile:
		fmt.Fprintf(c.ErrOrStderr(), "Clipboard unavailable, %s written to %s\n", askCopy, out.FilePath)
	default:
		fmt.Fprintf(c.ErrOrStderr(), "Copied %s to clipboard (%s)\n", askCopy, out.Method)
	}
}
