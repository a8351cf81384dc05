package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/writingflow/internal/analysis"
	"github.com/sadopc/writingflow/internal/session"
)

// NewAnalyzeCommand runs the configured analyzer on a file, stdin or a
// stored session.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		asJSON    bool
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Analyze a text, or re-analyze a finished session",
		Long: `Analyze a text with the configured analyzer and print mood, themes,
style, insights and suggestions. Reads stdin when the argument is "-" or
missing.

With --session the stored text of a finished session is analyzed again and
the new result replaces the saved one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID != "" && len(args) > 0 {
				return NewExitError(ExitCommandError, "--session takes no file argument")
			}

			var text string
			if sessionID == "" {
				var err error
				if text, err = readInput(cmd.InOrStdin(), args); err != nil {
					return err
				}
			}

			e, err := openEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			var res analysis.Result
			if sessionID != "" {
				res, err = reanalyze(cmd.Context(), e, sessionID, cmd.ErrOrStderr())
			} else {
				res, err = analyzeText(cmd.Context(), e, text)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			writeAnalysis(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().StringVar(&sessionID, "session", "", "re-analyze this finished session and save the result")
	return cmd
}

func analyzeText(ctx context.Context, e *env, text string) (analysis.Result, error) {
	start := time.Now()
	res, err := e.analyzer().Analyze(ctx, text)
	if errors.Is(err, analysis.ErrTextTooShort) {
		return res, WrapExitError(ExitCommandError, "nothing to analyze", err)
	}
	if err != nil {
		return res, WrapExitError(ExitFailure, "analyze", err)
	}
	e.log.Debug().Str("source", res.Source).Dur("took", time.Since(start)).Msg("analysis done")
	return res, nil
}

// reanalyze reports the saved session on notice so stdout stays clean for
// --json.
func reanalyze(ctx context.Context, e *env, ref string, notice io.Writer) (analysis.Result, error) {
	ws, err := resolveSession(ctx, e.store, ref)
	if err != nil {
		return analysis.Result{}, err
	}

	engine := e.newEngine(ctx)
	defer engine.Close()

	done, err := engine.Analyze(ctx, ws.ID)
	switch {
	case errors.Is(err, session.ErrSessionNotFinished):
		return analysis.Result{}, NewExitError(ExitCommandError, "session is still running; finish it before analyzing")
	case errors.Is(err, analysis.ErrTextTooShort):
		return analysis.Result{}, WrapExitError(ExitCommandError, "nothing to analyze", err)
	case err != nil:
		return analysis.Result{}, WrapExitError(ExitFailure, "analyze session", err)
	case done.Summary == nil:
		return analysis.Result{}, NewExitError(ExitFailure, "analysis produced no result")
	}
	fmt.Fprintf(notice, "Saved analysis for %s (%s)\n", shortID(ws.ID), ws.Title)
	return *done.Summary, nil
}

func readInput(stdin io.Reader, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", WrapExitError(ExitCommandError, "read input", err)
	}
	return string(data), nil
}

func writeAnalysis(w io.Writer, res analysis.Result) {
	fmt.Fprintf(w, "Mood:         %s\n", res.Mood)
	fmt.Fprintf(w, "Themes:       %s\n", strings.Join(res.Themes, ", "))
	fmt.Fprintf(w, "Style:        %s\n", strings.Join(res.Style, ", "))
	fmt.Fprintf(w, "Words:        %d\n", res.WordCount)
	fmt.Fprintf(w, "Readability:  %.0f/100\n", res.ReadabilityScore)
	fmt.Fprintf(w, "Avg sentence: %.1f words\n", res.AverageSentenceLength)
	fmt.Fprintf(w, "Analyzer:     %s\n", res.Source)

	if len(res.Insights) > 0 {
		fmt.Fprintln(w, "\nInsights:")
		for _, in := range res.Insights {
			fmt.Fprintf(w, "  - %s (%s, %.0f%%): %s\n", in.Title, in.Kind, in.Confidence*100, in.Description)
		}
	}
	if len(res.Suggestions) > 0 {
		fmt.Fprintln(w, "\nSuggestions:")
		for _, s := range res.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}
