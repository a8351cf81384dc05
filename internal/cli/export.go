package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/writingflow/internal/export"
	"github.com/sadopc/writingflow/internal/store"
)

type exportOptions struct {
	format  string
	out     string
	session string
}

// NewExportCommand writes sessions to CSV or JSON, or one session to
// Markdown.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export sessions to CSV, JSON or Markdown",
		Long: `Export every session to CSV or JSON, or a single session to Markdown.

Markdown needs --session. Without --out the file is written to the
current directory as writingflow-export-DATE.EXT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "csv", "output format (csv|json|markdown)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file")
	cmd.Flags().StringVar(&opts.session, "session", "", "session id for markdown export")

	return cmd
}

func runExport(cmd *cobra.Command, rootOpts *RootOptions, opts *exportOptions) error {
	ext, ok := map[string]string{"csv": "csv", "json": "json", "markdown": "md", "md": "md"}[opts.format]
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be csv, json or markdown", opts.format))
	}
	if ext == "md" && opts.session == "" {
		return NewExitError(ExitCommandError, "markdown export needs --session")
	}

	path := opts.out
	if path == "" {
		path = fmt.Sprintf("writingflow-export-%s.%s", time.Now().Format(dateLayout), ext)
	}

	e, err := openEnv(rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := cmd.Context()

	if ext == "md" {
		ws, err := resolveSession(ctx, e.store, opts.session)
		if err != nil {
			return err
		}
		activity, err := e.store.ListActivity(ctx, ws.ID)
		if err != nil {
			return WrapExitError(ExitFailure, "load activity", err)
		}
		if err := os.WriteFile(path, []byte(export.ToMarkdown(*ws, activity...)), 0o644); err != nil {
			return WrapExitError(ExitFailure, "write markdown", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", shortID(ws.ID), path)
		return nil
	}

	sessions, err := e.store.List(ctx, store.SessionFilter{})
	if err != nil {
		return WrapExitError(ExitFailure, "list sessions", err)
	}
	if ext == "csv" {
		err = export.ToCSV(sessions, path)
	} else {
		err = export.ToJSON(sessions, path)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "export", err)
	}

	e.log.Debug().Str("path", path).Int("sessions", len(sessions)).Msg("exported")
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d session(s) to %s\n", len(sessions), path)
	return nil
}
