package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/sadopc/writingflow/internal/export"
	"github.com/sadopc/writingflow/internal/session"
	"github.com/sadopc/writingflow/internal/store"
)

// resolveSession finds a session by full ID, by the short ID history
// prints, or by any unambiguous ID prefix.
func resolveSession(ctx context.Context, s *store.Store, ref string) (*session.Session, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, NewExitError(ExitCommandError, "session id is required")
	}

	found, err := s.Get(ctx, ref)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "load session", err)
	}
	if found != nil {
		return found, nil
	}

	all, err := s.List(ctx, store.SessionFilter{})
	if err != nil {
		return nil, WrapExitError(ExitFailure, "list sessions", err)
	}
	var matches []session.Session
	for _, ws := range all {
		if strings.HasPrefix(ws.ID, ref) || strings.HasSuffix(ws.ID, ref) {
			matches = append(matches, ws)
		}
	}
	switch len(matches) {
	case 0:
		return nil, WrapExitError(ExitCommandError, ref, session.ErrSessionNotFound)
	case 1:
		return &matches[0], nil
	}
	return nil, NewExitError(ExitCommandError, fmt.Sprintf("%q matches %d sessions", ref, len(matches)))
}

// NewShowCommand prints one session with its analysis and activity
// timeline.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	var raw bool
	var width int

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a session with its analysis and activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			ws, err := resolveSession(cmd.Context(), e.store, args[0])
			if err != nil {
				return err
			}
			activity, err := e.store.ListActivity(cmd.Context(), ws.ID)
			if err != nil {
				return WrapExitError(ExitFailure, "load activity", err)
			}

			md := export.ToMarkdown(*ws, activity...)
			if raw {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return WrapExitError(ExitFailure, "create renderer", err)
			}
			out, err := r.Render(md)
			if err != nil {
				return WrapExitError(ExitFailure, "render markdown", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print Markdown without rendering")
	cmd.Flags().IntVar(&width, "width", 80, "wrap rendered output at this width")

	return cmd
}

// NewDeleteCommand removes a finished session.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a finished session, its analysis and activity log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			ws, err := resolveSession(cmd.Context(), e.store, args[0])
			if err != nil {
				return err
			}
			if ws.State.Live() {
				return NewExitError(ExitCommandError, "session is still running; finish or abandon it first")
			}
			if err := e.store.Delete(cmd.Context(), ws.ID); err != nil {
				return WrapExitError(ExitFailure, "delete session", err)
			}
			e.log.Info().Str("session_id", ws.ID).Msg("session deleted")
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", shortID(ws.ID), ws.Title)
			return nil
		},
	}
}
