package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sadopc/writingflow/internal/session"
	"github.com/sadopc/writingflow/internal/store"
)

const dateLayout = "2006-01-02"

type historyOptions struct {
	from  string
	to    string
	state string
	limit int
}

// NewHistoryCommand lists past sessions.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List writing sessions, newest first",
		Long: `List writing sessions, newest first.

--from and --to take UTC dates (YYYY-MM-DD); both ends are inclusive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.filter()
			if err != nil {
				return err
			}
			e, err := openEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			sessions, err := e.store.List(cmd.Context(), filter)
			if err != nil {
				return WrapExitError(ExitFailure, "list sessions", err)
			}
			writeSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.state, "state", "", "only sessions in this state (active|paused|completed|cancelled)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "maximum number of sessions (0 for all)")

	return cmd
}

func (o *historyOptions) filter() (store.SessionFilter, error) {
	f := store.SessionFilter{Limit: o.limit}
	if o.limit < 0 {
		return f, NewExitError(ExitCommandError, "--limit must not be negative")
	}
	if o.from != "" {
		t, err := time.Parse(dateLayout, o.from)
		if err != nil {
			return f, WrapExitError(ExitCommandError, "invalid --from", err)
		}
		f.From = &t
	}
	if o.to != "" {
		t, err := time.Parse(dateLayout, o.to)
		if err != nil {
			return f, WrapExitError(ExitCommandError, "invalid --to", err)
		}
		end := t.AddDate(0, 0, 1)
		f.To = &end
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return f, NewExitError(ExitCommandError, "--from is after --to")
	}
	if o.state != "" {
		st, err := session.ParseState(o.state)
		if err != nil {
			return f, WrapExitError(ExitCommandError, "invalid --state", err)
		}
		f.State = &st
	}
	return f, nil
}

// NewSearchCommand finds sessions by title or text.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find sessions whose title or text contains query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			sessions, err := e.store.Search(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "search sessions", err)
			}
			writeSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
}

func writeSessions(w io.Writer, sessions []session.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Started", "Title", "State", "Words", "Duration", "Mood")
	for _, s := range sessions {
		mood := ""
		if s.Summary != nil {
			mood = string(s.Summary.Mood)
		}
		t.Row(
			shortID(s.ID),
			s.StartTime.UTC().Format("2006-01-02 15:04"),
			truncate(s.Title, 40),
			s.State.String(),
			strconv.Itoa(s.WordCount),
			formatClock(s.Duration),
			mood,
		)
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d session(s)\n", len(sessions))
}

// shortID keeps the random tail of a UUIDv7; its head is a timestamp and
// repeats for sessions started close together.
func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatClock(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
