package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sadopc/writingflow/internal/store"
)

// NewStatsCommand prints totals, streaks and the last days of writing.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show totals, streaks and recent daily word counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return NewExitError(ExitCommandError, "--days must be at least 1")
			}
			e, err := openEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			now := time.Now()
			st, err := e.store.GetStats(ctx, now)
			if err != nil {
				return WrapExitError(ExitFailure, "load stats", err)
			}

			today := now.UTC().Truncate(24 * time.Hour)
			to := today.AddDate(0, 0, 1)
			from := to.AddDate(0, 0, -days)
			daily, err := e.store.GetDailySummary(ctx, from, to)
			if err != nil {
				return WrapExitError(ExitFailure, "load daily summary", err)
			}

			writeStats(cmd.OutOrStdout(), st)
			fmt.Fprintln(cmd.OutOrStdout())
			writeDaily(cmd.OutOrStdout(), from, to, daily)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "number of recent days to list")
	return cmd
}

func writeStats(w io.Writer, st store.Stats) {
	fmt.Fprintf(w, "Sessions:        %d (%d completed, %d abandoned)\n", st.TotalSessions, st.CompletedSessions, st.CancelledSessions)
	fmt.Fprintf(w, "Words:           %d\n", st.TotalWords)
	fmt.Fprintf(w, "Time writing:    %s\n", formatClock(st.ActiveTime))
	fmt.Fprintf(w, "Average speed:   %.1f chars/min\n", st.AverageSpeed)
	fmt.Fprintf(w, "Completion rate: %.0f%%\n", st.CompletionRate*100)
	fmt.Fprintf(w, "Current streak:  %d day(s)\n", st.CurrentStreak)
	fmt.Fprintf(w, "Longest streak:  %d day(s)\n", st.LongestStreak)
}

// writeDaily lists every day in [from, to), including days without
// sessions.
func writeDaily(w io.Writer, from, to time.Time, daily []store.DailySummary) {
	byDay := make(map[string]store.DailySummary, len(daily))
	for _, d := range daily {
		byDay[d.Date] = d
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Day", "Sessions", "Words", "Time")
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		ds := byDay[key]
		t.Row(
			key,
			strconv.Itoa(ds.Sessions),
			strconv.Itoa(ds.Words),
			formatClock(time.Duration(ds.ActiveSeconds)*time.Second),
		)
	}
	fmt.Fprintln(w, t.String())
}
