package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conorfennell/vocabdeck/internal/term"
)

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <word>",
		Short: "Show every recorded review of a word (sqlite backend)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if s.db == nil {
				return errors.New("review history is only kept by the sqlite backend (--backend sqlite)")
			}

			key := term.Normalize(args[0])
			if c, ok := s.sched.Find(key); ok {
				key = c.Key()
			}
			logs, err := s.db.ReviewsForKey(cmd.Context(), key)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(logs) == 0 {
				fmt.Fprintf(out, "No reviews recorded for %q.\n", key)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tQUALITY\tINTERVAL\tEASE")
			for _, l := range logs {
				fmt.Fprintf(tw, "%s\t%d\t%dd\t%.2f\n", l.ReviewedOn, l.Quality, l.Interval, l.EaseFactor)
			}
			return tw.Flush()
		},
	}
}
