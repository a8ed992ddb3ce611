package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conorfennell/vocabdeck/internal/term"
)

func newListCmd(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the words in the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			today := s.sched.Today()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WORD\tNEXT REVIEW\tINTERVAL\tEASE")
			for _, key := range s.sched.Keys() {
				if !term.Contains(key, filter) {
					continue
				}
				c, _ := s.sched.Card(key)
				st := c.State()
				next := st.NextReview.String()
				if c.IsDue(today) {
					next = "due"
				}
				fmt.Fprintf(tw, "%s\t%s\t%dd\t%.2f\n", key, next, st.Interval, st.EaseFactor)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Only list words containing this text (case-insensitive)")
	return cmd
}
