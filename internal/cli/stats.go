package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many words are new, in review and learned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			st := s.sched.Statistics()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "New:       %s\n", humanize.Comma(int64(st.New)))
			fmt.Fprintf(out, "Reviewing: %s\n", humanize.Comma(int64(st.Reviewing)))
			fmt.Fprintf(out, "Learned:   %s\n", humanize.Comma(int64(st.Learned)))
			fmt.Fprintf(out, "Total:     %s\n", humanize.Comma(int64(st.Total())))
			fmt.Fprintf(out, "Due today: %s\n", humanize.Comma(int64(s.sched.Pending())))
			return nil
		},
	}
}
