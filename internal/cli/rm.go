package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <word>",
		Short: "Remove a word and its review progress",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			word := strings.Join(args, " ")
			c, ok := s.sched.Find(word)
			if !ok {
				return fmt.Errorf("%q is not in the collection", word)
			}
			if err := s.sched.Remove(c.Key()); err != nil {
				return err
			}
			if err := s.sched.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %q.\n", c.Key())
			return nil
		},
	}
}
