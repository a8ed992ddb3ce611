package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/vocabdeck/internal/sourcesync"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [source...]",
		Short: "Import word lists from directories, files or git repositories",
		Long: `Reads every configured source plus the ones given as arguments. Local
sources are directories or single files; markdown (.md), JSON and YAML word
lists are recognized. Git URLs are cloned into --repos-dir, or pulled when
already cloned.

New words are added as new cards. Words already in the collection keep their
review progress; their definitions are replaced when the list changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prune, _ := cmd.Flags().GetBool("prune")
			sources := append(append([]string{}, a.cfg.Sources...), args...)
			if len(sources) == 0 {
				return fmt.Errorf("no sources: pass a path or set sources in the config file")
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := sourcesync.Run(cmd.Context(), s.sched, sourcesync.Options{
				Sources:  sources,
				ReposDir: a.cfg.ReposDir,
				Prune:    prune,
				Logger:   a.logger,
			})
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Found %d words: %d added, %d updated, %d removed.\n",
				report.Parsed, report.Inserted, report.Updated, report.Removed)
			if len(report.Errors) > 0 {
				fmt.Fprintln(out, "\nErrors:")
				for _, e := range report.Errors {
					fmt.Fprintf(out, "- %s\n", e)
				}
			}
			return err
		},
	}
	cmd.Flags().Bool("prune", false, "Remove words that no longer appear in any source")
	cmd.Flags().StringSlice("sources", nil, "Sources to read instead of the configured ones")
	cmd.Flags().String("repos-dir", "repos", "Directory for git checkouts")
	return cmd
}
