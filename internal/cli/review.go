package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/conorfennell/vocabdeck/internal/scheduler"
	"github.com/conorfennell/vocabdeck/internal/sm2"
	"github.com/conorfennell/vocabdeck/internal/storage"
)

func newReviewCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review the cards due today",
		Long: `Shows each due word, then its definitions once you press Enter, and asks
for a grade:

  0  complete blackout       3  correct with serious difficulty
  1  wrong, answer familiar  4  correct after hesitation
  2  wrong, answer easy      5  perfect recall

Enter q to stop early. Progress is saved after every grade.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			return runReview(cmd, s.sched, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many cards (0 for no limit)")
	return cmd
}

var errQuit = errors.New("quit")

func runReview(cmd *cobra.Command, sched *scheduler.Scheduler, limit int) error {
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	reviewed := 0
	for limit == 0 || reviewed < limit {
		c, ok := sched.NextCard()
		if !ok {
			break
		}

		fmt.Fprintf(out, "\n%s  (%d more due)\n", c.Key(), sched.Pending())
		fmt.Fprint(out, "Press Enter to show the definition, q to quit: ")
		line, err := readLine(in)
		if err != nil {
			break
		}
		if isQuit(line) {
			break
		}
		if definition := c.Content().Render(); definition != "" {
			fmt.Fprint(out, definition)
		} else {
			fmt.Fprintln(out, "(no definition)")
		}

		q, err := askQuality(out, in)
		if err != nil {
			break
		}

		_, err = sched.SubmitReview(cmd.Context(), q)
		switch {
		case errors.Is(err, storage.ErrWrite):
			fmt.Fprintf(out, "Warning: progress could not be saved: %v\n", err)
		case err != nil:
			return err
		}
		reviewed++
		fmt.Fprintln(out, feedback(q, sched.Today(), c.State().NextReview))
	}

	st := sched.Statistics()
	fmt.Fprintf(out, "\nReviewed %s. %s\n", pluralCards(reviewed), summary(st))
	if sched.Pending() == 0 {
		fmt.Fprintln(out, "No more cards due today.")
	}
	return nil
}

func readLine(in *bufio.Scanner) (string, error) {
	if !in.Scan() {
		if err := in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(in.Text()), nil
}

func isQuit(line string) bool {
	return strings.EqualFold(line, "q") || strings.EqualFold(line, "quit")
}

// askQuality prompts until it reads a valid grade. It returns errQuit, or the
// read error, when the user stops.
func askQuality(out io.Writer, in *bufio.Scanner) (sm2.Quality, error) {
	for {
		fmt.Fprint(out, "How well did you recall it? [0-5]: ")
		line, err := readLine(in)
		if err != nil {
			return 0, err
		}
		if isQuit(line) {
			return 0, errQuit
		}
		q, err := sm2.ParseQuality(line)
		if err == nil {
			return q, nil
		}
		fmt.Fprintln(out, "Please enter a number from 0 to 5.")
	}
}

func feedback(q sm2.Quality, today, next civil.Date) string {
	if !q.Passed() {
		return "Not quite. This word will come back today."
	}
	when := humanize.RelTime(next.In(time.Local), today.In(time.Local), "ago", "from now")
	return fmt.Sprintf("Next review %s (%s).", next, when)
}

func pluralCards(n int) string {
	if n == 1 {
		return "1 card"
	}
	return humanize.Comma(int64(n)) + " cards"
}

func summary(st scheduler.Stats) string {
	return fmt.Sprintf("%s new, %s reviewing, %s learned.",
		humanize.Comma(int64(st.New)), humanize.Comma(int64(st.Reviewing)), humanize.Comma(int64(st.Learned)))
}
