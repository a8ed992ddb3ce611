package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/vocabdeck/internal/domain"
	"github.com/conorfennell/vocabdeck/internal/lookup"
	"github.com/conorfennell/vocabdeck/internal/term"
)

func newAddCmd(a *app) *cobra.Command {
	var def domain.Definition
	var example string
	cmd := &cobra.Command{
		Use:   "add <word>",
		Short: "Add a word, looking up its definitions unless one is given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := term.Normalize(strings.Join(args, " "))
			if key == "" {
				return errors.New("word cannot be empty")
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if existing, ok := s.sched.Find(key); ok {
				return fmt.Errorf("%q is already in the collection", existing.Key())
			}

			var content domain.Content
			if def.Definition != "" {
				if example != "" {
					def.Example = &example
				}
				content = domain.Content{def}
			} else {
				content, err = a.lookupWord(cmd.Context(), key)
				if err != nil {
					return err
				}
			}

			if _, err := s.sched.Insert(key, content); err != nil {
				return err
			}
			if err := s.sched.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q with %d definition(s).\n", key, len(content))
			return nil
		},
	}
	cmd.Flags().StringVar(&def.Definition, "definition", "", "Definition to store instead of looking the word up")
	cmd.Flags().StringVar(&def.PartOfSpeech, "part-of-speech", "", "Part of speech for --definition")
	cmd.Flags().StringVar(&example, "example", "", "Usage example for --definition")
	return cmd
}

func (a *app) lookupWord(ctx context.Context, key string) (domain.Content, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	content, err := lookup.NewDictionary(a.cfg.DictionaryURL).Lookup(ctx, key)
	if errors.Is(err, lookup.ErrNotFound) {
		return nil, fmt.Errorf("no definitions found for %q; add one with --definition", key)
	}
	return content, err
}
