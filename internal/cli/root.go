// Package cli implements the vocabdeck commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conorfennell/vocabdeck/internal/config"
	"github.com/conorfennell/vocabdeck/internal/logging"
	"github.com/conorfennell/vocabdeck/internal/scheduler"
	"github.com/conorfennell/vocabdeck/internal/storage"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	// schedulerOpts are appended to the options built from the config.
	schedulerOpts []scheduler.Option
}

// NewRootCmd returns the top-level command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	a.logger = zap.NewNop()
	root := &cobra.Command{
		Use:   "vocabdeck",
		Short: "Spaced-repetition vocabulary trainer",
		Long: `vocabdeck keeps a collection of words and schedules their reviews with
the SM-2 algorithm. Each review asks how well you recalled a word (0-5) and
moves its next review date accordingly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newReviewCmd(a),
		newStatsCmd(a),
		newListCmd(a),
		newAddCmd(a),
		newRmCmd(a),
		newImportCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
	)
	return root
}

// session is an open collection plus the backend holding it.
type session struct {
	sched *scheduler.Scheduler
	db    *storage.DB // nil with the json backend
}

func (s *session) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// openSession opens the configured backend and loads the collection.
func (a *app) openSession(ctx context.Context) (*session, error) {
	opts := []scheduler.Option{scheduler.WithLogger(a.logger)}
	if a.cfg.Seed != "" {
		opts = append(opts, scheduler.WithSeed(storage.NewSeedFile(a.cfg.Seed)))
	}

	s := &session{}
	var store storage.Store
	switch a.cfg.Backend {
	case "sqlite":
		db, err := storage.Open(a.cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.db = db
		store = db
		opts = append(opts, scheduler.WithReviewRecorder(db))
	default:
		store = storage.NewJSONFile(a.cfg.Data)
	}

	s.sched = scheduler.New(store, append(opts, a.schedulerOpts...)...)
	if err := s.sched.Load(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	return s, nil
}
