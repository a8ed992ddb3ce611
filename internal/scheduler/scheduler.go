// Package scheduler owns a card collection and runs review sessions over it:
// it selects due cards in random order, applies review outcomes and keeps
// the collection persisted.
//
// A Scheduler is not safe for concurrent use. Callers with more than one
// goroutine must serialize access.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/conorfennell/vocabdeck/internal/domain"
	"github.com/conorfennell/vocabdeck/internal/sm2"
	"github.com/conorfennell/vocabdeck/internal/storage"
	"github.com/conorfennell/vocabdeck/internal/term"
)

var (
	ErrNoCardCheckedOut = errors.New("scheduler: no card checked out")
	ErrDuplicateKey     = errors.New("scheduler: word already in collection")
	ErrEmptyKey         = errors.New("scheduler: empty word")
	ErrCardNotFound     = errors.New("scheduler: word not in collection")
	// ErrInvalidQuality is returned by SubmitReview for a grade outside [0,5].
	ErrInvalidQuality = sm2.ErrInvalidQuality
)

// ReviewRecorder receives every applied review.
type ReviewRecorder interface {
	RecordReview(ctx context.Context, log domain.ReviewLog) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSeed sets the word list used when the store has no collection yet.
func WithSeed(seed storage.SeedSource) Option {
	return func(s *Scheduler) { s.seed = seed }
}

// WithRand sets the source used to shuffle the due queue.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// WithClock sets the function that supplies the current time.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithReviewRecorder logs every applied review to r.
func WithReviewRecorder(r ReviewRecorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// Scheduler holds the collection and the state of the current session.
type Scheduler struct {
	store    storage.Store
	seed     storage.SeedSource
	recorder ReviewRecorder
	rng      *rand.Rand
	now      func() time.Time
	logger   *zap.Logger

	cards   map[string]*sm2.Card
	folded  map[string][]string // case-folded key -> every key folding to it
	queue   []*sm2.Card
	current *sm2.Card
}

// New creates a Scheduler with an empty collection. Call Load to read the
// persisted collection.
func New(store storage.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:  store,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		logger: zap.NewNop(),
		cards:  make(map[string]*sm2.Card),
		folded: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the scheduler's current calendar date.
func (s *Scheduler) Today() civil.Date {
	return civil.DateOf(s.now())
}

// Load replaces the collection with the persisted one. When nothing has been
// persisted it falls back to the seed word list, then to an empty
// collection. On error the collection is left as it was.
func (s *Scheduler) Load(ctx context.Context) error {
	today := s.Today()

	cards, err := s.store.Load(ctx)
	switch {
	case err == nil:
		s.logger.Info("Loaded collection", zap.Int("cards", len(cards)))
	case errors.Is(err, storage.ErrNotExist):
		cards, err = s.loadSeed(ctx, today)
		if err != nil {
			s.logger.Error("Failed to load seed word list", zap.Error(err))
			return err
		}
	default:
		s.logger.Error("Failed to load collection", zap.Error(err))
		return err
	}

	s.cards = cards
	s.folded = make(map[string][]string, len(cards))
	for key := range cards {
		s.index(key)
	}
	s.current = nil
	s.RecomputeDueQueue(today)
	return nil
}

func (s *Scheduler) loadSeed(ctx context.Context, today civil.Date) (map[string]*sm2.Card, error) {
	cards := make(map[string]*sm2.Card)
	if s.seed == nil {
		s.logger.Info("No collection found, starting empty")
		return cards, nil
	}

	words, err := s.seed.LoadSeed(ctx)
	if errors.Is(err, storage.ErrNotExist) {
		s.logger.Info("No collection or seed word list found, starting empty")
		return cards, nil
	}
	if err != nil {
		return nil, err
	}
	for word, content := range words {
		key := term.Normalize(word)
		if key == "" {
			return nil, fmt.Errorf("%w: seed contains an empty word", storage.ErrRead)
		}
		if _, dup := cards[key]; dup {
			return nil, fmt.Errorf("%w: seed lists %q more than once", storage.ErrRead, key)
		}
		cards[key] = sm2.NewCard(key, content, today)
	}
	s.logger.Info("Seeded collection", zap.Int("cards", len(cards)))
	return cards, nil
}

// Save persists the whole collection.
func (s *Scheduler) Save(ctx context.Context) error {
	if err := s.store.Save(ctx, s.cards); err != nil {
		s.logger.Error("Failed to save collection", zap.Error(err))
		return err
	}
	s.logger.Debug("Saved collection", zap.Int("cards", len(s.cards)))
	return nil
}

// RecomputeDueQueue rebuilds the queue from every card due on today, in
// random order.
func (s *Scheduler) RecomputeDueQueue(today civil.Date) {
	queue := make([]*sm2.Card, 0, len(s.cards))
	for _, c := range s.cards {
		if c.IsDue(today) {
			queue = append(queue, c)
		}
	}
	s.rng.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})
	s.queue = queue
}

// Pending returns how many due cards remain in the current queue.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// NextCard checks out the next due card. It returns false when no card is
// due, which ends the session. Any previous checkout is dropped.
func (s *Scheduler) NextCard() (*sm2.Card, bool) {
	if len(s.queue) == 0 {
		s.RecomputeDueQueue(s.Today())
	}
	if len(s.queue) == 0 {
		s.current = nil
		return nil, false
	}

	s.current = s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return s.current, true
}

// Current returns the checked-out card, if any.
func (s *Scheduler) Current() (*sm2.Card, bool) {
	return s.current, s.current != nil
}

// SubmitReview applies quality to the checked-out card, persists the
// collection and releases the checkout. It returns the card's new interval.
//
// With no card checked out it returns ErrNoCardCheckedOut and changes
// nothing. An invalid quality is rejected before any change and keeps the
// checkout. A failed save is returned together with the interval; the review
// has been applied in memory and will be persisted by the next successful
// save.
func (s *Scheduler) SubmitReview(ctx context.Context, q sm2.Quality) (int, error) {
	c := s.current
	if c == nil {
		s.logger.Warn("Review submitted with no card checked out", zap.Int("quality", int(q)))
		return 0, ErrNoCardCheckedOut
	}

	today := s.Today()
	interval, err := c.ApplyReview(q, today)
	if err != nil {
		return 0, err
	}
	s.current = nil

	saveErr := s.Save(ctx)

	if s.recorder != nil {
		st := c.State()
		if err := s.recorder.RecordReview(ctx, domain.ReviewLog{
			Key:        c.Key(),
			ReviewedOn: today,
			Quality:    int(q),
			Interval:   interval,
			EaseFactor: st.EaseFactor,
		}); err != nil {
			s.logger.Warn("Failed to record review", zap.String("key", c.Key()), zap.Error(err))
		}
	}

	s.logger.Debug("Review applied",
		zap.String("key", c.Key()),
		zap.Int("quality", int(q)),
		zap.Int("interval", interval),
	)
	if saveErr != nil {
		return interval, saveErr
	}
	return interval, nil
}

// Card returns the card for key.
func (s *Scheduler) Card(key string) (*sm2.Card, bool) {
	c, ok := s.cards[key]
	return c, ok
}

// Find looks a word up the way Insert checks for duplicates: normalized and
// ignoring case. An exact match wins when several keys differ only in case.
func (s *Scheduler) Find(word string) (*sm2.Card, bool) {
	if c, ok := s.cards[term.Normalize(word)]; ok {
		return c, true
	}
	keys := s.folded[term.Fold(word)]
	if len(keys) == 0 {
		return nil, false
	}
	return s.Card(keys[0])
}

func (s *Scheduler) index(key string) {
	f := term.Fold(key)
	s.folded[f] = append(s.folded[f], key)
	sort.Strings(s.folded[f])
}

func (s *Scheduler) unindex(key string) {
	f := term.Fold(key)
	keys := s.folded[f][:0]
	for _, k := range s.folded[f] {
		if k != key {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		delete(s.folded, f)
		return
	}
	s.folded[f] = keys
}

// Keys returns every key in sorted order.
func (s *Scheduler) Keys() []string {
	keys := make([]string, 0, len(s.cards))
	for k := range s.cards {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the collection size.
func (s *Scheduler) Len() int {
	return len(s.cards)
}

// Insert adds a new, immediately due card. The key is normalized first and
// must not match an existing key ignoring case. The caller saves.
func (s *Scheduler) Insert(key string, content domain.Content) (*sm2.Card, error) {
	key = term.Normalize(key)
	if key == "" {
		return nil, ErrEmptyKey
	}
	if existing, ok := s.Find(key); ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, existing.Key())
	}

	c := sm2.NewCard(key, content, s.Today())
	s.cards[key] = c
	s.index(key)
	s.logger.Info("Inserted card", zap.String("key", key))
	return c, nil
}

// Reinsert puts back a card taken out by Remove, keeping its review state.
// It fails with ErrDuplicateKey if the key is taken again. The caller saves.
func (s *Scheduler) Reinsert(c *sm2.Card) error {
	if _, ok := s.cards[c.Key()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, c.Key())
	}
	s.cards[c.Key()] = c
	s.index(c.Key())
	if c.IsDue(s.Today()) {
		s.queue = append(s.queue, c)
	}
	return nil
}

// UpdateContent replaces the content of an existing card and keeps its
// review state. The caller saves.
func (s *Scheduler) UpdateContent(key string, content domain.Content) error {
	c, ok := s.cards[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrCardNotFound, key)
	}
	c.SetContent(content)
	return nil
}

// Remove deletes a card, taking it out of the due queue and releasing it if
// it is checked out. The caller saves.
func (s *Scheduler) Remove(key string) error {
	c, ok := s.cards[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrCardNotFound, key)
	}
	delete(s.cards, key)
	s.unindex(key)

	if s.current == c {
		s.current = nil
	}
	queue := s.queue[:0]
	for _, q := range s.queue {
		if q != c {
			queue = append(queue, q)
		}
	}
	s.queue = queue
	s.logger.Info("Removed card", zap.String("key", key))
	return nil
}
