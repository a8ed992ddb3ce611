// Package sm2 implements the SM-2 review rule on a single card.
package sm2

import (
	"errors"
	"fmt"
	"math"

	"cloud.google.com/go/civil"

	"github.com/conorfennell/vocabdeck/internal/domain"
)

const (
	InitialEaseFactor = 2.5
	MinEaseFactor     = 1.3

	firstInterval  = 1
	secondInterval = 3
)

var (
	ErrInvalidQuality = errors.New("sm2: quality out of range [0,5]")
	ErrInvalidState   = errors.New("sm2: invalid card state")
)

// State is a snapshot of a card's review fields.
type State struct {
	EaseFactor  float64
	Interval    int
	Repetitions int
	NextReview  civil.Date
	LastReview  *civil.Date // nil until the first review.
}

// Card is one word with its scheduling state. The key never changes after
// construction and the review fields only change through ApplyReview.
type Card struct {
	key     string
	content domain.Content

	easeFactor  float64
	interval    int
	repetitions int
	nextReview  civil.Date
	lastReview  *civil.Date
}

// NewCard creates a never-reviewed card that is due on created.
func NewCard(key string, content domain.Content, created civil.Date) *Card {
	return &Card{
		key:        key,
		content:    content,
		easeFactor: InitialEaseFactor,
		nextReview: created,
	}
}

// Restore rebuilds a card from persisted state.
func Restore(key string, content domain.Content, s State) (*Card, error) {
	switch {
	case key == "":
		return nil, fmt.Errorf("%w: empty key", ErrInvalidState)
	case s.EaseFactor < MinEaseFactor:
		return nil, fmt.Errorf("%w: %s: ease factor %.4f below %.1f", ErrInvalidState, key, s.EaseFactor, MinEaseFactor)
	case s.Interval < 0:
		return nil, fmt.Errorf("%w: %s: negative interval %d", ErrInvalidState, key, s.Interval)
	case s.Repetitions < 0:
		return nil, fmt.Errorf("%w: %s: negative repetitions %d", ErrInvalidState, key, s.Repetitions)
	case !s.NextReview.IsValid():
		return nil, fmt.Errorf("%w: %s: invalid next review date", ErrInvalidState, key)
	}

	c := &Card{
		key:         key,
		content:     content,
		easeFactor:  s.EaseFactor,
		interval:    s.Interval,
		repetitions: s.Repetitions,
		nextReview:  s.NextReview,
	}
	if s.LastReview != nil {
		d := *s.LastReview
		c.lastReview = &d
	}
	return c, nil
}

func (c *Card) Key() string { return c.key }

func (c *Card) Content() domain.Content { return c.content }

// SetContent replaces the payload. Review state is left alone.
func (c *Card) SetContent(content domain.Content) { c.content = content }

// State returns a copy of the review fields.
func (c *Card) State() State {
	s := State{
		EaseFactor:  c.easeFactor,
		Interval:    c.interval,
		Repetitions: c.repetitions,
		NextReview:  c.nextReview,
	}
	if c.lastReview != nil {
		d := *c.lastReview
		s.LastReview = &d
	}
	return s
}

// IsDue reports whether the card's next review is on or before today.
func (c *Card) IsDue(today civil.Date) bool {
	return !c.nextReview.After(today)
}

// ApplyReview updates the card for a review graded q on today and returns
// the new interval in days. An out-of-range quality leaves the card as it was.
func (c *Card) ApplyReview(q Quality, today civil.Date) (int, error) {
	if !q.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidQuality, int(q))
	}

	ease := c.easeFactor
	interval := 0
	repetitions := 0

	if q.Passed() {
		// The branch is chosen by the repetition count before this review.
		switch c.repetitions {
		case 0:
			interval = firstInterval
		case 1:
			interval = secondInterval
		default:
			interval = int(math.RoundToEven(float64(c.interval) * c.easeFactor))
		}
		repetitions = c.repetitions + 1

		miss := float64(Perfect - q)
		ease += 0.1 - miss*(0.08+miss*0.02)
		if ease < MinEaseFactor {
			ease = MinEaseFactor
		}
	}

	reviewed := today
	c.easeFactor = ease
	c.interval = interval
	c.repetitions = repetitions
	c.lastReview = &reviewed
	c.nextReview = today.AddDays(interval)

	return interval, nil
}
