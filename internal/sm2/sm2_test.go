package sm2

import (
	"math"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = civil.Date{Year: 2025, Month: 6, Day: 15}

func mustRestore(t *testing.T, s State) *Card {
	t.Helper()
	c, err := Restore("word", nil, s)
	require.NoError(t, err)
	return c
}

func TestNewCardDefaults(t *testing.T) {
	c := NewCard("ephemeral", nil, day0)
	s := c.State()

	assert.Equal(t, "ephemeral", c.Key())
	assert.Equal(t, InitialEaseFactor, s.EaseFactor)
	assert.Zero(t, s.Interval)
	assert.Zero(t, s.Repetitions)
	assert.Equal(t, day0, s.NextReview)
	assert.Nil(t, s.LastReview)
	assert.True(t, c.IsDue(day0), "a fresh card is due on its creation date")
}

func TestIsDue(t *testing.T) {
	c := mustRestore(t, State{EaseFactor: 2.5, Interval: 3, Repetitions: 2, NextReview: day0})

	testCases := []struct {
		name  string
		today civil.Date
		want  bool
	}{
		{"day before", day0.AddDays(-1), false},
		{"same day", day0, true},
		{"day after", day0.AddDays(1), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsDue(tc.today))
		})
	}
}

func TestApplyReviewFailureResets(t *testing.T) {
	for q := Blackout; q < PassThreshold; q++ {
		c := mustRestore(t, State{EaseFactor: 2.2, Interval: 30, Repetitions: 5, NextReview: day0})

		interval, err := c.ApplyReview(q, day0)
		require.NoError(t, err)

		s := c.State()
		assert.Zero(t, interval)
		assert.Zero(t, s.Interval)
		assert.Zero(t, s.Repetitions)
		assert.Equal(t, 2.2, s.EaseFactor, "ease factor must not change on failure")
		assert.Equal(t, day0, s.NextReview)
		require.NotNil(t, s.LastReview)
		assert.Equal(t, day0, *s.LastReview)
	}
}

func TestApplyReviewEaseFloor(t *testing.T) {
	for _, ease := range []float64{1.3, 1.35, 1.5, 2.0, 2.5, 3.1} {
		for q := PassThreshold; q <= Perfect; q++ {
			c := mustRestore(t, State{EaseFactor: ease, Interval: 10, Repetitions: 3, NextReview: day0})
			_, err := c.ApplyReview(q, day0)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, c.State().EaseFactor, MinEaseFactor, "ease %.2f quality %d", ease, q)
		}
	}
}

func TestApplyReviewEaseDelta(t *testing.T) {
	testCases := []struct {
		q    Quality
		want float64
	}{
		{Perfect, 2.6},
		{Correct, 2.5},
		{CorrectDifficult, 2.36},
	}
	for _, tc := range testCases {
		c := NewCard("word", nil, day0)
		_, err := c.ApplyReview(tc.q, day0)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, c.State().EaseFactor, 1e-9, "quality %d", tc.q)
	}
}

func TestApplyReviewIntervalSequence(t *testing.T) {
	c := NewCard("word", nil, day0)

	first, err := c.ApplyReview(Correct, day0)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := c.ApplyReview(Correct, day0.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, 3, second)

	ease := c.State().EaseFactor
	third, err := c.ApplyReview(Correct, day0.AddDays(4))
	require.NoError(t, err)
	assert.Equal(t, int(math.RoundToEven(3*ease)), third)
	assert.Equal(t, 3, c.State().Repetitions)
}

func TestApplyReviewRoundsHalfToEven(t *testing.T) {
	c := mustRestore(t, State{EaseFactor: 2.5, Interval: 5, Repetitions: 2, NextReview: day0})

	interval, err := c.ApplyReview(Perfect, day0)
	require.NoError(t, err)
	assert.Equal(t, 12, interval, "12.5 rounds to the even neighbour")
}

func TestApplyReviewNextReviewDerived(t *testing.T) {
	c := NewCard("word", nil, day0)
	today := day0
	for i, q := range []Quality{Perfect, Correct, Blackout, CorrectDifficult, Perfect, Perfect} {
		interval, err := c.ApplyReview(q, today)
		require.NoError(t, err)

		s := c.State()
		require.NotNil(t, s.LastReview)
		assert.Equal(t, s.LastReview.AddDays(interval), s.NextReview, "review %d", i)
		today = s.NextReview
	}
}

func TestApplyReviewInvalidQuality(t *testing.T) {
	c := mustRestore(t, State{EaseFactor: 2.5, Interval: 3, Repetitions: 2, NextReview: day0})
	before := c.State()

	for _, q := range []Quality{-1, 6, 42} {
		_, err := c.ApplyReview(q, day0.AddDays(7))
		assert.ErrorIs(t, err, ErrInvalidQuality)
		assert.Equal(t, before, c.State())
	}
}

func TestScenarioFirstReview(t *testing.T) {
	c := NewCard("ephemeral", nil, day0)

	interval, err := c.ApplyReview(Correct, day0)
	require.NoError(t, err)

	s := c.State()
	assert.Equal(t, 1, interval)
	assert.Equal(t, day0.AddDays(1), s.NextReview)
	assert.Equal(t, 1, s.Repetitions)
}

func TestScenarioThreePerfectReviews(t *testing.T) {
	c := NewCard("ephemeral", nil, day0)

	_, err := c.ApplyReview(Perfect, day0)
	require.NoError(t, err)
	_, err = c.ApplyReview(Perfect, day0.AddDays(1))
	require.NoError(t, err)
	easeAfterSecond := c.State().EaseFactor
	assert.InDelta(t, 2.7, easeAfterSecond, 1e-9)

	interval, err := c.ApplyReview(Perfect, day0.AddDays(4))
	require.NoError(t, err)
	assert.Equal(t, 8, interval, "round(3 * 2.7)")
	assert.Equal(t, 3, c.State().Repetitions)
}

func TestRestoreRejectsInvalidState(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		s    State
	}{
		{"empty key", "", State{EaseFactor: 2.5, NextReview: day0}},
		{"low ease", "w", State{EaseFactor: 1.2, NextReview: day0}},
		{"negative interval", "w", State{EaseFactor: 2.5, Interval: -1, NextReview: day0}},
		{"negative repetitions", "w", State{EaseFactor: 2.5, Repetitions: -1, NextReview: day0}},
		{"zero date", "w", State{EaseFactor: 2.5}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Restore(tc.key, nil, tc.s)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestStateIsACopy(t *testing.T) {
	last := day0
	c := mustRestore(t, State{EaseFactor: 2.5, NextReview: day0, LastReview: &last})

	s := c.State()
	*s.LastReview = day0.AddDays(30)
	assert.Equal(t, day0, *c.State().LastReview)
}

func TestParseQuality(t *testing.T) {
	q, err := ParseQuality(" 4 ")
	require.NoError(t, err)
	assert.Equal(t, Correct, q)

	for _, in := range []string{"", "x", "6", "-1"} {
		_, err := ParseQuality(in)
		assert.ErrorIs(t, err, ErrInvalidQuality, "input %q", in)
	}
}
