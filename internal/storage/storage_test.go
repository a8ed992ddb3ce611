package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/vocabdeck/internal/domain"
	"github.com/conorfennell/vocabdeck/internal/sm2"
)

var day0 = civil.Date{Year: 2025, Month: 6, Day: 15}

type snapshot struct {
	Content domain.Content
	State   sm2.State
}

func snapshotOf(cards map[string]*sm2.Card) map[string]snapshot {
	out := make(map[string]snapshot, len(cards))
	for k, c := range cards {
		out[k] = snapshot{Content: c.Content(), State: c.State()}
	}
	return out
}

func sampleCollection(t *testing.T) map[string]*sm2.Card {
	t.Helper()
	example := "fashions are ephemeral"
	fresh := sm2.NewCard("ephemeral", domain.Content{
		{PartOfSpeech: "adjective", Definition: "lasting for a very short time", Example: &example},
	}, day0)

	last := day0.AddDays(-3)
	reviewed, err := sm2.Restore("ubiquitous", domain.Content{
		{PartOfSpeech: "adjective", Definition: "present everywhere"},
	}, sm2.State{EaseFactor: 2.36, Interval: 3, Repetitions: 2, NextReview: day0, LastReview: &last})
	require.NoError(t, err)

	return map[string]*sm2.Card{fresh.Key(): fresh, reviewed.Key(): reviewed}
}

func TestJSONFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := NewJSONFile(filepath.Join(t.TempDir(), "flashcards.json"))
	cards := sampleCollection(t)

	require.NoError(t, f.Save(ctx, cards))
	loaded, err := f.Load(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(snapshotOf(cards), snapshotOf(loaded)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONFileFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "flashcards.json")
	f := NewJSONFile(path)

	require.NoError(t, f.Save(ctx, map[string]*sm2.Card{
		"ephemeral": sm2.NewCard("ephemeral", nil, day0),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `"next_review": "2025-06-15"`)
	assert.Contains(t, text, `"last_review": null`)
	assert.Contains(t, text, `"ease_factor": 2.5`)
	assert.NotContains(t, text, `"definitions"`)
}

func TestJSONFileMissing(t *testing.T) {
	f := NewJSONFile(filepath.Join(t.TempDir(), "absent.json"))
	_, err := f.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestJSONFileLegacyFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashcards.json")
	legacy := `{
  "pristine": {
    "definitions": [{"part_of_speech": "adjective", "definition": "in its original condition", "example": null}],
    "ease_factor": 2.6,
    "interval": 1,
    "repetitions": 1,
    "next_review": "2025-06-16",
    "last_review": "2025-06-15"
  },
  "terse": {
    "definitions": []
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	f := &JSONFile{Path: path, Today: func() civil.Date { return day0 }}
	cards, err := f.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 2)

	p := cards["pristine"]
	require.Len(t, p.Content(), 1)
	assert.Equal(t, "in its original condition", p.Content()[0].Definition)
	assert.Nil(t, p.Content()[0].Example)
	s := p.State()
	assert.Equal(t, 2.6, s.EaseFactor)
	assert.Equal(t, day0.AddDays(1), s.NextReview)
	require.NotNil(t, s.LastReview)
	assert.Equal(t, day0, *s.LastReview)

	terse := cards["terse"].State()
	assert.Equal(t, sm2.InitialEaseFactor, terse.EaseFactor)
	assert.Zero(t, terse.Repetitions)
	assert.Equal(t, day0, terse.NextReview, "missing next_review is due on load")
	assert.Nil(t, terse.LastReview)
}

func TestJSONFileRejectsBadData(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"a": `},
		{"ease below floor", `{"a": {"ease_factor": 1.1, "next_review": "2025-06-15"}}`},
		{"negative interval", `{"a": {"interval": -2, "next_review": "2025-06-15"}}`},
		{"bad date", `{"a": {"next_review": "15/06/2025"}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "flashcards.json")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o644))

			cards, err := NewJSONFile(path).Load(context.Background())
			assert.ErrorIs(t, err, ErrRead)
			assert.Nil(t, cards)
		})
	}
}

func TestJSONFileFailedSaveKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "flashcards.json")
	f := NewJSONFile(path)
	require.NoError(t, f.Save(ctx, sampleCollection(t)))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// A directory sitting at the target path makes the final rename fail.
	blocked := NewJSONFile(filepath.Join(dir, "blocked"))
	require.NoError(t, os.Mkdir(blocked.Path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked.Path, "keep"), nil, 0o644))
	err = blocked.Save(ctx, sampleCollection(t))
	assert.ErrorIs(t, err, ErrWrite)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file %s left behind", e.Name())
	}
}

func TestSeedFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "words.json")
		body := `{"ephemeral": [{"part_of_speech": "adjective", "definition": "short-lived", "example": null}]}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		words, err := NewSeedFile(path).LoadSeed(context.Background())
		require.NoError(t, err)
		require.Contains(t, words, "ephemeral")
		assert.Equal(t, "short-lived", words["ephemeral"][0].Definition)
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "words.yaml")
		body := "ephemeral:\n  - part_of_speech: adjective\n    definition: short-lived\n    example: here today\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		words, err := NewSeedFile(path).LoadSeed(context.Background())
		require.NoError(t, err)
		require.Len(t, words["ephemeral"], 1)
		require.NotNil(t, words["ephemeral"][0].Example)
		assert.Equal(t, "here today", *words["ephemeral"][0].Example)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := NewSeedFile(filepath.Join(dir, "nope.json")).LoadSeed(context.Background())
		assert.ErrorIs(t, err, ErrNotExist)
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("["), 0o644))
		_, err := NewSeedFile(path).LoadSeed(context.Background())
		assert.ErrorIs(t, err, ErrRead)
	})
}
