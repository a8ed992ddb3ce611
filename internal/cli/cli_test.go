package cli

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conorfennell/vocabdeck/internal/scheduler"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	t    *testing.T
	dir  string
	args []string
}

func newHarness(t *testing.T, backend string) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{
		t:   t,
		dir: dir,
		args: []string{
			"--backend", backend,
			"--data", filepath.Join(dir, "flashcards.json"),
			"--db", filepath.Join(dir, "vocabdeck.db"),
			"--seed", filepath.Join(dir, "definitions.json"),
			"--log-level", "error",
		},
	}
}

// run executes one command against the harness collection with stdin as
// the user's input.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	a := &app{schedulerOpts: []scheduler.Option{
		scheduler.WithClock(func() time.Time { return t0 }),
		scheduler.WithRand(rand.New(rand.NewSource(1))),
	}}
	root := newRootCmd(a)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, h.args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(stdin string, args ...string) string {
	h.t.Helper()
	out, err := h.run(stdin, args...)
	require.NoError(h.t, err, out)
	return out
}

func TestAddListStatsRm(t *testing.T) {
	h := newHarness(t, "json")

	out := h.mustRun("", "add", "  ephemeral ", "--definition", "lasting a very short time", "--part-of-speech", "adjective")
	assert.Contains(t, out, `Added "ephemeral"`)
	h.mustRun("", "add", "laconic", "--definition", "terse", "--example", "a laconic reply")

	_, err := h.run("", "add", "Ephemeral", "--definition", "again")
	assert.ErrorContains(t, err, "already in the collection")

	out = h.mustRun("", "list")
	assert.Contains(t, out, "WORD")
	assert.Contains(t, out, "ephemeral")
	assert.Contains(t, out, "laconic")

	out = h.mustRun("", "list", "--filter", "LAC")
	assert.NotContains(t, out, "ephemeral")
	assert.Contains(t, out, "laconic")

	out = h.mustRun("", "stats")
	assert.Contains(t, out, "New:       2")
	assert.Contains(t, out, "Due today: 2")

	out = h.mustRun("", "rm", "LACONIC")
	assert.Contains(t, out, `Removed "laconic"`)
	_, err = h.run("", "rm", "laconic")
	assert.ErrorContains(t, err, "not in the collection")

	out = h.mustRun("", "stats")
	assert.Contains(t, out, "Total:     1")
}

func TestAddLooksUpDefinitions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ubiquitous" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"word":"ubiquitous","meanings":[{"partOfSpeech":"adjective","definitions":[{"definition":"found everywhere"}]}]}]`))
	}))
	defer srv.Close()
	t.Setenv("VOCABDECK_DICTIONARY_URL", srv.URL)

	h := newHarness(t, "json")
	out := h.mustRun("", "add", "ubiquitous")
	assert.Contains(t, out, "1 definition(s)")

	_, err := h.run("", "add", "qwxz")
	assert.ErrorContains(t, err, "no definitions found")
}

func TestReview(t *testing.T) {
	h := newHarness(t, "json")
	h.mustRun("", "add", "ephemeral", "--definition", "lasting a very short time", "--part-of-speech", "adjective")

	out := h.mustRun("\n5\n", "review")
	assert.Contains(t, out, "ephemeral")
	assert.Contains(t, out, "1. (adjective) lasting a very short time")
	assert.Contains(t, out, "Next review 2025-06-16 (1 day from now).")
	assert.Contains(t, out, "Reviewed 1 card.")
	assert.Contains(t, out, "No more cards due today.")

	out = h.mustRun("", "stats")
	assert.Contains(t, out, "Reviewing: 1")
	assert.Contains(t, out, "Due today: 0")
}

func TestReviewRepromptsAndQuits(t *testing.T) {
	h := newHarness(t, "json")
	h.mustRun("", "add", "ephemeral", "--definition", "short-lived")

	out := h.mustRun("\n9\nq\n", "review")
	assert.Contains(t, out, "Please enter a number from 0 to 5.")
	assert.Contains(t, out, "Reviewed 0 cards.")

	out = h.mustRun("", "stats")
	assert.Contains(t, out, "New:       1", "quitting leaves the card untouched")
}

func TestReviewFailedCardComesBack(t *testing.T) {
	h := newHarness(t, "json")
	h.mustRun("", "add", "ephemeral", "--definition", "short-lived")

	out := h.mustRun("\n1\n\n4\n", "review")
	assert.Contains(t, out, "Not quite. This word will come back today.")
	assert.Contains(t, out, "Reviewed 2 cards.")
}

func TestImport(t *testing.T) {
	h := newHarness(t, "json")
	words := filepath.Join(h.dir, "words")
	require.NoError(t, os.MkdirAll(words, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(words, "list.md"),
		[]byte("W: ephemeral\nD: (adjective) short-lived\n---\nW: laconic\nD: terse\n"), 0o644))

	out := h.mustRun("", "import", words)
	assert.Contains(t, out, "Found 2 words: 2 added, 0 updated, 0 removed.")

	_, err := h.run("", "import")
	assert.ErrorContains(t, err, "no sources")
}

func TestHistory(t *testing.T) {
	h := newHarness(t, "sqlite")
	h.mustRun("", "add", "ephemeral", "--definition", "short-lived")
	h.mustRun("\n4\n", "review")

	out := h.mustRun("", "history", "Ephemeral")
	assert.Contains(t, out, "2025-06-15")
	assert.Contains(t, out, "1d")

	out = h.mustRun("", "history", "never-added")
	assert.Contains(t, out, "No reviews recorded")
}

func TestHistoryNeedsSQLite(t *testing.T) {
	h := newHarness(t, "json")
	_, err := h.run("", "history", "ephemeral")
	assert.ErrorContains(t, err, "sqlite backend")
}

func TestServeStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	assert.NoError(t, serve(ctx, srv, zap.NewNop()))
}
