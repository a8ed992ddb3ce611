package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/vocabdeck/internal/domain"
	"github.com/conorfennell/vocabdeck/internal/sm2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// record is the on-disk form of one card. Pointer fields distinguish a
// missing field from a zero value so older files load with defaults.
type record struct {
	Content     domain.Content `json:"content"`
	Definitions domain.Content `json:"definitions,omitempty"` // name used by older files
	EaseFactor  *float64       `json:"ease_factor" validate:"omitnil,gte=1.3"`
	Interval    *int           `json:"interval" validate:"omitnil,gte=0"`
	Repetitions *int           `json:"repetitions" validate:"omitnil,gte=0"`
	NextReview  *civil.Date    `json:"next_review"`
	LastReview  *civil.Date    `json:"last_review"`
}

func newRecord(c *sm2.Card) record {
	s := c.State()
	return record{
		Content:     c.Content(),
		EaseFactor:  &s.EaseFactor,
		Interval:    &s.Interval,
		Repetitions: &s.Repetitions,
		NextReview:  &s.NextReview,
		LastReview:  s.LastReview,
	}
}

func (r record) card(key string, today civil.Date) (*sm2.Card, error) {
	if err := validate.Struct(r); err != nil {
		return nil, fmt.Errorf("card %q: %w", key, err)
	}

	content := r.Content
	if content == nil {
		content = r.Definitions
	}
	s := sm2.State{
		EaseFactor: sm2.InitialEaseFactor,
		NextReview: today,
		LastReview: r.LastReview,
	}
	if r.EaseFactor != nil {
		s.EaseFactor = *r.EaseFactor
	}
	if r.Interval != nil {
		s.Interval = *r.Interval
	}
	if r.Repetitions != nil {
		s.Repetitions = *r.Repetitions
	}
	if r.NextReview != nil {
		s.NextReview = *r.NextReview
	}
	return sm2.Restore(key, content, s)
}

// JSONFile stores a collection as one JSON object keyed by word.
type JSONFile struct {
	Path string
	// Today dates cards whose next review is missing from the file.
	// Defaults to the local calendar date.
	Today func() civil.Date
}

// NewJSONFile returns a store backed by the file at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

func (f *JSONFile) today() civil.Date {
	if f.Today != nil {
		return f.Today()
	}
	return civil.DateOf(time.Now())
}

// Load reads and decodes the whole file. Nothing is returned unless every
// card decodes.
func (f *JSONFile) Load(ctx context.Context) (map[string]*sm2.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrRead, f.Path, err)
	}

	var records map[string]record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", ErrRead, f.Path, err)
	}

	today := f.today()
	cards := make(map[string]*sm2.Card, len(records))
	for key, r := range records {
		c, err := r.card(key, today)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, f.Path, err)
		}
		cards[key] = c
	}
	return cards, nil
}

// Save writes the collection to a temporary file next to Path and renames
// it into place, so a crash mid-write keeps the previous file.
func (f *JSONFile) Save(ctx context.Context, cards map[string]*sm2.Card) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	records := make(map[string]record, len(cards))
	for key, c := range cards {
		records[key] = newRecord(c)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode collection: %w", ErrWrite, err)
	}

	if err := writeFileAtomic(f.Path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	committed = true
	return nil
}
