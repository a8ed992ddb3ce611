// Package storage persists card collections. The primary format is a single
// JSON document; a SQLite database is available as an alternative backend
// and additionally keeps a log of every review.
package storage

import (
	"context"
	"errors"

	"github.com/conorfennell/vocabdeck/internal/domain"
	"github.com/conorfennell/vocabdeck/internal/sm2"
)

var (
	// ErrNotExist reports that no collection has been saved yet.
	ErrNotExist = errors.New("storage: no persisted collection")
	// ErrRead wraps every failure to read or decode a persisted collection.
	ErrRead = errors.New("storage: read failed")
	// ErrWrite wraps every failure to persist a collection.
	ErrWrite = errors.New("storage: write failed")
)

// Store loads and saves a whole collection at once.
type Store interface {
	// Load returns every persisted card, or ErrNotExist when nothing has
	// been saved yet.
	Load(ctx context.Context) (map[string]*sm2.Card, error)
	// Save replaces the persisted collection with cards. A failed save
	// leaves the previous collection intact.
	Save(ctx context.Context, cards map[string]*sm2.Card) error
}

// SeedSource supplies word content for a collection that has never been
// saved.
type SeedSource interface {
	LoadSeed(ctx context.Context) (map[string]domain.Content, error)
}
