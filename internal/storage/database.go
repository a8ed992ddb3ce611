package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/vocabdeck/internal/domain"
	"github.com/conorfennell/vocabdeck/internal/sm2"
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := applyUpgrades(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{conn: db}, nil
}

// applyUpgrades runs every upgrade statement. A column that already exists
// is the normal case for an up-to-date database; any other failure is
// returned.
func applyUpgrades(db *sql.DB) error {
	for _, stmt := range upgrades {
		if _, err := db.Exec(stmt); err != nil && !strings.Contains(err.Error(), "duplicate column name") {
			return fmt.Errorf("failed to upgrade schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Load reads every card. It returns ErrNotExist for a database that has
// never been saved to, so a seed list can populate it. Databases written
// before the collection marker existed count as saved when they hold cards.
func (db *DB) Load(ctx context.Context) (map[string]*sm2.Card, error) {
	var saved bool
	err := db.conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM collection WHERE id = 1)
		    OR EXISTS(SELECT 1 FROM cards)
	`).Scan(&saved)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read collection marker: %w", ErrRead, err)
	}
	if !saved {
		return nil, ErrNotExist
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT key, content, ease_factor, interval, repetitions, next_review, last_review
		FROM cards
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query cards: %w", ErrRead, err)
	}
	defer rows.Close()

	cards := make(map[string]*sm2.Card)
	for rows.Next() {
		var (
			key, contentJSON, nextReview string
			lastReview                   sql.NullString
			s                            sm2.State
		)
		if err := rows.Scan(&key, &contentJSON, &s.EaseFactor, &s.Interval, &s.Repetitions, &nextReview, &lastReview); err != nil {
			return nil, fmt.Errorf("%w: failed to scan card row: %w", ErrRead, err)
		}

		var content domain.Content
		if err := json.Unmarshal([]byte(contentJSON), &content); err != nil {
			return nil, fmt.Errorf("%w: failed to decode content for %s: %w", ErrRead, key, err)
		}
		if s.NextReview, err = civil.ParseDate(nextReview); err != nil {
			return nil, fmt.Errorf("%w: bad next_review for %s: %w", ErrRead, key, err)
		}
		if lastReview.Valid {
			d, err := civil.ParseDate(lastReview.String)
			if err != nil {
				return nil, fmt.Errorf("%w: bad last_review for %s: %w", ErrRead, key, err)
			}
			s.LastReview = &d
		}

		c, err := sm2.Restore(key, content, s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
		cards[key] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate cards: %w", ErrRead, err)
	}
	return cards, nil
}

// Save replaces every card row inside one transaction.
func (db *DB) Save(ctx context.Context, cards map[string]*sm2.Card) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrWrite, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards`); err != nil {
		return fmt.Errorf("%w: failed to clear cards: %w", ErrWrite, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (key, content, ease_factor, interval, repetitions, next_review, last_review)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare insert: %w", ErrWrite, err)
	}
	defer stmt.Close()

	for key, c := range cards {
		content, err := json.Marshal(c.Content())
		if err != nil {
			return fmt.Errorf("%w: failed to encode content for %s: %w", ErrWrite, key, err)
		}
		s := c.State()
		var lastReview sql.NullString
		if s.LastReview != nil {
			lastReview = sql.NullString{String: s.LastReview.String(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			key,
			string(content),
			s.EaseFactor,
			s.Interval,
			s.Repetitions,
			s.NextReview.String(),
			lastReview,
		); err != nil {
			return fmt.Errorf("%w: failed to insert card %s: %w", ErrWrite, key, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO collection (id, saved_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at
	`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("%w: failed to mark collection saved: %w", ErrWrite, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %w", ErrWrite, err)
	}
	return nil
}

// RecordReview appends a review to the log, assigning an ID when empty.
func (db *DB) RecordReview(ctx context.Context, log domain.ReviewLog) error {
	if log.ID == "" {
		log.ID = ulid.Make().String()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO reviews (id, key, reviewed_on, quality, interval, ease_factor)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		log.ID,
		log.Key,
		log.ReviewedOn.String(),
		log.Quality,
		log.Interval,
		log.EaseFactor,
	)
	if err != nil {
		return fmt.Errorf("failed to record review for %s: %w", log.Key, err)
	}
	return nil
}

// ReviewsForKey returns the review history of a word, oldest first.
func (db *DB) ReviewsForKey(ctx context.Context, key string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, key, reviewed_on, quality, interval, ease_factor
		FROM reviews WHERE key = ?
		ORDER BY id
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews for %s: %w", key, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var (
			l          domain.ReviewLog
			reviewedOn string
		)
		if err := rows.Scan(&l.ID, &l.Key, &reviewedOn, &l.Quality, &l.Interval, &l.EaseFactor); err != nil {
			return nil, fmt.Errorf("failed to scan review row for %s: %w", key, err)
		}
		if l.ReviewedOn, err = civil.ParseDate(reviewedOn); err != nil {
			return nil, fmt.Errorf("bad reviewed_on for %s: %w", key, err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
