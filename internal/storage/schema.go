package storage

const schema = `
-- The 'cards' table stores one row per word with its SM-2 state.
-- Dates are stored as YYYY-MM-DD text.
CREATE TABLE IF NOT EXISTS cards (
    key TEXT PRIMARY KEY,
    content TEXT NOT NULL DEFAULT 'null', -- JSON list of definitions
    ease_factor REAL NOT NULL DEFAULT 2.5,
    interval INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    next_review TEXT NOT NULL
);

-- The 'reviews' table is an append-only log of applied reviews.
CREATE TABLE IF NOT EXISTS reviews (
    id TEXT PRIMARY KEY, -- ULID, sorts by creation time
    key TEXT NOT NULL,
    reviewed_on TEXT NOT NULL,
    quality INTEGER NOT NULL,
    interval INTEGER NOT NULL,
    ease_factor REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviews_key ON reviews(key);

-- The 'collection' table holds a single row once the collection has been saved.
CREATE TABLE IF NOT EXISTS collection (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    saved_at TEXT NOT NULL
);
`

// upgrades add columns missing from databases created by older versions.
// Each statement fails harmlessly when the column already exists.
var upgrades = []string{
	`ALTER TABLE cards ADD COLUMN last_review TEXT`,
}
