package domain

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// Definition is one sense of a word as supplied by a content provider.
// Example is nil when the provider has no usage example.
type Definition struct {
	PartOfSpeech string  `json:"part_of_speech" yaml:"part_of_speech"`
	Definition   string  `json:"definition" yaml:"definition"`
	Example      *string `json:"example" yaml:"example"`
}

// Content is the opaque payload attached to a card. The scheduler stores and
// returns it without interpreting it.
type Content []Definition

// Render formats the definitions as numbered plain text, one definition per
// entry with its example indented underneath.
func (c Content) Render() string {
	var b strings.Builder
	for i, d := range c {
		if d.PartOfSpeech != "" {
			fmt.Fprintf(&b, "%d. (%s) %s\n", i+1, d.PartOfSpeech, d.Definition)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, d.Definition)
		}
		// Older word lists carry the literal string "null" for a missing example.
		if d.Example != nil && *d.Example != "" && *d.Example != "null" {
			fmt.Fprintf(&b, "   Example: %s\n", *d.Example)
		}
	}
	return b.String()
}

// Entry is a word and its content before it becomes a card.
type Entry struct {
	Key     string
	Content Content
}

// ReviewLog records a single applied review of a card.
// Quality is the SM-2 grade, 0 (blackout) to 5 (perfect recall).
type ReviewLog struct {
	ID         string
	Key        string
	ReviewedOn civil.Date
	Quality    int
	Interval   int
	EaseFactor float64
}
