package term

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/conorfennell/vocabdeck/internal/domain"
)

// Normalize cleans a user-supplied word into a collection key. It trims
// surrounding whitespace, collapses inner runs of whitespace to one space and
// converts the result to NFC so visually identical words share a key.
func Normalize(key string) string {
	return norm.NFC.String(strings.Join(strings.Fields(key), " "))
}

// Fold returns the caseless form of a key, used to detect duplicates that
// differ only in case ("Ephemeral" and "ephemeral").
func Fold(key string) string {
	return cases.Fold().String(Normalize(key))
}

// Contains reports whether key contains substr, ignoring case. An empty
// substr matches every key.
func Contains(key, substr string) bool {
	return strings.Contains(Fold(key), Fold(substr))
}

// Fingerprint hashes a card's content so callers can tell whether a word
// list changed since it was last imported. Whitespace and case differences
// in the definitions do not change the fingerprint.
func Fingerprint(content domain.Content) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	var parts []string
	for _, d := range content {
		example := ""
		if d.Example != nil {
			example = *d.Example
		}
		// One line per definition with fields separated by a tab, so
		// "a" + "bc" never hashes like "ab" + "c".
		parts = append(parts, strings.Join([]string{
			normalizePart(d.PartOfSpeech),
			normalizePart(d.Definition),
			normalizePart(example),
		}, "\t"))
	}

	hashBytes := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return fmt.Sprintf("%x", hashBytes)
}
