// Package lookup fetches word definitions from a dictionary service.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conorfennell/vocabdeck/internal/domain"
)

var (
	// ErrNotFound reports that the dictionary has no usable entry for a word.
	ErrNotFound = errors.New("lookup: word not found")
	// ErrRequest reports a failed or rejected request.
	ErrRequest = errors.New("lookup: request failed")
)

// DefaultBaseURL is the Free Dictionary API.
const DefaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en"

// Provider returns the content for a word.
type Provider interface {
	Lookup(ctx context.Context, word string) (domain.Content, error)
}

// Dictionary is a Provider backed by a Free Dictionary API compatible
// service.
type Dictionary struct {
	BaseURL string
	Client  *http.Client
}

// NewDictionary returns a client for baseURL, or DefaultBaseURL when empty.
func NewDictionary(baseURL string) *Dictionary {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Dictionary{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type apiEntry struct {
	Word     string `json:"word"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string  `json:"definition"`
			Example    *string `json:"example"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// Lookup flattens every meaning of the first dictionary entry into one
// definition record each.
func (d *Dictionary) Lookup(ctx context.Context, word string) (domain.Content, error) {
	endpoint := d.BaseURL + "/" + url.PathEscape(word)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, word)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s returned %s", ErrRequest, endpoint, resp.Status)
	}

	var entries []apiEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response for %q: %w", ErrRequest, word, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, word)
	}

	var content domain.Content
	for _, m := range entries[0].Meanings {
		for _, def := range m.Definitions {
			content = append(content, domain.Definition{
				PartOfSpeech: m.PartOfSpeech,
				Definition:   def.Definition,
				Example:      def.Example,
			})
		}
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: %q has no definitions", ErrNotFound, word)
	}
	return content, nil
}
