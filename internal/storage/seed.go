package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conorfennell/vocabdeck/internal/domain"
)

// SeedFile is a word-to-content mapping with no review state, used to
// populate a collection that has never been saved.
type SeedFile struct {
	Path string
}

func NewSeedFile(path string) *SeedFile {
	return &SeedFile{Path: path}
}

// LoadSeed reads the seed file, or returns ErrNotExist when it is absent.
func (s *SeedFile) LoadSeed(ctx context.Context) (map[string]domain.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	file, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("%w: failed to open seed %s: %w", ErrRead, s.Path, err)
	}
	defer file.Close()

	words, err := ReadSeed(file, filepath.Ext(s.Path))
	if err != nil {
		return nil, fmt.Errorf("%w: seed %s: %w", ErrRead, s.Path, err)
	}
	return words, nil
}

// ReadSeed decodes a word list. ext selects the format: ".yaml" and ".yml"
// are YAML, anything else is JSON.
func ReadSeed(r io.Reader, ext string) (map[string]domain.Content, error) {
	words := make(map[string]domain.Content)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(r).Decode(&words); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode yaml: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&words); err != nil {
			return nil, fmt.Errorf("failed to decode json: %w", err)
		}
	}
	return words, nil
}
