package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/vocabdeck/internal/domain"
)

const (
	wordPrefix       = "W:"
	definitionPrefix = "D:"
	examplePrefix    = "E:"
	separator        = "---"
)

type state int

const (
	seeking state = iota
	readingWord
	readingDefinition
	readingExample
)

// ParseFile reads a file from the given path and extracts all word entries.
func ParseFile(path string) ([]domain.Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a markdown word list from an io.Reader.
//
//	W: ephemeral
//	D: (adjective) lasting for a very short time
//	E: fashions are ephemeral
//	---
//
// Each D: line starts a new definition and may open with its part of speech
// in parentheses. Lines without a prefix continue the open field.
func Parse(r io.Reader) ([]domain.Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []domain.Entry
	var current domain.Entry
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(currentBlock, "\n"))
		currentBlock = nil
		switch currentState {
		case readingWord:
			current.Key = content
		case readingDefinition:
			pos, text := splitPartOfSpeech(content)
			current.Content = append(current.Content, domain.Definition{PartOfSpeech: pos, Definition: text})
		case readingExample:
			if n := len(current.Content); n > 0 && content != "" {
				current.Content[n-1].Example = &content
			}
		}
	}

	finishEntry := func() {
		flushBlock()
		if current.Key != "" && len(current.Content) > 0 {
			entries = append(entries, current)
		}
		current = domain.Entry{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			finishEntry()
			continue
		}

		prefix, rest, ok := cutPrefix(line)
		if !ok {
			if currentState != seeking {
				currentBlock = append(currentBlock, line)
			}
			continue
		}

		switch prefix {
		case wordPrefix:
			if currentState != seeking { // A new word always starts a new entry
				finishEntry()
			}
			currentState = readingWord
		case definitionPrefix:
			flushBlock()
			currentState = readingDefinition
		case examplePrefix:
			flushBlock()
			currentState = readingExample
		}
		currentBlock = append(currentBlock, rest)
	}

	finishEntry() // Finish the very last entry in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func cutPrefix(line string) (prefix, rest string, ok bool) {
	for _, p := range []string{wordPrefix, definitionPrefix, examplePrefix} {
		if strings.HasPrefix(line, p) {
			rest = line[len(p):]
			if strings.HasPrefix(rest, " ") {
				rest = rest[1:]
			}
			return p, rest, true
		}
	}
	return "", "", false
}

// splitPartOfSpeech separates "(noun) a thing" into "noun" and "a thing".
func splitPartOfSpeech(s string) (string, string) {
	if !strings.HasPrefix(s, "(") {
		return "", s
	}
	end := strings.Index(s, ")")
	if end < 0 {
		return "", s
	}
	return strings.TrimSpace(s[1:end]), strings.TrimSpace(s[end+1:])
}
