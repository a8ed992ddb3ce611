package sm2

import (
	"fmt"
	"strconv"
	"strings"
)

// Quality is the caller's grade of a review.
// 0-2 are failures of increasing near-recall, 3-5 are successes.
type Quality int

const (
	Blackout            Quality = 0
	IncorrectRemembered Quality = 1
	IncorrectEasy       Quality = 2
	CorrectDifficult    Quality = 3
	Correct             Quality = 4
	Perfect             Quality = 5
)

// PassThreshold is the lowest quality counted as a successful recall.
const PassThreshold Quality = 3

// Valid reports whether q lies in [0,5].
func (q Quality) Valid() bool {
	return q >= Blackout && q <= Perfect
}

// Passed reports whether q counts as a successful recall.
func (q Quality) Passed() bool {
	return q >= PassThreshold
}

// ParseQuality reads a quality from user input such as "4".
func ParseQuality(s string) (Quality, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuality, s)
	}
	q := Quality(n)
	if !q.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidQuality, n)
	}
	return q, nil
}
