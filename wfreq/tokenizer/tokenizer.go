// Package tokenizer splits lines of text into lowercase word tokens.
//
// Classification is byte oriented: ASCII letters, ASCII digits and '_' are
// word characters, every other byte (including all bytes >= 0x80) is a
// delimiter.
package tokenizer

import "strings"

// Tokenizer holds the minimum token length. It has no mutable state and is
// safe for concurrent use.
type Tokenizer struct {
	minLen int
}

// New returns a tokenizer that drops tokens shorter than minLen bytes.
// Values below 1 are treated as 1.
func New(minLen int) *Tokenizer {
	return &Tokenizer{minLen: max(minLen, 1)}
}

// MinLen returns the effective minimum token length
func (t *Tokenizer) MinLen() int {
	return t.minLen
}

// IsWordChar reports whether c is part of a word
func IsWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_'
}

// CountLine increments dst for every token of line and returns how many
// tokens were counted. A token still open at the end of the line is flushed.
func (t *Tokenizer) CountLine(line string, dst map[string]uint64) int {
	counted := 0
	t.scan(line, func(word string) {
		if n, ok := dst[word]; ok {
			dst[word] = n + 1
		} else {
			// keys must not pin the whole line in memory
			dst[strings.Clone(word)] = 1
		}
		counted++
	})
	return counted
}

func (t *Tokenizer) scan(line string, emit func(word string)) {
	start := -1
	for i := 0; i < len(line); i++ {
		if IsWordChar(line[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			t.flush(line[start:i], emit)
			start = -1
		}
	}
	if start >= 0 {
		t.flush(line[start:], emit)
	}
}

func (t *Tokenizer) flush(word string, emit func(word string)) {
	if len(word) < t.minLen {
		return
	}
	// ToLower returns word unchanged when it has no upper case letters
	emit(strings.ToLower(word))
}
