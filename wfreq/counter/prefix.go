package counter

import (
	"log/slog"
	"strings"

	"github.com/armon/go-radix"
)

// PrefixIndex is a read-only patricia tree over merged counts. It answers
// exact and prefix queries in O(k) for a key of length k, independent of the
// number of distinct words.
type PrefixIndex struct {
	tree *radix.Tree
}

// NewPrefixIndex indexes entries. Words are expected to be unique.
func NewPrefixIndex(entries []WordCount) *PrefixIndex {
	m := make(map[string]interface{}, len(entries))
	for _, e := range entries {
		m[e.Word] = e.Count
	}
	return &PrefixIndex{tree: radix.NewFromMap(m)}
}

// Len returns the number of indexed words
func (idx *PrefixIndex) Len() int {
	return idx.tree.Len()
}

// WithPrefix returns every word starting with prefix in lexical order.
// The prefix is case folded the same way words are.
func (idx *PrefixIndex) WithPrefix(prefix string) []WordCount {
	prefix = strings.ToLower(prefix)

	var results []WordCount
	idx.tree.WalkPrefix(prefix, func(key string, value interface{}) bool {
		results = append(results, WordCount{Word: key, Count: value.(uint64)})
		return false
	})

	slog.Debug("Prefix lookup completed",
		"prefix", prefix,
		"results_count", len(results))

	return results
}

// TopM ranks only the words starting with prefix
func (idx *PrefixIndex) TopM(prefix string, m int) []WordCount {
	return TopM(idx.WithPrefix(prefix), m)
}

