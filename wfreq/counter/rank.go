package counter

import (
	"cmp"
	"slices"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// Compare orders entries by count descending, then word ascending.
// It returns a negative number when a ranks before b.
func Compare(a, b WordCount) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	return cmp.Compare(a.Word, b.Word)
}

// TopM selects the min(m, len(entries)) highest ranked entries and returns
// them in rank order. Words are assumed to be unique in entries. m < 1
// yields nil. entries is not modified.
//
// Only m entries are kept at any time: a heap whose root is the lowest
// ranked survivor is challenged by every remaining entry.
func TopM(entries []WordCount, m int) []WordCount {
	if m < 1 || len(entries) == 0 {
		return nil
	}

	if m >= len(entries) {
		out := slices.Clone(entries)
		slices.SortFunc(out, Compare)
		return out
	}

	// root = entry that ranks last
	h := binaryheap.NewWith(func(a, b interface{}) int {
		return Compare(b.(WordCount), a.(WordCount))
	})

	for _, e := range entries {
		if h.Size() < m {
			h.Push(e)
			continue
		}
		worst, _ := h.Peek()
		if Compare(e, worst.(WordCount)) < 0 {
			h.Pop()
			h.Push(e)
		}
	}

	out := make([]WordCount, h.Size())
	for i := len(out) - 1; i >= 0; i-- {
		v, _ := h.Pop()
		out[i] = v.(WordCount)
	}
	return out
}
