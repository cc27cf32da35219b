package counter

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"

	"github.com/zeebo/xxh3"
)

// DefaultShardCount is the shard count used when none is configured
const DefaultShardCount = 16

// shard is one independently locked partition of the global counts
type shard struct {
	mu     sync.Mutex
	counts map[string]uint64
	adds   atomic.Uint64
}

// ShardedTable is the global word count mapping split into a fixed number of
// shards, each behind its own mutex. A word always lives in the shard picked
// by ShardIndex, so no word is stored in more than one shard.
//
// Merges into different shards run in parallel; merges into the same shard
// are serialised by that shard's lock.
type ShardedTable struct {
	shards []*shard
}

// ShardStats reports the load of one shard
type ShardStats struct {
	Index int
	Words int
	Adds  uint64
}

// NewShardedTable creates a table with n shards. n < 1 selects DefaultShardCount.
func NewShardedTable(n int) *ShardedTable {
	if n < 1 {
		n = DefaultShardCount
	}
	t := &ShardedTable{shards: make([]*shard, n)}
	for i := range t.shards {
		t.shards[i] = &shard{counts: make(map[string]uint64)}
	}
	return t
}

// ShardCount returns the number of shards
func (t *ShardedTable) ShardCount() int {
	return len(t.shards)
}

// ShardIndex maps word to its shard. It depends only on the word's bytes.
func (t *ShardedTable) ShardIndex(word string) int {
	return int(xxh3.HashString(word) % uint64(len(t.shards)))
}

func (t *ShardedTable) shardFor(word string) *shard {
	idx := t.ShardIndex(word)
	if idx < 0 || idx >= len(t.shards) {
		panic(fmt.Errorf("%w: %d of %d", common.ErrShardOutOfRange, idx, len(t.shards)))
	}
	return t.shards[idx]
}

// Add adds n to word's global count
func (t *ShardedTable) Add(word string, n uint64) {
	s := t.shardFor(word)
	s.mu.Lock()
	s.counts[word] += n
	s.mu.Unlock()
	s.adds.Add(1)
}

// Merge folds a private tally into the table. At most one shard lock is held
// at any time, and it is released before the next word is handled.
func (t *ShardedTable) Merge(tally Tally) {
	for word, n := range tally {
		t.Add(word, n)
	}
}

// Get returns the global count for word
func (t *ShardedTable) Get(word string) (uint64, bool) {
	s := t.shardFor(word)
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.counts[word]
	return n, ok
}

// Len returns the number of distinct words
func (t *ShardedTable) Len() int {
	total := 0
	for _, s := range t.shards {
		s.mu.Lock()
		total += len(s.counts)
		s.mu.Unlock()
	}
	return total
}

// Total returns the sum of all counts
func (t *ShardedTable) Total() uint64 {
	var total uint64
	for _, s := range t.shards {
		s.mu.Lock()
		for _, n := range s.counts {
			total += n
		}
		s.mu.Unlock()
	}
	return total
}

// Entries flattens all shards into one unordered slice
func (t *ShardedTable) Entries() []WordCount {
	out := make([]WordCount, 0, t.Len())
	for _, s := range t.shards {
		s.mu.Lock()
		for word, n := range s.counts {
			out = append(out, WordCount{Word: word, Count: n})
		}
		s.mu.Unlock()
	}
	return out
}

// TopM returns the m highest ranked entries, see TopM
func (t *ShardedTable) TopM(m int) []WordCount {
	return TopM(t.Entries(), m)
}

// Stats reports per shard word counts and merge activity
func (t *ShardedTable) Stats() []ShardStats {
	stats := make([]ShardStats, len(t.shards))
	for i, s := range t.shards {
		s.mu.Lock()
		words := len(s.counts)
		s.mu.Unlock()
		stats[i] = ShardStats{Index: i, Words: words, Adds: s.adds.Load()}
	}
	return stats
}
