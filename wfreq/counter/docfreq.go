package counter

import (
	"sync"
	"sync/atomic"

	roaring "github.com/RoaringBitmap/roaring"
	"github.com/zeebo/xxh3"
)

// DocSets maps a word to the IDs of the files it occurs in. Like Tally it is
// private to one worker until merged.
type DocSets map[string]*roaring.Bitmap

// Add marks word as present in file id
func (d DocSets) Add(word string, id uint32) {
	bm, ok := d[word]
	if !ok {
		bm = roaring.New()
		d[word] = bm
	}
	bm.Add(id)
}

type docShard struct {
	mu   sync.Mutex
	sets map[string]*roaring.Bitmap
}

// DocIndex records, per word, the set of files containing it. It is sharded
// with the same hash as ShardedTable so a merge holds one lock at a time.
type DocIndex struct {
	shards []*docShard
	nextID atomic.Uint32
}

// NewDocIndex creates an index with n shards. n < 1 selects DefaultShardCount.
func NewDocIndex(n int) *DocIndex {
	if n < 1 {
		n = DefaultShardCount
	}
	d := &DocIndex{shards: make([]*docShard, n)}
	for i := range d.shards {
		d.shards[i] = &docShard{sets: make(map[string]*roaring.Bitmap)}
	}
	return d
}

// NextFileID hands out a run unique file id. Safe for concurrent use.
func (d *DocIndex) NextFileID() uint32 {
	return d.nextID.Add(1) - 1
}

// Files returns the number of ids handed out
func (d *DocIndex) Files() uint32 {
	return d.nextID.Load()
}

func (d *DocIndex) shardFor(word string) *docShard {
	return d.shards[xxh3.HashString(word)%uint64(len(d.shards))]
}

// Merge unions a worker's private sets into the index
func (d *DocIndex) Merge(sets DocSets) {
	for word, bm := range sets {
		s := d.shardFor(word)
		s.mu.Lock()
		if existing, ok := s.sets[word]; ok {
			existing.Or(bm)
		} else {
			s.sets[word] = bm
		}
		s.mu.Unlock()
	}
}

// DocFreq returns how many files contain word
func (d *DocIndex) DocFreq(word string) uint64 {
	s := d.shardFor(word)
	s.mu.Lock()
	defer s.mu.Unlock()
	bm, ok := s.sets[word]
	if !ok {
		return 0
	}
	return bm.GetCardinality()
}

// Annotate fills in the Files field of every entry
func (d *DocIndex) Annotate(entries []WordCount) {
	for i := range entries {
		entries[i].Files = d.DocFreq(entries[i].Word)
	}
}
