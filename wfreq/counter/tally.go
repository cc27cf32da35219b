package counter

// WordCount is one word and how often it occurred. Files is the number of
// files containing the word; it is only filled in when document frequencies
// are tracked.
type WordCount struct {
	Word  string `json:"word"`
	Count uint64 `json:"count"`
	Files uint64 `json:"files,omitempty"`
}

// Tally is a worker private word count mapping. It is never shared and never
// locked; its owner merges it into a ShardedTable exactly once.
type Tally map[string]uint64

// NewTally creates an empty tally
func NewTally() Tally {
	return make(Tally)
}

// Add increments word by n
func (t Tally) Add(word string, n uint64) {
	t[word] += n
}

// Total returns the sum of all counts
func (t Tally) Total() uint64 {
	var total uint64
	for _, n := range t {
		total += n
	}
	return total
}
