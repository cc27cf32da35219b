package options

import (
	"runtime"

	internal "github.com/ZanzyTHEbar/wordfreq/wfreq"
)

// TraversalOptions configures directory traversal operations
type TraversalOptions struct {
	Recursive      bool     // Traverse directories recursively
	MaxDepth       int      // Maximum directory depth below the root (-1 = unlimited)
	WorkerCount    int      // Number of directories read concurrently
	IgnoreFile     string   // Gitignore-style file looked up in the root ("" = none)
	IgnorePatterns []string // Extra gitignore-style patterns
}

// DefaultTraversalOptions returns sensible defaults for traversal operations
func DefaultTraversalOptions() TraversalOptions {
	return TraversalOptions{
		Recursive:   true,
		MaxDepth:    -1,
		WorkerCount: DefaultWorkerCount(),
		IgnoreFile:  internal.DefaultIgnoreFile,
	}
}

// DefaultWorkerCount sizes directory readers for I/O bound work:
// CPU cores * 2, at least 4 and at most 32.
func DefaultWorkerCount() int {
	return min(max(runtime.NumCPU()*2, 4), 32)
}

// DescendInto reports whether directories found at depth should be read.
// The root is depth 0.
func (o TraversalOptions) DescendInto(depth int) bool {
	if !o.Recursive {
		return false
	}
	return o.MaxDepth == -1 || depth < o.MaxDepth
}
