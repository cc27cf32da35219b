package corpus

import (
	"fmt"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"
)

const (
	DefaultOutDir     = "test_logs"
	DefaultFiles      = 20
	DefaultMiBPerFile = 5
	DefaultVocab      = 2000
	DefaultSkew       = 1.2
	DefaultMinWordLen = 3
	DefaultMaxWordLen = 12
)

// Options configures corpus generation
type Options struct {
	OutDir     string
	Files      int
	MiBPerFile int
	// BytesPerFile overrides MiBPerFile when positive
	BytesPerFile int64
	Vocab        int
	// Skew is the Zipf-like exponent: 0 is uniform, 1..2 strongly skewed.
	// Negative values behave like 0.
	Skew float64
	// Seed 0 picks a time based seed
	Seed       uint64
	MinWordLen int
	MaxWordLen int
	// Workers bounds how many files are written at once
	Workers int
}

// DefaultOptions returns the generator defaults
func DefaultOptions() Options {
	return Options{
		OutDir:     DefaultOutDir,
		Files:      DefaultFiles,
		MiBPerFile: DefaultMiBPerFile,
		Vocab:      DefaultVocab,
		Skew:       DefaultSkew,
		MinWordLen: DefaultMinWordLen,
		MaxWordLen: DefaultMaxWordLen,
	}
}

// TargetBytes is the exact size of every generated file
func (o Options) TargetBytes() int64 {
	if o.BytesPerFile > 0 {
		return o.BytesPerFile
	}
	return int64(o.MiBPerFile) << 20
}

// Validate rejects option sets that cannot produce a corpus
func (o Options) Validate() error {
	vu := common.NewValidationUtils(nil)
	if err := vu.ValidatePath(o.OutDir); err != nil {
		return fmt.Errorf("%w: out: %w", common.ErrInvalidConfig, err)
	}
	if o.Files <= 0 || o.Vocab <= 0 || o.TargetBytes() <= 0 {
		return fmt.Errorf("%w: files/mib/vocab must be > 0", common.ErrInvalidConfig)
	}
	if o.MinWordLen < 1 || o.MaxWordLen < o.MinWordLen {
		return fmt.Errorf("%w: invalid minlen/maxlen %d/%d", common.ErrInvalidConfig, o.MinWordLen, o.MaxWordLen)
	}
	return nil
}
