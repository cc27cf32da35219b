// Package corpus generates synthetic, log-like text corpora whose word
// frequencies follow a skewed distribution. The output is meant as benchmark
// input for the word counter.
package corpus

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/options"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	writeBufferSize = 1 << 20
	baseTimestamp   = 1700000000
	vocabStream     = math.MaxUint64
)

var (
	levels       = []string{"INFO", "WARN", "ERROR", "DEBUG", "TRACE"}
	levelWeights = []float64{50, 15, 12, 18, 5}
	separators   = []string{" ", " ", " ", " ", " ", " - ", " | ", " : ", " :: ", ", ", "; ", "  "}
)

// FileInfo describes one generated file
type FileInfo struct {
	Index int
	Path  string
	Bytes int64
}

// Generator writes a corpus through an afero filesystem. All files share one
// vocabulary; every file draws from its own random stream, so the output
// for a given seed does not depend on the number of workers.
type Generator struct {
	fs      afero.Fs
	opts    Options
	seed    uint64
	vocab   []string
	weights []float64
}

// NewGenerator validates opts and builds the vocabulary. A nil fs means the
// host filesystem.
func NewGenerator(fs afero.Fs, opts Options) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	rng := rand.New(rand.NewPCG(seed, vocabStream))
	vocab := make([]string, opts.Vocab)
	for i := range vocab {
		vocab[i] = randomWord(rng, opts.MinWordLen, opts.MaxWordLen)
	}

	// weight of rank r is 1/r^skew
	skew := math.Max(0, opts.Skew)
	weights := make([]float64, opts.Vocab)
	for i := range weights {
		weights[i] = 1 / math.Pow(float64(i+1), skew)
	}

	return &Generator{
		fs:      fs,
		opts:    opts,
		seed:    seed,
		vocab:   vocab,
		weights: weights,
	}, nil
}

// Seed returns the effective seed
func (g *Generator) Seed() uint64 {
	return g.seed
}

// Vocabulary returns a copy of the vocabulary, most frequent word first
func (g *Generator) Vocabulary() []string {
	return slices.Clone(g.vocab)
}

// Generate writes all files into the output directory. onFile, if not nil,
// is called from the writing goroutines after each file is complete.
func (g *Generator) Generate(ctx context.Context, onFile func(FileInfo)) ([]FileInfo, error) {
	if err := g.fs.MkdirAll(g.opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", g.opts.OutDir, err)
	}

	workers := g.opts.Workers
	if workers < 1 {
		workers = options.DefaultWorkerCount()
	}
	workers = min(workers, g.opts.Files)

	slog.Info("Generating corpus",
		"out", g.opts.OutDir,
		"seed", g.seed,
		"files", g.opts.Files,
		"bytes_per_file", g.opts.TargetBytes(),
		"vocab", g.opts.Vocab,
		"skew", g.opts.Skew)

	files := make([]FileInfo, g.opts.Files)
	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError()
	for i := range g.opts.Files {
		p.Go(func(ctx context.Context) error {
			info, err := g.writeFile(ctx, i)
			if err != nil {
				return err
			}
			files[i] = info
			if onFile != nil {
				onFile(info)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// FileName returns the name of the file with the given index
func FileName(index int) string {
	return fmt.Sprintf("log_%04d.txt", index)
}

func (g *Generator) writeFile(ctx context.Context, index int) (FileInfo, error) {
	path := filepath.Join(g.opts.OutDir, FileName(index))

	f, err := g.fs.Create(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	lw := newLineWriter(g.seed, uint64(index), g.vocab, g.weights)
	bw := bufio.NewWriterSize(f, writeBufferSize)

	target := g.opts.TargetBytes()
	baseTs := uint64(baseTimestamp) + uint64(index)*12345
	line := make([]byte, 0, 512)

	var written int64
	for lines := 0; written < target; lines++ {
		if lines%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return FileInfo{}, err
			}
		}

		line = lw.appendLine(line[:0], baseTs+uint64(written)/200)
		// the last line is cut so the file is exactly target bytes
		if remaining := target - written; int64(len(line)) > remaining {
			line = line[:remaining]
		}
		n, err := bw.Write(line)
		written += int64(n)
		if err != nil {
			return FileInfo{}, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return FileInfo{}, fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return FileInfo{}, fmt.Errorf("failed to close %s: %w", path, err)
	}

	slog.Debug("Wrote corpus file", "path", path, "bytes", written)
	return FileInfo{Index: index, Path: path, Bytes: written}, nil
}

func randomWord(rng *rand.Rand, minLen, maxLen int) string {
	n := minLen + rng.IntN(maxLen-minLen+1)
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + rng.IntN(26))
	}
	return string(b)
}

// lineWriter produces the lines of one file from its own random stream
type lineWriter struct {
	rng   *rand.Rand
	vocab []string
	pick  distuv.Categorical
	level distuv.Categorical
}

func newLineWriter(seed, stream uint64, vocab []string, weights []float64) *lineWriter {
	src := rand.NewPCG(seed, stream)
	return &lineWriter{
		rng:   rand.New(src),
		vocab: vocab,
		pick:  distuv.NewCategorical(weights, src),
		level: distuv.NewCategorical(levelWeights, src),
	}
}

func (lw *lineWriter) between(lo, hi int) int {
	return lo + lw.rng.IntN(hi-lo+1)
}

func (lw *lineWriter) word() string {
	return lw.vocab[int(lw.pick.Rand())]
}

func (lw *lineWriter) separator(b []byte) []byte {
	return append(b, separators[lw.rng.IntN(len(separators))]...)
}

// mutate leaves 70% of words alone and adds log noise to the rest:
// a numeric suffix, an inserted digit or a capital first letter
func (lw *lineWriter) mutate(b []byte, word string) []byte {
	x := lw.rng.IntN(100)
	switch {
	case x < 70:
		return append(b, word...)
	case x < 80:
		b = append(b, word...)
		b = append(b, '_')
		return strconv.AppendInt(b, int64(lw.rng.IntN(10000)), 10)
	case x < 90:
		pos := lw.rng.IntN(len(word))
		b = append(b, word[:pos]...)
		b = append(b, byte('0'+lw.rng.IntN(10)))
		return append(b, word[pos:]...)
	default:
		b = append(b, word[0]-'a'+'A')
		return append(b, word[1:]...)
	}
}

func (lw *lineWriter) appendLine(b []byte, ts uint64) []byte {
	b = strconv.AppendUint(b, ts, 10)
	b = lw.separator(b)
	b = append(b, levels[int(lw.level.Rand())]...)
	b = lw.separator(b)

	b = append(b, "ip="...)
	for i := range 4 {
		if i > 0 {
			b = append(b, '.')
		}
		b = strconv.AppendInt(b, int64(lw.between(1, 254)), 10)
	}
	b = lw.separator(b)
	b = append(b, "code="...)
	b = strconv.AppendInt(b, int64(lw.between(100, 599)), 10)
	b = lw.separator(b)

	words := lw.between(6, 18)
	for i := range words {
		b = lw.mutate(b, lw.word())

		if lw.rng.IntN(100) < 6 {
			b = lw.separator(b)
			b = append(b, "/api/v1/"...)
			b = append(b, lw.word()...)
			b = append(b, '/')
			b = append(b, lw.word()...)
			b = append(b, "?id="...)
			b = strconv.AppendInt(b, int64(lw.between(1, 2000000)), 10)
		}

		if i+1 < words {
			if lw.rng.IntN(100) < 12 {
				b = append(b, ", "...)
			} else {
				b = append(b, ' ')
			}
		}
	}

	b = lw.separator(b)
	b = append(b, "user_"...)
	b = strconv.AppendInt(b, int64(lw.between(1, 2000000)), 10)
	b = lw.separator(b)
	b = append(b, "[tag_"...)
	b = strconv.AppendInt(b, int64(lw.between(1, 2000000)%1000), 10)
	b = append(b, "]\n"...)
	return b
}
