package wordcount

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/config"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/counter"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/store"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedFs refuses to open a single file
type lockedFs struct {
	afero.Fs
	path string
}

func (l lockedFs) Open(name string) (afero.File, error) {
	if name == l.path {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return l.Fs.Open(name)
}

func testConfig(root string) config.CounterConfig {
	return config.CounterConfig{
		Root:       root,
		Threads:    2,
		TopM:       10,
		MinWordLen: 1,
		Shards:     16,
		MaxDepth:   -1,
		IgnoreFile: ".wordfreqignore",
	}
}

func writeCorpus(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func TestRunTwoFileScenario(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCorpus(t, fs, map[string]string{
		"/corpus/a.txt": "foo foo bar",
		"/corpus/b.txt": "bar baz foo",
	})

	cfg := testConfig("/corpus")
	cfg.TopM = 2

	result, err := New(cfg, fs).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []counter.WordCount{{Word: "foo", Count: 3}, {Word: "bar", Count: 2}}, result.Ranked)
	assert.Equal(t, 3, result.Distinct)
	assert.Equal(t, uint64(6), result.TotalWords)
	assert.Equal(t, uint64(2), result.FilesQueued)
	assert.Equal(t, int64(2), result.Metrics.FilesRead)
	assert.Empty(t, result.Failures)
	assert.NotEqual(t, [16]byte{}, [16]byte(result.RunID))
	assert.False(t, result.Archived)

	require.Len(t, result.Shards, 16)
	words := 0
	for _, s := range result.Shards {
		words += s.Words
	}
	assert.Equal(t, result.Distinct, words)
}

func TestRunLogsLoadAtDebug(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	fs := afero.NewMemMapFs()
	writeCorpus(t, fs, map[string]string{"/corpus/a.txt": "foo foo bar\n"})

	_, err := New(testConfig("/corpus"), fs).Run(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Run load")
	assert.Contains(t, out, "shard_max_words=")
	assert.Contains(t, out, "total_bytes=12")
	assert.Contains(t, out, "successful_ops=1")
}

func TestRunCountsSymlinkedFiles(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "corpus")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("bar baz foo"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "a.txt"), []byte("foo foo bar"), 0o644))
	if err := os.Symlink(filepath.Join(base, "a.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	cfg := testConfig(root)
	cfg.TopM = 2

	result, err := New(cfg, afero.NewOsFs()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []counter.WordCount{{Word: "foo", Count: 3}, {Word: "bar", Count: 2}}, result.Ranked)
	assert.Equal(t, uint64(2), result.FilesQueued)
	assert.Empty(t, result.Failures)
}

func TestRunIndependentOfThreadCount(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := make(map[string]string)
	for i := range 40 {
		dir := fmt.Sprintf("/corpus/d%d", i%5)
		files[filepath.Join(dir, fmt.Sprintf("f%02d.txt", i))] = fmt.Sprintf("alpha beta w%d\ngamma alpha w%d\nTail_%d", i%7, i%3, i%4)
	}
	writeCorpus(t, fs, files)

	var baseline []counter.WordCount
	for _, threads := range []int{1, 2, 3, 8, 16} {
		t.Run(fmt.Sprintf("threads=%d", threads), func(t *testing.T) {
			cfg := testConfig("/corpus")
			cfg.Threads = threads
			cfg.TopM = 100

			result, err := New(cfg, fs).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, uint64(40), result.FilesQueued)

			if baseline == nil {
				baseline = result.Ranked
				return
			}
			assert.Equal(t, baseline, result.Ranked)
		})
	}
}

func TestRunTopMBoundedByDistinct(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCorpus(t, fs, map[string]string{"/corpus/a.txt": "one two two three three three"})

	result, err := New(testConfig("/corpus"), fs).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []counter.WordCount{
		{Word: "three", Count: 3},
		{Word: "two", Count: 2},
		{Word: "one", Count: 1},
	}, result.Ranked)
}

func TestRunMinWordLen(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCorpus(t, fs, map[string]string{"/corpus/a.txt": "a bee cat dogs"})

	cfg := testConfig("/corpus")
	cfg.MinWordLen = 4

	result, err := New(cfg, fs).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []counter.WordCount{{Word: "dogs", Count: 1}}, result.Ranked)
}

func TestRunSkipsUnreadableFile(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeCorpus(t, mem, map[string]string{
		"/corpus/a.txt":      "foo foo bar",
		"/corpus/b.txt":      "bar baz foo",
		"/corpus/locked.txt": "foo foo foo foo",
	})

	result, err := New(testConfig("/corpus"), lockedFs{Fs: mem, path: "/corpus/locked.txt"}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []counter.WordCount{
		{Word: "foo", Count: 3},
		{Word: "bar", Count: 2},
		{Word: "baz", Count: 1},
	}, result.Ranked)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "/corpus/locked.txt", result.Failures[0].Path)
	assert.Equal(t, "open", result.Failures[0].Op)
	assert.ErrorIs(t, result.Failures[0], os.ErrPermission)
	assert.Equal(t, uint64(3), result.FilesQueued)
	assert.Equal(t, int64(1), result.Metrics.FilesFailed)
}

func TestRunHonoursIgnoreRules(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCorpus(t, fs, map[string]string{
		"/corpus/a.txt":           "keep",
		"/corpus/skip.log":        "dropped dropped",
		"/corpus/vendor/lib.txt":  "dropped",
		"/corpus/.wordfreqignore": "*.log\n",
	})

	cfg := testConfig("/corpus")
	cfg.Ignore = []string{"vendor/"}

	result, err := New(cfg, fs).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []counter.WordCount{{Word: "keep", Count: 1}}, result.Ranked)
	assert.Equal(t, uint64(1), result.FilesQueued)
}

func TestRunEmptyRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/empty", 0o755))

	result, err := New(testConfig("/empty"), fs).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Ranked)
	assert.Zero(t, result.Distinct)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/corpus", 0o755))

	tests := []struct {
		name   string
		mutate func(c *config.CounterConfig)
	}{
		{"zero threads", func(c *config.CounterConfig) { c.Threads = 0 }},
		{"zero top", func(c *config.CounterConfig) { c.TopM = 0 }},
		{"zero min length", func(c *config.CounterConfig) { c.MinWordLen = 0 }},
		{"missing root", func(c *config.CounterConfig) { c.Root = "/missing" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("/corpus")
			tt.mutate(&cfg)

			var progressed atomic.Int64
			result, err := New(cfg, fs, WithProgress(func(string) { progressed.Add(1) })).Run(context.Background())
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
			assert.Nil(t, result)
			assert.Zero(t, progressed.Load())
		})
	}
}

func TestRunCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCorpus(t, fs, map[string]string{"/corpus/a.txt": "foo"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(testConfig("/corpus"), fs).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestRunProgressCallback(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCorpus(t, fs, map[string]string{
		"/corpus/a.txt":     "a",
		"/corpus/b.txt":     "b",
		"/corpus/sub/c.txt": "c",
	})

	var calls atomic.Int64
	_, err := New(testConfig("/corpus"), fs, WithProgress(func(string) { calls.Add(1) })).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestRunArchivesResult(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCorpus(t, fs, map[string]string{
		"/corpus/a.txt": "foo foo bar",
		"/corpus/b.txt": "bar baz foo",
	})

	runs := store.NewMemoryStore()
	cfg := testConfig("/corpus")
	cfg.TopM = 2
	c := New(cfg, fs, WithStore(runs), WithTraversalWorkers(2))

	result, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Archived)

	record, err := runs.Load(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.Ranked, record.Ranked)
	assert.Equal(t, "/corpus", record.Root)
	assert.Equal(t, 2, record.TopM)
	assert.Equal(t, int64(2), record.FilesRead)
	assert.Equal(t, uint64(6), record.TotalWords)
}

func TestCounterRunsTwice(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCorpus(t, fs, map[string]string{"/corpus/a.txt": "foo foo"})

	c := New(testConfig("/corpus"), fs)
	first, err := c.Run(context.Background())
	require.NoError(t, err)
	second, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Ranked, second.Ranked)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunPrefixFilter(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCorpus(t, fs, map[string]string{
		"/corpus/a.txt": "error errno error warn err",
		"/corpus/b.txt": "ERROR info errno",
	})

	cfg := testConfig("/corpus")
	cfg.Prefix = "Err"
	cfg.TopM = 2

	result, err := New(cfg, fs).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []counter.WordCount{
		{Word: "error", Count: 3},
		{Word: "errno", Count: 2},
	}, result.Ranked)
	assert.Equal(t, 5, result.Distinct)
}

func TestRunDocumentFrequencies(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCorpus(t, fs, map[string]string{
		"/corpus/a.txt": "foo foo bar",
		"/corpus/b.txt": "bar baz foo",
	})

	cfg := testConfig("/corpus")
	cfg.TopM = 2
	cfg.DocFreq = true

	result, err := New(cfg, fs).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []counter.WordCount{
		{Word: "foo", Count: 3, Files: 2},
		{Word: "bar", Count: 2, Files: 2},
	}, result.Ranked)
}
