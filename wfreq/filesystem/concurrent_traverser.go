// Package filesystem discovers the input files of a run: a breadth first,
// level concurrent directory walk that applies gitignore style rules.
package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/options"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// FileHandler receives every regular file found during traversal.
// HandleFile may be called from several goroutines at once.
type FileHandler interface {
	HandleFile(path string) error
}

// FileHandlerFunc adapts a function to FileHandler
type FileHandlerFunc func(path string) error

// HandleFile calls f(path)
func (f FileHandlerFunc) HandleFile(path string) error {
	return f(path)
}

// IgnoreChecker decides whether a root relative, slash separated path is skipped
type IgnoreChecker interface {
	MatchesPath(path string) bool
}

// ConcurrentTraverser walks a directory tree level by level, reading the
// directories of one level concurrently on a bounded conc pool, and hands
// every regular file to a FileHandler.
type ConcurrentTraverser struct {
	fs     afero.Fs
	vu     *common.ValidationUtils
	opts   options.TraversalOptions
	ctx    context.Context
	cancel context.CancelFunc
}

// ignoreRules is what LoadIgnore produced for one root. file is the root
// relative ignore file name, set only when that file was actually read.
type ignoreRules struct {
	checker IgnoreChecker
	file    string
}

// TraversalResult contains the result of processing a directory
type TraversalResult struct {
	Path     string
	Children []string
	Files    int
	Ignored  int
	Error    error
}

// TraversalStats tracks performance metrics during traversal
type TraversalStats struct {
	DirsProcessed  int64
	FilesProcessed int64
	FilesIgnored   int64
	ErrorsFound    int64
	StartTime      int64
	EndTime        int64
}

// NewConcurrentTraverser creates a new concurrent directory traverser over fs.
// A nil fs means the host filesystem; a WorkerCount below 1 is replaced by
// options.DefaultWorkerCount.
func NewConcurrentTraverser(ctx context.Context, fs afero.Fs, opts options.TraversalOptions) *ConcurrentTraverser {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if opts.WorkerCount < 1 {
		opts.WorkerCount = options.DefaultWorkerCount()
	}

	ctxWithCancel, cancel := context.WithCancel(ctx)

	return &ConcurrentTraverser{
		fs:     fs,
		vu:     common.NewValidationUtils(fs),
		opts:   opts,
		ctx:    ctxWithCancel,
		cancel: cancel,
	}
}

// TraverseDirectory hands every regular file under rootPath to handler.
// Unreadable subdirectories are logged, counted and skipped; an unreadable
// root or a cancelled context is returned as an error. A symlink to a
// regular file is handed on under the link's own path; symlinked
// directories and other non-regular entries are skipped.
func (ct *ConcurrentTraverser) TraverseDirectory(rootPath string, handler FileHandler) (*TraversalStats, error) {
	timeUtils := common.NewTimeUtils()
	stats := &TraversalStats{
		StartTime: timeUtils.GetCurrentTime(),
	}

	if err := ct.vu.ValidateDirectoryExists(rootPath); err != nil {
		return stats, err
	}

	ignored, err := ct.loadIgnore(rootPath)
	if err != nil {
		slog.Warn("Failed to load ignore patterns",
			"path", rootPath,
			"error", err)
	}

	currentLevel := []string{rootPath}

	for depth := 0; len(currentLevel) > 0; depth++ {
		descend := ct.opts.DescendInto(depth)

		nextLevel := make([]string, 0)
		var nextLevelMu sync.Mutex

		// Create a new pool for this level to avoid reusing closed pools
		levelPool := pool.New().WithMaxGoroutines(ct.opts.WorkerCount).WithContext(ct.ctx)

		for _, dir := range currentLevel {
			levelPool.Go(func(ctx context.Context) error {
				result := ct.processDirectory(ctx, rootPath, dir, ignored, handler)

				if result.Error != nil {
					atomic.AddInt64(&stats.ErrorsFound, 1)
					slog.Error("Error processing directory",
						"path", result.Path,
						"error", result.Error)
					if depth == 0 {
						return result.Error
					}
					return nil
				}

				atomic.AddInt64(&stats.DirsProcessed, 1)
				atomic.AddInt64(&stats.FilesProcessed, int64(result.Files))
				atomic.AddInt64(&stats.FilesIgnored, int64(result.Ignored))

				if descend {
					nextLevelMu.Lock()
					nextLevel = append(nextLevel, result.Children...)
					nextLevelMu.Unlock()
				}
				return nil
			})
		}

		if err := levelPool.Wait(); err != nil {
			stats.EndTime = timeUtils.GetCurrentTime()
			return stats, err
		}
		if err := ct.ctx.Err(); err != nil {
			stats.EndTime = timeUtils.GetCurrentTime()
			return stats, err
		}

		currentLevel = nextLevel
	}

	stats.EndTime = timeUtils.GetCurrentTime()
	ct.logPerformanceStats(stats)

	return stats, nil
}

// processDirectory reads one directory, hands its regular files to handler
// and returns its subdirectories
func (ct *ConcurrentTraverser) processDirectory(ctx context.Context, rootPath, dir string, ignored ignoreRules, handler FileHandler) TraversalResult {
	result := TraversalResult{Path: dir}

	if err := ct.vu.ValidateContextCancellation(ctx); err != nil {
		result.Error = err
		return result
	}

	entries, err := afero.ReadDir(ct.fs, dir)
	if err != nil {
		result.Error = fmt.Errorf("failed to read directory %s: %w", dir, err)
		return result
	}

	for _, entry := range entries {
		childPath := filepath.Join(dir, entry.Name())

		if ct.isIgnored(rootPath, childPath, entry, ignored) {
			slog.Debug("Ignoring path", "path", childPath)
			result.Ignored++
			continue
		}

		switch {
		case entry.Mode()&os.ModeSymlink != 0:
			if ct.isFileLink(childPath) {
				result.Files++
				ct.handle(handler, childPath)
			}
		case entry.IsDir():
			result.Children = append(result.Children, childPath)
		case entry.Mode().IsRegular():
			result.Files++
			ct.handle(handler, childPath)
		default:
			slog.Debug("Skipping non-regular file",
				"path", childPath,
				"mode", entry.Mode().String())
		}
	}

	return result
}

func (ct *ConcurrentTraverser) handle(handler FileHandler, path string) {
	if err := handler.HandleFile(path); err != nil {
		slog.Warn("Handler error for file",
			"path", path,
			"error", err)
	}
}

// isFileLink follows the symlink at path and reports whether it ends in a
// regular file. Dangling links and links to directories are not followed.
func (ct *ConcurrentTraverser) isFileLink(path string) bool {
	target, err := ct.fs.Stat(path)
	if err != nil {
		slog.Debug("Skipping dangling symlink",
			"path", path,
			"error", err)
		return false
	}
	if !target.Mode().IsRegular() {
		slog.Debug("Skipping symlink to non-regular file",
			"path", path,
			"mode", target.Mode().String())
		return false
	}
	return true
}

func (ct *ConcurrentTraverser) isIgnored(rootPath, childPath string, entry os.FileInfo, ignored ignoreRules) bool {
	rel, err := filepath.Rel(rootPath, childPath)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	// a loaded ignore file is configuration, not input
	if ignored.file != "" && rel == ignored.file {
		return true
	}
	if ignored.checker == nil {
		return false
	}
	if entry.IsDir() {
		return ignored.checker.MatchesPath(rel) || ignored.checker.MatchesPath(rel+"/")
	}
	return ignored.checker.MatchesPath(rel)
}

// LoadIgnore compiles the root's ignore file together with the configured
// patterns. It returns nil when there is nothing to ignore.
func (ct *ConcurrentTraverser) LoadIgnore(rootPath string) (IgnoreChecker, error) {
	rules, err := ct.loadIgnore(rootPath)
	return rules.checker, err
}

func (ct *ConcurrentTraverser) loadIgnore(rootPath string) (ignoreRules, error) {
	var rules ignoreRules
	lines := append([]string(nil), ct.opts.IgnorePatterns...)

	var readErr error
	if ct.opts.IgnoreFile != "" {
		ignorePath := filepath.Join(rootPath, ct.opts.IgnoreFile)
		data, err := afero.ReadFile(ct.fs, ignorePath)
		switch {
		case err == nil:
			rules.file = filepath.ToSlash(ct.opts.IgnoreFile)
			lines = append(lines, strings.Split(string(data), "\n")...)
		case os.IsNotExist(err):
		default:
			readErr = fmt.Errorf("error reading %s: %w", ignorePath, err)
		}
	}

	if len(lines) > 0 {
		rules.checker = ignore.CompileIgnoreLines(lines...)
	}
	return rules, readErr
}

// logPerformanceStats logs traversal performance metrics
func (ct *ConcurrentTraverser) logPerformanceStats(stats *TraversalStats) {
	duration := stats.EndTime - stats.StartTime
	dirsProcessed := atomic.LoadInt64(&stats.DirsProcessed)
	filesProcessed := atomic.LoadInt64(&stats.FilesProcessed)
	errors := atomic.LoadInt64(&stats.ErrorsFound)

	attrs := []any{
		"dirs", dirsProcessed,
		"files", filesProcessed,
		"ignored", atomic.LoadInt64(&stats.FilesIgnored),
		"duration_ms", duration,
		"errors", errors,
	}
	if duration > 0 {
		attrs = append(attrs, "files_per_sec", float64(filesProcessed)/float64(duration)*1000)
	}
	slog.Info("Traversal completed", attrs...)
}

// Cleanup releases resources used by the traverser
func (ct *ConcurrentTraverser) Cleanup() {
	if ct.cancel != nil {
		ct.cancel()
	}
}
