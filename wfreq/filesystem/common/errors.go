package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Common error types used across counter packages
var (
	ErrPathEmpty       = errors.New("path cannot be empty")
	ErrPathTooLong     = errors.New("path too long (max 4096 characters)")
	ErrPathInvalid     = errors.New("path contains invalid characters")
	ErrRootNotExist    = errors.New("root directory does not exist")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrQueueClosed     = errors.New("push on closed queue")
	ErrShardOutOfRange = errors.New("shard index out of range")
	ErrRunNotFound     = errors.New("run not found")
)

// ValidationUtils provides common validation utilities used across packages
type ValidationUtils struct {
	fs afero.Fs
}

// NewValidationUtils creates a new ValidationUtils instance over fs.
// A nil fs means the host filesystem.
func NewValidationUtils(fs afero.Fs) *ValidationUtils {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ValidationUtils{fs: fs}
}

// ValidateContextCancellation checks if context is cancelled and returns appropriate error
func (vu *ValidationUtils) ValidateContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// ValidateAtLeast rejects values below min with ErrInvalidConfig
func (vu *ValidationUtils) ValidateAtLeast(value, minimum int, fieldName string) error {
	if value < minimum {
		return fmt.Errorf("%w: %s must be >= %d, got %d", ErrInvalidConfig, fieldName, minimum, value)
	}
	return nil
}

// ValidatePath validates that a path is non-empty, bounded and free of NUL bytes
func (vu *ValidationUtils) ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrPathEmpty
	}
	if len(path) > 4096 {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return ErrPathInvalid
	}
	return nil
}

// ValidateDirectoryExists validates that a directory exists
func (vu *ValidationUtils) ValidateDirectoryExists(path string) error {
	if err := vu.ValidatePath(path); err != nil {
		return err
	}
	info, err := vu.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRootNotExist, path)
		}
		return fmt.Errorf("failed to access directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}
	return nil
}

// FileError records one per-file failure. It never aborts a run.
type FileError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// FailureLog collects per-file failures from concurrent workers.
type FailureLog struct {
	mu       sync.Mutex
	failures []*FileError
}

// NewFailureLog creates an empty failure log
func NewFailureLog() *FailureLog {
	return &FailureLog{}
}

// Record logs the failure and keeps it for the run result
func (fl *FailureLog) Record(op, path string, err error) {
	if err == nil {
		return
	}
	slog.Warn("Skipping file",
		"operation", op,
		"path", path,
		"error", err)

	fl.mu.Lock()
	fl.failures = append(fl.failures, &FileError{Path: path, Op: op, Err: err})
	fl.mu.Unlock()
}

// Failures returns a copy of the recorded failures
func (fl *FailureLog) Failures() []*FileError {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	out := make([]*FileError, len(fl.failures))
	copy(out, fl.failures)
	return out
}

// Len returns the number of recorded failures
func (fl *FailureLog) Len() int {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return len(fl.failures)
}

// ErrorUtils provides common error handling utilities
type ErrorUtils struct{}

// NewErrorUtils creates a new ErrorUtils instance
func NewErrorUtils() *ErrorUtils {
	return &ErrorUtils{}
}

// WrapError wraps an error with additional context
func (eu *ErrorUtils) WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", msg, err)
}
