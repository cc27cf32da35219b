package common

import (
	"fmt"
	"sync"
	"time"
)

// PerformanceMetrics defines the interface for performance tracking
type PerformanceMetrics interface {
	GetMetrics() map[string]interface{}
}

// BaseMetrics provides common fields used across different metrics types
type BaseMetrics struct {
	TotalOperations int64
	SuccessfulOps   int64
	FailedOps       int64
	LastOperation   time.Time
	Mu              sync.RWMutex
}

// UpdateBaseMetrics updates common metrics fields
func (bm *BaseMetrics) UpdateBaseMetrics(success bool) {
	bm.Mu.Lock()
	defer bm.Mu.Unlock()
	bm.updateLocked(success)
}

func (bm *BaseMetrics) updateLocked(success bool) {
	bm.TotalOperations++
	if success {
		bm.SuccessfulOps++
	} else {
		bm.FailedOps++
	}
	bm.LastOperation = time.Now()
}

// GetBaseMetrics returns the common metrics as a map
func (bm *BaseMetrics) GetBaseMetrics() map[string]interface{} {
	bm.Mu.RLock()
	defer bm.Mu.RUnlock()

	return map[string]interface{}{
		"total_operations": bm.TotalOperations,
		"successful_ops":   bm.SuccessfulOps,
		"failed_ops":       bm.FailedOps,
		"last_operation":   bm.LastOperation,
	}
}

// FileReadMetrics tracks how much input the workers consumed.
// One operation is one file.
type FileReadMetrics struct {
	BaseMetrics
	TotalBytes int64
	TotalLines int64
	TotalWords int64
	ReadTime   time.Duration
}

// RecordFile folds the outcome of one consumed file into the metrics
func (fm *FileReadMetrics) RecordFile(start time.Time, success bool, bytes, lines, words int64) {
	elapsed := time.Since(start)

	fm.Mu.Lock()
	defer fm.Mu.Unlock()

	fm.updateLocked(success)
	fm.TotalBytes += bytes
	fm.TotalLines += lines
	fm.TotalWords += words
	fm.ReadTime += elapsed
}

// Snapshot returns a consistent copy of the counters
func (fm *FileReadMetrics) Snapshot() FileReadSnapshot {
	fm.Mu.RLock()
	defer fm.Mu.RUnlock()

	return FileReadSnapshot{
		Files:       fm.TotalOperations,
		FilesRead:   fm.SuccessfulOps,
		FilesFailed: fm.FailedOps,
		Bytes:       fm.TotalBytes,
		Lines:       fm.TotalLines,
		Words:       fm.TotalWords,
		ReadTime:    fm.ReadTime,
	}
}

// GetMetrics returns file read metrics as a map
func (fm *FileReadMetrics) GetMetrics() map[string]interface{} {
	metrics := fm.GetBaseMetrics()
	s := fm.Snapshot()
	metrics["total_bytes"] = s.Bytes
	metrics["total_lines"] = s.Lines
	metrics["total_words"] = s.Words
	metrics["read_time"] = s.ReadTime
	return metrics
}

// FileReadSnapshot is a point in time copy of FileReadMetrics
type FileReadSnapshot struct {
	Files       int64
	FilesRead   int64
	FilesFailed int64
	Bytes       int64
	Lines       int64
	Words       int64
	ReadTime    time.Duration
}

// TimeUtils provides time-related utilities used across packages
type TimeUtils struct{}

// NewTimeUtils creates a new TimeUtils instance
func NewTimeUtils() *TimeUtils {
	return &TimeUtils{}
}

// GetCurrentTime returns current time in milliseconds for performance tracking
func (tu TimeUtils) GetCurrentTime() int64 {
	return time.Now().UnixMilli()
}

// FormatDuration formats a duration for human-readable display
func (tu TimeUtils) FormatDuration(duration time.Duration) string {
	if duration < time.Millisecond {
		return fmt.Sprintf("%.2fµs", float64(duration.Nanoseconds())/1000)
	} else if duration < time.Second {
		return fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1000000)
	} else if duration < time.Minute {
		return fmt.Sprintf("%.2fs", duration.Seconds())
	} else if duration < time.Hour {
		return fmt.Sprintf("%.2fm", duration.Minutes())
	} else {
		return fmt.Sprintf("%.2fh", duration.Hours())
	}
}
