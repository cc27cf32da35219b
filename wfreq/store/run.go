package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/counter"

	"github.com/google/uuid"
)

// RunRecord is one archived counting run
type RunRecord struct {
	ID         uuid.UUID
	StartedAt  time.Time
	Duration   time.Duration
	Root       string
	Threads    int
	TopM       int
	MinWordLen int
	Shards     int
	Distinct   int
	TotalWords uint64
	FilesRead  int64
	Failures   int
	Ranked     []counter.WordCount
}

type runJSON struct {
	ID         string              `json:"id"`
	StartedAt  string              `json:"started_at"`
	DurationNs int64               `json:"duration_ns"`
	Root       string              `json:"root"`
	Threads    int                 `json:"threads"`
	TopM       int                 `json:"top"`
	MinWordLen int                 `json:"min_len"`
	Shards     int                 `json:"shards"`
	Distinct   int                 `json:"distinct"`
	TotalWords uint64              `json:"total_words"`
	FilesRead  int64               `json:"files_read"`
	Failures   int                 `json:"failures"`
	Ranked     []counter.WordCount `json:"ranked"`
}

func (r *RunRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(runJSON{
		ID:         r.ID.String(),
		StartedAt:  r.StartedAt.UTC().Format(time.RFC3339Nano),
		DurationNs: int64(r.Duration),
		Root:       r.Root,
		Threads:    r.Threads,
		TopM:       r.TopM,
		MinWordLen: r.MinWordLen,
		Shards:     r.Shards,
		Distinct:   r.Distinct,
		TotalWords: r.TotalWords,
		FilesRead:  r.FilesRead,
		Failures:   r.Failures,
		Ranked:     r.Ranked,
	})
}

func (r *RunRecord) UnmarshalJSON(data []byte) error {
	var raw runJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("error unmarshalling run: %w", err)
	}

	id, err := uuid.Parse(raw.ID)
	if err != nil {
		return fmt.Errorf("error parsing run id: %w", err)
	}
	startedAt, err := time.Parse(time.RFC3339Nano, raw.StartedAt)
	if err != nil {
		return fmt.Errorf("error parsing time: %w", err)
	}

	*r = RunRecord{
		ID:         id,
		StartedAt:  startedAt,
		Duration:   time.Duration(raw.DurationNs),
		Root:       raw.Root,
		Threads:    raw.Threads,
		TopM:       raw.TopM,
		MinWordLen: raw.MinWordLen,
		Shards:     raw.Shards,
		Distinct:   raw.Distinct,
		TotalWords: raw.TotalWords,
		FilesRead:  raw.FilesRead,
		Failures:   raw.Failures,
		Ranked:     raw.Ranked,
	}
	return nil
}
