package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/counter"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func sampleRun(startedAt time.Time) *RunRecord {
	return &RunRecord{
		ID:         uuid.New(),
		StartedAt:  startedAt,
		Duration:   1500 * time.Millisecond,
		Root:       "/corpus",
		Threads:    4,
		TopM:       2,
		MinWordLen: 1,
		Shards:     16,
		Distinct:   2,
		TotalWords: 5,
		FilesRead:  2,
		Ranked: []counter.WordCount{
			{Word: "foo", Count: 3},
			{Word: "bar", Count: 2},
		},
	}
}

// stores runs the same contract against every RunStore implementation
func stores() map[string]func(t *testing.T) RunStore {
	return map[string]func(t *testing.T) RunStore{
		"bolt": func(t *testing.T) RunStore {
			s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
			require.NoError(t, err)
			return s
		},
		"memory": func(*testing.T) RunStore { return NewMemoryStore() },
	}
}

func TestRunStoreSaveLoad(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			run := sampleRun(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
			require.NoError(t, s.Save(run))

			got, err := s.Load(run.ID)
			require.NoError(t, err)
			assert.Equal(t, run.ID, got.ID)
			assert.True(t, run.StartedAt.Equal(got.StartedAt))
			assert.Equal(t, run.Duration, got.Duration)
			assert.Equal(t, run.Root, got.Root)
			assert.Equal(t, run.TotalWords, got.TotalWords)
			assert.Equal(t, run.Ranked, got.Ranked)
		})
	}
}

func TestRunStoreLoadMissing(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			_, err := s.Load(uuid.New())
			assert.ErrorIs(t, err, common.ErrRunNotFound)
		})
	}
}

func TestRunStoreRejectsNilID(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			run := sampleRun(time.Now())
			run.ID = uuid.Nil
			assert.Error(t, s.Save(run))
		})
	}
}

func TestRunStoreListOrdersByStart(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			late := sampleRun(base.Add(2 * time.Hour))
			early := sampleRun(base)
			middle := sampleRun(base.Add(time.Hour))
			for _, run := range []*RunRecord{late, early, middle} {
				require.NoError(t, s.Save(run))
			}

			runs, err := s.List()
			require.NoError(t, err)
			require.Len(t, runs, 3)
			assert.Equal(t, early.ID, runs[0].ID)
			assert.Equal(t, middle.ID, runs[1].ID)
			assert.Equal(t, late.ID, runs[2].ID)
		})
	}
}

func TestRunStoreSaveReplaces(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			run := sampleRun(time.Now())
			require.NoError(t, s.Save(run))
			run.Ranked = run.Ranked[:1]
			require.NoError(t, s.Save(run))

			runs, err := s.List()
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Len(t, runs[0].Ranked, 1)
		})
	}
}

func TestBoltStorePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	run := sampleRun(time.Now())
	require.NoError(t, s.Save(run))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Ranked, got.Ranked)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, common.ErrPathEmpty)
}

func TestOpenReportsPath(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open bbolt database "+dir)
}

func TestBoltStoreCorruptRecord(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	id := uuid.New()
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(id.String()), []byte("{not json"))
	}))

	_, err = s.Load(id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error decoding run "+id.String())

	_, err = s.List()
	assert.ErrorContains(t, err, "error decoding run "+id.String())
}

func TestRunRecordUnmarshalBadID(t *testing.T) {
	var run RunRecord
	err := run.UnmarshalJSON([]byte(`{"id":"not-a-uuid","started_at":"2026-01-01T00:00:00Z"}`))
	assert.Error(t, err)
}
