// Package store archives ranked word counts in a bbolt file, one JSON record
// per run keyed by the run's UUID.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	runsBucket = []byte("runs")
	errs       = common.NewErrorUtils()
)

// BoltStore is a RunStore backed by a bbolt database file
type BoltStore struct {
	db   *bolt.DB
	path string
}

// Open opens or creates the archive at path
func Open(path string) (*BoltStore, error) {
	if err := common.NewValidationUtils(nil).ValidatePath(path); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errs.WrapError(err, "failed to open bbolt database %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errs.WrapError(err, "failed to create runs bucket")
	}

	return &BoltStore{db: db, path: path}, nil
}

// Path returns the database file location
func (s *BoltStore) Path() string {
	return s.path
}

// Save writes run, replacing any record with the same ID
func (s *BoltStore) Save(run *RunRecord) error {
	if run.ID == uuid.Nil {
		return fmt.Errorf("cannot save run without id")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return errs.WrapError(err, "error marshalling run %s", run.ID)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(run.ID.String()), data)
	})
	return errs.WrapError(err, "error saving run %s", run.ID)
}

// Load returns the run stored under id or common.ErrRunNotFound
func (s *BoltStore) Load(id uuid.UUID) (*RunRecord, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(runsBucket).Get([]byte(id.String()))
		if v != nil {
			// v is only valid during the transaction
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrRunNotFound, id)
	}

	var run RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, errs.WrapError(err, "error decoding run %s", id)
	}
	return &run, nil
}

// List returns every archived run, oldest first
func (s *BoltStore) List() ([]RunRecord, error) {
	var runs []RunRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(k, v []byte) error {
			var run RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return errs.WrapError(err, "error decoding run %s", k)
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sortRuns(runs)
	return runs, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func sortRuns(runs []RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.Before(runs[j].StartedAt)
		}
		return runs[i].ID.String() < runs[j].ID.String()
	})
}
