package store

import (
	"github.com/google/uuid"
)

// RunStore archives the ranked results of counting runs
type RunStore interface {
	Save(run *RunRecord) error
	Load(id uuid.UUID) (*RunRecord, error)
	List() ([]RunRecord, error)
	Close() error
}
