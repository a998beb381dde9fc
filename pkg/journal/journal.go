package journal

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/stratacluster/strata/pkg/types"
)

var (
	// Bucket names
	bucketOperations  = []byte("operations")
	bucketTransitions = []byte("transitions")
)

// Operation is one journaled lifecycle or provisioning run
type Operation struct {
	ID         string              `json:"id"`
	Kind       string              `json:"kind"`
	Node       string              `json:"node,omitempty"`
	Status     types.OutcomeStatus `json:"status"`
	Cause      string              `json:"cause,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// Transition is one confirmed phase change within an operation
type Transition struct {
	OperationID string               `json:"operation_id"`
	Node        string               `json:"node"`
	Phase       types.LifecyclePhase `json:"phase"`
	At          time.Time            `json:"at"`
}

// Journal is an append-only record of orchestration activity backed by
// BoltDB. It exists for operator forensics after a run that left a node in
// an intermediate phase; it is not consulted to resume interrupted runs.
type Journal struct {
	db *bolt.DB
}

// Open opens (or creates) the journal at path
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketOperations, bucketTransitions} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

// Close closes the journal
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordOperation appends an operation record
func (j *Journal) RecordOperation(op Operation) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)
		data, err := json.Marshal(op)
		if err != nil {
			return err
		}
		return b.Put(operationKey(op), data)
	})
}

// RecordTransition appends a phase transition record
func (j *Journal) RecordTransition(tr Transition) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransitions)
		data, err := json.Marshal(tr)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s/%s/%s", tr.At.UTC().Format(time.RFC3339Nano), tr.OperationID, tr.Phase)
		return b.Put([]byte(key), data)
	})
}

// ListOperations returns all operations in chronological order
func (j *Journal) ListOperations() ([]Operation, error) {
	var ops []Operation
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)
		return b.ForEach(func(k, v []byte) error {
			var op Operation
			if err := json.Unmarshal(v, &op); err != nil {
				return err
			}
			ops = append(ops, op)
			return nil
		})
	})
	return ops, err
}

// ListTransitions returns the transitions recorded for one operation
func (j *Journal) ListTransitions(operationID string) ([]Transition, error) {
	var trs []Transition
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransitions)
		return b.ForEach(func(k, v []byte) error {
			var tr Transition
			if err := json.Unmarshal(v, &tr); err != nil {
				return err
			}
			if tr.OperationID == operationID {
				trs = append(trs, tr)
			}
			return nil
		})
	})
	return trs, err
}

// Keys sort chronologically; the operation ID breaks ties between runs
// started in the same nanosecond.
func operationKey(op Operation) []byte {
	return []byte(fmt.Sprintf("%s/%s", op.StartedAt.UTC().Format(time.RFC3339Nano), op.ID))
}
