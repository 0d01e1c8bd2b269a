package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/pipeline"
)

var (
	bucketRuns    = []byte("runs")
	bucketSummary = []byte("summaries")
)

// DefaultTimeout bounds how long Open waits for the file lock.
const DefaultTimeout = time.Second

var (
	// ErrNotFound is returned for an unknown run identifier.
	ErrNotFound = diag.NewSentinel("store: run not found")

	// ErrIncomplete is returned when a result lacks a stage output.
	ErrIncomplete = diag.NewSentinel("store: incomplete result")

	// ErrCorrupt is returned when a stored record cannot be decoded.
	ErrCorrupt = errors.New("store: corrupt record")
)

// Store is a bbolt-backed result store. It is safe for concurrent use.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the store file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: DefaultTimeout})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketRuns, bucketSummary} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close releases the file.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the file path of the store.
func (s *Store) Path() string { return s.db.Path() }

// Save writes res, replacing any run with the same identifier.
func (s *Store) Save(res *pipeline.Result) error {
	snap, err := FromResult(res)
	if err != nil {
		return err
	}

	return s.Put(snap)
}

// Put writes a snapshot.
func (s *Store) Put(snap *Snapshot) error {
	if snap == nil || snap.ID == "" {
		return diag.Invalid("store", "snapshot without identifier")
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", snap.ID, err)
	}
	sum, err := json.Marshal(snap.Summarize())
	if err != nil {
		return fmt.Errorf("store: encode summary %s: %w", snap.ID, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRuns).Put([]byte(snap.ID), body); err != nil {
			return err
		}
		return tx.Bucket(bucketSummary).Put([]byte(snap.ID), sum)
	})
}

// Get returns the snapshot stored under id.
func (s *Store) Get(id string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRuns).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%q: %w", id, ErrNotFound)
		}
		if err := json.Unmarshal(v, &snap); err != nil {
			return fmt.Errorf("%q: %v: %w", id, err, ErrCorrupt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &snap, nil
}

// Load returns the pipeline result stored under id.
func (s *Store) Load(id string) (*pipeline.Result, error) {
	snap, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	return snap.Result()
}

// List returns the summaries of every stored run, oldest first.
func (s *Store) List() ([]Summary, error) {
	var out []Summary
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSummary).ForEach(func(k, v []byte) error {
			var sum Summary
			if err := json.Unmarshal(v, &sum); err != nil {
				return fmt.Errorf("%q: %v: %w", k, err, ErrCorrupt)
			}
			out = append(out, sum)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// Delete removes a run.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket(bucketRuns)
		if runs.Get([]byte(id)) == nil {
			return fmt.Errorf("%q: %w", id, ErrNotFound)
		}
		if err := runs.Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketSummary).Delete([]byte(id))
	})
}
