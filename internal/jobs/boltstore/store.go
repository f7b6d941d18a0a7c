// Package boltstore persists analysis jobs in a local bolt database so job
// status survives an API restart.
package boltstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sort"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/funster-a/hackathon-backend/internal/jobs"
)

var bucketName = []byte("analyze_jobs")

// Store is a bolt-backed JobStore. Jobs are gob-encoded and keyed by job ID.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open job db %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create jobs bucket")
	}
	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func encode(job *jobs.AnalyzeJob) ([]byte, error) {
	var val bytes.Buffer
	if err := gob.NewEncoder(&val).Encode(job); err != nil {
		return nil, errors.Wrapf(err, "encode job %s", job.JobID)
	}
	return val.Bytes(), nil
}

func decode(v []byte) (*jobs.AnalyzeJob, error) {
	var job jobs.AnalyzeJob
	if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&job); err != nil {
		return nil, errors.Wrapf(err, "decode job of length %d", len(v))
	}
	return &job, nil
}

// SaveJob implements the JobStore interface.
func (s *Store) SaveJob(ctx context.Context, job *jobs.AnalyzeJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	val, err := encode(job)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(job.JobID), val)
	})
}

// GetJob implements the JobStore interface.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.AnalyzeJob, error) {
	var job *jobs.AnalyzeJob
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(jobID))
		if v == nil {
			return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
		}
		var err error
		job, err = decode(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs implements the JobStore interface.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.AnalyzeJob, error) {
	result := []*jobs.AnalyzeJob{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			job, err := decode(v)
			if err != nil {
				return err
			}
			if filter.Matches(job) {
				result = append(result, job)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].JobID < result[j].JobID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return filter.Page(result), nil
}

// UpdateJobStatus implements the JobStore interface.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		v := b.Get([]byte(jobID))
		if v == nil {
			return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
		}
		job, err := decode(v)
		if err != nil {
			return err
		}
		job.Status = status
		if errorMsg != "" {
			job.Error = errorMsg
		}
		val, err := encode(job)
		if err != nil {
			return err
		}
		return b.Put([]byte(jobID), val)
	})
}

var _ jobs.JobStore = (*Store)(nil)
