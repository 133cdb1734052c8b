package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/cipherbet/engine/log"
)

// PushJob stores a new job into the engine queue.
func (s *Storage) PushJob(j *Job) error {
	if len(j.ID) == 0 {
		return fmt.Errorf("job without id")
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	return s.setArtifact(jobPrefix, j.ID, j)
}

// NextJob returns the next non reserved job and reserves it. Aggregation
// jobs are single writer per market: while one is reserved, further
// aggregation jobs for the same market are skipped so state folds never
// race. It returns ErrNoMoreElements when nothing is available.
func (s *Storage) NextJob() (*Job, []byte, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var chosen *Job
	var chosenKey []byte
	if err := s.iterateArtifacts(jobPrefix, func(k, v []byte) bool {
		if s.isReserved(jobReservationPrefix, k) {
			return true
		}
		var j Job
		if err := decodeArtifact(v, &j); err != nil {
			log.Warnw("failed to decode job", "error", err.Error())
			return true
		}
		if isAggregateKind(j.Kind) && s.isReserved(aggregateLockPrefix, marketKey(j.MarketID)) {
			return true
		}
		chosen = &j
		chosenKey = make([]byte, len(k))
		copy(chosenKey, k)
		return false
	}); err != nil {
		return nil, nil, fmt.Errorf("iterate jobs: %w", err)
	}
	if chosen == nil {
		return nil, nil, ErrNoMoreElements
	}

	if err := s.setReservation(jobReservationPrefix, chosenKey); err != nil {
		return nil, nil, ErrNoMoreElements
	}
	if isAggregateKind(chosen.Kind) {
		if err := s.setReservation(aggregateLockPrefix, marketKey(chosen.MarketID)); err != nil {
			return nil, nil, ErrNoMoreElements
		}
	}
	return chosen, chosenKey, nil
}

// MarkJobDone removes a processed job with its reservations and pushes the
// result into the results queue for the coordinator callback.
func (s *Storage) MarkJobDone(key []byte, res *JobResult) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var j Job
	if err := s.getArtifact(jobPrefix, key, &j); err == nil && isAggregateKind(j.Kind) {
		if err := s.releaseReservation(aggregateLockPrefix, marketKey(j.MarketID)); err != nil {
			return fmt.Errorf("release aggregation lock: %w", err)
		}
	}
	if err := s.releaseReservation(jobReservationPrefix, key); err != nil {
		return fmt.Errorf("release job reservation: %w", err)
	}
	if err := s.deleteArtifact(jobPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete job: %w", err)
	}
	if res == nil {
		return nil
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = time.Now()
	}
	return s.setArtifact(resultPrefix, res.JobID, res)
}

// NextJobResult returns the next non reserved job result and reserves it.
func (s *Storage) NextJobResult() (*JobResult, []byte, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var chosen *JobResult
	var chosenKey []byte
	if err := s.iterateArtifacts(resultPrefix, func(k, v []byte) bool {
		if s.isReserved(resultReservationPrefix, k) {
			return true
		}
		var r JobResult
		if err := decodeArtifact(v, &r); err != nil {
			log.Warnw("failed to decode job result", "error", err.Error())
			return true
		}
		chosen = &r
		chosenKey = make([]byte, len(k))
		copy(chosenKey, k)
		return false
	}); err != nil {
		return nil, nil, fmt.Errorf("iterate job results: %w", err)
	}
	if chosen == nil {
		return nil, nil, ErrNoMoreElements
	}
	if err := s.setReservation(resultReservationPrefix, chosenKey); err != nil {
		return nil, nil, ErrNoMoreElements
	}
	return chosen, chosenKey, nil
}

// MarkJobResultDone removes a consumed job result and its reservation.
func (s *Storage) MarkJobResultDone(key []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if err := s.releaseReservation(resultReservationPrefix, key); err != nil {
		return fmt.Errorf("release result reservation: %w", err)
	}
	if err := s.deleteArtifact(resultPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete job result: %w", err)
	}
	return nil
}

// CountPendingJobs returns the number of jobs in the queue, reserved ones
// included.
func (s *Storage) CountPendingJobs() int {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	count := 0
	if err := s.iterateArtifacts(jobPrefix, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		log.Warnw("failed to count jobs", "error", err.Error())
	}
	return count
}

func isAggregateKind(kind uint8) bool {
	return kind == JobAggregate || kind == JobBatchAggregate
}
