// Package stream holds short-lived job records connecting a debate stream
// init request to the subsequent event-channel open. Jobs that are never
// claimed are evicted by a periodic sweep.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a job id is unknown, already claimed, or
// expired. A stream job admits exactly one consumer.
var ErrNotFound = errors.New("未找到流式辩论会话")

// Job is one pending streaming debate turn.
type Job struct {
	ID          string
	AgentTitles []string
	Message     string
	FileIDs     []string
	SessionID   string
	Reset       bool
	CreatedAt   time.Time

	claimed bool
}

// Registry stores pending jobs keyed by an opaque id.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

// NewRegistry creates a registry whose unclaimed jobs expire after ttl.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		jobs: make(map[string]*Job),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Init stores a job and returns its generated id. The caller validates the
// agent set before allocating.
func (r *Registry) Init(job Job) string {
	job.ID = uuid.NewString()
	job.CreatedAt = r.now()
	r.mu.Lock()
	r.jobs[job.ID] = &job
	r.mu.Unlock()
	return job.ID
}

// Claim marks a job active and returns it. The first open wins; any later
// claim, and any claim on an unknown or expired id, gets ErrNotFound.
func (r *Registry) Claim(id string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.claimed {
		return nil, ErrNotFound
	}
	job.claimed = true
	return job, nil
}

// Delete removes a job record, if present.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}

// Len reports the number of stored jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// sweep evicts unclaimed jobs older than the TTL and reports how many.
func (r *Registry) sweep() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, job := range r.jobs {
		if !job.claimed && job.CreatedAt.Before(cutoff) {
			delete(r.jobs, id)
			evicted++
		}
	}
	return evicted
}

// StartSweeper runs a background goroutine that periodically evicts
// expired jobs until ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("stream sweeper started", "interval", interval, "ttl", r.ttl)
		for {
			select {
			case <-ticker.C:
				if n := r.sweep(); n > 0 {
					slog.Info("stream sweeper evicted stale jobs", "count", n)
				}
			case <-ctx.Done():
				slog.Info("stream sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
