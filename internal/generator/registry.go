package generator

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultSweepInterval is how often terminal snapshots are checked for
	// expiry
	DefaultSweepInterval = 10 * time.Minute
	// DefaultRetention is how long a terminal snapshot stays queryable
	DefaultRetention = time.Hour
)

// Registry holds the latest progress snapshot per job id. It is
// constructor-injected rather than process-global so instances can be
// created and torn down independently in tests.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]*Progress
	logger zerolog.Logger

	sweepOnce sync.Once
	stopSweep chan struct{}
}

// NewRegistry creates an empty progress registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		jobs:      make(map[string]*Progress),
		logger:    logger.With().Str("component", "generator-registry").Logger(),
		stopSweep: make(chan struct{}),
	}
}

// Publish replaces the stored snapshot for the job. The snapshot is cloned
// on the way in, so readers never observe a torn or mutating value.
func (r *Registry) Publish(p *Progress) {
	snapshot := p.clone()
	r.mu.Lock()
	r.jobs[p.ID] = snapshot
	r.mu.Unlock()
}

// Get returns a copy of the latest snapshot for the job id.
func (r *Registry) Get(id string) (*Progress, bool) {
	r.mu.RLock()
	p, found := r.jobs[id]
	r.mu.RUnlock()
	if !found {
		return nil, false
	}
	return p.clone(), true
}

// Active returns the ids of jobs currently running.
func (r *Registry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]string, 0)
	for id, p := range r.jobs {
		if p.Status == StatusRunning {
			active = append(active, id)
		}
	}
	return active
}

// Delete removes a snapshot.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}

// Len returns the number of tracked snapshots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// StartSweeper launches the background cleanup loop that deletes terminal
// snapshots older than retention. It runs until Stop is called and is safe
// to call once per registry.
func (r *Registry) StartSweeper(interval, retention time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	r.sweepOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					r.sweep(retention)
				case <-r.stopSweep:
					return
				}
			}
		}()
	})
}

// Stop terminates the sweeper goroutine.
func (r *Registry) Stop() {
	select {
	case <-r.stopSweep:
	default:
		close(r.stopSweep)
	}
}

// sweep deletes terminal snapshots whose completion is older than retention.
func (r *Registry) sweep(retention time.Duration) {
	cutoff := time.Now().Add(-retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.jobs {
		if !p.Status.Terminal() {
			continue
		}
		if p.CompletedAt != nil && p.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			r.logger.Debug().Str("job_id", id).Msg("swept expired progress snapshot")
		}
	}
}
