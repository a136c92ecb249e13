package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is the function signature for scheduled jobs
type JobFunc func(ctx context.Context)

// Scheduler manages the daemon's cron jobs
type Scheduler struct {
	cron *cron.Cron
	jobs map[string]cron.EntryID // job name -> entryID
	mu   sync.RWMutex
}

// New creates a new scheduler
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		))),
		jobs: make(map[string]cron.EntryID),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop gracefully stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// AddJob schedules a named job. An existing job with the same name is
// replaced.
func (s *Scheduler) AddJob(name, schedule string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
	}

	ctx := context.Background()
	wrappedJob := func() {
		job(ctx)
	}

	entryID, err := s.cron.AddFunc(schedule, wrappedJob)
	if err != nil {
		return err
	}

	s.jobs[name] = entryID
	slog.Debug("added scheduled job", "job", name, "schedule", schedule)

	return nil
}

// RemoveJob removes a scheduled job by name
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		slog.Debug("removed scheduled job", "job", name)
	}
}

// HasJob checks whether a job with the given name is scheduled
func (s *Scheduler) HasJob(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.jobs[name]
	return exists
}

// JobCount returns the number of scheduled jobs
func (s *Scheduler) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.jobs)
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
}

// ListJobs returns information about all scheduled jobs
func (s *Scheduler) ListJobs() map[string]JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]JobInfo, len(s.jobs))
	for name, entryID := range s.jobs {
		entry := s.cron.Entry(entryID)
		result[name] = JobInfo{
			Name:    name,
			NextRun: entry.Next,
		}
	}
	return result
}
