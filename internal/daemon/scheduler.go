package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/user/secdash/internal/metrics"
	"github.com/user/secdash/internal/util"
)

// Job represents a scheduled job.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	// State
	lastRun    time.Time
	nextRun    time.Time
	lastError  error
	errorCount int
	skipped    int
	running    bool
	mu         sync.RWMutex
}

// JobStatus represents the status of a job.
type JobStatus struct {
	Name       string        `json:"name"`
	Interval   time.Duration `json:"interval"`
	LastRun    time.Time     `json:"last_run"`
	NextRun    time.Time     `json:"next_run"`
	LastError  string        `json:"last_error,omitempty"`
	ErrorCount int           `json:"error_count"`
	Skipped    int           `json:"skipped"`
	Running    bool          `json:"running"`
}

// Scheduler runs jobs on fixed intervals. A job whose previous run has not
// settled when it comes due again is skipped for that cycle.
type Scheduler struct {
	ctx          context.Context
	jobs         []*Job
	tick         time.Duration
	initialDelay time.Duration
	wg           sync.WaitGroup
	mu           sync.RWMutex
}

// NewScheduler creates a new scheduler.
func NewScheduler(ctx context.Context) *Scheduler {
	return &Scheduler{
		ctx:          ctx,
		jobs:         make([]*Job, 0),
		tick:         time.Second,
		initialDelay: time.Second,
	}
}

// AddJob adds a job to the scheduler.
func (s *Scheduler) AddJob(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.nextRun = time.Now().Add(s.initialDelay)
	s.jobs = append(s.jobs, job)
}

// Run starts the scheduler and blocks until its context is done and every
// in-flight job has returned.
func (s *Scheduler) Run() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	util.Info("Scheduler started with %d jobs", len(s.jobs))

	for {
		select {
		case <-s.ctx.Done():
			util.Info("Scheduler stopping")
			s.wg.Wait()
			return
		case now := <-ticker.C:
			s.checkJobs(now)
		}
	}
}

func (s *Scheduler) checkJobs(now time.Time) {
	s.mu.RLock()
	jobs := s.jobs
	s.mu.RUnlock()

	for _, job := range jobs {
		job.mu.Lock()
		due := now.After(job.nextRun)
		switch {
		case !due:
			job.mu.Unlock()
		case job.running:
			job.skipped++
			job.nextRun = now.Add(job.Interval)
			job.mu.Unlock()
			metrics.RefreshSkippedTotal.WithLabelValues(job.Name).Inc()
			util.Warn("Job %s still running, skipping cycle", job.Name)
		default:
			job.running = true
			job.lastRun = now
			job.mu.Unlock()
			s.wg.Add(1)
			go s.runJob(job)
		}
	}
}

func (s *Scheduler) runJob(job *Job) {
	defer s.wg.Done()

	util.Debug("Running job: %s", job.Name)

	job.mu.RLock()
	timeout := job.Interval
	job.mu.RUnlock()

	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	err := job.Run(ctx)

	job.mu.Lock()
	job.running = false
	if err != nil {
		job.lastError = err
		job.errorCount++
		// Shorter retry on error
		job.nextRun = time.Now().Add(job.Interval / 2)
	} else {
		job.lastError = nil
		job.nextRun = time.Now().Add(job.Interval)
	}
	job.mu.Unlock()

	if err != nil {
		metrics.RefreshCyclesTotal.WithLabelValues(job.Name, "error").Inc()
		util.Warn("Job %s failed: %v", job.Name, err)
		return
	}
	metrics.RefreshCyclesTotal.WithLabelValues(job.Name, "ok").Inc()
	util.Debug("Job %s completed successfully", job.Name)
}

// GetJobStatuses returns the status of all jobs.
func (s *Scheduler) GetJobStatuses() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, len(s.jobs))
	for i, job := range s.jobs {
		job.mu.RLock()
		status := JobStatus{
			Name:       job.Name,
			Interval:   job.Interval,
			LastRun:    job.lastRun,
			NextRun:    job.nextRun,
			ErrorCount: job.errorCount,
			Skipped:    job.skipped,
			Running:    job.running,
		}
		if job.lastError != nil {
			status.LastError = job.lastError.Error()
		}
		job.mu.RUnlock()
		statuses[i] = status
	}

	return statuses
}

// GetJob returns a job by name.
func (s *Scheduler) GetJob(name string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, job := range s.jobs {
		if job.Name == name {
			return job
		}
	}
	return nil
}

// TriggerJob makes a job due on the next tick.
func (s *Scheduler) TriggerJob(name string) bool {
	job := s.GetJob(name)
	if job == nil {
		return false
	}

	job.mu.Lock()
	job.nextRun = time.Now()
	job.mu.Unlock()

	return true
}

// SetInterval changes a job's interval. The new value applies from the
// next scheduled run.
func (s *Scheduler) SetInterval(name string, interval time.Duration) bool {
	job := s.GetJob(name)
	if job == nil || interval <= 0 {
		return false
	}

	job.mu.Lock()
	defer job.mu.Unlock()
	if job.Interval == interval {
		return true
	}
	job.nextRun = job.nextRun.Add(interval - job.Interval)
	job.Interval = interval
	util.Info("Job %s interval set to %s", name, interval)
	return true
}
