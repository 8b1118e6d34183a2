// Package scheduler runs network scans on a cron schedule.
// Scheduled scans share the orchestrator's run guard with API scans: a
// tick that fires while another scan is active is skipped.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/anstrom/netenum/internal/engine"
	"github.com/anstrom/netenum/internal/errors"
	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/scanning"
)

// ScanRunner runs one scan to completion.
type ScanRunner interface {
	Run(ctx context.Context, network string, sink func(string)) (*scanning.Scan, error)
}

var _ ScanRunner = (*engine.Orchestrator)(nil)

// Scheduler manages scheduled scan jobs.
type Scheduler struct {
	cron   *cron.Cron
	runner ScanRunner
	sink   func(string)
	logger *logging.Logger

	jobs    map[uuid.UUID]*ScheduledJob
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// ScheduledJob is a cron entry that scans one network.
type ScheduledJob struct {
	ID         uuid.UUID
	Name       string
	Network    string
	Expression string
	CronID     cron.EntryID
	Enabled    bool
	LastRun    time.Time
	LastStatus string
	NextRun    time.Time
	Running    bool
}

// Job statuses recorded in LastStatus.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// NewScheduler creates a scheduler. Every line of a scheduled scan is passed
// to sink, which may be nil.
func NewScheduler(runner ScanRunner, sink func(string), logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		sink:   sink,
		logger: logger.WithComponent("scheduler"),
		jobs:   make(map[uuid.UUID]*ScheduledJob),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop stops the scheduler and cancels a scheduled scan in flight. It waits
// for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// AddScanJob schedules a scan of network. cronExpr uses the standard
// 5-field format.
func (s *Scheduler) AddScanJob(name, cronExpr, network string) (*ScheduledJob, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, errors.WrapConfigError("invalid cron expression", err)
	}
	network, err = engine.ValidateNetwork(network)
	if err != nil {
		return nil, err
	}

	job := &ScheduledJob{
		ID:         uuid.New(),
		Name:       name,
		Network:    network,
		Expression: cronExpr,
		Enabled:    true,
		NextRun:    schedule.Next(time.Now()),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job.CronID = s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.executeScanJob(job.ID)
	}))
	s.jobs[job.ID] = job

	s.logger.Info("Added scan job",
		"name", name,
		"network", network,
		"schedule", cronExpr,
		"next_run", job.NextRun)
	return job.snapshot(), nil
}

// RemoveJob removes a scheduled job.
func (s *Scheduler) RemoveJob(jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return errors.NewScanError(errors.CodeNotFound, "job not found")
	}

	s.cron.Remove(job.CronID)
	delete(s.jobs, jobID)

	s.logger.Info("Removed scheduled job", "name", job.Name)
	return nil
}

// EnableJob enables a scheduled job.
func (s *Scheduler) EnableJob(jobID uuid.UUID) error {
	return s.setJobEnabled(jobID, true)
}

// DisableJob disables a scheduled job. Its cron entry keeps firing but
// does nothing.
func (s *Scheduler) DisableJob(jobID uuid.UUID) error {
	return s.setJobEnabled(jobID, false)
}

func (s *Scheduler) setJobEnabled(jobID uuid.UUID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return errors.NewScanError(errors.CodeNotFound, "job not found")
	}
	job.Enabled = enabled

	s.logger.Info("Updated scheduled job", "name", job.Name, "enabled", enabled)
	return nil
}

// GetJobs returns copies of all jobs ordered by name.
func (s *Scheduler) GetJobs() []*ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		snap := job.snapshot()
		if entry := s.cron.Entry(job.CronID); entry.Valid() && !entry.Next.IsZero() {
			snap.NextRun = entry.Next
		}
		jobs = append(jobs, snap)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// executeScanJob runs the scan of one job.
func (s *Scheduler) executeScanJob(jobID uuid.UUID) {
	job, ok := s.prepareJobExecution(jobID)
	if !ok {
		return
	}

	logger := s.logger.WithNetwork(job.Network)
	logger.Info("Starting scheduled scan", "job", job.Name)

	status := StatusCompleted
	scan, err := s.runner.Run(s.ctx, job.Network, s.sink)
	switch {
	case errors.IsCode(err, errors.CodeScanInProgress):
		status = StatusSkipped
		logger.Warn("Skipping scheduled scan, another scan is in progress", "job", job.Name)
	case err != nil:
		status = StatusFailed
		logger.Error("Scheduled scan failed", "job", job.Name, "error", err)
	default:
		logger.Info("Scheduled scan finished",
			"job", job.Name,
			"scan_id", scan.ID,
			"hosts", len(scan.Hosts),
			"duration", scan.Duration())
	}

	s.cleanupJobExecution(jobID, status)
}

// prepareJobExecution marks the job running. It reports false when the job
// is gone, disabled or still running from a previous tick.
func (s *Scheduler) prepareJobExecution(jobID uuid.UUID) (ScheduledJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || !job.Enabled || job.Running {
		return ScheduledJob{}, false
	}
	job.Running = true
	job.LastRun = time.Now()
	return *job, true
}

func (s *Scheduler) cleanupJobExecution(jobID uuid.UUID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		job.Running = false
		job.LastStatus = status
	}
}

func (j *ScheduledJob) snapshot() *ScheduledJob {
	c := *j
	return &c
}
