// Package report posts the scheduled prompt, leaderboard, vote summary and crypto prices.
package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	// Schedule returns a cron spec in UTC, or "" for on-demand jobs.
	Schedule() string
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on their cron schedules. A failing or
// panicking job is logged and does not affect the others.
type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	ctx     context.Context
	timeout time.Duration
}

// NewScheduler creates a scheduler whose jobs run with ctx and at most timeout each.
func NewScheduler(ctx context.Context, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default()))),
		),
		jobs:    make([]Job, 0),
		ctx:     ctx,
		timeout: timeout,
	}
}

// Register adds a job and schedules it if it has a cron spec.
func (s *Scheduler) Register(job Job) error {
	spec := job.Schedule()
	if spec == "" {
		s.jobs = append(s.jobs, job)
		log.Printf("📝 [%s] Registered as on-demand job (no schedule)", job.Name())
		return nil
	}

	_, err := s.cron.AddFunc(spec, func() { s.execute(s.ctx, job) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name(), spec, err)
	}
	s.jobs = append(s.jobs, job)
	log.Printf("📅 [%s] Scheduled with cron: %s", job.Name(), spec)
	return nil
}

func (s *Scheduler) execute(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Printf("❌ [%s] Job panicked: %v", job.Name(), r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log.Printf("🤖 [%s] Starting job...", job.Name())
	if err = job.Run(ctx); err != nil {
		log.Printf("❌ [%s] Job failed: %v", job.Name(), err)
		return err
	}
	log.Printf("✅ [%s] Job completed successfully", job.Name())
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Scheduler started with %d registered jobs", len(s.jobs))
}

// Stop stops scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 Scheduler stopped")
}

// RunByName runs one job immediately, e.g. for the daily and leaderboard run modes.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			log.Printf("🎯 [%s] Running on-demand execution...", name)
			return s.execute(ctx, job)
		}
	}
	return fmt.Errorf("job %q not registered", name)
}

// Jobs returns the names of all registered jobs.
func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}

// Daily returns the cron spec for hour:minute every day.
func Daily(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// EveryHours returns the cron spec for the top of every n-th hour.
func EveryHours(n int) string {
	if n <= 1 {
		return "0 * * * *"
	}
	return fmt.Sprintf("0 */%d * * *", n)
}
