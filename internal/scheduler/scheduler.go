// Package scheduler fires the automation jobs on cron expressions. Each job
// gets its own goroutine so a slow tagging run never delays an export.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/feedback-fusion/backend/internal/service"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Job is one named automation run, typically a bound Automation method.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context, triggeredBy string) error
}

type Scheduler struct {
	Automation *service.Automation
	Logger     zerolog.Logger
	JobTimeout time.Duration

	jobs   []Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Add registers a job. An empty spec disables the job, a bad spec is an
// error surfaced before anything starts running.
func (s *Scheduler) Add(name, spec string, run func(ctx context.Context, triggeredBy string) error) error {
	if spec == "" {
		return nil
	}
	if _, err := cronParser.Parse(spec); err != nil {
		return err
	}
	s.jobs = append(s.jobs, Job{Name: name, Spec: spec, Run: run})
	return nil
}

// Start launches one loop per registered job and returns immediately.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, job := range s.jobs {
		sched, err := cronParser.Parse(job.Spec)
		if err != nil {
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, job, sched)
		s.Logger.Info().Str("job", job.Name).Str("spec", job.Spec).Msg("scheduled automation job")
	}
}

// Stop cancels the loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job, sched cron.Schedule) {
	defer s.wg.Done()
	for {
		now := time.Now()
		next := sched.Next(now)

		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}

		s.fire(ctx, job)
	}
}

func (s *Scheduler) fire(ctx context.Context, job Job) {
	timeout := s.JobTimeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.Logger.Info().Str("job", job.Name).Msg("automation job starting")
	if err := job.Run(runCtx, "auto"); err != nil {
		s.Logger.Error().Err(err).Str("job", job.Name).Msg("automation job failed")
		return
	}
	s.Logger.Info().Str("job", job.Name).Msg("automation job finished")
}
