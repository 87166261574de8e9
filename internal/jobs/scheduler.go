package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/metrics"
)

// Scheduler runs one job on a fixed interval. It is a suture service; a
// failed run is logged and counted but does not stop the schedule.
type Scheduler struct {
	job        Job
	interval   time.Duration
	runOnStart bool
	log        *zap.Logger
}

// NewScheduler creates a scheduler for job. With runOnStart the job also
// runs as soon as Serve starts.
func NewScheduler(job Job, interval time.Duration, runOnStart bool, log *zap.Logger) *Scheduler {
	return &Scheduler{
		job:        job,
		interval:   interval,
		runOnStart: runOnStart,
		log:        log.With(zap.String("job", job.Name())),
	}
}

// String names the service in supervisor events.
func (s *Scheduler) String() string {
	return "job:" + s.job.Name()
}

func (s *Scheduler) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("job %s has non-positive interval %s", s.job.Name(), s.interval)
	}

	s.log.Info("Job scheduled", zap.Duration("interval", s.interval))

	if s.runOnStart {
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs the job immediately and records the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	err := s.job.Run(ctx)
	elapsed := time.Since(start)

	if err != nil {
		metrics.JobRuns.WithLabelValues(s.job.Name(), "failure").Inc()
		s.log.Error("Job failed", zap.Error(err), zap.Duration("duration", elapsed))
		return err
	}

	metrics.JobRuns.WithLabelValues(s.job.Name(), "success").Inc()
	s.log.Info("Job completed", zap.Duration("duration", elapsed))
	return nil
}
