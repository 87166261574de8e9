package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"
)

type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultTreeConfig matches suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree supervises the background services of a process in two layers:
// pipeline (flush worker, replayer) and jobs (scheduled maintenance). A
// crashing job never restarts the pipeline.
type Tree struct {
	root     *suture.Supervisor
	pipeline *suture.Supervisor
	jobs     *suture.Supervisor
	log      *zap.Logger
}

// NewTree creates a supervisor tree named name. Zero config fields take the
// defaults.
func NewTree(name string, cfg TreeConfig, log *zap.Logger) *Tree {
	def := DefaultTreeConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = def.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = def.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	spec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	rootSpec := spec
	rootSpec.EventHook = EventHook(log)

	root := suture.New(name, rootSpec)
	pipeline := suture.New("pipeline", spec)
	jobs := suture.New("jobs", spec)
	root.Add(pipeline)
	root.Add(jobs)

	return &Tree{root: root, pipeline: pipeline, jobs: jobs, log: log}
}

func (t *Tree) AddPipelineService(svc suture.Service) suture.ServiceToken {
	return t.pipeline.Add(svc)
}

func (t *Tree) AddJobService(svc suture.Service) suture.ServiceToken {
	return t.jobs.Add(svc)
}

// ServeBackground starts the tree. The returned channel yields the root
// supervisor's exit error once ctx is cancelled.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that ignored shutdown.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// EventHook logs supervisor events through zap.
func EventHook(log *zap.Logger) suture.EventHook {
	return func(ev suture.Event) {
		switch e := ev.(type) {
		case suture.EventServicePanic:
			log.Error("Supervised service panicked",
				zap.String("supervisor", e.SupervisorName),
				zap.String("service", e.ServiceName),
				zap.String("panic", e.PanicMsg),
				zap.Bool("restarting", e.Restarting),
				zap.String("stacktrace", e.Stacktrace))
		case suture.EventServiceTerminate:
			log.Warn("Supervised service terminated",
				zap.String("supervisor", e.SupervisorName),
				zap.String("service", e.ServiceName),
				zap.Any("error", e.Err),
				zap.Bool("restarting", e.Restarting))
		case suture.EventBackoff:
			log.Warn("Supervisor entering backoff", zap.String("supervisor", e.SupervisorName))
		case suture.EventResume:
			log.Info("Supervisor resuming", zap.String("supervisor", e.SupervisorName))
		case suture.EventStopTimeout:
			log.Error("Service failed to stop in time",
				zap.String("supervisor", e.SupervisorName),
				zap.String("service", e.ServiceName))
		default:
			log.Info("Supervisor event", zap.String("event", ev.String()))
		}
	}
}
