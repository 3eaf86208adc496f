package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hamed0406/apistatus/internal/logging"
	"github.com/hamed0406/apistatus/internal/monitor"
)

// Runner runs one monitoring pass.
type Runner interface {
	Run(ctx context.Context) (monitor.Report, error)
}

// Scheduler fires a Runner on a cron cadence. Ticks are not serialised: a
// slow pass may still be running when the next one starts.
type Scheduler struct {
	Logger     *zap.Logger
	Runner     Runner
	Spec       string
	Location   *time.Location
	RunOnStart bool
}

func NewScheduler(logger *zap.Logger, r Runner, spec string, loc *time.Location, runOnStart bool) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Logger:     logger,
		Runner:     r,
		Spec:       spec,
		Location:   loc,
		RunOnStart: runOnStart,
	}
}

// Run blocks until ctx is cancelled. In-flight passes keep their own context
// and are waited for before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := logging.CronLogger(s.Logger)
	c := cron.New(cron.WithLocation(s.Location), cron.WithLogger(cl))

	jobCtx := context.WithoutCancel(ctx)
	job := cron.NewChain(cron.Recover(cl)).Then(cron.FuncJob(func() { s.runOnce(jobCtx) }))
	if _, err := c.AddJob(s.Spec, job); err != nil {
		return fmt.Errorf("schedule %q: %w", s.Spec, err)
	}

	c.Start()
	s.Logger.Info("scheduler_started",
		zap.String("schedule", s.Spec),
		zap.String("tz", s.Location.String()),
		zap.Bool("run_on_start", s.RunOnStart),
	)

	var boot sync.WaitGroup
	if s.RunOnStart {
		boot.Add(1)
		go func() {
			defer boot.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	<-c.Stop().Done()
	boot.Wait()
	s.Logger.Info("scheduler_stopped")
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	rep, err := s.Runner.Run(ctx)
	if err != nil {
		s.Logger.Error("cycle_failed",
			zap.String("cycle_id", rep.ID),
			zap.Int("recorded", len(rep.Outcomes)),
			zap.Error(err),
		)
	}
}
