package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled report run.
type Job func(ctx context.Context) error

// Scheduler runs report jobs on cron specs in UTC.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	jobs   []string
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Add registers job under name. An empty spec leaves the job unscheduled.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if spec == "" {
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Info("scheduled job triggered", zap.String("job", name))
		if err := job(s.ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q for %s: %w", spec, name, err)
	}
	s.jobs = append(s.jobs, name)
	return nil
}

func (s *Scheduler) Start() {
	if !s.scheduled() {
		s.logger.Info("no scheduled jobs configured")
		return
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Strings("jobs", s.jobs))
}

// Stop cancels the context of running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) scheduled() bool {
	return len(s.cron.Entries()) > 0
}
