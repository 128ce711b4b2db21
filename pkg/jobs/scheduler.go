package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs recurring maintenance jobs. A run that is still going when
// its next tick arrives is skipped, and a panicking job is logged and recovered.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler builds a stopped scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	adapter := cronLogger{sugar: logger.Sugar()}
	c := cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.SkipIfStillRunning(adapter), cron.Recover(adapter)),
	)
	return &Scheduler{cron: c, logger: logger}
}

// Every runs fn at a fixed interval, rounded up to whole seconds.
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %s", name, interval)
	}
	s.cron.Schedule(cron.Every(interval), s.wrap(name, fn))
	return nil
}

// Cron runs fn on a standard five-field cron spec or a descriptor such as "@hourly".
func (s *Scheduler) Cron(name, spec string, fn func()) error {
	if _, err := s.cron.AddJob(spec, s.wrap(name, fn)); err != nil {
		return fmt.Errorf("job %s: parse schedule %q: %w", name, spec, err)
	}
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Sugar().Infow("scheduler started", "jobs", s.Jobs())
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Sugar().Infow("scheduler stopped")
}

func (s *Scheduler) wrap(name string, fn func()) cron.Job {
	return cron.FuncJob(func() {
		start := time.Now()
		fn()
		s.logger.Debug("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
}

type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
