package expiry

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/system/log"
)

// Scheduler runs the sweeper on a cron expression. Sweeps never overlap: a
// tick that fires while a sweep is still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	logger  *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler for spec, e.g. "@every 1m" or "*/5 * * * *".
func NewScheduler(spec string, sweeper *Sweeper, logger *logrus.Logger) (*Scheduler, error) {
	adapter := cronLogger{entry: log.Component(logger, "cron")}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		sweeper: sweeper,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid expiry schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduling sweeps in the background.
func (s *Scheduler) Start() {
	s.logger.WithField("entries", len(s.cron.Entries())).Info("Expiry scheduler started")
	s.cron.Start()
}

// Stop prevents new sweeps and waits for a running one to finish. If ctx ends
// first the running sweep is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		s.logger.Info("Expiry scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("expiry scheduler did not stop in time: %w", ctx.Err())
	}
}

func (s *Scheduler) sweep() {
	result, err := s.sweeper.RunOnce(s.ctx)
	if err != nil {
		s.logger.WithError(err).WithField("failed_partitions", result.Failed).Warn("Expiry sweep finished with errors")
	}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.entry.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.entry.WithError(err).WithFields(toFields(keysAndValues)).Error(msg)
}

func toFields(keysAndValues []any) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
