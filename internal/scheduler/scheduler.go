package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobID identifies a registered job.
type JobID = cron.EntryID

// Scheduler runs interval jobs on a cron instance. Each job skips a firing while
// its previous run is still going.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// New creates a stopped scheduler.
func New(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	logger := cronLogger{log.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		log: log,
	}
}

// Every registers job to run at a fixed interval. Intervals are rounded up to
// whole seconds.
func (s *Scheduler) Every(interval time.Duration, job func()) (JobID, error) {
	if interval < time.Second {
		interval = time.Second
	}
	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), job)
	if err != nil {
		return 0, fmt.Errorf("register job every %s: %w", interval, err)
	}
	return id, nil
}

// Cancel removes a job. Unknown ids are ignored.
func (s *Scheduler) Cancel(id JobID) {
	s.cron.Remove(id)
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
