package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/go_weightsync/internal/logger"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is the work triggered on every tick. It receives the scheduler's
// lifecycle context.
type Job func(ctx context.Context)

// CronScheduler triggers a Job on a standard five-field cron expression
// evaluated in a fixed timezone.
//
// Semantics:
// - A tick that fires while the previous job is still running is skipped.
// - A panic inside the job is recovered and logged; the schedule keeps going.
// - Cancelling the Start context stops the scheduler and waits for the running job.
type CronScheduler struct {
	spec     string
	loc      *time.Location
	schedule cron.Schedule
	job      Job

	mu   sync.Mutex
	cron *cron.Cron
	done chan struct{}
}

func NewCronScheduler(spec string, loc *time.Location, job Job) (*CronScheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler job is nil")
	}
	if loc == nil {
		loc = time.Local
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	return &CronScheduler{
		spec:     spec,
		loc:      loc,
		schedule: schedule,
		job:      job,
		done:     make(chan struct{}),
	}, nil
}

// Start begins triggering the job in the background. It returns immediately.
func (s *CronScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}

	l := cronLogger{entry: logger.WithComponent("sched")}
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		logger.WithComponent("sched").Debug("cron tick")
		s.job(ctx)
	}))

	logger.WithComponent("sched").Infof("starting cron scheduler %q, timezone: %s, next run: %s",
		s.spec, s.loc.String(), s.Next(time.Now()).Format(time.RFC3339))
	s.cron.Start()

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		logger.WithComponent("sched").Info("scheduler stopped")
		close(s.done)
	}()
}

// Next returns the first activation strictly after now.
func (s *CronScheduler) Next(now time.Time) time.Time {
	return s.schedule.Next(now.In(s.loc))
}

// Done is closed once the scheduler has stopped and the last job returned.
func (s *CronScheduler) Done() <-chan struct{} {
	return s.done
}

// cronLogger routes cron's internal logging through logrus.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fieldsOf(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(fieldsOf(keysAndValues)).Error(msg)
}

func fieldsOf(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
