// Package scheduler runs periodic maintenance jobs, such as the expiry sweep.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type Job func(ctx context.Context) error

type Cron struct {
	c      *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *logrus.Logger
}

// NewCron builds a scheduler whose jobs never overlap with themselves and
// whose panics are logged instead of crashing the process.
func NewCron(logger *logrus.Logger, loc *time.Location) *Cron {
	if loc == nil {
		loc = time.UTC
	}

	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{c: c, ctx: ctx, cancel: cancel, logger: logger}
}

// Add registers job under name on a standard cron expression or a
// descriptor such as "@every 1m".
func (cr *Cron) Add(name, schedule string, timeout time.Duration, job Job) (cron.EntryID, error) {
	return cr.c.AddFunc(schedule, func() {
		cr.run(name, timeout, job)
	})
}

func (cr *Cron) run(name string, timeout time.Duration, job Job) {
	ctx := cr.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	entry := cr.logger.WithField("job", name)

	if err := job(ctx); err != nil {
		entry.WithError(err).Error("scheduled job failed")
		return
	}

	entry.WithField("duration", time.Since(start).String()).Debug("scheduled job finished")
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop cancels running jobs and waits for them to return.
func (cr *Cron) Stop() {
	cr.cancel()
	<-cr.c.Stop().Done()
}

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }
