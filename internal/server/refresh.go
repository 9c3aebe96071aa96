package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tartampluch/vcf2ics/internal/config"
)

// RenderFunc produces a complete calendar whose DTSTAMP is stamp.
type RenderFunc func(ctx context.Context, stamp time.Time) (Build, error)

// Refresher rebuilds the feed on a cron schedule.
// A failed rebuild keeps the previous calendar online.
type Refresher struct {
	feed     *Feed
	render   RenderFunc
	spec     string
	schedule cron.Schedule
	now      func() time.Time
}

// NewRefresher validates spec (standard cron syntax or descriptors such as
// "@every 1h") and binds render to feed.
func NewRefresher(feed *Feed, spec string, render RenderFunc) (*Refresher, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrRefreshSchedule, err)
	}
	return &Refresher{
		feed:     feed,
		render:   render,
		spec:     spec,
		schedule: schedule,
		now:      time.Now,
	}, nil
}

// Refresh renders once and publishes the result. The stamp handed to the
// renderer becomes the feed's Last-Modified when the content changed.
func (r *Refresher) Refresh(ctx context.Context) error {
	// DTSTAMP carries whole seconds only.
	stamp := r.now().UTC().Truncate(time.Second)

	build, err := r.render(ctx, stamp)
	r.feed.record(stamp, r.schedule.Next(stamp), err)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrRefreshFailed, err)
	}
	r.feed.Publish(build, stamp)
	return nil
}

// Run refreshes on schedule until ctx is cancelled. Overlapping runs are
// skipped rather than queued.
func (r *Refresher) Run(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(r.schedule, cron.FuncJob(func() {
		if err := r.Refresh(ctx); err != nil {
			log.Error(config.ErrRefreshFailed,
				config.LogKeyError, err,
				config.LogKeyFailures, r.feed.Status().Failures)
		}
	}))

	log.Info(config.MsgRefreshRun,
		config.LogKeySchedule, r.spec,
		config.LogKeyNext, r.schedule.Next(r.now()).Format(time.RFC3339))

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}
