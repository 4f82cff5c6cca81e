package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/scrapedeck/internal/async"
	"github.com/five82/scrapedeck/internal/bulk"
	"github.com/five82/scrapedeck/internal/console"
	"github.com/five82/scrapedeck/internal/scraper"
	"github.com/five82/scrapedeck/internal/state"
	"github.com/five82/scrapedeck/internal/ui"
)

const notificationBuffer = 8

// ControllerOptions configure a Controller.
type ControllerOptions struct {
	Console      console.Options
	SchedulePoll time.Duration
	Logger       *zap.Logger
	Observer     async.Observer
}

type scheduleArgs struct {
	at     time.Time
	params scraper.ScrapeParams
}

// Controller owns every data source and write the UI can trigger. All reads
// land in the store; writes go through mutations and refetch what they touch.
type Controller struct {
	logger *zap.Logger

	console  *console.Aggregator
	sites    *async.Request[scraper.SiteList]
	schedule *async.Poller[[]scraper.ScheduledJob]

	toggle      *async.Mutation[string, scraper.MessageResponse]
	start       *async.Mutation[scraper.ScrapeParams, scraper.StartResponse]
	stop        *async.Mutation[struct{}, scraper.MessageResponse]
	scheduleRun *async.Mutation[scheduleArgs, scraper.ScheduledJob]
	cancelRun   *async.Mutation[string, struct{}]
	sequencer   *bulk.Sequencer

	notes chan bulk.Notification
}

var _ ui.Backend = (*Controller)(nil)

// NewController starts the pollers and returns immediately. Cancelling ctx
// has the same effect as Close.
func NewController(ctx context.Context, api scraper.API, store *state.Store, opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	obs := opts.Observer

	c := &Controller{
		logger: logger,
		notes:  make(chan bulk.Notification, notificationBuffer),
	}

	consoleOpts := opts.Console
	consoleOpts.Logger = logger.Named("console")
	consoleOpts.Observer = obs
	consoleOpts.Sink = store
	c.console = console.New(ctx, api, consoleOpts)

	c.sites = newSitesRequest(ctx, api, store, logger, obs)
	c.schedule = newSchedulePoller(ctx, api, store, opts.SchedulePoll, logger, obs)

	mopts := func(name string) async.MutationOptions {
		return async.MutationOptions{Name: name, Logger: logger, Observer: obs}
	}
	c.toggle = async.NewMutation(api.ToggleSite, mopts("toggle_site"))
	c.start = async.NewMutation(api.StartScrape, mopts("start_scrape"))
	c.stop = async.NewMutation(func(ctx context.Context, _ struct{}) (scraper.MessageResponse, error) {
		return api.StopScrape(ctx)
	}, mopts("stop_scrape"))
	c.scheduleRun = async.NewMutation(func(ctx context.Context, a scheduleArgs) (scraper.ScheduledJob, error) {
		return api.ScheduleScrape(ctx, a.at, a.params)
	}, mopts("schedule_scrape"))
	c.cancelRun = async.NewMutation(func(ctx context.Context, id string) (struct{}, error) {
		return struct{}{}, api.CancelScheduledJob(ctx, id)
	}, mopts("cancel_scheduled"))

	c.sequencer = bulk.NewSequencer(api, bulk.Options{
		Logger:   logger,
		Observer: obs,
		Notifier: bulk.NotifierFunc(c.notify),
	})
	return c
}

func (c *Controller) notify(n bulk.Notification) {
	select {
	case c.notes <- n:
	default:
		c.logger.Warn("notification dropped", zap.String("message", n.Message))
	}
}

// Notifications delivers the one message each bulk run produces.
func (c *Controller) Notifications() <-chan bulk.Notification {
	return c.notes
}

// Refresh refetches every source and waits for all of them.
func (c *Controller) Refresh(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		c.sites.Refetch(ctx)
		return nil
	})
	g.Go(func() error {
		c.schedule.Refetch(ctx)
		return nil
	})
	g.Go(func() error {
		c.console.Refresh(ctx)
		return nil
	})
	_ = g.Wait()
}

// ToggleSite flips one site and refetches the site list.
func (c *Controller) ToggleSite(ctx context.Context, key string) (string, error) {
	resp, err := c.toggle.Mutate(ctx, key)
	if err != nil {
		return "", fmt.Errorf("toggle %s: %w", key, err)
	}
	c.sites.Refetch(ctx)
	return messageOr(resp.Message, "Toggled "+key), nil
}

// BulkApply runs the sequencer, then refetches the site list once.
func (c *Controller) BulkApply(ctx context.Context, action bulk.Action, keys []string, sites []scraper.Site) bulk.Result {
	result := c.sequencer.Run(ctx, action, keys, sites)
	c.sites.Refetch(context.WithoutCancel(ctx))
	return result
}

// StartScrape starts a run and refetches the console status.
func (c *Controller) StartScrape(ctx context.Context, params scraper.ScrapeParams) (string, error) {
	resp, err := c.start.Mutate(ctx, params)
	if err != nil {
		return "", fmt.Errorf("start scrape: %w", err)
	}
	c.console.Refresh(ctx)
	msg := messageOr(resp.Message, "Scrape started")
	if resp.RunID != "" && !strings.Contains(msg, resp.RunID) {
		msg += " (" + resp.RunID + ")"
	}
	return msg, nil
}

// StopScrape stops the current run and refetches the console status.
func (c *Controller) StopScrape(ctx context.Context) (string, error) {
	resp, err := c.stop.Mutate(ctx, struct{}{})
	if err != nil {
		return "", fmt.Errorf("stop scrape: %w", err)
	}
	c.console.Refresh(ctx)
	return messageOr(resp.Message, "Scrape stopped"), nil
}

// ScheduleScrape schedules a future run and refetches the schedule.
func (c *Controller) ScheduleScrape(ctx context.Context, at time.Time, params scraper.ScrapeParams) (scraper.ScheduledJob, error) {
	job, err := c.scheduleRun.Mutate(ctx, scheduleArgs{at: at, params: params})
	if err != nil {
		return scraper.ScheduledJob{}, fmt.Errorf("schedule scrape: %w", err)
	}
	c.schedule.Refetch(ctx)
	return job, nil
}

// CancelScheduled cancels a scheduled run and refetches the schedule.
func (c *Controller) CancelScheduled(ctx context.Context, id string) error {
	if _, err := c.cancelRun.Mutate(ctx, id); err != nil {
		return fmt.Errorf("cancel scheduled run %s: %w", id, err)
	}
	c.schedule.Refetch(ctx)
	return nil
}

// LoadMoreLogs raises the console line cap.
func (c *Controller) LoadMoreLogs() console.View {
	return c.console.LoadMore()
}

// PollHandles exposes every poller for inspection.
func (c *Controller) PollHandles() map[string]async.PollHandle {
	handles := c.console.PollHandles()
	handles["schedule"] = c.schedule.Handle()
	return handles
}

// Close stops every poller and drops in-flight responses.
func (c *Controller) Close() {
	c.console.Close()
	c.schedule.Close()
	c.sites.Close()
}

func messageOr(msg, fallback string) string {
	if msg = strings.TrimSpace(msg); msg != "" {
		return msg
	}
	return fallback
}
