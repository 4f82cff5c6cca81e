package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/five82/scrapedeck/internal/async"
	"github.com/five82/scrapedeck/internal/scraper"
	"github.com/five82/scrapedeck/internal/state"
)

const defaultSchedulePoll = 30 * time.Second

// newSitesRequest fetches the site list once at startup and again whenever a
// write touches it. Each settled state is published to the store.
func newSitesRequest(ctx context.Context, api scraper.API, store *state.Store, logger *zap.Logger, obs async.Observer) *async.Request[scraper.SiteList] {
	return async.NewRequest(ctx, api.ListSites, async.Options[scraper.SiteList]{
		Immediate: true,
		Name:      "sites",
		Logger:    logger,
		Observer:  obs,
		OnChange: func(st async.State[scraper.SiteList]) {
			if st.Loading || (!st.HasData && st.Err == "") {
				return
			}
			store.UpdateSites(st.Data, stateErr(st))
		},
	})
}

// newSchedulePoller polls upcoming scheduled runs at a fixed interval.
func newSchedulePoller(ctx context.Context, api scraper.API, store *state.Store, interval time.Duration, logger *zap.Logger, obs async.Observer) *async.Poller[[]scraper.ScheduledJob] {
	if interval <= 0 {
		interval = defaultSchedulePoll
	}
	return async.NewPoller(ctx, api.ListScheduledJobs, interval, true, async.Options[[]scraper.ScheduledJob]{
		Name:     "schedule",
		Logger:   logger,
		Observer: obs,
		OnChange: func(st async.State[[]scraper.ScheduledJob]) {
			if st.Loading || (!st.HasData && st.Err == "") {
				return
			}
			store.UpdateSchedule(st.Data, stateErr(st))
		},
	})
}

func stateErr[T any](st async.State[T]) error {
	if st.Err == "" {
		return nil
	}
	return errors.New(st.Err)
}
