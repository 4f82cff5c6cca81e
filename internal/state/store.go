package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/scrapedeck/internal/console"
	"github.com/five82/scrapedeck/internal/scraper"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Console    console.View
	HasConsole bool

	Sites    scraper.SiteList
	HasSites bool
	SitesErr error

	Schedule    []scraper.ScheduledJob
	HasSchedule bool
	ScheduleErr error

	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive status poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// UpdateConsole replaces the console view.
func (s *Store) UpdateConsole(view console.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Console = cloneView(view)
	s.snapshot.HasConsole = true
	s.snapshot.LastUpdated = time.Now()
}

// RecordPoll tracks reachability from the status poller. When err is non-nil
// the previous data is kept but the error is recorded for visibility.
func (s *Store) RecordPoll(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// UpdateSites stores the site list. On error the previous list is kept.
func (s *Store) UpdateSites(list scraper.SiteList, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	s.snapshot.SitesErr = err
	if err != nil {
		return
	}
	list.Sites = cloneSlice(list.Sites)
	s.snapshot.Sites = list
	s.snapshot.HasSites = true
}

// UpdateSchedule stores the scheduled jobs. On error the previous jobs are kept.
func (s *Store) UpdateSchedule(jobs []scraper.ScheduledJob, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ScheduleErr = err
	if err != nil {
		return
	}
	s.snapshot.Schedule = cloneSlice(jobs)
	s.snapshot.HasSchedule = true
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Console = cloneView(s.snapshot.Console)
	snap.Sites.Sites = cloneSlice(s.snapshot.Sites.Sites)
	snap.Schedule = cloneSlice(s.snapshot.Schedule)
	snap.LastError = cloneErr(s.snapshot.LastError)
	snap.SitesErr = cloneErr(s.snapshot.SitesErr)
	snap.ScheduleErr = cloneErr(s.snapshot.ScheduleErr)
	return snap
}

func cloneView(v console.View) console.View {
	v.Local = cloneSlice(v.Local)
	v.Errors = cloneSlice(v.Errors)
	v.History = cloneSlice(v.History)
	if len(v.Jobs) > 0 {
		jobs := make([]console.JobLogView, len(v.Jobs))
		for i, j := range v.Jobs {
			j.Lines = cloneSlice(j.Lines)
			jobs[i] = j
		}
		v.Jobs = jobs
	}
	return v
}

func cloneSlice[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}

func cloneErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w", err)
}
