package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/scrapedeck/internal/console"
	"github.com/five82/scrapedeck/internal/scraper"
)

var _ console.Sink = (*Store)(nil)

func TestStore_UpdateConsoleAndSnapshotClone(t *testing.T) {
	var s Store

	view := console.View{
		HasJob: true,
		JobID:  7,
		Jobs: []console.JobLogView{{
			JobID: 1,
			Lines: []console.LogLine{{Message: "a"}, {Message: "b"}},
		}},
		History: []scraper.ScrapeRun{{ID: "r1"}},
	}

	before := time.Now()
	s.UpdateConsole(view)

	snap := s.Snapshot()
	if !snap.HasConsole || snap.Console.JobID != 7 {
		t.Fatalf("snapshot console = %#v, want job 7 HasConsole=true", snap.Console)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Console.Jobs[0].Lines[0].Message = "mutated"
	snap.Console.History[0].ID = "mutated"
	view.Jobs[0].Lines[1].Message = "mutated"
	snap2 := s.Snapshot()
	if got := snap2.Console.Jobs[0].Lines[0].Message; got != "a" {
		t.Fatalf("Snapshot should clone job lines; got %q want a", got)
	}
	if got := snap2.Console.Jobs[0].Lines[1].Message; got != "b" {
		t.Fatalf("UpdateConsole should clone job lines; got %q want b", got)
	}
	if got := snap2.Console.History[0].ID; got != "r1" {
		t.Fatalf("Snapshot should clone history; got %q want r1", got)
	}
}

func TestStore_UpdateSitesErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.UpdateSites(scraper.SiteList{Sites: []scraper.Site{{Key: "acme"}}, Total: 1}, nil)
	prev := s.Snapshot()

	origErr := errors.New("boom")
	s.UpdateSites(scraper.SiteList{}, origErr)

	snap := s.Snapshot()
	if !snap.HasSites || len(snap.Sites.Sites) != 1 || snap.Sites.Sites[0].Key != prev.Sites.Sites[0].Key {
		t.Fatalf("sites changed on error: got %#v want %#v", snap.Sites, prev.Sites)
	}
	if snap.SitesErr == nil || snap.SitesErr.Error() != "boom" {
		t.Fatalf("SitesErr = %v, want boom", snap.SitesErr)
	}
	if reflect.ValueOf(snap.SitesErr).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}

	s.UpdateSites(scraper.SiteList{Total: 0}, nil)
	if snap := s.Snapshot(); snap.SitesErr != nil || len(snap.Sites.Sites) != 0 {
		t.Fatalf("successful empty update should clear: %#v", snap)
	}
}

func TestStore_UpdateSchedule(t *testing.T) {
	var s Store

	s.UpdateSchedule([]scraper.ScheduledJob{{ID: "j1"}}, nil)
	s.UpdateSchedule(nil, errors.New("timeout"))

	snap := s.Snapshot()
	if !snap.HasSchedule || len(snap.Schedule) != 1 {
		t.Fatalf("Schedule = %#v, want previous job kept", snap.Schedule)
	}
	if snap.ScheduleErr == nil {
		t.Fatalf("ScheduleErr = nil, want timeout")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	// Initially zero failures
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}

	s.RecordPoll(errors.New("fail 1"))
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	// Second failure - now offline
	s.RecordPoll(errors.New("fail 2"))
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 2 {
		t.Fatalf("ConsecutiveFailures = %d, want 2", snap.ConsecutiveFailures)
	}
	if !snap.IsOffline() {
		t.Fatal("IsOffline() = false, want true with 2 failures")
	}
	if snap.LastError == nil || snap.LastError.Error() != "fail 2" {
		t.Fatalf("LastError = %v, want fail 2", snap.LastError)
	}

	// Success resets counter
	s.RecordPoll(nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after success", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() || snap.LastError != nil {
		t.Fatal("want online with no error after success")
	}
}
