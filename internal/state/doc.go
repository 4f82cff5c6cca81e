// Package state provides thread-safe state sharing between the background
// data sources and the terminal UI.
//
// # Overview
//
// Several independent producers write into one Store:
//
//	console.Aggregator ──UpdateConsole / RecordPoll──┐
//	sites request      ──UpdateSites─────────────────┼──→ Store ──Snapshot()──→ ui
//	schedule poller    ──UpdateSchedule──────────────┘
//
// The UI never talks to a producer directly for reads. It takes a Snapshot
// on every tick and renders from it.
//
// # Update Semantics
//
// Every update method records LastUpdated. Failed site and schedule fetches
// keep the previous data and record the error next to it, so the UI keeps
// showing the last good list together with a warning.
//
// Reachability is driven only by the status poller through RecordPoll:
//
//	RecordPoll(err)  → ConsecutiveFailures++, LastError = err
//	RecordPoll(nil)  → ConsecutiveFailures = 0, LastError = nil
//
// IsOffline reports two or more consecutive failures.
//
// # Defensive Copying
//
// Slices (sites, jobs, log lines, history) are cloned on the way in and on
// the way out, and errors are re-wrapped, so a Snapshot can be held by the
// UI while producers keep writing.
//
// The zero Store is ready to use.
package state
