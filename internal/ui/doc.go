// Package ui provides the Bubble Tea terminal interface for scrapedeck.
//
// # Architecture Overview
//
// The Model reads a state.Store snapshot on every tick, the same way the
// pollers publish into it, and never calls the scraper API directly. Writes
// (toggles, bulk actions, start/stop, scheduling) go through the Backend
// interface from tea.Cmd functions so a slow request never blocks rendering.
//
// # Views
//
//   - Sites: paged, filterable table with multi-select, toggle and bulk
//     enable/disable/delete.
//   - Console: scrape status, CI job logs when a fresh CI run exists or local
//     and error logs otherwise, history, load-more and clipboard export.
//   - Schedule: upcoming runs, cancel, and "+N minutes" scheduling.
//
// # Event Flow
//
//  1. Run builds the Model, starts the preferences watcher and the program.
//  2. tickMsg fetches a snapshot and expires the toast.
//  3. Key presses mutate view state or return a command for the Backend.
//  4. actionDoneMsg and notificationMsg surface a single status-line toast.
//
// # Key Bindings
//
//   - 1/2/3, Tab: switch views
//   - j/k, g/G: move
//   - Space, a: select row or page; t toggle; E/D/X bulk enable/disable/delete
//   - /: filter sites; n/p: page
//   - s/S: start/stop scrape; m: load 100 more log lines; y: copy console
//   - T: cycle theme; h or ?: help; e or Ctrl+C: quit
package ui
