// Package app is the composition root for scrapedeck.
//
// # Overview
//
// Run loads configuration and preferences, opens the zap log file, builds
// the scraper client and Prometheus metrics, then starts a Controller and
// hands it to the Bubble Tea UI. Run blocks until the user quits or ctx is
// cancelled.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()          Read config.toml
//	       ├─────> logging.New()          Log to file (stdout belongs to the TUI)
//	       ├─────> scraper.NewClient()    HTTP client for the scraper API
//	       ├─────> metrics.Serve()        Optional /metrics endpoint
//	       ├─────> NewController()        Pollers, mutations, bulk sequencer
//	       └─────> ui.Run()               Start TUI (blocks)
//
//	Controller:
//	┌─────────────────────────────────────────────┐
//	│ console.Aggregator  status, CI, logs ──┐    │
//	│ sites Request       site list ─────────┼──> state.Store ──> UI tick
//	│ schedule Poller     scheduled runs ────┘    │
//	│ Mutations + bulk.Sequencer  <── UI commands │
//	└─────────────────────────────────────────────┘
//
// # Error Handling
//
// Fatal errors (returned from Run): unreadable config, log file or client
// setup. Everything after startup is recoverable: failed polls are recorded
// in the store and retried on the next tick, failed writes are returned to
// the UI as a toast.
package app
