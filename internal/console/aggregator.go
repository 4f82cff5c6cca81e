package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/scrapedeck/internal/async"
	"github.com/five82/scrapedeck/internal/scraper"
)

const (
	defaultFreshnessWindow = 2 * time.Hour
	defaultMaxVisibleLogs  = 100
	defaultLoadMoreStep    = 100
	defaultRunCount        = 5
	defaultLocalLimit      = 500
	defaultErrorLimit      = 200
	defaultHistoryLimit    = 20
)

var errNoJob = errors.New("no ci job selected")

// Sink receives every recomputed view plus the outcome of each status poll.
type Sink interface {
	UpdateConsole(View)
	RecordPoll(err error)
}

// Options configure an Aggregator. Zero values fall back to defaults.
type Options struct {
	FreshnessWindow time.Duration
	MaxVisibleLogs  int
	LoadMoreStep    int
	Cadence         Cadence
	RunCount        int
	LocalLimit      int
	ErrorLimit      int
	HistoryLimit    int

	Logger   *zap.Logger
	Observer async.Observer
	Sink     Sink
	// Now is used for the freshness window; defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.FreshnessWindow <= 0 {
		o.FreshnessWindow = defaultFreshnessWindow
	}
	if o.MaxVisibleLogs <= 0 {
		o.MaxVisibleLogs = defaultMaxVisibleLogs
	}
	if o.LoadMoreStep <= 0 {
		o.LoadMoreStep = defaultLoadMoreStep
	}
	if o.RunCount <= 0 {
		o.RunCount = defaultRunCount
	}
	if o.LocalLimit <= 0 {
		o.LocalLimit = defaultLocalLimit
	}
	if o.ErrorLimit <= 0 {
		o.ErrorLimit = defaultErrorLimit
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = defaultHistoryLimit
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.Cadence = o.Cadence.withDefaults()
	return o
}

// View is one display-ready snapshot of the run console.
type View struct {
	Status    scraper.ScrapeStatus
	HasStatus bool
	StatusErr string

	// CI section. Populated only while a job is followed.
	JobID      int64
	HasJob     bool
	Run        scraper.WorkflowRun
	Jobs       []JobLogView
	ShouldPoll bool
	CIErr      string

	// Local fallback. Populated only while no job is followed.
	Local       []LogLine
	LocalTotal  int
	Errors      []LogLine
	ErrorsTotal int

	History []scraper.ScrapeRun

	MaxVisible int
	UpdatedAt  time.Time
}

// Running reports whether a scrape is believed to be in progress.
func (v View) Running() bool {
	return v.HasStatus && v.Status.IsRunning
}

// Aggregator merges the status, CI and local log pollers into one View and
// decides which of them should be active.
type Aggregator struct {
	api    scraper.API
	opts   Options
	logger *zap.Logger

	status  *async.Poller[scraper.ScrapeStatus]
	runs    *async.Poller[[]scraper.WorkflowRun]
	ci      *async.Poller[scraper.WorkflowLogs]
	local   *async.Poller[[]LogLine]
	errs    *async.Poller[[]LogLine]
	history *async.Poller[[]scraper.ScrapeRun]

	mu         sync.Mutex
	ready      bool
	closed     bool
	jobID      int64
	hasJob     bool
	maxVisible int
}

// New starts every poller the console needs. Polling stops when ctx is
// cancelled or Close is called.
func New(ctx context.Context, api scraper.API, opts Options) *Aggregator {
	opts = opts.withDefaults()
	a := &Aggregator{
		api:        api,
		opts:       opts,
		logger:     opts.Logger.Named("console"),
		maxVisible: opts.MaxVisibleLogs,
	}
	cad := opts.Cadence

	a.status = async.NewPoller(ctx, a.fetchStatus, cad.Status, false, async.Options[scraper.ScrapeStatus]{
		Name:     "status",
		Logger:   a.logger,
		Observer: opts.Observer,
		OnChange: func(st async.State[scraper.ScrapeStatus]) {
			if !st.Loading && opts.Sink != nil {
				var err error
				if st.Err != "" {
					err = errors.New(st.Err)
				}
				opts.Sink.RecordPoll(err)
			}
			a.recompute()
		},
	})
	a.runs = async.NewPoller(ctx, a.fetchRuns, cad.Runs, false, async.Options[[]scraper.WorkflowRun]{
		Name: "runs", Logger: a.logger, Observer: opts.Observer,
		OnChange: func(async.State[[]scraper.WorkflowRun]) { a.recompute() },
	})
	a.ci = async.NewPoller(ctx, noJobProducer, cad.CILogs, false, async.Options[scraper.WorkflowLogs]{
		Name: "ci_logs", Logger: a.logger, Observer: opts.Observer,
		OnChange: func(async.State[scraper.WorkflowLogs]) { a.recompute() },
	})
	a.local = async.NewPoller(ctx, a.fetchLocal, cad.LogsIdle, false, async.Options[[]LogLine]{
		Name: "local_logs", Logger: a.logger, Observer: opts.Observer,
		OnChange: func(async.State[[]LogLine]) { a.recompute() },
	})
	a.errs = async.NewPoller(ctx, a.fetchErrors, cad.ErrorsIdle, false, async.Options[[]LogLine]{
		Name: "error_logs", Logger: a.logger, Observer: opts.Observer,
		OnChange: func(async.State[[]LogLine]) { a.recompute() },
	})
	a.history = async.NewPoller(ctx, a.fetchHistory, cad.History, false, async.Options[[]scraper.ScrapeRun]{
		Name: "history", Logger: a.logger, Observer: opts.Observer,
		OnChange: func(async.State[[]scraper.ScrapeRun]) { a.recompute() },
	})

	a.mu.Lock()
	a.ready = true
	a.mu.Unlock()

	a.status.SetEnabled(true)
	a.runs.SetEnabled(true)
	a.history.SetEnabled(true)
	a.recompute()
	return a
}

// View builds the current snapshot.
func (a *Aggregator) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewLocked()
}

// LoadMore raises the per-source cap by one step. The data is already held
// in memory, so nothing is fetched.
func (a *Aggregator) LoadMore() View {
	a.mu.Lock()
	if a.closed {
		defer a.mu.Unlock()
		return a.viewLocked()
	}
	a.maxVisible += a.opts.LoadMoreStep
	view := a.viewLocked()
	a.publishLocked(view)
	a.mu.Unlock()
	return view
}

// Refresh refetches scrape status and CI runs out of schedule, typically
// right after a start or stop so the console picks up the new job quickly.
func (a *Aggregator) Refresh(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.status.Refetch(ctx)
	}()
	go func() {
		defer wg.Done()
		a.runs.Refetch(ctx)
	}()
	wg.Wait()
}

// PollHandles reports the scheduler state of every source, keyed by name.
func (a *Aggregator) PollHandles() map[string]async.PollHandle {
	return map[string]async.PollHandle{
		"status":     a.status.Handle(),
		"runs":       a.runs.Handle(),
		"ci_logs":    a.ci.Handle(),
		"local_logs": a.local.Handle(),
		"error_logs": a.errs.Handle(),
		"history":    a.history.Handle(),
	}
}

// Close stops every poller. Responses still in flight are discarded.
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	a.status.Close()
	a.runs.Close()
	a.ci.Close()
	a.local.Close()
	a.errs.Close()
	a.history.Close()
}

// recompute derives the followed job and which sources are active, then
// publishes the resulting view.
func (a *Aggregator) recompute() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready || a.closed {
		return
	}

	runs := a.runs.State()
	jobID, hasJob := CurrentJobID(runs.Data, a.opts.Now(), a.opts.FreshnessWindow)
	if hasJob != a.hasJob || jobID != a.jobID {
		a.logger.Info("console job changed",
			zap.Int64("job_id", jobID),
			zap.Bool("has_job", hasJob),
			zap.Int64("previous_job_id", a.jobID))
		a.jobID, a.hasJob = jobID, hasJob
		a.maxVisible = a.opts.MaxVisibleLogs
		if hasJob {
			a.ci.SetProducer(a.ciProducer(jobID))
		} else {
			a.ci.SetEnabled(false)
			a.ci.SetProducer(noJobProducer)
		}
	}

	a.ci.SetEnabled(ShouldPoll(a.hasJob, a.ciJobsLocked()))

	running := false
	if st := a.status.State(); st.HasData {
		running = st.Data.IsRunning
	}
	cad := a.opts.Cadence
	a.local.SetInterval(cad.Logs(running))
	a.errs.SetInterval(cad.Errors(running))
	a.local.SetEnabled(!a.hasJob)
	a.errs.SetEnabled(!a.hasJob)

	a.publishLocked(a.viewLocked())
}

// ciJobsLocked returns the sub-jobs of the followed run. Data left over from
// a previous run is ignored.
func (a *Aggregator) ciJobsLocked() []scraper.WorkflowJob {
	if !a.hasJob {
		return nil
	}
	st := a.ci.State()
	if !st.HasData || st.Data.RunID != a.jobID {
		return nil
	}
	return st.Data.Jobs
}

func (a *Aggregator) viewLocked() View {
	view := View{
		JobID:      a.jobID,
		HasJob:     a.hasJob,
		MaxVisible: a.maxVisible,
		UpdatedAt:  a.opts.Now(),
	}

	status := a.status.State()
	view.Status, view.HasStatus, view.StatusErr = status.Data, status.HasData, status.Err

	if hist := a.history.State(); hist.HasData {
		view.History = append([]scraper.ScrapeRun(nil), hist.Data...)
	}

	if a.hasJob {
		for _, run := range a.runs.State().Data {
			if run.ID == a.jobID {
				view.Run = run
				break
			}
		}
		jobs := a.ciJobsLocked()
		view.ShouldPoll = ShouldPoll(true, jobs)
		view.Jobs = BuildJobViews(scraper.WorkflowLogs{RunID: a.jobID, Jobs: jobs}, a.maxVisible)
		view.CIErr = a.ci.State().Err
		return view
	}

	local := a.local.State()
	view.Local = CapRecent(local.Data, a.maxVisible)
	view.LocalTotal = len(local.Data)
	errs := a.errs.State()
	view.Errors = CapRecent(errs.Data, a.maxVisible)
	view.ErrorsTotal = len(errs.Data)
	return view
}

func (a *Aggregator) publishLocked(view View) {
	if a.opts.Sink != nil {
		a.opts.Sink.UpdateConsole(view)
	}
}

func (a *Aggregator) fetchStatus(ctx context.Context) (scraper.ScrapeStatus, error) {
	return a.api.GetScrapeStatus(ctx)
}

func (a *Aggregator) fetchRuns(ctx context.Context) ([]scraper.WorkflowRun, error) {
	return a.api.ListWorkflowRuns(ctx, a.opts.RunCount)
}

func (a *Aggregator) fetchLocal(ctx context.Context) ([]LogLine, error) {
	entries, err := a.api.GetLogs(ctx, scraper.LogQuery{Limit: a.opts.LocalLimit})
	if err != nil {
		return nil, err
	}
	return FromLogEntries(entries), nil
}

func (a *Aggregator) fetchErrors(ctx context.Context) ([]LogLine, error) {
	entries, err := a.api.GetErrorLogs(ctx, a.opts.ErrorLimit)
	if err != nil {
		return nil, err
	}
	return FromErrorLogs(entries), nil
}

func (a *Aggregator) fetchHistory(ctx context.Context) ([]scraper.ScrapeRun, error) {
	return a.api.GetScrapeHistory(ctx, a.opts.HistoryLimit)
}

// ciProducer fetches the logs of one run. Failures are logged and left in
// the request state; the poller keeps ticking and the next success clears
// them.
func (a *Aggregator) ciProducer(runID int64) async.Producer[scraper.WorkflowLogs] {
	return func(ctx context.Context) (scraper.WorkflowLogs, error) {
		logs, err := a.api.GetWorkflowLogs(ctx, runID, scraper.WorkflowLogQuery{})
		if err != nil {
			a.logger.Warn("ci log poll failed", zap.Int64("run_id", runID), zap.Error(err))
			return scraper.WorkflowLogs{}, err
		}
		if logs.RunID == 0 {
			logs.RunID = runID
		}
		return logs, nil
	}
}

func noJobProducer(context.Context) (scraper.WorkflowLogs, error) {
	return scraper.WorkflowLogs{}, errNoJob
}
