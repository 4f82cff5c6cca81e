package console

import (
	"strings"
	"time"

	"github.com/five82/scrapedeck/internal/scraper"
)

// JobStatus is the coarse state of one CI sub-job.
type JobStatus int

const (
	JobQueued JobStatus = iota
	JobInProgress
	JobCompleted
)

func (s JobStatus) String() string {
	switch s {
	case JobInProgress:
		return "in progress"
	case JobCompleted:
		return "completed"
	default:
		return "queued"
	}
}

// ParseJobStatus maps a workflow API status. Anything that is neither
// in_progress nor completed (waiting, requested, pending) counts as queued.
func ParseJobStatus(raw string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case scraper.WorkflowInProgress:
		return JobInProgress
	case scraper.WorkflowCompleted:
		return JobCompleted
	default:
		return JobQueued
	}
}

// JobLogView is the display-ready slice of one CI sub-job's log. Lines is a
// prefix of the upstream log; TotalLineCount is always the upstream length.
type JobLogView struct {
	JobID          int64
	Name           string
	Status         JobStatus
	Conclusion     string
	Lines          []LogLine
	TotalLineCount int
}

// Remaining reports how many upstream lines are hidden by the cap.
func (v JobLogView) Remaining() int {
	if n := v.TotalLineCount - len(v.Lines); n > 0 {
		return n
	}
	return 0
}

// CurrentJobID picks the CI run the console should follow. Only the most
// recent run is considered: while it is still active it is adopted, once
// completed it is adopted only if it finished within window.
func CurrentJobID(runs []scraper.WorkflowRun, now time.Time, window time.Duration) (int64, bool) {
	if len(runs) == 0 {
		return 0, false
	}
	latest := runs[0]
	if latest.ID == 0 {
		return 0, false
	}
	if ParseJobStatus(latest.Status) != JobCompleted {
		return latest.ID, true
	}
	updated := latest.ParsedUpdatedAt()
	if updated.IsZero() {
		return 0, false
	}
	if now.Sub(updated) > window {
		return 0, false
	}
	return latest.ID, true
}

// ShouldPoll reports whether the CI job-log endpoint still needs polling.
// With no job known there is nothing to poll; with a job known but no
// sub-jobs reported yet, polling continues.
func ShouldPoll(known bool, jobs []scraper.WorkflowJob) bool {
	if !known {
		return false
	}
	if len(jobs) == 0 {
		return true
	}
	for _, j := range jobs {
		if !j.Completed() {
			return true
		}
	}
	return false
}

// BuildJobViews slices every sub-job's log to at most maxVisible lines.
func BuildJobViews(logs scraper.WorkflowLogs, maxVisible int) []JobLogView {
	if len(logs.Jobs) == 0 {
		return nil
	}
	views := make([]JobLogView, 0, len(logs.Jobs))
	for _, job := range logs.Jobs {
		raw := job.Logs
		if maxVisible > 0 && len(raw) > maxVisible {
			raw = raw[:maxVisible]
		}
		views = append(views, JobLogView{
			JobID:          job.ID,
			Name:           job.Name,
			Status:         ParseJobStatus(job.Status),
			Conclusion:     job.Conclusion,
			Lines:          FromJobLogs(raw),
			TotalLineCount: len(job.Logs),
		})
	}
	return views
}
